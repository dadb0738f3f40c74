// SPDX-License-Identifier: MIT

package task

import (
	"reflect"
	"testing"
)

func TestArgumentsSerialize(t *testing.T) {
	tests := []struct {
		name string
		args Arguments
		want []string
	}{
		{
			name: "simple transcode",
			args: Arguments{
				Inputs:  []Input{{Path: "a.mp4"}},
				Outputs: []Output{{Path: "b.mp4", Flags: []string{"-t", "10"}}},
			},
			want: []string{
				"-hide_banner", "-progress", "-", "-nostats",
				"-i", "a.mp4",
				"-t", "10", "b.mp4",
				"-y",
			},
		},
		{
			name: "discard sink",
			args: Arguments{
				Inputs:  []Input{{Path: "a.mp4"}},
				Outputs: []Output{{Flags: []string{"-an"}}},
			},
			want: []string{
				"-hide_banner", "-progress", "-", "-nostats",
				"-i", "a.mp4",
				"-an", "-f", "null", "-",
				"-y",
			},
		},
		{
			name: "input flags precede -i, output flags precede path",
			args: Arguments{
				Inputs:  []Input{{Path: "in.mkv", Flags: []string{"-ss", "5"}}},
				Outputs: []Output{{Path: "out.mkv", Flags: []string{"-c:v", "copy"}}},
			},
			want: []string{
				"-hide_banner", "-progress", "-", "-nostats",
				"-ss", "5", "-i", "in.mkv",
				"-c:v", "copy", "out.mkv",
				"-y",
			},
		},
		{
			name: "multiple inputs and outputs",
			args: Arguments{
				Inputs: []Input{
					{Path: "a.mp4"},
					{Path: "b.mp4", Flags: []string{"-ss", "1"}},
				},
				Outputs: []Output{
					{Path: "out1.mp4"},
					{Path: "out2.mp4", Flags: []string{"-fs", "1000"}},
				},
			},
			want: []string{
				"-hide_banner", "-progress", "-", "-nostats",
				"-i", "a.mp4",
				"-ss", "1", "-i", "b.mp4",
				"out1.mp4",
				"-fs", "1000", "out2.mp4",
				"-y",
			},
		},
		{
			name: "empty tokens elided",
			args: Arguments{
				Inputs:  []Input{{Path: "a.mp4", Flags: []string{"", "-ss", ""}}},
				Outputs: []Output{{Path: "b.mp4"}},
			},
			want: []string{
				"-hide_banner", "-progress", "-", "-nostats",
				"-ss", "-i", "a.mp4",
				"b.mp4",
				"-y",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.args.Serialize()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Serialize() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestArgumentsSerializeDeterministic(t *testing.T) {
	// Serializing twice from the same Arguments value produces
	// identical token sequences.
	args := Arguments{
		Inputs:  []Input{{Path: "a.mp4", Flags: []string{"-ss", "5"}}},
		Outputs: []Output{{Path: "b.mp4", Flags: []string{"-t", "10"}}},
	}

	first := args.Serialize()
	second := args.Serialize()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Serialize() is not stable across calls: %#v != %#v", first, second)
	}
}

func TestArgumentsPreambleOrdering(t *testing.T) {
	args := Arguments{
		Inputs:  []Input{{Path: "a.mp4"}},
		Outputs: []Output{{Path: "b.mp4"}},
	}
	got := args.Serialize()

	if len(got) < 4 {
		t.Fatalf("serialized tokens too short: %#v", got)
	}
	want := []string{"-hide_banner", "-progress", "-", "-nostats"}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("preamble token %d = %q, want %q", i, got[i], w)
		}
	}
	if got[len(got)-1] != "-y" {
		t.Errorf("last token = %q, want -y", got[len(got)-1])
	}
}
