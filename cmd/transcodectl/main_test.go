// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/transcodectl/internal/task"
)

func TestBuildArguments(t *testing.T) {
	tests := []struct {
		name    string
		inputs  []string
		output  string
		extra   string
		want    task.Arguments
	}{
		{
			name:   "single input no extra flags",
			inputs: []string{"in.mp4"},
			output: "out.mp4",
			want: task.Arguments{
				Inputs:  []task.Input{{Path: "in.mp4"}},
				Outputs: []task.Output{{Path: "out.mp4", Flags: nil}},
			},
		},
		{
			name:   "extra flags attach to the output",
			inputs: []string{"in.mp4"},
			output: "out.mp4",
			extra:  "-t 30 -c:v copy",
			want: task.Arguments{
				Inputs:  []task.Input{{Path: "in.mp4"}},
				Outputs: []task.Output{{Path: "out.mp4", Flags: []string{"-t", "30", "-c:v", "copy"}}},
			},
		},
		{
			name:   "multiple inputs preserve order",
			inputs: []string{"a.mp4", "b.mp4"},
			output: "out.mp4",
			want: task.Arguments{
				Inputs:  []task.Input{{Path: "a.mp4"}, {Path: "b.mp4"}},
				Outputs: []task.Output{{Path: "out.mp4", Flags: nil}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildArguments(tt.inputs, tt.output, tt.extra)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("buildArguments() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSplitArgs(t *testing.T) {
	if got := splitArgs(""); len(got) != 0 {
		t.Errorf("splitArgs(\"\") = %v, want empty", got)
	}
	got := splitArgs("  -t   30 ")
	if len(got) != 2 || got[0] != "-t" || got[1] != "30" {
		t.Errorf("splitArgs() = %v, want [-t 30]", got)
	}
}

func TestLogEmitterTranslatesTerminalMessages(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tests := []struct {
		name string
		msg  *task.TaskMessage
		want int
	}{
		{"finished maps to 0", &task.TaskMessage{Kind: task.MessageFinished, Finished: &task.FinishedMessage{ID: "x"}}, 0},
		{"errored maps to 1", &task.TaskMessage{Kind: task.MessageErrored, Errored: &task.ErroredMessage{ID: "x", Reason: "boom"}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newLogEmitter(logger)
			e.Publish(task.Topic, tt.msg)
			if got := e.wait(context.Background()); got != tt.want {
				t.Errorf("wait() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLogEmitterWaitUnblocksOnContextCancel(t *testing.T) {
	e := newLogEmitter(slog.Default())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan int, 1)
	go func() { done <- e.wait(ctx) }()

	cancel()
	select {
	case code := <-done:
		if code != 130 {
			t.Errorf("wait() = %d, want 130 on cancellation", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wait() did not unblock on context cancellation")
	}
}

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		if logger := newLogger(level, "text"); logger == nil {
			t.Errorf("newLogger(%q, text) = nil", level)
		}
	}
	if logger := newLogger("info", "json"); logger == nil {
		t.Error("newLogger(info, json) = nil")
	}
}
