// SPDX-License-Identifier: MIT

package task

import "testing"

func TestParseDurationToken(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    float64
		wantErr bool
	}{
		{"plain seconds", "10", 10, false},
		{"decimal seconds", "10.5", 10.5, false},
		{"explicit seconds suffix", "10s", 10, false},
		{"milliseconds", "1500ms", 1.5, false},
		{"microseconds", "1500000us", 1.5, false},
		{"negative seconds", "-10", -10, false},
		{"clock form mm:ss", "01:30", 90, false},
		{"clock form h:mm:ss", "1:01:30", 3690, false},
		{"clock form with fraction", "00:01.5", 1.5, false},
		{"negative clock form", "-01:30", -90, false},
		{"unknown unit rejected", "10x", 0, true},
		{"garbage rejected", "not-a-duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDurationToken(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDurationToken(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("parseDurationToken(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
