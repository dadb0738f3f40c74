// SPDX-License-Identifier: MIT

package task

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// durationType1 matches "[-][H:]MM:SS[.ms]".
var durationType1 = regexp.MustCompile(`^(-?)(?:(\d+):)?(\d{1,2}):(\d{1,2})(?:\.(\d+))?$`)

// durationType2 matches "[-]N[.frac][s|ms|us]", unit defaulting to seconds.
var durationType2 = regexp.MustCompile(`^(-?)(\d+)(?:\.(\d+))?(s|ms|us)?$`)

// parseDurationToken parses an ffmpeg duration token in either of the
// two syntaxes accepted by ffmpeg's utils.c: clock form ([-][H:]MM:SS
// [.ms]) or plain seconds/milliseconds/microseconds ([-]N[.frac]
// [s|ms|us]). An unrecognized unit, or a string matching neither
// syntax, is rejected.
func parseDurationToken(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)

	if m := durationType1.FindStringSubmatch(raw); m != nil {
		sign := 1.0
		if m[1] == "-" {
			sign = -1.0
		}
		hours := 0.0
		if m[2] != "" {
			h, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
			}
			hours = h
		}
		minutes, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		seconds, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		frac := 0.0
		if m[5] != "" {
			f, err := strconv.ParseFloat("0."+m[5], 64)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
			}
			frac = f
		}
		return sign * (hours*3600 + minutes*60 + seconds + frac), nil
	}

	if m := durationType2.FindStringSubmatch(raw); m != nil {
		sign := 1.0
		if m[1] == "-" {
			sign = -1.0
		}
		whole, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		frac := 0.0
		if m[3] != "" {
			f, err := strconv.ParseFloat("0."+m[3], 64)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
			}
			frac = f
		}
		value := whole + frac

		switch m[4] {
		case "", "s":
			// seconds, no conversion
		case "ms":
			value /= 1000
		case "us":
			value /= 1_000_000
		default:
			return 0, fmt.Errorf("invalid duration %q: unknown unit %q", raw, m[4])
		}
		return sign * value, nil
	}

	return 0, fmt.Errorf("invalid duration %q", raw)
}
