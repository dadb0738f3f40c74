// SPDX-License-Identifier: MIT

package task

import "strconv"

// ProgressBasis identifies which field of ProgressType is meaningful.
type ProgressBasis int

const (
	// BasisUnspecified means no duration or size basis could be derived.
	BasisUnspecified ProgressBasis = iota
	// BasisDuration means Seconds is the expected total duration.
	BasisDuration
	// BasisFileSize means Bytes is the expected total output size.
	BasisFileSize
)

// ProgressType is the pre-flight progress basis computed once at
// Idle->Running and held immutable for the task's lifetime.
type ProgressType struct {
	Basis   ProgressBasis
	Seconds float64
	Bytes   int64
}

// ProbeFunc queries the media duration (in seconds) of an input path,
// typically by invoking ffprobe. ok is false when the duration could
// not be determined.
type ProbeFunc func(path string) (seconds float64, ok bool)

// outputSource is one output's progress classification.
type outputSource struct {
	basis  ProgressBasis
	offset bool // true when basis == BasisDuration but derived from -ss alone (DurationOffset)
	value  float64
}

// clipFlags holds the trim-relevant flags scanned from one input or
// output's argument list.
type clipFlags struct {
	hasSS, hasSSEOF, hasTo, hasT, hasFS bool
	ss, sseof, to, t, fs                float64
}

func scanClipFlags(flags []string) (clipFlags, error) {
	var c clipFlags
	for i := 0; i < len(flags); i++ {
		switch flags[i] {
		case "-ss":
			if i+1 >= len(flags) {
				continue
			}
			v, err := parseDurationToken(flags[i+1])
			if err != nil {
				return c, err
			}
			c.hasSS, c.ss = true, v
			i++
		case "-sseof":
			if i+1 >= len(flags) {
				continue
			}
			v, err := parseDurationToken(flags[i+1])
			if err != nil {
				return c, err
			}
			c.hasSSEOF, c.sseof = true, v
			i++
		case "-to":
			if i+1 >= len(flags) {
				continue
			}
			v, err := parseDurationToken(flags[i+1])
			if err != nil {
				return c, err
			}
			c.hasTo, c.to = true, v
			i++
		case "-t":
			if i+1 >= len(flags) {
				continue
			}
			v, err := parseDurationToken(flags[i+1])
			if err != nil {
				return c, err
			}
			c.hasT, c.t = true, v
			i++
		case "-fs":
			if i+1 >= len(flags) {
				continue
			}
			v, err := strconv.ParseFloat(flags[i+1], 64)
			if err != nil {
				return c, err
			}
			c.hasFS, c.fs = true, v
			i++
		}
	}
	return c, nil
}

// classifyOutput maps one output's flags to its progress basis.
// -sseof never applies to outputs.
func classifyOutput(flags []string) outputSource {
	c, err := scanClipFlags(flags)
	if err != nil {
		return outputSource{basis: BasisUnspecified}
	}

	switch {
	case c.hasFS:
		return outputSource{basis: BasisFileSize, value: c.fs}
	case c.hasT:
		return outputSource{basis: BasisDuration, value: c.t}
	case c.hasTo && c.hasSS:
		return outputSource{basis: BasisDuration, value: c.to - c.ss}
	case c.hasTo:
		return outputSource{basis: BasisDuration, value: c.to}
	case c.hasSS:
		return outputSource{basis: BasisDuration, offset: true, value: c.ss}
	default:
		return outputSource{basis: BasisUnspecified}
	}
}

// clipInputDuration derives an input's effective duration from the
// probed duration d and the input's scanned clip flags. fs on an input
// always yields Unspecified for that input (ok=false). A positive
// sseof is an ffmpeg usage error and zeroes the result; -t dominates
// -to whenever both are present.
func clipInputDuration(d float64, c clipFlags) (float64, bool) {
	if c.hasFS {
		return 0, false
	}

	switch {
	case !c.hasSS && !c.hasSSEOF && c.hasT:
		return min(c.t, d), true
	case !c.hasSS && !c.hasSSEOF && c.hasTo:
		return min(c.to, d), true
	case !c.hasSS && c.hasSSEOF && c.hasT:
		if c.sseof > 0 {
			return 0, true
		}
		ss := d + c.sseof
		return min(ss+c.t, d) - ss, true
	case !c.hasSS && c.hasSSEOF && c.hasTo:
		if c.sseof > 0 {
			return 0, true
		}
		ss := d + c.sseof
		to := min(c.to, d)
		if ss > to {
			return absf(c.sseof), true
		}
		return to - ss, true
	case !c.hasSS && c.hasSSEOF:
		if c.sseof > 0 {
			return 0, true
		}
		return d + c.sseof, true
	case c.hasSS && c.hasT:
		ss := min(c.ss, d)
		return min(ss+c.t, d) - ss, true
	case c.hasSS && c.hasTo:
		if c.ss > c.to {
			return 0, true
		}
		if c.ss < 0 {
			// Documented ffmpeg anomaly, preserved verbatim.
			return 2*absf(c.ss) + c.to, true
		}
		return min(c.to, d) - min(c.ss, d), true
	case c.hasSS:
		return d - min(c.ss, d), true
	default:
		return d, true
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Resolve computes the ProgressType for a task's Arguments, consulting
// probe for any input whose duration is needed.
func Resolve(args Arguments, probe ProbeFunc) ProgressType {
	sources := make([]outputSource, 0, len(args.Outputs))
	for _, out := range args.Outputs {
		sources = append(sources, classifyOutput(out.Flags))
	}

	var sizes, durations, offsets int
	var sizeSum, durationMax, offsetMax float64
	any := false

	for _, s := range sources {
		switch s.basis {
		case BasisFileSize:
			sizes++
			sizeSum += s.value
			any = true
		case BasisDuration:
			if s.offset {
				offsets++
				if s.value > offsetMax || offsets == 1 {
					offsetMax = s.value
				}
			} else {
				durations++
				if s.value > durationMax || durations == 1 {
					durationMax = s.value
				}
			}
			any = true
		}
	}

	switch {
	case any && sizes > 0 && durations == 0 && offsets == 0:
		return ProgressType{Basis: BasisFileSize, Bytes: int64(sizeSum)}
	case any && durations > 0 && sizes == 0 && offsets == 0:
		return ProgressType{Basis: BasisDuration, Seconds: durationMax}
	case any && offsets > 0 && sizes == 0 && durations == 0:
		maxInput, ok := maxClippedInputDuration(args.Inputs, probe)
		if !ok {
			return ProgressType{Basis: BasisUnspecified}
		}
		return ProgressType{Basis: BasisDuration, Seconds: maxInput - offsetMax}
	default:
		return ProgressType{Basis: BasisUnspecified}
	}
}

func maxClippedInputDuration(inputs []Input, probe ProbeFunc) (float64, bool) {
	max := 0.0
	found := false
	for _, in := range inputs {
		d, ok := probe(in.Path)
		if !ok {
			continue
		}
		c, err := scanClipFlags(in.Flags)
		if err != nil {
			continue
		}
		clipped, ok := clipInputDuration(d, c)
		if !ok {
			continue
		}
		if !found || clipped > max {
			max = clipped
		}
		found = true
	}
	return max, found
}
