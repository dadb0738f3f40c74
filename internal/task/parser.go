// SPDX-License-Identifier: MIT

package task

import "strconv"

// ProgressMessage is the accumulating frame built up by Parser as it
// reads key=value lines from the progress stream. Id and
// ProgressType persist across emissions; the numeric/raw fields are
// cleared after each publish.
type ProgressMessage struct {
	ID           string
	ProgressType ProgressType
	Raw          []string

	Frame        *int64
	FPS          *float64
	Bitrate      *float64
	TotalSize    *int64
	OutputTimeMs *int64
	DupFrames    *int64
	DropFrames   *int64
	Speed        *float64
}

// reset clears the mutable fields after an emission, keeping ID and
// ProgressType.
func (m *ProgressMessage) reset() {
	m.Raw = nil
	m.Frame = nil
	m.FPS = nil
	m.Bitrate = nil
	m.TotalSize = nil
	m.OutputTimeMs = nil
	m.DupFrames = nil
	m.DropFrames = nil
	m.Speed = nil
}

// Parser decodes one line at a time from an ffmpeg `-progress -`
// stream into ProgressMessage frames.
type Parser struct {
	msg *ProgressMessage
}

// NewParser builds a Parser for one task's progress stream.
func NewParser(id string, pt ProgressType) *Parser {
	return &Parser{msg: &ProgressMessage{ID: id, ProgressType: pt}}
}

// Feed decodes one line. It returns the running message to publish
// when the line completes a progress cycle (progress=continue or
// progress=end), along with finished=true when the line was
// `progress=end`. Unrecognized keys are appended to Raw verbatim.
func (p *Parser) Feed(line string) (msg *ProgressMessage, finished bool) {
	key, value, ok := splitKV(line)
	if !ok {
		p.msg.Raw = append(p.msg.Raw, line)
		return nil, false
	}

	switch key {
	case "frame":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.msg.Frame = &v
		}
	case "fps":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			p.msg.FPS = &v
		}
	case "bitrate":
		if v, ok := parseSuffixed(value, 7); ok {
			p.msg.Bitrate = &v
		}
	case "total_size":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.msg.TotalSize = &v
		}
	case "out_time_ms":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.msg.OutputTimeMs = &v
		}
	case "dup_frames":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.msg.DupFrames = &v
		}
	case "drop_frames":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.msg.DropFrames = &v
		}
	case "speed":
		if v, ok := parseSuffixed(value, 1); ok {
			p.msg.Speed = &v
		}
	case "progress":
		switch value {
		case "continue":
			return p.emit(), false
		case "end":
			return p.emit(), true
		default:
			// ignored
		}
		return nil, false
	default:
		p.msg.Raw = append(p.msg.Raw, line)
	}

	return nil, false
}

// emit snapshots the current message for publication and resets the
// mutable fields, keeping ID/ProgressType.
func (p *Parser) emit() *ProgressMessage {
	snapshot := *p.msg
	snapshot.Raw = append([]string(nil), p.msg.Raw...)
	p.msg.reset()
	return &snapshot
}

// splitKV splits a "key=value" progress line. ok is false for lines
// with no '=' separator.
func splitKV(line string) (key, value string, ok bool) {
	for i := 0; i < len(line); i++ {
		if line[i] == '=' {
			return line[:i], line[i+1:], true
		}
	}
	return "", "", false
}

// parseSuffixed parses a decimal value with a fixed-width trailing
// unit suffix stripped (e.g. "1234.5kbits/s" with suffixLen=7, or
// "2.0x" with suffixLen=1). The literal "N/A" yields ok=false.
func parseSuffixed(value string, suffixLen int) (float64, bool) {
	if value == "N/A" {
		return 0, false
	}
	if len(value) <= suffixLen {
		return 0, false
	}
	trimmed := value[:len(value)-suffixLen]
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
