// SPDX-License-Identifier: MIT

package task

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"
)

// ignoredDiagnosticPrefixes lists diagnostic-stream first tokens that
// are informational encoder banners, not errors. The list is
// heuristic; broader noise such as an [svt-av1] banner may need the
// same treatment.
var ignoredDiagnosticPrefixes = []string{"x264", "x265"}

// pollInterval bounds how often a capture loop re-checks its
// cancellation token while waiting for more stream data. Captures run
// over *os.File pipes, which support read deadlines on every platform
// this module targets, so a short deadline doubles as the cooperative
// cancellation mechanism without a second, unkillable reader goroutine.
const pollInterval = 150 * time.Millisecond

// captureTokens is the per-Running-episode cancellation pair: a fresh
// pair is created on every Idle->Running and Pausing->Running
// transition.
type captureTokens struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newCaptureTokens() captureTokens {
	ctx, cancel := context.WithCancel(context.Background())
	return captureTokens{ctx: ctx, cancel: cancel}
}

// progressResult is what the progress capture goroutine reports back
// to the Watchdog.
type progressResult struct {
	finished bool
	err      error
}

// readLineCancelable reads one '\n'-delimited line from f, polling ctx
// for cancellation between short read-deadline windows. io.EOF is
// returned verbatim; a deadline timeout is retried transparently. A
// deadline can fire mid-line, so the prefix read so far is accumulated
// across retries rather than discarded.
func readLineCancelable(ctx context.Context, f *os.File, buf *bufio.Reader) (string, error) {
	var partial strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		_ = f.SetReadDeadline(time.Now().Add(pollInterval))
		chunk, err := buf.ReadString('\n')
		partial.WriteString(chunk)
		if err == nil {
			return strings.TrimRight(partial.String(), "\r\n"), nil
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			continue
		}
		if err == io.EOF {
			if partial.Len() > 0 {
				return strings.TrimRight(partial.String(), "\r\n"), nil
			}
			return "", io.EOF
		}
		return "", err
	}
}

// runProgressCapture reads progress lines until the token is
// cancelled, the stream reports progress=end, or an unrecoverable
// condition occurs. It never kills the subprocess.
func runProgressCapture(ctx context.Context, f *os.File, id string, pt ProgressType, emitter Emitter) progressResult {
	parser := NewParser(id, pt)
	buf := bufio.NewReaderSize(f, 64*1024)

	for {
		line, err := readLineCancelable(ctx, f, buf)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return progressResult{finished: false, err: nil}
			}
			if err == io.EOF {
				return progressResult{err: newError(KindUnexpectedTermination, "progress stream ended before progress=end")}
			}
			return progressResult{err: wrapError(KindInternal, "progress stream read failed", err)}
		}

		msg, finished := parser.Feed(line)
		if msg != nil && emitter != nil {
			publishRunning(emitter, msg)
		}
		if finished {
			return progressResult{finished: true, err: nil}
		}
	}
}

// runDiagnosticCapture reads whatever the diagnostic stream produces
// until cancellation or EOF, and classifies the captured text:
// non-empty text is an FFmpegRuntime error unless its first token
// matches an ignore prefix.
func runDiagnosticCapture(ctx context.Context, f *os.File, onLine func(string)) error {
	buf := bufio.NewReaderSize(f, 64*1024)

	var captured []string
	for {
		line, err := readLineCancelable(ctx, f, buf)
		if err != nil {
			break
		}
		captured = append(captured, line)
		if onLine != nil {
			onLine(line)
		}
	}

	text := strings.TrimSpace(strings.Join(captured, "\n"))
	if text == "" {
		return nil
	}

	fields := strings.Fields(text)
	if len(fields) > 0 {
		for _, prefix := range ignoredDiagnosticPrefixes {
			if strings.HasPrefix(fields[0], prefix) {
				return nil
			}
		}
	}

	return newError(KindFFmpegRuntime, text)
}
