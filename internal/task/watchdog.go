// SPDX-License-Identifier: MIT

package task

import "time"

// postExitDrain is the fixed wait after a subprocess exit to let the
// diagnostic capture drain remaining buffered output.
const postExitDrain = 50 * time.Millisecond

// captureOutcome is the joined result of both capturers in a Running
// episode.
type captureOutcome struct {
	progress progressResult
	diagErr  error
}

// runWatchdog co-supervises sp with the Capture Pair for one Running
// episode. joined is closed before the disposition transition
// runs: Finish/fail re-enter the state machine, and the Running node's
// transitions block on the watchdog join.
func runWatchdog(t *Task, sp *subprocess, tokens captureTokens, pt ProgressType, joined chan struct{}) {
	progressCh := make(chan progressResult, 1)
	diagCh := make(chan error, 1)
	go func() { progressCh <- runProgressCapture(tokens.ctx, sp.stdoutRead, t.id, pt, t.emitter) }()
	go func() {
		var onLine func(string)
		if t.diagLog != nil {
			onLine = t.diagLog.writeLine
		}
		diagCh <- runDiagnosticCapture(tokens.ctx, sp.stderrRead, onLine)
	}()

	capturesDone := make(chan captureOutcome, 1)
	go func() {
		p := <-progressCh
		d := <-diagCh
		capturesDone <- captureOutcome{progress: p, diagErr: d}
	}()

	exitCh := make(chan error, 1)
	go func() { exitCh <- sp.wait() }()

	var disposition func()
	select {
	case outcome := <-capturesDone:
		disposition = func() { t.applyWatchdogOutcome(outcome) }

	case exitErr := <-exitCh:
		time.Sleep(postExitDrain)
		outcome := <-capturesDone

		if exitErr != nil {
			disposition = func() {
				t.fail(newError(KindUnexpectedTermination, "subprocess exited with failure").Error())
			}
		} else {
			disposition = func() { t.applyWatchdogOutcome(outcome) }
		}
	}

	close(joined)
	disposition()
}

// applyWatchdogOutcome handles the captures-completed-first side of
// the race: finish on a clean progress=end, error on either capturer
// failing, or do nothing when both are nil with finished=false (an
// external Pause/Stop already holds the state lock and owns the next
// transition in that case).
func (t *Task) applyWatchdogOutcome(o captureOutcome) {
	switch {
	case o.progress.err == nil && o.progress.finished:
		t.Finish()
	case o.progress.err != nil:
		t.fail(o.progress.err.Error())
	case o.diagErr != nil:
		t.fail(o.diagErr.Error())
	default:
		// Pause/Stop in progress; the transition that cancelled the
		// tokens owns the next state.
	}
}
