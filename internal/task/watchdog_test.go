// SPDX-License-Identifier: MIT

package task

import "testing"

// runningTaskForWatchdogTest builds a Task sitting in Running with a
// subprocess-free state: tokens are real (so cancel is safe to call)
// and joined is pre-closed (so the state's `<-joined` wait inside
// finish/errorOut never blocks). This isolates applyWatchdogOutcome's
// dispatch logic from subprocess lifecycle concerns already covered by
// store_test.go's end-to-end scenarios.
func runningTaskForWatchdogTest() *Task {
	tk := newTestTask()
	joined := make(chan struct{})
	close(joined)
	tk.st = runningState{sp: nil, tokens: newCaptureTokens(), pt: ProgressType{}, joined: joined}
	return tk
}

func TestApplyWatchdogOutcomeFinishesOnCleanProgressEnd(t *testing.T) {
	tk := runningTaskForWatchdogTest()
	tk.applyWatchdogOutcome(captureOutcome{progress: progressResult{finished: true, err: nil}})

	if tk.st.name() != "finished" {
		t.Errorf("state = %q, want finished", tk.st.name())
	}
}

func TestApplyWatchdogOutcomeErrorsOnProgressError(t *testing.T) {
	tk := runningTaskForWatchdogTest()
	tk.applyWatchdogOutcome(captureOutcome{progress: progressResult{err: newError(KindFFmpegRuntime, "bad things")}})

	es, ok := tk.st.(erroredState)
	if !ok {
		t.Fatalf("state = %T, want erroredState", tk.st)
	}
	if es.reason == "" {
		t.Error("expected a non-empty error reason")
	}
}

func TestApplyWatchdogOutcomeErrorsOnDiagnosticError(t *testing.T) {
	tk := runningTaskForWatchdogTest()
	tk.applyWatchdogOutcome(captureOutcome{diagErr: newError(KindFFmpegRuntime, "stderr noise")})

	if tk.st.name() != "errored" {
		t.Errorf("state = %q, want errored", tk.st.name())
	}
}

func TestApplyWatchdogOutcomeIsNoOpForCancelledCapture(t *testing.T) {
	tk := runningTaskForWatchdogTest()
	beforeName := tk.st.name()

	// This is exactly the shape produced when an external Pause/Stop
	// transition cancels the capture tokens: the transition, not the
	// watchdog, owns the next state. runningState holds a
	// context.CancelFunc, which is not comparable, so this asserts on
	// the state's name rather than on interface equality.
	tk.applyWatchdogOutcome(captureOutcome{progress: progressResult{finished: false, err: nil}, diagErr: nil})

	if tk.st.name() != beforeName {
		t.Errorf("state changed to %q, want unchanged %q", tk.st.name(), beforeName)
	}
}
