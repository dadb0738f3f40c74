// SPDX-License-Identifier: MIT

package task

import (
	"os"
	"path/filepath"
	"time"
)

// sampleInterval is how often the best-effort resource sampler
// refreshes its /proc snapshot for a Running subprocess.
const sampleInterval = 2 * time.Second

// state is a polymorphic task-lifecycle node. Each
// transition is a total function returning the successor node;
// illegal transitions log a warning and return the receiver
// unchanged. Terminal nodes absorb every transition.
type state interface {
	name() string
	start(t *Task) state
	pause(t *Task) state
	resume(t *Task) state
	stop(t *Task) state
	finish(t *Task) state
	errorOut(t *Task, reason string) state
}

func illegal(t *Task, self state, op string) state {
	t.log().Warn("ignoring illegal task transition", "task_id", t.id, "state", self.name(), "op", op)
	return self
}

// --- Idle -------------------------------------------------------------

type idleState struct{}

func (idleState) name() string { return "idle" }

// start probes inputs, resolves the progress basis, creates output
// directories, spawns ffmpeg, and launches the watchdog. Any failure
// returns Errored{reason}.
func (s idleState) start(t *Task) state {
	probe := t.probe
	if probe == nil {
		probe = t.defaultProbe
	}
	pt := Resolve(t.args, probe)

	for _, out := range t.args.Outputs {
		if out.Path == "" {
			continue
		}
		dir := filepath.Dir(out.Path)
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return erroredState{reason: wrapError(KindDirectoryNotFound, "failed to create output directory "+dir, err).Error()}
		}
	}

	sp, spawnErr := spawnSubprocess(t.ffmpegPath, t.args.Serialize(), KindFFmpegNotFound, KindFFmpegUnavailable)
	if spawnErr != nil {
		return erroredState{reason: spawnErr.Error()}
	}

	tokens := newCaptureTokens()
	joined := make(chan struct{})
	go runWatchdog(t, sp, tokens, pt, joined)
	t.startSampling(sp, tokens)

	return runningState{sp: sp, tokens: tokens, pt: pt, joined: joined}
}

func (s idleState) pause(t *Task) state  { return illegal(t, s, "pause") }
func (s idleState) resume(t *Task) state { return illegal(t, s, "resume") }
func (s idleState) stop(t *Task) state   { return stoppedState{} }
func (s idleState) finish(t *Task) state { return illegal(t, s, "finish") }
func (s idleState) errorOut(t *Task, reason string) state {
	return erroredState{reason: reason}
}

// --- Running ------------------------------------------------------------

type runningState struct {
	sp     *subprocess
	tokens captureTokens
	pt     ProgressType
	joined chan struct{}
}

func (runningState) name() string { return "running" }

func (s runningState) start(t *Task) state { return illegal(t, s, "start") }

// pause cancels the capture tokens, awaits the watchdog, delivers the
// platform pause signal, and returns Pausing.
func (s runningState) pause(t *Task) state {
	s.tokens.cancel()
	<-s.joined

	if err := pauseProcess(s.sp); err != nil {
		_ = s.sp.kill()
		s.sp.close()
		return erroredState{reason: err.Error()}
	}

	return pausingState{sp: s.sp, pt: s.pt}
}

func (s runningState) resume(t *Task) state { return illegal(t, s, "resume") }

// stop cancels the tokens, awaits the watchdog, kills the subprocess,
// and returns Stopped.
func (s runningState) stop(t *Task) state {
	s.tokens.cancel()
	<-s.joined
	_ = s.sp.kill()
	s.sp.close()
	return stoppedState{}
}

// finish cancels the tokens (a no-op; they are already effectively
// drained since the watchdog itself called this), awaits the
// watchdog, and returns Finished.
func (s runningState) finish(t *Task) state {
	s.tokens.cancel()
	<-s.joined
	s.sp.close()
	return finishedState{}
}

// errorOut is equivalent to stop, but returns Errored{reason}.
func (s runningState) errorOut(t *Task, reason string) state {
	s.tokens.cancel()
	<-s.joined
	_ = s.sp.kill()
	s.sp.close()
	return erroredState{reason: reason}
}

// --- Pausing ------------------------------------------------------------

type pausingState struct {
	sp *subprocess
	pt ProgressType
}

func (pausingState) name() string { return "pausing" }

func (s pausingState) start(t *Task) state { return illegal(t, s, "start") }
func (s pausingState) pause(t *Task) state { return illegal(t, s, "pause") }

// resume delivers the platform resume signal, builds a fresh
// cancellation pair, launches a new watchdog, and returns Running.
func (s pausingState) resume(t *Task) state {
	if err := resumeProcess(s.sp); err != nil {
		_ = s.sp.kill()
		s.sp.close()
		return erroredState{reason: err.Error()}
	}

	tokens := newCaptureTokens()
	joined := make(chan struct{})
	go runWatchdog(t, s.sp, tokens, s.pt, joined)
	t.startSampling(s.sp, tokens)

	return runningState{sp: s.sp, tokens: tokens, pt: s.pt, joined: joined}
}

// stop kills the subprocess and returns Stopped.
func (s pausingState) stop(t *Task) state {
	_ = s.sp.kill()
	s.sp.close()
	return stoppedState{}
}

func (s pausingState) finish(t *Task) state { return illegal(t, s, "finish") }

// errorOut follows the stop path then returns Errored{reason}.
func (s pausingState) errorOut(t *Task, reason string) state {
	_ = s.sp.kill()
	s.sp.close()
	return erroredState{reason: reason}
}

// --- Terminal states ------------------------------------------------------

type stoppedState struct{}

func (stoppedState) name() string                            { return "stopped" }
func (s stoppedState) start(t *Task) state                   { return s }
func (s stoppedState) pause(t *Task) state                   { return s }
func (s stoppedState) resume(t *Task) state                  { return s }
func (s stoppedState) stop(t *Task) state                    { return s }
func (s stoppedState) finish(t *Task) state                  { return s }
func (s stoppedState) errorOut(t *Task, reason string) state { return s }

type finishedState struct{}

func (finishedState) name() string                            { return "finished" }
func (s finishedState) start(t *Task) state                   { return s }
func (s finishedState) pause(t *Task) state                   { return s }
func (s finishedState) resume(t *Task) state                  { return s }
func (s finishedState) stop(t *Task) state                    { return s }
func (s finishedState) finish(t *Task) state                  { return s }
func (s finishedState) errorOut(t *Task, reason string) state { return s }

type erroredState struct {
	reason string
}

func (erroredState) name() string           { return "errored" }
func (s erroredState) start(t *Task) state  { return s }
func (s erroredState) pause(t *Task) state  { return s }
func (s erroredState) resume(t *Task) state { return s }
func (s erroredState) stop(t *Task) state   { return s }
func (s erroredState) finish(t *Task) state { return s }

// errorOut on an already-Errored task ignores the new reason.
func (s erroredState) errorOut(t *Task, reason string) state { return s }
