// SPDX-License-Identifier: MIT

package task

import (
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/tomtom215/transcodectl/internal/util"
)

// Task is the external handle wrapping a task's state plus the
// immutable data shared across every transition. Transition
// methods take the state lock, drive the current node through the
// requested transition, and replace it with the result.
type Task struct {
	id          string
	ffmpegPath  string
	ffprobePath string
	args        Arguments
	emitter     Emitter
	loggerFn    func() *slog.Logger
	probe       ProbeFunc

	mu sync.Mutex
	st state

	store *Store

	diagLog   *diagnosticLog
	samplerMu sync.Mutex
	sampler   *resourceSampler
}

// newTask constructs an Idle task. loggerFn is resolved lazily so a
// Store-wide *slog.Logger set after construction is still honored.
func newTask(id string, args Arguments, ffmpegPath, ffprobePath string, emitter Emitter, loggerFn func() *slog.Logger) *Task {
	return &Task{
		id:          id,
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		args:        args,
		emitter:     emitter,
		loggerFn:    loggerFn,
		st:          idleState{},
	}
}

// log returns the task's logger, defaulting to slog.Default().
func (t *Task) log() *slog.Logger {
	if t.loggerFn != nil {
		if l := t.loggerFn(); l != nil {
			return l
		}
	}
	return slog.Default()
}

// ID returns the task's identity.
func (t *Task) ID() string { return t.id }

// StateName reports the task's current lifecycle state name (idle,
// running, pausing, stopped, finished, errored), for status reporting
// (internal/health).
func (t *Task) StateName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.st.name()
}

// drive runs op against the current state node under the state lock
// and installs the successor. If the successor is terminal, the task
// removes itself from the store before emitting the terminal event.
func (t *Task) drive(op func(state) state) {
	t.mu.Lock()
	next := op(t.st)
	t.st = next
	t.mu.Unlock()

	switch s := next.(type) {
	case stoppedState:
		t.removeFromStore()
		_ = t.diagLog.close()
	case finishedState:
		t.removeFromStore()
		_ = t.diagLog.close()
		publishFinished(t.emitter, t.id)
	case erroredState:
		t.removeFromStore()
		_ = t.diagLog.close()
		publishErrored(t.emitter, t.id, s.reason)
	}
}

func (t *Task) removeFromStore() {
	if t.store != nil {
		t.store.remove(t.id)
	}
}

// Start drives Idle->Running (or any other state's Start transition,
// which is a no-op except on Idle).
func (t *Task) Start() { t.drive(func(s state) state { return s.start(t) }) }

// Pause drives Running->Pausing.
func (t *Task) Pause() { t.drive(func(s state) state { return s.pause(t) }) }

// Resume drives Pausing->Running.
func (t *Task) Resume() { t.drive(func(s state) state { return s.resume(t) }) }

// Stop drives Running/Pausing->Stopped (or Idle->Stopped).
func (t *Task) Stop() { t.drive(func(s state) state { return s.stop(t) }) }

// Finish is called by the watchdog when the progress stream reports a
// clean end.
func (t *Task) Finish() { t.drive(func(s state) state { return s.finish(t) }) }

// fail is called by the watchdog to drive the task into
// Errored{reason}. Transitions that fail return an erroredState
// directly instead.
func (t *Task) fail(reason string) {
	t.drive(func(s state) state { return s.errorOut(t, reason) })
}

// startSampling launches the best-effort resource sampler for the
// Running episode's subprocess PID. It is pure observability: nothing
// in the state machine consults it.
func (t *Task) startSampling(sp *subprocess, tokens captureTokens) {
	if sp == nil || sp.cmd == nil || sp.cmd.Process == nil {
		return
	}
	t.samplerMu.Lock()
	if t.sampler == nil {
		t.sampler = newResourceSampler()
	}
	sampler := t.sampler
	t.samplerMu.Unlock()

	pid := sp.cmd.Process.Pid
	util.SafeGo("resource-sampler", t.log(), func() {
		sampler.run(tokens.ctx, pid, sampleInterval)
	})
}

// Sample returns the most recent resource snapshot collected for this
// task, or nil if none is available yet (e.g. not Running, or the
// first sample interval hasn't elapsed).
func (t *Task) Sample() *ResourceSample {
	t.samplerMu.Lock()
	sampler := t.sampler
	t.samplerMu.Unlock()
	if sampler == nil {
		return nil
	}
	return sampler.Latest()
}

// defaultProbe shells out to ffprobe:
// `ffprobe -hide_banner -loglevel error -show_entries format=duration -of csv=p=0 <path>`.
func (t *Task) defaultProbe(path string) (float64, bool) {
	out, err := exec.Command(t.ffprobePath, //nolint:gosec // path/binary come from the control API, not user-typed shell text
		"-hide_banner", "-loglevel", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0", path).Output()
	if err != nil {
		return 0, false
	}
	s := strings.TrimSpace(string(out))
	if s == "" || s == "N/A" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
