// SPDX-License-Identifier: MIT

package task

import (
	"os"
	"os/exec"
	"strings"
	"sync"
)

// subprocess wraps the spawned ffmpeg process together with the pipe
// ends the core keeps for itself: the write end of stdin (for
// Windows control bytes) and the read ends of stdout/stderr (for the
// Capture Pair). The child process holds the other ends.
//
// The watchdog owns these pipe ends for the lifetime of a Running
// episode. They stay open across pause/resume so control bytes can
// still reach stdin on Windows afterwards; nothing is closed until
// the task leaves Running/Pausing.
type subprocess struct {
	cmd        *exec.Cmd
	stdinWrite *os.File
	stdoutRead *os.File
	stderrRead *os.File

	waitOnce sync.Once
	waitErr  error
}

// spawnSubprocess starts program with args, wiring up captured stdin/
// stdout/stderr pipes. On failure it classifies the spawn error
// (not-found vs. other) and closes any pipe ends it had opened.
func spawnSubprocess(program string, args []string, notFoundKind, otherKind Kind) (*subprocess, *Error) {
	stdinRead, stdinWrite, err := os.Pipe()
	if err != nil {
		return nil, wrapError(KindInternal, "failed to create stdin pipe", err)
	}
	stdoutRead, stdoutWrite, err := os.Pipe()
	if err != nil {
		stdinRead.Close()
		stdinWrite.Close()
		return nil, wrapError(KindInternal, "failed to create stdout pipe", err)
	}
	stderrRead, stderrWrite, err := os.Pipe()
	if err != nil {
		stdinRead.Close()
		stdinWrite.Close()
		stdoutRead.Close()
		stdoutWrite.Close()
		return nil, wrapError(KindInternal, "failed to create stderr pipe", err)
	}

	cmd := exec.Command(program, args...)
	cmd.Stdin = stdinRead
	cmd.Stdout = stdoutWrite
	cmd.Stderr = stderrWrite
	cmd.SysProcAttr = sysProcAttrForSpawn()

	if err := cmd.Start(); err != nil {
		stdinRead.Close()
		stdinWrite.Close()
		stdoutRead.Close()
		stdoutWrite.Close()
		stderrRead.Close()
		stderrWrite.Close()

		if isNotFoundError(err) {
			return nil, wrapError(notFoundKind, program+" not found", err)
		}
		return nil, wrapError(otherKind, "failed to start "+program, err)
	}

	// The child inherited its ends of the pipes; the parent's copies of
	// the child-facing ends are no longer needed.
	stdinRead.Close()
	stdoutWrite.Close()
	stderrWrite.Close()

	return &subprocess{
		cmd:        cmd,
		stdinWrite: stdinWrite,
		stdoutRead: stdoutRead,
		stderrRead: stderrRead,
	}, nil
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if pe, ok := err.(*os.PathError); ok {
		return os.IsNotExist(pe.Err) || strings.Contains(pe.Err.Error(), "not found") || strings.Contains(pe.Err.Error(), "no such file")
	}
	return strings.Contains(err.Error(), "no such file") || strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "executable file not found")
}

// close releases the parent-side pipe ends. Safe to call once after
// the captures and the watchdog have both finished with them.
func (s *subprocess) close() {
	if s == nil {
		return
	}
	if s.stdinWrite != nil {
		s.stdinWrite.Close()
	}
	if s.stdoutRead != nil {
		s.stdoutRead.Close()
	}
	if s.stderrRead != nil {
		s.stderrRead.Close()
	}
}

// wait reaps the subprocess exactly once; every caller past the first
// blocks until the reap completes and observes the same result.
// exec.Cmd.Wait must not be called twice, and both the watchdog's exit
// race and kill need to wait.
func (s *subprocess) wait() error {
	s.waitOnce.Do(func() { s.waitErr = s.cmd.Wait() })
	return s.waitErr
}

// kill terminates the subprocess and waits for it to exit. Killing an
// already-exited process must not be treated as an error.
func (s *subprocess) kill() error {
	if s == nil || s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	if err := s.cmd.Process.Kill(); err != nil && !isBenignKillError(err) {
		return wrapError(KindInternal, "failed to kill subprocess", err)
	}
	_ = s.wait()
	return nil
}

func isBenignKillError(err error) bool {
	return strings.Contains(err.Error(), "process already finished") ||
		strings.Contains(err.Error(), "no such process")
}
