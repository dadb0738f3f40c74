// SPDX-License-Identifier: MIT

//go:build !windows

package task

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// sysProcAttrForSpawn returns nil on Unix: no special process creation
// flags are needed.
func sysProcAttrForSpawn() *syscall.SysProcAttr {
	return nil
}

// pauseProcess delivers SIGSTOP to the subprocess PID.
func pauseProcess(s *subprocess) error {
	if s == nil || s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	if err := unix.Kill(s.cmd.Process.Pid, unix.SIGSTOP); err != nil {
		return wrapError(KindInternal, "failed to suspend subprocess", err)
	}
	return nil
}

// resumeProcess delivers SIGCONT to the subprocess PID.
func resumeProcess(s *subprocess) error {
	if s == nil || s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	if err := unix.Kill(s.cmd.Process.Pid, unix.SIGCONT); err != nil {
		return wrapError(KindInternal, "failed to resume subprocess", err)
	}
	return nil
}
