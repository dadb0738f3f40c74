// SPDX-License-Identifier: MIT

//go:build windows

package task

import "syscall"

// createNoWindow mirrors the Win32 CREATE_NO_WINDOW process creation
// flag so ffmpeg never flashes a console window on the desktop.
const createNoWindow = 0x08000000

// sysProcAttrForSpawn applies the "no console window" creation flag.
func sysProcAttrForSpawn() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: createNoWindow}
}

// pauseProcess writes the CR control byte (0x0D) to the subprocess's
// input channel.
func pauseProcess(s *subprocess) error {
	return writeControlByte(s, 0x0D)
}

// resumeProcess writes the LF control byte (0x0A) to the subprocess's
// input channel.
func resumeProcess(s *subprocess) error {
	return writeControlByte(s, 0x0A)
}

func writeControlByte(s *subprocess, b byte) error {
	if s == nil || s.stdinWrite == nil {
		return nil
	}
	if _, err := s.stdinWrite.Write([]byte{b}); err != nil {
		return wrapError(KindInternal, "failed to write control byte", err)
	}
	return nil
}
