// SPDX-License-Identifier: MIT

package task

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	// defaultDiagLogMaxSize is the rotation threshold for a task's
	// persisted diagnostic log.
	defaultDiagLogMaxSize = 10 * 1024 * 1024
	// defaultDiagLogMaxFiles bounds how many rotated generations are kept.
	defaultDiagLogMaxFiles = 5
)

// diagnosticLog optionally persists a task's raw diagnostic stream to
// a size-rotated file on disk, independent of whether that stream's
// text is classified as an FFmpegRuntime error. It never influences
// the state machine.
type diagnosticLog struct {
	path     string
	maxSize  int64
	maxFiles int

	mu   sync.Mutex
	file *os.File
	size int64
}

// newDiagnosticLog opens (creating if needed) a rotating log file at
// dir/task-<id>.diag.log, where every character of id outside
// [A-Za-z0-9_-] is replaced by '_'. An empty dir returns nil, nil.
func newDiagnosticLog(dir, id string) (*diagnosticLog, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create diagnostic log directory: %w", err)
	}

	safe := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, id)

	d := &diagnosticLog{
		path:     filepath.Join(dir, fmt.Sprintf("task-%s.diag.log", safe)),
		maxSize:  defaultDiagLogMaxSize,
		maxFiles: defaultDiagLogMaxFiles,
	}
	if err := d.openFile(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *diagnosticLog) openFile() error {
	f, err := os.OpenFile(d.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open diagnostic log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat diagnostic log: %w", err)
	}
	d.file = f
	d.size = info.Size()
	return nil
}

// writeLine appends one diagnostic line, rotating first if the write
// would exceed maxSize.
func (d *diagnosticLog) writeLine(line string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	payload := []byte(line + "\n")
	if d.size+int64(len(payload)) > d.maxSize {
		_ = d.rotate()
	}
	n, err := d.file.Write(payload)
	if err == nil {
		d.size += int64(n)
	}
}

func (d *diagnosticLog) rotate() error {
	if d.file != nil {
		d.file.Close()
		d.file = nil
	}
	for i := d.maxFiles - 1; i >= 1; i-- {
		old := fmt.Sprintf("%s.%d", d.path, i)
		newer := fmt.Sprintf("%s.%d", d.path, i+1)
		if _, err := os.Stat(old); err == nil {
			_ = os.Rename(old, newer)
		}
	}
	_ = os.Rename(d.path, d.path+".1")
	return d.openFile()
}

// close releases the underlying file handle.
func (d *diagnosticLog) close() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file != nil {
		err := d.file.Close()
		d.file = nil
		return err
	}
	return nil
}
