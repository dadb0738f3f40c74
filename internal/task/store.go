// SPDX-License-Identifier: MIT

package task

import (
	"log/slog"
	"sync"
)

// Store is the keyed task registry. A task key exists in the
// store iff its state is non-terminal.
type Store struct {
	logger      *slog.Logger
	diagLogDir  string

	mu    sync.Mutex
	tasks map[string]*Task
}

// StoreOption configures optional Store behavior.
type StoreOption func(*Store)

// WithDiagnosticLogDir enables, for every task the Store creates,
// persistence of the raw diagnostic stream to a size-rotated file
// under dir. Leaving this unset disables
// the feature entirely.
func WithDiagnosticLogDir(dir string) StoreOption {
	return func(s *Store) { s.diagLogDir = dir }
}

// NewStore builds an empty Store. A nil logger defaults to
// slog.Default() for every task it creates.
func NewStore(logger *slog.Logger, opts ...StoreOption) *Store {
	s := &Store{logger: logger, tasks: make(map[string]*Task)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start inserts a new task under id and drives it from Idle. Returns
// TaskAlreadyExists if id is already registered.
func (s *Store) Start(id string, args Arguments, ffmpegPath, ffprobePath string, emitter Emitter) error {
	s.mu.Lock()
	if _, exists := s.tasks[id]; exists {
		s.mu.Unlock()
		return errTaskAlreadyExists(id)
	}

	t := newTask(id, args, ffmpegPath, ffprobePath, emitter, func() *slog.Logger { return s.logger })
	t.store = s
	if s.diagLogDir != "" {
		if dl, err := newDiagnosticLog(s.diagLogDir, id); err == nil {
			t.diagLog = dl
		} else if s.logger != nil {
			s.logger.Warn("failed to open diagnostic log", "task_id", id, "error", err)
		}
	}
	s.tasks[id] = t
	s.mu.Unlock()

	// Dropping the map lock before driving the transition is mandatory:
	// a terminal transition (e.g. an immediate spawn failure) removes
	// the task from this same map, which would deadlock if we still
	// held s.mu.
	t.Start()
	return nil
}

// Pause looks up id, drops the map lock, and drives Pause. Returns
// TaskNotFound if id is not registered.
func (s *Store) Pause(id string) error { return s.dispatch(id, (*Task).Pause) }

// Resume looks up id, drops the map lock, and drives Resume. Returns
// TaskNotFound if id is not registered.
func (s *Store) Resume(id string) error { return s.dispatch(id, (*Task).Resume) }

// Stop looks up id, drops the map lock, and drives Stop. Returns
// TaskNotFound if id is not registered.
func (s *Store) Stop(id string) error { return s.dispatch(id, (*Task).Stop) }

func (s *Store) dispatch(id string, op func(*Task)) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	s.mu.Unlock()
	if !ok {
		return errTaskNotFound(id)
	}
	op(t)
	return nil
}

// remove deletes id from the registry. Called by a Task after it
// drives itself into a terminal state.
func (s *Store) remove(id string) {
	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()
}

// Len reports the number of live (non-terminal) tasks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Status is a point-in-time snapshot of one live task, for
// internal/health's StatusProvider.
type Status struct {
	ID     string
	State  string
	Sample *ResourceSample
}

// Statuses returns a snapshot of every live task's state and latest
// resource sample.
func (s *Store) Statuses() []Status {
	s.mu.Lock()
	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	statuses := make([]Status, 0, len(tasks))
	for _, t := range tasks {
		statuses = append(statuses, Status{ID: t.ID(), State: t.StateName(), Sample: t.Sample()})
	}
	return statuses
}

// IDs returns a snapshot of the currently live task ids.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	return ids
}
