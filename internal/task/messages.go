// SPDX-License-Identifier: MIT

package task

// Emitter publishes task messages to whatever transport the embedding
// application wires up (IPC channel, websocket, log sink...). The core
// never depends on a concrete transport.
type Emitter interface {
	Publish(topic string, payload any)
}

// Topic is the well-known event-channel topic every TaskMessage is
// published on.
const Topic = "task_message"

// MessageKind discriminates the TaskMessage union.
type MessageKind int

const (
	// MessageRunning carries an in-flight progress frame.
	MessageRunning MessageKind = iota
	// MessageFinished reports a task's clean completion.
	MessageFinished
	// MessageErrored reports a task's terminal failure.
	MessageErrored
)

// TaskMessage is the tagged-union event published to the UI. Only
// the fields relevant to Kind are populated.
type TaskMessage struct {
	Kind     MessageKind
	Running  *ProgressMessage
	Finished *FinishedMessage
	Errored  *ErroredMessage
}

// FinishedMessage is emitted exactly once per task, after the task has
// been removed from the store.
type FinishedMessage struct {
	ID string
}

// ErroredMessage is emitted exactly once per task, after removal from
// the store, carrying the human-readable failure reason.
type ErroredMessage struct {
	ID     string
	Reason string
}

func publishRunning(e Emitter, msg *ProgressMessage) {
	if e == nil {
		return
	}
	e.Publish(Topic, &TaskMessage{Kind: MessageRunning, Running: msg})
}

func publishFinished(e Emitter, id string) {
	if e == nil {
		return
	}
	e.Publish(Topic, &TaskMessage{Kind: MessageFinished, Finished: &FinishedMessage{ID: id}})
}

func publishErrored(e Emitter, id, reason string) {
	if e == nil {
		return
	}
	e.Publish(Topic, &TaskMessage{Kind: MessageErrored, Errored: &ErroredMessage{ID: id, Reason: reason}})
}
