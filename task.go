// task.go defines the client-side view of a server-executed forecast task.
// The backend owns the authoritative state; the controller only observes it.
package main

import (
	"strings"
	"time"
)

// TaskState is the lifecycle state reported by the backend. The wire value
// is compared case-insensitively; unknown values are kept verbatim so that
// new intermediate states pass through untouched.
type TaskState string

const (
	StateRunning   TaskState = "Running"
	StatePaused    TaskState = "Paused"
	StateCompleted TaskState = "Completed"
	StateError     TaskState = "Error"
	StateCancelled TaskState = "Cancelled"
)

// ParseTaskState maps a wire value onto a known state, ignoring case.
// Unrecognized values are returned unchanged.
func ParseTaskState(s string) TaskState {
	trimmed := strings.TrimSpace(s)
	for _, known := range []TaskState{StateRunning, StatePaused, StateCompleted, StateError, StateCancelled} {
		if strings.EqualFold(trimmed, string(known)) {
			return known
		}
	}
	return TaskState(trimmed)
}

// IsTerminal reports whether no further polling should happen.
func (s TaskState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateError, StateCancelled:
		return true
	}
	return false
}

// Task is one server-side job as last observed by the client.
//
// Lifecycle (server-reported): Running <-> Paused -> Completed | Error | Cancelled
type Task struct {
	ID     string
	State  TaskState
	Paused bool
	Result map[string]any // raw payload, only when State == Completed
	Error  string         // only when State == Error
}

// Phase is the controller's own state machine position, distinct from the
// server-reported TaskState.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseStarting Phase = "starting"
	PhasePolling  Phase = "polling"
	PhaseTerminal Phase = "terminal"
)

// Update is delivered to observers on every transition and on every poll or
// control attempt, successful or not.
type Update struct {
	TaskID  string
	Phase   Phase
	State   TaskState
	LogLine string
	Err     error
	At      time.Time
}
