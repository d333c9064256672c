// errors.go defines the controller's error taxonomy. Validation and start
// failures are returned to the caller of Start; transient, task and
// cancellation outcomes travel through the observer channel.
package main

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskCancelled is surfaced when the server reports the task cancelled.
	ErrTaskCancelled = errors.New("task cancelled")
	// ErrNoActiveTask is returned by operations that need a current task.
	ErrNoActiveTask = errors.New("no active task")
	// ErrNoResult is returned when a completed task carried no result payload.
	ErrNoResult = errors.New("task has no result")
	// ErrSuperseded ends a wait on a task replaced by a newer Start.
	ErrSuperseded = errors.New("task superseded by a newer start")
)

// ValidationError rejects a start or forecast request before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StartFailedError means the start request was rejected or malformed. The
// controller is back in the idle phase when this is returned.
type StartFailedError struct {
	Err error
}

func (e *StartFailedError) Error() string {
	return fmt.Sprintf("task start failed: %v", e.Err)
}

func (e *StartFailedError) Unwrap() error { return e.Err }

// TransientPollError wraps a failed status or control request. It never
// stops polling unless a failure budget is configured.
type TransientPollError struct {
	TaskID string
	Op     string
	Err    error
}

func (e *TransientPollError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.TaskID, e.Err)
}

func (e *TransientPollError) Unwrap() error { return e.Err }

// TaskError carries the server's message for a task that ended in error.
type TaskError struct {
	TaskID  string
	Message string
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed: %s", e.TaskID, e.Message)
}

// APIError is a non-success reply from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

func isTransient(err error) bool {
	var t *TransientPollError
	return errors.As(err, &t)
}
