// task_store.go implements TaskBoard, the thread-safe record of what the
// controller has reported. Both host surfaces (CLI and MCP tools) read task
// state from here instead of reaching into the controller.
//
// State is ephemeral: it lives only as long as the process.
package main

import (
	"fmt"
	"sync"
	"time"
)

// defaultLogLimit bounds the per-task log kept in memory.
const defaultLogLimit = 200

type boardEntry struct {
	ID          string
	Phase       Phase
	State       TaskState
	Error       string
	Log         []string
	Result      *CanonicalResult
	StartedAt   time.Time
	CompletedAt time.Time
}

// TaskBoard holds every task seen this session, keyed by id, plus an
// insertion-order slice for stable iteration. It implements Observer.
type TaskBoard struct {
	mu       sync.Mutex
	tasks    map[string]*boardEntry
	order    []string
	notices  []string // updates not tied to a task id (validation, failed starts)
	logLimit int
}

// NewTaskBoard creates an empty board.
func NewTaskBoard() *TaskBoard {
	return &TaskBoard{
		tasks:    make(map[string]*boardEntry),
		logLimit: defaultLogLimit,
	}
}

// OnTransition records u. The first update carrying a new task id creates
// its entry.
func (b *TaskBoard) OnTransition(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()

	line := formatLogLine(u)
	if u.TaskID == "" {
		b.notices = appendBounded(b.notices, line, b.logLimit)
		return
	}
	e, ok := b.tasks[u.TaskID]
	if !ok {
		e = &boardEntry{ID: u.TaskID, StartedAt: u.At}
		b.tasks[u.TaskID] = e
		b.order = append(b.order, u.TaskID)
	}
	e.Phase = u.Phase
	if u.State != "" {
		e.State = u.State
	}
	if u.Phase == PhaseTerminal && e.CompletedAt.IsZero() {
		e.CompletedAt = u.At
		if u.Err != nil {
			e.Error = u.Err.Error()
		}
	}
	e.Log = appendBounded(e.Log, line, b.logLimit)
}

// OnResult stores the canonical result of a completed task.
func (b *TaskBoard) OnResult(taskID string, result CanonicalResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.tasks[taskID]; ok {
		e.Result = &result
	}
}

// Latest returns the most recently seen task id, or "".
func (b *TaskBoard) Latest() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.order) == 0 {
		return ""
	}
	return b.order[len(b.order)-1]
}

// Status returns a copy of one task's state with the last logLines lines
// of its log. The lock is held for the whole copy.
func (b *TaskBoard) Status(id string, logLines int) (TaskStatus, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.tasks[id]
	if !ok {
		return TaskStatus{}, false
	}
	return TaskStatus{
		ID:             e.ID,
		Phase:          string(e.Phase),
		State:          string(e.State),
		Error:          e.Error,
		HasResult:      e.Result != nil,
		Log:            tail(e.Log, logLines),
		ElapsedSeconds: entryElapsedSeconds(e, time.Now()),
	}, true
}

// Summary returns aggregate counts across all tasks seen this session.
func (b *TaskBoard) Summary() TaskSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	var s TaskSummary
	for _, id := range b.order {
		s.Total++
		switch b.tasks[id].State {
		case StateRunning:
			s.Running++
		case StatePaused:
			s.Paused++
		case StateCompleted:
			s.Completed++
		case StateError:
			s.Failed++
		case StateCancelled:
			s.Cancelled++
		}
	}
	return s
}

// Result returns the canonical result for id. A known task without a result
// yields ErrNoResult.
func (b *TaskBoard) Result(id string) (CanonicalResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.tasks[id]
	if !ok {
		return CanonicalResult{}, fmt.Errorf("task %s: %w", id, ErrNoActiveTask)
	}
	if e.Result == nil {
		return CanonicalResult{}, fmt.Errorf("task %s: %w", id, ErrNoResult)
	}
	return *e.Result, nil
}

// Log returns the last n log lines of task id, or nil for an unknown id.
func (b *TaskBoard) Log(id string, n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.tasks[id]
	if !ok {
		return nil
	}
	return tail(e.Log, n)
}

// Notices returns the last n lines not tied to any task.
func (b *TaskBoard) Notices(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return tail(b.notices, n)
}

// entryElapsedSeconds is wall-clock time since the task was first seen, or
// its full duration once terminal.
func entryElapsedSeconds(e *boardEntry, now time.Time) int {
	if e.StartedAt.IsZero() {
		return 0
	}
	if !e.CompletedAt.IsZero() {
		return int(e.CompletedAt.Sub(e.StartedAt).Seconds())
	}
	return int(now.Sub(e.StartedAt).Seconds())
}

func formatLogLine(u Update) string {
	line := fmt.Sprintf("[%s] %s", u.At.Format("15:04:05"), u.LogLine)
	if u.Err != nil {
		line += ": " + u.Err.Error()
	}
	return line
}

func appendBounded(lines []string, line string, limit int) []string {
	lines = append(lines, line)
	if limit > 0 && len(lines) > limit {
		lines = append([]string(nil), lines[len(lines)-limit:]...)
	}
	return lines
}

// tail copies the last n elements; n <= 0 means all.
func tail(lines []string, n int) []string {
	if n <= 0 || n > len(lines) {
		n = len(lines)
	}
	out := make([]string, n)
	copy(out, lines[len(lines)-n:])
	return out
}
