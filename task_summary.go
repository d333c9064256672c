// task_summary.go defines the check_task tool types: lightweight status
// polling of the current task plus session-wide counts. No result content
// is included; use get_result for that.
package main

// CheckTaskArgs is the input for the check_task tool.
type CheckTaskArgs struct {
	// TaskID selects a task seen this session. Empty means the current one.
	TaskID   string `json:"task_id,omitempty"   jsonschema:"Task ID to check. Empty checks the most recently started task."`
	LogLines int    `json:"log_lines,omitempty" jsonschema:"How many recent log lines to include (default 10)"`
}

// CheckTaskOutput contains the selected task's status and aggregate counts.
type CheckTaskOutput struct {
	Summary TaskSummary `json:"summary"`
	Task    *TaskStatus `json:"task,omitempty"`
	Notices []string    `json:"notices,omitempty"` // recent lines not tied to a task, e.g. failed starts
}

// TaskSummary provides aggregate counts across all tasks seen this session.
type TaskSummary struct {
	Total     int `json:"total"`
	Running   int `json:"running"`
	Paused    int `json:"paused"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// TaskStatus is the per-task view in check_task.
type TaskStatus struct {
	ID             string   `json:"id"`
	Phase          string   `json:"phase"`           // controller phase: starting, polling, terminal
	State          string   `json:"state,omitempty"` // last server-reported state
	Error          string   `json:"error,omitempty"`
	HasResult      bool     `json:"has_result"`
	Log            []string `json:"log,omitempty"`
	ElapsedSeconds int      `json:"elapsed_seconds"` // since first seen, or total once terminal
}
