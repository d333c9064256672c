// control_task.go defines the start_task, pause_task, resume_task and
// cancel_task tool types.
package main

// StartTaskArgs is the input for the start_task tool.
type StartTaskArgs struct {
	Location            string `json:"location"                       jsonschema:"Farm location: city, village or coordinates"`
	FarmerEmail         string `json:"farmer_email"                   jsonschema:"Email address that receives the report"`
	FarmerPhone         string `json:"farmer_phone,omitempty"         jsonschema:"Optional mobile number"`
	DaysAhead           int    `json:"days_ahead,omitempty"           jsonschema:"Forecast horizon in days (1-90, default 30)"`
	UserQuery           string `json:"user_query,omitempty"           jsonschema:"Question to answer alongside the forecast"`
	ConfidenceThreshold int    `json:"confidence_threshold,omitempty" jsonschema:"Minimum verification confidence 0-100 (default 75)"`
	MaxIterations       int    `json:"max_iterations,omitempty"       jsonschema:"Refinement loop limit 1-5 (default 2)"`
}

// StartTaskOutput reports the id the backend assigned.
type StartTaskOutput struct {
	TaskID string `json:"task_id"`
}

// ControlTaskArgs is the input for pause_task, resume_task and cancel_task.
// Commands always target the current task; there is no id to pass.
type ControlTaskArgs struct{}

// ControlTaskOutput reports the state observed after the command's
// confirming status poll.
type ControlTaskOutput struct {
	TaskID string `json:"task_id,omitempty"` // empty when there was no task to control
	State  string `json:"state,omitempty"`
	Phase  string `json:"phase"`
}
