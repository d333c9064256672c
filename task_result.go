// task_result.go defines the get_result and run_forecast tool types: the
// normalized payload of a completed task or of a synchronous forecast.
package main

// GetResultArgs is the input for the get_result tool.
type GetResultArgs struct {
	TaskID string `json:"task_id,omitempty" jsonschema:"Task ID whose result to return. Empty means the most recently started task."`
}

// GetResultOutput carries the canonical result of one completed task.
type GetResultOutput struct {
	TaskID string          `json:"task_id"`
	Result CanonicalResult `json:"result"`
}

// RunForecastArgs is the input for the run_forecast tool.
type RunForecastArgs struct {
	Location    string `json:"location"              jsonschema:"Farm location: city, village or coordinates"`
	FarmerEmail string `json:"farmer_email"          jsonschema:"Email address that receives the report"`
	FarmerPhone string `json:"farmer_phone,omitempty" jsonschema:"Optional mobile number"`
	DaysAhead   int    `json:"days_ahead,omitempty"  jsonschema:"Forecast horizon in days (1-90, default 30)"`
	UserQuery   string `json:"user_query,omitempty"  jsonschema:"Question to answer alongside the forecast"`
}

// RunForecastOutput is the normalized synchronous forecast.
type RunForecastOutput struct {
	Result CanonicalResult `json:"result"`
}
