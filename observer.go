// observer.go defines how host surfaces subscribe to the controller.
package main

// Observer receives controller output. Calls are serialized by the
// controller. Implementations must not call Start, Pause, Resume or Cancel
// synchronously from inside a callback.
type Observer interface {
	// OnTransition fires on every state change and every poll or control
	// attempt, including failed ones.
	OnTransition(u Update)
	// OnResult fires at most once per task, after the poll timer has been
	// stopped, with the normalized payload of a completed task.
	OnResult(taskID string, result CanonicalResult)
}

// Observers fans every callback out to each member in order.
type Observers []Observer

func (o Observers) OnTransition(u Update) {
	for _, obs := range o {
		obs.OnTransition(u)
	}
}

func (o Observers) OnResult(taskID string, result CanonicalResult) {
	for _, obs := range o {
		obs.OnResult(taskID, result)
	}
}

// LogObserver writes the update stream to a structured logger. Transient
// failures are logged at warn so a single one does not look alarming.
type LogObserver struct {
	Log Logger
}

func (l LogObserver) OnTransition(u Update) {
	kv := []any{"task_id", u.TaskID, "phase", u.Phase, "state", u.State}
	switch {
	case u.Err == nil:
		l.Log.Info(u.LogLine, kv...)
	case isTransient(u.Err):
		l.Log.Warn(u.LogLine, append(kv, "error", u.Err)...)
	default:
		l.Log.Error(u.LogLine, append(kv, "error", u.Err)...)
	}
}

func (l LogObserver) OnResult(taskID string, result CanonicalResult) {
	l.Log.Info("result ready",
		"task_id", taskID,
		"location", result.Location,
		"critical_actions", len(result.ActionPlan.P1),
		"risks", len(result.ForecastResults.RiskCategories))
}
