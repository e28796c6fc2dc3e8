package model

// TaskAnalytics holds the rollup counters for one function within one
// invocation. Counters only grow, with one exception: finishing a task
// decrements the pending count. Callers must serialize concurrent updates
// to the same counters (the store does this); the counters themselves do
// no locking.
type TaskAnalytics struct {
	PendingTasks    uint64 `json:"pending_tasks"`
	SuccessfulTasks uint64 `json:"successful_tasks"`
	FailedTasks     uint64 `json:"failed_tasks"`
}

// Pending records one newly created task.
func (a *TaskAnalytics) Pending() {
	a.PendingTasks++
}

// Success records one successfully finished task. The pending count is
// decremented only when positive: state written by older schema versions
// never recorded a pending count, and must not underflow.
func (a *TaskAnalytics) Success() {
	a.SuccessfulTasks++
	if a.PendingTasks > 0 {
		a.PendingTasks--
	}
}

// Fail records one failed task, with the same underflow guard as Success.
func (a *TaskAnalytics) Fail() {
	a.FailedTasks++
	if a.PendingTasks > 0 {
		a.PendingTasks--
	}
}
