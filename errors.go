package sched

import "errors"

// ErrTaskCancelled is the reason observed through the handle of a task
// that terminated Cancelled. A cancelled task carries no result.
var ErrTaskCancelled = errors.New("sched: task cancelled")
