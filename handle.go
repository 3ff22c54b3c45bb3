package sched

// A Handle is a caller-facing reference to a submitted [Task] or batch.
//
// The handle's deferred settles with the task's terminal outcome: the
// completion value, the failure reason, or [ErrTaskCancelled]. Other
// tasks await it like any deferred; external callers inspect it after
// the scheduler drains.
type Handle struct {
	t *Task
}

// ID returns the unique id of the underlying task.
func (h *Handle) ID() string {
	return h.t.id
}

// State returns the lifecycle state of the underlying task.
//
// Without proper synchronization, one should only call this method in
// an [Operation] function, or while the scheduler is known to be idle.
func (h *Handle) State() TaskState {
	return h.t.state
}

// Deferred returns the deferred that settles with the task's terminal
// outcome.
func (h *Handle) Deferred() *Deferred {
	return h.t.done
}

// Outcome returns the terminal outcome of the underlying task.
// The second return value is false while the task has not terminated.
//
// The synchronization caveat of [Handle.State] applies.
func (h *Handle) Outcome() (Outcome, bool) {
	return h.t.done.Outcome()
}
