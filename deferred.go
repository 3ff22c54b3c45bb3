package sched

// An Outcome is the settled result of a [Deferred]: a value, or a
// failure reason.
type Outcome struct {
	Value any
	Err   error
}

// Ok reports whether o carries no failure.
func (o Outcome) Ok() bool {
	return o.Err == nil
}

// DeferredState is the resolution state of a [Deferred].
type DeferredState int8

const (
	Pending DeferredState = iota
	Fulfilled
	Rejected
)

// String implements the [fmt.Stringer] interface.
func (s DeferredState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// A Deferred is a single-resolution container for a future outcome.
//
// A deferred is created Pending and settles exactly once, to Fulfilled
// or to Rejected. Once settled, its state and outcome never change;
// later settlement attempts are no-ops reported to the scheduler's
// [Diagnostics] sink. Waiting tasks are resumed in the order they
// registered.
//
// A Deferred must not be shared by more than one [Scheduler].
type Deferred struct {
	sched   *Scheduler
	state   DeferredState
	outcome Outcome
	waiters []waiter
}

// A waiter records that a task awaits this deferred at position pos of
// its current await set.
type waiter struct {
	task *Task
	pos  int
}

// NewDeferred creates a new Pending [Deferred] owned by s.
func (s *Scheduler) NewDeferred() *Deferred {
	return &Deferred{sched: s}
}

// State returns the resolution state of d.
//
// Without proper synchronization, one should only call this method in
// an [Operation] function, or while the scheduler is known to be idle.
func (d *Deferred) State() DeferredState {
	return d.state
}

// Outcome returns the settled outcome of d.
// The second return value is false while d is Pending.
//
// The synchronization caveat of [Deferred.State] applies.
func (d *Deferred) Outcome() (Outcome, bool) {
	if d.state == Pending {
		return Outcome{}, false
	}
	return d.outcome, true
}

// Settle transitions d from Pending to Fulfilled, or to Rejected if
// o.Err is non-nil. The first settlement wins; any later attempt
// changes nothing and is reported to the scheduler's [Diagnostics]
// sink.
//
// Settle performs bookkeeping only and never runs task code; it is safe
// to call from producer goroutines. Tasks waiting on d are scheduled
// for resumption in registration order.
func (d *Deferred) Settle(o Outcome) {
	s := d.sched

	var autorun func()

	s.mu.Lock()
	ok := s.settle(d, o)
	if ok {
		autorun = s.wake()
	}
	s.mu.Unlock()

	if !ok {
		s.diagnostics().DoubleSettlement(d, o)
		return
	}
	if autorun != nil {
		autorun()
	}
}

// Resolve settles d as Fulfilled with the given value.
func (d *Deferred) Resolve(v any) {
	d.Settle(Outcome{Value: v})
}

// Reject settles d as Rejected with the given reason.
func (d *Deferred) Reject(err error) {
	if err == nil {
		panic("sched: Reject(nil): a rejection must carry a reason")
	}
	d.Settle(Outcome{Err: err})
}

// removeWaiter detaches t from the waiter list of d.
// Callers must hold the scheduler lock.
func (d *Deferred) removeWaiter(t *Task) {
	ws := d.waiters
	for i := 0; i < len(ws); {
		if ws[i].task == t {
			ws = append(ws[:i], ws[i+1:]...)
			continue
		}
		i++
	}
	d.waiters = ws
}
