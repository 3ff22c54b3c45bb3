package sched

import (
	"sync"

	"github.com/google/uuid"
)

// A Scheduler drives tasks to completion in a single-threaded
// cooperative manner.
//
// When a [Task] is submitted or resumed, it is added into an internal
// FIFO queue. The Run method then pops and runs each of them from the
// queue until the queue is emptied. Each resumption runs synchronously
// to its next suspension point or terminal state before the next one
// starts. If one operation blocks, no other task can run. The best
// practice is not to block.
//
// Manually calling the Run method is usually not desired. One would
// instead use the Autorun method to set up an autorun function to
// calling the Run method automatically whenever a task is submitted or
// a deferred settles. The Scheduler never calls the autorun function
// twice at the same time.
//
// The zero Scheduler is ready to use.
type Scheduler struct {
	mu      sync.Mutex
	q       fifo[*Task]
	running bool
	autorun func()
	diag    Diagnostics
}

// Autorun sets up an autorun function to calling the Run method
// automatically whenever a [Task] is submitted or resumed.
//
// One must pass a function that calls the Run method.
//
// If f blocks, the Submit method may block too. The best practice is
// not to block.
func (s *Scheduler) Autorun(f func()) {
	s.autorun = f
}

// SetDiagnostics installs the sink that receives double-settlement
// reports and cancellation advisories. A nil sink restores the default,
// which discards everything.
//
// SetDiagnostics must be called before the scheduler is first used.
func (s *Scheduler) SetDiagnostics(d Diagnostics) {
	s.diag = d
}

func (s *Scheduler) diagnostics() Diagnostics {
	if s.diag != nil {
		return s.diag
	}
	return nopDiagnostics{}
}

// Run pops and runs every [Task] in the queue until the queue is
// emptied.
//
// Run must not be called twice at the same time.
func (s *Scheduler) Run() {
	s.mu.Lock()
	s.running = true

	for !s.q.Empty() {
		t := s.q.Pop()
		s.step(t)
	}

	s.running = false
	s.mu.Unlock()
}

// Submit registers a task to work on op and schedules it to advance to
// its first suspension point or terminal state.
//
// The task is added in a queue. To run it, either call the Run method,
// or call the Autorun method to set up an autorun function beforehand.
//
// Submit is safe for concurrent use.
func (s *Scheduler) Submit(op Operation) *Handle {
	return s.submit(op, nil)
}

// submit registers a task with an optional cancellation hook attached
// before the task can run.
func (s *Scheduler) submit(op Operation, cancelHook func()) *Handle {
	if op == nil {
		panic("sched: Submit(nil)")
	}

	t := &Task{
		id:         uuid.NewString(),
		sched:      s,
		op:         op,
		cancelHook: cancelHook,
	}
	t.done = s.NewDeferred()

	var autorun func()

	s.mu.Lock()
	s.q.Push(t)
	autorun = s.wake()
	s.mu.Unlock()

	if autorun != nil {
		autorun()
	}

	return &Handle{t: t}
}

// wake arranges for the queue to be drained. Callers must hold the
// lock; the returned function, if any, must be called after releasing
// it.
func (s *Scheduler) wake() func() {
	if !s.running && s.autorun != nil {
		s.running = true
		return s.autorun
	}
	return nil
}

// Cancel requests that the task behind h stop: a suspended task is
// detached from its awaited deferred values and terminates Cancelled
// without resuming; a running task stops at its next suspension check.
// The request is advisory: a task whose final step is already running
// still completes. Cancelling a settled task does nothing.
//
// A caller awaiting a cancelled handle observes [ErrTaskCancelled].
func (s *Scheduler) Cancel(h *Handle) {
	if h == nil {
		return
	}
	t := h.t

	var hook, autorun func()

	s.mu.Lock()
	was := t.state
	switch was {
	case Completed, Failed, Cancelled:
		s.mu.Unlock()
		return
	case Running:
		t.flag |= flagCancel
		s.mu.Unlock()
	default: // Created or Suspended.
		// Settling the outcome deferred queues its waiters.
		hook = s.finishCancel(t)
		autorun = s.wake()
		s.mu.Unlock()
	}

	if hook != nil {
		hook()
	}
	if autorun != nil {
		autorun()
	}
	s.diagnostics().CancelAdvisory(t.id, was)
}

// step advances one task. Callers must hold the lock; step releases it
// around user code.
func (s *Scheduler) step(t *Task) {
	switch t.state {
	case Completed, Failed, Cancelled:
		return
	case Running:
		panic("sched: internal error: task resumed while running")
	}

	if t.flag&flagCancel != 0 {
		s.runCancelHook(s.finishCancel(t))
		return
	}

	op := t.continuation()
	t.frame = awaitFrame{}
	t.state = Running

	s.mu.Unlock()
	res := t.invoke(op)
	s.mu.Lock()

	switch res.action {
	case doComplete:
		s.finish(t, Completed, res.outcome)
	case doFail:
		s.finish(t, Failed, res.outcome)
	case doAwait:
		if t.flag&flagCancel != 0 {
			// The suspension check requested by Cancel.
			s.runCancelHook(s.finishCancel(t))
			return
		}
		t.state = Suspended
		s.register(t)
	default:
		panic("sched: internal error: unknown action")
	}
}

// register attaches t to the deferred values of its await frame,
// applying any settlements that already happened. Callers must hold
// the lock.
func (s *Scheduler) register(t *Task) {
	f := &t.frame
	f.winner = -1
	f.remain = len(f.deps)
	if f.mode == awaitAll {
		f.values = make([]any, len(f.deps))
		if f.remain == 0 {
			f.ready = true
		}
	}

	for i, d := range f.deps {
		if f.ready {
			break
		}
		if d.state != Pending {
			s.applyDep(t, i, d)
			continue
		}
		d.waiters = append(d.waiters, waiter{task: t, pos: i})
	}

	if f.ready {
		s.detach(t)
		s.q.Push(t)
	}
}

// applyDep records the settlement of d at position pos of the await
// frame of t, and decides whether t is ready to resume. Callers must
// hold the lock.
func (s *Scheduler) applyDep(t *Task, pos int, d *Deferred) {
	f := &t.frame
	switch f.mode {
	case awaitOne:
		f.outcome = d.outcome
		f.ready = true
	case awaitAll:
		if d.outcome.Err != nil {
			f.outcome = d.outcome
			f.ready = true
			return
		}
		f.values[pos] = d.outcome.Value
		if f.remain--; f.remain == 0 {
			f.ready = true
		}
	case awaitRace:
		f.winner = pos
		f.outcome = d.outcome
		f.ready = true
	case awaitWatch:
		f.ready = true
	default:
		panic("sched: internal error: settlement on an inactive task")
	}
}

// settle transitions d and schedules its waiters for resumption in
// registration order. It reports whether this was the first settlement.
// Callers must hold the lock.
func (s *Scheduler) settle(d *Deferred, o Outcome) bool {
	if d.state != Pending {
		return false
	}
	if o.Err != nil {
		d.state = Rejected
	} else {
		d.state = Fulfilled
	}
	d.outcome = o

	ws := d.waiters
	d.waiters = nil

	for _, w := range ws {
		t := w.task
		if t.state != Suspended || t.frame.ready {
			continue
		}
		s.applyDep(t, w.pos, d)
		if t.frame.ready {
			s.detach(t)
			s.q.Push(t)
		}
	}

	return true
}

// detach removes t from the waiter lists of every deferred in its
// await frame. Callers must hold the lock.
func (s *Scheduler) detach(t *Task) {
	for _, d := range t.frame.deps {
		d.removeWaiter(t)
	}
}

// finish moves t to a terminal state and settles its outcome deferred.
// If someone settled that deferred from outside, the scheduler's own
// losing attempt is reported to the sink. Callers must hold the lock.
func (s *Scheduler) finish(t *Task, state TaskState, o Outcome) {
	t.state = state
	t.frame = awaitFrame{}
	t.cancelHook = nil
	if !s.settle(t.done, o) {
		s.mu.Unlock()
		s.diagnostics().DoubleSettlement(t.done, o)
		s.mu.Lock()
	}
}

// finishCancel terminates t as Cancelled. It returns the cancellation
// hook of t, if any, which callers must run after releasing the lock.
func (s *Scheduler) finishCancel(t *Task) func() {
	s.detach(t)
	t.flag &^= flagCancel
	hook := t.cancelHook
	s.finish(t, Cancelled, Outcome{Err: ErrTaskCancelled})
	return hook
}

// runCancelHook runs a cancellation hook outside the lock, from a
// context that holds it.
func (s *Scheduler) runCancelHook(hook func()) {
	if hook == nil {
		return
	}
	s.mu.Unlock()
	hook()
	s.mu.Lock()
}
