package sched

const (
	_ int8 = iota
	doComplete
	doFail
	doAwait
)

const (
	flagCancel = 1 << iota
)

// TaskState is the lifecycle state of a [Task].
type TaskState int8

const (
	Created TaskState = iota
	Running
	Suspended
	Completed
	Failed
	Cancelled
)

// String implements the [fmt.Stringer] interface.
func (s TaskState) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// A Task is a suspendable unit of work, similar to a goroutine but
// cooperative and stackless.
//
// A task is created with a function called [Operation]. A task's job is
// to run it. When a [Scheduler] runs a task, it calls the operation
// function with the task as the argument. The return value determines
// whether the task completes, fails, or suspends awaiting one or more
// [Deferred] values.
//
// A task is running on at most one scheduling step at a time. In order
// for a suspended task to resume, one of its awaited deferred values
// must settle.
//
// The argument t must not escape the operation function; the scheduler
// owns it exclusively.
type Task struct {
	id         string
	sched      *Scheduler
	state      TaskState
	flag       uint8
	op         Operation
	frame      awaitFrame
	done       *Deferred
	cancelHook func()
}

// An Operation is a piece of work that a [Task] is given to do when it
// is submitted, or a continuation shaped by one of the await methods.
// The return value, a [Result], determines what next for the task
// to do.
type Operation func(t *Task) Result

// Resume continues a task after a single await with the fulfilled
// value.
type Resume func(t *Task, v any) Result

// Recover continues a task after an await with the full outcome,
// fulfilled or rejected. It is the only way for a task to observe an
// awaited rejection without failing.
type Recover func(t *Task, out Outcome) Result

// ResumeAll continues a task after a fan-out await with every fulfilled
// value, in the order the deferred values were passed.
type ResumeAll func(t *Task, vs []any) Result

// ResumeRace continues a task after a racing await with the index and
// value of the first deferred to settle.
type ResumeRace func(t *Task, winner int, v any) Result

// Result is the type of the return value of an [Operation] function.
//
// A Result can only be created by calling one of the following methods
// of Task:
//   - [Task.Complete]: for completing the task with a value;
//   - [Task.Fail]: for failing the task with a reason;
//   - [Task.Await], [Task.AwaitOutcome], [Task.AwaitAll],
//     [Task.AwaitRace]: for suspending the task until one or more
//     [Deferred] values settle.
type Result struct {
	action  int8
	outcome Outcome
}

type awaitMode int8

const (
	awaitNone awaitMode = iota
	awaitOne
	awaitAll
	awaitRace
	awaitWatch
)

// An awaitFrame represents where a suspended task paused and what it is
// waiting on, as data. The scheduler fills in settlement bookkeeping
// under its lock; user callbacks run only on the scheduling step.
type awaitFrame struct {
	mode       awaitMode
	deps       []*Deferred
	resume     Resume
	recover    Recover
	resumeAll  ResumeAll
	resumeRace ResumeRace
	values     []any
	remain     int
	winner     int
	outcome    Outcome
	ready      bool
}

// Await returns a [Result] that suspends t until d settles.
// If d fulfills, resume is called with its value. If d rejects, the
// failure propagates and t fails with the original reason; use
// [Task.AwaitOutcome] to recover instead.
func (t *Task) Await(d *Deferred, resume Resume) Result {
	if d == nil {
		panic("sched: Await(nil)")
	}
	if resume == nil {
		panic("sched: Await with nil resume")
	}
	t.frame = awaitFrame{mode: awaitOne, deps: []*Deferred{d}, resume: resume}
	return Result{action: doAwait}
}

// AwaitOutcome returns a [Result] that suspends t until d settles, and
// then calls recover with the full outcome, rejected or not.
// It mirrors a try/catch around an await: the task decides what a
// rejection means.
func (t *Task) AwaitOutcome(d *Deferred, recover Recover) Result {
	if d == nil {
		panic("sched: AwaitOutcome(nil)")
	}
	if recover == nil {
		panic("sched: AwaitOutcome with nil recover")
	}
	t.frame = awaitFrame{mode: awaitOne, deps: []*Deferred{d}, recover: recover}
	return Result{action: doAwait}
}

// AwaitAll returns a [Result] that suspends t until every deferred in
// ds fulfills, and then calls resume with their values in order.
// The first rejection propagates immediately and t fails with that
// reason; the remaining deferred values are detached from.
//
// With an empty ds, resume is scheduled immediately with no values.
func (t *Task) AwaitAll(ds []*Deferred, resume ResumeAll) Result {
	if resume == nil {
		panic("sched: AwaitAll with nil resume")
	}
	for _, d := range ds {
		if d == nil {
			panic("sched: AwaitAll with nil deferred")
		}
	}
	t.frame = awaitFrame{mode: awaitAll, deps: ds, resumeAll: resume}
	return Result{action: doAwait}
}

// AwaitRace returns a [Result] that suspends t until the first deferred
// in ds settles. A fulfillment resumes t via resume with the winner's
// index and value; a rejection propagates and t fails with that reason.
// The losing deferred values are detached from. If several members of
// ds are already settled when t suspends, the first in ds wins.
//
// With an empty ds, t never resumes.
func (t *Task) AwaitRace(ds []*Deferred, resume ResumeRace) Result {
	if resume == nil {
		panic("sched: AwaitRace with nil resume")
	}
	for _, d := range ds {
		if d == nil {
			panic("sched: AwaitRace with nil deferred")
		}
	}
	t.frame = awaitFrame{mode: awaitRace, deps: ds, resumeRace: resume}
	return Result{action: doAwait}
}

// reawait suspends t until any of ds settles and, when resumed, runs
// the current operation again. Batches use this watch-and-rerun flavor
// to rescan their members on every wake.
func (t *Task) reawait(ds ...*Deferred) Result {
	t.frame = awaitFrame{mode: awaitWatch, deps: ds}
	return Result{action: doAwait}
}

// Complete returns a [Result] that completes t with the given value.
func (t *Task) Complete(v any) Result {
	return Result{action: doComplete, outcome: Outcome{Value: v}}
}

// Fail returns a [Result] that fails t with the given reason.
func (t *Task) Fail(err error) Result {
	if err == nil {
		panic("sched: Fail(nil): a failure must carry a reason")
	}
	return Result{action: doFail, outcome: Outcome{Err: err}}
}

// ID returns the unique id of t.
func (t *Task) ID() string {
	return t.id
}

// Scheduler returns the [Scheduler] that owns t.
func (t *Task) Scheduler() *Scheduler {
	return t.sched
}

// continuation computes the next operation to run from the settled
// await frame. Failure propagation happens here: an unrecovered
// rejection becomes a failing operation, carrying the original reason
// unchanged.
func (t *Task) continuation() Operation {
	f := &t.frame
	switch f.mode {
	case awaitNone, awaitWatch:
		return t.op
	case awaitOne:
		out := f.outcome
		if rec := f.recover; rec != nil {
			return func(t *Task) Result { return rec(t, out) }
		}
		if out.Err != nil {
			return func(t *Task) Result { return t.Fail(out.Err) }
		}
		resume := f.resume
		return func(t *Task) Result { return resume(t, out.Value) }
	case awaitAll:
		if err := f.outcome.Err; err != nil {
			return func(t *Task) Result { return t.Fail(err) }
		}
		vs, resume := f.values, f.resumeAll
		return func(t *Task) Result { return resume(t, vs) }
	case awaitRace:
		if err := f.outcome.Err; err != nil {
			return func(t *Task) Result { return t.Fail(err) }
		}
		winner, v, resume := f.winner, f.outcome.Value, f.resumeRace
		return func(t *Task) Result { return resume(t, winner, v) }
	default:
		panic("sched: internal error: unknown await mode")
	}
}

// Do returns an [Operation] that calls f, and then completes with no
// value.
func Do(f func()) Operation {
	return func(t *Task) Result {
		f()
		return t.Complete(nil)
	}
}

// Value returns an [Operation] that completes immediately with v.
func Value(v any) Operation {
	return func(t *Task) Result {
		return t.Complete(v)
	}
}
