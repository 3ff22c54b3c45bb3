package sched

import (
	"fmt"
)

// BatchMode selects how a batch aggregates its members.
type BatchMode int8

const (
	// BatchAll completes with every member's value, in submission
	// order. By default it fails fast on the first member failure; see
	// [NoFailFast].
	BatchAll BatchMode = iota
	// BatchRace settles with the first member to settle, success or
	// failure, and sends every other member an advisory cancellation.
	BatchRace
	// BatchSettled waits for every member and completes with their
	// outcomes, in submission order. It never fails as a batch.
	BatchSettled
)

// A BatchOption configures a batch.
type BatchOption func(*batchConfig)

type batchConfig struct {
	failFast    bool
	concurrency int
}

// NoFailFast makes a [BatchAll] batch wait for every member even after
// a failure. The batch still fails if any member failed, with the
// first-submitted failing member as the reason.
func NoFailFast() BatchOption {
	return func(c *batchConfig) { c.failFast = false }
}

// Concurrency bounds how many members of the batch run at the same
// time; further members are submitted as earlier ones settle.
// A value of zero or less means no bound.
func Concurrency(n int) BatchOption {
	return func(c *batchConfig) { c.concurrency = n }
}

// A BatchError is the failure of a [BatchAll] batch. It wraps the first
// encountered member failure and snapshots every member's state at
// failure time. Members not yet submitted (see [Concurrency]) appear
// as Created.
type BatchError struct {
	Member int
	Reason error
	States []TaskState
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	return fmt.Sprintf("sched: batch member %d failed: %v", e.Member, e.Reason)
}

// Unwrap returns the original member failure.
func (e *BatchError) Unwrap() error {
	return e.Reason
}

// All submits every operation and returns a handle aggregating them in
// [BatchAll] mode.
func (s *Scheduler) All(ops ...Operation) *Handle {
	return s.Batch(BatchAll, ops)
}

// Race submits every operation and returns a handle aggregating them
// in [BatchRace] mode.
//
// With no operations, the batch never settles.
func (s *Scheduler) Race(ops ...Operation) *Handle {
	return s.Batch(BatchRace, ops)
}

// AllSettled submits every operation and returns a handle aggregating
// them in [BatchSettled] mode. The batch completes with a []Outcome in
// submission order and never fails.
func (s *Scheduler) AllSettled(ops ...Operation) *Handle {
	return s.Batch(BatchSettled, ops)
}

// Batch submits the operations as members of one batch and returns the
// aggregate handle.
//
// Members are submitted in order; when several members settle within
// one scheduling step, the first-submitted one decides first (in
// particular, it wins a [BatchRace]). Cancelling the batch handle
// propagates an advisory cancellation to every unsettled member. A
// failed [BatchAll] batch abandons its remaining members without
// cancelling them; their eventual settlement is ignored.
func (s *Scheduler) Batch(mode BatchMode, ops []Operation, opts ...BatchOption) *Handle {
	cfg := batchConfig{failFast: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	limit := cfg.concurrency
	if limit <= 0 || limit > len(ops) {
		limit = len(ops)
	}

	members := make([]*Handle, len(ops))
	next := 0

	cancelMembers := func() {
		for _, m := range members[:next] {
			if _, ok := m.Outcome(); !ok {
				s.Cancel(m)
			}
		}
	}

	return s.submit(func(t *Task) Result {
		inflight := 0
		for _, m := range members[:next] {
			if _, ok := m.Outcome(); !ok {
				inflight++
			}
		}
		for next < len(ops) && inflight < limit {
			members[next] = s.Submit(ops[next])
			next++
			inflight++
		}

		settled := 0
		firstFail := -1
		for i, m := range members[:next] {
			out, ok := m.Outcome()
			if !ok {
				continue
			}
			settled++
			if out.Err != nil && firstFail < 0 {
				firstFail = i
			}
		}

		switch mode {
		case BatchRace:
			for i, m := range members[:next] {
				out, ok := m.Outcome()
				if !ok {
					continue
				}
				for j, loser := range members[:next] {
					if j == i {
						continue
					}
					if _, ok := loser.Outcome(); !ok {
						s.Cancel(loser)
					}
				}
				if out.Err != nil {
					return t.Fail(out.Err)
				}
				return t.Complete(out.Value)
			}
		case BatchAll:
			if cfg.failFast && firstFail >= 0 {
				return t.Fail(newBatchError(members, firstFail))
			}
			if next == len(ops) && settled == len(ops) {
				if firstFail >= 0 {
					return t.Fail(newBatchError(members, firstFail))
				}
				vs := make([]any, len(members))
				for i, m := range members {
					out, _ := m.Outcome()
					vs[i] = out.Value
				}
				return t.Complete(vs)
			}
		case BatchSettled:
			if next == len(ops) && settled == len(ops) {
				outs := make([]Outcome, len(members))
				for i, m := range members {
					outs[i], _ = m.Outcome()
				}
				return t.Complete(outs)
			}
		default:
			panic("sched: unknown batch mode")
		}

		var pending []*Deferred
		for _, m := range members[:next] {
			if _, ok := m.Outcome(); !ok {
				pending = append(pending, m.Deferred())
			}
		}
		return t.reawait(pending...)
	}, cancelMembers)
}

func newBatchError(members []*Handle, failed int) *BatchError {
	out, _ := members[failed].Outcome()
	states := make([]TaskState, len(members))
	for i, m := range members {
		if m == nil {
			states[i] = Created
			continue
		}
		states[i] = m.State()
	}
	return &BatchError{Member: failed, Reason: out.Err, States: states}
}
