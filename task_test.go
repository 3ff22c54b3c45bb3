package sched_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/taskline/sched"
)

func TestResumptionOrderMatchesSettlementOrder(t *testing.T) {
	var s sched.Scheduler
	s.Autorun(s.Run)

	d1, d2, d3 := s.NewDeferred(), s.NewDeferred(), s.NewDeferred()

	var observed []any
	h := s.Submit(func(t *sched.Task) sched.Result {
		return t.Await(d1, func(t *sched.Task, v any) sched.Result {
			observed = append(observed, v)
			return t.Await(d2, func(t *sched.Task, v any) sched.Result {
				observed = append(observed, v)
				return t.Await(d3, func(t *sched.Task, v any) sched.Result {
					observed = append(observed, v)
					return t.Complete(observed)
				})
			})
		})
	})

	d1.Resolve("a")
	d2.Resolve("b")
	d3.Resolve("c")

	want := []any{"a", "b", "c"}
	if diff := cmp.Diff(want, observed); diff != "" {
		t.Errorf("observed resumption values mismatch (-want +got):\n%s", diff)
	}
	if got := h.State(); got != sched.Completed {
		t.Errorf("state = %v, want completed", got)
	}
}

func TestRejectionPropagatesUnchanged(t *testing.T) {
	var s sched.Scheduler
	s.Autorun(s.Run)

	boom := errors.New("boom")
	d := s.NewDeferred()

	resumed := false
	h := s.Submit(func(t *sched.Task) sched.Result {
		return t.Await(d, func(t *sched.Task, v any) sched.Result {
			resumed = true
			return t.Complete(v)
		})
	})

	d.Reject(boom)

	if resumed {
		t.Error("resume ran despite rejection")
	}
	if got := h.State(); got != sched.Failed {
		t.Errorf("state = %v, want failed", got)
	}
	out, _ := h.Outcome()
	if out.Err != boom {
		t.Errorf("failure reason = %v, want the original error unwrapped", out.Err)
	}
}

func TestAwaitOutcomeRecovers(t *testing.T) {
	var s sched.Scheduler
	s.Autorun(s.Run)

	d := s.NewDeferred()
	h := s.Submit(func(t *sched.Task) sched.Result {
		return t.AwaitOutcome(d, func(t *sched.Task, out sched.Outcome) sched.Result {
			if out.Err != nil {
				return t.Complete("fallback")
			}
			return t.Complete(out.Value)
		})
	})

	d.Reject(errors.New("boom"))

	out, ok := h.Outcome()
	if !ok || out.Err != nil || out.Value != "fallback" {
		t.Errorf("outcome = %+v, %v; want recovered fallback", out, ok)
	}
}

func TestAwaitAll(t *testing.T) {
	var s sched.Scheduler
	s.Autorun(s.Run)

	d1, d2 := s.NewDeferred(), s.NewDeferred()

	h := s.Submit(func(t *sched.Task) sched.Result {
		return t.AwaitAll([]*sched.Deferred{d1, d2}, func(t *sched.Task, vs []any) sched.Result {
			return t.Complete(vs)
		})
	})

	d2.Resolve(2) // Settle out of order; values keep positional order.
	d1.Resolve(1)

	out, _ := h.Outcome()
	if diff := cmp.Diff([]any{1, 2}, out.Value); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestAwaitAllFirstRejectionWins(t *testing.T) {
	var s sched.Scheduler
	s.Autorun(s.Run)

	boom := errors.New("boom")
	d1, d2 := s.NewDeferred(), s.NewDeferred()

	h := s.Submit(func(t *sched.Task) sched.Result {
		return t.AwaitAll([]*sched.Deferred{d1, d2}, func(t *sched.Task, vs []any) sched.Result {
			return t.Complete(vs)
		})
	})

	d2.Reject(boom)

	if got := h.State(); got != sched.Failed {
		t.Fatalf("state = %v, want failed", got)
	}
	if out, _ := h.Outcome(); out.Err != boom {
		t.Errorf("failure reason = %v, want the original error", out.Err)
	}

	// The other dependency settling later changes nothing.
	d1.Resolve(1)
	if out, _ := h.Outcome(); out.Err != boom {
		t.Errorf("failure reason changed to %v after late settlement", out.Err)
	}
}

func TestAwaitRace(t *testing.T) {
	var s sched.Scheduler
	s.Autorun(s.Run)

	d1, d2 := s.NewDeferred(), s.NewDeferred()

	h := s.Submit(func(t *sched.Task) sched.Result {
		return t.AwaitRace([]*sched.Deferred{d1, d2}, func(t *sched.Task, winner int, v any) sched.Result {
			return t.Complete([]any{winner, v})
		})
	})

	d2.Resolve("second")
	d1.Resolve("first") // Too late; detached already.

	out, _ := h.Outcome()
	if diff := cmp.Diff([]any{1, "second"}, out.Value); diff != "" {
		t.Errorf("race result mismatch (-want +got):\n%s", diff)
	}
}

func TestOperationPanicFailsTask(t *testing.T) {
	var s sched.Scheduler
	s.Autorun(s.Run)

	h := s.Submit(func(t *sched.Task) sched.Result {
		panic("kaboom")
	})

	if got := h.State(); got != sched.Failed {
		t.Fatalf("state = %v, want failed", got)
	}
	out, _ := h.Outcome()
	var pe *sched.PanicError
	if !errors.As(out.Err, &pe) || pe.Value != "kaboom" {
		t.Errorf("failure reason = %v, want a PanicError carrying the value", out.Err)
	}
}
