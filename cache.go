package sched

// A Producer represents the underlying asynchronous unit of work, e.g.
// a network fetch. It must return a [Deferred] that eventually settles
// exactly once; the cache imposes no liveness.
type Producer func() *Deferred

// A Cache maps a request fingerprint to an in-flight or settled
// [Deferred], guaranteeing at most one underlying computation per
// fingerprint: concurrent requests for the same fingerprint share the
// same deferred.
//
// A fingerprint is derived by the caller from task identity and
// arguments; the cache treats it as opaque.
//
// A Cache must not be shared by more than one [Scheduler].
type Cache struct {
	sched         *Scheduler
	retryOnReject bool
	entries       map[string]*Deferred
}

// NewCache returns a new [Cache] whose rejected entries stick: a failed
// fingerprint stays failed until explicitly invalidated.
func NewCache(s *Scheduler) *Cache {
	return &Cache{sched: s, entries: make(map[string]*Deferred)}
}

// NewRetryCache returns a new [Cache] that evicts a rejected entry on
// the next lookup, invoking the producer again.
func NewRetryCache(s *Scheduler) *Cache {
	return &Cache{sched: s, retryOnReject: true, entries: make(map[string]*Deferred)}
}

// GetOrCreate returns the deferred for the given fingerprint, invoking
// produce only if no usable entry exists. Two lookups for the same
// fingerprint within one scheduling step observe the same deferred and
// invoke the producer at most once.
//
// Whether a Rejected entry counts as usable depends on how the cache
// was created; see [NewCache] and [NewRetryCache].
func (c *Cache) GetOrCreate(fingerprint string, produce Producer) *Deferred {
	s := c.sched

	s.mu.Lock()
	if d, ok := c.entries[fingerprint]; ok {
		if d.state != Rejected || !c.retryOnReject {
			s.mu.Unlock()
			return d
		}
		delete(c.entries, fingerprint)
	}
	s.mu.Unlock()

	// The producer may submit tasks or settle deferreds, so it runs
	// outside the lock.
	d := produce()
	if d == nil {
		panic("sched: Producer returned nil")
	}

	s.mu.Lock()
	c.entries[fingerprint] = d
	s.mu.Unlock()

	return d
}

// Invalidate removes the entry for the given fingerprint regardless of
// its state. Waiters already attached to the old deferred still observe
// its eventual settlement; only future lookups are affected.
func (c *Cache) Invalidate(fingerprint string) {
	s := c.sched
	s.mu.Lock()
	delete(c.entries, fingerprint)
	s.mu.Unlock()
}

// WithCache returns an [Operation] that resolves the fingerprint
// through the cache and completes with the cached value, or fails with
// the cached rejection.
func WithCache(c *Cache, fingerprint string, produce Producer) Operation {
	return func(t *Task) Result {
		d := c.GetOrCreate(fingerprint, produce)
		return t.Await(d, func(t *Task, v any) Result {
			return t.Complete(v)
		})
	}
}
