// Package sched is a library for cooperative orchestration of
// asynchronous units of work.
//
// A [Scheduler] drives [Task] values in a single-threaded manner.
// Tasks are created with a function called [Operation].
// An operation runs until it either completes, fails, or suspends by
// awaiting one or more [Deferred] values.
// When an awaited deferred settles, the scheduler resumes the task with
// the settled value, or propagates the failure unless the task
// explicitly recovers.
//
// A [Deferred] is a single-resolution container for a future outcome.
// It settles exactly once; later attempts are no-ops reported to an
// optional [Diagnostics] sink. Waiters are resumed in the order they
// registered.
//
// The scheduler never performs I/O. The underlying asynchronous work is
// represented by a [Producer]: a zero-argument function returning a
// deferred, typically bridging a goroutine that settles it when done.
// Timeouts are not a primitive; compose them by racing against a
// deferred produced by an external timer.
//
// Batches aggregate several tasks under one handle: [Scheduler.All]
// fails fast on the first member failure, [Scheduler.Race] settles with
// the first member to settle and sends the rest an advisory
// cancellation, and [Scheduler.AllSettled] always waits for every
// member.
//
// A [Cache] maps a request fingerprint to an in-flight or settled
// deferred, guaranteeing at most one underlying computation per
// fingerprint.
//
// Like the rest of the package, cancellation is cooperative: a
// cancelled task stops at its next suspension point; a step already
// running is never interrupted.
package sched
