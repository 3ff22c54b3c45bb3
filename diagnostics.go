package sched

import (
	"github.com/hashicorp/go-hclog"
)

// Diagnostics receives observability events from a [Scheduler]. The
// scheduler has no behavioral dependency on the sink; every event is
// advisory.
//
// DoubleSettlement reports an attempt to settle an already-settled
// [Deferred], a producer bug worth surfacing, but non-fatal. The
// deferred keeps its first outcome; attempted is the outcome that was
// dropped.
//
// CancelAdvisory reports that a cancellation was requested for a task,
// along with the state the task was in when the request arrived.
type Diagnostics interface {
	DoubleSettlement(d *Deferred, attempted Outcome)
	CancelAdvisory(taskID string, state TaskState)
}

type nopDiagnostics struct{}

func (nopDiagnostics) DoubleSettlement(*Deferred, Outcome) {}
func (nopDiagnostics) CancelAdvisory(string, TaskState) {}

// NewLogDiagnostics returns a [Diagnostics] sink that writes events to
// the given logger: double settlements at warn level, cancellation
// advisories at debug level. A nil logger falls back to
// [hclog.Default].
func NewLogDiagnostics(logger hclog.Logger) Diagnostics {
	if logger == nil {
		logger = hclog.Default()
	}
	return &logDiagnostics{logger: logger}
}

type logDiagnostics struct {
	logger hclog.Logger
}

func (l *logDiagnostics) DoubleSettlement(d *Deferred, attempted Outcome) {
	l.logger.Warn("deferred settled more than once",
		"state", d.State().String(),
		"attempted_err", attempted.Err,
	)
}

func (l *logDiagnostics) CancelAdvisory(taskID string, state TaskState) {
	l.logger.Debug("cancellation requested",
		"task", taskID,
		"state", state.String(),
	)
}
