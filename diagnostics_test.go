package sched_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/taskline/sched"
)

func TestLogDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "sched",
		Output: &buf,
		Level:  hclog.Debug,
	})

	var s sched.Scheduler
	s.SetDiagnostics(sched.NewLogDiagnostics(logger))
	s.Autorun(s.Run)

	d := s.NewDeferred()
	d.Resolve(1)
	d.Resolve(2)

	if !strings.Contains(buf.String(), "settled more than once") {
		t.Errorf("log output %q missing double-settlement warning", buf.String())
	}

	h := s.Submit(awaiting(s.NewDeferred(), nil))
	s.Cancel(h)

	if !strings.Contains(buf.String(), "cancellation requested") {
		t.Errorf("log output %q missing cancellation advisory", buf.String())
	}
}
