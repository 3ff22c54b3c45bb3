package sched

import (
	"fmt"
	"runtime/debug"
)

// A PanicError is the failure reason of a task whose [Operation]
// panicked. It carries the recovered value and the stack trace at the
// point of the panic.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("sched: operation panicked: %v", e.Value)
}

// Unwrap exposes a panic value that already is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// invoke runs one operation step, converting a panic into a task
// failure so that one misbehaving task cannot take down the scheduler.
// runtime.Goexit is not intercepted.
func (t *Task) invoke(op Operation) (res Result) {
	defer func() {
		if v := recover(); v != nil {
			res = Result{
				action:  doFail,
				outcome: Outcome{Err: &PanicError{Value: v, Stack: debug.Stack()}},
			}
		}
	}()
	return op(t)
}
