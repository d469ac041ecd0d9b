package sim

import (
	"errors"
	"fmt"
)

// Errors returned by the simulated engine.
var (
	// ErrClosed is returned by operations on an exited or closed process.
	ErrClosed = errors.New("simulated process is closed")

	// ErrUnknownFunction is returned when a call names a function the
	// scenario library does not define.
	ErrUnknownFunction = errors.New("function not in scenario library")

	// ErrForeignEval is returned when an evaluation handle from another
	// engine is passed to PrepareCall.
	ErrForeignEval = errors.New("evaluation was not created by the simulator")

	// ErrEvalPrepared is returned when PrepareCall is invoked twice on
	// the same handle, or after the call started.
	ErrEvalPrepared = errors.New("evaluation is already bound to a function")

	// ErrEvalPending is returned by NewEval while the thread already has
	// an evaluation waiting to start.
	ErrEvalPending = errors.New("thread already has a pending evaluation")

	// ErrEvalIncomplete is returned by Result before the completion
	// callback has been delivered.
	ErrEvalIncomplete = errors.New("evaluation has not completed")

	// ErrEvalCompleted is returned by abort requests on an evaluation
	// that already finished.
	ErrEvalCompleted = errors.New("evaluation already completed")

	// ErrAbortRefused is returned by abort requests the behavior's abort
	// mode rejects.
	ErrAbortRefused = errors.New("abort refused by debuggee")
)

// ThrownError is the outcome of a call that terminated with an
// unhandled debuggee exception.
type ThrownError struct {
	// TypeName is the exception's runtime type.
	TypeName string
	// Message is the exception message.
	Message string
}

// Error implements the error interface.
func (e *ThrownError) Error() string {
	return fmt.Sprintf("unhandled %s: %s", e.TypeName, e.Message)
}
