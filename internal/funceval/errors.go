package funceval

import "errors"

// Errors reported by the evaluation waiter. WaitEvalResult translates
// engine abort outcomes into the cause-specific errors below; match with
// errors.Is.
var (
	// ErrEvalInProgress is returned when a request tries to arm an
	// evaluation while another is already armed.
	ErrEvalInProgress = errors.New("an evaluation is already in progress")

	// ErrEvalTimeout is reported when an evaluation did not complete
	// within the primary window and had to be aborted.
	ErrEvalTimeout = errors.New("evaluation timed out")

	// ErrEvalCanceled is reported when an evaluation was aborted by an
	// external cancel request or context cancellation.
	ErrEvalCanceled = errors.New("evaluation canceled")

	// ErrCantCallOnThisThread is reported when an evaluation was
	// aborted because the evaluated code depended on a suspended
	// thread.
	ErrCantCallOnThisThread = errors.New("evaluation depends on a suspended thread")

	// ErrEvalAbandoned is reported when the engine discarded the
	// pending evaluation without delivering an outcome, for example
	// because the thread or process disappeared.
	ErrEvalAbandoned = errors.New("evaluation abandoned by the engine")

	// ErrEvalUnrecoverable is reported when an evaluation could not be
	// stopped. The debuggee state is no longer trustworthy.
	ErrEvalUnrecoverable = errors.New("evaluation abort failed; process state unrecoverable")

	// ErrWaiterUnusable is returned for requests made after a previous
	// evaluation ended with ErrEvalUnrecoverable.
	ErrWaiterUnusable = errors.New("waiter disabled after an unrecoverable evaluation")
)
