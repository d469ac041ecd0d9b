package engine

import "errors"

// Errors an engine reports through the capability interfaces. Engines may
// return richer errors; callers match with errors.Is.
var (
	// ErrEvalAborted is the outcome of an evaluation terminated by
	// Abort or RudeAbort.
	ErrEvalAborted = errors.New("evaluation aborted")

	// ErrNoProcess is returned when a thread's owning process is gone.
	ErrNoProcess = errors.New("process not available")

	// ErrProcessRunning is returned by operations that require the
	// debuggee to be synchronized.
	ErrProcessRunning = errors.New("process is running")

	// ErrTypeNotFound is returned by Module.FindType when no type
	// definition matches the name in the requested scope.
	ErrTypeNotFound = errors.New("type not found in module metadata")
)
