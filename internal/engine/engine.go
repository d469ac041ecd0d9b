// Package engine defines the capability surface a managed-runtime debug
// engine exposes to the rest of the debugger. The interfaces are narrow on
// purpose: the evaluation core and any tooling built on top of it consume
// these and nothing else, so an engine backed by a real runtime and the
// in-memory simulator are interchangeable.
package engine

// Process is a debuggee process under engine control.
type Process interface {
	// ID returns the process id assigned by the engine.
	ID() int

	// Threads enumerates the debuggee's managed threads.
	Threads() ([]Thread, error)

	// Continue resumes debuggee execution.
	Continue() error

	// Stop synchronizes the process, halting managed execution until the
	// next Continue.
	Stop() error

	// SetNotificationDelivery toggles delivery of custom runtime
	// notifications for the given marker class.
	SetNotificationDelivery(cls Class, enabled bool) error
}

// Thread is a managed thread inside a debuggee process.
type Thread interface {
	// ID returns the runtime thread id.
	ID() int

	// Process returns the owning process.
	Process() (Process, error)

	// SetRunState parks or releases the thread for subsequent resumes of
	// the process.
	SetRunState(state RunState) error

	// NewEval creates a function evaluation handle bound to this thread.
	// The evaluation does not start until the process is resumed.
	NewEval() (Eval, error)
}

// Eval is a single function evaluation scheduled on a thread.
//
// Abort and RudeAbort are requests: the engine acknowledges them and the
// evaluation later completes with ErrEvalAborted through the usual
// completion callback. An engine may refuse an abort, for example when
// the evaluation already finished; the request then returns an error.
type Eval interface {
	// Abort requests a graceful abort that unwinds the evaluated code.
	Abort() error

	// RudeAbort forces the abort without letting the evaluated code
	// clean up. Used when Abort fails.
	RudeAbort() error

	// Result reports the outcome once the engine has delivered the
	// completion callback for this evaluation. A nil Value with a nil
	// error is the successful outcome of a void evaluation.
	Result() (Value, error)
}

// Value is an opaque handle to a result value inside the debuggee.
type Value interface {
	// Type returns the runtime type name of the value.
	Type() string

	// String renders the value for display.
	String() string
}

// TypeToken identifies a type definition inside a module's metadata.
type TypeToken uint32

// TypeTokenNil is the absent token. Lookups scoped by TypeTokenNil search
// top-level types.
const TypeTokenNil TypeToken = 0

// Module is a loaded managed module and its metadata.
type Module interface {
	// Name returns the module's display name.
	Name() string

	// FindType resolves a type definition by name. A non-nil enclosing
	// token scopes the lookup to types nested inside that definition.
	FindType(name string, enclosing TypeToken) (TypeToken, error)

	// ClassFromToken materializes a class handle from a metadata token.
	ClassFromToken(tok TypeToken) (Class, error)
}

// Class is an opaque handle to a runtime class.
type Class interface {
	// Token returns the metadata token the class was resolved from.
	Token() TypeToken
}
