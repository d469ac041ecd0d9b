package engine

// CallbackSink receives asynchronous debug events from an engine.
// Engines deliver events from their own dispatch goroutines, so
// implementations must be safe for concurrent use. While a sink callback
// runs, the debuggee is synchronized; the engine resumes it when the
// callback returns unless an evaluation is driving execution.
type CallbackSink interface {
	// EvalComplete reports that an evaluation finished on the thread.
	EvalComplete(t Thread, e Eval)

	// EvalException reports that an evaluation terminated with an
	// unhandled exception. Outcome handling matches EvalComplete: the
	// result handle carries the thrown value.
	EvalException(t Thread, e Eval)

	// CustomNotification reports a runtime notification raised on the
	// thread while delivery is enabled for its class.
	CustomNotification(t Thread)

	// ProcessExit reports debuggee termination. Any in-flight
	// evaluation will never complete.
	ProcessExit(p Process)
}

// NopSink is a CallbackSink that ignores every event. Embed it to
// implement only the events a component cares about.
type NopSink struct{}

// EvalComplete implements CallbackSink.
func (NopSink) EvalComplete(Thread, Eval) {}

// EvalException implements CallbackSink.
func (NopSink) EvalException(Thread, Eval) {}

// CustomNotification implements CallbackSink.
func (NopSink) CustomNotification(Thread) {}

// ProcessExit implements CallbackSink.
func (NopSink) ProcessExit(Process) {}

var _ CallbackSink = NopSink{}
