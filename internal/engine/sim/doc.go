// Package sim is an in-memory debug engine for exercising the function
// evaluation machinery without a managed runtime attached.
//
// A simulated Process owns a fixed set of threads and a library of
// callable functions, each described by a Behavior: how long the call
// runs, what it returns or throws, whether it hangs, how it responds to
// abort requests, and whether it raises a cross-thread dependency
// notification partway through. Scenario files written in Lua build the
// process topology and the function library (LoadScenario).
//
// Evaluations follow the engine contract: NewEval creates a pending
// handle, PrepareCall binds it to a library function, and the call
// starts on the next Process.Continue that finds its thread runnable.
// Completion, exceptions, notifications, and process exit are delivered
// to the process's CallbackSink from a single dispatch goroutine.
// Evaluations progress in wall-clock time once started; Stop does not
// pause a running call.
package sim
