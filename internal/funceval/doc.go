// Package funceval synchronizes function evaluations inside a managed
// debuggee process.
//
// Running code in a stopped debuggee (a property getter, ToString, a
// method called from a watch expression) is the most fragile operation a
// debugger performs. The evaluated code runs on a real debuggee thread
// while the user believes the process is stopped, so everything around
// that thread has to be pinned down: exactly one evaluation at a time,
// every other thread suspended, bounded waits, and several escalation
// paths for evaluations that refuse to finish.
//
// # Architecture
//
//	               WaitEvalResult (one caller at a time)
//	                          │
//	          ┌───────────────┼──────────────────┐
//	          ▼               ▼                  ▼
//	   threadController   resultSlot        interceptor
//	   suspend/resume     armed eval +      cross-thread
//	   all but the        single-shot       notification →
//	   eval thread        completion        abort the eval
//	                          ▲                  ▲
//	                          │                  │
//	              NotifyEvalComplete   HandleCustomNotification
//	                 (engine callbacks, any goroutine)
//
// The Waiter owns one resultSlot per process: a single-assignment pairing
// of the in-flight evaluation with the thread that runs it. Completion
// callbacks fulfill the slot only when their thread id matches the armed
// owner; anything else is a stale or foreign event and is dropped.
//
// # Waiting and escalation
//
// A request waits for the evaluation in two bounded windows. The primary
// window (default 5s) covers normal completion. If it expires, the waiter
// resumes the suspended threads so the runtime can service the abort,
// requests a graceful abort (rude on failure), and waits one more grace
// window (default 5s) for the abort to land. If even that expires, the
// debuggee is in an unknown state: the slot is force-cleared, the request
// fails with ErrEvalUnrecoverable, and the Waiter refuses further work.
//
// A timed-out evaluation never reports success, even when the result
// arrives during the grace window.
//
// # Cross-thread dependencies
//
// Evaluated code sometimes blocks on another thread (a lock held by a
// suspended thread, Debugger.NotifyOfCrossThreadDependency). The runtime
// announces this with a custom notification carrying a well-known marker
// type. ResolveNotificationClass locates that type in a loaded module;
// delivery is enabled for the duration of each request, and the
// notification handler aborts the evaluation before the deadlock forms.
// Such requests fail with ErrCantCallOnThisThread.
//
// # Usage
//
//	w := funceval.New(funceval.WithLogger(logger))
//	if err := w.ResolveNotificationClass(coreLib); err != nil { ... }
//	engine.RegisterSink(funceval.Sink(w))
//
//	val, err := w.WaitEvalResult(ctx, thread, func(ev engine.Eval) error {
//		return prepareCall(ev, "Inventory.Count")
//	})
package funceval
