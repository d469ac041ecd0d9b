package funceval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/mrdbg/internal/engine"
)

const (
	// DefaultPrimaryTimeout bounds the wait for an evaluation to finish
	// on its own. 5000ms is the NormalEvalTimeout established desktop
	// debuggers ship by default.
	DefaultPrimaryTimeout = 5 * time.Second

	// DefaultAbortGraceTimeout bounds the wait for an abort to land
	// after the primary window expires.
	DefaultAbortGraceTimeout = 5 * time.Second
)

// SetupFunc prepares an evaluation handle (target method, arguments)
// before the debuggee resumes. A non-nil error cancels the request and is
// returned to the caller verbatim.
type SetupFunc func(ev engine.Eval) error

// Waiter serializes function evaluations against one debuggee process.
// Exactly one evaluation runs at a time on exactly one thread while every
// other thread is suspended; waits are bounded by a primary window and an
// abort grace window.
//
// The zero value is not usable; construct with New.
type Waiter struct {
	slot    resultSlot
	threads threadController
	notif   interceptor

	callMu sync.Mutex // serializes WaitEvalResult end to end

	// Request-scoped flags, reset at the start of every request and
	// written by callbacks on engine goroutines.
	canceled atomic.Bool
	crossDep atomic.Bool

	// unusable latches after a fatal abort failure.
	unusable atomic.Bool

	timeoutMu sync.Mutex
	primary   time.Duration
	grace     time.Duration

	notifType NotificationType
	handlers  Handlers
	logger    *slog.Logger
}

// Option configures a Waiter.
type Option func(*Waiter)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *Waiter) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithTimeouts overrides the primary and abort grace windows.
// Non-positive values keep the defaults.
func WithTimeouts(primary, grace time.Duration) Option {
	return func(w *Waiter) {
		if primary > 0 {
			w.primary = primary
		}
		if grace > 0 {
			w.grace = grace
		}
	}
}

// WithHandlers installs lifecycle callbacks.
func WithHandlers(h Handlers) Option {
	return func(w *Waiter) { w.handlers = h }
}

// WithNotificationType overrides the marker type names resolved by
// ResolveNotificationClass. Defaults to the CoreCLR marker.
func WithNotificationType(nt NotificationType) Option {
	return func(w *Waiter) {
		if nt.Enclosing != "" && nt.Nested != "" {
			w.notifType = nt
		}
	}
}

// New creates a Waiter with default timeouts.
func New(opts ...Option) *Waiter {
	w := &Waiter{
		primary:   DefaultPrimaryTimeout,
		grace:     DefaultAbortGraceTimeout,
		notifType: DefaultNotificationType(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.threads = threadController{logger: w.logger}
	w.notif = interceptor{slot: &w.slot, crossDep: &w.crossDep, logger: w.logger}
	return w
}

// SetTimeouts updates the wait windows for subsequent requests.
// Non-positive values leave the corresponding window unchanged. Safe for
// concurrent use; a request already waiting keeps the windows it started
// with.
func (w *Waiter) SetTimeouts(primary, grace time.Duration) {
	w.timeoutMu.Lock()
	defer w.timeoutMu.Unlock()
	if primary > 0 {
		w.primary = primary
	}
	if grace > 0 {
		w.grace = grace
	}
}

// Timeouts returns the current primary and abort grace windows.
func (w *Waiter) Timeouts() (primary, grace time.Duration) {
	w.timeoutMu.Lock()
	defer w.timeoutMu.Unlock()
	return w.primary, w.grace
}

// IsEvalRunning reports whether an evaluation is currently in flight.
// Managed callbacks consult this to skip their usual stop logic while an
// evaluation drives execution.
func (w *Waiter) IsEvalRunning() bool {
	return w.slot.armed()
}

// FindEvalForThread returns the in-flight evaluation owned by t, or nil.
func (w *Waiter) FindEvalForThread(t engine.Thread) engine.Eval {
	if t == nil {
		return nil
	}
	return w.slot.evalForThread(t.ID())
}

// CancelEvalRunning aborts the in-flight evaluation, if any: graceful
// first, rude on failure. A canceled request reports ErrEvalCanceled
// instead of ErrEvalTimeout. No-op when nothing is running.
func (w *Waiter) CancelEvalRunning() {
	ev := w.slot.active()
	if ev == nil {
		return
	}

	// Flag first: the abort's completion can land before a flag set
	// after the abort call would.
	w.canceled.Store(true)
	if err := ev.Abort(); err != nil {
		if rerr := ev.RudeAbort(); rerr != nil {
			w.canceled.Store(false)
			w.logger.Warn("cancel failed; evaluation keeps running", "error", rerr)
		}
	}
}

// NotifyEvalComplete is the engine's completion callback. A nil thread is
// the engine-level reset signal (thread or process gone): the armed
// evaluation, if any, is discarded without an outcome. Otherwise the
// outcome is read from ev now and offered to the result slot; completions
// whose thread does not own the armed evaluation are dropped.
func (w *Waiter) NotifyEvalComplete(t engine.Thread, ev engine.Eval) {
	if t == nil {
		w.slot.reset()
		return
	}

	var out Outcome
	if ev != nil {
		// Void evaluations lack a return value; they arrive here as a
		// nil value with a nil error and count as success.
		out.Value, out.Err = ev.Result()
	}
	if !w.slot.complete(t.ID(), out) {
		w.logger.Debug("completion dropped", "thread", t.ID())
	}
}

// HandleCustomNotification is the engine's custom notification callback.
// If the notifying thread owns the in-flight evaluation, the evaluation
// is aborted and the request reports ErrCantCallOnThisThread.
// Notifications from other threads, including threads created during the
// evaluation, are ignored.
func (w *Waiter) HandleCustomNotification(t engine.Thread) error {
	return w.notif.handleNotification(t)
}

// ResolveNotificationClass locates the cross-thread dependency marker
// type in mod, typically the runtime's core library. Until a class is
// resolved, delivery is never enabled and cross-thread dependencies go
// undetected. Re-resolving replaces the held class.
func (w *Waiter) ResolveNotificationClass(mod engine.Module) error {
	return w.notif.resolve(mod, w.notifType)
}

// runEval arms the result slot, prepares the evaluation and resumes the
// debuggee. There is no reliable way to abort an evaluation that was set
// up but never run, so setup happens only when everything else is ready,
// right before the resume; on setup or resume failure the slot is cleared
// and the error returned verbatim.
func (w *Waiter) runEval(proc engine.Process, threadID int, ev engine.Eval, requestID string, setup SetupFunc) (*pendingEval, error) {
	// Only one evaluation can be in flight, and the previous one must
	// have settled.
	p, err := w.slot.arm(requestID, threadID, ev)
	if err != nil {
		w.logger.Error("evaluation slot already armed", "thread", threadID)
		return nil, err
	}

	if setup != nil {
		if err := setup(ev); err != nil {
			w.logger.Error("evaluation setup failed", "request", requestID, "error", err)
			w.slot.reset()
			return nil, err
		}
	}
	if err := proc.Continue(); err != nil {
		w.logger.Error("continue failed after evaluation setup", "request", requestID, "error", err)
		w.slot.reset()
		return nil, err
	}
	return p, nil
}

// WaitEvalResult runs one function evaluation on t and blocks until it
// completed, was aborted, or the process had to be declared
// unrecoverable. setup prepares the evaluation handle before the debuggee
// resumes. The wait is always bounded. Canceling ctx aborts the
// evaluation the same way CancelEvalRunning does and the request reports
// ErrEvalCanceled.
//
// Only one WaitEvalResult executes at a time. While it runs, user code
// may execute implicitly on the evaluating thread and fire managed
// callbacks (breakpoints, exceptions); those must not pause or interrupt
// execution while IsEvalRunning reports true.
func (w *Waiter) WaitEvalResult(ctx context.Context, t engine.Thread, setup SetupFunc) (engine.Value, error) {
	if t == nil {
		return nil, errors.New("nil thread")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	w.callMu.Lock()
	defer w.callMu.Unlock()

	if w.unusable.Load() {
		return nil, ErrWaiterUnusable
	}

	proc, err := t.Process()
	if err != nil {
		return nil, fmt.Errorf("resolve process: %w", err)
	}
	threadID := t.ID()
	requestID := uuid.NewString()

	w.canceled.Store(false)
	w.crossDep.Store(false)

	w.notif.setEnabled(proc, true)

	val, timedOut, err := w.waitOutcome(ctx, proc, t, threadID, requestID, setup)

	w.notif.setEnabled(proc, false)

	switch {
	case errors.Is(err, engine.ErrEvalAborted):
		// An abort is never surfaced raw; report why it happened.
		val = nil
		switch {
		case w.crossDep.Load():
			err = ErrCantCallOnThisThread
		case w.canceled.Load():
			err = errors.Join(ErrEvalCanceled, ctx.Err())
		default:
			err = ErrEvalTimeout
		}
	case timedOut && !errors.Is(err, ErrEvalUnrecoverable):
		// A timed-out evaluation never reports success, even when a
		// result arrived during the grace window.
		val = nil
		err = ErrEvalTimeout
	}

	w.threads.setAll(proc, engine.StateRun, threadID)

	w.handlers.finished(requestID, threadID, err)
	if err != nil {
		return nil, err
	}
	return val, nil
}

// waitOutcome suspends the other threads, starts the evaluation and waits
// through the two bounded windows. The returned bool reports whether the
// primary window expired.
func (w *Waiter) waitOutcome(ctx context.Context, proc engine.Process, t engine.Thread, threadID int, requestID string, setup SetupFunc) (engine.Value, bool, error) {
	// Suspend every thread not used for the evaluation: delegates,
	// reverse p/invokes, other managed threads.
	w.threads.setAll(proc, engine.StateSuspend, threadID)

	ev, err := t.NewEval()
	if err != nil {
		return nil, false, fmt.Errorf("create evaluation: %w", err)
	}

	p, err := w.runEval(proc, threadID, ev, requestID, setup)
	if err != nil {
		return nil, false, err
	}

	w.handlers.started(requestID, threadID)
	w.logger.Debug("evaluation started", "request", requestID, "thread", threadID)

	primary, grace := w.Timeouts()

	timer := time.NewTimer(primary)
	defer timer.Stop()

	// Primary window. Context cancellation aborts the evaluation like
	// CancelEvalRunning and the wait goes on, still bounded.
	ctxDone := ctx.Done()
	completed := false
	timedOut := false
	for !completed && !timedOut {
		select {
		case <-p.done:
			completed = true
		case <-ctxDone:
			ctxDone = nil
			w.CancelEvalRunning()
		case <-timer.C:
			timedOut = true
		}
	}

	if timedOut {
		w.logger.Warn("evaluation timed out", "request", requestID, "thread", threadID, "timeout", primary)
		w.logger.Warn("to prevent an unsafe abort, all threads were allowed to run; process state may have changed and breakpoints and exceptions encountered have been skipped")
		w.handlers.timedOut(requestID, threadID)

		// Run all managed threads and try to abort at any cost,
		// errors ignored: this is the last chance to keep the
		// debugger from hanging.
		if err := proc.Stop(); err != nil {
			w.logger.Warn("process stop failed", "error", err)
		}
		w.threads.setAll(proc, engine.StateRun, threadID)

		if err := ev.Abort(); err != nil {
			_ = ev.RudeAbort()
		}

		if err := proc.Continue(); err != nil {
			w.logger.Warn("continue failed during abort escalation", "error", err)
		}

		// Give the abort a grace window to land.
		graceTimer := time.NewTimer(grace)
		defer graceTimer.Stop()
		select {
		case <-p.done:
		case <-graceTimer.C:
			// The evaluation cannot be stopped and the debuggee
			// holds inconsistent state now. Fatal for the
			// debugger.
			if err := proc.Stop(); err != nil {
				w.logger.Warn("process stop failed", "error", err)
			}
			w.slot.reset()
			w.unusable.Store(true)
			w.logger.Error("evaluation abort failed; process state is unrecoverable",
				"request", requestID, "thread", threadID)
			return nil, true, ErrEvalUnrecoverable
		}
	}

	if p.discarded {
		return nil, timedOut, ErrEvalAbandoned
	}
	out := p.outcome
	if out.Err != nil {
		return nil, timedOut, out.Err
	}
	return out.Value, timedOut, nil
}
