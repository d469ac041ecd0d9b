package sim

import (
	"sync"
	"time"

	"github.com/dshills/mrdbg/internal/engine"
)

// AbortMode is how a simulated call responds to abort requests.
type AbortMode int

const (
	// AbortHonored accepts both graceful and rude aborts.
	AbortHonored AbortMode = iota

	// AbortRudeOnly refuses graceful aborts but accepts rude ones.
	AbortRudeOnly

	// AbortIgnored refuses every abort request. A hanging call with this
	// mode can only be ended by process exit.
	AbortIgnored
)

// String returns the scenario-file name of the mode.
func (m AbortMode) String() string {
	switch m {
	case AbortHonored:
		return "honored"
	case AbortRudeOnly:
		return "rude_only"
	case AbortIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Behavior describes how a simulated call behaves once started.
type Behavior struct {
	// Duration is how long the call runs before completing. Ignored when
	// Hangs is set.
	Duration time.Duration

	// Hangs keeps the call running until it is aborted or the process
	// exits.
	Hangs bool

	// ResultType and Result describe the value returned on natural
	// completion. An empty ResultType completes as void.
	ResultType string
	Result     string

	// ThrowsType and ThrowsMessage terminate the call with an unhandled
	// exception instead of a result.
	ThrowsType    string
	ThrowsMessage string

	// Notifies raises a cross-thread dependency notification NotifyAfter
	// into the call, provided notification delivery is enabled.
	Notifies    bool
	NotifyAfter time.Duration

	// AbortMode is the call's response to abort requests.
	AbortMode AbortMode

	// ExitsProcess terminates the whole debuggee when the call would
	// complete. The evaluation itself never reports an outcome.
	ExitsProcess bool
}

// defaultBehavior is the binding for evaluations started without
// PrepareCall: a short void call.
func defaultBehavior() Behavior {
	return Behavior{Duration: time.Millisecond}
}

// Value is a simulated result value.
type Value struct {
	typeName string
	display  string
}

// Type returns the runtime type name of the value.
func (v *Value) Type() string { return v.typeName }

// String renders the value for display.
func (v *Value) String() string { return v.display }

type evalState int

const (
	evalPending evalState = iota
	evalRunning
	evalDone
)

// Eval is a simulated function evaluation on one thread.
type Eval struct {
	thread *Thread
	proc   *Process

	mu       sync.Mutex
	state    evalState
	prepared bool
	fn       string
	behavior Behavior
	val      engine.Value
	err      error

	abortCh   chan struct{}
	abortOnce sync.Once
}

func newEval(t *Thread) *Eval {
	return &Eval{
		thread:   t,
		proc:     t.proc,
		fn:       "<unbound>",
		behavior: defaultBehavior(),
		abortCh:  make(chan struct{}),
	}
}

// PrepareCall binds an evaluation handle to a function from the
// scenario library. It must be called before the process is resumed.
func PrepareCall(ev engine.Eval, fn string) error {
	e, ok := ev.(*Eval)
	if !ok {
		return ErrForeignEval
	}
	return e.prepare(fn)
}

func (e *Eval) prepare(fn string) error {
	b, err := e.proc.lookupFunction(fn)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.prepared || e.state != evalPending {
		return ErrEvalPrepared
	}
	e.prepared = true
	e.fn = fn
	e.behavior = b
	return nil
}

// Abort requests a graceful abort.
func (e *Eval) Abort() error { return e.requestAbort(false) }

// RudeAbort forces the abort without letting the call unwind.
func (e *Eval) RudeAbort() error { return e.requestAbort(true) }

func (e *Eval) requestAbort(rude bool) error {
	e.mu.Lock()
	if e.state == evalDone {
		e.mu.Unlock()
		return ErrEvalCompleted
	}
	fn, mode := e.fn, e.behavior.AbortMode
	if mode == AbortIgnored || (!rude && mode == AbortRudeOnly) {
		e.mu.Unlock()
		e.proc.logger.Debug("abort refused",
			"function", fn, "thread", e.thread.id, "rude", rude, "mode", mode.String())
		return ErrAbortRefused
	}
	started := e.state == evalRunning
	e.mu.Unlock()

	e.abortOnce.Do(func() { close(e.abortCh) })
	if !started {
		// Never ran; complete the abort right away.
		e.finish(nil, engine.ErrEvalAborted, false)
	}
	return nil
}

// Result reports the outcome once the completion callback has been
// delivered for this evaluation.
func (e *Eval) Result() (engine.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != evalDone {
		return nil, ErrEvalIncomplete
	}
	return e.val, e.err
}

// start transitions the evaluation to running and launches its call.
// Called by Process.Continue once the owning thread is runnable; the
// process wait group was incremented on its behalf.
func (e *Eval) start() {
	e.mu.Lock()
	if e.state != evalPending {
		// Aborted before it ever ran.
		e.mu.Unlock()
		e.proc.wg.Done()
		return
	}
	e.state = evalRunning
	e.mu.Unlock()

	go e.run()
}

func (e *Eval) run() {
	defer e.proc.wg.Done()

	b := e.behavior
	e.proc.logger.Debug("call started",
		"function", e.fn, "thread", e.thread.id, "hangs", b.Hangs)

	var completeC <-chan time.Time
	if !b.Hangs {
		done := time.NewTimer(b.Duration)
		defer done.Stop()
		completeC = done.C
	}
	var notifyC <-chan time.Time
	if b.Notifies {
		notify := time.NewTimer(b.NotifyAfter)
		defer notify.Stop()
		notifyC = notify.C
	}

	for {
		select {
		case <-e.abortCh:
			e.proc.logger.Debug("call aborted", "function", e.fn, "thread", e.thread.id)
			e.finish(nil, engine.ErrEvalAborted, false)
			return

		case <-notifyC:
			notifyC = nil
			if e.proc.notificationsEnabled() {
				e.proc.logger.Debug("cross-thread dependency notification raised",
					"function", e.fn, "thread", e.thread.id)
				t := e.thread
				e.proc.dispatch(func(s engine.CallbackSink) { s.CustomNotification(t) })
			}

		case <-completeC:
			if b.ExitsProcess {
				e.proc.logger.Debug("call exiting process", "function", e.fn)
				e.proc.Exit()
				return
			}
			switch {
			case b.ThrowsType != "":
				e.finish(nil, &ThrownError{TypeName: b.ThrowsType, Message: b.ThrowsMessage}, true)
			case b.ResultType != "":
				e.finish(&Value{typeName: b.ResultType, display: b.Result}, nil, false)
			default:
				e.finish(nil, nil, false)
			}
			return

		case <-e.proc.closeCh:
			return
		}
	}
}

// finish records the outcome once and delivers the completion callback.
func (e *Eval) finish(val engine.Value, err error, exception bool) {
	e.mu.Lock()
	if e.state == evalDone {
		e.mu.Unlock()
		return
	}
	e.state = evalDone
	e.val, e.err = val, err
	e.mu.Unlock()

	t, ev := e.thread, e
	if exception {
		e.proc.dispatch(func(s engine.CallbackSink) { s.EvalException(t, ev) })
	} else {
		e.proc.dispatch(func(s engine.CallbackSink) { s.EvalComplete(t, ev) })
	}
}
