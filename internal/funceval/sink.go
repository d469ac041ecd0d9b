package funceval

import "github.com/dshills/mrdbg/internal/engine"

// Sink adapts a Waiter to the engine's callback interface. Evaluation
// exceptions route to the same completion path as normal completions, and
// process exit discards any in-flight evaluation.
func Sink(w *Waiter) engine.CallbackSink {
	return sink{w: w}
}

type sink struct {
	w *Waiter
}

func (s sink) EvalComplete(t engine.Thread, e engine.Eval) {
	s.w.NotifyEvalComplete(t, e)
}

func (s sink) EvalException(t engine.Thread, e engine.Eval) {
	s.w.NotifyEvalComplete(t, e)
}

func (s sink) CustomNotification(t engine.Thread) {
	_ = s.w.HandleCustomNotification(t)
}

func (s sink) ProcessExit(engine.Process) {
	s.w.NotifyEvalComplete(nil, nil)
}
