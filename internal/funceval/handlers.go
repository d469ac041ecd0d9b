package funceval

// Handlers carries optional lifecycle callbacks for evaluation requests.
// Callbacks are invoked synchronously from the requesting goroutine with
// no internal locks held. Nil callbacks are skipped.
type Handlers struct {
	// EvalStarted fires after the evaluation is armed and the debuggee
	// has been resumed to run it.
	EvalStarted func(requestID string, threadID int)

	// EvalTimedOut fires when the primary window expires, before the
	// abort escalation begins.
	EvalTimedOut func(requestID string, threadID int)

	// EvalFinished fires exactly once per request with the final
	// translated error, nil on success.
	EvalFinished func(requestID string, threadID int, err error)
}

func (h Handlers) started(id string, threadID int) {
	if h.EvalStarted != nil {
		h.EvalStarted(id, threadID)
	}
}

func (h Handlers) timedOut(id string, threadID int) {
	if h.EvalTimedOut != nil {
		h.EvalTimedOut(id, threadID)
	}
}

func (h Handlers) finished(id string, threadID int, err error) {
	if h.EvalFinished != nil {
		h.EvalFinished(id, threadID, err)
	}
}
