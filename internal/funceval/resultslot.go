package funceval

import (
	"sync"

	"github.com/dshills/mrdbg/internal/engine"
)

// Outcome is the engine-reported result of a completed evaluation. A nil
// Value with a nil Err is the successful outcome of a void evaluation.
type Outcome struct {
	Value engine.Value
	Err   error
}

// pendingEval pairs one in-flight evaluation with the thread that owns
// it. The done channel closes exactly once: either the outcome was set
// (fulfilled) or the evaluation was discarded by an engine-level reset.
type pendingEval struct {
	id       string
	threadID int
	eval     engine.Eval

	done      chan struct{}
	closeOnce sync.Once

	// outcome and discarded are written before done closes and read
	// only after it closes.
	outcome   Outcome
	discarded bool
}

func (p *pendingEval) fulfill(out Outcome) {
	p.closeOnce.Do(func() {
		p.outcome = out
		close(p.done)
	})
}

func (p *pendingEval) discard() {
	p.closeOnce.Do(func() {
		p.discarded = true
		close(p.done)
	})
}

// resultSlot holds at most one pending evaluation per process. The mutex
// guards only slot manipulation; it is never held across an engine call
// or a wait.
type resultSlot struct {
	mu      sync.Mutex
	pending *pendingEval
}

// arm registers a new pending evaluation owned by threadID. It fails
// with ErrEvalInProgress if one is already armed: there can be only one
// evaluation in flight, and the previous one must have settled.
func (s *resultSlot) arm(id string, threadID int, ev engine.Eval) (*pendingEval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return nil, ErrEvalInProgress
	}
	p := &pendingEval{
		id:       id,
		threadID: threadID,
		eval:     ev,
		done:     make(chan struct{}),
	}
	s.pending = p
	return p, nil
}

// complete fulfills the armed evaluation with out and clears the slot,
// but only when threadID matches the armed owner. Stale and foreign
// completions are dropped; complete reports whether the outcome was
// accepted.
func (s *resultSlot) complete(threadID int, out Outcome) bool {
	s.mu.Lock()
	p := s.pending
	if p == nil || p.threadID != threadID {
		s.mu.Unlock()
		return false
	}
	s.pending = nil
	s.mu.Unlock()

	p.fulfill(out)
	return true
}

// reset clears the slot without fulfilling. A waiter blocked on the
// pending evaluation observes the discard and must treat the request as
// abandoned, never as success.
func (s *resultSlot) reset() {
	s.mu.Lock()
	p := s.pending
	s.pending = nil
	s.mu.Unlock()

	if p != nil {
		p.discard()
	}
}

// evalForThread returns the armed evaluation handle if threadID owns it.
func (s *resultSlot) evalForThread(threadID int) engine.Eval {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil || s.pending.threadID != threadID {
		return nil
	}
	return s.pending.eval
}

// active returns the armed evaluation handle regardless of owner.
func (s *resultSlot) active() engine.Eval {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return nil
	}
	return s.pending.eval
}

// armed reports whether an evaluation is in flight.
func (s *resultSlot) armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}
