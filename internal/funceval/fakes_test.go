package funceval

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dshills/mrdbg/internal/engine"
)

// fakeValue is a minimal engine.Value for tests.
type fakeValue struct {
	typ string
	str string
}

func (v fakeValue) Type() string   { return v.typ }
func (v fakeValue) String() string { return v.str }

// fakeEval is a scriptable engine.Eval. The onAbort/onRudeAbort hooks run
// synchronously inside the corresponding call when the call succeeds,
// which lets tests deliver completions at exact points without sleeping.
type fakeEval struct {
	mu           sync.Mutex
	abortErr     error
	rudeAbortErr error
	abortCalls   int
	rudeCalls    int
	onAbort      func()
	onRudeAbort  func()

	result    engine.Value
	resultErr error
}

func (e *fakeEval) Abort() error {
	e.mu.Lock()
	e.abortCalls++
	err := e.abortErr
	hook := e.onAbort
	e.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook()
	}
	return nil
}

func (e *fakeEval) RudeAbort() error {
	e.mu.Lock()
	e.rudeCalls++
	err := e.rudeAbortErr
	hook := e.onRudeAbort
	e.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook()
	}
	return nil
}

func (e *fakeEval) Result() (engine.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result, e.resultErr
}

func (e *fakeEval) aborts() (graceful, rude int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.abortCalls, e.rudeCalls
}

// fakeThread is a scriptable engine.Thread that records run state sweeps.
type fakeThread struct {
	id   int
	proc *fakeProcess

	procErr    error
	stateErr   error
	newEvalErr error

	// eval, when set, is returned by every NewEval call; otherwise a
	// fresh fakeEval is created per call.
	eval *fakeEval

	mu     sync.Mutex
	states []engine.RunState
	evals  []*fakeEval
}

func (t *fakeThread) ID() int { return t.id }

func (t *fakeThread) Process() (engine.Process, error) {
	if t.procErr != nil {
		return nil, t.procErr
	}
	return t.proc, nil
}

func (t *fakeThread) SetRunState(s engine.RunState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stateErr != nil {
		return t.stateErr
	}
	t.states = append(t.states, s)
	return nil
}

func (t *fakeThread) NewEval() (engine.Eval, error) {
	if t.newEvalErr != nil {
		return nil, t.newEvalErr
	}
	e := t.eval
	if e == nil {
		e = &fakeEval{}
	}
	t.mu.Lock()
	t.evals = append(t.evals, e)
	t.mu.Unlock()
	return e, nil
}

func (t *fakeThread) runStates() []engine.RunState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]engine.RunState, len(t.states))
	copy(out, t.states)
	return out
}

func (t *fakeThread) lastEval() *fakeEval {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.evals) == 0 {
		return nil
	}
	return t.evals[len(t.evals)-1]
}

// notifyToggle records one SetNotificationDelivery call.
type notifyToggle struct {
	cls     engine.Class
	enabled bool
}

// fakeProcess is a scriptable engine.Process. The onContinue hook runs
// synchronously inside a successful Continue call.
type fakeProcess struct {
	id int

	threadsErr  error
	continueErr error
	stopErr     error
	notifyErr   error

	onContinue func()

	mu            sync.Mutex
	threads       []*fakeThread
	continueCalls int
	stopCalls     int
	toggles       []notifyToggle
}

func (p *fakeProcess) ID() int { return p.id }

func (p *fakeProcess) Threads() ([]engine.Thread, error) {
	if p.threadsErr != nil {
		return nil, p.threadsErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]engine.Thread, len(p.threads))
	for i, t := range p.threads {
		out[i] = t
	}
	return out, nil
}

func (p *fakeProcess) Continue() error {
	p.mu.Lock()
	p.continueCalls++
	p.mu.Unlock()

	if p.continueErr != nil {
		return p.continueErr
	}
	if p.onContinue != nil {
		p.onContinue()
	}
	return nil
}

func (p *fakeProcess) Stop() error {
	p.mu.Lock()
	p.stopCalls++
	p.mu.Unlock()
	return p.stopErr
}

func (p *fakeProcess) SetNotificationDelivery(cls engine.Class, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.notifyErr != nil {
		return p.notifyErr
	}
	p.toggles = append(p.toggles, notifyToggle{cls: cls, enabled: enabled})
	return nil
}

func (p *fakeProcess) continues() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.continueCalls
}

func (p *fakeProcess) stops() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopCalls
}

func (p *fakeProcess) notifyToggles() []notifyToggle {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notifyToggle, len(p.toggles))
	copy(out, p.toggles)
	return out
}

// fakeClass is a minimal engine.Class.
type fakeClass struct {
	tok engine.TypeToken
}

func (c fakeClass) Token() engine.TypeToken { return c.tok }

// typeKey scopes a type name to its enclosing token.
type typeKey struct {
	name      string
	enclosing engine.TypeToken
}

// fakeModule is a scriptable engine.Module with a flat type table.
type fakeModule struct {
	name     string
	types    map[typeKey]engine.TypeToken
	classErr error
}

func (m *fakeModule) Name() string { return m.name }

func (m *fakeModule) FindType(name string, enclosing engine.TypeToken) (engine.TypeToken, error) {
	tok, ok := m.types[typeKey{name: name, enclosing: enclosing}]
	if !ok {
		return engine.TypeTokenNil, engine.ErrTypeNotFound
	}
	return tok, nil
}

func (m *fakeModule) ClassFromToken(tok engine.TypeToken) (engine.Class, error) {
	if m.classErr != nil {
		return nil, m.classErr
	}
	return fakeClass{tok: tok}, nil
}

// newCoreLibModule builds a module carrying the default CoreCLR marker
// type at the given nested token.
func newCoreLibModule(nested engine.TypeToken) *fakeModule {
	nt := DefaultNotificationType()
	return &fakeModule{
		name: "System.Private.CoreLib.dll",
		types: map[typeKey]engine.TypeToken{
			{name: nt.Enclosing, enclosing: engine.TypeTokenNil}: 0x02000010,
			{name: nt.Nested, enclosing: 0x02000010}:             nested,
		},
	}
}

// newFakeTarget builds a process whose first thread id is evalID and
// whose remaining threads get the other ids. It returns the process and
// the evaluating thread.
func newFakeTarget(evalID int, otherIDs ...int) (*fakeProcess, *fakeThread) {
	proc := &fakeProcess{id: 1000}
	evalThread := &fakeThread{id: evalID, proc: proc}
	proc.threads = append(proc.threads, evalThread)
	for _, id := range otherIDs {
		proc.threads = append(proc.threads, &fakeThread{id: id, proc: proc})
	}
	return proc, evalThread
}

// discardLogger returns a logger that swallows everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestWaiter builds a Waiter with a quiet logger and short windows so
// timeout paths run in tens of milliseconds. Additional options override.
func newTestWaiter(t *testing.T, opts ...Option) *Waiter {
	t.Helper()
	base := []Option{
		WithLogger(discardLogger()),
		WithTimeouts(100*time.Millisecond, 100*time.Millisecond),
	}
	return New(append(base, opts...)...)
}
