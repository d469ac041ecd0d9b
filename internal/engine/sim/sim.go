package sim

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dshills/mrdbg/internal/engine"
)

// Compile-time checks that the simulator satisfies the engine contract.
var (
	_ engine.Process = (*Process)(nil)
	_ engine.Thread  = (*Thread)(nil)
	_ engine.Eval    = (*Eval)(nil)
	_ engine.Value   = (*Value)(nil)
	_ engine.Module  = (*Module)(nil)
	_ engine.Class   = (*Class)(nil)
)

var nextPID atomic.Int64

func init() { nextPID.Store(1000) }

// Process is a simulated debuggee process.
type Process struct {
	id     int
	sink   engine.CallbackSink
	logger *slog.Logger

	mu       sync.Mutex
	threads  []*Thread
	library  map[string]Behavior
	running  bool
	closed   bool
	notifyOn map[engine.TypeToken]bool

	events  chan func(engine.CallbackSink)
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Process.
type Option func(*Process)

// WithSink sets the callback sink receiving engine events.
func WithSink(s engine.CallbackSink) Option {
	return func(p *Process) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithLogger sets the process logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Process) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPID overrides the assigned process id.
func WithPID(pid int) Option {
	return func(p *Process) { p.id = pid }
}

// WithThreads sets the number of simulated threads. The default is two.
func WithThreads(n int) Option {
	return func(p *Process) {
		if n < 1 {
			return
		}
		p.threads = p.threads[:0]
		for i := 0; i < n; i++ {
			p.threads = append(p.threads, &Thread{id: i + 1, proc: p})
		}
	}
}

// WithFunction adds one function to the scenario library.
func WithFunction(name string, b Behavior) Option {
	return func(p *Process) { p.library[name] = b }
}

// WithLibrary adds every function in the map to the scenario library.
func WithLibrary(library map[string]Behavior) Option {
	return func(p *Process) {
		for name, b := range library {
			p.library[name] = b
		}
	}
}

// NewProcess creates a simulated process. It starts stopped, as if the
// debugger were at a breakpoint.
func NewProcess(opts ...Option) *Process {
	p := &Process{
		id:       int(nextPID.Add(1)),
		sink:     engine.NopSink{},
		logger:   slog.Default(),
		library:  make(map[string]Behavior),
		notifyOn: make(map[engine.TypeToken]bool),
		events:   make(chan func(engine.CallbackSink), 16),
		closeCh:  make(chan struct{}),
	}
	WithThreads(2)(p)
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(1)
	go p.dispatchLoop()
	return p
}

// FromScenario builds a process from a loaded scenario. Later options
// override the scenario's topology.
func FromScenario(sc *Scenario, opts ...Option) *Process {
	base := []Option{WithThreads(sc.Threads), WithLibrary(sc.Library)}
	return NewProcess(append(base, opts...)...)
}

// ID returns the simulated process id.
func (p *Process) ID() int { return p.id }

// Threads enumerates the process's threads.
func (p *Process) Threads() ([]engine.Thread, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	threads := make([]engine.Thread, len(p.threads))
	for i, t := range p.threads {
		threads[i] = t
	}
	return threads, nil
}

// Continue resumes the process. Pending evaluations on runnable threads
// start executing.
func (p *Process) Continue() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.running = true
	var starts []*Eval
	for _, t := range p.threads {
		if ev := t.takePending(); ev != nil {
			starts = append(starts, ev)
			p.wg.Add(1) // balanced in Eval.start
		}
	}
	p.mu.Unlock()

	p.logger.Debug("process continued", "pid", p.id, "starting", len(starts))
	for _, ev := range starts {
		ev.start()
	}
	return nil
}

// Stop synchronizes the process.
func (p *Process) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.running = false
	p.logger.Debug("process stopped", "pid", p.id)
	return nil
}

// Running reports whether the process is currently resumed.
func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running && !p.closed
}

// SetNotificationDelivery toggles delivery of custom runtime
// notifications for the class.
func (p *Process) SetNotificationDelivery(cls engine.Class, enabled bool) error {
	if cls == nil {
		return fmt.Errorf("nil notification class")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.notifyOn[cls.Token()] = enabled
	p.logger.Debug("notification delivery toggled",
		"pid", p.id, "class", fmt.Sprintf("0x%08x", uint32(cls.Token())), "enabled", enabled)
	return nil
}

// notificationsEnabled reports whether any class has delivery enabled.
// The simulator models a single notification kind.
func (p *Process) notificationsEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, on := range p.notifyOn {
		if on {
			return true
		}
	}
	return false
}

// Exit terminates the debuggee. In-flight evaluations never complete;
// the sink receives ProcessExit.
func (p *Process) Exit() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.running = false
	p.mu.Unlock()

	p.logger.Info("simulated process exited", "pid", p.id)
	p.dispatch(func(s engine.CallbackSink) { s.ProcessExit(p) })
	close(p.closeCh)
}

// Close detaches from the process without an exit event. It is safe to
// call after Exit.
func (p *Process) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.running = false
	p.mu.Unlock()

	close(p.closeCh)
	p.wg.Wait()
	return nil
}

func (p *Process) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Process) lookupFunction(name string) (Behavior, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.library[name]
	if !ok {
		return Behavior{}, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	return b, nil
}

// dispatch queues an event for the sink. Events queued before process
// close are delivered; later ones are dropped.
func (p *Process) dispatch(fn func(engine.CallbackSink)) {
	select {
	case p.events <- fn:
	case <-p.closeCh:
	}
}

// dispatchLoop delivers events to the sink one at a time, draining the
// queue on shutdown.
func (p *Process) dispatchLoop() {
	defer p.wg.Done()
	for {
		select {
		case fn := <-p.events:
			fn(p.sink)
		case <-p.closeCh:
			for {
				select {
				case fn := <-p.events:
					fn(p.sink)
				default:
					return
				}
			}
		}
	}
}

// Thread is a simulated managed thread.
type Thread struct {
	id   int
	proc *Process

	mu      sync.Mutex
	state   engine.RunState
	pending *Eval
}

// ID returns the thread id.
func (t *Thread) ID() int { return t.id }

// Process returns the owning process.
func (t *Thread) Process() (engine.Process, error) {
	if t.proc.isClosed() {
		return nil, engine.ErrNoProcess
	}
	return t.proc, nil
}

// SetRunState parks or releases the thread for subsequent resumes.
func (t *Thread) SetRunState(state engine.RunState) error {
	if t.proc.isClosed() {
		return ErrClosed
	}
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
	return nil
}

// RunState returns the thread's current scheduling state.
func (t *Thread) RunState() engine.RunState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// NewEval creates a pending evaluation bound to this thread.
func (t *Thread) NewEval() (engine.Eval, error) {
	if t.proc.isClosed() {
		return nil, ErrClosed
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		return nil, ErrEvalPending
	}
	ev := newEval(t)
	t.pending = ev
	return ev, nil
}

// takePending hands the pending evaluation to the caller when the
// thread is runnable. Called with the process lock held.
func (t *Thread) takePending() *Eval {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != engine.StateRun || t.pending == nil {
		return nil
	}
	ev := t.pending
	t.pending = nil
	return ev
}
