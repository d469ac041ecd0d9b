package funceval

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/dshills/mrdbg/internal/engine"
)

func newTestInterceptor() (*interceptor, *resultSlot, *atomic.Bool) {
	slot := &resultSlot{}
	flag := &atomic.Bool{}
	ic := &interceptor{
		slot:     slot,
		crossDep: flag,
		logger:   discardLogger(),
	}
	return ic, slot, flag
}

func TestDefaultNotificationType(t *testing.T) {
	nt := DefaultNotificationType()
	if nt.Enclosing != "System.Diagnostics.Debugger" {
		t.Errorf("Enclosing = %q", nt.Enclosing)
	}
	if nt.Nested != "CrossThreadDependencyNotification" {
		t.Errorf("Nested = %q", nt.Nested)
	}
}

func TestInterceptorResolve(t *testing.T) {
	ic, _, _ := newTestInterceptor()
	mod := newCoreLibModule(0x02000042)

	if ic.resolved() {
		t.Fatal("resolved() = true before resolve")
	}
	if err := ic.resolve(mod, DefaultNotificationType()); err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if !ic.resolved() {
		t.Fatal("resolved() = false after resolve")
	}
	if got := ic.class.Token(); got != 0x02000042 {
		t.Errorf("class token = %#x, want 0x02000042", uint32(got))
	}
}

func TestInterceptorResolveReplacesClass(t *testing.T) {
	ic, _, _ := newTestInterceptor()

	if err := ic.resolve(newCoreLibModule(0x02000042), DefaultNotificationType()); err != nil {
		t.Fatalf("first resolve() error = %v", err)
	}
	if err := ic.resolve(newCoreLibModule(0x02000077), DefaultNotificationType()); err != nil {
		t.Fatalf("second resolve() error = %v", err)
	}
	if got := ic.class.Token(); got != 0x02000077 {
		t.Errorf("class token = %#x, want the re-resolved 0x02000077", uint32(got))
	}
}

func TestInterceptorResolveErrors(t *testing.T) {
	nt := DefaultNotificationType()

	tests := []struct {
		name string
		mod  *fakeModule
	}{
		{
			name: "missing enclosing type",
			mod:  &fakeModule{name: "other.dll", types: map[typeKey]engine.TypeToken{}},
		},
		{
			name: "missing nested type",
			mod: &fakeModule{
				name: "partial.dll",
				types: map[typeKey]engine.TypeToken{
					{name: nt.Enclosing, enclosing: engine.TypeTokenNil}: 0x02000010,
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ic, _, _ := newTestInterceptor()
			err := ic.resolve(tt.mod, nt)
			if !errors.Is(err, engine.ErrTypeNotFound) {
				t.Errorf("resolve() error = %v, want ErrTypeNotFound", err)
			}
			if ic.resolved() {
				t.Error("resolved() = true after failed resolve")
			}
		})
	}

	t.Run("class materialization failure", func(t *testing.T) {
		ic, _, _ := newTestInterceptor()
		mod := newCoreLibModule(0x02000042)
		mod.classErr = errors.New("metadata import failed")
		if err := ic.resolve(mod, nt); !errors.Is(err, mod.classErr) {
			t.Errorf("resolve() error = %v, want the module's error", err)
		}
	})
}

func TestInterceptorSetEnabled(t *testing.T) {
	ic, _, _ := newTestInterceptor()
	proc, _ := newFakeTarget(1)

	// Without a resolved class nothing is toggled.
	ic.setEnabled(proc, true)
	if got := proc.notifyToggles(); len(got) != 0 {
		t.Fatalf("toggles without class = %v", got)
	}

	if err := ic.resolve(newCoreLibModule(0x02000042), DefaultNotificationType()); err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	ic.setEnabled(proc, true)
	ic.setEnabled(proc, false)

	got := proc.notifyToggles()
	if len(got) != 2 || !got[0].enabled || got[1].enabled {
		t.Fatalf("toggles = %+v, want [enable disable]", got)
	}
	if got[0].cls.Token() != 0x02000042 {
		t.Errorf("toggle class token = %#x", uint32(got[0].cls.Token()))
	}

	// A failing toggle is logged, not fatal.
	proc.notifyErr = errors.New("delivery not supported")
	ic.setEnabled(proc, true)
}

func TestHandleNotificationIgnoresForeignThreads(t *testing.T) {
	ic, slot, flag := newTestInterceptor()
	_, evalThread := newFakeTarget(1, 2)
	other := &fakeThread{id: 2}

	// No armed evaluation at all.
	if err := ic.handleNotification(evalThread); err != nil {
		t.Fatalf("handleNotification() error = %v", err)
	}
	if flag.Load() {
		t.Error("cross-thread flag set with no armed evaluation")
	}

	ev := &fakeEval{}
	if _, err := slot.arm("req-1", 1, ev); err != nil {
		t.Fatalf("arm() error = %v", err)
	}

	// Armed, but the notification came from a thread that does not own
	// the evaluation (for example a thread created by the evaluation).
	if err := ic.handleNotification(other); err != nil {
		t.Fatalf("handleNotification() error = %v", err)
	}
	if g, r := ev.aborts(); g != 0 || r != 0 {
		t.Errorf("foreign notification aborted the evaluation: graceful=%d rude=%d", g, r)
	}
	if flag.Load() {
		t.Error("cross-thread flag set by a foreign notification")
	}

	if err := ic.handleNotification(nil); err != nil {
		t.Errorf("handleNotification(nil) error = %v", err)
	}
}

func TestHandleNotificationAborts(t *testing.T) {
	tests := []struct {
		name     string
		abortErr error
		rudeErr  error
		wantErr  bool
		wantFlag bool
		wantRude int
	}{
		{name: "graceful abort", wantFlag: true},
		{name: "rude abort fallback", abortErr: errors.New("abort refused"), wantFlag: true, wantRude: 1},
		{name: "both fail", abortErr: errors.New("abort refused"), rudeErr: errors.New("rude refused"), wantErr: true, wantRude: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ic, slot, flag := newTestInterceptor()
			_, evalThread := newFakeTarget(1)
			ev := &fakeEval{abortErr: tt.abortErr, rudeAbortErr: tt.rudeErr}
			if _, err := slot.arm("req-1", 1, ev); err != nil {
				t.Fatalf("arm() error = %v", err)
			}

			err := ic.handleNotification(evalThread)
			if tt.wantErr && err == nil {
				t.Error("handleNotification() error = nil, want failure")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("handleNotification() error = %v", err)
			}
			if flag.Load() != tt.wantFlag {
				t.Errorf("cross-thread flag = %v, want %v", flag.Load(), tt.wantFlag)
			}
			if g, r := ev.aborts(); g != 1 || r != tt.wantRude {
				t.Errorf("aborts: graceful=%d rude=%d, want graceful=1 rude=%d", g, r, tt.wantRude)
			}
		})
	}
}
