package funceval

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dshills/mrdbg/internal/engine"
)

// NotificationType names the runtime marker type whose instantiation
// tells the debugger that evaluated code is about to depend on another
// thread. The nested type is looked up inside the enclosing one.
type NotificationType struct {
	Enclosing string
	Nested    string
}

// DefaultNotificationType is the CoreCLR cross-thread dependency marker.
func DefaultNotificationType() NotificationType {
	return NotificationType{
		Enclosing: "System.Diagnostics.Debugger",
		Nested:    "CrossThreadDependencyNotification",
	}
}

// interceptor resolves the cross-thread dependency marker class and
// aborts the armed evaluation when the runtime raises a notification for
// it. Evaluated code blocking on a suspended thread would otherwise
// deadlock the debuggee.
type interceptor struct {
	slot     *resultSlot
	crossDep *atomic.Bool
	logger   *slog.Logger

	mu    sync.Mutex
	class engine.Class
}

// resolve performs the two-level metadata lookup for nt in mod and keeps
// the class handle. Re-resolving, for example after a module reload,
// replaces the previously held class.
func (ic *interceptor) resolve(mod engine.Module, nt NotificationType) error {
	// No recursive walk over enclosing types: the marker's shape is
	// known, the enclosing type is top level.
	enclosing, err := mod.FindType(nt.Enclosing, engine.TypeTokenNil)
	if err != nil {
		return fmt.Errorf("find type %s: %w", nt.Enclosing, err)
	}
	nested, err := mod.FindType(nt.Nested, enclosing)
	if err != nil {
		return fmt.Errorf("find type %s.%s: %w", nt.Enclosing, nt.Nested, err)
	}
	cls, err := mod.ClassFromToken(nested)
	if err != nil {
		return fmt.Errorf("class from token %#x: %w", uint32(nested), err)
	}

	ic.mu.Lock()
	ic.class = cls
	ic.mu.Unlock()
	return nil
}

// resolved reports whether a marker class is held.
func (ic *interceptor) resolved() bool {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.class != nil
}

// setEnabled toggles delivery of the resolved marker class. Without a
// resolved class this is a no-op; failures are logged, not fatal.
func (ic *interceptor) setEnabled(proc engine.Process, enabled bool) {
	ic.mu.Lock()
	cls := ic.class
	ic.mu.Unlock()

	if cls == nil {
		return
	}
	if err := proc.SetNotificationDelivery(cls, enabled); err != nil {
		ic.logger.Warn("notification delivery toggle failed", "enabled", enabled, "error", err)
	}
}

// handleNotification aborts the evaluation armed for t, if any, and marks
// the cross-thread dependency flag so the request reports
// ErrCantCallOnThisThread instead of a bare abort. Notifications for
// threads with no armed evaluation are ignored; that covers threads
// created by the evaluation itself.
func (ic *interceptor) handleNotification(t engine.Thread) error {
	if t == nil {
		return nil
	}
	ev := ic.slot.evalForThread(t.ID())
	if ev == nil {
		return nil
	}

	// Flag first: the abort's completion can land before a flag set
	// after the abort call would.
	ic.crossDep.Store(true)
	if err := ev.Abort(); err != nil {
		rerr := ev.RudeAbort()
		if rerr != nil {
			ic.crossDep.Store(false)
			ic.logger.Error("could not abort evaluation in notification callback",
				"thread", t.ID(), "error", rerr)
			return rerr
		}
	}
	return nil
}
