package funceval

import (
	"log/slog"

	"github.com/dshills/mrdbg/internal/engine"
)

// threadController sweeps debuggee thread run states around an
// evaluation: suspend everything except the evaluating thread before the
// run, release everything after.
type threadController struct {
	logger *slog.Logger
}

// setAll sets every debuggee thread to state, skipping exceptID. The
// sweep is best effort: a per-thread failure is logged and the sweep
// moves on, so every thread gets visited.
func (c *threadController) setAll(proc engine.Process, state engine.RunState, exceptID int) {
	threads, err := proc.Threads()
	if err != nil {
		c.logger.Warn("thread enumeration failed", "error", err)
		return
	}

	for _, t := range threads {
		if t.ID() == exceptID {
			continue
		}
		err := t.SetRunState(state)
		if err == nil {
			continue
		}
		if state == engine.StateSuspend {
			c.logger.Warn("thread suspend during eval setup failed; breakpoints and exceptions on it may be skipped",
				"thread", t.ID(), "error", err)
		} else {
			c.logger.Warn("thread resume after eval failed; process state was not restored",
				"thread", t.ID(), "error", err)
		}
	}
}
