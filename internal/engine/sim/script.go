package sim

import (
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultScenarioThreads is the thread count for scenarios that do not
// declare a process block.
const DefaultScenarioThreads = 2

// Scenario describes a simulated debuggee: its thread count and the
// library of functions evaluations may call.
type Scenario struct {
	Threads int
	Library map[string]Behavior
}

// LoadScenario executes a Lua scenario file and collects the debuggee
// it declares. Scenario scripts call sim.process to size the process
// and sim.fn to add callable functions:
//
//	sim.process{ threads = 3 }
//	sim.fn("Calc.Sum", { duration_ms = 40,
//	                     result = { type = "System.Int32", value = "42" } })
//	sim.fn("Calc.Deadlock", { hangs = true, notify_after_ms = 25 })
func LoadScenario(path string) (*Scenario, error) {
	return loadScenario(path, func(L *lua.LState) error {
		return L.DoFile(path)
	})
}

// ParseScenario is LoadScenario for in-memory scripts.
func ParseScenario(src string) (*Scenario, error) {
	return loadScenario("<string>", func(L *lua.LState) error {
		return L.DoString(src)
	})
}

func loadScenario(source string, run func(*lua.LState) error) (*Scenario, error) {
	sc := &Scenario{
		Threads: DefaultScenarioThreads,
		Library: make(map[string]Behavior),
	}

	// Scenario scripts get the safe core libraries only; no io, os,
	// debug, or package access.
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"process": func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			if n, ok := tableInt(tbl, "threads"); ok {
				if n < 1 {
					L.RaiseError("threads must be at least 1, got %d", n)
				}
				sc.Threads = n
			}
			return 0
		},
		"fn": func(L *lua.LState) int {
			name := L.CheckString(1)
			tbl := L.CheckTable(2)
			if _, dup := sc.Library[name]; dup {
				L.RaiseError("function %s defined twice", name)
			}
			b, err := behaviorFromTable(tbl)
			if err != nil {
				L.RaiseError("function %s: %s", name, err.Error())
			}
			sc.Library[name] = b
			return 0
		},
	})
	L.SetGlobal("sim", mod)

	if err := run(L); err != nil {
		return nil, fmt.Errorf("loading scenario %s: %w", source, err)
	}
	return sc, nil
}

func behaviorFromTable(tbl *lua.LTable) (Behavior, error) {
	b := defaultBehavior()

	if ms, ok := tableInt(tbl, "duration_ms"); ok {
		if ms < 0 {
			return b, fmt.Errorf("duration_ms must not be negative")
		}
		b.Duration = time.Duration(ms) * time.Millisecond
	}
	if v, ok := tableBool(tbl, "hangs"); ok {
		b.Hangs = v
	}

	if res, ok := tableTable(tbl, "result"); ok {
		b.ResultType, _ = tableString(res, "type")
		b.Result, _ = tableString(res, "value")
		if b.ResultType == "" {
			return b, fmt.Errorf("result requires a type")
		}
	}
	if th, ok := tableTable(tbl, "throws"); ok {
		b.ThrowsType, _ = tableString(th, "type")
		b.ThrowsMessage, _ = tableString(th, "message")
		if b.ThrowsType == "" {
			return b, fmt.Errorf("throws requires a type")
		}
	}
	if b.ResultType != "" && b.ThrowsType != "" {
		return b, fmt.Errorf("result and throws are mutually exclusive")
	}
	if b.Hangs && (b.ResultType != "" || b.ThrowsType != "") {
		return b, fmt.Errorf("a hanging call never produces an outcome")
	}

	if ms, ok := tableInt(tbl, "notify_after_ms"); ok {
		if ms < 0 {
			return b, fmt.Errorf("notify_after_ms must not be negative")
		}
		b.Notifies = true
		b.NotifyAfter = time.Duration(ms) * time.Millisecond
	}

	if s, ok := tableString(tbl, "abort"); ok {
		mode, err := parseAbortMode(s)
		if err != nil {
			return b, err
		}
		b.AbortMode = mode
	}
	if v, ok := tableBool(tbl, "exits_process"); ok {
		b.ExitsProcess = v
	}
	return b, nil
}

func parseAbortMode(s string) (AbortMode, error) {
	switch s {
	case "", "honored":
		return AbortHonored, nil
	case "rude_only":
		return AbortRudeOnly, nil
	case "ignored":
		return AbortIgnored, nil
	default:
		return AbortHonored, fmt.Errorf("unknown abort mode %q", s)
	}
}

func tableString(tbl *lua.LTable, key string) (string, bool) {
	if s, ok := tbl.RawGetString(key).(lua.LString); ok {
		return string(s), true
	}
	return "", false
}

func tableInt(tbl *lua.LTable, key string) (int, bool) {
	if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		return int(n), true
	}
	return 0, false
}

func tableBool(tbl *lua.LTable, key string) (bool, bool) {
	if v, ok := tbl.RawGetString(key).(lua.LBool); ok {
		return bool(v), true
	}
	return false, false
}

func tableTable(tbl *lua.LTable, key string) (*lua.LTable, bool) {
	if t, ok := tbl.RawGetString(key).(*lua.LTable); ok {
		return t, true
	}
	return nil, false
}
