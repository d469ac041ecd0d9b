package engine

// RunState is the scheduling state a debuggee thread can be placed in.
type RunState int

const (
	// StateRun lets the thread be scheduled when the process resumes.
	StateRun RunState = iota

	// StateSuspend keeps the thread parked while the process resumes.
	StateSuspend
)

// String returns a human-readable state name.
func (s RunState) String() string {
	switch s {
	case StateRun:
		return "run"
	case StateSuspend:
		return "suspend"
	default:
		return "unknown"
	}
}
