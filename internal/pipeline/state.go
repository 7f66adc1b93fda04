package pipeline

// State is a Scheduler lifecycle state.
type State int

const (
	Idle State = iota
	Capturing
	Detecting
	Rendering
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Detecting:
		return "detecting"
	case Rendering:
		return "rendering"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
