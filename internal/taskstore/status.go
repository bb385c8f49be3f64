package taskstore

// State is the phase of the most recent store operation.
type State int

const (
	Idle State = iota
	Loading
	Success
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Status is the transient indicator surfaced to the front end.
// Message is only set in the Error state.
type Status struct {
	State   State
	Message string
}

func (s Status) String() string {
	if s.State == Error {
		return "error: " + s.Message
	}
	return s.State.String()
}

func statusError(msg string) Status {
	return Status{State: Error, Message: msg}
}
