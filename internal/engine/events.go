package engine

import "github.com/hammamikhairi/vibecook/internal/domain"

// EventType identifies what an Event reports.
type EventType int

const (
	// EventStateChanged carries the new listening state.
	EventStateChanged EventType = iota
	// EventInterim carries a provisional transcript for display.
	EventInterim
	// EventUnrecognized means a final transcript matched no command.
	EventUnrecognized
	// EventStepChanged carries the current step after a navigation
	// command, including repeats.
	EventStepChanged
	// EventSessionCompleted fires when the cook advances past the last step.
	EventSessionCompleted
	// EventSessionEnded fires on the end command.
	EventSessionEnded
	// EventError carries a capture or transcription failure.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventStateChanged:
		return "state_changed"
	case EventInterim:
		return "interim"
	case EventUnrecognized:
		return "unrecognized"
	case EventStepChanged:
		return "step_changed"
	case EventSessionCompleted:
		return "session_completed"
	case EventSessionEnded:
		return "session_ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is published to subscribers after every observable change.
type Event struct {
	Type       EventType
	State      domain.ListeningState
	Transcript string
	Command    domain.Command
	Index      int
	Total      int
	Step       *domain.SessionStep
	Err        error
}
