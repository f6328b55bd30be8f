package domain

// Command is a navigation action recognized from a spoken or typed phrase.
type Command int

const (
	CommandUnknown Command = iota
	CommandAdvance
	CommandPrevious
	CommandRepeat
	CommandEnd
)

// String returns the snake_case command name.
func (c Command) String() string {
	switch c {
	case CommandAdvance:
		return "advance"
	case CommandPrevious:
		return "previous"
	case CommandRepeat:
		return "repeat"
	case CommandEnd:
		return "end"
	default:
		return "unknown"
	}
}

var commandNames = map[string]Command{
	"advance":  CommandAdvance,
	"next":     CommandAdvance,
	"previous": CommandPrevious,
	"back":     CommandPrevious,
	"repeat":   CommandRepeat,
	"end":      CommandEnd,
	"stop":     CommandEnd,
	"unknown":  CommandUnknown,
}

// CommandFromString converts a command name (or a short alias) to a
// Command. Returns CommandUnknown for unrecognized names.
func CommandFromString(name string) Command {
	if c, ok := commandNames[name]; ok {
		return c
	}
	return CommandUnknown
}
