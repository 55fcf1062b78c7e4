package apix

import "fmt"

// EventKind is a stream lifecycle notification returned by WaitEvent.
type EventKind int

// The numeric values are stable; language bindings compare them as integers.
const (
	EventOpened      EventKind = 1
	EventClosed      EventKind = 2
	EventAcceptReady EventKind = 3
	EventDataReady   EventKind = 4
)

// Valid reports whether e is one of the defined kinds.
func (e EventKind) Valid() bool {
	return e >= EventOpened && e <= EventDataReady
}

func (e EventKind) String() string {
	switch e {
	case EventOpened:
		return "opened"
	case EventClosed:
		return "closed"
	case EventAcceptReady:
		return "accept_ready"
	case EventDataReady:
		return "data_ready"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}
