// Package engine implements the Playback Engine (§4.5): the buffer pool
// owner, producer/consumer tasks, control state machine, sample-format
// conversion and seek arithmetic, built against the Decoder (§4.4) and
// AudioSink (§6) capability interfaces rather than any concrete codec or
// hardware backend.
package engine

import "fmt"

// State is one node of the playback state machine (§4.5 "States and
// transitions").
type State int

const (
	Closed State = iota
	Idle
	Play
	Wait
	Reopen
	Pause
	Halt
	Stop
	Error
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Idle:
		return "Idle"
	case Play:
		return "Play"
	case Wait:
		return "Wait"
	case Reopen:
		return "Reopen"
	case Pause:
		return "Pause"
	case Halt:
		return "Halt"
	case Stop:
		return "Stop"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// StateError is returned when an operation is requested in a
// non-accepting state (§7 "StateError"); the state is left unchanged.
type StateError struct {
	From State
	Op   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("engine: cannot %s from state %s", e.Op, e.From)
}

// transitions enumerates the edges in §4.5's table, keyed by (from, op).
// "any" edges (stop, unrecoverable failure) are handled outside this map.
var transitions = map[State]map[string]State{
	Closed: {"open": Idle},
	Idle:   {"play": Play},
	Play: {
		"buffer_empty":   Wait,
		"stream_changed": Reopen,
		"pause":          Pause,
		"underrun":       Halt,
	},
	Reopen: {"reopened": Play},
	Pause:  {"resume": Play},
	Halt:   {"refilled": Play},
	Stop:   {"close": Closed},
}

// next looks up the destination state for op from the current state,
// returning a *StateError if the edge does not exist.
func (s State) next(op string) (State, error) {
	if edges, ok := transitions[s]; ok {
		if to, ok := edges[op]; ok {
			return to, nil
		}
	}
	return s, &StateError{From: s, Op: op}
}
