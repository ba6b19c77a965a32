// Package attention turns a noisy, changing set of detected humans into a
// stable stream of discrete gaze directions.
//
// A Source reports who is in view, where each person is looking and how far
// away they are. A Pipeline subscribes to it, keeps only the closest person,
// maps their attention to a direction.Direction and holds each direction
// back until it has been steady for a quiet period.
package attention

import (
	"fmt"
	"strings"

	"github.com/teslashibe/lookgame/pkg/direction"
)

// HumanID identifies a detected person for as long as they stay in view.
type HumanID string

// State is what a person is currently looking at.
type State int

const (
	StateUnknown State = iota
	StateNotLooking
	StateAtRobot
	StateUp
	StateDown
	StateLeft
	StateRight
	StateUpLeft
	StateUpRight
	StateDownLeft
	StateDownRight
)

var stateNames = [...]string{
	StateUnknown:    "UNKNOWN",
	StateNotLooking: "NOT_LOOKING",
	StateAtRobot:    "LOOKING_AT_ROBOT",
	StateUp:         "LOOKING_UP",
	StateDown:       "LOOKING_DOWN",
	StateLeft:       "LOOKING_LEFT",
	StateRight:      "LOOKING_RIGHT",
	StateUpLeft:     "LOOKING_UP_LEFT",
	StateUpRight:    "LOOKING_UP_RIGHT",
	StateDownLeft:   "LOOKING_DOWN_LEFT",
	StateDownRight:  "LOOKING_DOWN_RIGHT",
}

func (s State) String() string {
	if s < StateUnknown || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// ParseState accepts the wire names above. Unrecognised input is StateUnknown.
func ParseState(s string) State {
	norm := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range stateNames {
		if name == norm {
			return State(i)
		}
	}
	return StateUnknown
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	*s = ParseState(string(text))
	return nil
}

// Direction maps a directional state onto direction.Direction.
// Non-directional states (unknown, not looking, looking at the robot) map to
// direction.Unknown.
func (s State) Direction() direction.Direction {
	switch s {
	case StateUp:
		return direction.Up
	case StateDown:
		return direction.Down
	case StateLeft:
		return direction.Left
	case StateRight:
		return direction.Right
	case StateUpLeft:
		return direction.UpLeft
	case StateUpRight:
		return direction.UpRight
	case StateDownLeft:
		return direction.DownLeft
	case StateDownRight:
		return direction.DownRight
	default:
		return direction.Unknown
	}
}

// StateFor is the inverse of State.Direction for valid directions.
func StateFor(d direction.Direction) State {
	switch d {
	case direction.Up:
		return StateUp
	case direction.Down:
		return StateDown
	case direction.Left:
		return StateLeft
	case direction.Right:
		return StateRight
	case direction.UpLeft:
		return StateUpLeft
	case direction.UpRight:
		return StateUpRight
	case direction.DownLeft:
		return StateDownLeft
	case direction.DownRight:
		return StateDownRight
	default:
		return StateUnknown
	}
}

// Observation is one person's latest attention and distance.
type Observation struct {
	Human    HumanID `json:"human"`
	State    State   `json:"state"`
	Distance float64 `json:"distance"` // meters
}
