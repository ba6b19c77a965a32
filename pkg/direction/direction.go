// Package direction defines the discrete gaze directions used by the game
// and the rule deciding whether an observed direction satisfies an expected one.
package direction

import (
	"fmt"
	"strings"
)

// Direction is a discrete gaze direction relative to the robot.
type Direction int

const (
	// Unknown means no usable observation. It is never a target.
	Unknown Direction = iota
	Up
	Down
	Left
	Right
	UpLeft
	UpRight
	DownLeft
	DownRight
)

// Cardinal holds the four directions the default game asks for.
var Cardinal = []Direction{Up, Down, Left, Right}

// All holds every known direction, used by the extended game.
var All = []Direction{Up, Down, Left, Right, UpLeft, UpRight, DownLeft, DownRight}

var names = [...]string{
	Unknown:   "UNKNOWN",
	Up:        "UP",
	Down:      "DOWN",
	Left:      "LEFT",
	Right:     "RIGHT",
	UpLeft:    "UP_LEFT",
	UpRight:   "UP_RIGHT",
	DownLeft:  "DOWN_LEFT",
	DownRight: "DOWN_RIGHT",
}

// String returns the wire name, e.g. "UP_LEFT".
func (d Direction) String() string {
	if d < Unknown || int(d) >= len(names) {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return names[d]
}

// Words returns the spoken form, e.g. "up left".
func (d Direction) Words() string {
	if !d.Valid() {
		return "somewhere"
	}
	return strings.ToLower(strings.ReplaceAll(d.String(), "_", " "))
}

// Valid reports whether d is a real direction (not Unknown).
func (d Direction) Valid() bool {
	return d > Unknown && int(d) < len(names)
}

// Cardinal reports whether d is one of Up, Down, Left or Right.
func (d Direction) Cardinal() bool {
	return d >= Up && d <= Right
}

// Arrow returns a single-glyph rendering for dashboards.
func (d Direction) Arrow() string {
	switch d {
	case Up:
		return "↑"
	case Down:
		return "↓"
	case Left:
		return "←"
	case Right:
		return "→"
	case UpLeft:
		return "↖"
	case UpRight:
		return "↗"
	case DownLeft:
		return "↙"
	case DownRight:
		return "↘"
	default:
		return "·"
	}
}

// Parse accepts wire names ("UP_LEFT") and spoken forms ("up left", "up-left").
func Parse(s string) (Direction, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for i, name := range names {
		if name == norm {
			return Direction(i), nil
		}
	}
	return Unknown, fmt.Errorf("direction: unknown direction %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
