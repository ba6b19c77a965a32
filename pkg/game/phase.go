// Package game runs the "look where I tell you" game: a state machine over
// discrete phases and the Robot that drives speech and sensing from it.
package game

import (
	"fmt"

	"github.com/teslashibe/lookgame/pkg/direction"
)

// Phase is the current step of the game. The concrete types below are the
// only implementations; switch over them exhaustively.
type Phase interface {
	isPhase()
	fmt.Stringer
}

// Idle waits for someone to engage with the robot.
type Idle struct{}

// Intro greets the player.
type Intro struct{}

// Instructions tells the player where to look.
type Instructions struct {
	Expected direction.Direction
	Score    int // matches so far this session
}

// Playing waits for the player to look somewhere.
type Playing struct {
	Expected direction.Direction
	Score    int
	Errors   int // consecutive mismatches for Expected
}

// NotMatching corrects a wrong look.
type NotMatching struct {
	Expected direction.Direction
	Observed direction.Direction
	Score    int
	Errors   int // includes this mismatch, so always >= 1
}

// Matching celebrates a correct look.
type Matching struct {
	Matched direction.Direction
	Score   int // includes this match
}

func (Idle) isPhase()         {}
func (Intro) isPhase()        {}
func (Instructions) isPhase() {}
func (Playing) isPhase()      {}
func (NotMatching) isPhase()  {}
func (Matching) isPhase()     {}

func (Idle) String() string  { return "Idle" }
func (Intro) String() string { return "Intro" }

func (p Instructions) String() string {
	return fmt.Sprintf("Instructions(%v)", p.Expected)
}

func (p Playing) String() string {
	return fmt.Sprintf("Playing(%v)", p.Expected)
}

func (p NotMatching) String() string {
	return fmt.Sprintf("NotMatching(%v, %v)", p.Expected, p.Observed)
}

func (p Matching) String() string {
	return fmt.Sprintf("Matching(%v)", p.Matched)
}

// Expected returns the target direction of p, or direction.Unknown for
// phases without one.
func Expected(p Phase) direction.Direction {
	switch p := p.(type) {
	case Instructions:
		return p.Expected
	case Playing:
		return p.Expected
	case NotMatching:
		return p.Expected
	case Matching:
		return p.Matched
	default:
		return direction.Unknown
	}
}

// Score returns the session score carried by p.
func Score(p Phase) int {
	switch p := p.(type) {
	case Instructions:
		return p.Score
	case Playing:
		return p.Score
	case NotMatching:
		return p.Score
	case Matching:
		return p.Score
	default:
		return 0
	}
}

// View is the JSON form of a phase for dashboards and the robot screen.
type View struct {
	Name     string              `json:"name"`
	Expected direction.Direction `json:"expected"`
	Observed direction.Direction `json:"observed"`
	Score    int                 `json:"score"`
	Errors   int                 `json:"errors"`
}

// Describe converts p to its View.
func Describe(p Phase) View {
	v := View{Expected: Expected(p), Score: Score(p)}
	switch p := p.(type) {
	case Idle:
		v.Name = "idle"
	case Intro:
		v.Name = "intro"
	case Instructions:
		v.Name = "instructions"
	case Playing:
		v.Name = "playing"
		v.Errors = p.Errors
	case NotMatching:
		v.Name = "not_matching"
		v.Observed = p.Observed
		v.Errors = p.Errors
	case Matching:
		v.Name = "matching"
	}
	return v
}
