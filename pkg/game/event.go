package game

import (
	"fmt"

	"github.com/teslashibe/lookgame/pkg/direction"
)

// Event drives the state machine.
type Event int

const (
	FocusGained Event = iota
	FocusLost
	IntroFinished
	InstructionsFinished
	Match
	MatchingFinished
	NotMatchingFinished
)

var eventNames = [...]string{
	FocusGained:          "FocusGained",
	FocusLost:            "FocusLost",
	IntroFinished:        "IntroFinished",
	InstructionsFinished: "InstructionsFinished",
	Match:                "Match",
	MatchingFinished:     "MatchingFinished",
	NotMatchingFinished:  "NotMatchingFinished",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return fmt.Sprintf("Event(%d)", int(e))
	}
	return eventNames[e]
}

// Next applies the transition table. pick supplies a fresh target when one
// is needed. ok is false when (p, ev) has no transition.
func Next(p Phase, ev Event, pick func() direction.Direction) (next Phase, ok bool) {
	if ev == FocusLost {
		return Idle{}, true
	}

	switch p := p.(type) {
	case Idle:
		if ev == FocusGained {
			return Intro{}, true
		}
	case Intro:
		if ev == IntroFinished {
			return Instructions{Expected: pick()}, true
		}
	case Instructions:
		if ev == InstructionsFinished {
			return Playing{Expected: p.Expected, Score: p.Score}, true
		}
	case Playing:
		if ev == Match {
			return Matching{Matched: p.Expected, Score: p.Score + 1}, true
		}
	case NotMatching:
		if ev == NotMatchingFinished {
			return Playing{Expected: p.Expected, Score: p.Score, Errors: p.Errors}, true
		}
	case Matching:
		if ev == MatchingFinished {
			return Instructions{Expected: pick(), Score: p.Score}, true
		}
	}
	return p, false
}

// Mismatch applies an observed wrong direction. Only Playing accepts it.
func Mismatch(p Phase, observed direction.Direction) (next Phase, ok bool) {
	playing, isPlaying := p.(Playing)
	if !isPlaying {
		return p, false
	}
	return NotMatching{
		Expected: playing.Expected,
		Observed: observed,
		Score:    playing.Score,
		Errors:   playing.Errors + 1,
	}, true
}
