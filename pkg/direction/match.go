package direction

// adjacent lists the diagonals that also satisfy a cardinal target.
var adjacent = map[Direction][2]Direction{
	Up:    {UpLeft, UpRight},
	Down:  {DownLeft, DownRight},
	Left:  {UpLeft, DownLeft},
	Right: {UpRight, DownRight},
}

// Matches reports whether observed satisfies expected.
//
// A cardinal target accepts itself and its two neighbouring diagonals, so
// looking up-left counts for both Up and Left. A diagonal target only
// accepts itself. Unknown on either side never matches.
func Matches(expected, observed Direction) bool {
	if !expected.Valid() || !observed.Valid() {
		return false
	}
	if expected == observed {
		return true
	}
	near, ok := adjacent[expected]
	if !ok {
		return false
	}
	return observed == near[0] || observed == near[1]
}
