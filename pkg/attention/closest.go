package attention

import "github.com/teslashibe/lookgame/pkg/direction"

// Closest returns the observation with the smallest distance. Ties go to the
// earliest entry, so the source's first-seen order decides. ok is false for
// an empty list.
func Closest(obs []Observation) (closest Observation, ok bool) {
	for i, o := range obs {
		if i == 0 || o.Distance < closest.Distance {
			closest = o
		}
	}
	return closest, len(obs) > 0
}

// ToDirection maps the closest person's attention to a direction.
// No one in view yields direction.Unknown.
func ToDirection(obs []Observation) direction.Direction {
	c, ok := Closest(obs)
	if !ok {
		return direction.Unknown
	}
	return c.State.Direction()
}
