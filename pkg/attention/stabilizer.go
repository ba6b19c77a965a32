package attention

import (
	"time"

	"github.com/teslashibe/lookgame/pkg/direction"
)

// Distinct passes a value only when it differs from the previous one.
type Distinct[T comparable] struct {
	last T
	seen bool
}

// Changed records v and reports whether it differs from the last value.
// The first value always counts as a change.
func (d *Distinct[T]) Changed(v T) bool {
	if d.seen && d.last == v {
		return false
	}
	d.last, d.seen = v, true
	return true
}

// Reset forgets the last value.
func (d *Distinct[T]) Reset() {
	var zero T
	d.last, d.seen = zero, false
}

// Stabilizer suppresses flicker in a raw direction stream.
//
// Stages: drop repeats, wait until the value has been unchanged for the quiet
// period (a new value restarts the wait), drop repeats of the settled value,
// drop direction.Unknown. Consumers never see the same direction twice in a
// row, even when an Unknown settled in between.
//
// Time is passed in, so the stabilizer has no goroutines or timers of its
// own. The caller arms a timer for Deadline and calls Fire when it expires.
type Stabilizer struct {
	quiet time.Duration

	raw     Distinct[direction.Direction]
	settled Distinct[direction.Direction]

	pending  direction.Direction
	deadline time.Time
	armed    bool

	last direction.Direction
}

// NewStabilizer returns a Stabilizer with the given quiet period.
func NewStabilizer(quiet time.Duration) *Stabilizer {
	return &Stabilizer{quiet: quiet}
}

// Push feeds a raw direction observed at now. It reports whether the
// deadline moved, in which case the caller should re-arm its timer.
func (s *Stabilizer) Push(d direction.Direction, now time.Time) bool {
	if !s.raw.Changed(d) {
		return false
	}
	s.pending = d
	s.deadline = now.Add(s.quiet)
	s.armed = true
	return true
}

// Deadline returns when the pending value settles. ok is false when nothing
// is pending.
func (s *Stabilizer) Deadline() (deadline time.Time, ok bool) {
	return s.deadline, s.armed
}

// Fire settles the pending value if its deadline has passed and returns it
// when it should be delivered.
func (s *Stabilizer) Fire(now time.Time) (direction.Direction, bool) {
	if !s.armed || now.Before(s.deadline) {
		return direction.Unknown, false
	}
	s.armed = false

	d := s.pending
	if !s.settled.Changed(d) {
		return direction.Unknown, false
	}
	if d == direction.Unknown || d == s.last {
		return direction.Unknown, false
	}
	s.last = d
	return d, true
}
