package attention

import "errors"

var (
	// ErrUnknownHuman is returned when a Source no longer tracks a person.
	ErrUnknownHuman = errors.New("attention: unknown human")

	// ErrNoTransform is returned when a person's position is not available yet.
	ErrNoTransform = errors.New("attention: no transform for human")
)

// Source is the sensing layer the pipeline reads from.
//
// Watch methods deliver the current value to fn right away (possibly before
// returning) and then every change, until the returned cancel func is called.
// Callbacks must not block; implementations may call them from any goroutine.
type Source interface {
	// WatchHumans reports the set of people in view, in first-seen order.
	WatchHumans(fn func([]HumanID)) (cancel func())

	// WatchAttention reports where one person is looking.
	WatchAttention(id HumanID, fn func(State)) (cancel func())

	// Distance returns the planar distance in meters between the robot and
	// the person's head. Transient failures return an error.
	Distance(id HumanID) (float64, error)
}
