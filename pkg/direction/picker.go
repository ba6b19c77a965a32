package direction

import (
	"math/rand/v2"
	"sync"
)

// Picker chooses the next target direction.
type Picker interface {
	Pick() Direction
}

// RandomPicker draws uniformly from a fixed set. Safe for concurrent use.
type RandomPicker struct {
	mu   sync.Mutex
	rng  *rand.Rand
	from []Direction
}

// NewRandomPicker returns a picker over from, seeded once from the runtime.
// An empty set falls back to Cardinal.
func NewRandomPicker(from []Direction) *RandomPicker {
	return NewSeededPicker(from, rand.Uint64(), rand.Uint64())
}

// NewSeededPicker returns a deterministic picker, for tests and replays.
func NewSeededPicker(from []Direction, seed1, seed2 uint64) *RandomPicker {
	if len(from) == 0 {
		from = Cardinal
	}
	set := make([]Direction, len(from))
	copy(set, from)
	return &RandomPicker{
		rng:  rand.New(rand.NewPCG(seed1, seed2)),
		from: set,
	}
}

// Pick returns a random direction from the set. Repeats are allowed.
func (p *RandomPicker) Pick() Direction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.from[p.rng.IntN(len(p.from))]
}

// Sequence replays a fixed list of directions, cycling at the end.
type Sequence struct {
	mu   sync.Mutex
	list []Direction
	next int
}

// NewSequence returns a Picker that yields list in order.
func NewSequence(list ...Direction) *Sequence {
	if len(list) == 0 {
		list = []Direction{Up}
	}
	return &Sequence{list: list}
}

// Pick returns the next direction in the sequence.
func (s *Sequence) Pick() Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.list[s.next%len(s.list)]
	s.next++
	return d
}

var (
	_ Picker = (*RandomPicker)(nil)
	_ Picker = (*Sequence)(nil)
)
