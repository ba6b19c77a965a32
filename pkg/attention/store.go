package attention

import (
	"slices"
	"sync"
)

// Store is an in-memory Source fed by a sensing backend: a remote robot
// reporting over the network or the local vision tracker.
//
// Notifications are serialized, so a watcher sees updates in the order they
// were applied and its initial value before any later change.
type Store struct {
	notify sync.Mutex // held while delivering callbacks

	mu        sync.Mutex
	humans    []HumanID
	states    map[HumanID]State
	distances map[HumanID]float64

	nextKey      int
	humanWatches map[int]func([]HumanID)
	attnWatches  map[int]attnWatch
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		states:       make(map[HumanID]State),
		distances:    make(map[HumanID]float64),
		humanWatches: make(map[int]func([]HumanID)),
		attnWatches:  make(map[int]attnWatch),
	}
}

// WatchHumans implements Source.
func (s *Store) WatchHumans(fn func([]HumanID)) func() {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	key := s.nextKey
	s.nextKey++
	s.humanWatches[key] = fn
	current := slices.Clone(s.humans)
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.humanWatches, key)
		s.mu.Unlock()
	}
}

// WatchAttention implements Source.
func (s *Store) WatchAttention(id HumanID, fn func(State)) func() {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	key := s.nextKey
	s.nextKey++
	s.attnWatches[key] = attnWatch{id: id, fn: fn}
	current := s.states[id]
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.attnWatches, key)
		s.mu.Unlock()
	}
}

// Distance implements Source.
func (s *Store) Distance(id HumanID) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.humans, id) {
		return 0, ErrUnknownHuman
	}
	d, ok := s.distances[id]
	if !ok {
		return 0, ErrNoTransform
	}
	return d, nil
}

// SetHumans replaces the tracked set. Data for people no longer present is
// dropped. Watchers are notified only if the set changed.
func (s *Store) SetHumans(ids []HumanID) {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	next := dedup(ids)
	if slices.Equal(next, s.humans) {
		s.mu.Unlock()
		return
	}
	s.humans = next
	for id := range s.states {
		if !slices.Contains(next, id) {
			delete(s.states, id)
		}
	}
	for id := range s.distances {
		if !slices.Contains(next, id) {
			delete(s.distances, id)
		}
	}
	fns := make([]func([]HumanID), 0, len(s.humanWatches))
	for _, fn := range s.humanWatches {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(slices.Clone(next))
	}
}

// SetState records where id is looking. Watchers of id are notified only if
// the state changed.
func (s *Store) SetState(id HumanID, state State) {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	if prev, ok := s.states[id]; ok && prev == state {
		s.mu.Unlock()
		return
	}
	s.states[id] = state
	var fns []func(State)
	for _, w := range s.attnWatches {
		if w.id == id {
			fns = append(fns, w.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// SetDistance records how far away id is. Distances are sampled, not watched.
func (s *Store) SetDistance(id HumanID, meters float64) {
	s.mu.Lock()
	s.distances[id] = meters
	s.mu.Unlock()
}

// Reset forgets everyone.
func (s *Store) Reset() {
	s.SetHumans(nil)
}

// Humans returns the tracked set.
func (s *Store) Humans() []HumanID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.humans)
}

// Snapshot returns an Observation for every tracked person. Missing data is
// reported as StateUnknown and a zero distance.
func (s *Store) Snapshot() []Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Observation, 0, len(s.humans))
	for _, id := range s.humans {
		out = append(out, Observation{Human: id, State: s.states[id], Distance: s.distances[id]})
	}
	return out
}

func dedup(ids []HumanID) []HumanID {
	out := make([]HumanID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

var _ Source = (*Store)(nil)
