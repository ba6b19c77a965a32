package attention

import (
	"sync"
)

// Fake is an in-memory Source for tests and the simulator.
// Setters notify registered watchers synchronously.
type Fake struct {
	mu        sync.Mutex
	humans    []HumanID
	states    map[HumanID]State
	distances map[HumanID]float64
	distErr   map[HumanID]error

	nextID       int
	humanWatches map[int]func([]HumanID)
	attnWatches  map[int]attnWatch

	registered   int
	deregistered int
}

type attnWatch struct {
	id HumanID
	fn func(State)
}

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{
		states:       make(map[HumanID]State),
		distances:    make(map[HumanID]float64),
		distErr:      make(map[HumanID]error),
		humanWatches: make(map[int]func([]HumanID)),
		attnWatches:  make(map[int]attnWatch),
	}
}

// WatchHumans implements Source.
func (f *Fake) WatchHumans(fn func([]HumanID)) func() {
	f.mu.Lock()
	key := f.nextID
	f.nextID++
	f.humanWatches[key] = fn
	f.registered++
	current := append([]HumanID(nil), f.humans...)
	f.mu.Unlock()

	fn(current)

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.humanWatches[key]; ok {
			delete(f.humanWatches, key)
			f.deregistered++
		}
	}
}

// WatchAttention implements Source.
func (f *Fake) WatchAttention(id HumanID, fn func(State)) func() {
	f.mu.Lock()
	key := f.nextID
	f.nextID++
	f.attnWatches[key] = attnWatch{id: id, fn: fn}
	f.registered++
	current := f.states[id]
	f.mu.Unlock()

	fn(current)

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.attnWatches[key]; ok {
			delete(f.attnWatches, key)
			f.deregistered++
		}
	}
}

// Distance implements Source.
func (f *Fake) Distance(id HumanID) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.distErr[id]; err != nil {
		return 0, err
	}
	d, ok := f.distances[id]
	if !ok {
		return 0, ErrNoTransform
	}
	return d, nil
}

// Put adds or updates a person and publishes the new set if it changed.
func (f *Fake) Put(id HumanID, state State, distance float64) {
	f.mu.Lock()
	present := false
	for _, h := range f.humans {
		if h == id {
			present = true
			break
		}
	}
	if !present {
		f.humans = append(f.humans, id)
	}
	f.distances[id] = distance
	f.mu.Unlock()

	if !present {
		f.publishHumans()
	}
	f.SetState(id, state)
}

// Remove drops a person from view.
func (f *Fake) Remove(id HumanID) {
	f.mu.Lock()
	kept := f.humans[:0]
	for _, h := range f.humans {
		if h != id {
			kept = append(kept, h)
		}
	}
	f.humans = kept
	delete(f.states, id)
	delete(f.distances, id)
	f.mu.Unlock()

	f.publishHumans()
}

// SetState changes where a person looks and notifies watchers.
func (f *Fake) SetState(id HumanID, state State) {
	f.mu.Lock()
	f.states[id] = state
	var fns []func(State)
	for _, w := range f.attnWatches {
		if w.id == id {
			fns = append(fns, w.fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// SetDistance changes a person's distance.
func (f *Fake) SetDistance(id HumanID, distance float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.distances[id] = distance
}

// FailDistance makes Distance return err for id until cleared with nil.
func (f *Fake) FailDistance(id HumanID, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.distErr, id)
		return
	}
	f.distErr[id] = err
}

// Active returns the number of live registrations.
func (f *Fake) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.humanWatches) + len(f.attnWatches)
}

// Counts returns how many registrations were made and released in total.
func (f *Fake) Counts() (registered, deregistered int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registered, f.deregistered
}

func (f *Fake) publishHumans() {
	f.mu.Lock()
	current := append([]HumanID(nil), f.humans...)
	fns := make([]func([]HumanID), 0, len(f.humanWatches))
	for _, fn := range f.humanWatches {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(current)
	}
}

var _ Source = (*Fake)(nil)
