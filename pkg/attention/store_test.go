package attention

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/teslashibe/lookgame/pkg/direction"
)

type recorder struct {
	mu     sync.Mutex
	sets   [][]HumanID
	states []State
}

func (r *recorder) humans(ids []HumanID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets = append(r.sets, ids)
}

func (r *recorder) state(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func TestStoreDeliversCurrentValueOnWatch(t *testing.T) {
	s := NewStore()
	s.SetHumans([]HumanID{"a", "b"})
	s.SetState("a", StateLeft)

	var rec recorder
	cancelHumans := s.WatchHumans(rec.humans)
	cancelAttn := s.WatchAttention("a", rec.state)
	defer cancelHumans()
	defer cancelAttn()

	if diff := cmp.Diff([][]HumanID{{"a", "b"}}, rec.sets); diff != "" {
		t.Errorf("initial humans (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]State{StateLeft}, rec.states); diff != "" {
		t.Errorf("initial state (-want +got):\n%s", diff)
	}
}

func TestStoreNotifiesOnlyOnChange(t *testing.T) {
	s := NewStore()
	var rec recorder
	cancel := s.WatchHumans(rec.humans)
	defer cancel()
	cancelAttn := s.WatchAttention("a", rec.state)
	defer cancelAttn()

	s.SetHumans([]HumanID{"a"})
	s.SetHumans([]HumanID{"a", "a"})
	s.SetState("a", StateUp)
	s.SetState("a", StateUp)
	s.SetState("b", StateDown)

	wantSets := [][]HumanID{nil, {"a"}}
	if diff := cmp.Diff(wantSets, rec.sets); diff != "" {
		t.Errorf("humans (-want +got):\n%s", diff)
	}
	wantStates := []State{StateUnknown, StateUp}
	if diff := cmp.Diff(wantStates, rec.states); diff != "" {
		t.Errorf("states (-want +got):\n%s", diff)
	}
}

func TestStoreCancelStopsDelivery(t *testing.T) {
	s := NewStore()
	var rec recorder
	cancel := s.WatchHumans(rec.humans)
	cancel()
	cancel()

	s.SetHumans([]HumanID{"x"})
	if len(rec.sets) != 1 {
		t.Errorf("got %d deliveries, want only the initial one", len(rec.sets))
	}
}

func TestStoreDistance(t *testing.T) {
	s := NewStore()

	if _, err := s.Distance("ghost"); !errors.Is(err, ErrUnknownHuman) {
		t.Errorf("untracked: got %v, want ErrUnknownHuman", err)
	}

	s.SetHumans([]HumanID{"a"})
	if _, err := s.Distance("a"); !errors.Is(err, ErrNoTransform) {
		t.Errorf("no transform: got %v, want ErrNoTransform", err)
	}

	s.SetDistance("a", 1.5)
	if d, err := s.Distance("a"); err != nil || d != 1.5 {
		t.Errorf("Distance() = %v, %v; want 1.5", d, err)
	}
}

func TestStoreForgetsDeparted(t *testing.T) {
	s := NewStore()
	s.SetHumans([]HumanID{"a", "b"})
	s.SetState("a", StateUp)
	s.SetDistance("a", 2)
	s.SetDistance("b", 1)

	s.SetHumans([]HumanID{"b"})
	s.SetHumans([]HumanID{"a", "b"})

	snap := s.Snapshot()
	want := []Observation{
		{Human: "a", State: StateUnknown, Distance: 0},
		{Human: "b", State: StateUnknown, Distance: 1},
	}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Errorf("snapshot (-want +got):\n%s", diff)
	}

	s.Reset()
	if n := len(s.Humans()); n != 0 {
		t.Errorf("humans after Reset: %d", n)
	}
}

func TestPipelineOverStore(t *testing.T) {
	s := NewStore()
	sub := newTestPipeline(s).Subscribe()
	defer sub.Close()

	s.SetHumans([]HumanID{"near", "far"})
	s.SetDistance("near", 0.8)
	s.SetDistance("far", 2.4)
	s.SetState("far", StateUp)
	s.SetState("near", StateDownRight)

	d, ok := receive(t, sub, time.Second)
	if !ok || d != direction.DownRight {
		t.Fatalf("got %v (%v), want DOWN_RIGHT", d, ok)
	}
}
