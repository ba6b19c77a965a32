package game

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/lookgame/pkg/direction"
)

// Machine holds the current phase and publishes every change to subscribers.
// All methods are safe for concurrent use; transitions are applied atomically
// and observers see them in the same order.
type Machine struct {
	mu     sync.Mutex
	phase  Phase
	epoch  uint64
	picker direction.Picker
	subs   map[*Subscription]struct{}
	logger *slog.Logger

	// Stats
	transitions atomic.Uint64
	ignored     atomic.Uint64
	matches     atomic.Uint64
	mismatches  atomic.Uint64
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithPicker sets how target directions are chosen.
func WithPicker(p direction.Picker) MachineOption {
	return func(m *Machine) {
		m.picker = p
	}
}

// WithMachineLogger sets the structured logger.
func WithMachineLogger(logger *slog.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = logger
	}
}

// NewMachine creates a Machine in Idle. Without WithPicker, targets are drawn
// at random from the four cardinal directions.
func NewMachine(opts ...MachineOption) *Machine {
	m := &Machine{
		phase:  Idle{},
		subs:   make(map[*Subscription]struct{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.picker == nil {
		m.picker = direction.NewRandomPicker(direction.Cardinal)
	}
	m.logger = m.logger.With("component", "game.machine")
	return m
}

// Change is a phase together with the epoch it was entered at. Every
// transition increments the epoch, so two visits to equal phases differ.
type Change struct {
	Phase Phase
	Epoch uint64
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Current returns the current phase and its epoch.
func (m *Machine) Current() Change {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked()
}

func (m *Machine) currentLocked() Change {
	return Change{Phase: m.phase, Epoch: m.epoch}
}

// Post applies ev. Events with no transition from the current phase are
// ignored. It reports whether the phase changed.
func (m *Machine) Post(ev Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.postLocked(ev)
}

// Advance applies ev only if no transition happened since from. Completions
// of work started for an earlier phase use it so they cannot move a later
// one, even when the later phase is equal in value.
func (m *Machine) Advance(from Change, ev Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != from.Epoch {
		m.ignored.Add(1)
		m.logger.Debug("stale event ignored", "event", ev, "from", from.Phase, "epoch", from.Epoch, "phase", m.phase)
		return false
	}
	return m.postLocked(ev)
}

// NotMatching reports a wrong look. Only Playing accepts it.
func (m *Machine) NotMatching(observed direction.Direction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ok := Mismatch(m.phase, observed)
	if !ok {
		m.ignored.Add(1)
		return false
	}
	m.mismatches.Add(1)
	return m.setLocked(next, "NotMatching")
}

func (m *Machine) postLocked(ev Event) bool {
	next, ok := Next(m.phase, ev, m.picker.Pick)
	if !ok {
		m.ignored.Add(1)
		m.logger.Debug("event ignored", "event", ev, "phase", m.phase)
		return false
	}
	if ev == Match {
		m.matches.Add(1)
	}
	return m.setLocked(next, ev.String())
}

func (m *Machine) setLocked(next Phase, cause string) bool {
	if next == m.phase {
		return false
	}
	m.logger.Info("phase changed", "from", m.phase, "to", next, "cause", cause)
	m.phase = next
	m.epoch++
	m.transitions.Add(1)
	c := m.currentLocked()
	for s := range m.subs {
		s.push(c)
	}
	return true
}

// Subscribe returns a subscription that first yields the current phase, then
// every later change in order. Slow readers never block the machine.
func (m *Machine) Subscribe() *Subscription {
	s := newSubscription(m)

	m.mu.Lock()
	s.push(m.currentLocked())
	m.subs[s] = struct{}{}
	m.mu.Unlock()

	go s.pump()
	return s
}

func (m *Machine) unsubscribe(s *Subscription) {
	m.mu.Lock()
	delete(m.subs, s)
	m.mu.Unlock()
}

// Stats contains machine counters.
type Stats struct {
	Phase       string `json:"phase"`
	Subscribers int    `json:"subscribers"`
	Transitions uint64 `json:"transitions"`
	Ignored     uint64 `json:"ignored"`
	Matches     uint64 `json:"matches"`
	Mismatches  uint64 `json:"mismatches"`
}

// GetStats returns machine statistics.
func (m *Machine) GetStats() Stats {
	m.mu.Lock()
	phase := m.phase.String()
	subs := len(m.subs)
	m.mu.Unlock()

	return Stats{
		Phase:       phase,
		Subscribers: subs,
		Transitions: m.transitions.Load(),
		Ignored:     m.ignored.Load(),
		Matches:     m.matches.Load(),
		Mismatches:  m.mismatches.Load(),
	}
}
