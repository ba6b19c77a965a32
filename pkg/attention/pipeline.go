package attention

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/lookgame/pkg/direction"
)

// Pipeline produces stabilized directions from a Source. Each Subscribe call
// starts an independent loop with its own trackers.
type Pipeline struct {
	source Source
	config Config
	logger *slog.Logger

	// Stats
	subscriptions  atomic.Uint64
	setChanges     atomic.Uint64
	observations   atomic.Uint64
	rawDirections  atomic.Uint64
	stabilized     atomic.Uint64
	distanceErrors atomic.Uint64
}

// NewPipeline creates a pipeline reading from source.
func NewPipeline(source Source, opts ...Option) *Pipeline {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Buffer < 0 {
		cfg.Buffer = 0
	}

	return &Pipeline{
		source: source,
		config: cfg,
		logger: cfg.Logger.With("component", "attention.pipeline"),
	}
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Stats contains pipeline counters across all subscriptions.
type Stats struct {
	Subscriptions  uint64 `json:"subscriptions"`
	SetChanges     uint64 `json:"set_changes"`
	Observations   uint64 `json:"observations"`
	RawDirections  uint64 `json:"raw_directions"`
	Stabilized     uint64 `json:"stabilized"`
	DistanceErrors uint64 `json:"distance_errors"`
}

// GetStats returns pipeline statistics.
func (p *Pipeline) GetStats() Stats {
	return Stats{
		Subscriptions:  p.subscriptions.Load(),
		SetChanges:     p.setChanges.Load(),
		Observations:   p.observations.Load(),
		RawDirections:  p.rawDirections.Load(),
		Stabilized:     p.stabilized.Load(),
		DistanceErrors: p.distanceErrors.Load(),
	}
}

// Subscription is one running instance of the pipeline.
type Subscription struct {
	p   *Pipeline
	out chan direction.Direction

	box      *mailbox
	done     chan struct{}
	finished chan struct{}
	once     sync.Once
}

// Subscribe registers with the source and starts producing directions.
func (p *Pipeline) Subscribe() *Subscription {
	p.subscriptions.Add(1)

	s := &Subscription{
		p:        p,
		out:      make(chan direction.Direction, p.config.Buffer),
		box:      newMailbox(),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go s.run()
	return s
}

// Directions yields stabilized, non-Unknown directions. It is closed by Close.
func (s *Subscription) Directions() <-chan direction.Direction {
	return s.out
}

// Close stops the loop and releases every Source registration. It blocks
// until that is done and is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
	})
	<-s.finished
}

// tracker holds the latest values for one person.
type tracker struct {
	id          HumanID
	state       State
	hasState    bool
	distance    float64
	hasDistance bool
	watch       *bridge
}

// loop is the state owned by the subscription goroutine.
type loop struct {
	s *Subscription

	humans   *bridge
	pending  []HumanID
	trackers []*tracker
	byID     map[HumanID]*tracker
	gen      uint64

	stab *Stabilizer
}

func (s *Subscription) run() {
	p := s.p
	l := &loop{
		s:    s,
		byID: make(map[HumanID]*tracker),
		stab: NewStabilizer(p.config.QuietPeriod),
	}

	setTimer := time.NewTimer(time.Hour)
	setTimer.Stop()
	stabTimer := time.NewTimer(time.Hour)
	stabTimer.Stop()
	distTicker := time.NewTicker(p.config.DistanceInterval)

	defer func() {
		setTimer.Stop()
		stabTimer.Stop()
		distTicker.Stop()
		l.releaseTrackers()
		l.humans.stop()
		close(s.out)
		close(s.finished)
	}()

	l.humans = &bridge{}
	l.humans.cancel = p.source.WatchHumans(func(ids []HumanID) {
		cp := make([]HumanID, len(ids))
		copy(cp, ids)
		s.box.put(event{isSet: true, humans: cp})
	})

	for {
		select {
		case <-s.done:
			return

		case <-s.box.notify:
			changed := false
			for _, ev := range s.box.drain() {
				if ev.isSet {
					l.pending = ev.humans
					setTimer.Reset(p.config.SetDebounce)
					continue
				}
				if l.onAttention(ev) {
					changed = true
				}
			}
			if changed {
				l.combine(stabTimer)
			}

		case <-setTimer.C:
			p.setChanges.Add(1)
			l.rebuild(l.pending)
			l.combine(stabTimer)

		case <-distTicker.C:
			if l.sampleDistances() {
				l.combine(stabTimer)
			}

		case now := <-stabTimer.C:
			d, ok := l.stab.Fire(now)
			if !ok {
				continue
			}
			p.stabilized.Add(1)
			p.logger.Debug("direction settled", "direction", d)
			select {
			case s.out <- d:
			case <-s.done:
				return
			}
		}
	}
}

// rebuild tears down every tracker and starts fresh ones for ids.
func (l *loop) rebuild(ids []HumanID) {
	l.releaseTrackers()
	l.gen++
	gen := l.gen

	for _, id := range ids {
		if _, dup := l.byID[id]; dup {
			continue
		}
		t := &tracker{id: id, watch: &bridge{}}
		l.trackers = append(l.trackers, t)
		l.byID[id] = t
	}

	for _, t := range l.trackers {
		id := t.id
		t.watch.cancel = l.s.p.source.WatchAttention(id, func(st State) {
			l.s.box.put(event{gen: gen, human: id, state: st})
		})
	}
	l.sampleDistances()

	l.s.p.logger.Debug("tracking humans", "count", len(l.trackers), "generation", gen)
}

func (l *loop) releaseTrackers() {
	for _, t := range l.trackers {
		t.watch.stop()
	}
	l.trackers = nil
	clear(l.byID)
}

// onAttention applies a state update. Updates from torn-down trackers are
// dropped by generation.
func (l *loop) onAttention(ev event) bool {
	if ev.gen != l.gen {
		return false
	}
	t, ok := l.byID[ev.human]
	if !ok {
		return false
	}
	t.state, t.hasState = ev.state, true
	return true
}

// sampleDistances refreshes every tracker's distance. A failed read keeps
// the previous value and skips this tick for that person.
func (l *loop) sampleDistances() bool {
	changed := false
	for _, t := range l.trackers {
		d, err := l.s.p.source.Distance(t.id)
		if err != nil {
			l.s.p.distanceErrors.Add(1)
			l.s.p.logger.Debug("distance unavailable", "human", t.id, "error", err)
			continue
		}
		t.distance, t.hasDistance = d, true
		changed = true
	}
	return changed
}

// combine emits the latest observations once every tracker has both values,
// then pushes the resulting raw direction into the stabilizer.
func (l *loop) combine(stabTimer *time.Timer) {
	obs := make([]Observation, 0, len(l.trackers))
	for _, t := range l.trackers {
		if !t.hasState || !t.hasDistance {
			return
		}
		obs = append(obs, Observation{Human: t.id, State: t.state, Distance: t.distance})
	}
	l.s.p.observations.Add(1)

	d := ToDirection(obs)
	l.s.p.rawDirections.Add(1)

	now := time.Now()
	if l.stab.Push(d, now) {
		if dl, ok := l.stab.Deadline(); ok {
			stabTimer.Reset(dl.Sub(now))
		}
	}
}
