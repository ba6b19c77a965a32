package vision

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/lookgame/pkg/attention"
)

// Config holds tracker configuration.
type Config struct {
	// MinConfidence drops weaker detections.
	MinConfidence float64

	// MaxMatchDistance is the largest centre movement between frames, in
	// frame widths, that still counts as the same person.
	MaxMatchDistance float64

	// ForgetAfter is how long a person may go unseen before they are dropped.
	ForgetAfter time.Duration

	Gaze GazeConfig

	Logger *slog.Logger
}

// Option is a functional option for configuring a Tracker.
type Option func(*Config)

// WithMinConfidence sets the detection confidence floor.
func WithMinConfidence(c float64) Option {
	return func(cfg *Config) {
		cfg.MinConfidence = c
	}
}

// WithMaxMatchDistance sets the association radius.
func WithMaxMatchDistance(d float64) Option {
	return func(cfg *Config) {
		cfg.MaxMatchDistance = d
	}
}

// WithForgetAfter sets how long unseen people are kept.
func WithForgetAfter(d time.Duration) Option {
	return func(cfg *Config) {
		cfg.ForgetAfter = d
	}
}

// WithGaze overrides the gaze thresholds.
func WithGaze(g GazeConfig) Option {
	return func(cfg *Config) {
		cfg.Gaze = g
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = logger
	}
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MinConfidence:    0.6,
		MaxMatchDistance: 0.15,
		ForgetAfter:      1500 * time.Millisecond,
		Gaze:             DefaultGazeConfig(),
		Logger:           slog.Default(),
	}
}

type track struct {
	id       attention.HumanID
	center   Point
	lastSeen time.Time
}

// Tracker associates faces across frames and publishes identities, gaze and
// distance to an attention.Store.
type Tracker struct {
	detector Detector
	store    *attention.Store
	cfg      Config
	logger   *slog.Logger

	mu     sync.Mutex
	tracks []*track

	frames  atomic.Int64
	faces   atomic.Int64
	errors  atomic.Int64
	created atomic.Int64
}

// Stats counts tracker activity.
type Stats struct {
	Frames  int64 `json:"frames"`
	Faces   int64 `json:"faces"`
	Errors  int64 `json:"errors"`
	Created int64 `json:"created"`
	Tracked int   `json:"tracked"`
}

// NewTracker creates a tracker. detector may be nil when faces are fed
// directly through Observe.
func NewTracker(detector Detector, opts ...Option) *Tracker {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Tracker{
		detector: detector,
		store:    attention.NewStore(),
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "vision.tracker"),
	}
}

// Source returns the attention source fed by this tracker.
func (t *Tracker) Source() attention.Source {
	return t.store
}

// ProcessFrame detects faces in a JPEG frame and observes them. Detection
// errors are counted and returned; tracked people are kept until they age
// out on a later successful frame.
func (t *Tracker) ProcessFrame(jpeg []byte) error {
	t.frames.Add(1)
	faces, err := t.detector.Detect(jpeg)
	if err != nil {
		t.errors.Add(1)
		return err
	}
	t.Observe(faces, time.Now())
	return nil
}

// Observe associates faces seen at now with known people and publishes the
// result. It returns what was published for the faces in this frame.
func (t *Tracker) Observe(faces []Face, now time.Time) []attention.Observation {
	faces = slices.DeleteFunc(slices.Clone(faces), func(f Face) bool {
		return f.Confidence < t.cfg.MinConfidence
	})
	t.faces.Add(int64(len(faces)))

	t.mu.Lock()
	matched := t.associate(faces, now)
	t.tracks = slices.DeleteFunc(t.tracks, func(tr *track) bool {
		return now.Sub(tr.lastSeen) > t.cfg.ForgetAfter
	})
	ids := make([]attention.HumanID, 0, len(t.tracks))
	for _, tr := range t.tracks {
		ids = append(ids, tr.id)
	}
	t.mu.Unlock()

	out := make([]attention.Observation, 0, len(faces))
	for i, f := range faces {
		obs := attention.Observation{
			Human:    matched[i],
			State:    Classify(f, t.cfg.Gaze),
			Distance: EstimateDepth(f.W),
		}
		t.store.SetState(obs.Human, obs.State)
		if obs.Distance > 0 {
			t.store.SetDistance(obs.Human, obs.Distance)
		}
		out = append(out, obs)
	}

	// tracks is append-only apart from forgetting, so ids are in first-seen order.
	t.store.SetHumans(ids)
	return out
}

// associate greedily pairs faces with the nearest known track within
// MaxMatchDistance and starts new tracks for the rest. The caller holds t.mu.
func (t *Tracker) associate(faces []Face, now time.Time) []attention.HumanID {
	type pair struct {
		face, track int
		d           float64
	}
	var pairs []pair
	for fi, f := range faces {
		c := f.Center()
		for ti, tr := range t.tracks {
			if d := dist(c, tr.center); d <= t.cfg.MaxMatchDistance {
				pairs = append(pairs, pair{fi, ti, d})
			}
		}
	}
	slices.SortFunc(pairs, func(a, b pair) int { return cmp.Compare(a.d, b.d) })

	ids := make([]attention.HumanID, len(faces))
	usedTrack := make([]bool, len(t.tracks))
	for _, p := range pairs {
		if ids[p.face] != "" || usedTrack[p.track] {
			continue
		}
		usedTrack[p.track] = true
		tr := t.tracks[p.track]
		tr.center = faces[p.face].Center()
		tr.lastSeen = now
		ids[p.face] = tr.id
	}

	for fi, f := range faces {
		if ids[fi] != "" {
			continue
		}
		tr := &track{
			id:       attention.HumanID(uuid.NewString()),
			center:   f.Center(),
			lastSeen: now,
		}
		t.tracks = append(t.tracks, tr)
		t.created.Add(1)
		t.logger.Debug("new person", "id", tr.id)
		ids[fi] = tr.id
	}
	return ids
}

// Reset forgets everyone.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.tracks = nil
	t.mu.Unlock()
	t.store.Reset()
}

// GetStats returns tracker counters.
func (t *Tracker) GetStats() Stats {
	t.mu.Lock()
	tracked := len(t.tracks)
	t.mu.Unlock()
	return Stats{
		Frames:  t.frames.Load(),
		Faces:   t.faces.Load(),
		Errors:  t.errors.Load(),
		Created: t.created.Load(),
		Tracked: tracked,
	}
}
