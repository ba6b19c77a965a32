// Package sim is a stand-in robot. It connects to the server's robot
// endpoint, reports a small crowd, and plays the game with a configurable
// chance of looking the right way.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/lookgame/pkg/attention"
	"github.com/teslashibe/lookgame/pkg/direction"
	"github.com/teslashibe/lookgame/pkg/protocol"
	"github.com/teslashibe/lookgame/pkg/tts"
)

// ErrRejected is returned when the server turns the simulator away.
var ErrRejected = errors.New("sim: rejected by server")

var (
	errFinished = errors.New("sim: rounds complete")
	errClosed   = errors.New("sim: server closed the connection")
)

// Robot simulates a robot and the people in front of it.
type Robot struct {
	cfg    Config
	logger *slog.Logger
	humans []attention.HumanID

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu   sync.Mutex
	rng  *rand.Rand
	look *time.Timer

	finished chan struct{}
	once     sync.Once

	// Stats
	phases   atomic.Uint64
	looks    atomic.Uint64
	wrong    atomic.Uint64
	matched  atomic.Uint64
	spoken   atomic.Uint64
	gestures atomic.Uint64
	latency  atomic.Int64
}

// New creates a simulator.
func New(opts ...Option) *Robot {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Humans < 1 {
		cfg.Humans = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	humans := make([]attention.HumanID, cfg.Humans)
	for i := range humans {
		humans[i] = attention.HumanID(uuid.NewString())
	}

	return &Robot{
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "sim.robot"),
		humans:   humans,
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed>>1|1)),
		finished: make(chan struct{}),
	}
}

// Player returns the ID of the closest human.
func (r *Robot) Player() attention.HumanID {
	return r.humans[0]
}

// Run connects and plays until ctx is done, the server goes away, or the
// configured number of rounds has been won.
func (r *Robot) Run(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("sim: dial %s: %w", r.cfg.URL, err)
	}
	r.conn = conn
	defer conn.Close()

	r.logger.Info("connected", "url", r.cfg.URL, "humans", len(r.humans))
	if err := r.arrive(); err != nil {
		return r.closeReason(err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.readLoop(gctx) })
	g.Go(func() error { return r.pingLoop(gctx) })
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-r.finished:
			return errFinished
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		r.stopLook()
		r.leave()
		return nil
	})

	err = g.Wait()
	if errors.Is(err, errFinished) || errors.Is(err, errClosed) || ctx.Err() != nil {
		return nil
	}
	return err
}

// arrive reports the crowd and starts a session.
func (r *Robot) arrive() error {
	ids := make([]attention.HumanID, len(r.humans))
	copy(ids, r.humans)
	if err := r.send(protocol.NewHumansMessage(ids)); err != nil {
		return err
	}
	for i, id := range r.humans {
		x := r.cfg.Distance + float64(i)
		y := 0.3 * float64(i)
		if err := r.send(protocol.NewTransformMessage(id, x, y, 0)); err != nil {
			return err
		}
		if err := r.send(protocol.NewAttentionMessage(id, attention.StateAtRobot)); err != nil {
			return err
		}
	}
	return r.send(protocol.NewFocusMessage(true))
}

// closeReason prefers the server's close frame over a write error.
func (r *Robot) closeReason(err error) error {
	_ = r.conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, rerr := r.conn.ReadMessage(); websocket.IsCloseError(rerr, websocket.ClosePolicyViolation) {
		return ErrRejected
	}
	return err
}

// leave ends the session and closes the socket.
func (r *Robot) leave() {
	_ = r.send(protocol.NewFocusMessage(false))
	_ = r.send(protocol.NewHumansMessage(nil))

	r.writeMu.Lock()
	_ = r.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(time.Second))
	r.writeMu.Unlock()
	r.conn.Close()
}

func (r *Robot) send(msg *protocol.Message, err error) error {
	if err != nil {
		return err
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.conn.WriteMessage(websocket.TextMessage, data)
}

func (r *Robot) readLoop(ctx context.Context) error {
	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
				return ErrRejected
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errClosed
			}
			return fmt.Errorf("sim: read: %w", err)
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			r.logger.Warn("parse error", "error", err)
			continue
		}
		r.handle(ctx, msg)
	}
}

func (r *Robot) handle(ctx context.Context, msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypePhase:
		phase, err := msg.GetPhaseData()
		if err != nil {
			r.logger.Warn("bad phase message", "error", err)
			return
		}
		r.onPhase(phase)

	case protocol.TypeSpeak:
		speak, err := msg.GetSpeakData()
		if err != nil {
			r.logger.Warn("bad speak message", "error", err)
			return
		}
		go r.speak(ctx, speak)

	case protocol.TypeGesture:
		gesture, err := msg.GetGestureData()
		if err == nil {
			r.gestures.Add(1)
			r.logger.Info("gesture", "name", gesture.Name)
		}

	case protocol.TypePong:
		pong, err := msg.GetPongData()
		if err == nil {
			r.latency.Store(time.Now().UnixMilli() - pong.PingTS)
		}

	default:
		r.logger.Debug("unhandled message", "type", msg.Type)
	}
}

func (r *Robot) onPhase(phase *protocol.PhaseData) {
	r.phases.Add(1)
	r.logger.Debug("phase", "name", phase.Name, "expected", phase.Expected, "score", phase.Score)

	switch phase.Name {
	case "playing":
		r.scheduleLook(phase.Expected)
	case "matching":
		r.stopLook()
		r.lookAtRobot()
		if n := r.matched.Add(1); r.cfg.Rounds > 0 && int(n) >= r.cfg.Rounds {
			r.once.Do(func() { close(r.finished) })
		}
	default:
		r.stopLook()
		r.lookAtRobot()
	}
}

// choose picks where the player looks for target.
func (r *Robot) choose(target direction.Direction) direction.Direction {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rng.Float64() < r.cfg.Accuracy {
		return target
	}
	var wrong []direction.Direction
	for _, d := range direction.All {
		if !direction.Matches(target, d) {
			wrong = append(wrong, d)
		}
	}
	return wrong[r.rng.IntN(len(wrong))]
}

func (r *Robot) scheduleLook(target direction.Direction) {
	if !target.Valid() {
		return
	}
	d := r.choose(target)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.look != nil {
		r.look.Stop()
	}
	r.look = time.AfterFunc(r.cfg.Reaction, func() {
		r.looks.Add(1)
		if !direction.Matches(target, d) {
			r.wrong.Add(1)
		}
		r.logger.Info("looking", "target", target, "looking", d)
		if err := r.send(protocol.NewAttentionMessage(r.Player(), attention.StateFor(d))); err != nil {
			r.logger.Debug("send attention", "error", err)
		}
	})
}

func (r *Robot) stopLook() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.look != nil {
		r.look.Stop()
		r.look = nil
	}
}

func (r *Robot) lookAtRobot() {
	if err := r.send(protocol.NewAttentionMessage(r.Player(), attention.StateAtRobot)); err != nil {
		r.logger.Debug("send attention", "error", err)
	}
}

// speak pretends to play a line and acknowledges it when done.
func (r *Robot) speak(ctx context.Context, s *protocol.SpeakData) {
	d := tts.SpeechDuration(s.Text)
	if audio, err := s.DecodeSpeakData(); err == nil && len(audio) > 0 && tts.Encoding(s.Format).IsPCM() {
		d = tts.PCMDuration(len(audio), s.SampleRate)
	}
	d = time.Duration(float64(d) * r.cfg.SpeechPace)

	r.logger.Info("🤖 "+s.Text, "duration", d)
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}
	}
	r.spoken.Add(1)
	if err := r.send(protocol.NewSpeakDoneMessage(s.ID, nil)); err != nil {
		r.logger.Debug("send speak_done", "error", err)
	}
}

func (r *Robot) pingLoop(ctx context.Context) error {
	if r.cfg.PingInterval <= 0 {
		return nil
	}
	ticker := time.NewTicker(r.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.send(protocol.NewPingMessage(uuid.NewString())); err != nil {
				r.logger.Debug("send ping", "error", err)
			}
		}
	}
}

// Stats contains simulator statistics
type Stats struct {
	Humans    int    `json:"humans"`
	Phases    uint64 `json:"phases"`
	Looks     uint64 `json:"looks"`
	Wrong     uint64 `json:"wrong"`
	Matched   uint64 `json:"matched"`
	Spoken    uint64 `json:"spoken"`
	Gestures  uint64 `json:"gestures"`
	LatencyMs int64  `json:"latency_ms"`
}

// GetStats returns simulator statistics
func (r *Robot) GetStats() Stats {
	return Stats{
		Humans:    len(r.humans),
		Phases:    r.phases.Load(),
		Looks:     r.looks.Load(),
		Wrong:     r.wrong.Load(),
		Matched:   r.matched.Load(),
		Spoken:    r.spoken.Load(),
		Gestures:  r.gestures.Load(),
		LatencyMs: r.latency.Load(),
	}
}
