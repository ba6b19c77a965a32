package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/lookgame/pkg/attention"
	"github.com/teslashibe/lookgame/pkg/direction"
)

// ErrNoExpectedDirection is the panic value when a direction arrives while
// no target is set. It indicates a bug, not a runtime condition.
var ErrNoExpectedDirection = errors.New("game: no expected direction")

// Speaker says text out loud and returns once it has been said.
type Speaker interface {
	Say(ctx context.Context, text string) error
}

// Gestures are optional body-language cues.
type Gestures interface {
	Celebrate(ctx context.Context) error
	Shake(ctx context.Context) error
}

// Stream is a running source of stabilized directions.
type Stream interface {
	Directions() <-chan direction.Direction
	Close()
}

// Sensor starts direction streams.
type Sensor interface {
	Subscribe() Stream
}

// PipelineSensor adapts an attention.Pipeline to Sensor.
type PipelineSensor struct {
	Pipeline *attention.Pipeline
}

// Subscribe starts a pipeline subscription.
func (s PipelineSensor) Subscribe() Stream {
	return s.Pipeline.Subscribe()
}

// RobotOption configures a Robot.
type RobotOption func(*Robot)

// WithScript sets the spoken lines.
func WithScript(s *Script) RobotOption {
	return func(r *Robot) {
		r.script = s
	}
}

// WithGestures enables celebration and head-shake gestures.
func WithGestures(g Gestures) RobotOption {
	return func(r *Robot) {
		r.gestures = g
	}
}

// WithSpeechTimeout bounds each Say call.
func WithSpeechTimeout(d time.Duration) RobotOption {
	return func(r *Robot) {
		r.speechTimeout = d
	}
}

// WithRobotLogger sets the structured logger.
func WithRobotLogger(logger *slog.Logger) RobotOption {
	return func(r *Robot) {
		r.logger = logger
	}
}

// Robot reacts to phase changes: it speaks each phase's line, posts the
// matching completion event, and runs the sensor only while Playing.
type Robot struct {
	machine       *Machine
	sensor        Sensor
	speaker       Speaker
	gestures      Gestures
	script        *Script
	speechTimeout time.Duration
	logger        *slog.Logger

	mu     sync.Mutex
	stream Stream
	gen    uint64

	wg sync.WaitGroup
}

// NewRobot wires a Robot to a machine, a sensor and a speaker.
func NewRobot(m *Machine, sensor Sensor, speaker Speaker, opts ...RobotOption) *Robot {
	r := &Robot{
		machine:       m,
		sensor:        sensor,
		speaker:       speaker,
		speechTimeout: 30 * time.Second,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.script == nil {
		r.script = DefaultScript()
	}
	r.logger = r.logger.With("component", "game.robot")
	return r
}

// Machine returns the machine the robot drives.
func (r *Robot) Machine() *Machine {
	return r.machine
}

// FocusGained starts a session.
func (r *Robot) FocusGained() bool {
	return r.machine.Post(FocusGained)
}

// FocusLost stops sensing and returns the game to Idle.
func (r *Robot) FocusLost() bool {
	r.stopSensor()
	return r.machine.Post(FocusLost)
}

// Run handles phases until ctx is done. On return the sensor is stopped and
// in-flight speech has completed.
func (r *Robot) Run(ctx context.Context) error {
	sub := r.machine.Subscribe()
	defer func() {
		sub.Close()
		r.stopSensor()
		r.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-sub.Changes():
			if !ok {
				return nil
			}
			r.handlePhase(ctx, c)
		}
	}
}

func (r *Robot) handlePhase(ctx context.Context, c Change) {
	if _, playing := c.Phase.(Playing); !playing {
		r.stopSensor()
	}

	if r.machine.Current().Epoch != c.Epoch {
		r.logger.Debug("skipping stale phase", "phase", c.Phase, "epoch", c.Epoch)
		return
	}

	switch p := c.Phase.(type) {
	case Idle:
	case Intro:
		r.say(ctx, c, IntroFinished)
	case Instructions:
		r.say(ctx, c, InstructionsFinished)
	case Playing:
		r.startSensor(p, c.Epoch)
	case NotMatching:
		r.gesture(ctx, "shake", r.shake)
		r.say(ctx, c, NotMatchingFinished)
	case Matching:
		r.gesture(ctx, "celebrate", r.celebrate)
		r.say(ctx, c, MatchingFinished)
	default:
		panic(fmt.Sprintf("game: unhandled phase %T", p))
	}
}

// say speaks the line for c off the delivery goroutine and posts done
// afterwards. A failed Say is logged and nothing is posted, so the game waits
// in c.
func (r *Robot) say(ctx context.Context, c Change, done Event) {
	p := c.Phase
	text := r.script.Line(p)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.speechTimeout)
		defer cancel()

		start := time.Now()
		if err := r.speaker.Say(sctx, text); err != nil {
			r.logger.Error("speech failed, game stalled", "phase", p, "text", text, "error", err)
			return
		}
		r.logger.Debug("said", "phase", p, "text", text, "took", time.Since(start))

		r.machine.Advance(c, done)
	}()
}

func (r *Robot) gesture(ctx context.Context, name string, fn func(context.Context) error) {
	if r.gestures == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := fn(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("gesture failed", "gesture", name, "error", err)
		}
	}()
}

func (r *Robot) celebrate(ctx context.Context) error { return r.gestures.Celebrate(ctx) }
func (r *Robot) shake(ctx context.Context) error     { return r.gestures.Shake(ctx) }

// startSensor replaces any running stream with a fresh one for p.
func (r *Robot) startSensor(p Playing, epoch uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		r.stream.Close()
		r.stream = nil
	}
	r.gen++
	gen := r.gen

	// FocusLost stops the sensor under r.mu before posting, so this check
	// and the stop cannot interleave.
	if r.machine.Current().Epoch != epoch {
		return
	}

	stream := r.sensor.Subscribe()
	r.stream = stream

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for d := range stream.Directions() {
			r.handleDirection(gen, p.Expected, d)
		}
	}()
	r.logger.Debug("sensor started", "expected", p.Expected, "generation", gen)
}

func (r *Robot) stopSensor() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	if r.stream == nil {
		return
	}
	r.stream.Close()
	r.stream = nil
	r.logger.Debug("sensor stopped")
}

// handleDirection reports d to the machine unless the stream it came from
// has been stopped. The lock is held while posting so a concurrent stop
// cannot interleave.
func (r *Robot) handleDirection(gen uint64, expected, d direction.Direction) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen {
		return
	}
	if !expected.Valid() {
		panic(ErrNoExpectedDirection)
	}

	if direction.Matches(expected, d) {
		r.logger.Info("match", "expected", expected, "observed", d)
		r.machine.Post(Match)
		return
	}
	r.logger.Info("no match", "expected", expected, "observed", d)
	r.machine.NotMatching(d)
}
