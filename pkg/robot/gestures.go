package robot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/lookgame/pkg/game"
)

// Antenna wiggle for a correct look, left/right pairs in radians.
var celebrateKeyframes = [][2]float64{
	{0.8, -0.8},
	{-0.8, 0.8},
	{0.8, -0.8},
	{-0.8, 0.8},
	{0, 0},
}

// Head shake for a wrong look, yaw in radians.
var shakeKeyframes = []float64{0.35, -0.35, 0.25, -0.25, 0}

// GestureOption configures Gestures.
type GestureOption func(*Gestures)

// WithStep sets how long each keyframe takes.
func WithStep(d time.Duration) GestureOption {
	return func(g *Gestures) {
		g.step = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GestureOption {
	return func(g *Gestures) {
		g.logger = logger
	}
}

// Gestures plays keyframed moves on a Controller. One gesture runs at a time;
// a second caller waits for the first to finish.
type Gestures struct {
	ctrl   Controller
	step   time.Duration
	logger *slog.Logger

	mu sync.Mutex
}

// NewGestures creates gestures driving ctrl.
func NewGestures(ctrl Controller, opts ...GestureOption) *Gestures {
	g := &Gestures{
		ctrl:   ctrl,
		step:   150 * time.Millisecond,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "robot.gestures")
	return g
}

// Celebrate wiggles the antennas.
func (g *Gestures) Celebrate(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, kf := range celebrateKeyframes {
		if err := g.ctrl.SetAntennas(ctx, kf[0], kf[1], g.step.Seconds()); err != nil {
			return fmt.Errorf("celebrate: %w", err)
		}
		if err := g.wait(ctx); err != nil {
			return err
		}
	}
	g.logger.Debug("celebrated")
	return nil
}

// Shake shakes the head and returns it to centre.
func (g *Gestures) Shake(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, yaw := range shakeKeyframes {
		if err := g.ctrl.SetHeadPose(ctx, Offset{Yaw: yaw}, g.step.Seconds()); err != nil {
			return fmt.Errorf("shake: %w", err)
		}
		if err := g.wait(ctx); err != nil {
			return err
		}
	}
	g.logger.Debug("shook head")
	return nil
}

// Status returns the daemon state.
func (g *Gestures) Status(ctx context.Context) (string, error) {
	return g.ctrl.GetDaemonStatus(ctx)
}

func (g *Gestures) wait(ctx context.Context) error {
	if g.step <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(g.step)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ game.Gestures = (*Gestures)(nil)
