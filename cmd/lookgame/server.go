package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/lookgame/internal/config"
	"github.com/teslashibe/lookgame/internal/httpc"
	"github.com/teslashibe/lookgame/pkg/attention"
	"github.com/teslashibe/lookgame/pkg/cloud"
	"github.com/teslashibe/lookgame/pkg/direction"
	"github.com/teslashibe/lookgame/pkg/game"
	"github.com/teslashibe/lookgame/pkg/protocol"
	"github.com/teslashibe/lookgame/pkg/robot"
	"github.com/teslashibe/lookgame/pkg/sim"
	"github.com/teslashibe/lookgame/pkg/speech"
	"github.com/teslashibe/lookgame/pkg/tts"
	"github.com/teslashibe/lookgame/pkg/vision"
	"github.com/teslashibe/lookgame/pkg/vision/yunet"
	"github.com/teslashibe/lookgame/pkg/web"
)

type serverOptions struct {
	AccessLog  io.Writer
	LocalVoice bool
	Simulate   bool
}

// server holds every running component of `lookgame serve`.
type server struct {
	cfg    *config.Config
	opts   serverOptions
	logger *slog.Logger

	hub      *cloud.Hub
	machine  *game.Machine
	pipeline *attention.Pipeline
	robot    *game.Robot
	speaker  *speech.Speaker
	web      *web.Server

	provider tts.Provider
	detector vision.Detector
	tracker  *vision.Tracker
	frames   chan []byte
}

func newServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts serverOptions) (*server, error) {
	s := &server{
		cfg:    cfg,
		opts:   opts,
		logger: logger,
		hub:    cloud.NewHub(logger),
	}

	script, err := game.LoadScript(cfg.ScriptPath)
	if err != nil {
		return nil, err
	}

	s.machine = game.NewMachine(
		game.WithPicker(direction.NewRandomPicker(directionSet(cfg.Directions))),
		game.WithMachineLogger(logger),
	)

	var source attention.Source = s.hub.Source()
	if cfg.Sensor == config.SensorVision {
		yc := yunet.DefaultConfig()
		yc.ModelPath = cfg.YuNetModel
		det, err := yunet.New(yc)
		if err != nil {
			return nil, fmt.Errorf("face detector: %w", err)
		}
		s.detector = det
		s.tracker = vision.NewTracker(det, vision.WithLogger(logger))
		s.frames = make(chan []byte, 1)
		source = s.tracker.Source()
	}

	s.pipeline = attention.NewPipeline(source,
		attention.WithSetDebounce(cfg.SetDebounce),
		attention.WithQuietPeriod(cfg.QuietPeriod),
		attention.WithDistanceInterval(cfg.DistanceInterval),
		attention.WithLogger(logger),
	)

	s.provider, err = newProvider(ctx, cfg, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("tts: %w", err)
	}

	var sink speech.Sink = s.hub
	if opts.LocalVoice {
		sink = speech.NewConsole(os.Stdout, 1)
	}
	speakerOpts := []speech.Option{speech.WithLogger(logger)}
	if s.provider != nil {
		speakerOpts = append(speakerOpts, speech.WithProvider(s.provider))
	}
	s.speaker = speech.New(sink, speakerOpts...)

	var gestures game.Gestures = s.hub
	if url := cfg.RobotAPIURL(); url != "" {
		gestures = robot.NewGestures(robot.NewHTTPControllerURL(url), robot.WithLogger(logger))
	}

	s.robot = game.NewRobot(s.machine,
		game.PipelineSensor{Pipeline: s.pipeline},
		s.speaker,
		game.WithScript(script),
		game.WithGestures(gestures),
		game.WithSpeechTimeout(cfg.SpeechTimeout),
		game.WithRobotLogger(logger),
	)

	s.wireHub()
	s.wireWeb()
	return s, nil
}

func directionSet(name string) []direction.Direction {
	if name == config.DirectionsAll {
		return direction.All
	}
	return direction.Cardinal
}

func (s *server) wireHub() {
	s.hub.OnFocus(func(robotID string, gained bool) {
		s.logger.Info("focus", "robot", robotID, "gained", gained)
		if gained {
			s.robot.FocusGained()
		} else {
			s.robot.FocusLost()
		}
	})

	s.hub.OnDisconnect(func(string) {
		s.robot.FocusLost()
		if s.tracker != nil {
			s.tracker.Reset()
		}
	})

	if s.frames != nil {
		s.hub.OnFrame(func(_ string, frame *protocol.FrameData) {
			jpeg, err := frame.DecodeFrameData()
			if err != nil {
				s.logger.Warn("bad frame", "frame", frame.FrameID, "error", err)
				return
			}
			// Keep only the newest frame while the detector is busy.
			select {
			case s.frames <- jpeg:
			default:
				select {
				case <-s.frames:
				default:
				}
				select {
				case s.frames <- jpeg:
				default:
				}
			}
		})
	}
}

func (s *server) wireWeb() {
	opts := []web.Option{
		web.WithAddr(":" + s.cfg.Port),
		web.WithLogger(s.logger),
	}
	if s.opts.AccessLog != nil {
		opts = append(opts, web.WithAccessLog(s.opts.AccessLog))
	}
	s.web = web.NewServer(opts...)

	app := s.web.App()
	s.hub.RegisterRoutes(app)
	s.hub.RegisterAPIRoutes(app.Group("/api"))

	s.web.AddStats("game", func() any { return s.machine.GetStats() })
	s.web.AddStats("robot", func() any { return s.hub.GetStats() })
	s.web.AddStats("speech", func() any { return s.speaker.GetStats() })
	s.web.AddStats("attention", func() any { return s.pipeline.GetStats() })
	if s.tracker != nil {
		s.web.AddStats("vision", func() any { return s.tracker.GetStats() })
	}

	s.web.AddMetrics(web.MachineMetrics(s.machine))
	s.web.AddMetrics(hubMetrics(s.hub))
}

func hubMetrics(h *cloud.Hub) func() []web.Metric {
	return func() []web.Metric {
		st := h.GetStats()
		connected := 0.0
		if st.Connected {
			connected = 1
		}
		return []web.Metric{
			{Name: "lookgame_robot_connected", Help: "Whether a robot is connected", Type: web.Gauge, Value: connected},
			{Name: "lookgame_robot_humans", Help: "Humans reported by the robot", Type: web.Gauge, Value: float64(st.Humans)},
			{Name: "lookgame_robot_messages_received", Help: "Messages from the robot", Type: web.Counter, Value: float64(st.MessagesReceived)},
			{Name: "lookgame_robot_messages_sent", Help: "Messages to the robot", Type: web.Counter, Value: float64(st.MessagesSent)},
			{Name: "lookgame_speech_requests", Help: "Lines sent to the robot", Type: web.Counter, Value: float64(st.SpeechRequests)},
			{Name: "lookgame_speech_failures", Help: "Lines the robot failed to say", Type: web.Counter, Value: float64(st.SpeechFailures)},
		}
	}
}

// Run serves until ctx is done or a component fails.
func (s *server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.web.Run(ctx) })
	g.Go(func() error { return ignoreCanceled(s.robot.Run(ctx)) })
	g.Go(func() error {
		s.web.Follow(ctx, s.machine)
		return nil
	})
	g.Go(func() error {
		s.hub.Follow(ctx, s.machine)
		return nil
	})

	if s.frames != nil {
		g.Go(func() error { return s.processFrames(ctx) })
	}

	if s.opts.Simulate {
		g.Go(func() error { return s.simulate(ctx) })
	}

	return g.Wait()
}

func (s *server) processFrames(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case jpeg := <-s.frames:
			if err := s.tracker.ProcessFrame(jpeg); err != nil {
				s.logger.Debug("frame", "error", err)
			}
		}
	}
}

// simulate waits for the server to come up and plays against it.
func (s *server) simulate(ctx context.Context) error {
	base := "127.0.0.1:" + s.cfg.Port
	if err := waitHealthy(ctx, "http://"+base+"/health"); err != nil {
		return ignoreCanceled(err)
	}
	bot := sim.New(
		sim.WithURL("ws://"+base+"/ws/robot/sim"),
		sim.WithLogger(s.logger),
	)
	s.web.AddStats("sim", func() any { return bot.GetStats() })
	return bot.Run(ctx)
}

func waitHealthy(ctx context.Context, url string) error {
	client := httpc.NewClient(time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		var health map[string]any
		if err := httpc.GetJSON(ctx, client, url, &health); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close releases the speech provider and face detector.
func (s *server) Close() error {
	var errs []error
	if s.provider != nil {
		errs = append(errs, s.provider.Close())
	}
	if s.detector != nil {
		errs = append(errs, s.detector.Close())
	}
	return errors.Join(errs...)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
