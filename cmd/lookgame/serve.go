package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/lookgame/internal/config"
	"github.com/teslashibe/lookgame/internal/log"
)

var (
	flagPort        string
	flagSensor      string
	flagTTS         string
	flagDirections  string
	flagScript      string
	flagAccessLog   bool
	flagLocalVoice  bool
	flagSimulateBot bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept the robot and run the game",
	Long: `Start the game server. The robot connects to /ws/robot/:id and
reports who is in front of it; the dashboard follows along on /ws/phase.

Sensors:
  robot   - attention states computed on the robot (default)
  vision  - faces detected here from the robot's camera frames (YuNet)

Speech:
  robot       - the robot speaks the text with its own voice (default)
  openai      - OpenAI speech, streamed to the robot as audio
  elevenlabs  - ElevenLabs speech
  google      - Google Cloud Text-to-Speech
  chain       - every provider with credentials, in that order

Examples:
  lookgame serve --port 9090
  lookgame serve --sensor vision --tts chain
  lookgame serve --simulate --local-voice`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagPort, "port", "", "HTTP port (default $PORT or 8080)")
	serveCmd.Flags().StringVar(&flagSensor, "sensor", "", "Sensor backend: robot, vision")
	serveCmd.Flags().StringVar(&flagTTS, "tts", "", "Speech backend: robot, openai, elevenlabs, google, chain")
	serveCmd.Flags().StringVar(&flagDirections, "directions", "", "Target directions: cardinal, all")
	serveCmd.Flags().StringVar(&flagScript, "script", "", "Path to a YAML script")
	serveCmd.Flags().BoolVar(&flagAccessLog, "access-log", false, "Log every HTTP request")
	serveCmd.Flags().BoolVar(&flagLocalVoice, "local-voice", false, "Print lines here instead of sending them to the robot")
	serveCmd.Flags().BoolVar(&flagSimulateBot, "simulate", false, "Also run a simulated robot against this server")
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Port, flagPort)
	override(&cfg.Sensor, flagSensor)
	override(&cfg.TTS, flagTTS)
	override(&cfg.Directions, flagDirections)
	override(&cfg.ScriptPath, flagScript)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	opts := serverOptions{
		LocalVoice: flagLocalVoice,
		Simulate:   flagSimulateBot,
	}
	if flagAccessLog {
		opts.AccessLog = os.Stdout
	}

	a, err := newServer(ctx, cfg, log.L(), opts)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	defer a.Close()

	log.Info("lookgame ready",
		"port", cfg.Port,
		"sensor", cfg.Sensor,
		"tts", cfg.TTS,
		"directions", cfg.Directions,
	)
	return a.Run(ctx)
}
