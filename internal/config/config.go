// Package config provides process configuration for lookgame commands.
// Values come from the environment; cobra flags may override them afterwards.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Default robot configuration.
const (
	DefaultRobotPort = "8000"
	DefaultPort      = "8080"
)

// Sensor backends.
const (
	SensorRobot  = "robot"  // attention reported by the robot over the websocket
	SensorVision = "vision" // attention computed here from camera frames
)

// Speech backends.
const (
	TTSRobot      = "robot" // robot speaks the text itself
	TTSOpenAI     = "openai"
	TTSElevenLabs = "elevenlabs"
	TTSGoogle     = "google"
	TTSChain      = "chain" // every configured provider, in order
)

// Direction sets.
const (
	DirectionsCardinal = "cardinal"
	DirectionsAll      = "all"
)

var (
	// ErrInvalidSensor is returned for an unknown LOOKGAME_SENSOR.
	ErrInvalidSensor = errors.New("config: invalid sensor backend")

	// ErrInvalidTTS is returned for an unknown LOOKGAME_TTS.
	ErrInvalidTTS = errors.New("config: invalid tts backend")

	// ErrInvalidDirections is returned for an unknown LOOKGAME_DIRECTIONS.
	ErrInvalidDirections = errors.New("config: invalid direction set")

	// ErrInvalidTiming is returned when a pipeline interval is not positive.
	ErrInvalidTiming = errors.New("config: timings must be positive")
)

// Config is the full process configuration.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Env      string `env:"GO_ENV" envDefault:"development"`

	// RobotIP is the robot daemon host used for gestures. Empty disables them.
	RobotIP string `env:"ROBOT_IP"`

	ScriptPath string `env:"LOOKGAME_SCRIPT"`
	Directions string `env:"LOOKGAME_DIRECTIONS" envDefault:"cardinal"`
	Sensor     string `env:"LOOKGAME_SENSOR" envDefault:"robot"`
	TTS        string `env:"LOOKGAME_TTS" envDefault:"robot"`

	SetDebounce      time.Duration `env:"LOOKGAME_SET_DEBOUNCE" envDefault:"1s"`
	QuietPeriod      time.Duration `env:"LOOKGAME_QUIET_PERIOD" envDefault:"2s"`
	DistanceInterval time.Duration `env:"LOOKGAME_DISTANCE_INTERVAL" envDefault:"1s"`
	SpeechTimeout    time.Duration `env:"LOOKGAME_SPEECH_TIMEOUT" envDefault:"30s"`

	OpenAIKey         string `env:"OPENAI_API_KEY"`
	ElevenLabsKey     string `env:"ELEVENLABS_API_KEY"`
	ElevenLabsVoiceID string `env:"ELEVENLABS_VOICE_ID"`
	GoogleKey         string `env:"GOOGLE_API_KEY"`
	GoogleVoice       string `env:"GOOGLE_TTS_VOICE" envDefault:"en-US-Neural2-F"`

	YuNetModel string `env:"YUNET_MODEL" envDefault:"models/face_detection_yunet.onnx"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated values and timings.
func (c *Config) Validate() error {
	switch c.Sensor {
	case SensorRobot, SensorVision:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSensor, c.Sensor)
	}

	switch c.TTS {
	case TTSRobot, TTSOpenAI, TTSElevenLabs, TTSGoogle, TTSChain:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTTS, c.TTS)
	}

	switch c.Directions {
	case DirectionsCardinal, DirectionsAll:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDirections, c.Directions)
	}

	if c.SetDebounce <= 0 || c.QuietPeriod <= 0 || c.DistanceInterval <= 0 || c.SpeechTimeout <= 0 {
		return ErrInvalidTiming
	}
	return nil
}

// Production reports whether GO_ENV selects production logging.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// RobotAPIURL returns the robot HTTP API URL, or "" without a robot IP.
func (c *Config) RobotAPIURL() string {
	if c.RobotIP == "" {
		return ""
	}
	return fmt.Sprintf("http://%s:%s", c.RobotIP, DefaultRobotPort)
}
