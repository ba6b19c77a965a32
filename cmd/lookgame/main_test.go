package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/lookgame/internal/config"
	"github.com/teslashibe/lookgame/internal/log"
	"github.com/teslashibe/lookgame/pkg/cloud"
	"github.com/teslashibe/lookgame/pkg/direction"
	"github.com/teslashibe/lookgame/pkg/game"
	"github.com/teslashibe/lookgame/pkg/tts"
	"github.com/teslashibe/lookgame/pkg/web"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:             "0",
		Sensor:           config.SensorRobot,
		TTS:              config.TTSRobot,
		Directions:       config.DirectionsCardinal,
		SetDebounce:      time.Second,
		QuietPeriod:      2 * time.Second,
		DistanceInterval: time.Second,
		SpeechTimeout:    time.Second,
	}
}

func TestDirectionSet(t *testing.T) {
	assert.Equal(t, direction.Cardinal, directionSet(config.DirectionsCardinal))
	assert.Equal(t, direction.All, directionSet(config.DirectionsAll))
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("LOOKGAME_TTS", "openai")
	t.Setenv("PORT", "9000")

	flagPort, flagDirections = "9100", config.DirectionsAll
	t.Cleanup(func() { flagPort, flagDirections = "", "" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, config.TTSOpenAI, cfg.TTS)
	assert.Equal(t, config.DirectionsAll, cfg.Directions)

	flagSensor = "sonar"
	t.Cleanup(func() { flagSensor = "" })
	_, err = loadConfig()
	assert.ErrorIs(t, err, config.ErrInvalidSensor)
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	p, err := newProvider(ctx, cfg, log.Discard())
	require.NoError(t, err)
	assert.Nil(t, p, "robot voice needs no provider")

	cfg.TTS = config.TTSOpenAI
	p, err = newProvider(ctx, cfg, log.Discard())
	assert.ErrorIs(t, err, tts.ErrNoAPIKey)
	assert.Nil(t, p)

	cfg.TTS = config.TTSElevenLabs
	cfg.ElevenLabsKey = "key"
	_, err = newProvider(ctx, cfg, log.Discard())
	assert.ErrorIs(t, err, tts.ErrNoVoiceID)

	p, err = newProvider(ctx, &config.Config{TTS: config.TTSOpenAI, OpenAIKey: "sk-test"}, log.Discard())
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestChainProvider(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	cfg := testConfig()
	cfg.TTS = config.TTSChain

	_, err := newProvider(context.Background(), cfg, log.Discard())
	assert.ErrorIs(t, err, tts.ErrProviderUnavailable)

	cfg.OpenAIKey = "sk-test"
	p, err := newProvider(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	chain, ok := p.(*tts.Chain)
	require.True(t, ok)
	assert.Len(t, chain.Providers(), 1)
}

func TestHubMetrics(t *testing.T) {
	metrics := hubMetrics(cloud.NewHub(log.Discard()))()
	require.NotEmpty(t, metrics)
	assert.Equal(t, "lookgame_robot_connected", metrics[0].Name)
	assert.Zero(t, metrics[0].Value)

	out := web.Render(metrics)
	assert.Contains(t, out, "# TYPE lookgame_speech_failures counter")
}

func TestNewServerRoutes(t *testing.T) {
	s, err := newServer(context.Background(), testConfig(), log.Discard(), serverOptions{})
	require.NoError(t, err)
	defer s.Close()

	app := s.web.App()

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/robot/", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode, "no robot connected")

	resp, err = app.Test(httptest.NewRequest("GET", "/api/stats", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	var stats map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &stats))
	for _, section := range []string{"game", "robot", "speech", "attention"} {
		assert.Contains(t, stats, section)
	}
	assert.NotContains(t, stats, "vision")

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "lookgame_matches")
	assert.Contains(t, string(body), "lookgame_robot_connected")
}

func TestServerFocusDrivesGame(t *testing.T) {
	s, err := newServer(context.Background(), testConfig(), log.Discard(), serverOptions{})
	require.NoError(t, err)
	defer s.Close()

	s.robot.FocusGained()
	_, intro := s.machine.Phase().(game.Intro)
	assert.True(t, intro)

	s.robot.FocusLost()
	_, idle := s.machine.Phase().(game.Idle)
	assert.True(t, idle)
}

func TestScriptCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"script"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	text := out.String()
	assert.Contains(t, text, "intro")
	assert.Contains(t, text, "Look up left.")
	assert.Equal(t, len(game.DefaultScript().NotMatching), strings.Count(text, "not_matching"))
}

func TestSamplePhases(t *testing.T) {
	s := game.DefaultScript()
	phases := samplePhases(s)
	assert.Len(t, phases, 3+len(s.NotMatching))
	for _, p := range phases {
		assert.NotEmpty(t, s.Line(p), game.Describe(p).Name)
	}
}
