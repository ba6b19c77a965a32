package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/teslashibe/lookgame/internal/config"
	"github.com/teslashibe/lookgame/pkg/tts"
)

// newProvider builds the speech provider named by cfg.TTS. It returns nil
// for the robot's own voice.
func newProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (tts.Provider, error) {
	switch cfg.TTS {
	case config.TTSRobot:
		return nil, nil
	case config.TTSOpenAI:
		return openAIProvider(cfg, logger)
	case config.TTSElevenLabs:
		return elevenLabsProvider(cfg, logger)
	case config.TTSGoogle:
		return googleProvider(ctx, cfg, logger)
	case config.TTSChain:
		return chainProvider(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidTTS, cfg.TTS)
	}
}

func openAIProvider(cfg *config.Config, logger *slog.Logger) (tts.Provider, error) {
	p, err := tts.NewOpenAI(
		tts.WithAPIKey(cfg.OpenAIKey),
		tts.WithOutputFormat(tts.EncodingPCM24),
		tts.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func elevenLabsProvider(cfg *config.Config, logger *slog.Logger) (tts.Provider, error) {
	p, err := tts.NewElevenLabs(
		tts.WithAPIKey(cfg.ElevenLabsKey),
		tts.WithVoice(cfg.ElevenLabsVoiceID),
		tts.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func googleProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (tts.Provider, error) {
	p, err := tts.NewGoogle(ctx,
		tts.WithAPIKey(cfg.GoogleKey),
		tts.WithVoice(cfg.GoogleVoice),
		tts.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// chainProvider tries ElevenLabs, OpenAI, then Google, skipping any without
// credentials.
func chainProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (tts.Provider, error) {
	var providers []tts.Provider

	add := func(p tts.Provider, err error) {
		if err != nil {
			logger.Warn("tts provider skipped", "error", err)
			return
		}
		providers = append(providers, p)
	}

	if cfg.ElevenLabsKey != "" && cfg.ElevenLabsVoiceID != "" {
		add(elevenLabsProvider(cfg, logger))
	}
	if cfg.OpenAIKey != "" {
		add(openAIProvider(cfg, logger))
	}
	if cfg.GoogleKey != "" || os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		add(googleProvider(ctx, cfg, logger))
	}

	chain, err := tts.NewChainWithLogger(logger, providers...)
	if err != nil {
		return nil, err
	}
	return chain, nil
}
