package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"
)

const providerGoogle = "google"

// wavHeaderSize is the canonical RIFF header Google prepends to LINEAR16.
const wavHeaderSize = 44

// Google implements Provider for Google Cloud Text-to-Speech.
//
// With an API key set it authenticates with the key. Otherwise it uses
// application default credentials.
type Google struct {
	config  *Config
	service *texttospeech.Service
	logger  *slog.Logger
}

// NewGoogle creates a Google Cloud TTS provider. Output is always 16-bit PCM
// at the rate named by the configured PCM encoding (24 kHz by default).
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ""
	cfg.Apply(opts...)

	if !cfg.OutputFormat.IsPCM() {
		cfg.OutputFormat = EncodingPCM24
	}

	var clientOpts []option.ClientOption
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	} else {
		client, err := google.DefaultClient(ctx, texttospeech.CloudPlatformScope)
		if err != nil {
			return nil, WrapError(providerGoogle, fmt.Errorf("default credentials: %w", err))
		}
		client.Timeout = cfg.Timeout
		clientOpts = append(clientOpts, option.WithHTTPClient(client))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.BaseURL))
	}

	service, err := texttospeech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create service: %w", err))
	}

	return &Google{
		config:  cfg,
		service: service,
		logger:  cfg.Logger.With("component", "tts.google"),
	}, nil
}

// Synthesize converts text to PCM audio.
func (g *Google) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, WrapError(providerGoogle, ErrEmptyText)
	}
	start := time.Now()

	sampleRate := SampleRateFromEncoding(g.config.OutputFormat)
	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: g.config.LanguageCode,
			Name:         g.config.VoiceID,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding:   "LINEAR16",
			SampleRateHertz: int64(sampleRate),
		},
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	resp, err := g.service.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, g.wrap(err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("decode audio: %w", err))
	}
	if len(audio) >= wavHeaderSize && bytes.HasPrefix(audio, []byte("RIFF")) {
		audio = audio[wavHeaderSize:]
	}
	latency := time.Since(start).Milliseconds()

	g.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", g.config.VoiceID,
	)

	return &AudioResult{
		Audio: audio,
		Format: AudioFormat{
			Encoding:   g.config.OutputFormat,
			SampleRate: sampleRate,
			Channels:   1,
			BitDepth:   16,
		},
		Duration:  PCMDuration(len(audio), sampleRate),
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health lists the voices for the configured language.
func (g *Google) Health(ctx context.Context) error {
	resp, err := g.service.Voices.List().LanguageCode(g.config.LanguageCode).Context(ctx).Do()
	if err != nil {
		return g.wrap(err)
	}
	if len(resp.Voices) == 0 {
		return WrapError(providerGoogle, fmt.Errorf("no voices for %q", g.config.LanguageCode))
	}
	return nil
}

// Close is a no-op; the service holds no resources of its own.
func (g *Google) Close() error {
	return nil
}

func (g *Google) wrap(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider:   providerGoogle,
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
		}
	}
	return WrapError(providerGoogle, err)
}

// Verify Google implements Provider at compile time.
var _ Provider = (*Google)(nil)
