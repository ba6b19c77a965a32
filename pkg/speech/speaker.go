// Package speech says the game's lines out loud.
//
// A Speaker optionally synthesizes each line with a tts.Provider and hands
// text plus audio to a Sink, which plays it and returns once playback has
// finished. The robot connection (cloud.Hub) is the production sink; Console
// stands in for it offline.
package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/teslashibe/lookgame/pkg/tts"
)

// ErrEmptyText is returned by Say for blank lines.
var ErrEmptyText = errors.New("speech: empty text")

// Sink plays a line. audio is nil when the line was not synthesized and the
// sink has to voice the text itself. Play returns after playback completes.
type Sink interface {
	Play(ctx context.Context, text string, audio *tts.AudioResult) error
}

// Option configures a Speaker.
type Option func(*Speaker)

// WithProvider synthesizes lines before they are played.
func WithProvider(p tts.Provider) Option {
	return func(s *Speaker) {
		s.provider = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Speaker) {
		s.logger = logger
	}
}

// Speaker implements game.Speaker on top of a Sink.
type Speaker struct {
	sink     Sink
	provider tts.Provider
	logger   *slog.Logger

	spoken      atomic.Int64
	failed      atomic.Int64
	synthFailed atomic.Int64
}

// Stats counts lines said.
type Stats struct {
	Spoken      int64 `json:"spoken"`
	Failed      int64 `json:"failed"`
	SynthFailed int64 `json:"synth_failed"`
}

// New creates a Speaker playing through sink.
func New(sink Sink, opts ...Option) *Speaker {
	s := &Speaker{
		sink:   sink,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "speech.speaker")
	return s
}

// Say synthesizes text if a provider is configured and plays it. A synthesis
// failure is not fatal: the text goes to the sink without audio.
func (s *Speaker) Say(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	var audio *tts.AudioResult
	if s.provider != nil {
		result, err := s.provider.Synthesize(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				s.failed.Add(1)
				return ctx.Err()
			}
			s.synthFailed.Add(1)
			s.logger.Warn("synthesis failed, sending text only", "error", err)
		} else {
			audio = result
		}
	}

	if err := s.sink.Play(ctx, text, audio); err != nil {
		s.failed.Add(1)
		return err
	}
	s.spoken.Add(1)
	s.logger.Debug("said", "text", text, "audio", audio != nil)
	return nil
}

// GetStats returns counters.
func (s *Speaker) GetStats() Stats {
	return Stats{
		Spoken:      s.spoken.Load(),
		Failed:      s.failed.Load(),
		SynthFailed: s.synthFailed.Load(),
	}
}
