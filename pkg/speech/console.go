package speech

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/teslashibe/lookgame/pkg/tts"
)

// Console prints lines and waits roughly as long as saying them would take.
// It is both a Sink and a game.Speaker.
type Console struct {
	mu   sync.Mutex
	w    io.Writer
	pace float64
}

// NewConsole writes to w. pace scales the wait; 0 returns immediately.
func NewConsole(w io.Writer, pace float64) *Console {
	return &Console{w: w, pace: pace}
}

// Say prints text and waits for its estimated duration.
func (c *Console) Say(ctx context.Context, text string) error {
	return c.Play(ctx, text, nil)
}

// Play prints text. With audio it waits for the audio's duration instead of
// the estimate.
func (c *Console) Play(ctx context.Context, text string, audio *tts.AudioResult) error {
	if text == "" {
		return ErrEmptyText
	}

	c.mu.Lock()
	_, err := fmt.Fprintf(c.w, "🤖 %s\n", text)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	d := tts.SpeechDuration(text)
	if audio != nil && audio.Duration > 0 {
		d = audio.Duration
	}
	d = time.Duration(float64(d) * c.pace)
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Sink = (*Console)(nil)
