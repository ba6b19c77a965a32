package tui

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/lookgame/pkg/game"
	"github.com/teslashibe/lookgame/pkg/web"
)

// Feed is a stream of phases for the viewer.
type Feed struct {
	C <-chan game.View

	mu  sync.Mutex
	err error
}

// Err returns why the feed closed, if it failed.
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *Feed) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Local follows a machine in this process.
func Local(ctx context.Context, m *game.Machine) *Feed {
	ch := make(chan game.View, 16)
	f := &Feed{C: ch}
	sub := m.Subscribe()

	go func() {
		defer close(ch)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-sub.Changes():
				if !ok {
					return
				}
				select {
				case ch <- game.Describe(c.Phase):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return f
}

// Remote follows a running server's phase websocket, e.g.
// ws://localhost:8080/ws/phase.
func Remote(ctx context.Context, url string, logger *slog.Logger) (*Feed, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "tui.remote")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	ch := make(chan game.View, 16)
	f := &Feed{C: ch}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(ch)
		defer conn.Close()
		for {
			var ev web.PhaseEvent
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Debug("phase feed closed", "error", err)
					f.fail(err)
				}
				return
			}
			select {
			case ch <- ev.View:
			case <-ctx.Done():
				return
			}
		}
	}()
	return f, nil
}

// ErrNoFeed is returned by Run without a feed.
var ErrNoFeed = errors.New("tui: no phase feed")

// Run shows the viewer until the user quits or ctx is done.
func Run(ctx context.Context, title string, feed *Feed) error {
	if feed == nil {
		return ErrNoFeed
	}
	p := tea.NewProgram(
		NewModel(title, feed.C, feed.Err),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
