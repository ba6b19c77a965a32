package tui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/lookgame/internal/log"
	"github.com/teslashibe/lookgame/pkg/direction"
	"github.com/teslashibe/lookgame/pkg/game"
	"github.com/teslashibe/lookgame/pkg/web"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelWaiting(t *testing.T) {
	m := NewModel("lookgame", nil, nil)
	out := m.View()
	assert.Contains(t, out, "lookgame")
	assert.Contains(t, out, "waiting for the game")
}

func TestModelPhase(t *testing.T) {
	m := NewModel("lookgame", nil, nil)

	m, cmd := update(t, m, PhaseMsg(game.Describe(game.Playing{Expected: direction.Up, Score: 2})))
	assert.NotNil(t, cmd, "keeps listening")
	assert.Equal(t, "playing", m.Current().Name)
	assert.Empty(t, m.History())

	out := m.View()
	assert.Contains(t, out, "PLAYING")
	assert.Contains(t, out, "↑")
	assert.Contains(t, out, "2")

	m, _ = update(t, m, PhaseMsg(game.Describe(game.NotMatching{
		Expected: direction.Up,
		Observed: direction.Left,
		Score:    2,
		Errors:   1,
	})))
	out = m.View()
	assert.Contains(t, out, "NOT MATCHING")
	assert.Contains(t, out, "←")
	assert.Contains(t, out, "misses")
	require.Len(t, m.History(), 1)
	assert.Equal(t, "playing", m.History()[0].Name)
}

func TestModelHistoryBounded(t *testing.T) {
	m := NewModel("lookgame", nil, nil)
	for i := 0; i < historySize+5; i++ {
		m, _ = update(t, m, PhaseMsg(game.Describe(game.Matching{Matched: direction.Down, Score: i})))
	}
	assert.Len(t, m.History(), historySize)
	assert.Equal(t, historySize+3, m.History()[historySize-1].Score)

	m, _ = update(t, m, runes("c"))
	assert.Empty(t, m.History())
}

func TestModelQuit(t *testing.T) {
	for _, msg := range []tea.KeyMsg{runes("q"), {Type: tea.KeyCtrlC}} {
		_, cmd := update(t, NewModel("lookgame", nil, nil), msg)
		require.NotNil(t, cmd, msg.String())
		_, ok := cmd().(tea.QuitMsg)
		assert.True(t, ok, msg.String())
	}
}

func TestModelHelpToggle(t *testing.T) {
	m := NewModel("lookgame", nil, nil)
	assert.NotContains(t, m.View(), "clear history")

	m, _ = update(t, m, runes("?"))
	assert.Contains(t, m.View(), "clear history")
}

func TestModelClosed(t *testing.T) {
	m := NewModel("lookgame", nil, nil)
	m, cmd := update(t, m, ClosedMsg{Err: errors.New("connection reset")})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "disconnected: connection reset")
}

func TestModelWaitReadsFeed(t *testing.T) {
	feed := make(chan game.View, 1)
	feed <- game.Describe(game.Intro{})
	m := NewModel("lookgame", feed, func() error { return nil })

	msg := m.Init()()
	assert.Equal(t, PhaseMsg(game.Describe(game.Intro{})), msg)

	close(feed)
	assert.Equal(t, ClosedMsg{}, m.Init()())
}

func TestArrow(t *testing.T) {
	assert.Equal(t, "↗", Arrow(direction.UpRight))
	assert.Equal(t, "·", Arrow(direction.Unknown))
}

func TestLocalFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := game.NewMachine(
		game.WithPicker(direction.NewSequence(direction.Right)),
		game.WithMachineLogger(log.Discard()),
	)
	feed := Local(ctx, m)

	next := func() game.View {
		select {
		case v := <-feed.C:
			return v
		case <-time.After(time.Second):
			t.Fatal("no phase")
			return game.View{}
		}
	}

	assert.Equal(t, "idle", next().Name)
	m.Post(game.FocusGained)
	assert.Equal(t, "intro", next().Name)

	cancel()
	for range feed.C {
	}
	assert.NoError(t, feed.Err())
}

func TestRemoteFeed(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(web.PhaseEvent{
			View: game.Describe(game.Playing{Expected: direction.Down, Score: 4}),
			Seq:  7,
		})
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/phase"
	feed, err := Remote(ctx, url, log.Discard())
	require.NoError(t, err)

	v, ok := <-feed.C
	require.True(t, ok)
	assert.Equal(t, "playing", v.Name)
	assert.Equal(t, direction.Down, v.Expected)
	assert.Equal(t, 4, v.Score)

	_, ok = <-feed.C
	assert.False(t, ok)
	assert.NoError(t, feed.Err())
}

func TestRemoteDialError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Remote(ctx, "ws://127.0.0.1:1/ws/phase", log.Discard())
	assert.Error(t, err)
}

func TestRunWithoutFeed(t *testing.T) {
	assert.ErrorIs(t, Run(context.Background(), "x", nil), ErrNoFeed)
}
