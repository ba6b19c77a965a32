// Package tui is a terminal viewer for the game: current phase, where the
// player should look, what they did, and the score.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/teslashibe/lookgame/pkg/game"
)

const historySize = 8

// PhaseMsg carries a new phase into the model.
type PhaseMsg game.View

// ClosedMsg reports that the phase feed ended.
type ClosedMsg struct {
	Err error
}

// Model is the Bubble Tea model for watching a game.
type Model struct {
	feed    <-chan game.View
	errs    func() error
	title   string
	keys    KeyMap
	help    help.Model
	now     func() time.Time
	current game.View
	seen    bool
	updated time.Time
	history []game.View
	closed  bool
	err     error
}

// NewModel creates a viewer reading phases from feed. errs, if not nil,
// reports why the feed closed.
func NewModel(title string, feed <-chan game.View, errs func() error) Model {
	return Model{
		feed:  feed,
		errs:  errs,
		title: title,
		keys:  DefaultKeyMap(),
		help:  help.New(),
		now:   time.Now,
	}
}

// Init starts listening for phases.
func (m Model) Init() tea.Cmd {
	return m.wait()
}

func (m Model) wait() tea.Cmd {
	feed, errs := m.feed, m.errs
	return func() tea.Msg {
		v, ok := <-feed
		if !ok {
			var err error
			if errs != nil {
				err = errs()
			}
			return ClosedMsg{Err: err}
		}
		return PhaseMsg(v)
	}
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Clear):
			m.history = nil
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case PhaseMsg:
		v := game.View(msg)
		if m.seen {
			m.history = append(m.history, m.current)
			if len(m.history) > historySize {
				m.history = m.history[len(m.history)-historySize:]
			}
		}
		m.current, m.seen = v, true
		m.updated = m.now()
		return m, m.wait()

	case ClosedMsg:
		m.closed = true
		m.err = msg.Err
		return m, nil
	}

	return m, nil
}

// Current returns the phase on screen.
func (m Model) Current() game.View {
	return m.current
}

// History returns earlier phases, oldest first.
func (m Model) History() []game.View {
	return m.history
}
