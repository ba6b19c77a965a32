package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/teslashibe/lookgame/pkg/direction"
	"github.com/teslashibe/lookgame/pkg/game"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	phaseStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	arrowStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 3).
			Bold(true)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var phaseColors = map[string]lipgloss.Color{
	"idle":         "240",
	"intro":        "69",
	"instructions": "75",
	"playing":      "220",
	"not_matching": "196",
	"matching":     "42",
}

var arrows = map[direction.Direction]string{
	direction.Up:        "↑",
	direction.Down:      "↓",
	direction.Left:      "←",
	direction.Right:     "→",
	direction.UpLeft:    "↖",
	direction.UpRight:   "↗",
	direction.DownLeft:  "↙",
	direction.DownRight: "↘",
}

// Arrow draws d, or a dot when there is none.
func Arrow(d direction.Direction) string {
	if a, ok := arrows[d]; ok {
		return a
	}
	return "·"
}

// View renders the model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")

	if !m.seen {
		b.WriteString(dimStyle.Render("waiting for the game…"))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderPhase(m.current))
	}

	if len(m.history) > 0 {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("history "))
		names := make([]string, len(m.history))
		for i, v := range m.history {
			names[i] = shortName(v)
		}
		b.WriteString(dimStyle.Render(strings.Join(names, " › ")))
		b.WriteString("\n")
	}

	if m.closed {
		b.WriteString("\n")
		msg := "disconnected"
		if m.err != nil {
			msg += ": " + m.err.Error()
		}
		b.WriteString(badStyle.Render(msg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderPhase(v game.View) string {
	var b strings.Builder

	style := phaseStyle.Foreground(phaseColors[v.Name])
	b.WriteString(style.Render(strings.ToUpper(strings.ReplaceAll(v.Name, "_", " "))))
	b.WriteString("\n\n")

	if v.Expected != direction.Unknown {
		target := arrowStyle.Render(Arrow(v.Expected))
		parts := []string{target}
		if v.Observed != direction.Unknown {
			parts = append(parts, "  ", arrowStyle.BorderForeground(lipgloss.Color("196")).Render(Arrow(v.Observed)))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, parts...))
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("look ") + v.Expected.String())
		if v.Observed != direction.Unknown {
			b.WriteString(labelStyle.Render("  saw ") + badStyle.Render(v.Observed.String()))
		}
		b.WriteString("\n")
	}

	b.WriteString(labelStyle.Render("score ") + goodStyle.Render(fmt.Sprint(v.Score)))
	if v.Errors > 0 {
		b.WriteString(labelStyle.Render("  misses ") + badStyle.Render(fmt.Sprint(v.Errors)))
	}
	if !m.updated.IsZero() {
		b.WriteString(dimStyle.Render("  " + m.updated.Format("15:04:05")))
	}
	b.WriteString("\n")
	return b.String()
}

func shortName(v game.View) string {
	if v.Expected == direction.Unknown {
		return v.Name
	}
	return v.Name + " " + Arrow(v.Expected)
}
