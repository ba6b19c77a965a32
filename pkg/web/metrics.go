package web

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/teslashibe/lookgame/pkg/game"
)

// MetricType is a Prometheus metric type.
type MetricType string

const (
	Counter MetricType = "counter"
	Gauge   MetricType = "gauge"
)

// Metric is one sample in the Prometheus text format.
type Metric struct {
	Name  string
	Help  string
	Type  MetricType
	Value float64
}

// Render writes metrics in the Prometheus text exposition format.
func Render(metrics []Metric) string {
	var b strings.Builder
	for i, m := range metrics {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "# HELP %s %s\n", m.Name, m.Help)
		fmt.Fprintf(&b, "# TYPE %s %s\n", m.Name, m.Type)
		fmt.Fprintf(&b, "%s %s\n", m.Name, strconv.FormatFloat(m.Value, 'g', -1, 64))
	}
	return b.String()
}

// MachineMetrics reports game counters.
func MachineMetrics(m *game.Machine) func() []Metric {
	return func() []Metric {
		st := m.GetStats()
		return []Metric{
			{Name: "lookgame_phase_transitions", Help: "Phase changes", Type: Counter, Value: float64(st.Transitions)},
			{Name: "lookgame_events_ignored", Help: "Events that did not apply to the current phase", Type: Counter, Value: float64(st.Ignored)},
			{Name: "lookgame_matches", Help: "Correct looks", Type: Counter, Value: float64(st.Matches)},
			{Name: "lookgame_mismatches", Help: "Wrong looks", Type: Counter, Value: float64(st.Mismatches)},
			{Name: "lookgame_phase_subscribers", Help: "Phase subscribers", Type: Gauge, Value: float64(st.Subscribers)},
		}
	}
}
