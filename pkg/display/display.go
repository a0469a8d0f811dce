// Package display renders aggregator snapshots for a terminal.
package display

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"gridwatch/pkg/model"
)

const (
	logTail       = 8
	stabilityTail = 6
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	stateColors = map[model.ConnectionState]lipgloss.Color{
		model.StateConnecting:   lipgloss.Color("11"),
		model.StateConnected:    lipgloss.Color("10"),
		model.StateCompleted:    lipgloss.Color("12"),
		model.StateError:        lipgloss.Color("9"),
		model.StateDisconnected: lipgloss.Color("8"),
	}
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// FormatNumber abbreviates large magnitudes with K, M and B suffixes.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	default:
		return fmt.Sprintf("%.1f", v)
	}
}

// Render draws one frame of the dashboard.
func Render(snap model.Snapshot, state model.ConnectionState) string {
	var b strings.Builder

	st := lipgloss.NewStyle().Bold(true).Foreground(stateColors[state]).Render(state.String())
	b.WriteString(titleStyle.Render("gridwatch") + "  " + st)
	fmt.Fprintf(&b, "  %s accepted, %s rejected, %s decode errors\n",
		humanize.Comma(int64(snap.Counters.Accepted)),
		humanize.Comma(int64(snap.Counters.RejectedNumeric)),
		humanize.Comma(int64(snap.Counters.RejectedDecode)))

	b.WriteString(boxStyle.Render(renderIndicators(snap.Indicators)))
	b.WriteString("\n")

	series := lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(renderSeries(snap.AllJobs)),
		boxStyle.Render(renderSeries(snap.RlMin)),
	)
	b.WriteString(series)
	b.WriteString("\n")

	b.WriteString(boxStyle.Render(renderStability(snap.Merged)))
	b.WriteString("\n")
	b.WriteString(renderLog(snap.Log, snap.LogTotal))
	return b.String()
}

func renderIndicators(ind model.Indicators) string {
	rows := [][2]string{
		{"timestep", optionalInt(ind.LatestTimestep)},
		{"power q/e/l", "---"},
		{"battery soc", percent(ind.BatterySOC)},
		{"flywheel soc", percent(ind.FlywheelSOC)},
		{"dc power", optional(ind.LatestEnergyConsumedMW, " MW")},
		{"max co2", FormatNumber(ind.MaxAccumCO2) + " kg"},
	}
	if p := ind.LatestPower; p != nil {
		rows[1][1] = fmt.Sprintf("%.4f / %.4f / %.2f", p.Queue, p.Exec, p.Limit)
	}
	return table(rows)
}

func renderSeries(v model.SeriesView) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(v.Source.Label()))
	fmt.Fprintf(&b, " %s\n", labelStyle.Render(fmt.Sprintf("(%d samples)", len(v.Samples))))
	if len(v.Samples) == 0 {
		b.WriteString(labelStyle.Render("waiting for data"))
		return b.String()
	}
	last := v.Samples[len(v.Samples)-1]
	exec := make([]float64, len(v.Samples))
	grid := make([]float64, len(v.Samples))
	for i, s := range v.Samples {
		exec[i] = s.PowerExec
		grid[i] = s.GridImportMW
	}
	b.WriteString(table([][2]string{
		{"exec", sparkline(exec) + fmt.Sprintf(" %.4f", last.PowerExec)},
		{"grid import", sparkline(grid) + " " + FormatNumber(last.GridImportMW) + " MW"},
		{"renewable", FormatNumber(last.RenewablePowerMW) + " MW"},
		{"battery", FormatNumber(last.BatteryPowerMW) + " MW"},
		{"flywheel", FormatNumber(last.FlywheelPowerMW) + " MW"},
		{"co2", FormatNumber(last.AccumCO2Kg) + " kg"},
	}))
	return b.String()
}

func renderStability(rows []model.MergedRow) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Grid instability"))
	b.WriteString("\n")
	if len(rows) > stabilityTail {
		rows = rows[len(rows)-stabilityTail:]
	}
	fmt.Fprintf(&b, "%s\n", labelStyle.Render(fmt.Sprintf("%-10s %-12s %-12s", "timestep", "all jobs", "rl min")))
	for _, r := range rows {
		fmt.Fprintf(&b, "%-10d %-12s %-12s\n", r.Timestep, optional(r.AllJobs, ""), optional(r.RlMin, ""))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderLog(lines []string, total uint64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", labelStyle.Render(fmt.Sprintf("event log (%s lines)", humanize.Comma(int64(total)))))
	if len(lines) > logTail {
		lines = lines[len(lines)-logTail:]
	}
	for _, l := range lines {
		if strings.HasPrefix(l, "Error: ") {
			l = errorStyle.Render(l)
		}
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}

func table(rows [][2]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", width, r[0])))
		b.WriteString("  ")
		b.WriteString(r[1])
	}
	return b.String()
}

func sparkline(vals []float64) string {
	if len(vals) == 0 {
		return ""
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	out := make([]rune, len(vals))
	for i, v := range vals {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		out[i] = sparkRunes[idx]
	}
	return string(out)
}

func optional(v *float64, unit string) string {
	if v == nil {
		return "---"
	}
	return fmt.Sprintf("%.3f%s", *v, unit)
}

func optionalInt(v *int64) string {
	if v == nil {
		return "---"
	}
	return humanize.Comma(*v)
}

func percent(v *float64) string {
	if v == nil {
		return "---"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}
