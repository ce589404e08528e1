package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// Pitch grid size in characters
const (
	pitchCols  = 47
	pitchRows  = 13
	meterWidth = 30
)

var (
	greenColor  = lipgloss.Color("#1B7F3B")
	yellowColor = lipgloss.Color("#F2C12E")
	mutedColor  = lipgloss.Color("#888888")
	redColor    = lipgloss.Color("#D7263D")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(greenColor)
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	ballStyle  = lipgloss.NewStyle().Bold(true).Foreground(yellowColor)
	goalStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#000000")).Background(yellowColor).Padding(0, 1)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(mutedColor).Padding(0, 1)
)

var sparkChars = []rune("▁▂▃▄▅▆▇█")

// renderDashboard renders the live view
func renderDashboard(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	b.WriteString(renderScore(m))
	b.WriteString("\n")

	pitch := panelStyle.BorderForeground(greenColor).Render(renderPitch(m.Session.Layout, m.Trail))
	side := lipgloss.JoinVertical(lipgloss.Left,
		panelStyle.Render(renderTempo(m)),
		panelStyle.Render(renderMeters(m)),
	)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, pitch, " ", side))
	b.WriteString("\n")
	b.WriteString(renderFooter(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := titleStyle.Render("Foosmic ⚽ - Table Tracker")

	source := m.Session.Source
	if source == "" {
		source = "no source"
	}
	sub := fmt.Sprintf("%s: %s", m.Session.Mode, source)
	if m.Session.SessionID != "" {
		sub += " | session " + shortID(m.Session.SessionID)
	}
	return title + "\n" + mutedStyle.Render(sub)
}

// renderScore renders the goal counters, highlighting a side that just scored
func renderScore(m Model) string {
	if !m.Session.Goals {
		return mutedStyle.Render("Goal detection off")
	}
	sides := make([]string, 2)
	for side := range sides {
		label := fmt.Sprintf("%s %d", processor.Side(side), m.GoalCount[side])
		if m.flashing(side) {
			label = goalStyle.Render("GOAL " + label)
		}
		sides[side] = label
	}
	return sides[0] + "  :  " + sides[1]
}

// renderPitch draws the table from above: mics as digits, recent positions
// as dots and the current estimate as the ball.
func renderPitch(layout processor.Layout, trail []processor.Point) string {
	grid := make([][]string, pitchRows)
	for r := range grid {
		grid[r] = make([]string, pitchCols)
		for c := range grid[r] {
			grid[r][c] = " "
			if c == pitchCols/2 {
				grid[r][c] = "│"
			}
		}
	}

	// Goal mouths at the short ends
	for r := pitchRows/2 - 1; r <= pitchRows/2+1; r++ {
		grid[r][0] = "▐"
		grid[r][pitchCols-1] = "▌"
	}

	for i, p := range layout {
		r, c := gridCell(p)
		grid[r][c] = micGlyph(i)
	}

	for i, p := range trail {
		r, c := gridCell(p)
		if i == len(trail)-1 {
			grid[r][c] = ballStyle.Render("●")
		} else if grid[r][c] == " " || grid[r][c] == "│" {
			grid[r][c] = "·"
		}
	}

	lines := make([]string, pitchRows)
	for r := range grid {
		lines[r] = strings.Join(grid[r], "")
	}
	return strings.Join(lines, "\n")
}

// gridCell maps a table position in cm to a grid row and column
func gridCell(p processor.Point) (int, int) {
	c := int(math.Round(p.X / processor.TableWidth * float64(pitchCols-1)))
	r := int(math.Round(p.Y / processor.TableHeight * float64(pitchRows-1)))
	return clampInt(r, 0, pitchRows-1), clampInt(c, 0, pitchCols-1)
}

func micGlyph(i int) string {
	if i < 9 {
		return fmt.Sprint(i + 1)
	}
	return "o"
}

// renderTempo renders BPM, overall intensity and the tempo sparkline
func renderTempo(m Model) string {
	st := m.Latest
	r := m.Session.Display
	if r.Max <= r.Min {
		r = processor.Range100
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tempo     %5.1f BPM\n", st.Tempo)
	fmt.Fprintf(&b, "Intensity %s %5.1f\n", renderBar(st.Intensity, r.Min, r.Max, meterWidth-12), st.Intensity)
	b.WriteString(sparkline(m.Tempos, m.Session.MinTempo, m.Session.MaxTempo))
	return b.String()
}

// renderMeters renders one bar per position channel
func renderMeters(m Model) string {
	r := m.Session.Display
	if r.Max <= r.Min {
		r = processor.Range100
	}

	var b strings.Builder
	for i, v := range m.Latest.ChannelIntensities {
		name := fmt.Sprintf("mic %d", i+1)
		if i < len(m.Session.MicNames) && m.Session.MicNames[i] != "" {
			name = m.Session.MicNames[i]
		}
		peak := v
		if i < len(m.PeakLevels) {
			peak = m.PeakLevels[i]
		}
		fmt.Fprintf(&b, "%-12.12s %s\n", name, renderPeakBar(v, peak, r.Min, r.Max, meterWidth-12))
	}
	for i, v := range m.Latest.GoalLoudness {
		fmt.Fprintf(&b, "%-12.12s %s %.3f\n", processor.Side(i).String()+" goal", renderBar(v, 0, 1, meterWidth-18), v)
	}
	if b.Len() == 0 {
		return "No channels"
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderFooter renders position, frame count and key help
func renderFooter(m Model) string {
	p := m.Latest.Position
	elapsed := m.now().Sub(m.StartTime)
	info := fmt.Sprintf("x %5.1f  y %5.1f cm | frame %d | %s", p.X, p.Y, m.Frames, formatElapsed(elapsed))
	if m.Session.Duration > 0 && m.Session.Chunk > 0 {
		played := time.Duration(m.Frames) * m.Session.Chunk
		info += " | " + renderProgressBar(played.Seconds()/m.Session.Duration.Seconds(), 20)
	}
	if len(m.Session.Outputs) > 0 {
		info += "\n" + strings.Join(m.Session.Outputs, " | ")
	}
	return mutedStyle.Render(info + "\nq quit | r reset trail")
}

// renderBar renders a horizontal meter for v in [lo, hi]
func renderBar(v, lo, hi float64, width int) string {
	filled := clampInt(int(math.Round(share(v, lo, hi)*float64(width))), 0, width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// renderPeakBar renders a meter with a peak-hold marker
func renderPeakBar(v, peak, lo, hi float64, width int) string {
	bar := []rune(renderBar(v, lo, hi, width))
	p := clampInt(int(math.Round(share(peak, lo, hi)*float64(width)))-1, 0, width-1)
	if bar[p] == '░' {
		bar[p] = '▏'
	}
	return string(bar)
}

// renderProgressBar renders a progress bar
func renderProgressBar(progress float64, width int) string {
	progress = math.Min(math.Max(progress, 0), 1)
	filled := int(progress * float64(width))
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	percentage := int(progress * 100)

	return fmt.Sprintf("%s %d%%", bar, percentage)
}

// sparkline renders values scaled between lo and hi
func sparkline(values []float64, lo, hi float64) string {
	if len(values) == 0 {
		return ""
	}
	if hi <= lo {
		lo, hi = slicesMinMax(values)
	}
	out := make([]rune, len(values))
	for i, v := range values {
		idx := int(math.Round(share(v, lo, hi) * float64(len(sparkChars)-1)))
		out[i] = sparkChars[clampInt(idx, 0, len(sparkChars)-1)]
	}
	return string(out)
}

// renderCompletionSummary renders the final summary
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	if m.State == StateError {
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(redColor).Render("✗ Session stopped"))
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "   Error: %v\n", m.Err)
	} else {
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(greenColor).Render("✓ Session complete"))
		b.WriteString("\n\n")
	}

	if s := m.Stats; s != nil {
		fmt.Fprintf(&b, "   Frames: %d", s.Frames)
		if s.Dropped > 0 {
			fmt.Fprintf(&b, " (%d dropped)", s.Dropped)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "   Goals: %d left | %d right\n", s.GoalCount[0], s.GoalCount[1])
		fmt.Fprintf(&b, "   Tempo: %.0f-%.0f BPM\n", s.TempoMin, s.TempoMax)
	}
	if m.ReportPath != "" {
		fmt.Fprintf(&b, "   Report: %s\n", m.ReportPath)
	}
	return b.String()
}

func share(v, lo, hi float64) float64 {
	if hi <= lo || math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max((v-lo)/(hi-lo), 0), 1)
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func slicesMinMax(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatElapsed formats elapsed time as MM:SS or HH:MM:SS
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
