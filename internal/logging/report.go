package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// ReportData contains everything needed to write a session report.
type ReportData struct {
	SessionID     string // generated when empty
	Dir           string // report directory; "" is the working directory
	Mode          string // "run", "replay" or "simulate"
	Source        string // device or file name
	StartTime     time.Time
	EndTime       time.Time
	SampleRate    float64
	InputChannels int
	Chunk         time.Duration

	Stats    *processor.SessionStats
	Config   processor.Config
	Layout   processor.Layout
	Channels processor.ChannelMap
	MicNames []string
	Outputs  []string // enabled outputs, e.g. "osc 127.0.0.1:11111/foosball_status"

	Ambient     *processor.AmbientMeasurements // optional calibration pass
	Adjustments []processor.Adjustment
}

// writeSection writes a section header with title and dashed underline.
// The underline length matches the title length.
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

// ReportPath returns the file GenerateReport writes for data.
func ReportPath(data ReportData) string {
	return filepath.Join(data.Dir, "foosmic-"+data.SessionID+".log")
}

// GenerateReport writes a session report to foosmic-<session id>.log and
// returns its path.
//
// Report structure:
// 1. Header - session id, source and timestamps
// 2. Session Summary - frames, drops, goals and send errors
// 3. Configuration - routing and the thresholds in force
// 4. Position Channels - per-mic level table
// 5. Goal Channels - per-goal level table
// 6. Goal Events - one line per goal
// 7. Tempo - range and mean
// 8. Calibration - ambient floors and adjustments, when calibrated
// 9. Setup Tips
func GenerateReport(data ReportData) (string, error) {
	if data.SessionID == "" {
		data.SessionID = uuid.NewString()
	}
	logPath := ReportPath(data)

	f, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	WriteReport(f, data)
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return logPath, nil
}

// WriteReport renders the report sections to w.
func WriteReport(w io.Writer, data ReportData) {
	writeReportHeader(w, data)
	writeSessionSummary(w, data)
	writeConfiguration(w, data)

	if data.Stats != nil {
		writePositionTable(w, data)
		writeGoalTable(w, data)
		writeGoalEvents(w, data)
		writeTempo(w, data)
	}

	if data.Ambient != nil {
		writeCalibration(w, data.Ambient, data.Adjustments)
	}

	writeSetupTips(w, data)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

// channelName returns a human-readable channel count
func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d channels", channels)
	}
}

// micLabel names position channel i from the mic list, falling back to
// "mic N".
func micLabel(names []string, i int) string {
	if i < len(names) && names[i] != "" {
		return names[i]
	}
	return fmt.Sprintf("mic %d", i+1)
}

func joinInts(v []int) string {
	if len(v) == 0 {
		return "none"
	}
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}

// writeReportHeader outputs the report header with session info and timestamp.
func writeReportHeader(w io.Writer, data ReportData) {
	fmt.Fprintln(w, "Foosmic Session Report")
	fmt.Fprintln(w, "======================")
	fmt.Fprintf(w, "Session: %s\n", data.SessionID)
	if data.Mode != "" {
		fmt.Fprintf(w, "Mode: %s\n", data.Mode)
	}
	if data.Source != "" {
		fmt.Fprintf(w, "Source: %s\n", data.Source)
	}
	fmt.Fprintf(w, "Input: %s at %.0f Hz, %s frames\n",
		channelName(data.InputChannels), data.SampleRate, formatDuration(data.Chunk))
	if !data.StartTime.IsZero() {
		fmt.Fprintf(w, "Started: %s\n", data.StartTime.Format("2006-01-02 15:04:05 MST"))
	}
	if !data.EndTime.IsZero() {
		fmt.Fprintf(w, "Finished: %s\n", data.EndTime.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintln(w, "")
}

// writeSessionSummary outputs frame counts, goal totals and output health.
func writeSessionSummary(w io.Writer, data ReportData) {
	writeSection(w, "Session Summary")

	if data.Stats == nil {
		fmt.Fprintln(w, "No frames processed")
		fmt.Fprintln(w, "")
		return
	}
	s := data.Stats

	fmt.Fprintf(w, "Duration:      %s\n", formatDuration(s.Duration))
	fmt.Fprintf(w, "Frames:        %d", s.Frames)
	if s.Dropped > 0 {
		fmt.Fprintf(w, " (%d dropped, %s)", s.Dropped, formatPercent(s.DropRate()))
	}
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Goals:         %d left, %d right\n", s.GoalCount[processor.SideLeft], s.GoalCount[processor.SideRight])
	fmt.Fprintf(w, "Mean position: %.1f, %.1f cm\n", s.MeanPosition.X, s.MeanPosition.Y)
	fmt.Fprintf(w, "Send errors:   %d\n", s.SendErrors)
	if len(data.Outputs) > 0 {
		fmt.Fprintf(w, "Outputs:       %s\n", strings.Join(data.Outputs, "; "))
	}
	fmt.Fprintln(w, "")
}

// writeConfiguration outputs routing and the thresholds the session ran with.
func writeConfiguration(w io.Writer, data ReportData) {
	writeSection(w, "Configuration")

	cfg := data.Config
	fmt.Fprintf(w, "Position channels: %s", joinInts(data.Channels.Position))
	if cfg.MergeStereo {
		fmt.Fprint(w, " (stereo pairs merged)")
	}
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Goal channels:     %s\n", joinInts(data.Channels.Goals))
	fmt.Fprintf(w, "Position mode:     %s, %s balance\n", cfg.Position.Mode, cfg.Position.BalancePrecedence)
	fmt.Fprintf(w, "Noise gate:        %s (%s dBFS)\n", formatMetric(cfg.Position.NoiseThreshold, 4), formatMetricLevel(cfg.Position.NoiseThreshold, 1))
	fmt.Fprintf(w, "Smoothing:         %s\n", formatMetric(cfg.Position.SmoothingFactor, 2))
	fmt.Fprintf(w, "Goal threshold:    %s, rise x%s, cooldown %d frames\n",
		formatMetric(cfg.Goals.GoalThreshold, 3), formatMetric(cfg.Goals.VolumeIncreaseThreshold, 1), cfg.Goals.CooldownFrames)
	fmt.Fprintf(w, "Tempo:             %.0f-%.0f BPM, base %.0f\n", cfg.Tempo.MinTempo, cfg.Tempo.MaxTempo, cfg.Tempo.BaseTempo)
	if cfg.Hum.Enabled() {
		fmt.Fprintf(w, "Hum filter:        %.0f Hz, %d harmonics\n", cfg.Hum.ResolvedFrequency, cfg.Hum.Harmonics)
	} else {
		fmt.Fprintln(w, "Hum filter:        off")
	}

	if len(data.Layout) > 0 {
		fmt.Fprintln(w, "")
		table := NewMetricTable("X", "Y")
		for i, p := range data.Layout {
			table.AddMetricRow(micLabel(data.MicNames, i), []float64{p.X, p.Y}, 1, "cm", "")
		}
		fmt.Fprint(w, table.String())
	}
	fmt.Fprintln(w, "")
}

// interpretChannel summarises one channel's behaviour for the table.
func interpretChannel(c processor.ChannelStats, frames int64) string {
	switch {
	case c.Peak <= 0:
		return "dead"
	case c.Peak >= clippingRMS:
		return "clipping"
	case frames > 0 && float64(c.Silent)/float64(frames) > quietChannelShare:
		return "mostly below gate"
	default:
		return ""
	}
}

func channelRow(c processor.ChannelStats, frames int64) []string {
	silent := 0.0
	if frames > 0 {
		silent = float64(c.Silent) / float64(frames)
	}
	return []string{
		formatMetricLevel(c.Mean, 1),
		formatMetricLevel(c.Peak, 1),
		formatMetricLevel(c.Min, 1),
		formatPercent(silent),
	}
}

// writePositionTable outputs per-mic levels for the localiser channels.
func writePositionTable(w io.Writer, data ReportData) {
	writeSection(w, "Position Channels")

	table := NewMetricTable("Mean", "Peak", "Min", "Gated")
	for i, c := range data.Stats.Position {
		table.AddRow(micLabel(data.MicNames, i), channelRow(c, data.Stats.Frames), "dBFS", interpretChannel(c, data.Stats.Frames))
	}
	if len(table.Rows) == 0 {
		fmt.Fprintln(w, "No position channels")
	}
	fmt.Fprint(w, table.String())
	fmt.Fprintln(w, "")
}

// writeGoalTable outputs levels for the goal mics.
func writeGoalTable(w io.Writer, data ReportData) {
	writeSection(w, "Goal Channels")

	if len(data.Stats.Goal) == 0 {
		fmt.Fprintln(w, "Goal detection disabled")
		fmt.Fprintln(w, "")
		return
	}
	table := NewMetricTable("Mean", "Peak", "Min", "Gated")
	for i, c := range data.Stats.Goal {
		interp := interpretChannel(c, data.Stats.Frames)
		if interp == "" && c.Mean > data.Config.Goals.GoalThreshold {
			interp = "above goal threshold"
		}
		table.AddRow(goalName(i), channelRow(c, data.Stats.Frames), "dBFS", interp)
	}
	fmt.Fprint(w, table.String())
	fmt.Fprintln(w, "")
}

// writeGoalEvents lists every goal with its detector levels.
func writeGoalEvents(w io.Writer, data ReportData) {
	if len(data.Stats.GoalEvents) == 0 {
		return
	}
	writeSection(w, "Goal Events")

	for i, ev := range data.Stats.GoalEvents {
		at := time.Duration(ev.Frame) * data.Chunk
		fmt.Fprintf(w, "#%d: %s at %s (frame %d)\n", i+1, ev.Side, formatTimestamp(at), ev.Frame)
		fmt.Fprintf(w, "    Level:    %s\n", formatMetric(ev.Current, 3))
		fmt.Fprintf(w, "    Recent:   %s\n", formatMetric(ev.Recent, 3))
		fmt.Fprintf(w, "    Baseline: %s", formatMetric(ev.Baseline, 3))
		if ev.Baseline > 0 {
			fmt.Fprintf(w, " (x%.1f)", ev.Recent/ev.Baseline)
		}
		fmt.Fprintln(w, "")
	}
	fmt.Fprintln(w, "")
}

// writeTempo outputs the tempo range over the session.
func writeTempo(w io.Writer, data ReportData) {
	writeSection(w, "Tempo")

	s := data.Stats
	table := NewMetricTable("Min", "Mean", "Max")
	table.AddMetricRow("Tempo", []float64{s.TempoMin, s.TempoMean, s.TempoMax}, 1, "BPM", "")
	fmt.Fprint(w, table.String())
	fmt.Fprintln(w, "")
}

// writeCalibration outputs the ambient measurement and the thresholds it
// changed.
func writeCalibration(w io.Writer, m *processor.AmbientMeasurements, adj []processor.Adjustment) {
	writeSection(w, "Calibration")

	fmt.Fprintf(w, "Measured %d frames at %.0f Hz\n", m.Frames, m.SampleRate)
	if m.HumFrequency > 0 {
		fmt.Fprintf(w, "Mains hum: %s\n", formatMetricWithUnit(m.HumFrequency, 0, "Hz"))
	} else {
		fmt.Fprintln(w, "Mains hum: not detected")
	}
	fmt.Fprintln(w, "")
	fmt.Fprint(w, ambientTable(m).String())

	if len(adj) > 0 {
		fmt.Fprintln(w, "")
		for _, a := range adj {
			fmt.Fprintf(w, "%-18s %s -> %s", a.Name+":", formatMetric(a.From, 4), formatMetric(a.To, 4))
			if a.Reason != "" {
				fmt.Fprintf(w, " (%s)", a.Reason)
			}
			fmt.Fprintf(w, " [%s dB]\n", formatMetricSigned(linearToDB(a.To)-linearToDB(a.From), 1))
		}
	}
	fmt.Fprintln(w, "")
}

// ambientTable lays out one row per measured input channel.
func ambientTable(m *processor.AmbientMeasurements) *MetricTable {
	table := NewMetricTable("Floor", "Peak", "Crest", "Hum 50", "Hum 60")
	for _, c := range m.Channels {
		table.AddRow(fmt.Sprintf("ch %d", c.Channel), []string{
			formatMetricDB(c.NoiseFloorDB, 1),
			formatMetricDB(c.PeakDB, 1),
			formatMetric(c.CrestDB, 1),
			formatPercent(c.Hum50Share),
			formatPercent(c.Hum60Share),
		}, "", interpretFloor(c.NoiseFloorDB))
	}
	return table
}

// interpretFloor describes a room noise floor in dBFS.
func interpretFloor(db float64) string {
	switch {
	case isDigitalSilence(db):
		return "no signal"
	case db < -60:
		return "very quiet"
	case db < -45:
		return "quiet"
	case db < -30:
		return "noisy"
	default:
		return "very noisy"
	}
}

// writeSetupTips outputs the prioritised rig advice.
func writeSetupTips(w io.Writer, data ReportData) {
	frameRate := 0.0
	if data.Chunk > 0 {
		frameRate = 1 / data.Chunk.Seconds()
	}
	tips := GenerateSetupTips(SetupInput{
		Stats:     data.Stats,
		Config:    data.Config,
		Layout:    data.Layout,
		MicNames:  data.MicNames,
		Ambient:   data.Ambient,
		FrameRate: frameRate,
	})
	if len(tips) == 0 {
		return
	}

	writeSection(w, "Setup Tips")
	for i, tip := range tips {
		fmt.Fprintf(w, "%d. %s\n", i+1, wrapText(tip.Message, 76, "   "))
	}
	fmt.Fprintln(w, "")
}
