// This file provides console display for the calibrate command and the
// end-of-session summary printed in headless mode.

package logging

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// DisplayCalibration outputs an ambient measurement and the thresholds it
// produced. Used by the calibrate command.
func DisplayCalibration(w io.Writer, source string, chunk time.Duration, m *processor.AmbientMeasurements, adj []processor.Adjustment) {
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "CALIBRATION: %s\n", source)
	fmt.Fprintln(w, strings.Repeat("=", 70))

	duration := time.Duration(m.Frames) * chunk
	fmt.Fprintf(w, "Measured:    %d frames (%s)\n", m.Frames, formatDurationHMS(duration.Seconds()))
	fmt.Fprintf(w, "Sample Rate: %.0f Hz\n", m.SampleRate)
	fmt.Fprintf(w, "Channels:    %s\n", channelName(len(m.Channels)))
	fmt.Fprintln(w)

	writeAnalysisSection(w, "ROOM NOISE")
	fmt.Fprint(w, ambientTable(m).String())
	fmt.Fprintln(w)

	writeAnalysisSection(w, "MAINS HUM")
	if m.HumFrequency > 0 {
		fmt.Fprintf(w, "  Detected:       %.0f Hz\n", m.HumFrequency)
	} else {
		fmt.Fprintln(w, "  Not detected")
	}
	fmt.Fprintln(w)

	writeAnalysisSection(w, "THRESHOLD ADAPTATION")
	if len(adj) == 0 {
		fmt.Fprintln(w, "  No changes")
	}
	for _, a := range adj {
		fmt.Fprintf(w, "  %-16s %s -> %s (%s dBFS)\n", a.Name+":", formatMetric(a.From, 4), formatMetric(a.To, 4), formatMetricLevel(a.To, 1))
		if a.Reason != "" {
			fmt.Fprintf(w, "  %16s %s\n", "", a.Reason)
		}
	}
}

// DisplaySummary outputs a short end-of-session summary with setup tips.
func DisplaySummary(w io.Writer, data ReportData) {
	s := data.Stats
	if s == nil {
		fmt.Fprintln(w, "No frames processed")
		return
	}

	writeAnalysisSection(w, "SESSION")
	fmt.Fprintf(w, "  Duration:       %s\n", formatDurationHMS(s.Duration.Seconds()))
	fmt.Fprintf(w, "  Frames:         %d (%s dropped)\n", s.Frames, formatPercent(s.DropRate()))
	fmt.Fprintf(w, "  Goals:          %d - %d\n", s.GoalCount[processor.SideLeft], s.GoalCount[processor.SideRight])
	fmt.Fprintf(w, "  Tempo:          %.0f-%.0f BPM (mean %.0f)\n", s.TempoMin, s.TempoMax, s.TempoMean)
	if s.SendErrors > 0 {
		fmt.Fprintf(w, "  Send errors:    %d\n", s.SendErrors)
	}
	for _, ev := range s.GoalEvents {
		fmt.Fprintf(w, "  Goal %-5s      %s\n", ev.Side, formatTimestamp(time.Duration(ev.Frame)*data.Chunk))
	}
	fmt.Fprintln(w)

	frameRate := 0.0
	if data.Chunk > 0 {
		frameRate = 1 / data.Chunk.Seconds()
	}
	tips := GenerateSetupTips(SetupInput{
		Stats:     s,
		Config:    data.Config,
		Layout:    data.Layout,
		MicNames:  data.MicNames,
		Ambient:   data.Ambient,
		FrameRate: frameRate,
	})
	if len(tips) > 0 {
		writeAnalysisSection(w, "SETUP TIPS")
		for _, tip := range tips {
			fmt.Fprintf(w, "  - %s\n", wrapText(tip.Message, 70, "    "))
		}
		fmt.Fprintln(w)
	}
}

// writeAnalysisSection writes a section header for analysis output.
func writeAnalysisSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
}

// formatDurationHMS formats duration as "Xh Ym Zs" or "Ym Zs" or "Z.Xs".
func formatDurationHMS(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}

	totalSeconds := int(seconds)
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	secs := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	}
	return fmt.Sprintf("%dm %ds", minutes, secs)
}

// formatTimestamp formats a duration as a timestamp string (e.g., "1m 32s" or "24.0s").
func formatTimestamp(d time.Duration) string {
	totalSeconds := d.Seconds()
	if totalSeconds < 60 {
		return fmt.Sprintf("%.1fs", totalSeconds)
	}

	minutes := int(totalSeconds) / 60
	seconds := math.Mod(totalSeconds, 60)

	if minutes >= 60 {
		hours := minutes / 60
		minutes = minutes % 60
		return fmt.Sprintf("%dh %dm %.0fs", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %.0fs", minutes, seconds)
}
