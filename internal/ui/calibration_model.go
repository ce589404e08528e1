package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// Spinner frames for indeterminate progress
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// CalibrationModel is the Bubbletea model for the calibrate command. It
// shows progress while the room is measured and quits when done; results
// are printed after the program exits.
type CalibrationModel struct {
	Source string

	// Progress tracking
	Done      int
	Total     int
	StartTime time.Time

	// Spinner state
	spinnerIndex int

	// Results (populated when complete)
	Measurements *processor.AmbientMeasurements
	Adjustments  []processor.Adjustment
	Error        error
	Finished     bool
	Quitting     bool

	// Terminal dimensions
	Width  int
	Height int
}

// tickMsg is sent for spinner/timer animation
type tickMsg time.Time

// NewCalibrationModel creates a new calibration UI model
func NewCalibrationModel() CalibrationModel {
	return CalibrationModel{
		StartTime: time.Now(),
	}
}

// Init initializes the model
func (m CalibrationModel) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick message every 100ms
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model
func (m CalibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case tickMsg:
		if !m.Finished {
			m.spinnerIndex = (m.spinnerIndex + 1) % len(spinnerFrames)
			return m, tickCmd()
		}
		return m, nil

	case CalibrationStartMsg:
		m.Source = msg.Source
		m.Total = msg.Frames
		m.StartTime = time.Now()
		return m, nil

	case CalibrationProgressMsg:
		m.Done = msg.Done
		m.Total = msg.Total
		return m, nil

	case CalibrationDoneMsg:
		m.Measurements = msg.Measurements
		m.Adjustments = msg.Adjustments
		m.Error = msg.Err
		m.Finished = true
		return m, tea.Quit
	}

	return m, nil
}

// Progress is the measured share, 0 to 1
func (m CalibrationModel) Progress() float64 {
	if m.Total <= 0 {
		return 0
	}
	return float64(m.Done) / float64(m.Total)
}

// View renders the UI
func (m CalibrationModel) View() string {
	if m.Width == 0 {
		return "Initializing..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Foosmic"))
	b.WriteString(" ")
	b.WriteString(mutedStyle.Render("Calibration"))
	b.WriteString("\n\n")

	if m.Source == "" {
		b.WriteString("Waiting...")
		return b.String()
	}

	b.WriteString("Measuring room noise on ")
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(m.Source))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("Keep the table quiet until the bar fills"))
	b.WriteString("\n\n")

	elapsed := time.Since(m.StartTime)
	spinner := lipgloss.NewStyle().Foreground(greenColor).Render(spinnerFrames[m.spinnerIndex])

	if progress := m.Progress(); progress > 0 && progress < 1.0 {
		b.WriteString(spinner)
		b.WriteString(" ")
		b.WriteString(renderCalibrationProgressBar(progress, 40, elapsed))
	} else if !m.Finished {
		b.WriteString(spinner)
		b.WriteString(" Listening...")
		b.WriteString(fmt.Sprintf(" [%s]", formatElapsed(elapsed)))
	}
	b.WriteString("\n")

	return b.String()
}

// renderCalibrationProgressBar renders a progress bar with percentage and elapsed time
func renderCalibrationProgressBar(progress float64, width int, elapsed time.Duration) string {
	filled := int(progress * float64(width))
	empty := width - filled

	filledStyle := lipgloss.NewStyle().Foreground(greenColor)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))

	bar := filledStyle.Render(strings.Repeat("━", filled)) +
		emptyStyle.Render(strings.Repeat("━", empty))

	percentage := int(progress * 100)

	return fmt.Sprintf("%s %3d%% [%s]", bar, percentage, formatElapsed(elapsed))
}
