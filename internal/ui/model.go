// Package ui provides the Bubbletea terminal dashboard for foosmic
package ui

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// Dashboard tuning
const (
	trailLength   = 12 // previous positions drawn behind the ball
	tempoHistory  = 40 // samples in the tempo sparkline
	goalFlashTime = 3 * time.Second
)

// SessionState is where the dashboard is in the session lifecycle
type SessionState int

const (
	StateWaiting SessionState = iota
	StateRunning
	StateDone
	StateError
)

// Model is the Bubbletea model for the live dashboard
type Model struct {
	Session SessionStartMsg
	State   SessionState

	// Latest frame
	Latest processor.Status
	Frames int64

	// Derived display state
	Trail      []processor.Point
	Tempos     []float64
	GoalCount  [2]int
	GoalFlash  [2]time.Time // when each side last scored
	PeakLevels []float64    // per position channel, decays each frame

	// Completion
	Stats      *processor.SessionStats
	ReportPath string
	Err        error

	StartTime time.Time
	Quitting  bool

	Logger *slog.Logger

	// Terminal dimensions
	Width  int
	Height int

	now func() time.Time
}

// NewModel creates a dashboard waiting for SessionStartMsg
func NewModel(logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}
	return Model{
		State:     StateWaiting,
		StartTime: time.Now(),
		Logger:    logger,
		now:       time.Now,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit
		case "r":
			m.Trail = nil
			m.Tempos = nil
			m.PeakLevels = nil
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Logger.Debug("window resized", "width", m.Width, "height", m.Height)

	case SessionStartMsg:
		m.Logger.Debug("session start", "source", msg.Source, "mode", msg.Mode)
		m.Session = msg
		m.State = StateRunning
		m.StartTime = m.now()

	case StatusMsg:
		m = m.applyStatus(msg.Status)

	case SessionDoneMsg:
		m.Logger.Debug("session done", "err", msg.Err)
		m.Stats = msg.Stats
		m.ReportPath = msg.ReportPath
		m.Err = msg.Err
		m.State = StateDone
		if msg.Err != nil {
			m.State = StateError
		}
		return m, tea.Quit
	}

	return m, nil
}

// applyStatus folds one frame into the display state
func (m Model) applyStatus(st processor.Status) Model {
	m.Latest = st
	m.Frames++

	m.Trail = appendBounded(m.Trail, st.Position, trailLength)
	m.Tempos = appendBounded(m.Tempos, st.Tempo, tempoHistory)

	for side, flag := range st.Goals {
		if flag == processor.GoalFlag {
			m.GoalCount[side]++
			m.GoalFlash[side] = m.now()
			m.Logger.Debug("goal", "side", processor.Side(side), "frame", st.Frame)
		}
	}

	if len(m.PeakLevels) != len(st.ChannelIntensities) {
		m.PeakLevels = make([]float64, len(st.ChannelIntensities))
	}
	for i, v := range st.ChannelIntensities {
		m.PeakLevels[i] = max(v, m.PeakLevels[i]*0.95)
	}
	return m
}

// flashing reports whether side scored within the flash window
func (m Model) flashing(side int) bool {
	t := m.GoalFlash[side]
	return !t.IsZero() && m.now().Sub(t) < goalFlashTime
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 {
		return "Initializing..."
	}

	switch m.State {
	case StateWaiting:
		return renderHeader(m) + "\n\nWaiting for audio..."
	case StateDone, StateError:
		return renderCompletionSummary(m)
	}
	return renderDashboard(m)
}

func appendBounded[T any](s []T, v T, n int) []T {
	s = append(s, v)
	if over := len(s) - n; over > 0 {
		s = append(s[:0], s[over:]...)
	}
	return s
}
