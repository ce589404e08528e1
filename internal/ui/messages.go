package ui

import (
	"time"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// SessionStartMsg describes the session the dashboard is about to show
type SessionStartMsg struct {
	SessionID string
	Mode      string // "run", "replay" or "simulate"
	Source    string
	Layout    processor.Layout // post-merge mic positions in cm
	MicNames  []string
	Goals     bool // goal detection enabled
	Display   processor.DisplayRange
	MinTempo  float64
	MaxTempo  float64
	Outputs   []string
	Duration  time.Duration // known length for replays, 0 when live
	Chunk     time.Duration
}

// StatusMsg carries one processed frame
type StatusMsg struct {
	Status processor.Status
}

// SessionDoneMsg indicates the session has stopped
type SessionDoneMsg struct {
	Stats      *processor.SessionStats
	ReportPath string
	Err        error
}

// CalibrationStartMsg signals an ambient measurement has started
type CalibrationStartMsg struct {
	Source string
	Frames int
}

// CalibrationProgressMsg reports measured frames
type CalibrationProgressMsg struct {
	Done  int
	Total int
}

// CalibrationDoneMsg carries the measurement result
type CalibrationDoneMsg struct {
	Measurements *processor.AmbientMeasurements
	Adjustments  []processor.Adjustment
	Err          error
}
