package processor

import (
	"math"
	"time"
)

// ChannelStats summarises one loudness channel over a session.
type ChannelStats struct {
	Mean   float64 `json:"mean"`
	Peak   float64 `json:"peak"`
	Min    float64 `json:"min"`
	Silent int64   `json:"silent_frames"` // frames at or below the noise threshold
	sum    float64
}

func (c *ChannelStats) add(v float64, frames int64, noise float64) {
	if frames == 0 {
		c.Min = v
	}
	c.sum += v
	c.Mean = c.sum / float64(frames+1)
	c.Peak = math.Max(c.Peak, v)
	c.Min = math.Min(c.Min, v)
	if v <= noise {
		c.Silent++
	}
}

// SessionStats accumulates what the session report and setup tips need.
type SessionStats struct {
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`

	Frames     int64 `json:"frames"`
	Dropped    int64 `json:"dropped"`
	SendErrors int64 `json:"send_errors"`

	Position []ChannelStats `json:"position"`
	Goal     []ChannelStats `json:"goal"`

	GoalCount  [2]int      `json:"goal_count"`
	GoalEvents []GoalEvent `json:"goal_events"`

	TempoMin  float64 `json:"tempo_min"`
	TempoMax  float64 `json:"tempo_max"`
	TempoMean float64 `json:"tempo_mean"`

	MeanPosition Point `json:"mean_position"`

	// NoiseThreshold classifies silent frames per channel.
	NoiseThreshold float64 `json:"noise_threshold"`

	tempoSum float64
	posSum   Point
}

func newSessionStats(positionChannels, goalChannels int) *SessionStats {
	return &SessionStats{
		Position:       make([]ChannelStats, positionChannels),
		Goal:           make([]ChannelStats, goalChannels),
		NoiseThreshold: defaultNoiseThreshold,
	}
}

func (s *SessionStats) add(st Status) {
	for i, v := range st.PositionLoudness {
		if i < len(s.Position) {
			s.Position[i].add(v, s.Frames, s.NoiseThreshold)
		}
	}
	for i, v := range st.GoalLoudness {
		if i < len(s.Goal) {
			s.Goal[i].add(v, s.Frames, s.NoiseThreshold)
		}
	}

	if s.Frames == 0 {
		s.TempoMin, s.TempoMax = st.Tempo, st.Tempo
	}
	s.TempoMin = math.Min(s.TempoMin, st.Tempo)
	s.TempoMax = math.Max(s.TempoMax, st.Tempo)
	s.tempoSum += st.Tempo

	s.posSum.X += st.Position.X
	s.posSum.Y += st.Position.Y

	s.Frames++
	n := float64(s.Frames)
	s.TempoMean = s.tempoSum / n
	s.MeanPosition = Point{X: s.posSum.X / n, Y: s.posSum.Y / n}
}

func (s *SessionStats) addGoal(ev GoalEvent) {
	s.GoalCount[ev.Side]++
	s.GoalEvents = append(s.GoalEvents, ev)
}

// DropRate is the share of frames that were dropped.
func (s *SessionStats) DropRate() float64 {
	total := s.Frames + s.Dropped
	if total == 0 {
		return 0
	}
	return float64(s.Dropped) / float64(total)
}
