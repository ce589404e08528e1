package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// FrameSource yields consecutive frames. ReadFrame returns io.EOF when the
// source is exhausted.
type FrameSource interface {
	ReadFrame(ctx context.Context) (Frame, error)
}

// StatusSink receives one Status per processed frame.
type StatusSink interface {
	Send(Status) error
}

// ChannelMap routes input channels to the two analysis stages.
type ChannelMap struct {
	// Position lists the input channels feeding the localiser, in layout
	// order (before stereo merge). Empty means every input channel.
	Position []int `yaml:"position"`
	// Goals holds the left and right goal mic channels. Empty disables
	// goal detection.
	Goals []int `yaml:"goals"`
}

// SessionOptions configures a Session.
type SessionOptions struct {
	Config        *Config
	Layout        Layout
	Channels      ChannelMap
	SampleRate    float64
	InputChannels int
	Logger        *slog.Logger
}

// Status is everything the session derived from one frame.
type Status struct {
	Frame              int64     `json:"frame"`
	Time               time.Time `json:"time"`
	PositionLoudness   []float64 `json:"position_loudness"`
	GoalLoudness       []float64 `json:"goal_loudness,omitempty"`
	Position           Point     `json:"position"`
	Goals              [2]int    `json:"goals"`
	Tempo              float64   `json:"tempo"`
	Intensity          float64   `json:"intensity"`
	ChannelIntensities []float64 `json:"channel_intensities"`
}

// Scored reports whether either goal fired on this frame.
func (s Status) Scored() bool {
	return s.Goals[0] == GoalFlag || s.Goals[1] == GoalFlag
}

// Session runs one frame at a time through hum filter, loudness, position
// tracker, goal detector and tempo mapper. It is not safe for concurrent
// use.
type Session struct {
	cfg      Config
	channels ChannelMap
	inputs   int

	hum      *HumFilter
	position *PositionTracker
	goals    *GoalDetector
	tempo    *TempoMapper

	frames int64
	stats  *SessionStats
	logger *slog.Logger
}

// NewSession validates the channel routing against the layout and builds
// the stages.
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Config == nil {
		opts.Config = DefaultConfig()
	}
	cfg := *opts.Config
	cfg.Sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.InputChannels <= 0 {
		return nil, fmt.Errorf("%w: %d input channels", ErrChannelCount, opts.InputChannels)
	}

	channels := opts.Channels
	if len(channels.Position) == 0 {
		channels.Position = make([]int, opts.InputChannels)
		for i := range channels.Position {
			channels.Position[i] = i
		}
	}
	if err := checkChannels(channels.Position, opts.InputChannels); err != nil {
		return nil, fmt.Errorf("position channels: %w", err)
	}
	switch len(channels.Goals) {
	case 0:
	case 2:
		if err := checkChannels(channels.Goals, opts.InputChannels); err != nil {
			return nil, fmt.Errorf("goal channels: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: need 2 goal channels, got %d", ErrChannelCount, len(channels.Goals))
	}

	positionCount := len(channels.Position)
	if cfg.MergeStereo {
		if positionCount%2 != 0 {
			return nil, fmt.Errorf("%w: %d position channels", ErrOddChannelCount, positionCount)
		}
		positionCount /= 2
	}
	if err := opts.Layout.Check(positionCount); err != nil {
		return nil, err
	}

	tracker, err := NewPositionTracker(opts.Layout, cfg.Position)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:      cfg,
		channels: channels,
		inputs:   opts.InputChannels,
		position: tracker,
		goals:    NewGoalDetector(cfg.Goals, logger),
		tempo:    NewTempoMapper(cfg.Tempo, logger),
		stats:    newSessionStats(positionCount, len(channels.Goals)),
		logger:   logger,
	}
	s.stats.NoiseThreshold = cfg.Position.NoiseThreshold
	s.goals.OnGoal = s.stats.addGoal

	if cfg.Hum.Enabled() {
		if s.hum, err = NewHumFilter(cfg.Hum, opts.SampleRate, opts.InputChannels); err != nil {
			return nil, err
		}
		logger.Info("hum filter enabled", "filter", s.hum.Describe())
	}

	return s, nil
}

func checkChannels(chs []int, inputs int) error {
	for _, ch := range chs {
		if ch < 0 || ch >= inputs {
			return fmt.Errorf("%w: channel %d not in %d inputs", ErrChannelCount, ch, inputs)
		}
	}
	return nil
}

// Process runs one frame through every stage. A malformed frame returns an
// error and leaves the stages untouched. The caller's frame is not modified.
func (s *Session) Process(frame Frame) (Status, error) {
	if err := frame.Validate(); err != nil {
		s.stats.Dropped++
		return Status{}, err
	}
	if frame.Channels() != s.inputs {
		s.stats.Dropped++
		return Status{}, fmt.Errorf("%w: frame has %d channels, expected %d", ErrChannelCount, frame.Channels(), s.inputs)
	}

	if s.hum != nil {
		frame = frame.Clone()
		if err := s.hum.Apply(frame); err != nil {
			s.stats.Dropped++
			return Status{}, err
		}
	}

	posFrame, err := frame.Select(s.channels.Position)
	if err != nil {
		s.stats.Dropped++
		return Status{}, err
	}
	posLoudness, err := Loudness(posFrame, s.cfg.MergeStereo)
	if err != nil {
		s.stats.Dropped++
		return Status{}, err
	}

	var goalLoudness []float64
	if len(s.channels.Goals) == 2 {
		goalFrame, err := frame.Select(s.channels.Goals)
		if err != nil {
			s.stats.Dropped++
			return Status{}, err
		}
		if goalLoudness, err = Loudness(goalFrame, false); err != nil {
			s.stats.Dropped++
			return Status{}, err
		}
	}

	pos, err := s.position.Update(posLoudness)
	if err != nil {
		s.stats.Dropped++
		return Status{}, err
	}

	var goals [2]int
	if goalLoudness != nil {
		goals = s.goals.Detect(goalLoudness)
	}

	tempo, intensity := s.tempo.Update(posLoudness)

	st := Status{
		Frame:              s.frames,
		Time:               time.Now(),
		PositionLoudness:   posLoudness,
		GoalLoudness:       goalLoudness,
		Position:           pos,
		Goals:              goals,
		Tempo:              tempo,
		Intensity:          intensity,
		ChannelIntensities: s.tempo.ChannelIntensities(posLoudness),
	}
	s.frames++
	s.stats.add(st)
	return st, nil
}

// Run pulls frames from source until ctx is cancelled or the source returns
// io.EOF. Every status goes to each sink and then to onStatus, if set.
// Dropped frames and sink failures are logged and do not stop the loop.
func (s *Session) Run(ctx context.Context, source FrameSource, sinks []StatusSink, onStatus func(Status)) error {
	s.stats.Start = time.Now()
	defer func() { s.stats.Duration = time.Since(s.stats.Start) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := source.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read frame: %w", err)
		}

		st, err := s.Process(frame)
		if err != nil {
			s.logger.Warn("frame dropped", "frame", s.frames, "error", err)
			continue
		}

		for _, sink := range sinks {
			if err := sink.Send(st); err != nil {
				s.stats.SendErrors++
				s.logger.Warn("sink send failed", "sink", fmt.Sprintf("%T", sink), "error", err)
			}
		}
		if onStatus != nil {
			onStatus(st)
		}
	}
}

// Reset clears every stage and the frame counter. Statistics are kept.
func (s *Session) Reset() {
	s.position.Reset()
	s.goals.Reset()
	s.tempo.Reset()
	if s.hum != nil {
		s.hum.Reset()
	}
	s.frames = 0
}

// Stats returns the accumulated session statistics.
func (s *Session) Stats() *SessionStats {
	return s.stats
}

// Config returns the sanitised processing configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// HumFilter returns the active hum filter, or nil.
func (s *Session) HumFilter() *HumFilter {
	return s.hum
}

// Frames returns the number of frames processed since the last reset.
func (s *Session) Frames() int64 {
	return s.frames
}
