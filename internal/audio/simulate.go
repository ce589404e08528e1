package audio

import (
	"context"
	"io"
	"math/rand/v2"
	"time"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// SimulationConfig shapes the synthetic table. Levels are RMS in full-scale
// units: every frame picks a base level, every channel varies around it.
type SimulationConfig struct {
	Seed     uint64  `yaml:"seed"`
	MinLevel float64 `yaml:"min_level"` // floor for the per-channel level before noise
	MaxLevel float64 `yaml:"max_level"` // base level upper bound
	Spread   float64 `yaml:"spread"`    // per-channel ± variation
	Noise    float64 `yaml:"noise"`     // Gaussian jitter σ

	// Goal mics stay at GoalAmbient except for bursts of GoalBurst frames at
	// GoalLevel every GoalEvery frames, alternating sides. GoalEvery 0
	// disables bursts.
	GoalChannels []int   `yaml:"goal_channels"`
	GoalAmbient  float64 `yaml:"goal_ambient"`
	GoalLevel    float64 `yaml:"goal_level"`
	GoalEvery    int     `yaml:"goal_every"`
	GoalBurst    int     `yaml:"goal_burst"`

	Frames   int  `yaml:"frames"`   // stop after this many frames; 0 runs forever
	Realtime bool `yaml:"realtime"` // pace frames at the chunk duration
}

// DefaultSimulationConfig reproduces the bench generator: a loud table with
// every position channel between 0.6 and 1.0 of full scale.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Seed:        1,
		MinLevel:    0.6,
		MaxLevel:    1.0,
		Spread:      0.2,
		Noise:       0.05,
		GoalAmbient: 0.02,
		GoalLevel:   0.8,
		GoalEvery:   100,
		GoalBurst:   5,
		Realtime:    true,
	}
}

// SimulatedSource generates frames from SimulationConfig. Each row is a
// random-sign sequence, so its RMS is exactly the row level.
type SimulatedSource struct {
	cfg        SimulationConfig
	sampleRate float64
	channels   int
	frameSize  int

	rng    *rand.Rand
	goal   map[int]int // channel -> side
	frames int
	next   time.Time
	open   bool
}

// NewSimulatedSource returns a simulator producing channels rows of
// frameSize samples.
func NewSimulatedSource(cfg SimulationConfig, sampleRate float64, channels, frameSize int) *SimulatedSource {
	goal := make(map[int]int, len(cfg.GoalChannels))
	for side, ch := range cfg.GoalChannels {
		goal[ch] = side
	}
	return &SimulatedSource{
		cfg:        cfg,
		sampleRate: sampleRate,
		channels:   channels,
		frameSize:  frameSize,
		goal:       goal,
	}
}

// Open seeds the generator. Reopening restarts the same sequence.
func (s *SimulatedSource) Open(ctx context.Context) error {
	s.rng = rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed^0x9e3779b97f4a7c15))
	s.frames = 0
	s.next = time.Now()
	s.open = true
	return nil
}

// ReadFrame returns the next synthetic frame, sleeping first when Realtime
// is set.
func (s *SimulatedSource) ReadFrame(ctx context.Context) (processor.Frame, error) {
	if !s.open {
		return nil, ErrNotOpen
	}
	if s.cfg.Frames > 0 && s.frames >= s.cfg.Frames {
		return nil, io.EOF
	}

	if s.cfg.Realtime {
		s.next = s.next.Add(s.Metadata().FrameDuration())
		timer := time.NewTimer(time.Until(s.next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	levels := s.levels()
	frame := processor.NewFrame(s.channels, s.frameSize)
	for ch, level := range levels {
		for n := range frame[ch] {
			if s.rng.IntN(2) == 0 {
				frame[ch][n] = level
			} else {
				frame[ch][n] = -level
			}
		}
	}
	s.frames++
	return frame, nil
}

// levels draws the per-channel RMS levels for the current frame.
func (s *SimulatedSource) levels() []float64 {
	levels := make([]float64, s.channels)
	base := s.cfg.MinLevel + s.rng.Float64()*(s.cfg.MaxLevel-s.cfg.MinLevel)

	burstSide := -1
	if s.cfg.GoalEvery > 0 && s.frames >= s.cfg.GoalEvery {
		cycle := s.frames / s.cfg.GoalEvery
		if s.frames%s.cfg.GoalEvery < s.cfg.GoalBurst {
			burstSide = (cycle - 1) % 2
		}
	}

	for ch := range levels {
		if side, ok := s.goal[ch]; ok {
			levels[ch] = s.cfg.GoalAmbient
			if side == burstSide {
				levels[ch] = s.cfg.GoalLevel
			}
			continue
		}
		v := base + (s.rng.Float64()*2-1)*s.cfg.Spread
		v = max(v, s.cfg.MinLevel)
		v += s.rng.NormFloat64() * s.cfg.Noise
		levels[ch] = min(max(v, 0), 1)
	}
	return levels
}

// Metadata describes the synthetic stream.
func (s *SimulatedSource) Metadata() Metadata {
	var d time.Duration
	if s.cfg.Frames > 0 && s.sampleRate > 0 {
		d = time.Duration(float64(s.cfg.Frames*s.frameSize) / s.sampleRate * float64(time.Second))
	}
	return Metadata{
		Name:       "simulator",
		SampleRate: s.sampleRate,
		Channels:   s.channels,
		FrameSize:  s.frameSize,
		Duration:   d,
	}
}

// Close stops the generator.
func (s *SimulatedSource) Close() error {
	s.open = false
	return nil
}
