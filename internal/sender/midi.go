package sender

import (
	"errors"
	"fmt"
	"log/slog"

	"gitlab.com/gomidi/midi/v2"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// MIDIConfig maps status fields onto control change numbers. A CC of -1
// disables that field.
type MIDIConfig struct {
	Port        string `yaml:"port"`    // output port name, case-insensitive substring
	Channel     uint8  `yaml:"channel"` // 0-15
	XCC         int    `yaml:"x_cc"`
	YCC         int    `yaml:"y_cc"`
	TempoCC     int    `yaml:"tempo_cc"`
	IntensityCC int    `yaml:"intensity_cc"`
	LeftGoalCC  int    `yaml:"left_goal_cc"`
	RightGoalCC int    `yaml:"right_goal_cc"`
	// ChannelCCBase sends each position channel's display intensity on
	// consecutive CCs from this number.
	ChannelCCBase int `yaml:"channel_cc_base"`
}

// DefaultMIDIConfig uses the general-purpose controller range.
func DefaultMIDIConfig() MIDIConfig {
	return MIDIConfig{
		XCC:           16,
		YCC:           17,
		TempoCC:       18,
		IntensityCC:   19,
		LeftGoalCC:    20,
		RightGoalCC:   21,
		ChannelCCBase: -1,
	}
}

// Validate checks channel and CC numbers.
func (c MIDIConfig) Validate() error {
	if c.Channel > 15 {
		return fmt.Errorf("midi channel must be 0-15, got %d", c.Channel)
	}
	for name, cc := range map[string]int{
		"x_cc": c.XCC, "y_cc": c.YCC, "tempo_cc": c.TempoCC,
		"intensity_cc": c.IntensityCC, "left_goal_cc": c.LeftGoalCC,
		"right_goal_cc": c.RightGoalCC, "channel_cc_base": c.ChannelCCBase,
	} {
		if cc < -1 || cc > 127 {
			return fmt.Errorf("%s must be -1 or 0-127, got %d", name, cc)
		}
	}
	return nil
}

// Scaling carries the session ranges the MIDI values are normalised from.
type Scaling struct {
	MinTempo, MaxTempo float64
	Display            processor.DisplayRange
}

// ScalingFor derives the ranges from a session config.
func ScalingFor(cfg processor.Config) Scaling {
	return Scaling{
		MinTempo: cfg.Tempo.MinTempo,
		MaxTempo: cfg.Tempo.MaxTempo,
		Display:  cfg.Tempo.DisplayRange,
	}
}

// MIDIOut is the port half the sender needs.
type MIDIOut interface {
	Send(midi.Message) error
	Close() error
}

// MIDISender emits control changes, skipping values that have not changed
// since the last frame.
type MIDISender struct {
	cfg   MIDIConfig
	scale Scaling
	out   MIDIOut
	last  map[uint8]uint8
}

// NewMIDISender opens the configured output port.
func NewMIDISender(cfg MIDIConfig, scaling Scaling, logger *slog.Logger) (*MIDISender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	out, name, err := openMIDIOut(cfg.Port)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("midi output opened", "port", name, "channel", cfg.Channel)
	}
	return newMIDISender(cfg, scaling, out), nil
}

func newMIDISender(cfg MIDIConfig, scaling Scaling, out MIDIOut) *MIDISender {
	return &MIDISender{cfg: cfg, scale: scaling, out: out, last: make(map[uint8]uint8)}
}

// Send writes the control changes for st.
func (s *MIDISender) Send(st processor.Status) error {
	var errs []error
	for _, cv := range s.controls(st) {
		if prev, ok := s.last[cv.cc]; ok && prev == cv.value {
			continue
		}
		if err := s.out.Send(midi.ControlChange(s.cfg.Channel, cv.cc, cv.value)); err != nil {
			errs = append(errs, fmt.Errorf("cc %d: %w", cv.cc, err))
			continue
		}
		s.last[cv.cc] = cv.value
	}
	return errors.Join(errs...)
}

// Close releases the port.
func (s *MIDISender) Close() error {
	return s.out.Close()
}

type controlValue struct {
	cc, value uint8
}

func (s *MIDISender) controls(st processor.Status) []controlValue {
	var out []controlValue
	add := func(cc int, v uint8) {
		if cc >= 0 && cc <= 127 {
			out = append(out, controlValue{uint8(cc), v})
		}
	}

	add(s.cfg.XCC, scale(st.Position.X, 0, processor.TableWidth))
	add(s.cfg.YCC, scale(st.Position.Y, 0, processor.TableHeight))
	add(s.cfg.TempoCC, scale(st.Tempo, s.scale.MinTempo, s.scale.MaxTempo))
	add(s.cfg.IntensityCC, scale(st.Intensity, s.scale.Display.Min, s.scale.Display.Max))
	add(s.cfg.LeftGoalCC, uint8(st.Goals[0]))
	add(s.cfg.RightGoalCC, uint8(st.Goals[1]))
	if s.cfg.ChannelCCBase >= 0 {
		for i, v := range st.ChannelIntensities {
			add(s.cfg.ChannelCCBase+i, scale(v, s.scale.Display.Min, s.scale.Display.Max))
		}
	}
	return out
}
