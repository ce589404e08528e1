package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// Validate reports every problem in the config at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0) {
		add("sample_rate must be positive, got %v", c.SampleRate)
	}
	if c.Channels <= 0 {
		add("channels must be positive, got %d", c.Channels)
	}
	if !(c.ChunkDuration > 0) || c.ChunkDuration > 10 {
		add("chunk_duration must be in (0, 10] seconds, got %v", c.ChunkDuration)
	} else if c.SampleRate > 0 && int(c.SampleRate*c.ChunkDuration) < 1 {
		add("chunk_duration %vs holds no samples at %v Hz", c.ChunkDuration, c.SampleRate)
	}

	if len(c.Mics) < 2 {
		add("need at least 2 mics, got %d", len(c.Mics))
	}
	for i, m := range c.Mics {
		x, y := m.Position[0], m.Position[1]
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			add("mic %d (%s) has a non-finite position", i, m.Name)
		}
	}

	errs = append(errs, c.validateChannels()...)

	if c.OSC.Port < 0 || c.OSC.Port > 65535 {
		add("osc.port out of range: %d", c.OSC.Port)
	}
	if c.PositionOSC.Port < 0 || c.PositionOSC.Port > 65535 {
		add("position_osc.port out of range: %d", c.PositionOSC.Port)
	}
	if c.MIDI.Enabled {
		if err := c.MIDI.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("midi: %w", err))
		}
	}
	if c.Web.Enabled && c.Web.Listen == "" {
		add("web.listen is required when web is enabled")
	}

	return errors.Join(errs...)
}

func (c *Config) validateChannels() []error {
	var errs []error
	m := c.ChannelsMap

	position := m.Position
	if len(position) == 0 {
		position = make([]int, c.Channels)
		for i := range position {
			position[i] = i
		}
	}

	seen := make(map[int]string)
	check := func(role string, chs []int) {
		for _, ch := range chs {
			if ch < 0 || (c.Channels > 0 && ch >= c.Channels) {
				errs = append(errs, fmt.Errorf("%w: %s channel %d outside 0-%d", processor.ErrChannelCount, role, ch, c.Channels-1))
				continue
			}
			if prev, ok := seen[ch]; ok {
				errs = append(errs, fmt.Errorf("channel %d used for both %s and %s", ch, prev, role))
			}
			seen[ch] = role
		}
	}
	check("position", m.Position)
	check("goal", m.Goals)

	if n := len(m.Goals); n != 0 && n != 2 {
		errs = append(errs, fmt.Errorf("%w: channels_map.goals needs 0 or 2 channels, got %d", processor.ErrChannelCount, n))
	}

	count := len(position)
	if m.MergeStereo {
		if count%2 != 0 {
			errs = append(errs, fmt.Errorf("%w: %d position channels", processor.ErrOddChannelCount, count))
			return errs
		}
		count /= 2
	}
	if len(c.Mics) != count {
		errs = append(errs, fmt.Errorf("%w: %d mics for %d position inputs", processor.ErrLayoutMismatch, len(c.Mics), count))
	}
	return errs
}
