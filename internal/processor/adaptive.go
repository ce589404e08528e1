package processor

import (
	"fmt"
	"strconv"
)

// Calibration tuning constants. These control how the thresholds follow the
// measured room.
const (
	// Noise gate for the localiser
	noiseGateMargin = 2.0   // x loudest position-channel noise floor
	noiseGateMin    = 0.001 // never gate below this (dead-quiet studio)
	noiseGateMax    = 0.1   // never gate above this (would ignore soft rolls)

	// Goal detector absolute floor
	goalFloorMargin = 4.0  // x loudest goal-mic noise floor
	goalFloorMin    = 0.05 // below this a cough by the goal fires
	goalFloorMax    = 0.6  // above this hard shots are missed

	// Tempo silence threshold
	silenceMargin = 1.5 // x mean position noise floor
	silenceMin    = 0.005
	silenceMax    = 0.2
)

// Adjustment records one calibrated parameter for the report.
type Adjustment struct {
	Name   string  `json:"name"`
	From   float64 `json:"from"`
	To     float64 `json:"to"`
	Reason string  `json:"reason"`
}

// AdaptConfig tunes the noise-dependent thresholds in cfg from an ambient
// measurement, then sanitises. channels says which input channels belong
// to which stage; an empty position list means all channels.
func AdaptConfig(cfg *Config, m *AmbientMeasurements, channels ChannelMap) ([]Adjustment, error) {
	if m == nil || len(m.Channels) == 0 {
		return nil, fmt.Errorf("no ambient measurements")
	}

	position := channels.Position
	if len(position) == 0 {
		position = make([]int, len(m.Channels))
		for i := range position {
			position[i] = i
		}
	}

	var adj []Adjustment

	floor, sum, n := 0.0, 0.0, 0
	for _, ch := range position {
		c := m.Channel(ch)
		if c == nil {
			return nil, fmt.Errorf("%w: position channel %d not measured", ErrChannelCount, ch)
		}
		floor = max(floor, c.NoiseFloor)
		sum += c.NoiseFloor
		n++
	}

	// Every channel is checked before cfg changes.
	goalFloor := 0.0
	for _, ch := range channels.Goals {
		c := m.Channel(ch)
		if c == nil {
			return nil, fmt.Errorf("%w: goal channel %d not measured", ErrChannelCount, ch)
		}
		goalFloor = max(goalFloor, c.NoiseFloor)
	}

	to := clamp(floor*noiseGateMargin, noiseGateMin, noiseGateMax)
	adj = append(adj, Adjustment{
		Name:   "position.noise_threshold",
		From:   cfg.Position.NoiseThreshold,
		To:     to,
		Reason: fmt.Sprintf("loudest position floor %.4f x %.1f", floor, noiseGateMargin),
	})
	cfg.Position.NoiseThreshold = to

	meanFloor := sum / float64(n)
	to = clamp(meanFloor*silenceMargin, silenceMin, silenceMax)
	adj = append(adj, Adjustment{
		Name:   "tempo.silence_threshold",
		From:   cfg.Tempo.SilenceThreshold,
		To:     to,
		Reason: fmt.Sprintf("mean position floor %.4f x %.1f", meanFloor, silenceMargin),
	})
	cfg.Tempo.SilenceThreshold = to

	if len(channels.Goals) == 2 {
		to = clamp(goalFloor*goalFloorMargin, goalFloorMin, goalFloorMax)
		adj = append(adj, Adjustment{
			Name:   "goals.goal_threshold",
			From:   cfg.Goals.GoalThreshold,
			To:     to,
			Reason: fmt.Sprintf("loudest goal floor %.4f x %.1f", goalFloor, goalFloorMargin),
		})
		cfg.Goals.GoalThreshold = to
	}

	// A measured mains tone overrides "auto"; explicit settings are kept.
	if cfg.Hum.Frequency == "auto" && m.HumFrequency > 0 {
		adj = append(adj, Adjustment{
			Name:   "hum.frequency",
			From:   cfg.Hum.ResolvedFrequency,
			To:     m.HumFrequency,
			Reason: "mains tone measured in ambient noise",
		})
		cfg.Hum.Frequency = strconv.FormatFloat(m.HumFrequency, 'f', 0, 64)
	}

	cfg.Sanitize()
	return adj, nil
}
