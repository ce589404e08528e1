package processor

import (
	"log/slog"
	"math"

	dsptime "github.com/cwbudde/algo-dsp/stats/time"
)

// TempoMapper turns frames of loudness into a smoothed tempo (BPM) and a
// display intensity. Histories are bounded to HistoryLength.
type TempoMapper struct {
	cfg TempoConfig

	current          float64
	loudnessHistory  []float64 // mean loudness per frame
	intensityHistory []float64
	silent           bool

	logger *slog.Logger
}

// NewTempoMapper returns a mapper resting at the base tempo.
func NewTempoMapper(cfg TempoConfig, logger *slog.Logger) *TempoMapper {
	sanitizeTempo(&cfg)
	if logger == nil {
		logger = slog.Default()
	}
	return &TempoMapper{
		cfg:              cfg,
		current:          cfg.BaseTempo,
		loudnessHistory:  make([]float64, 0, cfg.HistoryLength),
		intensityHistory: make([]float64, 0, cfg.HistoryLength),
		logger:           logger,
	}
}

// channelWeights ramps linearly from first to last across n channels. A
// single channel gets first.
func channelWeights(n int, first, last float64) []float64 {
	w := make([]float64, n)
	if n == 0 {
		return w
	}
	if n == 1 {
		w[0] = first
		return w
	}
	step := (last - first) / float64(n-1)
	for i := range w {
		w[i] = first + float64(i)*step
	}
	w[n-1] = last
	return w
}

// Intensity returns the composite intensity of a loudness vector against
// the current history: a weighted level plus how far that level moved from
// the recent mean. It does not change state. Empty input is 0.
func (m *TempoMapper) Intensity(loudness []float64) float64 {
	if len(loudness) == 0 {
		return 0
	}

	weights := channelWeights(len(loudness), m.cfg.WeightFirst, m.cfg.WeightLast)
	var sum, wsum float64
	for i, l := range loudness {
		sum += weights[i] * l
		wsum += weights[i]
	}
	var level float64
	if wsum != 0 {
		level = sum / wsum
	}

	var reactivity float64
	if n := len(m.loudnessHistory); n > 0 {
		recent := m.loudnessHistory[max(0, n-m.cfg.ReactivityWindow):]
		reactivity = math.Abs(level - dsptime.DC(recent))
	}

	return level*m.cfg.LevelMix + reactivity*m.cfg.ReactivityMix
}

// Update consumes one loudness vector and returns the new tempo and the
// display value of this frame's intensity.
func (m *TempoMapper) Update(loudness []float64) (tempo, display float64) {
	intensity := m.Intensity(loudness)
	display = DisplayIntensity(intensity, m.cfg.DisplayRange)

	m.loudnessHistory = pushBounded(m.loudnessHistory, dsptime.DC(loudness), m.cfg.HistoryLength)
	m.intensityHistory = pushBounded(m.intensityHistory, intensity, m.cfg.HistoryLength)

	if silent := intensity < m.cfg.SilenceThreshold; silent != m.silent {
		m.silent = silent
		m.logger.Debug("tempo silence state changed", "silent", silent, "intensity", intensity, "tempo", m.current)
	}

	target, rate := m.target(intensity)
	if target > m.current {
		m.current += (target - m.current) * m.cfg.AttackRate
	} else {
		m.current += (target - m.current) * rate
	}
	return m.current, display
}

// target picks the tempo the mapper moves toward and the falling rate.
func (m *TempoMapper) target(intensity float64) (float64, float64) {
	if intensity < m.cfg.SilenceThreshold {
		return m.cfg.MinTempo, m.cfg.SilenceDecayRate
	}

	level := math.Min(intensity, 1.0)
	target := m.cfg.BaseTempo + (m.cfg.MaxTempo-m.cfg.BaseTempo)*level*level

	if trend, ok := m.trend(); ok {
		switch {
		case trend > m.cfg.TrendThreshold:
			target *= m.cfg.TrendRiseGain
		case trend < -m.cfg.TrendThreshold:
			target *= m.cfg.TrendFallGain
		}
	}

	return clamp(target, m.cfg.MinTempo, m.cfg.MaxTempo), m.cfg.DecayRate
}

// trend is the mean first difference over the last TrendWindow
// intensities. It needs more than TrendWindow samples of history.
func (m *TempoMapper) trend() (float64, bool) {
	n := len(m.intensityHistory)
	if n <= m.cfg.TrendWindow {
		return 0, false
	}
	window := m.intensityHistory[n-m.cfg.TrendWindow:]
	var sum float64
	for i := 1; i < len(window); i++ {
		sum += window[i] - window[i-1]
	}
	return sum / float64(len(window)-1), true
}

// Tempo returns the current tempo without updating.
func (m *TempoMapper) Tempo() float64 {
	return m.current
}

// Reset returns to the base tempo and empties both histories.
func (m *TempoMapper) Reset() {
	m.current = m.cfg.BaseTempo
	m.loudnessHistory = m.loudnessHistory[:0]
	m.intensityHistory = m.intensityHistory[:0]
	m.silent = false
}

// ChannelIntensities returns the display value of every channel taken on
// its own, measured against the current history. State is not touched.
func (m *TempoMapper) ChannelIntensities(loudness []float64) []float64 {
	out := make([]float64, len(loudness))
	for i, l := range loudness {
		out[i] = DisplayIntensity(m.Intensity([]float64{l}), m.cfg.DisplayRange)
	}
	return out
}

// Config returns the sanitised configuration in use.
func (m *TempoMapper) Config() TempoConfig {
	return m.cfg
}

func pushBounded(history []float64, v float64, capacity int) []float64 {
	history = append(history, v)
	if over := len(history) - capacity; over > 0 {
		history = append(history[:0], history[over:]...)
	}
	return history
}
