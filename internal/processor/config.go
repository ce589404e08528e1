// Package processor turns multichannel microphone frames into a ball
// position, goal events and a tempo control value.
package processor

import "math"

// Table geometry in centimetres. The origin is the left goal corner.
const (
	TableWidth  = 117.0
	TableHeight = 68.0
	TableMidX   = TableWidth / 2
)

// BalancePrecedence selects which left/right correction wins when both the
// mild and the strong condition hold for the same frame.
type BalancePrecedence string

const (
	// BalanceStrongFirst applies the strong correction whenever a side's
	// share drops below the strong threshold, otherwise the mild one.
	BalanceStrongFirst BalancePrecedence = "strong_first"
	// BalanceMildFirst evaluates the mild correction first, the order the
	// rig was tuned with. Because the shares sum to one the strong branch
	// is then only reached when the opposite side's share is not above the
	// mild ceiling. This is the default.
	BalanceMildFirst BalancePrecedence = "mild_first"
)

// EstimatorMode selects the position algorithm used by PositionTracker.
type EstimatorMode string

const (
	ModeBaseline EstimatorMode = "baseline"
	ModeEnhanced EstimatorMode = "enhanced"
	ModeSmoothed EstimatorMode = "smoothed"
)

// PositionConfig holds the tunables of the enhanced position estimator.
type PositionConfig struct {
	Mode EstimatorMode `yaml:"mode"`

	NoiseThreshold  float64 `yaml:"noise_threshold"`  // RMS at or below this is ignored
	MaxDistance     float64 `yaml:"max_distance"`     // from the layout centroid
	SmoothingFactor float64 `yaml:"smoothing_factor"` // weight of the previous estimate

	// Smoothing on X is stronger than on Y: rate = min(factor+boost, cap)
	XSmoothingBoost float64 `yaml:"x_smoothing_boost"`
	XSmoothingCap   float64 `yaml:"x_smoothing_cap"`

	// Bounds for the clamp step
	MinX float64 `yaml:"min_x"`
	MaxX float64 `yaml:"max_x"`
	MinY float64 `yaml:"min_y"`
	MaxY float64 `yaml:"max_y"`

	// Balance correction
	SplitX            float64           `yaml:"split_x"`
	MildShare         float64           `yaml:"mild_share"`     // weak side below this...
	DominantShare     float64           `yaml:"dominant_share"` // ...and strong side above this
	MildBlend         float64           `yaml:"mild_blend"`
	MildLeftAnchor    float64           `yaml:"mild_left_anchor"`
	MildRightAnchor   float64           `yaml:"mild_right_anchor"`
	StrongShare       float64           `yaml:"strong_share"`
	StrongBlend       float64           `yaml:"strong_blend"`
	StrongLeftAnchor  float64           `yaml:"strong_left_anchor"`
	StrongRightAnchor float64           `yaml:"strong_right_anchor"`
	BalancePrecedence BalancePrecedence `yaml:"balance_precedence"`

	// Edge floor/ceiling applied last
	EdgeLow      float64 `yaml:"edge_low"`       // x below this...
	EdgeLowFloor float64 `yaml:"edge_low_floor"` // ...is raised to at least this
	EdgeHigh     float64 `yaml:"edge_high"`
	EdgeHighCap  float64 `yaml:"edge_high_cap"`
}

// GoalConfig holds the tunables of the goal detector.
type GoalConfig struct {
	GoalThreshold           float64 `yaml:"goal_threshold"`
	HistoryLength           int     `yaml:"history_length"`
	VolumeIncreaseThreshold float64 `yaml:"volume_increase_threshold"`
	CooldownFrames          int     `yaml:"cooldown_frames"`
	RecentWindow            int     `yaml:"recent_window"`   // frames averaged as "now"
	BaselineWindow          int     `yaml:"baseline_window"` // frames averaged before that
}

// TempoConfig holds the tunables of the tempo mapper.
type TempoConfig struct {
	BaseTempo        float64 `yaml:"base_tempo"`
	MaxTempo         float64 `yaml:"max_tempo"`
	MinTempo         float64 `yaml:"min_tempo"`
	AttackRate       float64 `yaml:"attack_rate"`
	DecayRate        float64 `yaml:"decay_rate"`
	SilenceDecayRate float64 `yaml:"silence_decay_rate"`
	SilenceThreshold float64 `yaml:"silence_threshold"`
	HistoryLength    int     `yaml:"history_length"`

	// Intensity composition
	WeightFirst      float64 `yaml:"weight_first"` // channel weight ramp, first channel
	WeightLast       float64 `yaml:"weight_last"`  // last channel
	LevelMix         float64 `yaml:"level_mix"`
	ReactivityMix    float64 `yaml:"reactivity_mix"`
	ReactivityWindow int     `yaml:"reactivity_window"`

	// Trend adjustment
	TrendWindow    int     `yaml:"trend_window"`
	TrendThreshold float64 `yaml:"trend_threshold"`
	TrendRiseGain  float64 `yaml:"trend_rise_gain"`
	TrendFallGain  float64 `yaml:"trend_fall_gain"`

	DisplayRange DisplayRange `yaml:"display_range"`
}

// Config bundles the three stateful stages plus the front-end options.
type Config struct {
	MergeStereo bool           `yaml:"merge_stereo"`
	Position    PositionConfig `yaml:"position"`
	Goals       GoalConfig     `yaml:"goals"`
	Tempo       TempoConfig    `yaml:"tempo"`
	Hum         HumConfig      `yaml:"hum"`
}

// Default values. The estimator, detector and mapper constants were tuned
// on the table in the lab; downstream patches depend on them.
const (
	defaultNoiseThreshold  = 0.01
	defaultMaxDistance     = 200.0
	defaultSmoothingFactor = 0.7
	defaultXSmoothingBoost = 0.1
	defaultXSmoothingCap   = 0.9

	defaultMildShare         = 0.2
	defaultDominantShare     = 0.8
	defaultMildBlend         = 0.7
	defaultMildLeftAnchor    = 20.0
	defaultMildRightAnchor   = 97.0
	defaultStrongShare       = 0.1
	defaultStrongBlend       = 0.5
	defaultStrongLeftAnchor  = 10.0
	defaultStrongRightAnchor = 107.0

	defaultEdgeLow      = 20.0
	defaultEdgeLowFloor = 10.0
	defaultEdgeHigh     = 97.0
	defaultEdgeHighCap  = 107.0

	defaultGoalThreshold           = 0.3
	defaultGoalHistoryLength       = 20
	defaultVolumeIncreaseThreshold = 3.0
	defaultCooldownFrames          = 30
	defaultRecentWindow            = 5
	defaultBaselineWindow          = 10

	defaultBaseTempo        = 120.0
	defaultMaxTempo         = 180.0
	defaultMinTempo         = 60.0
	defaultAttackRate       = 0.1
	defaultDecayRate        = 0.05
	defaultSilenceDecayRate = 0.3
	defaultSilenceThreshold = 0.05
	defaultTempoHistory     = 50
	defaultWeightFirst      = 1.0
	defaultWeightLast       = 0.5
	defaultLevelMix         = 0.7
	defaultReactivityMix    = 0.3
	defaultReactivityWindow = 5
	defaultTrendWindow      = 5
	defaultTrendThreshold   = 0.01
	defaultTrendRiseGain    = 1.1
	defaultTrendFallGain    = 0.95
)

// DefaultPositionConfig returns the estimator defaults.
func DefaultPositionConfig() PositionConfig {
	return PositionConfig{
		Mode:              ModeSmoothed,
		NoiseThreshold:    defaultNoiseThreshold,
		MaxDistance:       defaultMaxDistance,
		SmoothingFactor:   defaultSmoothingFactor,
		XSmoothingBoost:   defaultXSmoothingBoost,
		XSmoothingCap:     defaultXSmoothingCap,
		MinX:              0,
		MaxX:              TableWidth,
		MinY:              0,
		MaxY:              TableHeight,
		SplitX:            TableMidX,
		MildShare:         defaultMildShare,
		DominantShare:     defaultDominantShare,
		MildBlend:         defaultMildBlend,
		MildLeftAnchor:    defaultMildLeftAnchor,
		MildRightAnchor:   defaultMildRightAnchor,
		StrongShare:       defaultStrongShare,
		StrongBlend:       defaultStrongBlend,
		StrongLeftAnchor:  defaultStrongLeftAnchor,
		StrongRightAnchor: defaultStrongRightAnchor,
		BalancePrecedence: BalanceMildFirst,
		EdgeLow:           defaultEdgeLow,
		EdgeLowFloor:      defaultEdgeLowFloor,
		EdgeHigh:          defaultEdgeHigh,
		EdgeHighCap:       defaultEdgeHighCap,
	}
}

// DefaultGoalConfig returns the goal detector defaults.
func DefaultGoalConfig() GoalConfig {
	return GoalConfig{
		GoalThreshold:           defaultGoalThreshold,
		HistoryLength:           defaultGoalHistoryLength,
		VolumeIncreaseThreshold: defaultVolumeIncreaseThreshold,
		CooldownFrames:          defaultCooldownFrames,
		RecentWindow:            defaultRecentWindow,
		BaselineWindow:          defaultBaselineWindow,
	}
}

// DefaultTempoConfig returns the tempo mapper defaults.
func DefaultTempoConfig() TempoConfig {
	return TempoConfig{
		BaseTempo:        defaultBaseTempo,
		MaxTempo:         defaultMaxTempo,
		MinTempo:         defaultMinTempo,
		AttackRate:       defaultAttackRate,
		DecayRate:        defaultDecayRate,
		SilenceDecayRate: defaultSilenceDecayRate,
		SilenceThreshold: defaultSilenceThreshold,
		HistoryLength:    defaultTempoHistory,
		WeightFirst:      defaultWeightFirst,
		WeightLast:       defaultWeightLast,
		LevelMix:         defaultLevelMix,
		ReactivityMix:    defaultReactivityMix,
		ReactivityWindow: defaultReactivityWindow,
		TrendWindow:      defaultTrendWindow,
		TrendThreshold:   defaultTrendThreshold,
		TrendRiseGain:    defaultTrendRiseGain,
		TrendFallGain:    defaultTrendFallGain,
		DisplayRange:     Range100,
	}
}

// DefaultConfig returns the full processing configuration used by the
// table rig: six stereo pairs for localisation, hum filter off.
func DefaultConfig() *Config {
	return &Config{
		MergeStereo: true,
		Position:    DefaultPositionConfig(),
		Goals:       DefaultGoalConfig(),
		Tempo:       DefaultTempoConfig(),
		Hum:         DefaultHumConfig(),
	}
}

// Sanitize replaces NaN, Inf and out-of-range values with defaults so a
// half-filled YAML block cannot poison the stages.
func (c *Config) Sanitize() {
	sanitizePosition(&c.Position)
	sanitizeGoals(&c.Goals)
	sanitizeTempo(&c.Tempo)
	sanitizeHum(&c.Hum)
}

func sanitizePosition(p *PositionConfig) {
	d := DefaultPositionConfig()

	switch p.Mode {
	case ModeBaseline, ModeEnhanced, ModeSmoothed:
	default:
		p.Mode = d.Mode
	}
	switch p.BalancePrecedence {
	case BalanceStrongFirst, BalanceMildFirst:
	default:
		p.BalancePrecedence = d.BalancePrecedence
	}

	p.NoiseThreshold = nonNegative(p.NoiseThreshold, d.NoiseThreshold)
	p.MaxDistance = positive(p.MaxDistance, d.MaxDistance)
	p.SmoothingFactor = unitInterval(p.SmoothingFactor, d.SmoothingFactor)
	p.XSmoothingBoost = nonNegative(p.XSmoothingBoost, d.XSmoothingBoost)
	p.XSmoothingCap = unitInterval(p.XSmoothingCap, d.XSmoothingCap)

	if !(p.MaxX > p.MinX) || !finite(p.MinX) || !finite(p.MaxX) {
		p.MinX, p.MaxX = d.MinX, d.MaxX
	}
	if !(p.MaxY > p.MinY) || !finite(p.MinY) || !finite(p.MaxY) {
		p.MinY, p.MaxY = d.MinY, d.MaxY
	}
	p.SplitX = sanitizeFloat(p.SplitX, (p.MinX+p.MaxX)/2)

	p.MildShare = unitInterval(p.MildShare, d.MildShare)
	p.DominantShare = unitInterval(p.DominantShare, d.DominantShare)
	p.MildBlend = unitInterval(p.MildBlend, d.MildBlend)
	p.MildLeftAnchor = sanitizeFloat(p.MildLeftAnchor, d.MildLeftAnchor)
	p.MildRightAnchor = sanitizeFloat(p.MildRightAnchor, d.MildRightAnchor)
	p.StrongShare = unitInterval(p.StrongShare, d.StrongShare)
	p.StrongBlend = unitInterval(p.StrongBlend, d.StrongBlend)
	p.StrongLeftAnchor = sanitizeFloat(p.StrongLeftAnchor, d.StrongLeftAnchor)
	p.StrongRightAnchor = sanitizeFloat(p.StrongRightAnchor, d.StrongRightAnchor)

	p.EdgeLow = sanitizeFloat(p.EdgeLow, d.EdgeLow)
	p.EdgeLowFloor = sanitizeFloat(p.EdgeLowFloor, d.EdgeLowFloor)
	p.EdgeHigh = sanitizeFloat(p.EdgeHigh, d.EdgeHigh)
	p.EdgeHighCap = sanitizeFloat(p.EdgeHighCap, d.EdgeHighCap)
}

func sanitizeGoals(g *GoalConfig) {
	d := DefaultGoalConfig()
	g.GoalThreshold = nonNegative(g.GoalThreshold, d.GoalThreshold)
	g.VolumeIncreaseThreshold = positive(g.VolumeIncreaseThreshold, d.VolumeIncreaseThreshold)
	if g.RecentWindow < 1 {
		g.RecentWindow = d.RecentWindow
	}
	if g.BaselineWindow < 1 {
		g.BaselineWindow = d.BaselineWindow
	}
	if g.HistoryLength < g.RecentWindow+1 {
		g.HistoryLength = max(d.HistoryLength, g.RecentWindow+g.BaselineWindow)
	}
	if g.CooldownFrames < 0 {
		g.CooldownFrames = d.CooldownFrames
	}
}

func sanitizeTempo(t *TempoConfig) {
	d := DefaultTempoConfig()
	if !finite(t.MinTempo) || !finite(t.MaxTempo) || !(t.MaxTempo > t.MinTempo) {
		t.MinTempo, t.MaxTempo = d.MinTempo, d.MaxTempo
	}
	t.BaseTempo = clamp(sanitizeFloat(t.BaseTempo, d.BaseTempo), t.MinTempo, t.MaxTempo)
	t.AttackRate = unitInterval(t.AttackRate, d.AttackRate)
	t.DecayRate = unitInterval(t.DecayRate, d.DecayRate)
	t.SilenceDecayRate = unitInterval(t.SilenceDecayRate, d.SilenceDecayRate)
	t.SilenceThreshold = nonNegative(t.SilenceThreshold, d.SilenceThreshold)
	if t.HistoryLength < 1 {
		t.HistoryLength = d.HistoryLength
	}
	t.WeightFirst = sanitizeFloat(t.WeightFirst, d.WeightFirst)
	t.WeightLast = sanitizeFloat(t.WeightLast, d.WeightLast)
	t.LevelMix = sanitizeFloat(t.LevelMix, d.LevelMix)
	t.ReactivityMix = sanitizeFloat(t.ReactivityMix, d.ReactivityMix)
	if t.ReactivityWindow < 1 {
		t.ReactivityWindow = d.ReactivityWindow
	}
	if t.TrendWindow < 2 {
		t.TrendWindow = d.TrendWindow
	}
	t.TrendThreshold = nonNegative(t.TrendThreshold, d.TrendThreshold)
	t.TrendRiseGain = positive(t.TrendRiseGain, d.TrendRiseGain)
	t.TrendFallGain = positive(t.TrendFallGain, d.TrendFallGain)
	if !t.DisplayRange.valid() {
		t.DisplayRange = d.DisplayRange
	}
}

// sanitizeFloat returns defaultVal if val is NaN or Inf
func sanitizeFloat(val, defaultVal float64) float64 {
	if !finite(val) {
		return defaultVal
	}
	return val
}

func nonNegative(val, defaultVal float64) float64 {
	if !finite(val) || val < 0 {
		return defaultVal
	}
	return val
}

func positive(val, defaultVal float64) float64 {
	if !finite(val) || val <= 0 {
		return defaultVal
	}
	return val
}

func unitInterval(val, defaultVal float64) float64 {
	if !finite(val) || val < 0 || val > 1 {
		return defaultVal
	}
	return val
}

func finite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// clamp restricts val to the range [min, max]
func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
