package processor

import (
	"math"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.MergeStereo {
		t.Error("MergeStereo = false, want true")
	}
	if cfg.Position.Mode != ModeSmoothed || cfg.Position.BalancePrecedence != BalanceMildFirst {
		t.Errorf("position mode/precedence = %q/%q", cfg.Position.Mode, cfg.Position.BalancePrecedence)
	}
	if cfg.Goals.GoalThreshold != 0.3 || cfg.Goals.HistoryLength != 20 ||
		cfg.Goals.VolumeIncreaseThreshold != 3.0 || cfg.Goals.CooldownFrames != 30 {
		t.Errorf("goal defaults = %+v", cfg.Goals)
	}
	tc := cfg.Tempo
	if tc.BaseTempo != 120 || tc.MaxTempo != 180 || tc.MinTempo != 60 ||
		tc.AttackRate != 0.1 || tc.DecayRate != 0.05 || tc.SilenceDecayRate != 0.3 ||
		tc.SilenceThreshold != 0.05 || tc.HistoryLength != 50 {
		t.Errorf("tempo defaults = %+v", tc)
	}
	if tc.DisplayRange != Range100 {
		t.Errorf("display range = %+v, want Range100", tc.DisplayRange)
	}
	if cfg.Hum.Enabled() {
		t.Error("hum filter enabled by default")
	}

	// Defaults survive sanitising untouched.
	sanitized := DefaultConfig()
	sanitized.Sanitize()
	if sanitized.Position != cfg.Position || sanitized.Goals != cfg.Goals || sanitized.Tempo != cfg.Tempo {
		t.Error("Sanitize() changed default values")
	}
}

func TestSanitize(t *testing.T) {
	nan := math.NaN()
	inf := math.Inf(1)

	tests := []struct {
		name   string
		modify func(*Config)
		check  func(*testing.T, *Config)
	}{
		{
			name:   "NaN noise threshold",
			modify: func(c *Config) { c.Position.NoiseThreshold = nan },
			check: func(t *testing.T, c *Config) {
				if c.Position.NoiseThreshold != defaultNoiseThreshold {
					t.Errorf("NoiseThreshold = %v", c.Position.NoiseThreshold)
				}
			},
		},
		{
			name:   "smoothing outside unit interval",
			modify: func(c *Config) { c.Position.SmoothingFactor = 1.5 },
			check: func(t *testing.T, c *Config) {
				if c.Position.SmoothingFactor != defaultSmoothingFactor {
					t.Errorf("SmoothingFactor = %v", c.Position.SmoothingFactor)
				}
			},
		},
		{
			name:   "unknown mode and precedence",
			modify: func(c *Config) { c.Position.Mode = "fancy"; c.Position.BalancePrecedence = "" },
			check: func(t *testing.T, c *Config) {
				if c.Position.Mode != ModeSmoothed || c.Position.BalancePrecedence != BalanceMildFirst {
					t.Errorf("mode/precedence = %q/%q", c.Position.Mode, c.Position.BalancePrecedence)
				}
			},
		},
		{
			name:   "inverted x bounds",
			modify: func(c *Config) { c.Position.MinX, c.Position.MaxX = 100, 10 },
			check: func(t *testing.T, c *Config) {
				if c.Position.MinX != 0 || c.Position.MaxX != TableWidth {
					t.Errorf("x bounds = [%v, %v]", c.Position.MinX, c.Position.MaxX)
				}
			},
		},
		{
			name:   "history shorter than recent window",
			modify: func(c *Config) { c.Goals.HistoryLength = 3 },
			check: func(t *testing.T, c *Config) {
				if c.Goals.HistoryLength != defaultGoalHistoryLength {
					t.Errorf("HistoryLength = %d", c.Goals.HistoryLength)
				}
			},
		},
		{
			name:   "negative cooldown",
			modify: func(c *Config) { c.Goals.CooldownFrames = -1 },
			check: func(t *testing.T, c *Config) {
				if c.Goals.CooldownFrames != defaultCooldownFrames {
					t.Errorf("CooldownFrames = %d", c.Goals.CooldownFrames)
				}
			},
		},
		{
			name:   "inverted tempo range",
			modify: func(c *Config) { c.Tempo.MinTempo, c.Tempo.MaxTempo = 200, 100 },
			check: func(t *testing.T, c *Config) {
				if c.Tempo.MinTempo != defaultMinTempo || c.Tempo.MaxTempo != defaultMaxTempo {
					t.Errorf("tempo range = [%v, %v]", c.Tempo.MinTempo, c.Tempo.MaxTempo)
				}
			},
		},
		{
			name:   "base tempo clamped into range",
			modify: func(c *Config) { c.Tempo.BaseTempo = 500 },
			check: func(t *testing.T, c *Config) {
				if c.Tempo.BaseTempo != defaultMaxTempo {
					t.Errorf("BaseTempo = %v", c.Tempo.BaseTempo)
				}
			},
		},
		{
			name:   "infinite attack rate",
			modify: func(c *Config) { c.Tempo.AttackRate = inf },
			check: func(t *testing.T, c *Config) {
				if c.Tempo.AttackRate != defaultAttackRate {
					t.Errorf("AttackRate = %v", c.Tempo.AttackRate)
				}
			},
		},
		{
			name:   "empty display range",
			modify: func(c *Config) { c.Tempo.DisplayRange = DisplayRange{Min: 5, Max: 5} },
			check: func(t *testing.T, c *Config) {
				if c.Tempo.DisplayRange != Range100 {
					t.Errorf("DisplayRange = %+v", c.Tempo.DisplayRange)
				}
			},
		},
		{
			name:   "custom display range kept",
			modify: func(c *Config) { c.Tempo.DisplayRange = RangeMIDI },
			check: func(t *testing.T, c *Config) {
				if c.Tempo.DisplayRange != RangeMIDI {
					t.Errorf("DisplayRange = %+v", c.Tempo.DisplayRange)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			cfg.Sanitize()
			tt.check(t, cfg)
		})
	}
}
