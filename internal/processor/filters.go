package processor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// Mains hum filter parameters
const (
	humFreq50Hz         = 50.0
	humFreq60Hz         = 60.0
	humDefaultHarmonics = 4    // fundamental + 3 harmonics (50, 100, 150, 200 Hz)
	humDefaultQ         = 30.0 // higher = narrower notch
	humMaxHarmonics     = 8
)

// HumConfig configures the optional mains-hum notch filter that runs on
// every channel before loudness extraction. Table rigs with long unbalanced
// cable runs pick up enough hum to lift quiet mics over the noise threshold.
type HumConfig struct {
	// Frequency is "off", "auto", "50" or "60". "auto" resolves from the
	// system timezone via ResolvedFrequency.
	Frequency string  `yaml:"frequency"`
	Harmonics int     `yaml:"harmonics"`
	Q         float64 `yaml:"q"`

	// ResolvedFrequency is set by the caller after resolving "auto";
	// zero disables the filter.
	ResolvedFrequency float64 `yaml:"-"`
}

// DefaultHumConfig returns the hum filter defaults (disabled).
func DefaultHumConfig() HumConfig {
	return HumConfig{
		Frequency: "off",
		Harmonics: humDefaultHarmonics,
		Q:         humDefaultQ,
	}
}

func sanitizeHum(h *HumConfig) {
	h.Frequency = strings.ToLower(strings.TrimSpace(h.Frequency))
	if h.Frequency == "" {
		h.Frequency = "off"
	}
	if h.Harmonics < 1 || h.Harmonics > humMaxHarmonics {
		h.Harmonics = humDefaultHarmonics
	}
	h.Q = positive(h.Q, humDefaultQ)

	// Explicit frequencies resolve immediately; "auto" is left to the caller.
	switch h.Frequency {
	case "off":
		h.ResolvedFrequency = 0
	case "50":
		h.ResolvedFrequency = humFreq50Hz
	case "60":
		h.ResolvedFrequency = humFreq60Hz
	case "auto":
	default:
		if f, err := strconv.ParseFloat(h.Frequency, 64); err == nil && f > 0 {
			h.ResolvedFrequency = f
		} else {
			h.Frequency = "off"
			h.ResolvedFrequency = 0
		}
	}
}

// Enabled reports whether the filter will run.
func (h HumConfig) Enabled() bool {
	return h.ResolvedFrequency > 0
}

// HumFilter is a bank of notch cascades, one per channel. Filter state
// carries across frames so block edges do not click.
type HumFilter struct {
	chains      []*biquad.Chain
	fundamental float64
	harmonics   []float64
}

// Fundamental returns the mains frequency the bank was designed for.
func (h *HumFilter) Fundamental() float64 {
	return h.fundamental
}

// NewHumFilter designs notch sections at the fundamental and its harmonics
// below Nyquist for the given channel count.
func NewHumFilter(cfg HumConfig, sampleRate float64, channels int) (*HumFilter, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("hum filter disabled")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %v", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrChannelCount, channels)
	}

	var coeffs []biquad.Coefficients
	var freqs []float64
	for n := 1; n <= cfg.Harmonics; n++ {
		f := cfg.ResolvedFrequency * float64(n)
		if f >= sampleRate/2 {
			break
		}
		coeffs = append(coeffs, design.Notch(f, cfg.Q, sampleRate))
		freqs = append(freqs, f)
	}
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("hum frequency %.1f Hz above Nyquist for %.0f Hz", cfg.ResolvedFrequency, sampleRate)
	}

	hf := &HumFilter{
		chains:      make([]*biquad.Chain, channels),
		fundamental: cfg.ResolvedFrequency,
		harmonics:   freqs,
	}
	for i := range hf.chains {
		hf.chains[i] = biquad.NewChain(coeffs)
	}
	return hf, nil
}

// Apply filters the frame in place.
func (h *HumFilter) Apply(frame Frame) error {
	if len(frame) != len(h.chains) {
		return fmt.Errorf("%w: hum filter built for %d channels, frame has %d", ErrChannelCount, len(h.chains), len(frame))
	}
	for i, row := range frame {
		h.chains[i].ProcessBlock(row)
	}
	return nil
}

// Reset clears filter state, e.g. between replayed files.
func (h *HumFilter) Reset() {
	for _, c := range h.chains {
		c.Reset()
	}
}

// Frequencies returns the notch centre frequencies in Hz.
func (h *HumFilter) Frequencies() []float64 {
	return append([]float64(nil), h.harmonics...)
}

// Describe returns a short human-readable summary for logs and reports.
func (h *HumFilter) Describe() string {
	parts := make([]string, len(h.harmonics))
	for i, f := range h.harmonics {
		parts[i] = strconv.FormatFloat(f, 'f', 0, 64)
	}
	return fmt.Sprintf("notch %s Hz", strings.Join(parts, ", "))
}
