package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/spectrum"
	dsptime "github.com/cwbudde/algo-dsp/stats/time"
)

// Ambient analysis parameters
const (
	noiseFloorPercentile = 0.95 // frame RMS below which the room sits 95% of the time
	humShareThreshold    = 0.5  // mains tone RMS / frame RMS above this = hum present
	analysisUpdateEvery  = 10   // frames between progress callbacks
)

// ChannelMeasurement is the ambient profile of one input channel.
type ChannelMeasurement struct {
	Channel int `json:"channel"`

	MeanRMS    float64 `json:"mean_rms"`
	MinRMS     float64 `json:"min_rms"`
	MaxRMS     float64 `json:"max_rms"`
	NoiseFloor float64 `json:"noise_floor"` // 95th percentile frame RMS
	Peak       float64 `json:"peak"`        // sample peak

	NoiseFloorDB float64 `json:"noise_floor_db"`
	PeakDB       float64 `json:"peak_db"`
	CrestDB      float64 `json:"crest_db"`
	DC           float64 `json:"dc"`

	// Share of the frame RMS carried by a 50 Hz or 60 Hz tone, averaged
	// over frames.
	Hum50Share float64 `json:"hum50_share"`
	Hum60Share float64 `json:"hum60_share"`

	frameRMS []float64
	stream   *dsptime.StreamingStats
}

// AmbientMeasurements is the result of listening to the room with no play.
type AmbientMeasurements struct {
	Frames     int                  `json:"frames"`
	SampleRate float64              `json:"sample_rate"`
	Channels   []ChannelMeasurement `json:"channels"`

	// HumFrequency is the detected mains fundamental, 0 when neither tone
	// dominates.
	HumFrequency float64 `json:"hum_frequency"`
}

// Channel returns the measurement for an input channel, or nil.
func (m *AmbientMeasurements) Channel(ch int) *ChannelMeasurement {
	if ch < 0 || ch >= len(m.Channels) {
		return nil
	}
	return &m.Channels[ch]
}

// AnalyzeAmbient reads up to frames frames from source and profiles every
// channel. It stops early on io.EOF; at least one frame is required. If
// progress is not nil it is called periodically with frames done so far.
func AnalyzeAmbient(ctx context.Context, source FrameSource, frames int, sampleRate float64, progress func(done, total int)) (*AmbientMeasurements, error) {
	if frames <= 0 {
		return nil, fmt.Errorf("analysis needs at least one frame, got %d", frames)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %v", sampleRate)
	}

	m := &AmbientMeasurements{SampleRate: sampleRate}

	for m.Frames < frames {
		frame, err := source.ReadFrame(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ambient analysis: %w", err)
		}
		if err := frame.Validate(); err != nil {
			return nil, fmt.Errorf("ambient analysis: %w", err)
		}

		if m.Channels == nil {
			m.Channels = make([]ChannelMeasurement, frame.Channels())
			for ch := range m.Channels {
				m.Channels[ch].Channel = ch
				m.Channels[ch].stream = dsptime.NewStreamingStats()
			}
		}
		if frame.Channels() != len(m.Channels) {
			return nil, fmt.Errorf("%w: frame %d has %d channels, expected %d", ErrChannelCount, m.Frames, frame.Channels(), len(m.Channels))
		}

		for ch, row := range frame {
			c := &m.Channels[ch]
			rms := dsptime.RMS(row)
			c.frameRMS = append(c.frameRMS, rms)
			c.stream.Update(row)
			if rms > 0 {
				c.Hum50Share += toneShare(row, humFreq50Hz, sampleRate, rms)
				c.Hum60Share += toneShare(row, humFreq60Hz, sampleRate, rms)
			}
		}

		m.Frames++
		if progress != nil && m.Frames%analysisUpdateEvery == 0 {
			progress(m.Frames, frames)
		}
	}

	if m.Frames == 0 {
		return nil, fmt.Errorf("ambient analysis: %w", ErrEmptyFrame)
	}

	for ch := range m.Channels {
		m.Channels[ch].finish(m.Frames)
	}
	m.HumFrequency = m.detectHum()

	if progress != nil {
		progress(m.Frames, frames)
	}
	return m, nil
}

// toneShare estimates the RMS of a tone at freq relative to the frame RMS.
func toneShare(row []float64, freq, sampleRate, rms float64) float64 {
	if freq >= sampleRate/2 || len(row) == 0 {
		return 0
	}
	g, err := spectrum.NewGoertzel(freq, sampleRate)
	if err != nil {
		return 0
	}
	g.ProcessBlock(row)
	amplitude := 2 * g.Magnitude() / float64(len(row))
	return amplitude / math.Sqrt2 / rms
}

func (c *ChannelMeasurement) finish(frames int) {
	sorted := slices.Clone(c.frameRMS)
	slices.Sort(sorted)

	c.MeanRMS = dsptime.DC(sorted)
	c.MinRMS = sorted[0]
	c.MaxRMS = sorted[len(sorted)-1]
	c.NoiseFloor = percentile(sorted, noiseFloorPercentile)

	st := c.stream.Result()
	c.Peak = st.Peak
	c.DC = st.DC
	c.CrestDB = st.CrestFactor_dB
	c.PeakDB = core.LinearToDB(c.Peak)
	c.NoiseFloorDB = core.LinearToDB(c.NoiseFloor)

	c.Hum50Share /= float64(frames)
	c.Hum60Share /= float64(frames)

	c.frameRMS = nil
	c.stream = nil
}

// detectHum returns the mains fundamental whose tone dominates the room
// across channels, or 0.
func (m *AmbientMeasurements) detectHum() float64 {
	if len(m.Channels) == 0 {
		return 0
	}
	var s50, s60 float64
	for _, c := range m.Channels {
		s50 += c.Hum50Share
		s60 += c.Hum60Share
	}
	s50 /= float64(len(m.Channels))
	s60 /= float64(len(m.Channels))

	switch {
	case s50 > humShareThreshold && s50 >= s60:
		return humFreq50Hz
	case s60 > humShareThreshold:
		return humFreq60Hz
	}
	return 0
}

// percentile returns the p-quantile of sorted by nearest rank.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	return sorted[clampInt(idx, 0, len(sorted)-1)]
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
