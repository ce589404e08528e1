// Package audio provides the frame sources the session reads from: live
// capture, WAV replay and a simulator.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// ErrNotOpen is returned by ReadFrame before Open or after Close.
var ErrNotOpen = errors.New("audio source not open")

// Metadata describes the frames a source produces.
type Metadata struct {
	Name       string
	SampleRate float64
	Channels   int
	FrameSize  int           // samples per channel per frame
	Duration   time.Duration // 0 for live sources
	BitDepth   int           // 0 when not applicable
}

// FrameDuration is the wall-clock length of one frame.
func (m Metadata) FrameDuration() time.Duration {
	if m.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(m.FrameSize) / m.SampleRate * float64(time.Second))
}

// Source yields fixed-size channel-major frames. ReadFrame blocks until a
// frame is available and returns io.EOF once a finite source is drained.
type Source interface {
	Open(ctx context.Context) error
	ReadFrame(ctx context.Context) (processor.Frame, error)
	Metadata() Metadata
	Close() error
}

// Backend selects a Source implementation.
type Backend string

const (
	BackendPortAudio Backend = "portaudio"
	BackendWAV       Backend = "wav"
	BackendSimulate  Backend = "simulate"
)

// Config holds the options shared by every backend.
type Config struct {
	Backend       Backend
	DeviceID      int           // PortAudio device index, -1 for the default input
	Path          string        // WAV file
	SampleRate    float64       // capture rate; WAV files use their own
	Channels      int           // capture channels; WAV files use their own
	ChunkDuration time.Duration // frame length
	Simulation    SimulationConfig
}

// FrameSize returns the number of samples per channel in one chunk.
func (c Config) FrameSize() int {
	return int(c.SampleRate * c.ChunkDuration.Seconds())
}

// Validate checks the options the chosen backend needs.
func (c Config) Validate() error {
	if c.ChunkDuration <= 0 {
		return fmt.Errorf("chunk duration must be positive, got %v", c.ChunkDuration)
	}
	switch c.Backend {
	case BackendWAV:
		if c.Path == "" {
			return fmt.Errorf("wav backend needs a file path")
		}
		return nil
	case BackendPortAudio, BackendSimulate:
	default:
		return fmt.Errorf("unsupported backend: %q", c.Backend)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %v", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channel count must be positive, got %d", c.Channels)
	}
	if c.FrameSize() < 1 {
		return fmt.Errorf("chunk of %v at %v Hz holds no samples", c.ChunkDuration, c.SampleRate)
	}
	return nil
}

// NewSource builds the source selected by cfg.Backend. The source still
// needs Open.
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid audio config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("creating audio source",
		"backend", cfg.Backend,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"chunk_ms", cfg.ChunkDuration.Milliseconds(),
	)

	switch cfg.Backend {
	case BackendWAV:
		return NewWAVSource(cfg.Path, cfg.ChunkDuration), nil
	case BackendSimulate:
		return NewSimulatedSource(cfg.Simulation, cfg.SampleRate, cfg.Channels, cfg.FrameSize()), nil
	default:
		return newPortAudioSource(cfg, logger)
	}
}
