package audio

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConfigValidate(t *testing.T) {
	base := Config{
		Backend:       BackendSimulate,
		SampleRate:    48000,
		Channels:      14,
		ChunkDuration: 10 * time.Millisecond,
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid simulator", func(c *Config) {}, false},
		{"valid portaudio", func(c *Config) { c.Backend = BackendPortAudio }, false},
		{"wav needs only a path", func(c *Config) {
			c.Backend = BackendWAV
			c.Path = "table.wav"
			c.SampleRate = 0
			c.Channels = 0
		}, false},
		{"wav without path", func(c *Config) { c.Backend = BackendWAV }, true},
		{"unknown backend", func(c *Config) { c.Backend = "jack" }, true},
		{"zero chunk", func(c *Config) { c.ChunkDuration = 0 }, true},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }, true},
		{"no channels", func(c *Config) { c.Channels = 0 }, true},
		{"chunk shorter than a sample", func(c *Config) { c.ChunkDuration = time.Microsecond; c.SampleRate = 8000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFrameSize(t *testing.T) {
	cfg := Config{SampleRate: 44100, ChunkDuration: 100 * time.Millisecond}
	if got := cfg.FrameSize(); got != 4410 {
		t.Errorf("FrameSize() = %d, want 4410", got)
	}
}

func TestNewSource(t *testing.T) {
	logger := discardLogger()

	src, err := NewSource(Config{
		Backend:       BackendSimulate,
		SampleRate:    48000,
		Channels:      4,
		ChunkDuration: 10 * time.Millisecond,
		Simulation:    DefaultSimulationConfig(),
	}, logger)
	if err != nil {
		t.Fatalf("NewSource(simulate) error = %v", err)
	}
	sim, ok := src.(*SimulatedSource)
	if !ok {
		t.Fatalf("NewSource(simulate) = %T", src)
	}
	if sim.frameSize != 480 || sim.channels != 4 {
		t.Errorf("simulator shape = %d x %d", sim.channels, sim.frameSize)
	}

	src, err = NewSource(Config{Backend: BackendWAV, Path: "x.wav", ChunkDuration: time.Second}, logger)
	if err != nil {
		t.Fatalf("NewSource(wav) error = %v", err)
	}
	if _, ok := src.(*WAVSource); !ok {
		t.Errorf("NewSource(wav) = %T", src)
	}

	if _, err := NewSource(Config{Backend: "jack", ChunkDuration: time.Second}, logger); err == nil {
		t.Error("NewSource accepted an unknown backend")
	}
}

func TestInputDevices(t *testing.T) {
	devices := []Device{
		{ID: 0, Name: "HDMI", OutputChannels: 8},
		{ID: 1, Name: "UMC1820", InputChannels: 18, OutputChannels: 10},
		{ID: 2, Name: "Built-in Mic", InputChannels: 2, DefaultInput: true},
	}
	got := InputDevices(devices)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("InputDevices() = %+v", got)
	}
	if InputDevices(nil) != nil {
		t.Error("InputDevices(nil) != nil")
	}
}
