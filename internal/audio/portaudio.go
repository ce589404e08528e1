//go:build cgo

package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// PortAudioSource captures multichannel input with blocking PortAudio reads.
type PortAudioSource struct {
	cfg    Config
	logger *slog.Logger

	stream *portaudio.Stream
	buf    []float32 // interleaved
	meta   Metadata

	framesRead atomic.Int64
	overruns   atomic.Int64
}

func newPortAudioSource(cfg Config, logger *slog.Logger) (Source, error) {
	return &PortAudioSource{cfg: cfg, logger: logger}, nil
}

// Open initialises PortAudio, selects the device and starts the stream.
func (s *PortAudioSource) Open(ctx context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialise portaudio: %w", err)
	}

	dev, err := inputDevice(s.cfg.DeviceID)
	if err != nil {
		portaudio.Terminate()
		return err
	}
	if dev.MaxInputChannels < s.cfg.Channels {
		portaudio.Terminate()
		return fmt.Errorf("device %q has %d input channels, need %d", dev.Name, dev.MaxInputChannels, s.cfg.Channels)
	}

	frameSize := s.cfg.FrameSize()
	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = s.cfg.Channels
	params.Output.Channels = 0
	params.SampleRate = s.cfg.SampleRate
	params.FramesPerBuffer = frameSize

	s.buf = make([]float32, frameSize*s.cfg.Channels)
	stream, err := portaudio.OpenStream(params, s.buf)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open input stream on %q: %w", dev.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	s.stream = stream
	s.meta = Metadata{
		Name:       dev.Name,
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
		FrameSize:  frameSize,
	}
	s.logger.Info("portaudio input started",
		"device", dev.Name,
		"host_api", hostAPIName(dev),
		"sample_rate", s.cfg.SampleRate,
		"channels", s.cfg.Channels,
		"frame_size", frameSize,
	)
	return nil
}

// ReadFrame blocks for one chunk. Input overflows are counted and the
// (partially stale) chunk is still delivered.
func (s *PortAudioSource) ReadFrame(ctx context.Context) (processor.Frame, error) {
	if s.stream == nil {
		return nil, ErrNotOpen
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.stream.Read(); err != nil {
		if !errors.Is(err, portaudio.InputOverflowed) {
			return nil, fmt.Errorf("portaudio read: %w", err)
		}
		if n := s.overruns.Add(1); n == 1 || n%100 == 0 {
			s.logger.Warn("portaudio input overflowed", "overruns", n)
		}
	}

	channels := s.meta.Channels
	frame := processor.NewFrame(channels, s.meta.FrameSize)
	for i := 0; i < s.meta.FrameSize; i++ {
		for ch := 0; ch < channels; ch++ {
			frame[ch][i] = float64(s.buf[i*channels+ch])
		}
	}
	s.framesRead.Add(1)
	return frame, nil
}

// Metadata describes the open stream.
func (s *PortAudioSource) Metadata() Metadata {
	return s.meta
}

// Close stops the stream and terminates PortAudio.
func (s *PortAudioSource) Close() error {
	if s.stream == nil {
		return nil
	}
	var errs []error
	if err := s.stream.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := s.stream.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, err)
	}
	s.stream = nil
	s.logger.Info("portaudio input stopped", "frames", s.framesRead.Load(), "overruns", s.overruns.Load())
	return errors.Join(errs...)
}

func inputDevice(id int) (*portaudio.DeviceInfo, error) {
	if id < 0 {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default input device: %w", err)
		}
		return dev, nil
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	if id >= len(devices) {
		return nil, fmt.Errorf("device %d not found (%d devices)", id, len(devices))
	}
	return devices[id], nil
}

func hostAPIName(dev *portaudio.DeviceInfo) string {
	if dev.HostApi == nil {
		return ""
	}
	return dev.HostApi.Name
}

// ListDevices returns every device PortAudio reports, indexed as DeviceID
// expects.
func ListDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialise portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	def, _ := portaudio.DefaultInputDevice()

	out := make([]Device, len(devices))
	for i, d := range devices {
		out[i] = Device{
			ID:                i,
			Name:              d.Name,
			HostAPI:           hostAPIName(d),
			InputChannels:     d.MaxInputChannels,
			OutputChannels:    d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			DefaultInput:      def != nil && d.Name == def.Name && hostAPIName(d) == hostAPIName(def),
		}
	}
	return out, nil
}
