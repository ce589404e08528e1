package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// wavFormatPCM is the integer PCM format tag; IEEE float (3) and
// compressed formats are rejected.
const wavFormatPCM = 1

// WAVSource replays a multichannel PCM WAV file (16, 24 or 32 bit) as
// fixed-size frames. The final partial chunk is zero-padded.
type WAVSource struct {
	path  string
	chunk time.Duration

	file  *os.File
	dec   *wav.Decoder
	buf   *goaudio.IntBuffer
	meta  Metadata
	scale float64 // 1 / full-scale integer value
	done  bool
}

// NewWAVSource returns a source for path; frames last chunk each.
func NewWAVSource(path string, chunk time.Duration) *WAVSource {
	return &WAVSource{path: path, chunk: chunk}
}

// Open validates the file and positions the decoder at the PCM data.
func (s *WAVSource) Open(ctx context.Context) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open wav file: %w", err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return fmt.Errorf("%s is not a valid wav file", s.path)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		f.Close()
		return fmt.Errorf("%s: unsupported wav format %d, only integer PCM is supported", s.path, dec.WavAudioFormat)
	}
	if err := dec.FwdToPCM(); err != nil {
		f.Close()
		return fmt.Errorf("failed to find pcm data: %w", err)
	}

	sampleRate := float64(dec.SampleRate)
	channels := int(dec.NumChans)
	frameSize := int(sampleRate * s.chunk.Seconds())
	if channels < 1 || frameSize < 1 || dec.BitDepth < 16 {
		f.Close()
		return fmt.Errorf("unusable wav format: %d channels, %d bit, %v Hz", channels, dec.BitDepth, sampleRate)
	}

	var duration time.Duration
	if bytesPerFrame := channels * int(dec.BitDepth) / 8; dec.PCMSize > 0 {
		samples := dec.PCMSize / bytesPerFrame
		duration = time.Duration(float64(samples) / sampleRate * float64(time.Second))
	}

	s.file = f
	s.dec = dec
	s.scale = 1 / math.Pow(2, float64(dec.BitDepth)-1)
	s.buf = &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: int(dec.SampleRate)},
		Data:           make([]int, frameSize*channels),
		SourceBitDepth: int(dec.BitDepth),
	}
	s.meta = Metadata{
		Name:       filepath.Base(s.path),
		SampleRate: sampleRate,
		Channels:   channels,
		FrameSize:  frameSize,
		Duration:   duration,
		BitDepth:   int(dec.BitDepth),
	}
	s.done = false
	return nil
}

// ReadFrame decodes the next chunk and de-interleaves it into a frame.
func (s *WAVSource) ReadFrame(ctx context.Context) (processor.Frame, error) {
	if s.dec == nil {
		return nil, ErrNotOpen
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.done {
		return nil, io.EOF
	}

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to decode pcm: %w", err)
	}
	if n == 0 {
		s.done = true
		return nil, io.EOF
	}

	channels := s.meta.Channels
	frame := processor.NewFrame(channels, s.meta.FrameSize)
	samples := n / channels
	for i := 0; i < samples; i++ {
		for ch := 0; ch < channels; ch++ {
			frame[ch][i] = float64(s.buf.Data[i*channels+ch]) * s.scale
		}
	}
	if n < len(s.buf.Data) {
		s.done = true
	}
	return frame, nil
}

// Metadata describes the opened file.
func (s *WAVSource) Metadata() Metadata {
	return s.meta
}

// Close releases the file.
func (s *WAVSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.dec = nil
	return err
}
