package processor

import (
	"errors"
	"fmt"

	dsptime "github.com/cwbudde/algo-dsp/stats/time"
)

// Frame errors. A frame that fails with one of these must be dropped by the
// caller; no stage state is touched.
var (
	ErrOddChannelCount = errors.New("stereo merge needs an even channel count")
	ErrRaggedFrame     = errors.New("frame rows differ in length")
	ErrChannelCount    = errors.New("unexpected channel count")
	ErrEmptyFrame      = errors.New("empty frame")
	ErrLayoutMismatch  = errors.New("layout does not match loudness channels")
)

// Frame is one block of samples, channel-major: Frame[ch][n].
type Frame [][]float64

// NewFrame allocates a zeroed frame.
func NewFrame(channels, samples int) Frame {
	f := make(Frame, channels)
	backing := make([]float64, channels*samples)
	for ch := range f {
		f[ch] = backing[ch*samples : (ch+1)*samples : (ch+1)*samples]
	}
	return f
}

// Channels returns the number of rows.
func (f Frame) Channels() int { return len(f) }

// Samples returns the block length, or 0 for an empty frame.
func (f Frame) Samples() int {
	if len(f) == 0 {
		return 0
	}
	return len(f[0])
}

// Validate checks the frame is non-empty and rectangular.
func (f Frame) Validate() error {
	if len(f) == 0 {
		return ErrEmptyFrame
	}
	n := len(f[0])
	for ch, row := range f {
		if len(row) != n {
			return fmt.Errorf("%w: channel %d has %d samples, channel 0 has %d", ErrRaggedFrame, ch, len(row), n)
		}
	}
	return nil
}

// Select returns a frame view holding only the listed channels, in order.
// Rows are shared with f.
func (f Frame) Select(channels []int) (Frame, error) {
	out := make(Frame, len(channels))
	for i, ch := range channels {
		if ch < 0 || ch >= len(f) {
			return nil, fmt.Errorf("%w: channel %d not in %d-channel frame", ErrChannelCount, ch, len(f))
		}
		out[i] = f[ch]
	}
	return out, nil
}

// Clone returns a deep copy.
func (f Frame) Clone() Frame {
	out := NewFrame(f.Channels(), f.Samples())
	for ch := range f {
		copy(out[ch], f[ch])
	}
	return out
}

// MergeStereo averages consecutive channel pairs (2i, 2i+1) into mono rows.
func MergeStereo(frame Frame) (Frame, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	if len(frame)%2 != 0 {
		return nil, fmt.Errorf("%w: got %d channels", ErrOddChannelCount, len(frame))
	}

	pairs := len(frame) / 2
	mono := NewFrame(pairs, frame.Samples())
	for i := 0; i < pairs; i++ {
		left, right := frame[2*i], frame[2*i+1]
		for n := range mono[i] {
			mono[i][n] = (left[n] + right[n]) / 2.0
		}
	}
	return mono, nil
}

// Loudness returns the RMS of every row. With mergeStereo the channel pairs
// are first averaged to mono, halving the result length; an odd channel
// count is then an error.
func Loudness(frame Frame, mergeStereo bool) ([]float64, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	rows := frame
	if mergeStereo {
		var err error
		if rows, err = MergeStereo(frame); err != nil {
			return nil, err
		}
	}

	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = dsptime.RMS(row)
	}
	return out, nil
}
