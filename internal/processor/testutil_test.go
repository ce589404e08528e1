package processor

import (
	"context"
	"io"
	"math"
	"testing"
)

// levelFrame builds a frame whose rows alternate between +level and -level,
// so each row's RMS equals its level exactly.
func levelFrame(samples int, levels ...float64) Frame {
	f := NewFrame(len(levels), samples)
	for ch, level := range levels {
		for n := range f[ch] {
			if n%2 == 0 {
				f[ch][n] = level
			} else {
				f[ch][n] = -level
			}
		}
	}
	return f
}

// toneFrame builds a frame of sine tones, one amplitude per channel. start
// is the sample offset so consecutive frames stay phase-continuous.
func toneFrame(samples, start int, freq, sampleRate float64, amps ...float64) Frame {
	f := NewFrame(len(amps), samples)
	for ch, a := range amps {
		for n := range f[ch] {
			t := float64(start+n) / sampleRate
			f[ch][n] = a * math.Sin(2*math.Pi*freq*t)
		}
	}
	return f
}

// frameSource replays a fixed list of frames, then io.EOF.
type frameSource struct {
	frames []Frame
	pos    int
	err    error // returned instead of io.EOF when set
}

func (s *frameSource) ReadFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.frames) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// recordingSink keeps every status it is sent.
type recordingSink struct {
	statuses []Status
	err      error
}

func (s *recordingSink) Send(st Status) error {
	s.statuses = append(s.statuses, st)
	return s.err
}

// sixMicLayout is the rig layout used throughout: three mics along each
// long edge.
func sixMicLayout() Layout {
	return Layout{
		{X: 0, Y: 0}, {X: 58.5, Y: 0}, {X: 117, Y: 0},
		{X: 0, Y: 68}, {X: 58.5, Y: 68}, {X: 117, Y: 68},
	}
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func assertClose(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if !approxEqual(got, want, tol) {
		t.Errorf("%s = %v, want %v (±%v)", name, got, want, tol)
	}
}
