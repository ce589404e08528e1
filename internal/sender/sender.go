// Package sender forwards session status to downstream instruments over
// OSC and MIDI.
package sender

import (
	"errors"
	"fmt"
	"math"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// Sink consumes one status per processed frame.
type Sink interface {
	Send(processor.Status) error
	Close() error
}

// Multi fans a status out to every sink. A failing sink does not stop the
// others; their errors are joined.
type Multi []Sink

// Send forwards st to every sink.
func (m Multi) Send(st processor.Status) error {
	var errs []error
	for i, s := range m {
		if err := s.Send(st); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// scale maps v from [lo, hi] onto 0-127, clamping outside the range.
func scale(v, lo, hi float64) uint8 {
	if hi <= lo || math.IsNaN(v) || v <= lo {
		return 0
	}
	if v >= hi {
		return 127
	}
	return uint8((v-lo)/(hi-lo)*127 + 0.5)
}
