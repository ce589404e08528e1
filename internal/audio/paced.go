package audio

import (
	"context"
	"time"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// PacedSource releases frames from a file-backed source at the rate they
// were recorded, so replays drive downstream instruments in real time.
type PacedSource struct {
	Source
	next time.Time
}

// Paced wraps src. The first frame is released immediately.
func Paced(src Source) *PacedSource {
	return &PacedSource{Source: src}
}

// ReadFrame waits for the frame's slot, then reads it.
func (p *PacedSource) ReadFrame(ctx context.Context) (processor.Frame, error) {
	now := time.Now()
	if p.next.IsZero() {
		p.next = now
	}
	if wait := p.next.Sub(now); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	p.next = p.next.Add(p.Metadata().FrameDuration())
	return p.Source.ReadFrame(ctx)
}
