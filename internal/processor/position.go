package processor

import (
	"fmt"
	"math"
)

// Point is a position on the table in centimetres.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Dist returns the Euclidean distance between two points.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Layout is the ordered list of microphone coordinates. Entry i belongs to
// loudness channel i.
type Layout []Point

// Centroid returns the unweighted mean of all microphone positions.
func (l Layout) Centroid() Point {
	if len(l) == 0 {
		return Point{}
	}
	var c Point
	for _, p := range l {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(l))
	return Point{X: c.X / n, Y: c.Y / n}
}

// Check returns an error if the layout cannot serve a loudness vector of
// the given length.
func (l Layout) Check(channels int) error {
	if len(l) == 0 {
		return fmt.Errorf("%w: empty layout", ErrLayoutMismatch)
	}
	if len(l) != channels {
		return fmt.Errorf("%w: layout has %d mics, loudness has %d channels", ErrLayoutMismatch, len(l), channels)
	}
	return nil
}

// EstimatePosition is the legacy loudness-weighted centroid. All-zero
// loudness yields the plain centroid. Extra loudness entries beyond the
// layout are ignored.
func EstimatePosition(loudness []float64, layout Layout) Point {
	n := min(len(loudness), len(layout))
	if n == 0 {
		return layout.Centroid()
	}

	var sum float64
	for _, l := range loudness[:n] {
		sum += l
	}

	var p Point
	for i := 0; i < n; i++ {
		w := 1.0 / float64(n)
		if sum != 0 {
			w = loudness[i] / sum
		}
		p.X += w * layout[i].X
		p.Y += w * layout[i].Y
	}
	return p
}

// EstimatePositionEnhanced localises the loudest region with noise gating,
// square-root contrast, clamping, balance correction, a distance guard and
// an edge floor. It is a pure function of its inputs.
func EstimatePositionEnhanced(loudness []float64, layout Layout, cfg PositionConfig) Point {
	n := min(len(loudness), len(layout))
	centroid := layout.Centroid()

	// 1. Noise gate
	valid := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if loudness[i] > cfg.NoiseThreshold {
			valid = append(valid, i)
		}
	}
	if len(valid) < 2 {
		return centroid
	}

	// 2. Square-root compander, normalised
	weights := make([]float64, len(valid))
	var total float64
	for k, i := range valid {
		weights[k] = math.Sqrt(loudness[i])
		total += weights[k]
	}
	for k := range weights {
		weights[k] /= total
	}

	// 3. Weighted sum over valid mics
	var p Point
	for k, i := range valid {
		p.X += weights[k] * layout[i].X
		p.Y += weights[k] * layout[i].Y
	}

	// 4. Table bounds
	p.X = clamp(p.X, cfg.MinX, cfg.MaxX)
	p.Y = clamp(p.Y, cfg.MinY, cfg.MaxY)

	// 5. Left/right balance
	p.X = balanceX(p.X, valid, weights, layout, cfg)

	// 6. Distance guard
	if p.Dist(centroid) > cfg.MaxDistance {
		return centroid
	}

	// 7. Edge floor/ceiling
	if p.X < cfg.EdgeLow {
		p.X = math.Max(cfg.EdgeLowFloor, p.X)
	} else if p.X > cfg.EdgeHigh {
		p.X = math.Min(cfg.EdgeHighCap, p.X)
	}

	return p
}

// balanceX pulls x toward the weak side when one half of the table carries
// almost all of the weight. Mics exactly on the split belong to neither
// side. Both sides need at least one valid mic.
func balanceX(x float64, valid []int, weights []float64, layout Layout, cfg PositionConfig) float64 {
	var left, right float64
	var nLeft, nRight int
	for k, i := range valid {
		switch {
		case layout[i].X < cfg.SplitX:
			left += weights[k]
			nLeft++
		case layout[i].X > cfg.SplitX:
			right += weights[k]
			nRight++
		}
	}
	if nLeft == 0 || nRight == 0 {
		return x
	}
	total := left + right
	if total <= 0 {
		return x
	}
	leftShare, rightShare := left/total, right/total

	strong := func() (float64, bool) {
		switch {
		case leftShare < cfg.StrongShare:
			return x*cfg.StrongBlend + cfg.StrongLeftAnchor, true
		case rightShare < cfg.StrongShare:
			return x*cfg.StrongBlend + cfg.StrongRightAnchor, true
		}
		return x, false
	}
	mild := func() (float64, bool) {
		switch {
		case leftShare < cfg.MildShare && rightShare > cfg.DominantShare:
			return x*cfg.MildBlend + cfg.MildLeftAnchor, true
		case rightShare < cfg.MildShare && leftShare > cfg.DominantShare:
			return x*cfg.MildBlend + cfg.MildRightAnchor, true
		}
		return x, false
	}

	first, second := strong, mild
	if cfg.BalancePrecedence == BalanceMildFirst {
		first, second = mild, strong
	}
	if v, ok := first(); ok {
		return v
	}
	v, _ := second()
	return v
}

// SmoothPosition blends the current estimate with the previous one. X uses
// a stronger rate than Y. With no previous estimate current is returned.
func SmoothPosition(prev *Point, current Point, cfg PositionConfig) Point {
	if prev == nil {
		return current
	}
	xRate := math.Min(cfg.SmoothingFactor+cfg.XSmoothingBoost, cfg.XSmoothingCap)
	yRate := cfg.SmoothingFactor
	return Point{
		X: xRate*prev.X + (1-xRate)*current.X,
		Y: yRate*prev.Y + (1-yRate)*current.Y,
	}
}

// EstimatePositionSmoothed runs the enhanced estimator and smooths the
// result against prev.
func EstimatePositionSmoothed(loudness []float64, layout Layout, prev *Point, cfg PositionConfig) Point {
	return SmoothPosition(prev, EstimatePositionEnhanced(loudness, layout, cfg), cfg)
}

// PositionTracker threads the previous estimate between frames for the
// control loop. One tracker per table.
type PositionTracker struct {
	layout Layout
	cfg    PositionConfig
	prev   *Point
}

// NewPositionTracker validates the layout and returns a tracker.
func NewPositionTracker(layout Layout, cfg PositionConfig) (*PositionTracker, error) {
	if len(layout) == 0 {
		return nil, fmt.Errorf("%w: empty layout", ErrLayoutMismatch)
	}
	return &PositionTracker{
		layout: append(Layout(nil), layout...),
		cfg:    cfg,
	}, nil
}

// Update estimates the position for one loudness vector.
func (t *PositionTracker) Update(loudness []float64) (Point, error) {
	if err := t.layout.Check(len(loudness)); err != nil {
		return Point{}, err
	}

	var p Point
	switch t.cfg.Mode {
	case ModeBaseline:
		p = EstimatePosition(loudness, t.layout)
	case ModeEnhanced:
		p = EstimatePositionEnhanced(loudness, t.layout, t.cfg)
	default:
		p = EstimatePositionSmoothed(loudness, t.layout, t.prev, t.cfg)
	}

	t.prev = &p
	return p, nil
}

// Previous returns the last estimate, or nil before the first frame.
func (t *PositionTracker) Previous() *Point {
	if t.prev == nil {
		return nil
	}
	p := *t.prev
	return &p
}

// Reset forgets the previous estimate.
func (t *PositionTracker) Reset() {
	t.prev = nil
}

// Layout returns a copy of the microphone layout.
func (t *PositionTracker) Layout() Layout {
	return append(Layout(nil), t.layout...)
}
