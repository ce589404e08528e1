package processor

import "math"

// DisplayRange is the output span of a display-intensity curve.
type DisplayRange struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Output ranges the downstream instruments are tuned to.
var (
	Range100       = DisplayRange{Min: 0, Max: 100}
	RangeBipolar10 = DisplayRange{Min: -10, Max: 10}
	RangeMIDI      = DisplayRange{Min: 0, Max: 127}
)

func (r DisplayRange) valid() bool {
	return finite(r.Min) && finite(r.Max) && r.Max > r.Min
}

// Curve breakpoints on the intensity axis. These are literal; the patches
// on the receiving end were tuned by ear against them.
const (
	breakFloor = 0.001
	breakLow   = 0.01
	breakMid   = 0.05
	breakHigh  = 0.1
	breakTop   = 1.0

	// Segment widths and gains kept as the literals the curve was tuned
	// with; deriving them from the breakpoints changes the last bit.
	floorGain    = 1000.0
	lowGain      = 100.0
	midLowWidth  = 0.04
	midHighWidth = 0.05
	topWidth     = 0.9
)

// Canonical curve values (0-100 scale) at the breakpoints and the shape
// parameters of each segment.
const (
	floorExponent = 0.25
	floorScale    = 25.0
	lowExponent   = 0.35
	lowScale      = 45.0
	midLowStart   = 45.0
	midHighStart  = 65.0
	highStart     = 85.0
	segmentSpan   = 20.0
	topSpan       = 15.0
	topExponent   = 0.33
	canonicalMax  = 100.0
)

// canonicalIntensity maps intensity onto the 0-100 display scale.
func canonicalIntensity(intensity float64) float64 {
	switch {
	case !(intensity > 0):
		return 0
	case intensity < breakFloor:
		return math.Min(canonicalMax, math.Pow(intensity*floorGain, floorExponent)*floorScale)
	case intensity < breakLow:
		return math.Min(canonicalMax, math.Pow(intensity*lowGain, lowExponent)*lowScale)
	case intensity < breakMid:
		n := (intensity - breakLow) / midLowWidth
		return math.Min(canonicalMax, midLowStart+n*segmentSpan)
	case intensity < breakHigh:
		n := (intensity - breakMid) / midHighWidth
		return math.Min(canonicalMax, midHighStart+n*segmentSpan)
	default:
		n := (intensity - breakHigh) / topWidth
		return math.Min(canonicalMax, highStart+math.Pow(n, topExponent)*topSpan)
	}
}

// DisplayIntensity maps a composite intensity onto r using the hand-tuned
// piecewise curve. The shape is the same for every range.
func DisplayIntensity(intensity float64, r DisplayRange) float64 {
	return r.Min + (r.Max-r.Min)*canonicalIntensity(intensity)/canonicalMax
}
