package processor

import (
	"log/slog"

	dsptime "github.com/cwbudde/algo-dsp/stats/time"
)

// GoalFlag is the value emitted for a side that scored this frame.
const GoalFlag = 127

// Side identifies a goal.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// GoalEvent is the diagnostic record emitted when a side fires.
type GoalEvent struct {
	Side     Side    `json:"side"`
	Frame    int64   `json:"frame"`
	Current  float64 `json:"current"`
	Recent   float64 `json:"recent"`
	Baseline float64 `json:"baseline"`
}

// goalSide is the per-goal state: a bounded loudness history and a
// cooldown counter.
type goalSide struct {
	history  []float64
	cooldown int
}

// GoalDetector flags transient loudness surges on the two goal mics. It owns
// its state; use one detector per physical stream and do not share it
// between goroutines.
type GoalDetector struct {
	cfg    GoalConfig
	sides  [2]goalSide
	frames int64

	// OnGoal, if set, is called for every fired side.
	OnGoal func(GoalEvent)

	logger *slog.Logger
}

// NewGoalDetector returns a detector with empty histories.
func NewGoalDetector(cfg GoalConfig, logger *slog.Logger) *GoalDetector {
	sanitizeGoals(&cfg)
	if logger == nil {
		logger = slog.Default()
	}
	d := &GoalDetector{cfg: cfg, logger: logger}
	for i := range d.sides {
		d.sides[i].history = make([]float64, 0, cfg.HistoryLength)
	}
	return d
}

// Detect consumes one frame of goal loudness, left at index 0 and right at
// index 1. Missing entries read as silence. It returns 0 or GoalFlag per
// side; both sides may fire on the same frame.
func (d *GoalDetector) Detect(loudness []float64) [2]int {
	var in [2]float64
	for i := 0; i < len(in) && i < len(loudness); i++ {
		in[i] = loudness[i]
	}

	var out [2]int
	for i := range d.sides {
		if ev, fired := d.step(Side(i), in[i]); fired {
			out[i] = GoalFlag
			d.logger.Info("goal detected",
				"side", ev.Side.String(),
				"frame", ev.Frame,
				"current", ev.Current,
				"recent_avg", ev.Recent,
				"previous_avg", ev.Baseline,
			)
			if d.OnGoal != nil {
				d.OnGoal(ev)
			}
		}
	}
	d.frames++
	return out
}

func (d *GoalDetector) step(side Side, current float64) (GoalEvent, bool) {
	s := &d.sides[side]
	s.history = pushBounded(s.history, current, d.cfg.HistoryLength)

	// A fire suppresses exactly CooldownFrames subsequent calls.
	if s.cooldown > 0 {
		s.cooldown--
		return GoalEvent{}, false
	}

	recent, baseline, ok := spikeWindows(s.history, d.cfg.RecentWindow, d.cfg.BaselineWindow)
	if !ok || !isSpike(current, recent, baseline, d.cfg) {
		return GoalEvent{}, false
	}

	s.cooldown = d.cfg.CooldownFrames
	return GoalEvent{
		Side:     side,
		Frame:    d.frames,
		Current:  current,
		Recent:   recent,
		Baseline: baseline,
	}, true
}

// spikeWindows returns the mean of the last recentN samples and the mean of
// the up to baselineN samples before them. ok is false until the recent
// window is full and at least one baseline sample exists.
func spikeWindows(history []float64, recentN, baselineN int) (recent, baseline float64, ok bool) {
	if len(history) < recentN {
		return 0, 0, false
	}
	split := len(history) - recentN
	start := max(0, split-baselineN)
	if split-start == 0 {
		return dsptime.DC(history[split:]), 0, false
	}
	return dsptime.DC(history[split:]), dsptime.DC(history[start:split]), true
}

// isSpike applies the absolute floor, the relative jump over the trailing
// baseline, and the floor on the current sample.
func isSpike(current, recent, baseline float64, cfg GoalConfig) bool {
	return recent > cfg.GoalThreshold &&
		recent > baseline*cfg.VolumeIncreaseThreshold &&
		current > cfg.GoalThreshold
}

// Cooldown returns the remaining cooldown frames for a side.
func (d *GoalDetector) Cooldown(side Side) int {
	return d.sides[side].cooldown
}

// History returns a copy of a side's loudness history, oldest first.
func (d *GoalDetector) History(side Side) []float64 {
	return append([]float64(nil), d.sides[side].history...)
}

// Reset clears both histories and cooldowns.
func (d *GoalDetector) Reset() {
	for i := range d.sides {
		d.sides[i].history = d.sides[i].history[:0]
		d.sides[i].cooldown = 0
	}
	d.frames = 0
}
