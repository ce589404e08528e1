package logging

import (
	"fmt"
	"sort"
	"strings"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// SetupTip is one piece of actionable rig advice derived from a session.
type SetupTip struct {
	Priority int    // Higher = more important (1-10)
	Message  string // Human-readable advice (1-2 sentences)
	RuleID   string // Identifier for testing/logging (e.g., "dead_channel")
}

// MaxSetupTips is the maximum number of tips to return.
const MaxSetupTips = 5

// Setup rule thresholds
const (
	clippingRMS          = 0.7  // frame RMS of a full-scale sine is 0.707
	quietChannelShare    = 0.9  // share of frames below the noise gate
	activePeerShare      = 0.5  // peers below this silent share are "playing"
	goalsPerMinuteMax    = 4.0  // real matches rarely exceed this
	noGoalsAfter         = 10.0 // minutes of play without a goal worth a tip
	imbalanceShare       = 0.25 // mean x this far from centre, as a share of width
	dropRateMax          = 0.01
	minFramesForSetupTip = 50
)

// SetupInput is everything the setup rules look at. Ambient is optional.
type SetupInput struct {
	Stats     *processor.SessionStats
	Config    processor.Config
	Layout    processor.Layout
	MicNames  []string
	Ambient   *processor.AmbientMeasurements
	FrameRate float64 // frames per second, for per-minute rates
}

func (in SetupInput) micName(i int) string {
	if i < len(in.MicNames) && in.MicNames[i] != "" {
		return in.MicNames[i]
	}
	return fmt.Sprintf("mic %d", i+1)
}

func (in SetupInput) minutes() float64 {
	if in.FrameRate <= 0 {
		return 0
	}
	return float64(in.Stats.Frames) / in.FrameRate / 60
}

// GenerateSetupTips analyses a session and returns prioritised rig
// improvement suggestions.
func GenerateSetupTips(in SetupInput) []SetupTip {
	if in.Stats == nil || in.Stats.Frames < minFramesForSetupTip {
		return nil
	}

	var tips []SetupTip
	firedRules := make(map[string]bool)

	rules := []func(SetupInput) *SetupTip{
		tipDeadChannel,
		tipQuietChannel,
		tipClipping,
		tipGoalMicHot,
		tipGoalsTooFrequent,
		tipNoGoals,
		tipNoisyRoom,
		tipMainsHum,
		tipLayoutImbalance,
		tipDroppedFrames,
		tipSendErrors,
	}

	for _, rule := range rules {
		if tip := rule(in); tip != nil {
			tips = append(tips, *tip)
			firedRules[tip.RuleID] = true
		}
	}

	tips = applyExclusions(tips, firedRules)

	sort.SliceStable(tips, func(i, j int) bool {
		return tips[i].Priority > tips[j].Priority
	})

	if len(tips) > MaxSetupTips {
		tips = tips[:MaxSetupTips]
	}
	return tips
}

// applyExclusions removes tips that are redundant when a more specific tip
// has already fired. A dead mic explains both a quiet channel and a
// lopsided position estimate.
func applyExclusions(tips []SetupTip, fired map[string]bool) []SetupTip {
	var result []SetupTip
	for _, tip := range tips {
		switch tip.RuleID {
		case "quiet_channel":
			if fired["dead_channel"] {
				continue
			}
		case "layout_imbalance":
			if fired["dead_channel"] || fired["quiet_channel"] {
				continue
			}
		case "no_goals":
			if fired["goal_mic_hot"] {
				continue
			}
		}
		result = append(result, tip)
	}
	return result
}

// wrapText wraps text at word boundaries to fit within maxWidth columns.
// Continuation lines are prefixed with indent.
func wrapText(text string, maxWidth int, indent string) string {
	words := strings.Fields(text)
	var lines []string
	currentLine := ""

	for _, word := range words {
		if currentLine == "" {
			currentLine = word
		} else if len(currentLine)+1+len(word) <= maxWidth {
			currentLine += " " + word
		} else {
			lines = append(lines, currentLine)
			currentLine = word
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return strings.Join(lines, "\n"+indent)
}

// tipDeadChannel fires when a position channel never produced signal.
func tipDeadChannel(in SetupInput) *SetupTip {
	var dead []string
	for i, c := range in.Stats.Position {
		if c.Peak <= 0 {
			dead = append(dead, in.micName(i))
		}
	}
	if len(dead) == 0 {
		return nil
	}
	return &SetupTip{
		Priority: 10,
		RuleID:   "dead_channel",
		Message:  fmt.Sprintf("No signal at all from %s - check the cable, phantom power and the interface channel routing.", strings.Join(dead, ", ")),
	}
}

// tipQuietChannel fires when one position channel sits under the noise gate
// for most of the session while the others are picking up play.
func tipQuietChannel(in SetupInput) *SetupTip {
	frames := float64(in.Stats.Frames)
	var quiet []string
	active := 0
	for i, c := range in.Stats.Position {
		share := float64(c.Silent) / frames
		if share > quietChannelShare {
			quiet = append(quiet, in.micName(i))
		} else if share < activePeerShare {
			active++
		}
	}
	if len(quiet) == 0 || active == 0 {
		return nil
	}
	return &SetupTip{
		Priority: 8,
		RuleID:   "quiet_channel",
		Message:  fmt.Sprintf("%s stays below the noise gate while the other mics hear play - raise its input gain or move it closer to the playfield.", strings.Join(quiet, ", ")),
	}
}

// tipClipping fires when any channel's frame RMS reaches full-scale sine
// level, which means the peaks are clipping.
func tipClipping(in SetupInput) *SetupTip {
	var hot []string
	for i, c := range in.Stats.Position {
		if c.Peak >= clippingRMS {
			hot = append(hot, in.micName(i))
		}
	}
	for i, c := range in.Stats.Goal {
		if c.Peak >= clippingRMS {
			hot = append(hot, goalName(i))
		}
	}
	if len(hot) == 0 {
		return nil
	}
	return &SetupTip{
		Priority: 9,
		RuleID:   "clipping",
		Message:  fmt.Sprintf("%s clipped during play - turn the input gain down by 6 dB so hard shots stay measurable.", strings.Join(hot, ", ")),
	}
}

// tipGoalMicHot fires when a goal mic's average level sits above the goal
// threshold, so the spike test can never see a rise.
func tipGoalMicHot(in SetupInput) *SetupTip {
	for i, c := range in.Stats.Goal {
		if c.Mean > in.Config.Goals.GoalThreshold {
			return &SetupTip{
				Priority: 9,
				RuleID:   "goal_mic_hot",
				Message: fmt.Sprintf("The %s mic averages %s, above the goal threshold of %s - lower its gain or run calibrate so goals can register.",
					goalName(i), formatMetric(c.Mean, 3), formatMetric(in.Config.Goals.GoalThreshold, 3)),
			}
		}
	}
	return nil
}

// tipGoalsTooFrequent fires when the detector fires far more often than a
// real match allows.
func tipGoalsTooFrequent(in SetupInput) *SetupTip {
	minutes := in.minutes()
	if minutes <= 0 {
		return nil
	}
	goals := float64(in.Stats.GoalCount[0] + in.Stats.GoalCount[1])
	rate := goals / minutes
	if rate <= goalsPerMinuteMax {
		return nil
	}
	return &SetupTip{
		Priority: 7,
		RuleID:   "goals_too_frequent",
		Message:  fmt.Sprintf("Goals fired %.1f times a minute - raise goal_threshold or volume_increase_threshold, or move the goal mics away from the rods.", rate),
	}
}

// tipNoGoals fires after a long session with goal mics and no goals.
func tipNoGoals(in SetupInput) *SetupTip {
	if len(in.Stats.Goal) == 0 || in.minutes() < noGoalsAfter {
		return nil
	}
	if in.Stats.GoalCount[0]+in.Stats.GoalCount[1] > 0 {
		return nil
	}
	return &SetupTip{
		Priority: 4,
		RuleID:   "no_goals",
		Message:  "No goals were detected in a long session - check the goal mics are inside the goal mouths and lower goal_threshold if the balls are soft.",
	}
}

// tipNoisyRoom fires when room noise sits above the localiser's noise gate.
// With an ambient measurement the floors are compared directly; otherwise
// a gate no channel ever drops below is the tell.
func tipNoisyRoom(in SetupInput) *SetupTip {
	gate := in.Config.Position.NoiseThreshold
	if in.Ambient != nil {
		loudest := 0.0
		for _, c := range in.Ambient.Channels {
			loudest = max(loudest, c.NoiseFloor)
		}
		if loudest <= gate {
			return nil
		}
		return &SetupTip{
			Priority: 7,
			RuleID:   "noisy_room",
			Message:  fmt.Sprintf("Room noise (%s dBFS) is above the noise gate (%s dBFS) - run calibrate or raise noise_threshold.", formatMetricLevel(loudest, 1), formatMetricLevel(gate, 1)),
		}
	}

	if len(in.Stats.Position) == 0 {
		return nil
	}
	for _, c := range in.Stats.Position {
		if c.Min <= gate {
			return nil
		}
	}
	return &SetupTip{
		Priority: 6,
		RuleID:   "noisy_room",
		Message:  "No mic ever dropped below the noise gate, even between points - the room is loud or the gate is too low; run calibrate.",
	}
}

// tipMainsHum fires when calibration heard mains hum and the notch filter
// is off.
func tipMainsHum(in SetupInput) *SetupTip {
	if in.Ambient == nil || in.Ambient.HumFrequency == 0 || in.Config.Hum.Enabled() {
		return nil
	}
	return &SetupTip{
		Priority: 6,
		RuleID:   "mains_hum",
		Message:  fmt.Sprintf("There's %.0f Hz mains hum on the mics - set hum.frequency to \"auto\" and check for power supplies near the cable runs.", in.Ambient.HumFrequency),
	}
}

// tipLayoutImbalance fires when the mean estimate leans far to one end of
// the table, which usually means a gain mismatch between the sides.
func tipLayoutImbalance(in SetupInput) *SetupTip {
	if len(in.Layout) == 0 {
		return nil
	}
	centre := in.Layout.Centroid()
	offset := in.Stats.MeanPosition.X - centre.X
	if abs(offset) <= imbalanceShare*processor.TableWidth {
		return nil
	}
	side, other := "left", "right"
	if offset > 0 {
		side, other = "right", "left"
	}
	return &SetupTip{
		Priority: 5,
		RuleID:   "layout_imbalance",
		Message:  fmt.Sprintf("The ball position leans %s on average (%.0f cm from centre) - check the gains on the %s side mics match the %s side.", side, abs(offset), other, side),
	}
}

// tipDroppedFrames fires when frames were rejected by the pipeline.
func tipDroppedFrames(in SetupInput) *SetupTip {
	rate := in.Stats.DropRate()
	if rate <= dropRateMax {
		return nil
	}
	return &SetupTip{
		Priority: 8,
		RuleID:   "dropped_frames",
		Message:  fmt.Sprintf("%s of frames were dropped - check channels and channels_map match the interface.", formatPercent(rate)),
	}
}

// tipSendErrors fires when an output failed during the session.
func tipSendErrors(in SetupInput) *SetupTip {
	if in.Stats.SendErrors == 0 {
		return nil
	}
	return &SetupTip{
		Priority: 6,
		RuleID:   "send_errors",
		Message:  fmt.Sprintf("%d status updates failed to send - make sure the OSC and MIDI receivers are running.", in.Stats.SendErrors),
	}
}

func goalName(i int) string {
	if i == 0 {
		return "left goal"
	}
	return "right goal"
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
