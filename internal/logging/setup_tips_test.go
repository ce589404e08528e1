package logging

import (
	"strings"
	"testing"

	"github.com/linuxmatters/foosmic/internal/processor"
)

func TestWrapText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth int
		indent   string
		want     string
	}{
		{
			name:     "short_text_no_wrap",
			text:     "Hello world",
			maxWidth: 20,
			indent:   "  ",
			want:     "Hello world",
		},
		{
			name:     "long_text_wraps",
			text:     "Raise the input gain on the corner microphones",
			maxWidth: 30,
			indent:   "  ",
			want:     "Raise the input gain on the\n  corner microphones",
		},
		{
			name:     "single_long_word",
			text:     "supercalifragilisticexpialidocious",
			maxWidth: 10,
			indent:   "  ",
			want:     "supercalifragilisticexpialidocious",
		},
		{
			name:     "empty_input",
			text:     "",
			maxWidth: 20,
			indent:   "  ",
			want:     "",
		},
		{
			name:     "exact_fit",
			text:     "exactly twenty chars",
			maxWidth: 20,
			indent:   "  ",
			want:     "exactly twenty chars",
		},
		{
			name:     "multiple_wraps",
			text:     "one two three four five six seven eight nine ten",
			maxWidth: 15,
			indent:   "    ",
			want:     "one two three\n    four five six\n    seven eight\n    nine ten",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.text, tt.maxWidth, tt.indent)
			if got != tt.want {
				t.Errorf("wrapText() = %q, want %q", got, tt.want)
			}
		})
	}
}

var testLayout = processor.Layout{
	{X: 0, Y: 0}, {X: 58.5, Y: 0}, {X: 117, Y: 0},
	{X: 0, Y: 68}, {X: 58.5, Y: 68}, {X: 117, Y: 68},
}

// healthySession is a 100 second session at 10 frames/s on which no rule
// fires.
func healthySession() SetupInput {
	stats := &processor.SessionStats{
		Frames:       1000,
		GoalCount:    [2]int{1, 1},
		MeanPosition: testLayout.Centroid(),
	}
	for range testLayout {
		stats.Position = append(stats.Position, processor.ChannelStats{Mean: 0.1, Peak: 0.3, Min: 0, Silent: 100})
	}
	stats.Goal = []processor.ChannelStats{
		{Mean: 0.05, Peak: 0.5, Min: 0},
		{Mean: 0.05, Peak: 0.5, Min: 0},
	}
	return SetupInput{
		Stats:     stats,
		Config:    *processor.DefaultConfig(),
		Layout:    testLayout,
		MicNames:  []string{"left-near", "centre-near", "right-near", "left-far", "centre-far", "right-far"},
		FrameRate: 10,
	}
}

// hasRuleID checks if any tip has the given RuleID.
func hasRuleID(tips []SetupTip, ruleID string) bool {
	for _, tip := range tips {
		if tip.RuleID == ruleID {
			return true
		}
	}
	return false
}

// ruleIDs extracts RuleIDs from tips for error messages.
func ruleIDs(tips []SetupTip) []string {
	ids := make([]string, len(tips))
	for i, tip := range tips {
		ids[i] = tip.RuleID
	}
	return ids
}

func TestSetupRules(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*SetupInput)
		rule     func(SetupInput) *SetupTip
		wantRule string // empty when the rule must not fire
		wantText string // substring of the message
	}{
		{
			name:     "dead channel named",
			modify:   func(in *SetupInput) { in.Stats.Position[2] = processor.ChannelStats{} },
			rule:     tipDeadChannel,
			wantRule: "dead_channel",
			wantText: "right-near",
		},
		{
			name:   "all channels alive",
			modify: func(in *SetupInput) {},
			rule:   tipDeadChannel,
		},
		{
			name:     "quiet channel among active peers",
			modify:   func(in *SetupInput) { in.Stats.Position[0].Silent = 950 },
			rule:     tipQuietChannel,
			wantRule: "quiet_channel",
			wantText: "left-near",
		},
		{
			name: "every channel quiet is not a single-mic problem",
			modify: func(in *SetupInput) {
				for i := range in.Stats.Position {
					in.Stats.Position[i].Silent = 950
				}
			},
			rule: tipQuietChannel,
		},
		{
			name:     "clipping goal mic",
			modify:   func(in *SetupInput) { in.Stats.Goal[1].Peak = 0.75 },
			rule:     tipClipping,
			wantRule: "clipping",
			wantText: "right goal",
		},
		{
			name:     "clipping mic falls back to a numbered name",
			modify:   func(in *SetupInput) { in.MicNames = nil; in.Stats.Position[3].Peak = 0.9 },
			rule:     tipClipping,
			wantRule: "clipping",
			wantText: "mic 4",
		},
		{
			name:     "goal mic above threshold",
			modify:   func(in *SetupInput) { in.Stats.Goal[0].Mean = 0.4 },
			rule:     tipGoalMicHot,
			wantRule: "goal_mic_hot",
			wantText: "left goal",
		},
		{
			name:     "goals every few seconds",
			modify:   func(in *SetupInput) { in.Stats.GoalCount = [2]int{6, 5} },
			rule:     tipGoalsTooFrequent,
			wantRule: "goals_too_frequent",
			wantText: "6.6 times a minute",
		},
		{
			name:   "normal goal rate",
			modify: func(in *SetupInput) { in.Stats.GoalCount = [2]int{3, 3} },
			rule:   tipGoalsTooFrequent,
		},
		{
			name: "long goalless session",
			modify: func(in *SetupInput) {
				in.Stats.Frames = 6000
				in.Stats.GoalCount = [2]int{}
			},
			rule:     tipNoGoals,
			wantRule: "no_goals",
		},
		{
			name: "long session without goal mics",
			modify: func(in *SetupInput) {
				in.Stats.Frames = 6000
				in.Stats.GoalCount = [2]int{}
				in.Stats.Goal = nil
			},
			rule: tipNoGoals,
		},
		{
			name: "no channel reaches the gate",
			modify: func(in *SetupInput) {
				for i := range in.Stats.Position {
					in.Stats.Position[i].Min = 0.02
				}
			},
			rule:     tipNoisyRoom,
			wantRule: "noisy_room",
		},
		{
			name: "ambient floor above the gate",
			modify: func(in *SetupInput) {
				in.Ambient = &processor.AmbientMeasurements{Channels: []processor.ChannelMeasurement{
					{Channel: 0, NoiseFloor: 0.005},
					{Channel: 1, NoiseFloor: 0.1},
				}}
			},
			rule:     tipNoisyRoom,
			wantRule: "noisy_room",
			wantText: "-20.0 dBFS",
		},
		{
			name: "quiet ambient room",
			modify: func(in *SetupInput) {
				in.Ambient = &processor.AmbientMeasurements{Channels: []processor.ChannelMeasurement{{NoiseFloor: 0.001}}}
			},
			rule: tipNoisyRoom,
		},
		{
			name:     "hum with the filter off",
			modify:   func(in *SetupInput) { in.Ambient = &processor.AmbientMeasurements{HumFrequency: 50} },
			rule:     tipMainsHum,
			wantRule: "mains_hum",
			wantText: "50 Hz",
		},
		{
			name: "hum with the filter on",
			modify: func(in *SetupInput) {
				in.Ambient = &processor.AmbientMeasurements{HumFrequency: 50}
				in.Config.Hum.Frequency = "50"
				in.Config.Hum.ResolvedFrequency = 50
			},
			rule: tipMainsHum,
		},
		{
			name:     "position leans right",
			modify:   func(in *SetupInput) { in.Stats.MeanPosition.X = 100 },
			rule:     tipLayoutImbalance,
			wantRule: "layout_imbalance",
			wantText: "leans right",
		},
		{
			name:   "small lean tolerated",
			modify: func(in *SetupInput) { in.Stats.MeanPosition.X = 70 },
			rule:   tipLayoutImbalance,
		},
		{
			name:     "dropped frames",
			modify:   func(in *SetupInput) { in.Stats.Dropped = 50 },
			rule:     tipDroppedFrames,
			wantRule: "dropped_frames",
			wantText: "4.8%",
		},
		{
			name:     "send errors",
			modify:   func(in *SetupInput) { in.Stats.SendErrors = 12 },
			rule:     tipSendErrors,
			wantRule: "send_errors",
			wantText: "12 status updates",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := healthySession()
			tt.modify(&in)
			tip := tt.rule(in)

			if tt.wantRule == "" {
				if tip != nil {
					t.Fatalf("unexpected tip %q: %s", tip.RuleID, tip.Message)
				}
				return
			}
			if tip == nil {
				t.Fatalf("expected %q tip, got nil", tt.wantRule)
			}
			if tip.RuleID != tt.wantRule {
				t.Errorf("RuleID = %q, want %q", tip.RuleID, tt.wantRule)
			}
			if tt.wantText != "" && !strings.Contains(tip.Message, tt.wantText) {
				t.Errorf("message %q does not contain %q", tip.Message, tt.wantText)
			}
		})
	}
}

func TestGenerateSetupTips(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*SetupInput)
		wantRules []string
		notRules  []string
		wantFirst string
	}{
		{
			name:   "healthy session gives no tips",
			modify: func(in *SetupInput) {},
		},
		{
			name: "dead channel suppresses quiet and imbalance",
			modify: func(in *SetupInput) {
				in.Stats.Position[0] = processor.ChannelStats{Silent: 1000}
				in.Stats.Position[3].Silent = 950
				in.Stats.MeanPosition.X = 100
			},
			wantRules: []string{"dead_channel"},
			notRules:  []string{"quiet_channel", "layout_imbalance"},
			wantFirst: "dead_channel",
		},
		{
			name: "quiet channel suppresses imbalance",
			modify: func(in *SetupInput) {
				in.Stats.Position[0].Silent = 950
				in.Stats.MeanPosition.X = 100
			},
			wantRules: []string{"quiet_channel"},
			notRules:  []string{"layout_imbalance"},
		},
		{
			name: "hot goal mic suppresses no goals",
			modify: func(in *SetupInput) {
				in.Stats.Frames = 6000
				in.Stats.GoalCount = [2]int{}
				in.Stats.Goal[0].Mean = 0.5
			},
			wantRules: []string{"goal_mic_hot"},
			notRules:  []string{"no_goals"},
		},
		{
			name: "priority order",
			modify: func(in *SetupInput) {
				in.Stats.SendErrors = 3
				in.Stats.Dropped = 100
				in.Stats.Position[1].Peak = 0.8
			},
			wantRules: []string{"clipping", "dropped_frames", "send_errors"},
			wantFirst: "clipping",
		},
		{
			name: "capped at MaxSetupTips",
			modify: func(in *SetupInput) {
				in.Stats.SendErrors = 3
				in.Stats.Dropped = 100
				in.Stats.Position[1].Peak = 0.8
				in.Stats.Goal[0].Mean = 0.5
				in.Stats.GoalCount = [2]int{20, 20}
				in.Ambient = &processor.AmbientMeasurements{
					HumFrequency: 60,
					Channels:     []processor.ChannelMeasurement{{NoiseFloor: 0.2}},
				}
			},
			wantFirst: "clipping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := healthySession()
			tt.modify(&in)
			tips := GenerateSetupTips(in)

			if len(tips) > MaxSetupTips {
				t.Errorf("got %d tips, want at most %d", len(tips), MaxSetupTips)
			}
			if len(tt.wantRules) == 0 && tt.wantFirst == "" && len(tips) != 0 {
				t.Errorf("expected no tips, got %v", ruleIDs(tips))
			}
			for _, id := range tt.wantRules {
				if !hasRuleID(tips, id) {
					t.Errorf("missing %q in %v", id, ruleIDs(tips))
				}
			}
			for _, id := range tt.notRules {
				if hasRuleID(tips, id) {
					t.Errorf("%q should be excluded, got %v", id, ruleIDs(tips))
				}
			}
			if tt.wantFirst != "" && (len(tips) == 0 || tips[0].RuleID != tt.wantFirst) {
				t.Errorf("first tip = %v, want %q", ruleIDs(tips), tt.wantFirst)
			}
			for i := 1; i < len(tips); i++ {
				if tips[i].Priority > tips[i-1].Priority {
					t.Errorf("tips not sorted by priority: %v", ruleIDs(tips))
				}
			}
		})
	}
}

func TestGenerateSetupTipsShortSession(t *testing.T) {
	in := healthySession()
	in.Stats.Frames = 10
	in.Stats.Position[0] = processor.ChannelStats{}
	if tips := GenerateSetupTips(in); tips != nil {
		t.Errorf("short session produced tips: %v", ruleIDs(tips))
	}
	if tips := GenerateSetupTips(SetupInput{}); tips != nil {
		t.Errorf("nil stats produced tips: %v", ruleIDs(tips))
	}
}
