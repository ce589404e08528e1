package processor

import (
	"testing"
)

// feed runs the same left/right pair through the detector n times and
// returns the call indices at which each side fired.
func feed(d *GoalDetector, n int, left, right float64) (leftFires, rightFires []int) {
	for i := 0; i < n; i++ {
		out := d.Detect([]float64{left, right})
		if out[0] == GoalFlag {
			leftFires = append(leftFires, i)
		}
		if out[1] == GoalFlag {
			rightFires = append(rightFires, i)
		}
	}
	return leftFires, rightFires
}

func TestGoalDetectorNeedsHistory(t *testing.T) {
	d := NewGoalDetector(DefaultGoalConfig(), nil)

	// Five loud samples fill the recent window but leave no baseline.
	for i := 0; i < 5; i++ {
		out := d.Detect([]float64{10, 10})
		if out != [2]int{0, 0} {
			t.Fatalf("call %d fired %v with only %d samples", i, out, i+1)
		}
	}
}

func TestIsSpike(t *testing.T) {
	cfg := DefaultGoalConfig()

	tests := []struct {
		name                      string
		current, recent, baseline float64
		want                      bool
	}{
		{"clear spike", 0.5, 0.5, 0.1, true},
		{"recent below floor", 0.5, 0.29, 0.01, false},
		{"current below floor", 0.2, 0.5, 0.1, false},
		{"not enough relative jump", 0.5, 0.5, 0.2, false},
		{"exactly three times baseline", 0.6, 0.6, 0.2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSpike(tt.current, tt.recent, tt.baseline, cfg); got != tt.want {
				t.Errorf("isSpike(%v, %v, %v) = %v, want %v", tt.current, tt.recent, tt.baseline, got, tt.want)
			}
		})
	}
}

func TestSpikeWindows(t *testing.T) {
	history := make([]float64, 0, 20)
	for i := 0; i < 10; i++ {
		history = append(history, 0.1)
	}
	for i := 0; i < 5; i++ {
		history = append(history, 0.5)
	}

	recent, baseline, ok := spikeWindows(history, 5, 10)
	if !ok {
		t.Fatal("spikeWindows() not ok with 15 samples")
	}
	assertClose(t, "recent", recent, 0.5, 1e-12)
	assertClose(t, "baseline", baseline, 0.1, 1e-12)

	// With fewer than recent+baseline samples the baseline is everything
	// before the recent window.
	recent, baseline, ok = spikeWindows([]float64{0.2, 0.4, 1, 1, 1, 1, 1}, 5, 10)
	if !ok {
		t.Fatal("spikeWindows() not ok with 7 samples")
	}
	assertClose(t, "recent", recent, 1, 1e-12)
	assertClose(t, "baseline", baseline, 0.3, 1e-12)

	// The baseline window only reaches back baselineN samples.
	long := append([]float64{100, 100, 100}, history...)
	_, baseline, _ = spikeWindows(long, 5, 10)
	assertClose(t, "bounded baseline", baseline, 0.1, 1e-12)

	if _, _, ok := spikeWindows([]float64{1, 1, 1, 1, 1}, 5, 10); ok {
		t.Error("spikeWindows() ok with an empty baseline")
	}
}

func TestGoalDetectorFires(t *testing.T) {
	d := NewGoalDetector(DefaultGoalConfig(), nil)

	var events []GoalEvent
	d.OnGoal = func(ev GoalEvent) { events = append(events, ev) }

	feed(d, 10, 0.1, 0.1)
	left, right := feed(d, 5, 0.5, 0.1)

	// recent = (0.1*2 + 0.5*3)/5 = 0.34 on the third loud call.
	if len(left) != 1 || left[0] != 2 {
		t.Errorf("left fired at %v, want [2]", left)
	}
	if len(right) != 0 {
		t.Errorf("right fired at %v, want none", right)
	}

	if len(events) != 1 {
		t.Fatalf("OnGoal called %d times, want 1", len(events))
	}
	ev := events[0]
	if ev.Side != SideLeft || ev.Frame != 12 {
		t.Errorf("event = %+v, want left side at frame 12", ev)
	}
	assertClose(t, "event recent", ev.Recent, 0.34, 1e-12)
	assertClose(t, "event baseline", ev.Baseline, 0.1, 1e-12)
}

func TestGoalDetectorCooldown(t *testing.T) {
	cfg := DefaultGoalConfig()
	cfg.VolumeIncreaseThreshold = 0.0001 // spike condition holds on a flat signal
	d := NewGoalDetector(cfg, nil)

	left, _ := feed(d, 70, 1.0, 0)

	want := []int{5, 5 + cfg.CooldownFrames + 1, 5 + 2*(cfg.CooldownFrames+1)}
	if len(left) != len(want) {
		t.Fatalf("fired at %v, want %v", left, want)
	}
	for i := range want {
		if left[i] != want[i] {
			t.Errorf("fire %d at call %d, want %d", i, left[i], want[i])
		}
	}
}

func TestGoalDetectorCooldownZero(t *testing.T) {
	cfg := DefaultGoalConfig()
	cfg.VolumeIncreaseThreshold = 0.0001
	cfg.CooldownFrames = 0
	d := NewGoalDetector(cfg, nil)

	left, _ := feed(d, 10, 1.0, 0)
	if len(left) != 5 {
		t.Errorf("fired at %v, want every call from 5", left)
	}
}

func TestGoalDetectorBothSides(t *testing.T) {
	d := NewGoalDetector(DefaultGoalConfig(), nil)

	feed(d, 10, 0.05, 0.05)
	left, right := feed(d, 5, 0.9, 0.9)
	if len(left) != 1 || len(right) != 1 || left[0] != right[0] {
		t.Errorf("left fired at %v, right at %v, want one simultaneous fire", left, right)
	}
}

func TestGoalDetectorMissingInput(t *testing.T) {
	d := NewGoalDetector(DefaultGoalConfig(), nil)

	for i := 0; i < 20; i++ {
		if out := d.Detect(nil); out != [2]int{} {
			t.Fatalf("Detect(nil) = %v, want no fires", out)
		}
	}
	if h := d.History(SideRight); len(h) != DefaultGoalConfig().HistoryLength {
		t.Errorf("history length = %d, want %d", len(h), DefaultGoalConfig().HistoryLength)
	}
}

func TestGoalDetectorReset(t *testing.T) {
	cfg := DefaultGoalConfig()
	cfg.VolumeIncreaseThreshold = 0.0001
	d := NewGoalDetector(cfg, nil)

	feed(d, 6, 1.0, 1.0)
	if d.Cooldown(SideLeft) != cfg.CooldownFrames {
		t.Fatalf("cooldown = %d, want %d after firing", d.Cooldown(SideLeft), cfg.CooldownFrames)
	}

	d.Reset()
	for _, side := range []Side{SideLeft, SideRight} {
		if d.Cooldown(side) != 0 {
			t.Errorf("%s cooldown = %d after Reset()", side, d.Cooldown(side))
		}
		if len(d.History(side)) != 0 {
			t.Errorf("%s history = %v after Reset()", side, d.History(side))
		}
	}

	// A fresh detector and a reset one behave the same.
	left, _ := feed(d, 6, 1.0, 1.0)
	if len(left) != 1 || left[0] != 5 {
		t.Errorf("after Reset() fired at %v, want [5]", left)
	}
}
