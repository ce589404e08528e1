package processor

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func TestEstimatePositionZeroSum(t *testing.T) {
	layout := sixMicLayout()
	want := layout.Centroid()

	for _, loudness := range [][]float64{
		{0, 0, 0, 0, 0, 0},
		{0.5, -0.5, 0, 0, 0, 0},
	} {
		got := EstimatePosition(loudness, layout)
		assertClose(t, "x", got.X, want.X, 1e-12)
		assertClose(t, "y", got.Y, want.Y, 1e-12)
	}
}

func TestEstimatePositionWeighted(t *testing.T) {
	layout := sixMicLayout()

	got := EstimatePosition([]float64{1, 0, 0, 0, 0, 0}, layout)
	if got != (Point{}) {
		t.Errorf("single loud mic = %+v, want mic position (0,0)", got)
	}

	got = EstimatePosition([]float64{0, 0, 1, 0, 0, 1}, layout)
	assertClose(t, "x", got.X, 117, 1e-12)
	assertClose(t, "y", got.Y, 34, 1e-12)
}

func TestEstimatePositionEnhancedBounds(t *testing.T) {
	layout := sixMicLayout()
	cfg := DefaultPositionConfig()
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 2000; i++ {
		loudness := make([]float64, len(layout))
		for j := range loudness {
			loudness[j] = rng.Float64() * math.Pow(10, -3*rng.Float64())
		}
		p := EstimatePositionEnhanced(loudness, layout, cfg)
		if p.X < 0 || p.X > TableWidth || p.Y < 0 || p.Y > TableHeight {
			t.Fatalf("EstimatePositionEnhanced(%v) = %+v, outside the table", loudness, p)
		}
	}
}

func TestEstimatePositionEnhancedPure(t *testing.T) {
	layout := sixMicLayout()
	cfg := DefaultPositionConfig()
	loudness := []float64{0.3, 0.05, 0.02, 0.2, 0.04, 0.015}

	first := EstimatePositionEnhanced(loudness, layout, cfg)
	for i := 0; i < 10; i++ {
		if got := EstimatePositionEnhanced(loudness, layout, cfg); got != first {
			t.Fatalf("call %d = %+v, first call = %+v", i, got, first)
		}
	}
}

func TestEstimatePositionEnhancedSteps(t *testing.T) {
	layout := sixMicLayout()
	centroid := layout.Centroid()

	mildFirst := DefaultPositionConfig()
	strongFirst := DefaultPositionConfig()
	strongFirst.BalancePrecedence = BalanceStrongFirst

	// Left mic faint, both right mics loud: left share ~0.066.
	faintLeft := []float64{0.02, 0, 1, 0, 0, 1}
	wFaint := 2 + math.Sqrt(0.02)
	rawFaintX := 234 / wFaint

	// Left share ~0.148: only the mild rule applies.
	mildLeft := []float64{0.12, 0, 1, 0, 0, 1}
	rawMildX := 234 / (2 + math.Sqrt(0.12))

	tests := []struct {
		name     string
		loudness []float64
		cfg      PositionConfig
		wantX    float64
		wantY    float64
	}{
		{
			name:     "below noise gate falls back to centroid",
			loudness: []float64{0.5, 0.005, 0.001, 0, 0, 0},
			cfg:      mildFirst,
			wantX:    centroid.X,
			wantY:    centroid.Y,
		},
		{
			name:     "strong correction wins when opted in",
			loudness: faintLeft,
			cfg:      strongFirst,
			wantX:    rawFaintX*0.5 + 10,
			wantY:    68 / wFaint,
		},
		{
			name:     "mild correction wins by default",
			loudness: faintLeft,
			cfg:      mildFirst,
			wantX:    rawFaintX*0.7 + 20,
			wantY:    68 / wFaint,
		},
		{
			name:     "mild band is the same under both orders",
			loudness: mildLeft,
			cfg:      mildFirst,
			wantX:    rawMildX*0.7 + 20,
			wantY:    68 / (2 + math.Sqrt(0.12)),
		},
		{
			name:     "left edge floor",
			loudness: []float64{1, 0, 0, 1, 0, 0},
			cfg:      mildFirst,
			wantX:    10,
			wantY:    34,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimatePositionEnhanced(tt.loudness, layout, tt.cfg)
			assertClose(t, "x", got.X, tt.wantX, 1e-9)
			assertClose(t, "y", got.Y, tt.wantY, 1e-9)
		})
	}
}

func TestEstimatePositionEnhancedDefaultPrecedence(t *testing.T) {
	// Left share ~0.05 meets both conditions; the default keeps the mild
	// blend toward the right anchor.
	got := EstimatePositionEnhanced([]float64{0.011, 0, 1, 0, 0, 1}, sixMicLayout(), DefaultPositionConfig())
	assertClose(t, "x", got.X, 97.82, 0.01)
	assertClose(t, "y", got.Y, 32.31, 0.01)
}

func TestEstimatePositionEnhancedDistanceGuard(t *testing.T) {
	layout := sixMicLayout()
	cfg := DefaultPositionConfig()
	cfg.MaxDistance = 5

	got := EstimatePositionEnhanced([]float64{1, 0, 0, 1, 0, 0}, layout, cfg)
	if want := layout.Centroid(); got != want {
		t.Errorf("far estimate = %+v, want centroid %+v", got, want)
	}
}

func TestEstimatePositionEnhancedRightCap(t *testing.T) {
	layout := sixMicLayout()
	cfg := DefaultPositionConfig()

	// Right side faint: x*0.7+97 always lands above 97 and is capped.
	got := EstimatePositionEnhanced([]float64{1, 0, 0.12, 1, 0, 0}, layout, cfg)
	if got.X > cfg.EdgeHighCap {
		t.Errorf("x = %v, want at most %v", got.X, cfg.EdgeHighCap)
	}
}

func TestSmoothPosition(t *testing.T) {
	cfg := DefaultPositionConfig()
	cfg.SmoothingFactor = 0.7

	got := SmoothPosition(&Point{}, Point{X: 10, Y: 10}, cfg)
	assertClose(t, "x", got.X, 2.0, 1e-9)
	assertClose(t, "y", got.Y, 3.0, 1e-9)

	current := Point{X: 40, Y: 20}
	if got := SmoothPosition(nil, current, cfg); got != current {
		t.Errorf("SmoothPosition(nil) = %+v, want %+v", got, current)
	}

	// X rate is capped.
	cfg.SmoothingFactor = 0.95
	got = SmoothPosition(&Point{}, Point{X: 10, Y: 10}, cfg)
	assertClose(t, "capped x", got.X, 1.0, 1e-9)
	assertClose(t, "y", got.Y, 0.5, 1e-9)
}

func TestPositionTracker(t *testing.T) {
	layout := sixMicLayout()

	t.Run("threads previous estimate", func(t *testing.T) {
		tr, err := NewPositionTracker(layout, DefaultPositionConfig())
		if err != nil {
			t.Fatal(err)
		}
		if tr.Previous() != nil {
			t.Fatal("new tracker has a previous estimate")
		}

		loud := []float64{1, 0, 0, 1, 0, 0}
		first, err := tr.Update(loud)
		if err != nil {
			t.Fatal(err)
		}
		if want := EstimatePositionEnhanced(loud, layout, DefaultPositionConfig()); first != want {
			t.Errorf("first Update() = %+v, want unsmoothed %+v", first, want)
		}

		second, err := tr.Update([]float64{0, 0, 1, 0, 0, 1})
		if err != nil {
			t.Fatal(err)
		}
		if second.X >= 107 || second.X <= first.X {
			t.Errorf("second Update() x = %v, want smoothed between %v and 107", second.X, first.X)
		}

		tr.Reset()
		if tr.Previous() != nil {
			t.Error("Reset() kept previous estimate")
		}
	})

	t.Run("baseline mode", func(t *testing.T) {
		cfg := DefaultPositionConfig()
		cfg.Mode = ModeBaseline
		tr, err := NewPositionTracker(layout, cfg)
		if err != nil {
			t.Fatal(err)
		}
		got, _ := tr.Update([]float64{1, 0, 0, 0, 0, 0})
		if got != (Point{}) {
			t.Errorf("baseline Update() = %+v, want (0,0)", got)
		}
	})

	t.Run("layout mismatch", func(t *testing.T) {
		tr, _ := NewPositionTracker(layout, DefaultPositionConfig())
		if _, err := tr.Update([]float64{1, 2, 3}); !errors.Is(err, ErrLayoutMismatch) {
			t.Errorf("Update() error = %v, want ErrLayoutMismatch", err)
		}
		if tr.Previous() != nil {
			t.Error("failed Update() stored a previous estimate")
		}
	})

	t.Run("empty layout", func(t *testing.T) {
		if _, err := NewPositionTracker(nil, DefaultPositionConfig()); !errors.Is(err, ErrLayoutMismatch) {
			t.Errorf("NewPositionTracker(nil) error = %v, want ErrLayoutMismatch", err)
		}
	})
}
