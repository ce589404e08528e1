package audio

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWAVSourceFrames(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		tol      float64
	}{
		{"16 bit", 16, 1e-4},
		{"24 bit", 24, 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 1000 samples at 10 ms chunks: two full frames plus a padded tail.
			path := writeTestWAV(t, constantRows(1000, 0.5, -0.25), 48000, tt.bitDepth)

			src := NewWAVSource(path, 10*time.Millisecond)
			ctx := context.Background()
			if err := src.Open(ctx); err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer src.Close()

			meta := src.Metadata()
			if meta.SampleRate != 48000 || meta.Channels != 2 || meta.FrameSize != 480 || meta.BitDepth != tt.bitDepth {
				t.Fatalf("Metadata() = %+v", meta)
			}
			if meta.Name != "test.wav" {
				t.Errorf("Name = %q, want test.wav", meta.Name)
			}
			wantDur := time.Second * 1000 / 48000
			if d := meta.Duration - wantDur; d < -time.Microsecond || d > time.Microsecond {
				t.Errorf("Duration = %v, want %v", meta.Duration, wantDur)
			}

			var frames int
			for {
				frame, err := src.ReadFrame(ctx)
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatalf("ReadFrame() error = %v", err)
				}
				if frame.Channels() != 2 || frame.Samples() != 480 {
					t.Fatalf("frame %d shape = %dx%d", frames, frame.Channels(), frame.Samples())
				}

				valid := 480
				if frames == 2 {
					valid = 40
					if frame[0][valid] != 0 || frame[1][479] != 0 {
						t.Error("tail frame not zero-padded")
					}
				}
				for i := 0; i < valid; i++ {
					if !approxEqual(frame[0][i], 0.5, tt.tol) || !approxEqual(frame[1][i], -0.25, tt.tol) {
						t.Fatalf("frame %d sample %d = %v, %v", frames, i, frame[0][i], frame[1][i])
					}
				}
				frames++
			}
			if frames != 3 {
				t.Errorf("read %d frames, want 3", frames)
			}

			// Drained sources keep returning io.EOF.
			if _, err := src.ReadFrame(ctx); !errors.Is(err, io.EOF) {
				t.Errorf("ReadFrame() after drain = %v, want io.EOF", err)
			}
		})
	}
}

func TestWAVSourceErrors(t *testing.T) {
	ctx := context.Background()

	src := NewWAVSource(filepath.Join(t.TempDir(), "missing.wav"), 10*time.Millisecond)
	if err := src.Open(ctx); err == nil {
		t.Error("Open() of missing file succeeded")
	}
	if _, err := src.ReadFrame(ctx); !errors.Is(err, ErrNotOpen) {
		t.Errorf("ReadFrame() before Open = %v, want ErrNotOpen", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close() of unopened source = %v", err)
	}

	path := writeTestWAV(t, constantRows(100, 0.1), 8000, 16)
	tiny := NewWAVSource(path, time.Microsecond)
	if err := tiny.Open(ctx); err == nil {
		tiny.Close()
		t.Error("Open() accepted a chunk shorter than one sample")
	}

	float := NewWAVSource(writeWAVFormat(t, constantRows(100, 0.1), 8000, 32, 3), 10*time.Millisecond)
	if err := float.Open(ctx); err == nil {
		float.Close()
		t.Error("Open() accepted an IEEE float wav")
	} else if !strings.Contains(err.Error(), "unsupported wav format 3") {
		t.Errorf("float wav error = %v", err)
	}

	ok := NewWAVSource(path, 10*time.Millisecond)
	if err := ok.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer ok.Close()
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := ok.ReadFrame(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("ReadFrame() with cancelled context = %v", err)
	}
}
