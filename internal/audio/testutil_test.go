package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTestWAV encodes channel-major rows (full scale ±1) as a PCM WAV file
// in a temp dir and returns its path.
func writeTestWAV(t *testing.T, rows [][]float64, sampleRate, bitDepth int) string {
	t.Helper()
	return writeWAVFormat(t, rows, sampleRate, bitDepth, wavFormatPCM)
}

// writeWAVFormat is writeTestWAV with an explicit format tag in the header.
func writeWAVFormat(t *testing.T, rows [][]float64, sampleRate, bitDepth, format int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	channels := len(rows)
	samples := len(rows[0])
	full := math.Pow(2, float64(bitDepth)-1) - 1

	data := make([]int, samples*channels)
	for n := 0; n < samples; n++ {
		for ch := 0; ch < channels; ch++ {
			data[n*channels+ch] = int(math.Round(rows[ch][n] * full))
		}
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, format)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("finalise wav: %v", err)
	}
	return path
}

// constantRows returns channel rows of n samples, each holding its value.
func constantRows(n int, values ...float64) [][]float64 {
	rows := make([][]float64, len(values))
	for ch, v := range values {
		rows[ch] = make([]float64, n)
		for i := range rows[ch] {
			rows[ch][i] = v
		}
	}
	return rows
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
