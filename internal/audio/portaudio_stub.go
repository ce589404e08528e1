//go:build !cgo

package audio

import (
	"errors"
	"log/slog"
)

var errNoPortAudio = errors.New("live capture needs a cgo build with PortAudio")

func newPortAudioSource(cfg Config, logger *slog.Logger) (Source, error) {
	return nil, errNoPortAudio
}

// ListDevices is unavailable without cgo.
func ListDevices() ([]Device, error) {
	return nil, errNoPortAudio
}
