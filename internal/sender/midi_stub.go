//go:build !cgo

package sender

import "errors"

var errNoRtMidi = errors.New("midi output needs a cgo build with RtMidi")

func openMIDIOut(name string) (MIDIOut, string, error) {
	return nil, "", errNoRtMidi
}

// ListMIDIOutputs is unavailable without cgo.
func ListMIDIOutputs() ([]string, error) {
	return nil, errNoRtMidi
}
