//go:build cgo

package sender

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type rtmidiOut struct {
	drv  *rtmididrv.Driver
	port drivers.Out
	send func(midi.Message) error
}

func (o *rtmidiOut) Send(msg midi.Message) error {
	return o.send(msg)
}

func (o *rtmidiOut) Close() error {
	err := o.port.Close()
	if cerr := o.drv.Close(); err == nil {
		err = cerr
	}
	return err
}

// openMIDIOut opens the first output whose name contains name. An empty
// name picks the only output, or fails when there are several.
func openMIDIOut(name string) (MIDIOut, string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open midi driver: %w", err)
	}
	outs, err := drv.Outs()
	if err != nil {
		drv.Close()
		return nil, "", fmt.Errorf("failed to list midi outputs: %w", err)
	}

	port, err := pickOut(outs, name)
	if err != nil {
		drv.Close()
		return nil, "", err
	}
	if err := port.Open(); err != nil {
		drv.Close()
		return nil, "", fmt.Errorf("failed to open midi output %q: %w", port.String(), err)
	}
	send, err := midi.SendTo(port)
	if err != nil {
		port.Close()
		drv.Close()
		return nil, "", fmt.Errorf("failed to attach to midi output %q: %w", port.String(), err)
	}
	return &rtmidiOut{drv: drv, port: port, send: send}, port.String(), nil
}

func pickOut(outs []drivers.Out, name string) (drivers.Out, error) {
	if name == "" {
		if len(outs) == 1 {
			return outs[0], nil
		}
		return nil, fmt.Errorf("%d midi outputs available, set midi.port", len(outs))
	}
	for _, o := range outs {
		if strings.Contains(strings.ToLower(o.String()), strings.ToLower(name)) {
			return o, nil
		}
	}
	return nil, fmt.Errorf("midi output %q not found", name)
}

// ListMIDIOutputs returns the names of every MIDI output port.
func ListMIDIOutputs() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("failed to open midi driver: %w", err)
	}
	defer drv.Close()

	outs, err := drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("failed to list midi outputs: %w", err)
	}
	names := make([]string, len(outs))
	for i, o := range outs {
		names[i] = o.String()
	}
	return names, nil
}
