package main

import (
	"fmt"
	"io"
	"os"

	"github.com/linuxmatters/foosmic/internal/audio"
	"github.com/linuxmatters/foosmic/internal/cli"
	"github.com/linuxmatters/foosmic/internal/sender"
)

// DevicesCmd lists what the capture and MIDI backends can see
type DevicesCmd struct{}

func (c *DevicesCmd) Run(g *Globals) error {
	devices, devErr := audio.ListDevices()
	if devErr != nil {
		g.logger.Warn("audio devices unavailable", "error", devErr)
	}
	ports, midiErr := sender.ListMIDIOutputs()
	if midiErr != nil {
		g.logger.Warn("midi outputs unavailable", "error", midiErr)
	}
	printDevices(os.Stdout, devices, devErr, ports, midiErr)
	return nil
}

func printDevices(w io.Writer, devices []audio.Device, devErr error, ports []string, midiErr error) {
	cli.PrintSection(w, "Audio inputs")
	inputs := audio.InputDevices(devices)
	switch {
	case devErr != nil:
		fmt.Fprintf(w, "  unavailable: %v\n", devErr)
	case len(inputs) == 0:
		fmt.Fprintln(w, "  none found")
	}
	for _, d := range inputs {
		name := d.Name
		if d.DefaultInput {
			name += " (default)"
		}
		cli.PrintKeyValue(w, fmt.Sprintf("%3d", d.ID),
			fmt.Sprintf("%s [%s] %d ch, %.0f Hz", name, d.HostAPI, d.InputChannels, d.DefaultSampleRate))
	}

	fmt.Fprintln(w)
	cli.PrintSection(w, "MIDI outputs")
	switch {
	case midiErr != nil:
		fmt.Fprintf(w, "  unavailable: %v\n", midiErr)
	case len(ports) == 0:
		fmt.Fprintln(w, "  none found")
	}
	for i, p := range ports {
		cli.PrintKeyValue(w, fmt.Sprintf("%3d", i), p)
	}
}
