package audio

// Device is one audio device as reported by the capture backend.
type Device struct {
	ID                int
	Name              string
	HostAPI           string
	InputChannels     int
	OutputChannels    int
	DefaultSampleRate float64
	DefaultInput      bool
}

// InputDevices filters devices down to those that can capture.
func InputDevices(devices []Device) []Device {
	var out []Device
	for _, d := range devices {
		if d.InputChannels > 0 {
			out = append(out, d)
		}
	}
	return out
}
