// Package config loads the mic_config.yaml that describes the table rig:
// capture device, microphone layout, channel routing, outputs and
// processing parameters.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linuxmatters/foosmic/internal/audio"
	"github.com/linuxmatters/foosmic/internal/processor"
	"github.com/linuxmatters/foosmic/internal/sender"
)

// DefaultPath is read when --config is not given.
const DefaultPath = "mic_config.yaml"

// Mic is one localisation microphone (or stereo pair after merge).
type Mic struct {
	Name     string     `yaml:"name"`
	Position [2]float64 `yaml:"position"` // x, y in cm
}

// ChannelsMap routes capture channels to position and goal analysis.
type ChannelsMap struct {
	Position    []int `yaml:"position"`
	Goals       []int `yaml:"goals"`
	MergeStereo bool  `yaml:"merge_stereo"`
}

// MIDI enables the control-change output.
type MIDI struct {
	Enabled           bool `yaml:"enabled"`
	sender.MIDIConfig `yaml:",inline"`
}

// Web enables the HTTP/websocket status server.
type Web struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Processing holds the tunables of the three analysis stages.
type Processing struct {
	Position processor.PositionConfig `yaml:"position"`
	Goals    processor.GoalConfig     `yaml:"goals"`
	Tempo    processor.TempoConfig    `yaml:"tempo"`
}

// Config mirrors mic_config.yaml.
type Config struct {
	DeviceID      int     `yaml:"device_id"` // -1 for the system default input
	SampleRate    float64 `yaml:"sample_rate"`
	Channels      int     `yaml:"channels"`
	ChunkDuration float64 `yaml:"chunk_duration"` // seconds

	Mics        []Mic            `yaml:"mics"`
	OSC         sender.OSCTarget `yaml:"osc"`
	PositionOSC sender.OSCTarget `yaml:"position_osc"`
	MIDI        MIDI             `yaml:"midi"`
	Web         Web              `yaml:"web"`

	ChannelsMap ChannelsMap            `yaml:"channels_map"`
	Hum         processor.HumConfig    `yaml:"hum"`
	Processing  Processing             `yaml:"processing"`
	Simulation  audio.SimulationConfig `yaml:"simulation"`
}

// Default describes the reference rig: six stereo pairs along the long
// sides (12 channels merged to 6 positions) plus one mic in each goal.
func Default() *Config {
	proc := processor.DefaultConfig()
	sim := audio.DefaultSimulationConfig()
	sim.GoalChannels = []int{12, 13}

	return &Config{
		DeviceID:      -1,
		SampleRate:    44100,
		Channels:      14,
		ChunkDuration: 0.1,
		Mics: []Mic{
			{Name: "bottom_left", Position: [2]float64{0, 0}},
			{Name: "bottom_center", Position: [2]float64{58.5, 0}},
			{Name: "bottom_right", Position: [2]float64{117, 0}},
			{Name: "top_left", Position: [2]float64{0, 68}},
			{Name: "top_center", Position: [2]float64{58.5, 68}},
			{Name: "top_right", Position: [2]float64{117, 68}},
		},
		OSC:         sender.OSCTarget{IP: "127.0.0.1", Port: 11111, Address: sender.DefaultStatusAddress},
		PositionOSC: sender.OSCTarget{IP: "127.0.0.1", Port: 11112, Address: sender.DefaultPositionAddress},
		MIDI:        MIDI{MIDIConfig: sender.DefaultMIDIConfig()},
		Web:         Web{Listen: ":8088"},
		ChannelsMap: ChannelsMap{
			Position:    []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
			Goals:       []int{12, 13},
			MergeStereo: proc.MergeStereo,
		},
		Hum: proc.Hum,
		Processing: Processing{
			Position: proc.Position,
			Goals:    proc.Goals,
			Tempo:    proc.Tempo,
		},
		Simulation: sim,
	}
}

// Load overlays the YAML file at path on Default and validates the result.
// Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, falling back to Default when path is the
// default location and does not exist.
func LoadOrDefault(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err != nil && path == DefaultPath && errors.Is(err, os.ErrNotExist) {
		return Default(), false, nil
	}
	return cfg, err == nil, err
}

// Parse decodes YAML over Default and validates it. Files without a
// channels_map section route every channel to position analysis with no
// merge and no goal mics, the layout of the original single-stage rigs.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var probe struct {
		ChannelsMap *yaml.Node `yaml:"channels_map"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if probe.ChannelsMap == nil {
		cfg.ChannelsMap = ChannelsMap{}
		cfg.Simulation.GoalChannels = nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Chunk returns the frame length.
func (c *Config) Chunk() time.Duration {
	return time.Duration(c.ChunkDuration * float64(time.Second))
}

// Layout returns the mic coordinates in channel order.
func (c *Config) Layout() processor.Layout {
	layout := make(processor.Layout, len(c.Mics))
	for i, m := range c.Mics {
		layout[i] = processor.Point{X: m.Position[0], Y: m.Position[1]}
	}
	return layout
}

// ChannelMap returns the session routing.
func (c *Config) ChannelMap() processor.ChannelMap {
	return processor.ChannelMap{
		Position: c.ChannelsMap.Position,
		Goals:    c.ChannelsMap.Goals,
	}
}

// Processor assembles the processing config. The hum frequency still needs
// resolving when it is "auto".
func (c *Config) Processor() *processor.Config {
	return &processor.Config{
		MergeStereo: c.ChannelsMap.MergeStereo,
		Position:    c.Processing.Position,
		Goals:       c.Processing.Goals,
		Tempo:       c.Processing.Tempo,
		Hum:         c.Hum,
	}
}

// ApplyProcessor copies tuned processing values back, for calibrate.
func (c *Config) ApplyProcessor(p *processor.Config) {
	c.Processing.Position = p.Position
	c.Processing.Goals = p.Goals
	c.Processing.Tempo = p.Tempo
	c.Hum = p.Hum
}

// Audio returns the capture options for backend. path is only used by the
// WAV backend.
func (c *Config) Audio(backend audio.Backend, path string) audio.Config {
	return audio.Config{
		Backend:       backend,
		DeviceID:      c.DeviceID,
		Path:          path,
		SampleRate:    c.SampleRate,
		Channels:      c.Channels,
		ChunkDuration: c.Chunk(),
		Simulation:    c.Simulation,
	}
}

// SessionOptions builds the processor options for a source with the given
// sample rate and channel count.
func (c *Config) SessionOptions(sampleRate float64, inputs int) processor.SessionOptions {
	return processor.SessionOptions{
		Config:        c.Processor(),
		Layout:        c.Layout(),
		Channels:      c.ChannelMap(),
		SampleRate:    sampleRate,
		InputChannels: inputs,
	}
}
