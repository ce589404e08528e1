package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/linuxmatters/foosmic/internal/audio"
	"github.com/linuxmatters/foosmic/internal/cli"
	"github.com/linuxmatters/foosmic/internal/config"
	"github.com/linuxmatters/foosmic/internal/logging"
	"github.com/linuxmatters/foosmic/internal/mains"
	"github.com/linuxmatters/foosmic/internal/processor"
	"github.com/linuxmatters/foosmic/internal/sender"
	"github.com/linuxmatters/foosmic/internal/ui"
	"github.com/linuxmatters/foosmic/internal/web"
)

// RunCmd tracks a live table
type RunCmd struct {
	Adaptive time.Duration `placeholder:"DURATION" help:"Listen to the empty table for this long first and tune the thresholds (e.g. 5s)"`
}

// ReplayCmd pushes a recording through the tracker
type ReplayCmd struct {
	File     string        `arg:"" type:"existingfile" help:"Multichannel WAV recording"`
	Realtime bool          `help:"Pace frames at the recorded rate instead of as fast as possible"`
	Adaptive time.Duration `placeholder:"DURATION" help:"Tune the thresholds from the first part of the recording"`
}

// SimulateCmd drives the outputs from the synthetic table
type SimulateCmd struct {
	Frames int    `placeholder:"N" help:"Stop after N frames (default from config, 0 runs until interrupted)"`
	Seed   uint64 `help:"Random seed (default from config)"`
	Fast   bool   `help:"Generate frames as fast as possible"`
}

func (c *RunCmd) Run(g *Globals, ctx context.Context) error {
	return g.runSession(ctx, sessionPlan{
		mode:     "run",
		backend:  audio.BackendPortAudio,
		adaptive: c.Adaptive,
	}, os.Stdout)
}

func (c *ReplayCmd) Run(g *Globals, ctx context.Context) error {
	return g.runSession(ctx, sessionPlan{
		mode:     "replay",
		backend:  audio.BackendWAV,
		path:     c.File,
		realtime: c.Realtime,
		adaptive: c.Adaptive,
	}, os.Stdout)
}

func (c *SimulateCmd) Run(g *Globals, ctx context.Context) error {
	return g.runSession(ctx, sessionPlan{
		mode:    "simulate",
		backend: audio.BackendSimulate,
		configure: func(cfg *config.Config) {
			if c.Frames > 0 {
				cfg.Simulation.Frames = c.Frames
			}
			if c.Seed != 0 {
				cfg.Simulation.Seed = c.Seed
			}
			if c.Fast {
				cfg.Simulation.Realtime = false
			}
		},
	}, os.Stdout)
}

// sessionPlan is what differs between run, replay and simulate.
type sessionPlan struct {
	mode      string
	backend   audio.Backend
	path      string
	realtime  bool
	adaptive  time.Duration
	configure func(*config.Config)
}

// runSession opens the source, connects the outputs and processes frames
// until the source ends or ctx is cancelled. The summary goes to out.
func (g *Globals) runSession(ctx context.Context, plan sessionPlan, out io.Writer) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if plan.configure != nil {
		plan.configure(cfg)
	}

	src, err := audio.NewSource(cfg.Audio(plan.backend, plan.path), g.logger)
	if err != nil {
		return err
	}
	if plan.realtime {
		src = audio.Paced(src)
	}
	if err := src.Open(ctx); err != nil {
		return fmt.Errorf("failed to open %s source: %w", plan.backend, err)
	}
	defer src.Close()
	meta := src.Metadata()
	g.logger.Info("source open",
		"source", meta.Name,
		"sample_rate", meta.SampleRate,
		"channels", meta.Channels,
		"frame_size", meta.FrameSize)

	procCfg := cfg.Processor()
	var (
		ambient     *processor.AmbientMeasurements
		adjustments []processor.Adjustment
	)
	if plan.adaptive > 0 {
		ambient, adjustments, err = measureAmbient(ctx, src, plan.adaptive, procCfg, cfg.ChannelMap(), nil)
		if err != nil {
			return fmt.Errorf("adaptive calibration failed: %w", err)
		}
		for _, a := range adjustments {
			g.logger.Info("threshold adapted", "parameter", a.Name, "from", a.From, "to", a.To, "reason", a.Reason)
		}
	}
	if err := resolveHum(&procCfg.Hum, g.logger); err != nil {
		return err
	}

	opts := cfg.SessionOptions(meta.SampleRate, meta.Channels)
	opts.Config = procCfg
	opts.Logger = g.logger
	session, err := processor.NewSession(opts)
	if err != nil {
		return err
	}

	sessionID := uuid.NewString()
	outs, err := openOutputs(cfg, session.Config(), sessionID, g.logger)
	if err != nil {
		return err
	}
	defer outs.Close()

	micNames := make([]string, len(cfg.Mics))
	for i, m := range cfg.Mics {
		micNames[i] = m.Name
	}

	g.logger.Info("session started", "session", sessionID, "mode", plan.mode, "outputs", outs.labels)
	start := time.Now()
	if g.Headless {
		err = session.Run(ctx, src, outs.statusSinks(), nil)
	} else {
		tc := session.Config().Tempo
		err = runDashboard(ctx, g.logger, ui.SessionStartMsg{
			SessionID: sessionID,
			Mode:      plan.mode,
			Source:    meta.Name,
			Layout:    cfg.Layout(),
			MicNames:  micNames,
			Goals:     len(cfg.ChannelsMap.Goals) > 0,
			Display:   tc.DisplayRange,
			MinTempo:  tc.MinTempo,
			MaxTempo:  tc.MaxTempo,
			Outputs:   outs.labels,
			Duration:  meta.Duration,
			Chunk:     meta.FrameDuration(),
		}, func(ctx context.Context, onStatus func(processor.Status)) (*processor.SessionStats, error) {
			err := session.Run(ctx, src, outs.statusSinks(), onStatus)
			return session.Stats(), err
		})
	}
	stopped := errors.Is(err, context.Canceled)
	if err != nil && !stopped {
		return err
	}
	g.logger.Info("session stopped", "session", sessionID, "frames", session.Frames(), "interrupted", stopped)

	data := logging.ReportData{
		SessionID:     sessionID,
		Mode:          plan.mode,
		Source:        meta.Name,
		StartTime:     start,
		EndTime:       time.Now(),
		SampleRate:    meta.SampleRate,
		InputChannels: meta.Channels,
		Chunk:         meta.FrameDuration(),
		Stats:         session.Stats(),
		Config:        session.Config(),
		Layout:        cfg.Layout(),
		Channels:      cfg.ChannelMap(),
		MicNames:      micNames,
		Outputs:       outs.labels,
		Ambient:       ambient,
		Adjustments:   adjustments,
	}
	logging.DisplaySummary(out, data)

	if g.Logs {
		path, err := logging.GenerateReport(data)
		if err != nil {
			g.logger.Error("failed to write report", "error", err)
			return err
		}
		cli.PrintKeyValue(out, "Report", path)
	}
	return nil
}

// runDashboard shows the live dashboard while run processes frames in the
// background. Quitting the dashboard cancels run.
func runDashboard(ctx context.Context, logger *slog.Logger, start ui.SessionStartMsg,
	run func(context.Context, func(processor.Status)) (*processor.SessionStats, error)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(ui.NewModel(logger), tea.WithAltScreen(), tea.WithContext(ctx))

	done := make(chan error, 1)
	go func() {
		p.Send(start)
		stats, err := run(ctx, func(st processor.Status) {
			p.Send(ui.StatusMsg{Status: st})
		})
		msg := ui.SessionDoneMsg{Stats: stats}
		if !errors.Is(err, context.Canceled) {
			msg.Err = err
		}
		p.Send(msg)
		done <- err
	}()

	_, uiErr := p.Run()
	cancel()
	err := <-done
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return fmt.Errorf("dashboard failed: %w", uiErr)
	}
	return err
}

// measureAmbient listens to src for d and adapts cfg to the room.
func measureAmbient(ctx context.Context, src audio.Source, d time.Duration, cfg *processor.Config,
	channels processor.ChannelMap, progress func(done, total int)) (*processor.AmbientMeasurements, []processor.Adjustment, error) {
	meta := src.Metadata()
	frames := 1
	if fd := meta.FrameDuration(); fd > 0 {
		frames = max(1, int(d/fd))
	}

	m, err := processor.AnalyzeAmbient(ctx, src, frames, meta.SampleRate, progress)
	if err != nil {
		return nil, nil, err
	}
	adj, err := processor.AdaptConfig(cfg, m, channels)
	if err != nil {
		return m, nil, err
	}
	return m, adj, nil
}

// resolveHum fills in the notch frequency when the config says "auto" or
// gives a number. Already resolved settings are left alone.
func resolveHum(h *processor.HumConfig, logger *slog.Logger) error {
	if h.ResolvedFrequency > 0 {
		return nil
	}
	hz, det, err := mains.Resolve(h.Frequency)
	if err != nil {
		return err
	}
	h.ResolvedFrequency = hz
	if hz > 0 {
		logger.Info("hum filter", "hz", hz, "detection", det.String())
	}
	return nil
}

// outputs are the status sinks enabled in the config.
type outputs struct {
	sinks  sender.Multi
	labels []string
}

// openOutputs connects every enabled output. On failure the ones already
// open are closed.
func openOutputs(cfg *config.Config, proc processor.Config, sessionID string, logger *slog.Logger) (*outputs, error) {
	o := &outputs{}

	if cfg.OSC.Enabled() || cfg.PositionOSC.Enabled() {
		osc, err := sender.NewOSCSender(cfg.OSC, cfg.PositionOSC, logger)
		if err != nil {
			return nil, err
		}
		o.sinks = append(o.sinks, osc)
		for _, t := range osc.Targets() {
			o.labels = append(o.labels, "osc "+t)
		}
	}

	if cfg.MIDI.Enabled {
		midi, err := sender.NewMIDISender(cfg.MIDI.MIDIConfig, sender.ScalingFor(proc), logger)
		if err != nil {
			o.Close()
			return nil, fmt.Errorf("failed to open MIDI output: %w", err)
		}
		o.sinks = append(o.sinks, midi)
		o.labels = append(o.labels, fmt.Sprintf("midi %s ch%d", cfg.MIDI.Port, cfg.MIDI.Channel))
	}

	if cfg.Web.Enabled {
		server := web.NewServer(web.Options{
			Listen:    cfg.Web.Listen,
			SessionID: sessionID,
			Logger:    logger,
		})
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("web server stopped", "listen", cfg.Web.Listen, "error", err)
			}
		}()
		o.sinks = append(o.sinks, server)
		o.labels = append(o.labels, "web "+cfg.Web.Listen)
	}

	return o, nil
}

func (o *outputs) statusSinks() []processor.StatusSink {
	sinks := make([]processor.StatusSink, len(o.sinks))
	for i, s := range o.sinks {
		sinks[i] = s
	}
	return sinks
}

// Close closes every sink.
func (o *outputs) Close() error {
	return o.sinks.Close()
}
