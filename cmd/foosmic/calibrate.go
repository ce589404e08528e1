package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linuxmatters/foosmic/internal/audio"
	"github.com/linuxmatters/foosmic/internal/cli"
	"github.com/linuxmatters/foosmic/internal/logging"
	"github.com/linuxmatters/foosmic/internal/processor"
	"github.com/linuxmatters/foosmic/internal/ui"
)

// CalibrateCmd measures the empty table and tunes the noise thresholds
type CalibrateCmd struct {
	Duration time.Duration `default:"5s" placeholder:"DURATION" help:"How long to listen"`
	Write    bool          `help:"Save the tuned thresholds back to the config file"`
	WAV      string        `name:"wav" type:"existingfile" placeholder:"FILE" help:"Measure a recording instead of the live input"`
	Simulate bool          `help:"Measure the simulator instead of the live input"`
}

func (c *CalibrateCmd) Run(g *Globals, ctx context.Context) error {
	return c.calibrate(ctx, g, os.Stdout)
}

func (c *CalibrateCmd) calibrate(ctx context.Context, g *Globals, out io.Writer) error {
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", c.Duration)
	}
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	backend, path := audio.BackendPortAudio, ""
	switch {
	case c.WAV != "":
		backend, path = audio.BackendWAV, c.WAV
	case c.Simulate:
		backend = audio.BackendSimulate
		cfg.Simulation.Realtime = false
	}

	src, err := audio.NewSource(cfg.Audio(backend, path), g.logger)
	if err != nil {
		return err
	}
	if err := src.Open(ctx); err != nil {
		return fmt.Errorf("failed to open %s source: %w", backend, err)
	}
	defer src.Close()
	meta := src.Metadata()

	procCfg := cfg.Processor()
	var (
		m   *processor.AmbientMeasurements
		adj []processor.Adjustment
	)
	if g.Headless {
		m, adj, err = measureAmbient(ctx, src, c.Duration, procCfg, cfg.ChannelMap(), nil)
	} else {
		m, adj, err = calibrateWithProgress(ctx, meta.Name, int(c.Duration/max(meta.FrameDuration(), 1)),
			func(ctx context.Context, progress func(done, total int)) (*processor.AmbientMeasurements, []processor.Adjustment, error) {
				return measureAmbient(ctx, src, c.Duration, procCfg, cfg.ChannelMap(), progress)
			})
	}
	if err != nil {
		return fmt.Errorf("calibration failed: %w", err)
	}
	g.logger.Info("calibration complete", "frames", m.Frames, "adjustments", len(adj), "hum_hz", m.HumFrequency)

	logging.DisplayCalibration(out, meta.Name, meta.FrameDuration(), m, adj)

	if !c.Write {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Run again with --write to save these thresholds.")
		return nil
	}
	cfg.ApplyProcessor(procCfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("tuned config is invalid: %w", err)
	}
	if err := cfg.Save(g.Config); err != nil {
		return err
	}
	g.logger.Info("config saved", "path", g.Config)
	fmt.Fprintln(out)
	cli.PrintKeyValue(out, "Saved", g.Config)
	return nil
}

// calibrateWithProgress runs measure behind the calibration spinner.
// Quitting the spinner cancels the measurement.
func calibrateWithProgress(ctx context.Context, source string, frames int,
	measure func(context.Context, func(done, total int)) (*processor.AmbientMeasurements, []processor.Adjustment, error),
) (*processor.AmbientMeasurements, []processor.Adjustment, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(ui.NewCalibrationModel(), tea.WithContext(ctx))

	type result struct {
		m   *processor.AmbientMeasurements
		adj []processor.Adjustment
		err error
	}
	done := make(chan result, 1)
	go func() {
		p.Send(ui.CalibrationStartMsg{Source: source, Frames: frames})
		m, adj, err := measure(ctx, func(d, total int) {
			p.Send(ui.CalibrationProgressMsg{Done: d, Total: total})
		})
		p.Send(ui.CalibrationDoneMsg{Measurements: m, Adjustments: adj, Err: err})
		done <- result{m, adj, err}
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-done
		return nil, nil, fmt.Errorf("progress display failed: %w", err)
	}
	cancel()
	r := <-done
	return r.m, r.adj, r.err
}
