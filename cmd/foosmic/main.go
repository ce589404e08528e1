package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/linuxmatters/foosmic/internal/cli"
	"github.com/linuxmatters/foosmic/internal/config"
	"github.com/linuxmatters/foosmic/internal/logging"
)

var (
	version = "0.0.1"
)

// Globals are the flags shared by every command
type Globals struct {
	Version  bool   `short:"v" help:"Show version information"`
	Config   string `short:"c" type:"path" default:"mic_config.yaml" placeholder:"FILE" help:"Path to the YAML rig config"`
	Logs     bool   `help:"Write a session report (foosmic-<session>.log)"`
	Headless bool   `help:"Run without the dashboard and log to stderr"`
	LogLevel string `default:"info" enum:"debug,info,warn,error" placeholder:"LEVEL" help:"Log level (debug, info, warn, error)"`

	logger *slog.Logger
}

// CLI defines the command-line interface
type CLI struct {
	Globals

	Run       RunCmd       `cmd:"" default:"1" help:"Track a live table from the audio interface"`
	Replay    ReplayCmd    `cmd:"" help:"Replay a multichannel WAV recording through the tracker"`
	Simulate  SimulateCmd  `cmd:"" help:"Drive the outputs from a synthetic table"`
	Calibrate CalibrateCmd `cmd:"" help:"Measure room noise and tune the thresholds"`
	Devices   DevicesCmd   `cmd:"" help:"List audio inputs and MIDI outputs"`
}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("foosmic"),
		kong.Description("Foosball table tracking from a microphone array"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	// Handle version flag
	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	// The dashboard owns the terminal, so logs go to a file unless headless
	// or the command prints its own output.
	tui := !cliArgs.Headless && ctx.Command() != "devices"
	logger, closeLog, err := logging.Setup(cliArgs.LogLevel, tui)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	defer closeLog()
	cliArgs.logger = logger

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx.BindTo(sigCtx, (*context.Context)(nil))
	err = ctx.Run(&cliArgs.Globals)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("command failed", "command", ctx.Command(), "error", err)
		cli.PrintError(err.Error())
		stop()
		closeLog()
		os.Exit(1)
	}
}

// loadConfig reads the rig config, falling back to defaults when the
// default file is missing.
func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, found, err := config.LoadOrDefault(g.Config)
	if err != nil {
		return nil, err
	}
	if found {
		g.logger.Info("loaded config", "path", g.Config)
	} else {
		g.logger.Info("no config file, using the reference rig", "path", g.Config)
	}
	return cfg, nil
}
