package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

type testCLI struct {
	Config string `short:"c" default:"mic_config.yaml" help:"Config file."`
	Debug  bool   `help:"Verbose logging."`

	Run    struct{} `cmd:"" help:"Track a live table."`
	Replay struct {
		File string `arg:"" help:"Recording to replay."`
	} `cmd:"" help:"Replay a recording."`
	Secret struct{} `cmd:"" hidden:""`
}

func renderHelp(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	parser, err := kong.New(&testCLI{},
		kong.Name("foosmic"),
		kong.Description("Foosball table tracking"),
		kong.Help(StyledHelpPrinter(kong.HelpOptions{Compact: true})),
		kong.Writers(&buf, &buf),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = parser.Parse(args)
	return buf.String()
}

func TestStyledHelpTopLevel(t *testing.T) {
	out := renderHelp(t, "--help")

	for _, want := range []string{
		"Foosball table tracking",
		"foosmic <command> [flags]",
		"run",
		"Track a live table.",
		"replay <file>",
		"-c, --config=CONFIG",
		"(default: mic_config.yaml)",
		"--debug",
		"-h, --help",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("help missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "secret") {
		t.Error("hidden command listed")
	}
}

func TestStyledHelpCommand(t *testing.T) {
	out := renderHelp(t, "replay", "--help")

	for _, want := range []string{
		"Replay a recording.",
		"foosmic replay <file> [flags]",
		"Arguments:",
		"Recording to replay.",
		"Global Flags:",
		"--config",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("command help missing %q\n%s", want, out)
		}
	}
}
