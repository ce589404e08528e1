package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

// Custom help styles
var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(accentColor).
				MarginTop(1)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AA00")).
			Bold(true)

	helpArgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AAAA")).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Italic(true)
)

// StyledHelpPrinter creates a custom help printer with Lipgloss styling.
// Help for a command lists its arguments and flags, then the global flags.
func StyledHelpPrinter(options kong.HelpOptions) func(options kong.HelpOptions, ctx *kong.Context) error {
	return func(options kong.HelpOptions, ctx *kong.Context) error {
		var sb strings.Builder

		node := ctx.Selected()
		if node == nil {
			node = ctx.Model.Node
		}

		// Title and description
		sb.WriteString(helpTitleStyle.Render("Foosmic ⚽"))
		sb.WriteString("\n")
		desc := ctx.Model.Help
		if node != ctx.Model.Node && node.Help != "" {
			desc = node.Help
		}
		sb.WriteString(helpDescStyle.Render(desc))
		sb.WriteString("\n")

		// Usage
		sb.WriteString(helpSectionStyle.Render("Usage:"))
		sb.WriteString("\n  ")
		sb.WriteString(usage(ctx, node))
		sb.WriteString("\n")

		// Commands section
		if cmds := getCommands(node); len(cmds) > 0 {
			sb.WriteString("\n")
			sb.WriteString(helpSectionStyle.Render("Commands:"))
			sb.WriteString("\n")
			width := 0
			for _, cmd := range cmds {
				width = max(width, len(cmd.name))
			}
			for _, cmd := range cmds {
				sb.WriteString("  ")
				sb.WriteString(helpArgStyle.Render(fmt.Sprintf("%-*s", width, cmd.name)))
				if cmd.help != "" {
					sb.WriteString("  ")
					sb.WriteString(cmd.help)
				}
				sb.WriteString("\n")
			}
		}

		// Arguments section
		args := getArguments(node)
		if len(args) > 0 {
			sb.WriteString("\n")
			sb.WriteString(helpSectionStyle.Render("Arguments:"))
			sb.WriteString("\n")
			for _, arg := range args {
				sb.WriteString("  ")
				sb.WriteString(helpArgStyle.Render(arg.name))
				if arg.help != "" {
					sb.WriteString("  ")
					sb.WriteString(arg.help)
				}
				sb.WriteString("\n")
			}
		}

		// Flags section
		writeFlags(&sb, "Flags:", getFlags(node, node == ctx.Model.Node))
		if node != ctx.Model.Node {
			writeFlags(&sb, "Global Flags:", getFlags(ctx.Model.Node, true))
		}

		sb.WriteString("\n")
		fmt.Fprint(ctx.Stdout, sb.String())
		return nil
	}
}

type argument struct {
	name string
	help string
}

type flag struct {
	flags      string
	help       string
	defaultVal string
}

func usage(ctx *kong.Context, node *kong.Node) string {
	if node == ctx.Model.Node {
		return fmt.Sprintf("%s <command> [flags]", ctx.Model.Name)
	}
	parts := []string{ctx.Model.Name, node.Path()}
	for _, arg := range node.Positional {
		parts = append(parts, arg.Summary())
	}
	parts = append(parts, "[flags]")
	return strings.Join(parts, " ")
}

func writeFlags(sb *strings.Builder, title string, flags []flag) {
	if len(flags) == 0 {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(helpSectionStyle.Render(title))
	sb.WriteString("\n")
	for _, flag := range flags {
		sb.WriteString("  ")
		sb.WriteString(helpFlagStyle.Render(flag.flags))
		if flag.help != "" {
			sb.WriteString("  ")
			sb.WriteString(flag.help)
		}
		if flag.defaultVal != "" {
			sb.WriteString(" ")
			sb.WriteString(helpDefaultStyle.Render("(default: " + flag.defaultVal + ")"))
		}
		sb.WriteString("\n")
	}
}

func getCommands(node *kong.Node) []argument {
	var cmds []argument
	for _, child := range node.Children {
		if child.Type != kong.CommandNode || child.Hidden {
			continue
		}
		name := child.Name
		for _, arg := range child.Positional {
			name += " " + arg.Summary()
		}
		cmds = append(cmds, argument{name: name, help: child.Help})
	}
	return cmds
}

func getArguments(node *kong.Node) []argument {
	var args []argument

	for _, arg := range node.Positional {
		args = append(args, argument{name: arg.Summary(), help: arg.Help})
	}

	return args
}

func getFlags(node *kong.Node, withHelp bool) []flag {
	var flags []flag

	if withHelp {
		flags = append(flags, flag{
			flags: "-h, --help",
			help:  "Show context-sensitive help.",
		})
	}

	for _, f := range node.Flags {
		if f.Name == "help" || f.Hidden {
			continue
		}

		flagStr := ""
		if f.Short != 0 {
			flagStr = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
		} else {
			flagStr = fmt.Sprintf("--%s", f.Name)
		}

		if !f.IsBool() {
			placeholder := f.PlaceHolder
			if placeholder == "" {
				placeholder = f.Name
			}
			flagStr += "=" + strings.ToUpper(placeholder)
		}

		defaultVal := ""
		if !f.IsBool() {
			defaultVal = f.Default
		}

		flags = append(flags, flag{
			flags:      flagStr,
			help:       f.Help,
			defaultVal: defaultVal,
		})
	}

	return flags
}
