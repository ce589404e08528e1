package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	primaryColor = lipgloss.Color("#1B7F3B") // Baize green
	accentColor  = lipgloss.Color("#F2C12E") // Ball yellow
	mutedColor   = lipgloss.Color("#888888") // Gray
	textColor    = lipgloss.Color("#FFFFFF") // White
	errorColor   = lipgloss.Color("#D7263D") // Red
)

// Styles
var (
	// Title style - bold green with a ball
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// Section heading style
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	// Error message style
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	// Key-value pair styles
	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)
)

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render("Foosmic ⚽"))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintSection prints a section heading
func PrintSection(w io.Writer, title string) {
	fmt.Fprintln(w, SectionStyle.Render(title))
}

// PrintKeyValue prints an indented key and value
func PrintKeyValue(w io.Writer, key, value string) {
	fmt.Fprintf(w, "  %s %s\n", KeyStyle.Render(key+":"), ValueStyle.Render(value))
}
