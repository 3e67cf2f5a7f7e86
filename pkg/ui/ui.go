// Package ui holds the shared lipgloss styles and terminal queries of the
// zoar CLI.
package ui

import (
	"os"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/x/term"
	"github.com/samber/lo"
)

// GetFangScheme returns the same light/dark-aware color scheme fang uses.
func GetFangScheme() fang.ColorScheme {
	// This mirrors fang.mustColorscheme(DefaultColorScheme)
	isDark := lipgloss.HasDarkBackground(os.Stdin, os.Stdout)
	return fang.DefaultColorScheme(lipgloss.LightDark(isDark))
}

// UI layout constants.
const (
	defaultMargin  = 2
	defaultPadding = 2

	termWidthFloor    = 20
	fallbackTermWidth = 80
)

// GetBlockStyles generates reusable styles for titles and code block elements.
// Returns two lipgloss.Style objects: one for titles and one for blocks.
func GetBlockStyles() (lipgloss.Style, lipgloss.Style) {
	colorScheme := GetFangScheme()

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorScheme.QuotedString).
		Transform(strings.ToUpper).
		Padding(1, 0).
		Margin(0, defaultMargin)

	blockStyle := lipgloss.NewStyle().
		Background(colorScheme.Codeblock).
		Foreground(colorScheme.Base).
		MarginLeft(defaultMargin).
		Padding(1, defaultPadding)
	return titleStyle, blockStyle
}

// GetStatusStyles returns the styles of a passing and a failing run summary.
func GetStatusStyles() (lipgloss.Style, lipgloss.Style) {
	if !ColorEnabled(os.Stdout) {
		return lipgloss.NewStyle(), lipgloss.NewStyle()
	}
	pass := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	fail := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	return pass, fail
}

// noColorTERMs defines terminals that do not support ANSI color output.
var noColorTERMs = lo.Keyify([]string{ //nolint:gochecknoglobals // package-level lookup table
	"dumb",
	"vt100",
	"cygwin",
	"xterm-mono",
})

// ColorEnabled reports whether styled output should be written to f. It
// respects NO_COLOR and a small TERM blacklist.
func ColorEnabled(f *os.File) bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	if _, blacklisted := noColorTERMs[os.Getenv("TERM")]; blacklisted {
		return false
	}
	return IsTerminal(f)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(f.Fd())
}

// TerminalWidth returns the width to wrap text at. It prefers the actual
// stdout size, falls back to $COLUMNS, then 80.
func TerminalWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return max(termWidthFloor, w)
	}
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if v, err := strconv.Atoi(cols); err == nil && v > 0 {
			return max(termWidthFloor, v)
		}
	}
	return fallbackTermWidth
}

// markdownStyle returns a glamour style matching the terminal background,
// without the heading prefixes.
func markdownStyle() ansi.StyleConfig {
	style := styles.DarkStyleConfig
	if !lipgloss.HasDarkBackground(os.Stdin, os.Stdout) {
		style = styles.LightStyleConfig
	}
	style.H1.Prefix = ""
	style.H2.Prefix = ""
	style.H3.Prefix = ""
	return style
}

// RenderMarkdown renders markdown for a terminal of the given width.
func RenderMarkdown(body string, width int) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(markdownStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(body)
}
