package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette using the basic ANSI colors so the status line reads the same on
// a field laptop console as on a desktop terminal.
const (
	ColorRed    lipgloss.Color = "1"
	ColorGreen  lipgloss.Color = "2"
	ColorYellow lipgloss.Color = "3"
	ColorBlue   lipgloss.Color = "4"
	ColorMuted  lipgloss.Color = "8"
)

// Color modes accepted by display.color.
const (
	ColorModeAuto   = "auto"
	ColorModeAlways = "always"
	ColorModeNever  = "never"
)

// ColorName returns the human name of a palette color, for logs and tests.
func ColorName(c lipgloss.Color) string {
	switch c {
	case ColorRed:
		return "red"
	case ColorGreen:
		return "green"
	case ColorYellow:
		return "yellow"
	case ColorBlue:
		return "blue"
	case ColorMuted:
		return "gray"
	default:
		return string(c)
	}
}

// SetColorMode applies a display.color setting to the default renderer.
// "auto" keeps lipgloss terminal detection, except that NO_COLOR forces
// monochrome.
func SetColorMode(mode string) {
	switch mode {
	case ColorModeNever:
		DisableColors()
	case ColorModeAlways:
		lipgloss.SetColorProfile(termenv.ANSI)
	default:
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			DisableColors()
		}
	}
}

// DisableColors switches rendering to plain text.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func colored(c lipgloss.Color, s string) string {
	return lipgloss.NewStyle().Foreground(c).Render(s)
}
