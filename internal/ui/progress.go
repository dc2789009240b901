package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Bar glyphs.
const (
	BarFill    = "█"
	BarEmpty   = "-"
	BarBracket = "|"
)

// Battery color bands, lower bound inclusive.
const (
	BandYellow = 30.0
	BandGreen  = 70.0
	BandBlue   = 95.0
)

// Bar is a rendered progress bar before styling.
type Bar struct {
	// Text is the bracketed glyph string, e.g. "|██████----|".
	Text string
	// Label is the percentage readout, e.g. "60.0%".
	Label string
	// Filled is the number of fill glyphs in Text.
	Filled  int
	Percent float64
	Color   lipgloss.Color
}

// String renders the bar and its label in the bar color.
func (b Bar) String() string {
	return colored(b.Color, b.Text) + " " + colored(b.Color, b.Label)
}

// RenderBar builds a length-wide bar for value out of total.
//
// The fill count is floor(length*value/total), limited to [0, length] so the
// bar keeps a fixed width even for out-of-band readings; the label always
// shows the true percentage.
func RenderBar(value, total float64, length int) Bar {
	if length < 0 {
		length = 0
	}

	var percent float64
	if total != 0 {
		percent = 100 * value / total
	}

	filled := 0
	if total != 0 {
		f := math.Floor(float64(length) * value / total)
		switch {
		case math.IsNaN(f) || f < 0:
			filled = 0
		case f > float64(length):
			filled = length
		default:
			filled = int(f)
		}
	}

	var sb strings.Builder
	sb.WriteString(BarBracket)
	sb.WriteString(strings.Repeat(BarFill, filled))
	sb.WriteString(strings.Repeat(BarEmpty, length-filled))
	sb.WriteString(BarBracket)

	return Bar{
		Text:    sb.String(),
		Label:   fmt.Sprintf("%4.1f%%", percent),
		Filled:  filled,
		Percent: percent,
		Color:   BarColor(percent),
	}
}

// BarColor picks the band color for a 0-100 percentage:
// red below 30, yellow below 70, green below 95, blue otherwise.
func BarColor(percent float64) lipgloss.Color {
	switch {
	case percent < BandYellow:
		return ColorRed
	case percent < BandGreen:
		return ColorYellow
	case percent < BandBlue:
		return ColorGreen
	default:
		return ColorBlue
	}
}
