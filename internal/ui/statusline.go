package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Fragment is one stream's annotation in the status line.
type Fragment struct {
	Label string
	Value string
	Live  bool
}

// String renders the fragment as " LABEL live :value", green when live and
// red when stale.
func (f Fragment) String() string {
	return colored(LivenessColor(f.Live), fmt.Sprintf(" %s %t :%s", f.Label, f.Live, f.Value))
}

// LivenessColor is green for live streams and red for stale ones.
func LivenessColor(live bool) lipgloss.Color {
	if live {
		return ColorGreen
	}
	return ColorRed
}

// StatusLine is everything shown in one refresh of the dashboard.
type StatusLine struct {
	Time        time.Time
	Streams     []Fragment
	BatteryLive bool
	Bar         Bar
	Suffix      string
}

// ComposeStatusLine renders
//
//	[<time>s] <fragments> BAT: <bar> <percent> <suffix>
//
// with the time shown as wall seconds modulo 1000.
func ComposeStatusLine(l StatusLine) string {
	var sb strings.Builder
	sb.WriteString(FormatTimestamp(l.Time))
	for _, f := range l.Streams {
		sb.WriteString(f.String())
	}
	sb.WriteString(" ")
	sb.WriteString(colored(LivenessColor(l.BatteryLive), "BAT:"))
	sb.WriteString(" ")
	sb.WriteString(l.Bar.String())
	if l.Suffix != "" {
		sb.WriteString(" ")
		sb.WriteString(l.Suffix)
	}
	return sb.String()
}

// FormatTimestamp renders t as "[sss.mmms]" over a 1000 second window.
func FormatTimestamp(t time.Time) string {
	secs := float64(t.Unix()%1000) + float64(t.Nanosecond())/1e9
	return fmt.Sprintf("[%7.3fs]", secs)
}

// FormatPosition renders a 3D position as "[x, y, z]".
func FormatPosition(x, y, z float64) string {
	return fmt.Sprintf("[%5.3f, %5.3f, %5.3f]", x, y, z)
}

// FormatVoltage renders the raw battery readout suffix.
func FormatVoltage(v float64) string {
	return fmt.Sprintf(":%4.2fV", v)
}
