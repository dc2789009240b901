package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"wraps at 1000s", time.Unix(1700000123, 456000000), "[123.456s]"},
		{"pads small values", time.Unix(1700000005, 0), "[  5.000s]"},
		{"zero", time.Unix(0, 0), "[  0.000s]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimestamp(tt.t))
		})
	}
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "[1.000, -2.500, 0.125]", FormatPosition(1, -2.5, 0.125))
	assert.Equal(t, ":15.20V", FormatVoltage(15.2))
	assert.Equal(t, ":0.00V", FormatVoltage(0))
}

func TestFragment_String(t *testing.T) {
	live := Fragment{Label: "VO", Value: "[1.000, 2.000, 3.000]", Live: true}
	stale := Fragment{Label: "VO", Value: "[0.000, 0.000, 0.000]", Live: false}

	assert.Equal(t, " VO true :[1.000, 2.000, 3.000]", live.String())
	assert.Equal(t, " VO false :[0.000, 0.000, 0.000]", stale.String())
}

func TestFragment_LivenessColor(t *testing.T) {
	withANSI(t)

	assert.True(t, strings.HasPrefix(Fragment{Label: "VO", Live: true}.String(), "\x1b[32m"))
	assert.True(t, strings.HasPrefix(Fragment{Label: "VO", Live: false}.String(), "\x1b[31m"))
}

func TestComposeStatusLine(t *testing.T) {
	line := ComposeStatusLine(StatusLine{
		Time: time.Unix(1700000123, 456000000),
		Streams: []Fragment{
			{Label: "VO", Value: FormatPosition(1, 2, 3), Live: true},
		},
		BatteryLive: true,
		Bar:         RenderBar(60, 100, 10),
		Suffix:      FormatVoltage(15.2),
	})

	assert.Equal(t, "[123.456s] VO true :[1.000, 2.000, 3.000] BAT: |██████----| 60.0% :15.20V", line)
}

func TestComposeStatusLine_MultipleStreamsInOrder(t *testing.T) {
	line := ComposeStatusLine(StatusLine{
		Time: time.Unix(0, 0),
		Streams: []Fragment{
			{Label: "VO", Value: "a", Live: true},
			{Label: "GPS", Value: "b", Live: false},
		},
		Bar: RenderBar(0, 100, 4),
	})

	assert.Equal(t, "[  0.000s] VO true :a GPS false :b BAT: |----|  0.0%", line)
}

func TestComposeStatusLine_StreamColorIndependentOfBar(t *testing.T) {
	withANSI(t)

	line := ComposeStatusLine(StatusLine{
		Time:    time.Unix(0, 0),
		Streams: []Fragment{{Label: "VO", Value: "x", Live: false}},
		Bar:     RenderBar(96, 100, 10),
	})

	assert.Contains(t, line, "\x1b[31m VO false :x")
	assert.Contains(t, line, "\x1b[34m|")
}
