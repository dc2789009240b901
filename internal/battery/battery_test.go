package battery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVoltageToPercent_Breakpoints(t *testing.T) {
	tests := []struct {
		name    string
		voltage float64
		want    float64
	}{
		{"empty knee", 14.4, 0.0},
		{"cell transition", 14.8, 0.5},
		{"full", 16.8, 1.0},
		{"zero means no reading", 0, 0},
		{"negative means no reading", -5, 0},
		{"mid upper segment", 15.8, 0.75},
		{"mid lower segment", 14.6, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, VoltageToPercent(tt.voltage), 1e-9)
		})
	}
}

func TestVoltageToPercent_ExactAtKnees(t *testing.T) {
	assert.Equal(t, 0.0, VoltageToPercent(14.4))
	assert.Equal(t, 0.5, VoltageToPercent(14.8))
	assert.Equal(t, 0.0, VoltageToPercent(0))
	assert.Equal(t, 0.0, VoltageToPercent(-5))
}

func TestVoltageToPercent_UpperSegmentIncreasing(t *testing.T) {
	prev := VoltageToPercent(14.8)
	for v := 14.81; v < 18.0; v += 0.01 {
		got := VoltageToPercent(v)
		assert.Greater(t, got, prev, "not increasing at %.2fV", v)
		assert.GreaterOrEqual(t, got, 0.5)
		prev = got
	}
}

// The curve is deliberately left unclamped. These cases pin the out-of-band
// values so a future clamp shows up as a test change.
func TestVoltageToPercent_Unclamped(t *testing.T) {
	t.Run("below empty goes negative", func(t *testing.T) {
		for _, v := range []float64{0.1, 7.4, 12.0, 14.0, 14.39} {
			assert.Less(t, VoltageToPercent(v), 0.0, "%.2fV", v)
		}
		assert.InDelta(t, -0.5, VoltageToPercent(14.0), 1e-9)
	})

	t.Run("lower segment at or below empty is non-positive", func(t *testing.T) {
		for _, v := range []float64{0.5, 10, 14.4} {
			assert.LessOrEqual(t, VoltageToPercent(v), 0.0, "%.2fV", v)
		}
	})

	t.Run("above full exceeds one", func(t *testing.T) {
		assert.InDelta(t, 1.25, VoltageToPercent(17.8), 1e-9)
	})
}

func TestVoltageToPercent_LowerSegmentIncreasing(t *testing.T) {
	prev := VoltageToPercent(0.01)
	for v := 0.02; v <= 14.8; v += 0.01 {
		got := VoltageToPercent(v)
		assert.Greater(t, got, prev, "not increasing at %.2fV", v)
		prev = got
	}
}
