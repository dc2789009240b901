package rosmsg

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBatteryState(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{
			name: "full message",
			raw:  `{"header":{"seq":1},"voltage":15.2,"current":-3.1,"percentage":0.6,"cell_voltage":[3.8,3.8,3.8,3.8]}`,
			want: 15.2,
		},
		{name: "missing voltage defaults to zero", raw: `{"current":1}`, want: 0},
		{name: "not an object", raw: `[1,2]`, wantErr: true},
		{name: "voltage wrong type", raw: `{"voltage":"high"}`, wantErr: true},
		{name: "truncated", raw: `{"voltage":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeBatteryState(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.Voltage)
		})
	}
}

func TestDecodeOdometry(t *testing.T) {
	raw := `{
		"header": {"frame_id": "world"},
		"child_frame_id": "body",
		"pose": {
			"pose": {
				"position": {"x": 1.5, "y": -2.25, "z": 0.75},
				"orientation": {"x": 0, "y": 0, "z": 0, "w": 1}
			},
			"covariance": []
		},
		"twist": {}
	}`

	msg, err := DecodeOdometry(json.RawMessage(raw))
	require.NoError(t, err)
	assert.Equal(t, Point{X: 1.5, Y: -2.25, Z: 0.75}, msg.Position())
}

func TestDecodeOdometry_Malformed(t *testing.T) {
	_, err := DecodeOdometry(json.RawMessage(`{"pose": {"pose": {"position": {"x": "far"}}}}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), TypeOdometry)
}
