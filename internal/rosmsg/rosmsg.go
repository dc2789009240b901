// Package rosmsg decodes the ROS message payloads the dashboard consumes.
//
// Only the fields that are rendered are modelled; everything else in the
// JSON encoding produced by rosbridge is ignored.
package rosmsg

import (
	"encoding/json"
	"fmt"
	"math"
)

// ROS type names used when subscribing.
const (
	TypeBatteryState = "sensor_msgs/BatteryState"
	TypeOdometry     = "nav_msgs/Odometry"
)

// Point is geometry_msgs/Point.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// BatteryState is the subset of sensor_msgs/BatteryState we render.
type BatteryState struct {
	Voltage float64 `json:"voltage"`
}

// Odometry is the subset of nav_msgs/Odometry we render.
type Odometry struct {
	Pose struct {
		Pose struct {
			Position Point `json:"position"`
		} `json:"pose"`
	} `json:"pose"`
}

// Position returns pose.pose.position.
func (o Odometry) Position() Point {
	return o.Pose.Pose.Position
}

// DecodeBatteryState parses a BatteryState payload. Non-finite voltages are
// rejected so they never reach the tracker.
func DecodeBatteryState(raw json.RawMessage) (BatteryState, error) {
	var msg BatteryState
	if err := json.Unmarshal(raw, &msg); err != nil {
		return BatteryState{}, fmt.Errorf("decode %s: %w", TypeBatteryState, err)
	}
	if math.IsNaN(msg.Voltage) || math.IsInf(msg.Voltage, 0) {
		return BatteryState{}, fmt.Errorf("decode %s: voltage is not finite", TypeBatteryState)
	}
	return msg, nil
}

// DecodeOdometry parses an Odometry payload.
func DecodeOdometry(raw json.RawMessage) (Odometry, error) {
	var msg Odometry
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Odometry{}, fmt.Errorf("decode %s: %w", TypeOdometry, err)
	}
	return msg, nil
}
