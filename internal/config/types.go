package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .dronestatus.yaml configuration file.
type Config struct {
	Version   int             `yaml:"version" mapstructure:"version"`
	Rosbridge RosbridgeConfig `yaml:"rosbridge" mapstructure:"rosbridge"`
	Tunnel    TunnelConfig    `yaml:"tunnel" mapstructure:"tunnel"`
	Topics    TopicsConfig    `yaml:"topics" mapstructure:"topics"`
	Refresh   RefreshConfig   `yaml:"refresh" mapstructure:"refresh"`
	Reconnect ReconnectConfig `yaml:"reconnect" mapstructure:"reconnect"`
	Display   DisplayConfig   `yaml:"display" mapstructure:"display"`
}

// RosbridgeConfig locates the rosbridge websocket server.
type RosbridgeConfig struct {
	// URL of the server, e.g. ws://localhost:9090. With a tunnel the host is
	// resolved on the far side of the SSH link.
	URL string `yaml:"url" mapstructure:"url"`

	// ProbeTimeout bounds each availability check while waiting.
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`
}

// TunnelConfig optionally routes the websocket through SSH.
type TunnelConfig struct {
	// Host is an SSH config alias, user@host or host:port. Empty disables
	// tunnelling.
	Host string `yaml:"host" mapstructure:"host"`

	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	StrictHostKeyChecking bool `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`
}

// TopicsConfig names the subscribed ROS topics.
type TopicsConfig struct {
	Battery  string `yaml:"battery" mapstructure:"battery"`
	Position string `yaml:"position" mapstructure:"position"`
}

// RefreshConfig controls the display loop.
type RefreshConfig struct {
	// Interval between redraws.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// StaleAfter is how old a position sample may be and still count as live.
	StaleAfter time.Duration `yaml:"stale_after" mapstructure:"stale_after"`

	// BatteryStaleAfter is the same for battery samples, which publish less
	// often.
	BatteryStaleAfter time.Duration `yaml:"battery_stale_after" mapstructure:"battery_stale_after"`
}

// ReconnectConfig controls polling while the source is unreachable.
type ReconnectConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DisplayConfig controls rendering.
type DisplayConfig struct {
	BarWidth int `yaml:"bar_width" mapstructure:"bar_width"`

	// Color is auto, always or never.
	Color string `yaml:"color" mapstructure:"color"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Rosbridge: RosbridgeConfig{
			URL:          "ws://localhost:9090",
			ProbeTimeout: time.Second,
		},
		Tunnel: TunnelConfig{
			Timeout:               10 * time.Second,
			StrictHostKeyChecking: true,
		},
		Topics: TopicsConfig{
			Battery:  "/dji_sdk_1/dji_sdk/battery_state",
			Position: "/uwb_vicon_odom",
		},
		Refresh: RefreshConfig{
			Interval:          100 * time.Millisecond,
			StaleAfter:        100 * time.Millisecond,
			BatteryStaleAfter: 2 * time.Second,
		},
		Reconnect: ReconnectConfig{
			Interval: time.Second,
		},
		Display: DisplayConfig{
			BarWidth: 10,
			Color:    "auto",
		},
	}
}
