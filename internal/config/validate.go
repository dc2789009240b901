package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rileyhilliard/dronestatus/internal/errors"
)

// MaxBarWidth keeps the status line inside common terminal widths.
const MaxBarWidth = 100

// ColorModes are the accepted display.color values.
var ColorModes = []string{"auto", "always", "never"}

type namedDuration struct {
	key string
	d   time.Duration
}

// Validate checks cfg and returns a CONFIG error describing the first
// problem found.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but dronestatus only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade dronestatus or lower 'version' in the config")
	}

	if err := validateURL(cfg.Rosbridge.URL); err != nil {
		return err
	}

	durations := []namedDuration{
		{"rosbridge.probe_timeout", cfg.Rosbridge.ProbeTimeout},
		{"refresh.interval", cfg.Refresh.Interval},
		{"refresh.stale_after", cfg.Refresh.StaleAfter},
		{"refresh.battery_stale_after", cfg.Refresh.BatteryStaleAfter},
		{"reconnect.interval", cfg.Reconnect.Interval},
	}
	if cfg.Tunnel.Host != "" {
		durations = append(durations, namedDuration{"tunnel.timeout", cfg.Tunnel.Timeout})
	}
	for _, d := range durations {
		if d.d <= 0 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%s must be positive, got %s", d.key, d.d),
				"Use a duration like 100ms or 1s")
		}
	}

	if strings.TrimSpace(cfg.Topics.Battery) == "" {
		return errors.New(errors.ErrConfig, "topics.battery is empty",
			"Set it to the BatteryState topic, e.g. /dji_sdk_1/dji_sdk/battery_state")
	}
	if strings.TrimSpace(cfg.Topics.Position) == "" {
		return errors.New(errors.ErrConfig, "topics.position is empty",
			"Set it to an Odometry topic, e.g. /uwb_vicon_odom")
	}

	if cfg.Display.BarWidth < 1 || cfg.Display.BarWidth > MaxBarWidth {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("display.bar_width must be between 1 and %d, got %d", MaxBarWidth, cfg.Display.BarWidth),
			"The default is 10")
	}

	if !isColorMode(cfg.Display.Color) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("display.color '%s' isn't recognized", cfg.Display.Color),
			"Use one of: "+strings.Join(ColorModes, ", "))
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("rosbridge.url '%s' isn't a valid URL", raw),
			"Use something like ws://localhost:9090")
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("rosbridge.url '%s' must use ws:// or wss://", raw),
			"rosbridge_server listens on ws://<host>:9090 by default")
	}
	if u.Host == "" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("rosbridge.url '%s' has no host", raw),
			"Use something like ws://localhost:9090")
	}
	return nil
}

func isColorMode(mode string) bool {
	for _, m := range ColorModes {
		if mode == m {
			return true
		}
	}
	return false
}
