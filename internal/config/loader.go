package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/rileyhilliard/dronestatus/internal/errors"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".dronestatus.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/dronestatus"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// ConfigEnv names an explicit config file, skipping the search.
	ConfigEnv = "DRONE_STATUS_CONFIG"
	// EnvPrefix prefixes per-key overrides, e.g. DRONE_STATUS_ROSBRIDGE_URL.
	EnvPrefix = "DRONE_STATUS"
)

// Load reads config from path, layering environment overrides on top. An
// empty path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found: "+path,
					"Run 'dronestatus init' to create one")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check "+path+" is valid YAML")
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Durations look like 100ms or 2s. Check the YAML in "+path)
	}
	return cfg, nil
}

// LoadOrDefault finds the config file (see Find) and loads it, falling back
// to defaults when there is none.
func LoadOrDefault() (*Config, string, error) {
	path, err := Find(os.Getenv(ConfigEnv))
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Find locates the config file using the search order:
// 1. Explicit path (from DRONE_STATUS_CONFIG)
// 2. .dronestatus.yaml in current directory
// 3. .dronestatus.yaml in parent directories (stops at git root or home)
// 4. ~/.config/dronestatus/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Specified config file not found: "+explicit,
				"Check the path in "+ConfigEnv)
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	home, _ := os.UserHomeDir()
	dir := cwd
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		if isGitRoot(dir) {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir || (home != "" && parent == home) {
			break
		}
		dir = parent
	}

	if home != "" {
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// newViper registers every key with its default so AutomaticEnv can
// override keys the file doesn't mention.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("rosbridge.url", d.Rosbridge.URL)
	v.SetDefault("rosbridge.probe_timeout", d.Rosbridge.ProbeTimeout)
	v.SetDefault("tunnel.host", d.Tunnel.Host)
	v.SetDefault("tunnel.timeout", d.Tunnel.Timeout)
	v.SetDefault("tunnel.strict_host_key_checking", d.Tunnel.StrictHostKeyChecking)
	v.SetDefault("topics.battery", d.Topics.Battery)
	v.SetDefault("topics.position", d.Topics.Position)
	v.SetDefault("refresh.interval", d.Refresh.Interval)
	v.SetDefault("refresh.stale_after", d.Refresh.StaleAfter)
	v.SetDefault("refresh.battery_stale_after", d.Refresh.BatteryStaleAfter)
	v.SetDefault("reconnect.interval", d.Reconnect.Interval)
	v.SetDefault("display.bar_width", d.Display.BarWidth)
	v.SetDefault("display.color", d.Display.Color)
	return v
}

// isGitRoot checks if a directory is a git repository root.
func isGitRoot(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}
