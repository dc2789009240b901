package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/dronestatus/internal/errors"
)

const fileHeader = `# dronestatus configuration
# Every key can be overridden with DRONE_STATUS_<SECTION>_<KEY>,
# e.g. DRONE_STATUS_ROSBRIDGE_URL=ws://10.42.0.1:9090
`

// Write saves cfg as YAML at path. An existing file is only replaced when
// overwrite is set.
func Write(path string, cfg *Config, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return errors.New(errors.ErrConfig,
			path+" already exists",
			"Use --force to overwrite it")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to create config directory",
			"Check permissions on "+filepath.Dir(path))
	}
	if err := os.WriteFile(path, append([]byte(fileHeader), data...), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write "+path,
			"Check file permissions")
	}
	return nil
}
