package config

import (
	"errors"
	"fmt"
	"os"

	"datatables/storage"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// LoadFile loads and parses a YAML config file from the given path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses YAML data into a Config, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var c Config

	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	applyDefaults(&c)

	if err := Validate(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// Validate checks a config with defaults applied.
func Validate(c *Config) error {
	var errs []error

	if c.Version != Version {
		errs = append(errs, fmt.Errorf("unsupported config version %q", c.Version))
	}

	switch storage.Driver(c.Storage.Driver) {
	case storage.DriverFilesystem, storage.DriverMemory:
	case storage.DriverS3:
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	if c.Editor.IdleDelay < 0 {
		errs = append(errs, errors.New("editor.idle_delay must not be negative"))
	}
	if c.Editor.MinIdleTicks < 0 {
		errs = append(errs, errors.New("editor.min_idle_ticks must not be negative"))
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

// Marshal serializes a Config to YAML.
func Marshal(c *Config) ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteFile writes a Config to the given path.
func WriteFile(c *Config, path string) error {
	data, err := Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}
