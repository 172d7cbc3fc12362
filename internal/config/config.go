package config

import (
	"time"

	"datatables/history"
	"datatables/storage"
)

// Version is the only supported config version.
const Version = "1"

// Config is the root of a config file.
type Config struct {
	Version string        `yaml:"version"`
	Storage StorageConfig `yaml:"storage"`
	Editor  EditorConfig  `yaml:"editor"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// StorageConfig selects and configures the resource store.
type StorageConfig struct {
	Driver string   `yaml:"driver"`
	Root   string   `yaml:"root,omitempty"`
	S3     S3Config `yaml:"s3,omitempty"`
}

// S3Config addresses a bucket. Credentials are never read from the file;
// they come from the environment or the shared AWS config.
type S3Config struct {
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

// EditorConfig tunes editor sessions.
type EditorConfig struct {
	IdleDelay     time.Duration `yaml:"idle_delay"`
	MinIdleTicks  int           `yaml:"min_idle_ticks"`
	Watch         *bool         `yaml:"watch,omitempty"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// Watching reports whether resource files are watched for changes.
func (e EditorConfig) Watching() bool {
	return e.Watch == nil || *e.Watch
}

// HistoryConfig locates the undo journal. An empty Journal disables it.
type HistoryConfig struct {
	Journal string `yaml:"journal,omitempty"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development,omitempty"`
}

// MetricsConfig enables the Prometheus endpoint of long running commands.
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	applyDefaults(&c)

	return &c
}

// StorageConfig converts the storage section for storage.Open.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Driver:   storage.Driver(c.Storage.Driver),
		Root:     c.Storage.Root,
		Debounce: c.Editor.WatchDebounce,
		S3: storage.S3Config{
			Bucket:    c.Storage.S3.Bucket,
			Prefix:    c.Storage.S3.Prefix,
			Region:    c.Storage.S3.Region,
			Endpoint:  c.Storage.S3.Endpoint,
			PathStyle: c.Storage.S3.PathStyle,
		},
	}
}

func applyDefaults(c *Config) {
	if c.Version == "" {
		c.Version = Version
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = string(storage.DriverFilesystem)
	}
	if c.Storage.Driver == string(storage.DriverFilesystem) && c.Storage.Root == "" {
		c.Storage.Root = storage.DefaultRoot
	}
	if c.Storage.Driver == string(storage.DriverS3) && c.Storage.S3.Region == "" {
		c.Storage.S3.Region = storage.DefaultS3Region
	}

	if c.Editor.IdleDelay == 0 {
		c.Editor.IdleDelay = history.DefaultIdleDelay
	}
	if c.Editor.MinIdleTicks == 0 {
		c.Editor.MinIdleTicks = history.DefaultMinIdleTicks
	}
	if c.Editor.WatchDebounce == 0 {
		c.Editor.WatchDebounce = storage.DefaultDebounce
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
