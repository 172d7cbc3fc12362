package config

import (
	"path/filepath"
	"testing"
	"time"

	"datatables/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParse(t *testing.T) {
	yaml := `
version: "1"
storage:
  driver: s3
  s3:
    bucket: game-data
    prefix: tables
    endpoint: http://localhost:9000
    path_style: true
editor:
  idle_delay: 250ms
  watch: false
history:
  journal: .datatable/history.db
log:
  level: debug
  development: true
metrics:
  listen: ":9100"
`

	c, err := Parse([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "s3", c.Storage.Driver)
	assert.Equal(t, "game-data", c.Storage.S3.Bucket)
	assert.Equal(t, storage.DefaultS3Region, c.Storage.S3.Region)
	assert.True(t, c.Storage.S3.PathStyle)
	assert.Equal(t, 250*time.Millisecond, c.Editor.IdleDelay)
	assert.Equal(t, 3, c.Editor.MinIdleTicks)
	assert.False(t, c.Editor.Watching())
	assert.Equal(t, storage.DefaultDebounce, c.Editor.WatchDebounce)
	assert.Equal(t, ".datatable/history.db", c.History.Journal)
	assert.Equal(t, "debug", c.Log.Level)
	assert.True(t, c.Log.Development)
	assert.Equal(t, ":9100", c.Metrics.Listen)

	sc := c.StorageConfig()
	assert.Equal(t, storage.DriverS3, sc.Driver)
	assert.Equal(t, "tables", sc.S3.Prefix)
	assert.Equal(t, "http://localhost:9000", sc.S3.Endpoint)
	assert.Equal(t, storage.DefaultDebounce, sc.Debounce)
}

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, Version, c.Version)
	assert.Equal(t, "fs", c.Storage.Driver)
	assert.Equal(t, storage.DefaultRoot, c.Storage.Root)
	assert.Equal(t, 400*time.Millisecond, c.Editor.IdleDelay)
	assert.True(t, c.Editor.Watching())
	assert.Equal(t, "info", c.Log.Level)
	assert.Empty(t, c.History.Journal)
	require.NoError(t, Validate(c))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"version", `version: "2"`, `unsupported config version "2"`},
		{"driver", "storage: {driver: ftp}", `unknown storage driver "ftp"`},
		{"bucket", "storage: {driver: s3}", "storage.s3.bucket is required"},
		{"level", "log: {level: loud}", "log.level"},
		{"ticks", "editor: {min_idle_ticks: -1}", "editor.min_idle_ticks"},
		{"syntax", "storage: [", "failed to parse config YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datatable.yaml")
	c := Default()
	c.Storage.Driver = "memory"
	c.History.Journal = "history.db"

	require.NoError(t, WriteFile(c, path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	dev, err := NewLogger(LogConfig{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))
	assert.Panics(t, func() { dev.DPanic("contract violated") })

	_, err = NewLogger(LogConfig{Level: "loud"})
	require.Error(t, err)
}
