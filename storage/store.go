package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a resource does not exist.
var ErrNotFound = errors.New("resource not found")

// Driver names a Store implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverMemory     Driver = "memory"
	DriverS3         Driver = "s3"
)

// Info describes a stored resource.
type Info struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Store reads and writes whole resources.
type Store interface {
	Driver() Driver
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Stat(ctx context.Context, path string) (Info, error)
	List(ctx context.Context, prefix string) ([]Info, error)
}

// Event reports that the resource at Path changed.
type Event struct {
	Path string
}

// Watcher delivers change events until it is closed or its context ends.
// The Events channel is closed when the watcher stops.
type Watcher interface {
	Events() <-chan Event
	Close() error
}

// Watchable is implemented by stores that can report external changes.
type Watchable interface {
	Watch(ctx context.Context) (Watcher, error)
}

// Config selects and configures a driver.
type Config struct {
	Driver   Driver
	Root     string
	Debounce time.Duration
	S3       S3Config
}

type options struct {
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the logger used by watchers and drivers.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Open returns the Store selected by cfg.Driver. An empty driver means fs.
func Open(ctx context.Context, cfg Config, opts ...Option) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.Root, cfg.Debounce, opts...)
	case DriverMemory:
		return NewMemory(opts...), nil
	case DriverS3:
		return NewS3(ctx, cfg.S3, opts...)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Clean validates a resource path and returns its canonical form.
// Paths are relative, slash separated and may not escape the root.
func Clean(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New("empty resource path")
	}
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("invalid absolute resource path %q", p)
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid resource path %q contains '..'", p)
		}
	}
	clean := path.Clean(p)
	if clean == "." {
		return "", fmt.Errorf("invalid resource path %q", p)
	}

	return clean, nil
}

func cleanPrefix(prefix string) (string, error) {
	if prefix == "" {
		return "", nil
	}

	return Clean(prefix)
}
