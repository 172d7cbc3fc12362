package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultRoot is used when a filesystem store is opened without a root.
	DefaultRoot = "./data"
	// DefaultDebounce is how long a watcher waits for writes to settle.
	DefaultDebounce = 200 * time.Millisecond

	tmpPrefix = ".tmp-"
)

// Filesystem stores resources as files below a root directory.
type Filesystem struct {
	root     string
	debounce time.Duration
	logger   *zap.Logger
}

// NewFilesystem returns a store rooted at root, creating the directory if needed.
func NewFilesystem(root string, debounce time.Duration, opts ...Option) (*Filesystem, error) {
	o := newOptions(opts)
	if root == "" {
		root = DefaultRoot
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &Filesystem{root: root, debounce: debounce, logger: o.logger}, nil
}

func (f *Filesystem) Driver() Driver { return DriverFilesystem }

// Root returns the directory resources are stored under.
func (f *Filesystem) Root() string { return f.root }

func (f *Filesystem) pathFor(p string) (string, error) {
	clean, err := Clean(p)
	if err != nil {
		return "", err
	}

	return filepath.Join(f.root, filepath.FromSlash(clean)), nil
}

func (f *Filesystem) Read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := f.pathFor(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}

	return data, err
}

// Write replaces the resource atomically: data goes to a temporary file that
// is then renamed over the target.
func (f *Filesystem) Write(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := f.pathFor(p)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), full)
}

func (f *Filesystem) Stat(ctx context.Context, p string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	full, err := f.pathFor(p)
	if err != nil {
		return Info{}, err
	}
	st, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	if err != nil {
		return Info{}, err
	}
	clean, _ := Clean(p)

	return Info{Path: clean, Size: st.Size(), ModTime: st.ModTime().UTC()}, nil
}

// List returns the resources whose path starts with prefix, sorted by path.
func (f *Filesystem) List(ctx context.Context, prefix string) ([]Info, error) {
	prefix, err := cleanPrefix(prefix)
	if err != nil {
		return nil, err
	}
	var infos []Info
	err = filepath.WalkDir(f.root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tmpPrefix) {
			return nil
		}
		rel, err := f.relative(full)
		if err != nil || !strings.HasPrefix(rel, prefix) {
			return nil //nolint:nilerr // outside the root or the prefix
		}
		st, err := d.Info()
		if err != nil {
			return err
		}
		infos = append(infos, Info{Path: rel, Size: st.Size(), ModTime: st.ModTime().UTC()})

		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })

	return infos, nil
}

func (f *Filesystem) relative(full string) (string, error) {
	rel, err := filepath.Rel(f.root, full)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", full, f.root)
	}

	return rel, nil
}
