package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "items.json", want: "items.json"},
		{in: "tables/./items.json", want: "tables/items.json"},
		{in: `tables\items.json`, want: "tables/items.json"},
		{in: "", wantErr: true},
		{in: "  ", wantErr: true},
		{in: "/etc/passwd", wantErr: true},
		{in: "../up.json", wantErr: true},
		{in: "a/../../b", wantErr: true},
		{in: ".", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Clean(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Root: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())

	s, err = Open(ctx, Config{Driver: DriverMemory})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, s.Driver())

	_, err = Open(ctx, Config{Driver: DriverS3})
	assert.ErrorContains(t, err, "bucket")

	_, err = Open(ctx, Config{Driver: "ftp"})
	assert.ErrorContains(t, err, "unknown storage driver")
}

// exerciseStore runs the behaviour every driver shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Read(ctx, "missing.json")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Stat(ctx, "missing.json")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Write(ctx, "tables/items.json", []byte(`{"a":1}`)))
	require.NoError(t, s.Write(ctx, "tables/items.json", []byte(`{"a":2}`)))
	require.NoError(t, s.Write(ctx, "other.json", []byte(`{}`)))

	data, err := s.Read(ctx, "tables/items.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	info, err := s.Stat(ctx, "tables/./items.json")
	require.NoError(t, err)
	assert.Equal(t, "tables/items.json", info.Path)
	assert.Equal(t, int64(7), info.Size)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "other.json", all[0].Path)
	assert.Equal(t, "tables/items.json", all[1].Path)

	some, err := s.List(ctx, "tables")
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "tables/items.json", some[0].Path)

	assert.Error(t, s.Write(ctx, "../escape.json", nil))
}

func TestFilesystem(t *testing.T) {
	s, err := NewFilesystem(t.TempDir(), 0)
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryReadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Write(ctx, "a.json", []byte("abc")))

	data, err := m.Read(ctx, "a.json")
	require.NoError(t, err)
	data[0] = 'x'

	again, err := m.Read(ctx, "a.json")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestMemoryWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewMemory()

	w, err := m.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Write(ctx, "./a.json", []byte("1")))
	select {
	case ev := <-w.Events():
		assert.Equal(t, "a.json", ev.Path)
	case <-time.After(time.Second):
		t.Fatal("no event")
	}

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.NoError(t, m.Write(ctx, "a.json", []byte("2")))
	_, open := <-w.Events()
	assert.False(t, open)
}

func TestMemoryWatchStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewMemory()
	w, err := m.Watch(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, open := <-w.Events():
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("watcher not closed")
	}
}

func TestFilesystemWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, err := NewFilesystem(t.TempDir(), 50*time.Millisecond)
	require.NoError(t, err)

	w, err := s.Watch(ctx)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Write(ctx, "items.json", []byte{byte('0' + i)}))
	}

	select {
	case ev := <-w.Events():
		assert.Equal(t, "items.json", ev.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}

	require.NoError(t, w.Close())
	for ev := range w.Events() {
		assert.Equal(t, "items.json", ev.Path)
	}
}
