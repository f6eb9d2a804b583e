package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cameraapitest.yaml")
	require.NoError(t, GenerateDefault(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	require.NoError(t, Watch(ctx, path, func(cfg *Config) { reloaded <- cfg }))

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("extension:\n  free_cam_height: 42\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, float32(42), cfg.Extension.FreeCamHeight)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestWatchSkipsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cameraapitest.yaml")
	require.NoError(t, GenerateDefault(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	require.NoError(t, Watch(ctx, path, func(cfg *Config) { reloaded <- cfg }))

	require.NoError(t, os.WriteFile(path, []byte("extension:\n  lock_owner: bogus\n"), 0o644))

	select {
	case cfg := <-reloaded:
		t.Fatalf("invalid config should not be delivered, got %+v", cfg.Extension)
	case <-time.After(3 * reloadDebounce):
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing", "x.yaml"), func(*Config) {})
	assert.Error(t, err)
}
