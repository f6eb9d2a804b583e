package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cameraapitest/pkg/command"
	"cameraapitest/pkg/config"
	"cameraapitest/pkg/host"
	"cameraapitest/pkg/journal"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeTestConfig(t *testing.T) (path, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "data", "journal.db")
	cfg := `
server:
    address: localhost:0
log:
    server:
        path: "` + filepath.ToSlash(filepath.Join(dir, "logs", "server.log")) + `"
        level: "debug"
    events:
        path: "` + filepath.ToSlash(filepath.Join(dir, "logs", "events.log")) + `"
db:
    path: "` + filepath.ToSlash(dbPath) + `"
extension:
    seed: 1234
`
	path = filepath.Join(dir, "cameraapitest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, dbPath
}

func TestRun(t *testing.T) {
	configPath, dbPath := writeTestConfig(t)
	out := &syncBuffer{}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	in := strings.NewReader("/apitest fade\nhelp\n/apitest bogus\n")
	if err := run(ctx, configPath, in, out); err != nil {
		t.Fatalf("run() failed: %v", err)
	}

	got := out.String()
	assert.Contains(t, got, "Fading to ")
	assert.Contains(t, got, "/apitest stack - stacked position and fade instruction")
	assert.Contains(t, got, "Unknown command: bogus")

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()

	seed, ok := j.GetState(context.Background(), "last_seed")
	assert.True(t, ok)
	assert.Equal(t, "1234", seed)

	invs, err := j.RecentInvocations(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, invs, 2)
	assert.Equal(t, "bogus", invs[0].Command)
	assert.Equal(t, "fade", invs[1].Command)

	// Both players' fades reached the journal before it was closed.
	ins, err := j.RecentInstructions(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, ins, 2)
	for _, row := range ins {
		assert.Equal(t, host.KindFade, row.Kind)
	}
}

func TestRunConsoleQuit(t *testing.T) {
	reg := command.NewRegistry("apitest", nil)
	out := &syncBuffer{}
	quit := make(chan struct{})

	runConsole(context.Background(), strings.NewReader("\nquit\n/apitest fade\n"), out, reg, func() { close(quit) })

	select {
	case <-quit:
	default:
		t.Fatal("quit was not called")
	}
	assert.Empty(t, out.String())
}

func TestSettingsFromConfig(t *testing.T) {
	owner := uuid.New()
	ext := config.DefaultConfig().Extension
	ext.LockOwner = owner.String()
	ext.ResetDelay = config.Duration(3 * time.Second)

	s, err := settingsFromConfig(ext)
	require.NoError(t, err)
	assert.Equal(t, owner, s.LockOwner)
	assert.Equal(t, 3*time.Second, s.ResetDelay)
	assert.Equal(t, ext.CameraOffset, s.CameraOffset)

	ext.LockOwner = "nope"
	_, err = settingsFromConfig(ext)
	assert.Error(t, err)
}

func TestResolveSeed(t *testing.T) {
	ctx := context.Background()

	seed, err := resolveSeed(ctx, 99, journal.Nop{})
	require.NoError(t, err)
	assert.Equal(t, uint64(99), seed)

	seed, err = resolveSeed(ctx, 0, journal.Nop{})
	require.NoError(t, err)
	assert.NotZero(t, seed)
}

func TestHostConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	hc := hostConfig(cfg)
	require.Len(t, hc.Players, len(cfg.Host.Players))
	assert.Equal(t, cfg.Host.Players[0].Name, hc.Players[0].Name)
	assert.Equal(t, cfg.Host.Players[0].Position, hc.Players[0].Position)
}
