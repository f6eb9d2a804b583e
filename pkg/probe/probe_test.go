package probe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"cameraapitest/pkg/host/mockhost"
	"cameraapitest/pkg/journal"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	probes := []Probe{
		{Name: "ok", Check: func(context.Context) error { return nil }, Critical: true},
		{Name: "minor", Check: func(context.Context) error { return errors.New("minor issue") }},
		{Name: "slow", Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	}

	results := Run(context.Background(), 20*time.Millisecond, probes)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.EqualError(t, results[1].Err, "minor issue")
	assert.ErrorIs(t, results[2].Err, context.DeadlineExceeded)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		wantErr bool
	}{
		{
			name:    "All Pass",
			results: []Result{{Probe: Probe{Name: "P1", Critical: true}}},
		},
		{
			name:    "Critical Failure",
			results: []Result{{Probe: Probe{Name: "P1", Critical: true}, Err: errors.New("fail")}},
			wantErr: true,
		},
		{
			name:    "Non-Critical Failure",
			results: []Result{{Probe: Probe{Name: "P1"}, Err: errors.New("fail")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Summarize(slog.New(slog.NewTextHandler(&buf, nil)), tt.results)
			if tt.wantErr {
				assert.ErrorContains(t, err, "P1: fail")
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, buf.String(), "check=P1")
		})
	}
}

func TestJournalProbe(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	p := Journal(j)
	assert.True(t, p.Critical)
	assert.NoError(t, p.Check(context.Background()))

	assert.NoError(t, Journal(journal.Nop{}).Check(context.Background()))
}

func TestConnectionsProbe(t *testing.T) {
	empty := mockhost.New(mockhost.Config{}, nil)
	defer empty.Close()
	assert.Error(t, Connections(empty).Check(context.Background()))

	h := mockhost.New(mockhost.Config{Players: []mockhost.Player{{Name: "Alex", Position: mgl32.Vec3{}}}}, nil)
	defer h.Close()
	assert.NoError(t, Connections(h).Check(context.Background()))
}
