package journal

import (
	"context"
	"testing"
	"time"

	"cameraapitest/pkg/command"
	"cameraapitest/pkg/host"
	"cameraapitest/pkg/host/mockhost"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestRecorderRun(t *testing.T) {
	s := openTemp(t)
	h := mockhost.New(mockhost.Config{}, nil)
	defer h.Close()

	events, unsubscribe := h.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewRecorder(s, nil).Run(ctx, events)
		close(done)
	}()

	c := h.Connect("Alex", mgl32.Vec3{0, 64, 0})
	require.NoError(t, c.ForceCameraPerspective(host.ThirdPerson))
	require.NoError(t, c.ClearCameraInstructions())

	var got []Instruction
	waitFor(t, func() bool {
		var err error
		got, err = s.RecentInstructions(context.Background(), c.ID(), 10)
		return err == nil && len(got) == 2
	})
	assert.Equal(t, host.KindClear, got[0].Kind)
	assert.Nil(t, got[0].Payload)
	assert.Equal(t, host.KindPerspective, got[1].Kind)
	assert.JSONEq(t, `"third_person"`, string(got[1].Payload))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("recorder did not stop")
	}
}

func TestRecorderHook(t *testing.T) {
	s := openTemp(t)
	r := command.NewRegistry("apitest", nil)
	require.NoError(t, r.Register(command.Command{
		Name:                "fade",
		ExecutableOnConsole: true,
		Execute:             func(context.Context, command.Source, []string) error { return nil },
	}))
	r.OnDispatch(NewRecorder(s, nil).Hook())

	src := command.NewCaptureSource("CONSOLE", true)
	require.NoError(t, r.Dispatch(context.Background(), src, "/apitest fade stop"))

	invs, err := s.RecentInvocations(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, "CONSOLE", invs[0].Source)
	assert.Equal(t, "fade", invs[0].Command)
	assert.Equal(t, []string{"stop"}, invs[0].Args)
	assert.Empty(t, invs[0].Error)
}
