package mockhost

import (
	"errors"
	"testing"
	"time"

	"cameraapitest/pkg/host"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectsConfiguredPlayers(t *testing.T) {
	h := New(Config{Players: []Player{
		{Name: "Alex", Position: mgl32.Vec3{0, 64, 0}},
		{Name: "Steve", Position: mgl32.Vec3{10, 70, -5}},
	}}, nil)
	defer h.Close()

	conns := h.OnlineConnections()
	require.Len(t, conns, 2)
	assert.Equal(t, "Alex", conns[0].Name())
	assert.Equal(t, "Steve", conns[1].Name())
	assert.Equal(t, mgl32.Vec3{10, 70, -5}, conns[1].PlayerPosition())
}

func TestInstructionsAreRecorded(t *testing.T) {
	h := New(Config{}, nil)
	defer h.Close()
	c := h.Connect("Alex", mgl32.Vec3{1, 2, 3})

	require.NoError(t, c.SendCameraFade(host.Fade{FadeIn: 1, Hold: 1, FadeOut: 1}))
	target := c.PlayerPosition()
	require.NoError(t, c.SendCameraPosition(host.Position{Position: target.Add(mgl32.Vec3{0, 10, 0}), Facing: &target}))
	require.NoError(t, c.ForceCameraPerspective(host.ThirdPersonFront))
	require.NoError(t, c.LockMovement(true, uuid.Nil))
	require.NoError(t, c.LockCamera(true, uuid.Nil))

	st := c.State()
	assert.True(t, st.MovementLocked)
	assert.True(t, st.CameraLocked)
	assert.NotNil(t, st.ActivePosition)
	assert.NotNil(t, st.ActiveFade)
	require.NotNil(t, st.Perspective)
	assert.Equal(t, host.ThirdPersonFront, *st.Perspective)
	assert.Equal(t, 5, st.Instructions)

	require.NoError(t, c.ClearCameraInstructions())
	require.NoError(t, c.LockMovement(false, uuid.Nil))
	st = c.State()
	assert.Nil(t, st.ActivePosition)
	assert.Nil(t, st.ActiveFade)
	assert.Nil(t, st.Perspective)
	assert.False(t, st.MovementLocked)
	assert.True(t, st.CameraLocked)

	assert.Len(t, c.CallsOf(host.KindLockMovement), 2)
	assert.Len(t, c.CallsOf(host.KindClear), 1)
}

func TestInvalidInstructionRejected(t *testing.T) {
	h := New(Config{}, nil)
	defer h.Close()
	c := h.Connect("Alex", mgl32.Vec3{})

	err := c.SendCameraFade(host.Fade{Hold: 42})
	assert.ErrorIs(t, err, host.ErrInvalidInstruction)
	assert.Empty(t, c.Calls())
}

func TestFailNext(t *testing.T) {
	h := New(Config{}, nil)
	defer h.Close()
	c := h.Connect("Alex", mgl32.Vec3{})

	boom := errors.New("boom")
	c.FailNext(boom)
	assert.ErrorIs(t, c.ClearCameraInstructions(), boom)
	assert.NoError(t, c.ClearCameraInstructions())
	assert.Len(t, c.Calls(), 1)
}

func TestDisconnect(t *testing.T) {
	h := New(Config{}, nil)
	defer h.Close()

	events, unsubscribe := h.Subscribe()
	defer unsubscribe()

	c := h.Connect("Alex", mgl32.Vec3{})
	require.NoError(t, h.Disconnect(c.ID()))

	assert.Empty(t, h.OnlineConnections())
	assert.ErrorIs(t, c.ClearCameraInstructions(), host.ErrConnectionClosed)
	assert.ErrorIs(t, h.Disconnect(c.ID()), host.ErrConnectionClosed)

	var got []host.EventType
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case ev := <-events:
			assert.Equal(t, c.ID(), ev.ConnectionID)
			got = append(got, ev.Type)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %v", got)
		}
	}
	assert.Equal(t, []host.EventType{host.EventConnected, host.EventDisconnected}, got)
}

func TestSubscribeReceivesInstructions(t *testing.T) {
	h := New(Config{}, nil)
	defer h.Close()
	c := h.Connect("Alex", mgl32.Vec3{})

	events, unsubscribe := h.Subscribe()
	require.NoError(t, c.ForceCameraPerspective(host.FirstPerson))

	select {
	case ev := <-events:
		assert.Equal(t, host.EventInstruction, ev.Type)
		assert.Equal(t, host.KindPerspective, ev.Kind)
		assert.Equal(t, host.FirstPerson, ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	unsubscribe()
	unsubscribe()
	_, open := <-events
	assert.False(t, open)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	h := New(Config{}, nil)
	defer h.Close()
	c := h.Connect("Alex", mgl32.Vec3{})

	_, unsubscribe := h.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			_ = c.ClearCameraInstructions()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked on a full subscriber")
	}
}

func TestBlockingSubscriberReceivesEverything(t *testing.T) {
	h := New(Config{}, nil)
	defer h.Close()
	c := h.Connect("Alex", mgl32.Vec3{})

	events, unsubscribe := h.SubscribeBlocking()
	defer unsubscribe()

	const sent = subscriberBuffer * 4
	received := make(chan int)
	go func() {
		n := 0
		for ev := range events {
			if ev.Type == host.EventInstruction {
				n++
			}
			if n == sent {
				break
			}
		}
		received <- n
	}()

	for range sent {
		require.NoError(t, c.ClearCameraInstructions())
	}

	select {
	case n := <-received:
		assert.Equal(t, sent, n)
	case <-time.After(2 * time.Second):
		t.Fatal("blocking subscriber missed events")
	}
}

func TestCloseReleasesStalledBlockingSubscriber(t *testing.T) {
	h := New(Config{}, nil)
	c := h.Connect("Alex", mgl32.Vec3{})

	// Never read: publishers wait once the buffer is full.
	_, _ = h.SubscribeBlocking()

	published := make(chan struct{})
	go func() {
		for range subscriberBuffer + 1 {
			_ = c.ClearCameraInstructions()
		}
		close(published)
	}()

	select {
	case <-published:
		t.Fatal("publisher should wait on a full blocking subscriber")
	case <-time.After(50 * time.Millisecond):
	}

	closed := make(chan struct{})
	go func() {
		_ = h.Close()
		close(closed)
	}()

	for _, ch := range []chan struct{}{published, closed} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("Close did not release the stalled publisher")
		}
	}
}

func TestOnDisconnectRunsBeforeEvent(t *testing.T) {
	h := New(Config{}, nil)
	defer h.Close()

	var got []string
	h.OnDisconnect(func(id string) { got = append(got, id) })

	c := h.Connect("Alex", mgl32.Vec3{})
	require.NoError(t, h.Disconnect(c.ID()))
	assert.Equal(t, []string{c.ID()}, got)

	assert.Error(t, h.Disconnect(c.ID()))
	assert.Len(t, got, 1, "unknown connections do not trigger callbacks")
}
