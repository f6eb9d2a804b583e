package session

import (
	"sync/atomic"
	"testing"
	"time"

	"cameraapitest/pkg/host/mockhost"

	"github.com/go-gl/mathgl/mgl32"
)

func waitFor(t *testing.T, check func() bool, timeout time.Duration, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("Timeout waiting for: %s", msg)
}

func TestScheduleFires(t *testing.T) {
	m := NewManager(nil)
	defer m.Stop()

	var fired int32
	id := m.Schedule("conn-1", 10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	if id == 0 {
		t.Fatal("expected non-zero id")
	}
	if got := m.Pending("conn-1"); got != 1 {
		t.Errorf("expected 1 pending, got %d", got)
	}

	waitFor(t, func() bool { return atomic.LoadInt32(&fired) == 1 }, time.Second, "task fired")
	waitFor(t, func() bool { return m.Pending("conn-1") == 0 }, time.Second, "pending cleared")
}

func TestOverlappingSchedulesAreIndependent(t *testing.T) {
	m := NewManager(nil)
	defer m.Stop()

	var fired int32
	m.Schedule("conn-1", 10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	m.Schedule("conn-1", 20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	if got := m.Pending("conn-1"); got != 2 {
		t.Errorf("expected 2 pending, got %d", got)
	}

	waitFor(t, func() bool { return atomic.LoadInt32(&fired) == 2 }, time.Second, "both tasks fired")
}

func TestCancel(t *testing.T) {
	m := NewManager(nil)
	defer m.Stop()

	var fired int32
	m.Schedule("conn-1", 50*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	m.Schedule("conn-2", 50*time.Millisecond, func() { atomic.AddInt32(&fired, 10) })

	if n := m.Cancel("conn-1"); n != 1 {
		t.Errorf("expected 1 cancelled, got %d", n)
	}
	if n := m.Cancel("missing"); n != 0 {
		t.Errorf("expected 0 cancelled, got %d", n)
	}

	waitFor(t, func() bool { return atomic.LoadInt32(&fired) == 10 }, time.Second, "only conn-2 fired")
	time.Sleep(80 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 10 {
		t.Errorf("cancelled task ran: fired=%d", got)
	}
}

func TestCancelOnHostDisconnect(t *testing.T) {
	m := NewManager(nil)
	defer m.Stop()

	h := mockhost.New(mockhost.Config{}, nil)
	defer h.Close()
	h.OnDisconnect(func(id string) { m.Cancel(id) })

	var fired int32
	leave := h.Connect("Alex", mgl32.Vec3{})
	stay := h.Connect("Steve", mgl32.Vec3{})
	m.Schedule(leave.ID(), time.Hour, func() { atomic.AddInt32(&fired, 1) })
	m.Schedule(stay.ID(), time.Hour, func() { atomic.AddInt32(&fired, 1) })

	if err := h.Disconnect(leave.ID()); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	// The callback runs before Disconnect returns.
	if got := m.Pending(leave.ID()); got != 0 {
		t.Errorf("disconnected connection still has %d pending", got)
	}
	if all := m.PendingAll(); len(all) != 1 || all[stay.ID()] != 1 {
		t.Errorf("unexpected pending map %v", all)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	m := NewManager(nil)
	defer m.Stop()

	var after int32
	m.Schedule("conn-1", 5*time.Millisecond, func() { panic("boom") })
	m.Schedule("conn-1", 15*time.Millisecond, func() { atomic.StoreInt32(&after, 1) })

	waitFor(t, func() bool { return atomic.LoadInt32(&after) == 1 }, time.Second, "task after panic")
}

func TestStop(t *testing.T) {
	m := NewManager(nil)

	var fired int32
	m.Schedule("conn-1", 20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	m.Stop()

	if id := m.Schedule("conn-1", time.Millisecond, func() { atomic.AddInt32(&fired, 1) }); id != 0 {
		t.Errorf("expected schedule after stop to be refused, got id %d", id)
	}
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Errorf("expected nothing to fire after Stop, got %d", got)
	}
}
