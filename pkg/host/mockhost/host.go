package mockhost

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cameraapitest/pkg/host"
	"cameraapitest/pkg/logging"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// subscriberBuffer is the per-subscriber event backlog. Lossy subscribers
// drop events beyond it; blocking subscribers make publishers wait.
const subscriberBuffer = 64

type subscriber struct {
	ch       chan host.Event
	done     chan struct{}
	stop     sync.Once
	blocking bool
}

func (s *subscriber) cancel() {
	s.stop.Do(func() { close(s.done) })
}

// Player is a connection created when the host starts.
type Player struct {
	Name     string
	Position mgl32.Vec3
}

// Config holds the initial state of the mock host.
type Config struct {
	Players []Player
}

// Host is an in-memory proxy with simulated Bedrock connections.
// It implements host.Host.
type Host struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	order  []string
	logger *slog.Logger

	subMu     sync.RWMutex
	subs      map[int]*subscriber
	nextID    int
	closing   chan struct{}
	closeOnce sync.Once

	onDisconnect []func(id string)
}

var _ host.Host = (*Host)(nil)

// New creates a host and connects the configured players.
func New(cfg Config, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Host{
		conns:  make(map[string]*Conn),
		subs:    make(map[int]*subscriber),
		closing: make(chan struct{}),
		logger:  logger,
	}
	for _, p := range cfg.Players {
		h.Connect(p.Name, p.Position)
	}
	return h
}

// Connect adds a new session for name at pos.
func (h *Host) Connect(name string, pos mgl32.Vec3) *Conn {
	c := &Conn{
		id:            uuid.NewString(),
		name:          name,
		pos:           pos,
		host:          h,
		movementLocks: make(map[uuid.UUID]struct{}),
		cameraLocks:   make(map[uuid.UUID]struct{}),
	}

	h.mu.Lock()
	h.conns[c.id] = c
	h.order = append(h.order, c.id)
	h.mu.Unlock()

	h.logger.Info("MockHost: player connected", "connection", c.id, "name", name, "position", host.FormatVec(pos))
	h.publish(host.Event{Type: host.EventConnected, ConnectionID: c.id, Connection: name, Time: time.Now()})
	return c
}

// Disconnect removes a session. Later instructions to it fail with host.ErrConnectionClosed.
func (h *Host) Disconnect(id string) error {
	h.mu.Lock()
	c, ok := h.conns[id]
	if ok {
		delete(h.conns, id)
		for i, oid := range h.order {
			if oid == id {
				h.order = append(h.order[:i], h.order[i+1:]...)
				break
			}
		}
	}
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("connection %s: %w", id, host.ErrConnectionClosed)
	}
	c.close()

	h.mu.RLock()
	callbacks := append([]func(string)(nil), h.onDisconnect...)
	h.mu.RUnlock()
	for _, fn := range callbacks {
		fn(id)
	}

	h.logger.Info("MockHost: player disconnected", "connection", id, "name", c.name)
	h.publish(host.Event{Type: host.EventDisconnected, ConnectionID: id, Connection: c.name, Time: time.Now()})
	return nil
}

// OnDisconnect registers fn to run synchronously for every disconnect,
// before the disconnect event is published.
func (h *Host) OnDisconnect(fn func(id string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDisconnect = append(h.onDisconnect, fn)
}

// Conn returns an online connection by id.
func (h *Host) Conn(id string) (*Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}

// Conns returns the online connections in connect order.
func (h *Host) Conns() []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Conn, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.conns[id])
	}
	return out
}

// OnlineConnections implements host.Host.
func (h *Host) OnlineConnections() []host.Connection {
	conns := h.Conns()
	out := make([]host.Connection, len(conns))
	for i, c := range conns {
		out[i] = c
	}
	return out
}

// Subscribe returns a channel of host events and a function that ends the subscription.
// Events are dropped for subscribers that fall behind.
func (h *Host) Subscribe() (<-chan host.Event, func()) {
	return h.subscribe(false)
}

// SubscribeBlocking is like Subscribe but every event is delivered:
// publishers wait for the subscriber until it reads or unsubscribes.
// The subscriber must keep reading until it calls the returned function
// or the host is closed.
func (h *Host) SubscribeBlocking() (<-chan host.Event, func()) {
	return h.subscribe(true)
}

func (h *Host) subscribe(blocking bool) (<-chan host.Event, func()) {
	s := &subscriber{
		ch:       make(chan host.Event, subscriberBuffer),
		done:     make(chan struct{}),
		blocking: blocking,
	}

	h.subMu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = s
	h.subMu.Unlock()

	return s.ch, func() {
		// Release a publisher blocked on s before taking the write lock.
		s.cancel()
		h.subMu.Lock()
		defer h.subMu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(s.ch)
		}
	}
}

func (h *Host) publish(ev host.Event) {
	h.subMu.RLock()
	defer h.subMu.RUnlock()
	logging.Trace(h.logger, "MockHost: publish", "type", ev.Type, "connection", ev.ConnectionID, "kind", ev.Kind)
	for id, s := range h.subs {
		if s.blocking {
			select {
			case s.ch <- ev:
			case <-s.done:
			case <-h.closing:
			}
			continue
		}
		select {
		case s.ch <- ev:
		default:
			h.logger.Debug("MockHost: subscriber lagging, event dropped", "subscriber", id, "type", ev.Type)
		}
	}
}

// Close disconnects every session and ends all subscriptions. Blocking
// subscribers are released first, so Close never waits on a reader that
// has already stopped.
func (h *Host) Close() error {
	h.closeOnce.Do(func() { close(h.closing) })

	for _, c := range h.Conns() {
		_ = h.Disconnect(c.id)
	}

	h.subMu.Lock()
	defer h.subMu.Unlock()
	for id, s := range h.subs {
		close(s.ch)
		delete(h.subs, id)
	}
	return nil
}
