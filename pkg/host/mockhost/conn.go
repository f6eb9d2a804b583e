package mockhost

import (
	"fmt"
	"sync"
	"time"

	"cameraapitest/pkg/command"
	"cameraapitest/pkg/host"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Call is one instruction received by a connection.
type Call struct {
	Kind    string
	Payload any
	Time    time.Time
}

// Conn is a simulated Bedrock session. It implements host.Connection and,
// so a player can run commands, command.Source.
type Conn struct {
	id   string
	name string
	host *Host

	mu            sync.Mutex
	pos           mgl32.Vec3
	closed        bool
	calls         []Call
	messages      []string
	movementLocks map[uuid.UUID]struct{}
	cameraLocks   map[uuid.UUID]struct{}
	active        *host.Position
	fading        *host.Fade
	perspective   *host.Perspective
	failNext      error
}

var (
	_ host.Connection = (*Conn)(nil)
	_ command.Source  = (*Conn)(nil)
)

func (c *Conn) ID() string      { return c.id }
func (c *Conn) Name() string    { return c.name }
func (c *Conn) IsConsole() bool { return false }

// PlayerPosition returns the player's current position.
func (c *Conn) PlayerPosition() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// Teleport moves the player.
func (c *Conn) Teleport(pos mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = pos
}

// SendMessage records a chat message to the player.
func (c *Conn) SendMessage(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// FailNext makes the next instruction fail with err.
func (c *Conn) FailNext(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = err
}

func (c *Conn) SendCameraFade(f host.Fade) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return c.record(host.KindFade, f, func() {
		c.fading = &f
	})
}

func (c *Conn) SendCameraPosition(p host.Position) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return c.record(host.KindPosition, p, func() {
		c.active = &p
		if p.Fade != nil {
			c.fading = p.Fade
		}
	})
}

func (c *Conn) ClearCameraInstructions() error {
	return c.record(host.KindClear, nil, func() {
		c.active = nil
		c.fading = nil
		c.perspective = nil
	})
}

func (c *Conn) ForceCameraPerspective(p host.Perspective) error {
	return c.record(host.KindPerspective, p, func() {
		c.perspective = &p
	})
}

func (c *Conn) LockMovement(lock bool, owner uuid.UUID) error {
	return c.record(host.KindLockMovement, host.LockPayload{Lock: lock, Owner: owner}, func() {
		setLock(c.movementLocks, lock, owner)
	})
}

func (c *Conn) LockCamera(lock bool, owner uuid.UUID) error {
	return c.record(host.KindLockCamera, host.LockPayload{Lock: lock, Owner: owner}, func() {
		setLock(c.cameraLocks, lock, owner)
	})
}

func setLock(locks map[uuid.UUID]struct{}, lock bool, owner uuid.UUID) {
	if lock {
		locks[owner] = struct{}{}
	} else {
		delete(locks, owner)
	}
}

// record applies an instruction under the lock and publishes it.
func (c *Conn) record(kind string, payload any, apply func()) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%s to %s: %w", kind, c.name, host.ErrConnectionClosed)
	}
	if err := c.failNext; err != nil {
		c.failNext = nil
		c.mu.Unlock()
		return fmt.Errorf("%s to %s: %w", kind, c.name, err)
	}
	now := time.Now()
	c.calls = append(c.calls, Call{Kind: kind, Payload: payload, Time: now})
	apply()
	c.mu.Unlock()

	c.host.publish(host.Event{
		Type:         host.EventInstruction,
		ConnectionID: c.id,
		Connection:   c.name,
		Kind:         kind,
		Payload:      payload,
		Time:         now,
	})
	return nil
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Calls returns a snapshot of the instructions received.
func (c *Conn) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallsOf returns the received instructions of one kind.
func (c *Conn) CallsOf(kind string) []Call {
	var out []Call
	for _, call := range c.Calls() {
		if call.Kind == kind {
			out = append(out, call)
		}
	}
	return out
}

// Messages returns a snapshot of chat messages sent to the player.
func (c *Conn) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.messages))
	copy(out, c.messages)
	return out
}

// State summarises the connection for the API.
type State struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Position       mgl32.Vec3        `json:"position"`
	MovementLocked bool              `json:"movement_locked"`
	CameraLocked   bool              `json:"camera_locked"`
	ActivePosition *host.Position    `json:"active_position,omitempty"`
	ActiveFade     *host.Fade        `json:"active_fade,omitempty"`
	Perspective    *host.Perspective `json:"perspective,omitempty"`
	Instructions   int               `json:"instructions"`
}

// State returns the connection's current state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		ID:             c.id,
		Name:           c.name,
		Position:       c.pos,
		MovementLocked: len(c.movementLocks) > 0,
		CameraLocked:   len(c.cameraLocks) > 0,
		ActivePosition: c.active,
		ActiveFade:     c.fading,
		Perspective:    c.perspective,
		Instructions:   len(c.calls),
	}
}
