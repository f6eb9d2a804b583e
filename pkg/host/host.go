package host

import (
	"errors"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

var (
	// ErrConnectionClosed is returned when an instruction targets a session that has gone away.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrInvalidInstruction is returned when a camera instruction is outside the limits the client accepts.
	ErrInvalidInstruction = errors.New("invalid camera instruction")
)

// Host defines the capability surface the proxy exposes to extensions.
type Host interface {
	// OnlineConnections returns every currently connected Bedrock session.
	OnlineConnections() []Connection
}

// Connection is a single connected client as seen by the proxy.
type Connection interface {
	// ID returns the proxy-assigned session identifier.
	ID() string
	// Name returns the player's display name.
	Name() string
	// PlayerPosition returns the current position of the player entity.
	PlayerPosition() mgl32.Vec3

	// SendCameraFade sends a full-screen color fade.
	SendCameraFade(f Fade) error
	// SendCameraPosition moves the camera to a fixed position.
	SendCameraPosition(p Position) error
	// ClearCameraInstructions returns the camera to the player and stops any fade.
	ClearCameraInstructions() error
	// ForceCameraPerspective overrides the client's view mode.
	ForceCameraPerspective(p Perspective) error

	// LockMovement adds or removes a movement lock held by owner.
	LockMovement(lock bool, owner uuid.UUID) error
	// LockCamera adds or removes a camera input lock held by owner.
	LockCamera(lock bool, owner uuid.UUID) error
}

// Instruction kinds as reported in events and journals.
const (
	KindFade         = "camera_fade"
	KindPosition     = "camera_position"
	KindClear        = "clear_instructions"
	KindPerspective  = "force_perspective"
	KindLockMovement = "lock_movement"
	KindLockCamera   = "lock_camera"
)

// EventType distinguishes host events.
type EventType string

const (
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventInstruction  EventType = "instruction"
)

// Event is published by hosts that support observation (connects, disconnects, instructions).
type Event struct {
	Type         EventType `json:"type"`
	ConnectionID string    `json:"connection_id"`
	Connection   string    `json:"connection"`
	Kind         string    `json:"kind,omitempty"`
	Payload      any       `json:"payload,omitempty"`
	Time         time.Time `json:"time"`
}

// LockPayload is the event payload for lock instructions.
type LockPayload struct {
	Lock  bool      `json:"lock"`
	Owner uuid.UUID `json:"owner"`
}
