// Package apitest is a test extension for the proxy's camera API. It
// registers sub-commands that send randomized fades, camera positions,
// input locks and forced perspectives to every online connection.
package apitest

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"cameraapitest/pkg/command"
	"cameraapitest/pkg/host"
	"cameraapitest/pkg/random"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Scheduler runs delayed per-connection work.
type Scheduler interface {
	Schedule(connID string, delay time.Duration, fn func()) uint64
}

// Settings are the tunables of the extension. They may be swapped at runtime.
type Settings struct {
	// ResetDelay is how long a position test lasts before the camera is cleared.
	ResetDelay time.Duration
	// CameraOffset is added to the player position for position tests.
	CameraOffset mgl32.Vec3
	// FreeCamHeight is the height above the player for the free perspective.
	FreeCamHeight float32
	// LockOwner identifies the locks this extension places.
	LockOwner uuid.UUID
}

// DefaultSettings returns the settings the extension shipped with.
func DefaultSettings() Settings {
	return Settings{
		ResetDelay:    15 * time.Second,
		CameraOffset:  mgl32.Vec3{10, 10, 10},
		FreeCamHeight: 10,
		LockOwner:     uuid.Nil,
	}
}

// Extension holds the handlers for the /apitest commands.
type Extension struct {
	host      host.Host
	rng       *random.Generator
	scheduler Scheduler
	logger    *slog.Logger
	settings  atomic.Pointer[Settings]
}

// New creates the extension.
func New(h host.Host, rng *random.Generator, sched Scheduler, settings Settings, logger *slog.Logger) *Extension {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extension{
		host:      h,
		rng:       rng,
		scheduler: sched,
		logger:    logger,
	}
	e.settings.Store(&settings)
	return e
}

// Settings returns the current settings.
func (e *Extension) Settings() Settings {
	return *e.settings.Load()
}

// UpdateSettings swaps the settings used by subsequent invocations.
func (e *Extension) UpdateSettings(s Settings) {
	e.settings.Store(&s)
	e.logger.Info("Camera API test settings updated",
		"reset_delay", s.ResetDelay,
		"camera_offset", host.FormatVec(s.CameraOffset),
		"free_cam_height", s.FreeCamHeight)
}

// Usage lists one line per command.
func Usage(root string) []string {
	return []string{
		fmt.Sprintf("Usage: /%s fade (stop)", root),
		fmt.Sprintf("Usage: /%s position (stop)", root),
		fmt.Sprintf("Usage: /%s input (movement, camera, both, unlock)", root),
		fmt.Sprintf("Usage: /%s perspective (first, third, third_front, stop, free)", root),
		fmt.Sprintf("Usage: /%s stack", root),
	}
}

// OnEnable logs the usage lines.
func (e *Extension) OnEnable(root string) {
	e.logger.Info("Camera API Extension Test enabled")
	for _, line := range Usage(root) {
		e.logger.Info(line)
	}
}

// Register adds every command to r.
func (e *Extension) Register(r *command.Registry) error {
	e.logger.Info("Registering camera test commands")
	cmds := []command.Command{
		{
			Name:                "fade",
			Description:         "camera fade test (random color/fade time)",
			ExecutableOnConsole: true,
			Execute:             e.Fade,
		},
		{
			Name:                "position",
			Description:         "camera position test (random position/facing/ease type)",
			ExecutableOnConsole: true,
			Execute:             e.Position,
		},
		{
			Name:                "input",
			Description:         "input locks test",
			ExecutableOnConsole: true,
			Execute:             e.Input,
		},
		{
			Name:                "perspective",
			Description:         "force camera perspective",
			ExecutableOnConsole: true,
			Execute:             e.Perspective,
		},
		{
			Name:        "stack",
			Description: "stacked position and fade instruction",
			Execute:     e.Stack,
		},
	}
	for _, c := range cmds {
		if err := r.Register(c); err != nil {
			return fmt.Errorf("register %s: %w", c.Name, err)
		}
	}
	return nil
}

// firstArg returns the lowercased first argument, or "" when there is none.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.ToLower(args[0])
}

// forEach runs fn for every online connection, logging and reporting
// failures without stopping. It returns the first error.
func (e *Extension) forEach(src command.Source, action string, fn func(c host.Connection) error) error {
	var first error
	for _, c := range e.host.OnlineConnections() {
		if err := fn(c); err != nil {
			e.logger.Error("Camera API call failed", "action", action, "connection", c.ID(), "name", c.Name(), "error", err)
			src.SendMessage(fmt.Sprintf("Failed to %s for %s: %v", action, c.Name(), err))
			if first == nil {
				first = fmt.Errorf("%s for %s: %w", action, c.Name(), err)
			}
		}
	}
	return first
}

// clearAll is the shared "stop" behavior.
func (e *Extension) clearAll(src command.Source) error {
	return e.forEach(src, "clear camera instructions", func(c host.Connection) error {
		src.SendMessage("Clearing camera instructions")
		return c.ClearCameraInstructions()
	})
}
