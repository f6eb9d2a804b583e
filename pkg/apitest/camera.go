package apitest

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	"cameraapitest/pkg/command"
	"cameraapitest/pkg/host"

	"github.com/go-gl/mathgl/mgl32"
)

// Fade sends a random fade to everyone, or clears camera instructions with "stop".
func (e *Extension) Fade(_ context.Context, src command.Source, args []string) error {
	if firstArg(args) == "stop" {
		return e.clearAll(src)
	}

	c := e.rng.Color()
	times := e.rng.FadeTimes()
	fade := host.Fade{
		Color:   c,
		FadeIn:  times.FadeIn,
		Hold:    times.Hold,
		FadeOut: times.FadeOut,
	}

	src.SendMessage(fmt.Sprintf("Fading to %d, %d, %d over %.2f seconds", c.R, c.G, c.B, fade.Total()))

	return e.forEach(src, "send camera fade", func(conn host.Connection) error {
		return conn.SendCameraFade(fade)
	})
}

// Position moves every camera to a random eased position offset from the
// player and schedules a reset.
func (e *Extension) Position(_ context.Context, src command.Source, args []string) error {
	if firstArg(args) == "stop" {
		return e.clearAll(src)
	}

	s := e.Settings()
	params := e.rng.PositionParams()

	return e.forEach(src, "send camera position", func(conn host.Connection) error {
		player := conn.PlayerPosition()
		pos := host.Position{
			Position:               player.Add(s.CameraOffset),
			Ease:                   &host.Ease{Type: params.Ease, Seconds: params.EaseSeconds},
			RenderPlayerEffects:    params.RenderPlayerEffects,
			PlayerPositionForAudio: params.PlayerPositionForAudio,
		}
		if params.Facing {
			pos.Facing = &player
		} else {
			pos.RotationX, pos.RotationY = e.rng.Rotation()
		}

		if err := conn.SendCameraPosition(pos); err != nil {
			return err
		}

		id := conn.ID()
		e.scheduler.Schedule(id, s.ResetDelay, func() {
			if err := conn.ClearCameraInstructions(); err != nil {
				e.logger.Warn("Camera reset failed", "connection", id, "error", err)
				return
			}
			e.logger.Debug("Camera reset", "connection", id)
		})

		src.SendMessage(describePosition(pos, s))
		return nil
	})
}

func describePosition(pos host.Position, s Settings) string {
	var b strings.Builder
	b.WriteString("Sent camera position: \n")
	fmt.Fprintf(&b, "easeType: %s\n", pos.Ease.Type)
	fmt.Fprintf(&b, "easeDuration: %.2f\n", pos.Ease.Seconds)
	fmt.Fprintf(&b, "renderPlayerEffects: %t\n", pos.RenderPlayerEffects)
	fmt.Fprintf(&b, "playerPositionForAudio: %t\n", pos.PlayerPositionForAudio)
	fmt.Fprintf(&b, "position: %s\n", host.FormatVec(pos.Position))
	if pos.Facing != nil {
		fmt.Fprintf(&b, "facing position: %s\n", host.FormatVec(*pos.Facing))
	} else {
		fmt.Fprintf(&b, "rotationX: %d\n", pos.RotationX)
		fmt.Fprintf(&b, "rotationY: %d\n", pos.RotationY)
	}
	fmt.Fprintf(&b, "Resetting camera in %g seconds", s.ResetDelay.Seconds())
	return b.String()
}

// Perspective forces a view mode, or builds a free camera above the player.
func (e *Extension) Perspective(_ context.Context, src command.Source, args []string) error {
	var (
		mode  host.Perspective
		label string
	)
	switch firstArg(args) {
	case "stop":
		return e.clearAll(src)
	case "first":
		mode, label = host.FirstPerson, "first person"
	case "third":
		mode, label = host.ThirdPerson, "third person"
	case "third_front":
		mode, label = host.ThirdPersonFront, "third person front"
	case "free":
		return e.freeCamera(src)
	default:
		src.SendMessage("Invalid perspective")
		src.SendMessage("Valid perspectives: first, third, third_front, stop, free")
		return nil
	}

	return e.forEach(src, "force camera perspective", func(conn host.Connection) error {
		src.SendMessage("Setting camera perspective to " + label)
		return conn.ForceCameraPerspective(mode)
	})
}

func (e *Extension) freeCamera(src command.Source) error {
	s := e.Settings()
	return e.forEach(src, "send free camera", func(conn host.Connection) error {
		src.SendMessage("Setting camera perspective to free")
		player := conn.PlayerPosition()
		return conn.SendCameraPosition(host.Position{
			Position: player.Add(upBy(s.FreeCamHeight)),
			Facing:   &player,
		})
	})
}

func upBy(h float32) mgl32.Vec3 {
	return mgl32.Vec3{0, h, 0}
}

// Stack shows that a fade can ride along with a position instruction.
// Only a connected player can run it; the instruction goes to that player.
func (e *Extension) Stack(_ context.Context, src command.Source, _ []string) error {
	conn, ok := src.(host.Connection)
	if !ok {
		src.SendMessage("Only players can stack camera instructions")
		return nil
	}

	src.SendMessage("You can stack position and fade instructions!")
	s := e.Settings()
	player := conn.PlayerPosition()
	err := conn.SendCameraPosition(host.Position{
		Position: player.Add(s.CameraOffset),
		Fade: &host.Fade{
			Color:   color.RGBA{R: 0xff, A: 0xff},
			FadeIn:  1,
			Hold:    1,
			FadeOut: 1,
		},
		Ease:                &host.Ease{Type: host.EaseLinear, Seconds: 2},
		RenderPlayerEffects: true,
		Facing:              &player,
	})
	if err != nil {
		e.logger.Error("Camera API call failed", "action", "stack", "connection", conn.ID(), "error", err)
		src.SendMessage(fmt.Sprintf("Failed to stack instructions: %v", err))
		return fmt.Errorf("stack for %s: %w", conn.Name(), err)
	}
	return nil
}
