package apitest

import (
	"context"

	"cameraapitest/pkg/command"
	"cameraapitest/pkg/host"

	"github.com/google/uuid"
)

// Input locks or unlocks movement and camera input. With no argument every
// lock this extension owns is released.
func (e *Extension) Input(_ context.Context, src command.Source, args []string) error {
	owner := e.Settings().LockOwner

	if len(args) == 0 {
		src.SendMessage("unlocking all locks")
		src.SendMessage("Valid args: movement, camera, both, unlock")
		return e.forEach(src, "unlock input", func(c host.Connection) error {
			return setLocks(c, false, true, true, owner)
		})
	}

	var (
		lock, movement, camera bool
		msg                    string
	)
	switch firstArg(args) {
	case "stop":
		return e.clearAll(src)
	case "movement":
		lock, movement, msg = true, true, "Locking movement"
	case "camera":
		lock, camera, msg = true, true, "Locking camera"
	case "both":
		lock, movement, camera, msg = true, true, true, "Locking movement and camera"
	case "unlock":
		movement, camera, msg = true, true, "Unlocking movement and camera"
	default:
		src.SendMessage("Invalid input mode: " + args[0])
		src.SendMessage("Valid args: movement, camera, both, unlock")
		return nil
	}

	return e.forEach(src, "set input locks", func(c host.Connection) error {
		src.SendMessage(msg)
		return setLocks(c, lock, movement, camera, owner)
	})
}

// setLocks applies lock to the selected inputs, camera first.
func setLocks(c host.Connection, lock, movement, camera bool, owner uuid.UUID) error {
	if camera {
		if err := c.LockCamera(lock, owner); err != nil {
			return err
		}
	}
	if movement {
		if err := c.LockMovement(lock, owner); err != nil {
			return err
		}
	}
	return nil
}
