package race

import (
	"errors"
	"fmt"
	"math"

	"racecore/internal/sim/events"
)

var ErrNoCharacter = errors.New("no character")

// Teleport moves slot's character onto to's character and cancels its run.
func (c *Controller) Teleport(slot, to int) error {
	if c.world == nil {
		return ErrNoCharacter
	}
	dst, ok := c.world.Character(to)
	if !ok {
		return fmt.Errorf("teleport to client %d: %w", to, ErrNoCharacter)
	}
	return c.teleport(slot, dst.Pos)
}

// TeleportTo moves slot's character to world coordinates and cancels its run.
func (c *Controller) TeleportTo(slot, x, y int) error {
	return c.teleport(slot, events.Vec2{X: float64(x), Y: float64(y)})
}

func (c *Controller) teleport(slot int, pos events.Vec2) error {
	if c.world == nil || !c.world.Teleport(slot, pos) {
		return fmt.Errorf("teleport client %d: %w", slot, ErrNoCharacter)
	}
	c.cancelRun(slot)
	c.log.Printf("teleport client=%d to %.0f,%.0f", slot, pos.X, pos.Y)
	return nil
}

// Position reports where slot's character is, rounded to whole units.
func (c *Controller) Position(slot int) (x, y int, err error) {
	if c.world == nil {
		return 0, 0, ErrNoCharacter
	}
	ch, ok := c.world.Character(slot)
	if !ok {
		return 0, 0, fmt.Errorf("client %d: %w", slot, ErrNoCharacter)
	}
	return int(math.Round(ch.Pos.X)), int(math.Round(ch.Pos.Y)), nil
}

func (c *Controller) Paused() bool { return c.world != nil && c.world.Paused() }

func (c *Controller) SetPaused(p bool) {
	if c.world != nil {
		c.world.SetPaused(p)
	}
}

func (c *Controller) cancelRun(slot int) {
	if slot >= 0 && slot < len(c.raceStart) {
		c.raceStart[slot] = 0
	}
}
