package game

import "racecore/internal/sim/events"

// raceMask limits an event to its owner and to the slots that asked to see
// other players.
func (c *Context) raceMask(owner int) events.Mask {
	return events.MaskWhere(len(c.players), func(slot int) bool {
		if slot == owner {
			return true
		}
		p := c.players[slot]
		return p != nil && p.ShowOthers
	})
}

func (c *Context) CreatePlayerSpawn(pos events.Vec2, slot int) {
	c.events.Create(events.Spawn, pos, c.raceMask(slot))
}

func (c *Context) CreateDeath(pos events.Vec2, slot int) {
	if ev := c.events.Create(events.Death, pos, c.raceMask(slot)); ev != nil {
		ev.ClientID = slot
	}
}
