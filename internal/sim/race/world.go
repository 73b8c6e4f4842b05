package race

import (
	"math"
	"sort"

	"racecore/internal/sim/events"
	"racecore/internal/sim/game"
	"racecore/internal/sim/tuning"
)

const (
	physSize = 28.0
	maxSpeed = 30.0
)

type Character struct {
	ClientID int
	Pos      events.Vec2
	Vel      events.Vec2
	Grounded bool
}

// CharacterObj is the snapshot form of a character.
type CharacterObj struct {
	Type     string `json:"type" msgpack:"type"`
	ClientID int    `json:"client_id" msgpack:"client_id"`
	X        int    `json:"x" msgpack:"x"`
	Y        int    `json:"y" msgpack:"y"`
	VelX     int    `json:"vel_x" msgpack:"vel_x"`
	VelY     int    `json:"vel_y" msgpack:"vel_y"`
}

// World moves characters under gravity and keeps them out of solid tiles.
type World struct {
	m      *Map
	chars  map[int]*Character
	paused bool
}

var _ game.World = (*World)(nil)

func NewWorld(m *Map) *World {
	return &World{m: m, chars: map[int]*Character{}}
}

func (w *World) SetMap(m *Map) {
	w.m = m
	w.Reset()
}

func (w *World) Reset() { w.chars = map[int]*Character{} }

func (w *World) Paused() bool               { return w.paused }
func (w *World) SetPaused(p bool)           { w.paused = p }
func (w *World) HasCharacter(slot int) bool { return w.chars[slot] != nil }

func (w *World) Character(slot int) (Character, bool) {
	c := w.chars[slot]
	if c == nil {
		return Character{}, false
	}
	return *c, true
}

// Teleport places an existing character at pos and stops it.
func (w *World) Teleport(slot int, pos events.Vec2) bool {
	c := w.chars[slot]
	if c == nil {
		return false
	}
	c.Pos = pos
	c.Vel = events.Vec2{}
	return true
}

func (w *World) SpawnCharacter(slot int, pos events.Vec2) {
	w.chars[slot] = &Character{ClientID: slot, Pos: pos}
}

func (w *World) KillCharacter(slot int, weapon int) (events.Vec2, bool) {
	c := w.chars[slot]
	if c == nil {
		return events.Vec2{}, false
	}
	delete(w.chars, slot)
	return c.Pos, true
}

func (w *World) Tick(params tuning.Params) {
	if w.paused {
		return
	}
	gravity, _ := params.Get("gravity")
	groundFriction, _ := params.Get("ground_friction")
	airFriction, _ := params.Get("air_friction")

	for _, slot := range w.slots() {
		c := w.chars[slot]
		c.Vel.Y += gravity
		if c.Grounded {
			c.Vel.X *= groundFriction
		} else {
			c.Vel.X *= airFriction
		}
		c.Vel.X = clampf(c.Vel.X, -maxSpeed, maxSpeed)
		c.Vel.Y = clampf(c.Vel.Y, -maxSpeed, maxSpeed)
		w.move(c)
	}
}

// move applies velocity one axis at a time, stopping at solid tiles.
func (w *World) move(c *Character) {
	half := physSize / 2
	c.Grounded = false

	nx := c.Pos.X + c.Vel.X
	if w.boxSolid(events.Vec2{X: nx, Y: c.Pos.Y}, half) {
		c.Vel.X = 0
	} else {
		c.Pos.X = nx
	}

	ny := c.Pos.Y + c.Vel.Y
	if w.boxSolid(events.Vec2{X: c.Pos.X, Y: ny}, half) {
		if c.Vel.Y > 0 {
			c.Grounded = true
		}
		c.Vel.Y = 0
	} else {
		c.Pos.Y = ny
	}
}

func (w *World) boxSolid(p events.Vec2, half float64) bool {
	if w.m == nil {
		return false
	}
	return w.m.Solid(events.Vec2{X: p.X - half, Y: p.Y - half}) ||
		w.m.Solid(events.Vec2{X: p.X + half, Y: p.Y - half}) ||
		w.m.Solid(events.Vec2{X: p.X - half, Y: p.Y + half}) ||
		w.m.Solid(events.Vec2{X: p.X + half, Y: p.Y + half})
}

func (w *World) Snap(slot int) []any {
	out := make([]any, 0, len(w.chars))
	for _, s := range w.slots() {
		c := w.chars[s]
		out = append(out, CharacterObj{
			Type:     "character",
			ClientID: c.ClientID,
			X:        int(math.Round(c.Pos.X)),
			Y:        int(math.Round(c.Pos.Y)),
			VelX:     int(math.Round(c.Vel.X * 256)),
			VelY:     int(math.Round(c.Vel.Y * 256)),
		})
	}
	return out
}

func (w *World) slots() []int {
	out := make([]int, 0, len(w.chars))
	for s := range w.chars {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
