// Package events buffers the visual and audio events produced during one
// tick. Each event carries the set of slots allowed to observe it; the
// buffer is drained into per-recipient snapshots and then cleared.
package events

import "racecore/internal/protocol"

// MaxEvents bounds one tick's buffer. Creating past it drops the event.
const MaxEvents = 128

type Kind int

const (
	DamageInd Kind = iota + 1
	HammerHit
	Explosion
	Spawn
	Death
	SoundWorld
)

func (k Kind) String() string {
	switch k {
	case DamageInd:
		return "DAMAGEIND"
	case HammerHit:
		return "HAMMERHIT"
	case Explosion:
		return "EXPLOSION"
	case Spawn:
		return "SPAWN"
	case Death:
		return "DEATH"
	case SoundWorld:
		return "SOUNDWORLD"
	default:
		return "UNKNOWN"
	}
}

type Vec2 struct {
	X float64
	Y float64
}

// Mask has one bit per slot.
type Mask uint64

const MaskAll = ^Mask(0)

func MaskOne(slot int) Mask {
	if slot < 0 || slot >= 64 {
		return 0
	}
	return Mask(1) << uint(slot)
}

func (m Mask) Has(slot int) bool { return m&MaskOne(slot) != 0 }

// MaskWhere sets the bit of every slot in [0,n) for which keep returns true.
func MaskWhere(n int, keep func(slot int) bool) Mask {
	var m Mask
	for i := 0; i < n && i < 64; i++ {
		if keep(i) {
			m |= MaskOne(i)
		}
	}
	return m
}

type Event struct {
	Kind     Kind
	Pos      Vec2
	Angle    int
	ClientID int
	SoundID  int
	Mask     Mask
}

func (e Event) Info() protocol.EventInfo {
	return protocol.EventInfo{
		Type:     e.Kind.String(),
		X:        int(e.Pos.X),
		Y:        int(e.Pos.Y),
		Angle:    e.Angle,
		ClientID: e.ClientID,
		SoundID:  e.SoundID,
	}
}

type Bus struct {
	events []Event
}

func NewBus() *Bus {
	return &Bus{events: make([]Event, 0, 32)}
}

// Create appends an event and returns it for the caller to fill in the
// kind-specific payload. It returns nil when the tick's buffer is full.
func (b *Bus) Create(kind Kind, pos Vec2, mask Mask) *Event {
	if len(b.events) >= MaxEvents {
		return nil
	}
	b.events = append(b.events, Event{Kind: kind, Pos: pos, Mask: mask})
	return &b.events[len(b.events)-1]
}

func (b *Bus) Len() int { return len(b.events) }

// Visible returns the events slot may observe, in creation order.
func (b *Bus) Visible(slot int) []protocol.EventInfo {
	var out []protocol.EventInfo
	for _, e := range b.events {
		if e.Mask.Has(slot) {
			out = append(out, e.Info())
		}
	}
	return out
}

func (b *Bus) Clear() { b.events = b.events[:0] }
