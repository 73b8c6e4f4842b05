package server

import (
	"fmt"
	"time"

	"racecore/internal/admin"
	"racecore/internal/protocol"
	"racecore/internal/sim/game"
)

var (
	_ game.Server = (*Loop)(nil)
	_ admin.Host  = (*Loop)(nil)
)

func (l *Loop) Tick() int64    { return l.tick }
func (l *Loop) TickSpeed() int { return l.cfg.TickSpeed }

func (l *Loop) client(slot int) *session {
	if slot < 0 || slot >= len(l.sessions) {
		return nil
	}
	return l.sessions[slot]
}

func (l *Loop) ClientName(slot int) string {
	if s := l.client(slot); s != nil {
		return s.name
	}
	return "(invalid)"
}

func (l *Loop) SetClientName(slot int, name string) {
	if s := l.client(slot); s != nil {
		s.name = l.uniqueName(name, slot)
	}
}

func (l *Loop) ClientAddr(slot int) string {
	if s := l.client(slot); s != nil {
		return s.addr
	}
	return ""
}

func (l *Loop) IsAuthed(slot int) bool {
	s := l.client(slot)
	return s != nil && s.authed
}

func (l *Loop) SetBrowseInfo(gameType string) { l.gameType = gameType }

// Send routes msg to one slot or, with target -1, to every client in game.
// Broadcasts without FlagNoRecord go to the demo recorder, and FlagNoSend
// broadcasts go nowhere else.
func (l *Loop) Send(msg protocol.Message, flags protocol.Flags, target int) {
	if target == protocol.TargetAll && !flags.Has(protocol.FlagNoRecord) && l.recorder != nil {
		if err := l.recorder.Record(l.tick, msg); err != nil {
			l.log.Printf("demo: %v", err)
		}
	}
	if flags.Has(protocol.FlagNoSend) {
		return
	}
	if target == protocol.TargetAll {
		for slot, s := range l.sessions {
			if s != nil && s.state == stateInGame {
				l.deliver(slot, s, msg, flags)
			}
		}
		return
	}
	if s := l.client(target); s != nil {
		l.deliver(target, s, msg, flags)
	}
}

func (l *Loop) deliver(slot int, s *session, msg protocol.Message, flags protocol.Flags) {
	if s.dropping {
		return
	}
	if _, ok := msg.(protocol.ReadyToEnterMsg); ok && s.state == stateConnected {
		s.state = stateReadyToEnter
	}
	select {
	case s.out <- Outbound{Msg: msg, Flags: flags}:
	default:
		if flags.Has(protocol.FlagVital) {
			l.log.Printf("send queue full for slot %d, dropping client", slot)
			l.kick(slot, "Too many pending messages")
		}
	}
}

func (l *Loop) kick(slot int, reason string) {
	s := l.sessions[slot]
	if s == nil || s.dropping {
		return
	}
	s.dropping = true
	s.close(reason)
	l.drops = append(l.drops, slot)
	l.log.Printf("kick slot=%d name='%s' reason=%q", slot, s.name, reason)
}

// Kick disconnects slot. The game sees the drop once the current handler
// has returned.
func (l *Loop) Kick(slot int, reason string) error {
	if l.client(slot) == nil {
		return ErrNoSuchClient
	}
	l.kick(slot, reason)
	return nil
}

// Ban adds addr to the ban list and kicks every client connected from it.
func (l *Loop) Ban(addr string, minutes int, reason string) error {
	if l.bans == nil {
		return ErrNoBanList
	}
	if err := l.bans.Ban(addr, time.Duration(minutes)*time.Minute, reason); err != nil {
		return err
	}
	msg := fmt.Sprintf("You have been banned (%s)", reason)
	if minutes > 0 {
		msg = fmt.Sprintf("You have been banned for %d minute(s) (%s)", minutes, reason)
	}
	for slot, s := range l.sessions {
		if s != nil && s.addr == addr {
			l.kick(slot, msg)
		}
	}
	l.log.Printf("ban addr=%s minutes=%d reason=%q", addr, minutes, reason)
	return nil
}

func (l *Loop) Unban(addr string) error {
	if l.bans == nil {
		return ErrNoBanList
	}
	return l.bans.Unban(addr)
}
