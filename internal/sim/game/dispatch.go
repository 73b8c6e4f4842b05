package game

import (
	"fmt"

	"racecore/internal/protocol"
)

// OnMessage validates and handles one inbound client message for slot.
// Malformed payloads are logged and dropped before any state is touched.
func (c *Context) OnMessage(kind protocol.Kind, payload []byte, slot int) {
	p := c.Player(slot)
	if p == nil {
		return
	}
	msg, err := protocol.Unpack(kind, payload)
	if err != nil {
		c.log.Printf("dropped weird message '%s' from %d: %v", kind, slot, err)
		return
	}

	switch m := msg.(type) {
	case *protocol.SayMsg:
		c.onSay(p, m)
	case *protocol.CallVoteMsg:
		c.onCallVote(p, m)
	case *protocol.VoteMsg:
		c.onVote(p, m)
	case *protocol.SetTeamMsg:
		if !c.world.Paused() {
			c.onSetTeam(p, m)
		}
	case *protocol.InfoMsg:
		c.onInfo(p, m, kind == protocol.KindStartInfo)
	case *protocol.EmoticonMsg:
		if !c.world.Paused() {
			c.onEmoticon(p, m)
		}
	case *protocol.KillMsg:
		if !c.world.Paused() {
			c.onKill(p)
		}
	case *protocol.IsRaceMsg:
		c.onIsRace(p)
	case *protocol.RaceShowOthersMsg:
		c.onShowOthers(p, m)
	}
}

func (c *Context) onVote(p *Player, m *protocol.VoteMsg) {
	if !c.votes.Active() || p.Vote != 0 || m.Vote == 0 {
		return
	}
	p.Vote = m.Vote
	p.VotePos = c.votes.NextPos()
}

func (c *Context) onSetTeam(p *Player, m *protocol.SetTeamMsg) {
	now := c.server.Tick()
	if p.team == m.Team || (c.cfg.SpamProtection && throttled(p.LastSetTeam, now, c.window(3, 1))) {
		return
	}
	if !c.controller.CanJoinTeam(m.Team, p.ClientID) {
		c.SendBroadcast(fmt.Sprintf("Only %d active players are allowed", c.cfg.ActivePlayers()), p.ClientID)
		return
	}
	if !c.controller.CanChangeTeam(p, m.Team) {
		c.SendBroadcast("Teams must be balanced, please join other team", p.ClientID)
		return
	}

	p.LastSetTeam = now
	if p.team == TeamSpectators || m.Team == TeamSpectators {
		c.votes.MarkDirty()
	}
	c.setTeam(p, m.Team)
	_ = c.controller.CheckTeamBalance()
}

func (c *Context) onInfo(p *Player, m *protocol.InfoMsg, start bool) {
	now := c.server.Tick()
	if c.cfg.SpamProtection && throttled(p.LastChangeInfo, now, c.window(5, 1)) {
		return
	}
	p.LastChangeInfo = now

	p.Skin.UseCustomColor = m.UseCustomColor
	p.Skin.ColorBody = m.ColorBody
	p.Skin.ColorFeet = m.ColorFeet

	old := c.server.ClientName(p.ClientID)
	c.server.SetClientName(p.ClientID, m.Name)
	if cur := c.server.ClientName(p.ClientID); !start && cur != old {
		c.SendChat(-1, ChatAll, fmt.Sprintf("'%s' changed name to '%s'", old, cur))
	}

	p.Skin.Name = m.Skin
	c.controller.OnPlayerInfoChange(p)

	if !start {
		return
	}
	c.server.Send(protocol.VoteClearOptionsMsg{}, protocol.FlagVital, p.ClientID)
	for _, opt := range c.persistent.options.All() {
		c.server.Send(protocol.VoteOptionMsg{Command: opt}, protocol.FlagVital, p.ClientID)
	}
	c.SendTuningParams(p.ClientID)
	c.server.Send(protocol.ReadyToEnterMsg{}, protocol.FlagVital|protocol.FlagFlush, p.ClientID)
}

func (c *Context) onEmoticon(p *Player, m *protocol.EmoticonMsg) {
	now := c.server.Tick()
	if c.cfg.SpamProtection && throttled(p.LastEmote, now, c.window(3, 1)) {
		return
	}
	p.LastEmote = now
	c.SendEmoticon(p.ClientID, m.Emoticon)
}

func (c *Context) onKill(p *Player) {
	now := c.server.Tick()
	if throttled(p.LastKill, now, c.window(1, 2)) {
		return
	}
	p.LastKill = now
	c.killCharacter(p, WeaponSelf)
	p.RespawnTick = now
}

func (c *Context) onIsRace(p *Player) {
	p.UsingRaceClient = true
	if !c.cfg.Race.ShowTimes {
		return
	}
	c.SendRecord(p.ClientID)
	c.sendPlayerTimes(p.ClientID)
}

func (c *Context) onShowOthers(p *Player, m *protocol.RaceShowOthersMsg) {
	if !c.cfg.Race.ShowOthers && !c.server.IsAuthed(p.ClientID) {
		return
	}
	now := c.server.Tick()
	if throttled(p.LastShowOthers, now, c.window(1, 2)) {
		return
	}
	p.LastShowOthers = now
	p.ShowOthers = m.Active
}
