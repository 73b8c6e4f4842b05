package game

import (
	"fmt"
	"strings"

	"racecore/internal/protocol"
)

func (c *Context) onCallVote(p *Player, m *protocol.CallVoteMsg) {
	now := c.server.Tick()
	slot := p.ClientID
	if c.cfg.SpamProtection && throttled(p.LastVoteTry, now, c.window(3, 1)) {
		c.SendChatTarget(slot, "Wait a moment before calling another vote")
		return
	}
	p.LastVoteTry = now

	if p.team == TeamSpectators {
		c.SendChatTarget(slot, "Spectators aren't allowed to start a vote.")
		return
	}
	if c.votes.Active() {
		c.SendChatTarget(slot, "Wait for current vote to end before calling a new one.")
		return
	}
	if left := p.LastVoteCall + c.window(60, 1) - now; p.LastVoteCall != 0 && left > 0 {
		secs := left/int64(c.server.TickSpeed()) + 1
		c.SendChatTarget(slot, fmt.Sprintf("You must wait %d seconds before making another vote", secs))
		return
	}

	var announce, desc, cmd string
	target := -1
	switch {
	case strings.EqualFold(m.VoteType, "option"):
		opt, ok := c.persistent.options.Find(m.Value)
		if !ok {
			c.SendChatTarget(slot, fmt.Sprintf("'%s' isn't an option on this server", m.Value))
			return
		}
		announce = fmt.Sprintf("'%s' called vote to change server option '%s'", c.server.ClientName(slot), opt)
		desc, cmd = opt, opt

	case strings.EqualFold(m.VoteType, "kick"):
		if !c.cfg.Vote.Kick {
			c.SendChatTarget(slot, "Server does not allow voting to kick players")
			return
		}
		id, ok := leadingInt(m.Value)
		if !ok || c.Player(id) == nil {
			c.SendChatTarget(slot, "Invalid client id to kick")
			return
		}
		if id == slot {
			c.SendChatTarget(slot, "You cant kick yourself")
			return
		}
		if c.server.IsAuthed(id) {
			c.SendChatTarget(slot, "You cant kick admins")
			c.SendChatTarget(id, fmt.Sprintf("'%s' called for vote to kick you", c.server.ClientName(slot)))
			return
		}

		reason := "No reason given"
		if _, r, found := strings.Cut(m.Value, " "); found {
			reason = r
		}
		name := c.server.ClientName(id)
		announce = fmt.Sprintf("'%s' called for vote to kick '%s' (%s)", c.server.ClientName(slot), name, reason)
		desc = fmt.Sprintf("Kick '%s'", name)
		if bantime := c.cfg.Vote.KickBantime; bantime > 0 {
			cmd = fmt.Sprintf("ban %s %d Banned by vote", c.server.ClientAddr(id), bantime)
		} else {
			cmd = fmt.Sprintf("kick %d Kicked by vote", id)
		}
		target = id

	default:
		c.SendChatTarget(slot, fmt.Sprintf("'%s' isn't a vote type on this server", m.VoteType))
		return
	}

	c.SendChat(-1, ChatAll, announce)
	if err := c.startVote(desc, cmd, slot, target); err != nil {
		c.log.Printf("start vote: %v", err)
		return
	}
	p.Vote = 1
	p.VotePos = 1
	p.LastVoteCall = now
}
