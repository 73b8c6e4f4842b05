package game

import (
	"time"

	"racecore/internal/protocol"
)

// SendChatTarget sends a server notice to one slot, or everyone with -1.
func (c *Context) SendChatTarget(to int, text string) {
	c.server.Send(protocol.ChatMsg{Team: 0, ClientID: -1, Message: text}, protocol.FlagVital, to)
}

// SendChat sends chat from chatter (-1 for the server) to everyone when team
// is ChatAll, otherwise to the occupants of team.
func (c *Context) SendChat(chatter, team int, text string) {
	if chatter >= 0 && chatter < len(c.players) {
		c.log.Printf("chat %d:%d:%s: %s", chatter, team, c.server.ClientName(chatter), text)
	} else {
		c.log.Printf("chat *** %s", text)
	}

	if team == ChatAll {
		c.server.Send(protocol.ChatMsg{Team: 0, ClientID: chatter, Message: text}, protocol.FlagVital, protocol.TargetAll)
		return
	}

	msg := protocol.ChatMsg{Team: 1, ClientID: chatter, Message: text}
	// one copy for the recording only
	c.server.Send(msg, protocol.FlagVital|protocol.FlagNoSend, protocol.TargetAll)
	c.eachPlayer(func(p *Player) {
		if p.team == team {
			c.server.Send(msg, protocol.FlagVital|protocol.FlagNoRecord, p.ClientID)
		}
	})
}

func (c *Context) SendBroadcast(text string, to int) {
	c.server.Send(protocol.BroadcastMsg{Message: text}, protocol.FlagVital, to)
}

func (c *Context) SendEmoticon(slot, emoticon int) {
	c.server.Send(protocol.EmoticonOutMsg{ClientID: slot, Emoticon: emoticon}, protocol.FlagVital, protocol.TargetAll)
}

// SendRecord sends the server record to race clients: to slot, or to every
// race client with -1.
func (c *Context) SendRecord(slot int) {
	msg := protocol.RecordMsg{Time: millis(c.scores.Record())}
	if slot == protocol.TargetAll {
		c.eachPlayer(func(p *Player) {
			if p.UsingRaceClient {
				c.server.Send(msg, protocol.FlagVital, p.ClientID)
			}
		})
		return
	}
	if p := c.Player(slot); p != nil && p.UsingRaceClient {
		c.server.Send(msg, protocol.FlagVital, slot)
	}
}

// SendTuningParams sends every tuning parameter to slot, or everyone with -1.
func (c *Context) SendTuningParams(slot int) {
	c.checkPureTuning()
	c.server.Send(protocol.TuneParamsMsg{Params: c.persistent.tuning.Ints()}, protocol.FlagVital, slot)
}

// SendVoteSet announces the running vote, or its end when none is running.
func (c *Context) SendVoteSet(slot int) {
	msg := protocol.VoteSetMsg{}
	if s, ok := c.votes.Current(); ok {
		msg.Timeout = int(c.votes.Remaining(c.clock.Now()).Seconds())
		msg.Description = s.Description
	}
	c.server.Send(msg, protocol.FlagVital, slot)
}

func (c *Context) SendVoteStatus(slot, total, yes, no int) {
	msg := protocol.VoteStatusMsg{Total: total, Yes: yes, No: no, Pass: total - (yes + no)}
	c.server.Send(msg, protocol.FlagVital, slot)
}

// SendMotd sends the message of the day to every occupied slot.
func (c *Context) SendMotd() {
	c.eachPlayer(func(p *Player) {
		c.server.Send(protocol.MotdMsg{Message: c.motd}, protocol.FlagVital, p.ClientID)
	})
}

func (c *Context) sendPlayerTimes(to int) {
	c.eachPlayer(func(p *Player) {
		cur := c.scores.PlayerData(p.ClientID).CurTime
		if cur <= 0 {
			return
		}
		c.server.Send(protocol.PlayerTimeMsg{Time: millis(cur), ClientID: p.ClientID}, protocol.FlagVital, to)
	})
}

func millis(d time.Duration) int {
	return int(d.Round(time.Millisecond) / time.Millisecond)
}
