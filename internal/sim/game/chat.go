package game

import (
	"fmt"
	"strconv"
	"strings"

	"racecore/internal/protocol"
)

// Version is reported by the /info chat command.
const Version = "2.0"

var cmdList = []string{
	"---Command List---",
	`"/info" information about the mod`,
	`"/mods" shows the used mods`,
	`"/rank" shows your rank`,
	`"/rank NAME" shows the rank of a specific player`,
	`"/top5 X" shows the top 5`,
	`"/show_others" show others players?`,
}

func (c *Context) onSay(p *Player, m *protocol.SayMsg) {
	team := ChatAll
	if m.Team {
		team = p.team
	}

	now := c.server.Tick()
	if c.cfg.SpamProtection && throttled(p.LastChat, now, c.window(1, 1)) {
		// a dropped message still pushes the window out
		p.LastChat = now
		return
	}
	p.LastChat = now

	text := m.Message
	slot := p.ClientID
	switch {
	case text == "/info":
		c.SendChatTarget(slot, fmt.Sprintf("Race mod %s (%s) (say /mods).", Version, c.server.ClientName(slot)))
	case text == "/mods":
		c.SendChatTarget(slot, "Mods used: race scores, vote kick")
	case strings.HasPrefix(text, "/top5"):
		if !c.cfg.Race.ShowTimes {
			c.SendChatTarget(slot, "Showing the Top5 is not allowed on this server.")
			return
		}
		start := 1
		if n, ok := intArg(text, "/top5"); ok {
			start = n
		}
		c.scores.ShowTop5(slot, start)
	case strings.HasPrefix(text, "/rank"):
		if name, ok := wordArg(text, "/rank"); ok && c.cfg.Race.ShowTimes {
			c.scores.ShowRank(slot, name, true)
		} else {
			c.scores.ShowRank(slot, c.server.ClientName(slot), false)
		}
	case text == "/show_others":
		if !c.cfg.Race.ShowOthers && !c.server.IsAuthed(slot) {
			c.SendChatTarget(slot, "This command is not allowed on this server.")
			return
		}
		if p.UsingRaceClient {
			c.SendChatTarget(slot, "Please use the settings to switch this option.")
		} else {
			p.ShowOthers = !p.ShowOthers
		}
	case text == "/cmdlist":
		for _, line := range cmdList {
			c.SendChatTarget(slot, line)
		}
	case strings.HasPrefix(text, "/"):
		c.SendChatTarget(slot, "Wrong command.")
		c.SendChatTarget(slot, `Say "/cmdlist" for list of command available.`)
	default:
		c.SendChat(slot, team, sanitize(text))
	}
}

// sanitize replaces control bytes with spaces.
func sanitize(s string) string {
	b := []byte(s)
	for i, ch := range b {
		if ch < 32 {
			b[i] = ' '
		}
	}
	return string(b)
}

// wordArg returns the first word after cmd and a single space.
func wordArg(text, cmd string) (string, bool) {
	rest, ok := strings.CutPrefix(text, cmd+" ")
	if !ok {
		return "", false
	}
	f := strings.Fields(rest)
	if len(f) == 0 {
		return "", false
	}
	return f[0], true
}

func intArg(text, cmd string) (int, bool) {
	w, ok := wordArg(text, cmd)
	if !ok {
		return 0, false
	}
	return leadingInt(w)
}

// leadingInt parses the optionally signed run of digits that starts s.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " ")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
