package admin

import (
	"fmt"
	"strings"
)

// RegisterGame installs the game and host commands.
func RegisterGame(c *Console, g Game, h Host) {
	c.Register("tune", "sf", "set a tuning parameter", func(a Args) ([]string, error) {
		if err := g.Tune(a.String(0), a.Float(1)); err != nil {
			return []string{"No such tuning parameter"}, err
		}
		return []string{fmt.Sprintf("%s changed to %.2f", a.String(0), a.Float(1))}, nil
	})
	c.Register("tune_reset", "", "reset tuning to defaults", func(Args) ([]string, error) {
		g.TuneReset()
		return []string{"Tuning reset"}, nil
	})
	c.Register("tune_dump", "", "print every tuning parameter", func(Args) ([]string, error) {
		return g.TuneDump(), nil
	})
	c.Register("change_map", "?r", "change to another map", func(a Args) ([]string, error) {
		g.ChangeMap(a.String(0))
		return nil, nil
	})
	c.Register("restart", "?i", "restart the round, optionally with a warmup", func(a Args) ([]string, error) {
		g.Restart(a.Int(0))
		return nil, nil
	})
	c.Register("broadcast", "r", "show a broadcast to everyone", func(a Args) ([]string, error) {
		g.Broadcast(a.String(0))
		return nil, nil
	})
	c.Register("say", "r", "chat as the server", func(a Args) ([]string, error) {
		g.Say(a.String(0))
		return nil, nil
	})
	c.Register("set_team", "ii", "move a player to a team", func(a Args) ([]string, error) {
		g.SetTeam(a.Int(0), a.Int(1))
		return []string{fmt.Sprintf("moved client %d to team %d", a.Int(0), a.Int(1))}, nil
	})
	c.Register("set_team_all", "i", "move everyone to a team", func(a Args) ([]string, error) {
		g.SetTeamAll(a.Int(0))
		return []string{fmt.Sprintf("moved all clients to team %d", a.Int(0))}, nil
	})
	c.Register("addvote", "r", "add a vote option", func(a Args) ([]string, error) {
		if err := g.AddVoteOption(a.String(0)); err != nil {
			return []string{fmt.Sprintf("skipped option '%s': %v", a.String(0), err)}, err
		}
		return []string{fmt.Sprintf("added option '%s'", a.String(0))}, nil
	})
	c.Register("clear_votes", "", "remove every vote option", func(Args) ([]string, error) {
		g.ClearVoteOptions()
		return []string{"cleared votes"}, nil
	})
	c.Register("vote", "s", "force the running vote: yes or no", func(a Args) ([]string, error) {
		res := strings.ToLower(a.String(0))
		if res != "yes" && res != "no" {
			return nil, fmt.Errorf("%w: vote takes yes or no", ErrBadArgs)
		}
		g.ForceVote(res)
		return []string{fmt.Sprintf("forcing vote %s", res)}, nil
	})
	c.Register("kill_pl", "i", "kill a player", func(a Args) ([]string, error) {
		g.KillPlayer(a.Int(0))
		return nil, nil
	})
	c.Register("motd", "?r", "set the message of the day", func(a Args) ([]string, error) {
		g.SetMotd(a.String(0))
		return nil, nil
	})

	if h == nil {
		return
	}
	c.Register("kick", "i?r", "disconnect a player", func(a Args) ([]string, error) {
		reason := a.String(1)
		if reason == "" {
			reason = "Kicked by console"
		}
		if err := h.Kick(a.Int(0), reason); err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("kicked client %d (%s)", a.Int(0), reason)}, nil
	})
	c.Register("ban", "si?r", "ban an address for some minutes, 0 for ever", func(a Args) ([]string, error) {
		reason := a.String(2)
		if reason == "" {
			reason = "Banned by console"
		}
		if err := h.Ban(a.String(0), a.Int(1), reason); err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("banned %s for %d minutes (%s)", a.String(0), a.Int(1), reason)}, nil
	})
	c.Register("unban", "s", "lift a ban", func(a Args) ([]string, error) {
		if err := h.Unban(a.String(0)); err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("unbanned %s", a.String(0))}, nil
	})
}

// RegisterRace installs the race mode commands.
func RegisterRace(c *Console, r Race) {
	c.Register("teleport", "ii", "move a player onto another player", func(a Args) ([]string, error) {
		if err := r.Teleport(a.Int(0), a.Int(1)); err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("teleported client %d to client %d", a.Int(0), a.Int(1))}, nil
	})
	c.Register("teleport_to", "iii", "move a player to a position", func(a Args) ([]string, error) {
		if err := r.TeleportTo(a.Int(0), a.Int(1), a.Int(2)); err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("teleported client %d to %d @ %d", a.Int(0), a.Int(1), a.Int(2))}, nil
	})
	c.Register("get_pos", "i", "print a player's position", func(a Args) ([]string, error) {
		x, y, err := r.Position(a.Int(0))
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("client %d pos: %d @ %d", a.Int(0), x, y)}, nil
	})
	c.Register("pause", "?i", "toggle the world pause, or set it with 0 or 1", func(a Args) ([]string, error) {
		p := !r.Paused()
		if a.Len() > 0 {
			p = a.Int(0) != 0
		}
		r.SetPaused(p)
		if p {
			return []string{"world paused"}, nil
		}
		return []string{"world resumed"}, nil
	})
}
