package game

import (
	"errors"
	"fmt"
	"strings"

	"racecore/internal/protocol"
	"racecore/internal/sim/tuning"
	"racecore/internal/sim/vote"
)

var ErrNoSuchParam = errors.New("no such tuning parameter")

// Tune sets one tuning parameter and pushes the new set to everyone.
func (c *Context) Tune(name string, value float64) error {
	if !c.persistent.tuning.Set(name, value) {
		return fmt.Errorf("%w: %s", ErrNoSuchParam, name)
	}
	c.log.Printf("tuning %s changed to %.2f", name, value)
	c.SendTuningParams(-1)
	return nil
}

func (c *Context) TuneReset() {
	c.persistent.tuning = tuning.Defaults()
	c.SendTuningParams(-1)
	c.log.Printf("tuning reset")
}

// TuneDump returns one "name value" line per parameter.
func (c *Context) TuneDump() []string {
	out := make([]string, 0, tuning.Num())
	for i := 0; i < tuning.Num(); i++ {
		out = append(out, fmt.Sprintf("%s %.2f", tuning.Name(i), c.persistent.tuning.Value(i)))
	}
	return out
}

func (c *Context) ChangeMap(name string) { c.controller.ChangeMap(name) }

// Restart starts a new round, or a warmup of the given seconds when > 0.
func (c *Context) Restart(warmup int) {
	if warmup > 0 {
		c.controller.DoWarmup(warmup)
		return
	}
	c.controller.StartRound()
}

func (c *Context) Broadcast(text string) { c.SendBroadcast(text, -1) }

func (c *Context) Say(text string) { c.SendChat(-1, ChatAll, text) }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetTeam moves one slot to team.
func (c *Context) SetTeam(slot, team int) {
	slot = clamp(slot, 0, len(c.players)-1)
	team = clamp(team, TeamSpectators, TeamBlue)
	c.log.Printf("moved client %d to team %d", slot, team)

	p := c.players[slot]
	if p == nil {
		return
	}
	c.setTeam(p, team)
	_ = c.controller.CheckTeamBalance()
}

func (c *Context) SetTeamAll(team int) {
	team = clamp(team, TeamSpectators, TeamBlue)
	c.log.Printf("moved all clients to team %d", team)
	c.eachPlayer(func(p *Player) { c.setTeam(p, team) })
	_ = c.controller.CheckTeamBalance()
}

// AddVoteOption appends an option and announces it to everyone.
func (c *Context) AddVoteOption(line string) error {
	if err := c.persistent.options.Add(line); err != nil {
		c.log.Printf("skipped option '%s': %v", line, err)
		return err
	}
	c.log.Printf("added option '%s'", line)
	c.server.Send(protocol.VoteOptionMsg{Command: line}, protocol.FlagVital, -1)
	return nil
}

func (c *Context) ClearVoteOptions() {
	c.log.Printf("cleared votes")
	c.server.Send(protocol.VoteClearOptionsMsg{}, protocol.FlagVital, -1)
	c.persistent.options.Clear()
}

// ForceVote resolves the running vote on the next tick. Anything other than
// yes or no is ignored.
func (c *Context) ForceVote(result string) {
	switch {
	case strings.EqualFold(result, "yes"):
		c.votes.Force(vote.EnforceYes)
	case strings.EqualFold(result, "no"):
		c.votes.Force(vote.EnforceNo)
	}
	c.log.Printf("forcing vote %s", result)
}

func (c *Context) KillPlayer(slot int) {
	slot = clamp(slot, 0, len(c.players)-1)
	p := c.players[slot]
	if p == nil {
		return
	}
	c.killCharacter(p, WeaponGame)
	c.SendChat(-1, ChatAll, fmt.Sprintf("%s Killed by admin", c.server.ClientName(slot)))
}

// SetMotd replaces the message of the day and re-sends it to everyone.
func (c *Context) SetMotd(text string) {
	c.motd = text
	c.SendMotd()
}

func (c *Context) Motd() string { return c.motd }
