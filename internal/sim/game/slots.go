package game

import (
	"fmt"

	"racecore/internal/sim/vote"
)

// respawn queues a spawn for the next player tick.
func (c *Context) respawn(p *Player) {
	if p.team != TeamSpectators {
		p.spawning = true
	}
}

func (c *Context) killCharacter(p *Player, weapon int) {
	if pos, ok := c.world.KillCharacter(p.ClientID, weapon); ok {
		c.CreateDeath(pos, p.ClientID)
	}
}

// setTeam moves p to team, killing its character and scheduling a respawn.
func (c *Context) setTeam(p *Player, team int) {
	if p.team == team {
		return
	}
	c.SendChat(-1, ChatAll, fmt.Sprintf("'%s' joined the %s", c.server.ClientName(p.ClientID), c.controller.TeamName(team)))

	c.killCharacter(p, WeaponGame)
	p.team = team
	p.spawning = false
	p.RespawnTick = c.server.Tick() + int64(c.server.TickSpeed())/2
	c.log.Printf("team_join player='%d:%s' team=%d", p.ClientID, c.server.ClientName(p.ClientID), team)

	c.controller.OnPlayerInfoChange(p)
}

// tickPlayer runs the respawn countdown for one occupied slot.
func (c *Context) tickPlayer(p *Player) {
	if p.team == TeamSpectators || c.world.HasCharacter(p.ClientID) {
		return
	}
	if !p.spawning && p.RespawnTick <= c.server.Tick() {
		p.spawning = true
	}
	if p.spawning {
		c.trySpawn(p)
	}
}

func (c *Context) trySpawn(p *Player) {
	pos, ok := c.controller.SpawnPos(p)
	if !ok {
		return
	}
	p.spawning = false
	c.world.SpawnCharacter(p.ClientID, pos)
	c.CreatePlayerSpawn(pos, p.ClientID)
}

// ballots snapshots every occupied slot for a recount.
func (c *Context) ballots() []vote.Ballot {
	out := make([]vote.Ballot, 0, len(c.players))
	c.eachPlayer(func(p *Player) {
		out = append(out, vote.Ballot{
			Slot:      p.ClientID,
			Addr:      c.server.ClientAddr(p.ClientID),
			Spectator: p.team == TeamSpectators,
			Value:     p.Vote,
			Pos:       p.VotePos,
		})
	})
	return out
}
