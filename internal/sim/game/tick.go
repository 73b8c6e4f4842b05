package game

import (
	"time"

	"racecore/internal/sim/tuning"
	"racecore/internal/sim/vote"
)

// pureGameTypes only run with default tuning.
var pureGameTypes = map[string]bool{"DM": true, "TDM": true, "CTF": true}

// OnTick advances one server tick. now is the wall clock the vote deadline
// is compared against.
func (c *Context) OnTick(now time.Time) {
	c.checkPureTuning()

	c.world.Tick(c.persistent.tuning)
	// the controller keeps running while the world is paused
	c.controller.Tick()

	for _, p := range c.players {
		if p != nil {
			c.tickPlayer(p)
		}
	}

	c.stepVote(now)
}

func (c *Context) checkPureTuning() {
	if c.controller == nil || !pureGameTypes[c.controller.GameType()] {
		return
	}
	def := tuning.Defaults()
	if !c.persistent.tuning.Equal(def) {
		c.log.Printf("resetting tuning due to pure server")
		c.persistent.tuning = def
	}
}

// startVote opens a session and announces it. Every ballot is reset.
func (c *Context) startVote(desc, cmd string, creator, kickTarget int) error {
	d := c.cfg.Vote.Duration
	if d <= 0 {
		d = 25 * time.Second
	}
	err := c.votes.Start(vote.Session{
		Description: desc,
		Command:     cmd,
		CloseAt:     c.clock.Now().Add(d),
		Creator:     creator,
		KickTarget:  kickTarget,
	})
	if err != nil {
		return err
	}
	c.eachPlayer(func(p *Player) {
		p.Vote = 0
		p.VotePos = 0
	})
	c.SendVoteSet(-1)
	return nil
}

func (c *Context) stepVote(now time.Time) {
	if !c.votes.Active() {
		return
	}
	out := c.votes.Step(now, c.ballots)
	switch out.State {
	case vote.Aborted:
		c.SendChat(-1, ChatAll, "Vote aborted")
		c.SendVoteSet(-1)
	case vote.Passed:
		c.execute(out.Session.Command)
		c.SendVoteSet(-1)
		c.SendChat(-1, ChatAll, "Vote passed")
		if p := c.Player(out.Session.Creator); p != nil {
			p.LastVoteCall = 0
		}
	case vote.Failed:
		c.SendVoteSet(-1)
		c.SendChat(-1, ChatAll, "Vote failed")
	case vote.Active:
		if out.StatusChanged {
			c.SendVoteStatus(-1, out.Tally.Total, out.Tally.Yes, out.Tally.No)
		}
	}
}

// execute runs a stored command line. A failing command is logged and
// otherwise ignored.
func (c *Context) execute(line string) {
	if c.actions == nil {
		c.log.Printf("no executor for %q", line)
		return
	}
	if err := c.actions.Execute(line); err != nil {
		c.log.Printf("command %q failed: %v", line, err)
	}
}
