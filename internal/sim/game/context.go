// Package game is the authoritative per-tick core of the server: the slot
// table, inbound message dispatch, the vote coordinator, the event bus and
// outbound broadcasts.
//
// A Context is owned by a single goroutine. Every entry point (OnTick,
// OnMessage, the client lifecycle hooks and the admin operations) must be
// called from that goroutine; nothing here locks.
package game

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"racecore/internal/config"
	"racecore/internal/protocol"
	"racecore/internal/sim/events"
	"racecore/internal/sim/tuning"
	"racecore/internal/sim/vote"
)

// ChatAll addresses chat to everybody; other chat targets are team ids.
const ChatAll = -2

// EntityOffset is the first tile index that denotes an entity.
const EntityOffset = 255 - 16*4

// persistent is the state that survives Clear.
type persistent struct {
	options vote.Options
	tuning  tuning.Params
}

type Context struct {
	deps Deps

	server     Server
	controller Controller
	world      World
	scores     Scores
	actions    Actions
	clock      Clock
	log        *log.Logger

	cfg  config.Config
	motd string

	players [config.MaxClients]*Player
	events  *events.Bus
	votes   vote.Coordinator

	persistent persistent
}

func New(cfg config.Config, d Deps) (*Context, error) {
	if d.Server == nil || d.Controller == nil || d.World == nil {
		return nil, errors.New("game: server, controller and world are required")
	}
	c := newContext(cfg, d)
	c.persistent.tuning = tuning.Defaults()
	return c, nil
}

func newContext(cfg config.Config, d Deps) *Context {
	if d.Clock == nil {
		d.Clock = ClockFunc(time.Now)
	}
	if d.Logger == nil {
		d.Logger = log.New(os.Stdout, "[game] ", log.LstdFlags)
	}
	if d.Scores == nil {
		d.Scores = nopScores{}
	}
	return &Context{
		deps:       d,
		server:     d.Server,
		controller: d.Controller,
		world:      d.World,
		scores:     d.Scores,
		actions:    d.Actions,
		clock:      d.Clock,
		log:        d.Logger,
		cfg:        cfg,
		motd:       cfg.Motd,
		events:     events.NewBus(),
	}
}

// SetActions wires the executor used for passed votes.
func (c *Context) SetActions(a Actions) {
	c.actions = a
	c.deps.Actions = a
}

// SetTuning replaces the tuning parameters, e.g. from a tuning file.
func (c *Context) SetTuning(p tuning.Params) { c.persistent.tuning = p }

// Clear rebuilds all per-round state, keeping the vote options and tuning.
func (c *Context) Clear() {
	keep := c.persistent
	motd := c.motd
	*c = *newContext(c.cfg, c.deps)
	c.persistent = keep
	c.motd = motd
}

func (c *Context) Config() config.Config { return c.cfg }

func (c *Context) Tuning() tuning.Params { return c.persistent.tuning }

func (c *Context) Options() []string { return c.persistent.options.All() }

func (c *Context) Events() *events.Bus { return c.events }

func (c *Context) VoteActive() bool { return c.votes.Active() }

func (c *Context) CurrentVote() (vote.Session, bool) { return c.votes.Current() }

// Player returns the occupant of slot, or nil.
func (c *Context) Player(slot int) *Player {
	if slot < 0 || slot >= len(c.players) {
		return nil
	}
	return c.players[slot]
}

func (c *Context) eachPlayer(fn func(p *Player)) {
	for _, p := range c.players {
		if p != nil {
			fn(p)
		}
	}
}

// OnInit announces the game type and feeds the map's entity tiles to the
// controller.
func (c *Context) OnInit() {
	c.server.SetBrowseInfo(c.controller.GameType())
	if m := c.deps.Map; m != nil {
		w, h, tiles := m.GameLayer()
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				if i >= len(tiles) || tiles[i] < EntityOffset {
					continue
				}
				pos := events.Vec2{X: float64(x)*32 + 16, Y: float64(y)*32 + 16}
				c.controller.OnEntity(tiles[i]-EntityOffset, pos)
			}
		}
	}
	c.log.Printf("init game_type=%s", c.controller.GameType())
}

func (c *Context) OnShutdown() {
	c.log.Printf("shutdown")
	c.Clear()
}

func (c *Context) OnClientConnected(slot int) {
	if slot < 0 || slot >= len(c.players) {
		return
	}
	team := TeamSpectators
	if !c.cfg.TournamentMode {
		team = c.controller.AutoTeam(slot)
	}
	c.players[slot] = newPlayer(slot, team)
	_ = c.controller.CheckTeamBalance()

	if c.votes.Active() {
		c.SendVoteSet(slot)
	}
	c.server.Send(protocol.MotdMsg{Message: c.motd}, protocol.FlagVital, slot)
}

func (c *Context) OnClientEnter(slot int) {
	p := c.Player(slot)
	if p == nil {
		return
	}
	p.entered = true
	c.respawn(p)
	p.Score = -9999

	c.scores.ResetPlayer(slot)
	c.scores.LoadScore(slot, c.server.ClientName(slot))

	name := c.server.ClientName(slot)
	c.SendChat(-1, ChatAll, fmt.Sprintf("'%s' entered and joined the %s", name, c.controller.TeamName(p.team)))
	c.log.Printf("team_join player='%d:%s' team=%d", slot, name, p.team)

	c.votes.MarkDirty()
}

func (c *Context) OnClientDrop(slot int) {
	p := c.Player(slot)
	if p == nil {
		return
	}
	c.votes.AbortForTarget(slot)
	c.killCharacter(p, WeaponGame)
	if p.entered {
		c.SendChat(-1, ChatAll, fmt.Sprintf("'%s' has left the game", c.server.ClientName(slot)))
	}
	c.players[slot] = nil

	_ = c.controller.CheckTeamBalance()
	c.votes.MarkDirty()
}

// OnSnap sends slot its view of the current tick.
func (c *Context) OnSnap(slot int) {
	if c.Player(slot) == nil {
		return
	}
	snap := protocol.SnapshotMsg{
		Tick:   c.server.Tick(),
		Events: c.events.Visible(slot),
	}
	snap.Objects = append(snap.Objects, c.world.Snap(slot)...)
	snap.Objects = append(snap.Objects, c.controller.Snap(slot)...)
	c.eachPlayer(func(p *Player) {
		snap.Players = append(snap.Players, p.info(c.server.ClientName(p.ClientID), p.ClientID == slot))
	})
	c.server.Send(snap, protocol.FlagNoRecord, slot)
}

// OnPostSnap drops this tick's events once every recipient has its snapshot.
func (c *Context) OnPostSnap() { c.events.Clear() }

type nopScores struct{}

func (nopScores) ResetPlayer(int)            {}
func (nopScores) LoadScore(int, string)      {}
func (nopScores) PlayerData(int) PlayerData  { return PlayerData{} }
func (nopScores) Record() time.Duration      { return 0 }
func (nopScores) ShowTop5(int, int)          {}
func (nopScores) ShowRank(int, string, bool) {}
