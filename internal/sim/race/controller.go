// Package race is the default game mode: players run from a start line to
// a finish line and their times go to the score store.
package race

import (
	"fmt"
	"log"
	"os"
	"time"

	"racecore/internal/config"
	"racecore/internal/sim/events"
	"racecore/internal/sim/game"
)

// GameType is advertised unless the config names another.
const GameType = "race"

// Game is the part of game.Context the controller reports to.
type Game interface {
	Player(slot int) *game.Player
	SendChat(chatter, team int, text string)
	SendChatTarget(to int, text string)
	SendRecord(slot int)
}

// Host supplies the clock and client names.
type Host interface {
	Tick() int64
	TickSpeed() int
	ClientName(slot int) string
}

// Scores receives finished runs.
type Scores interface {
	PlayerData(slot int) game.PlayerData
	Finish(slot int, t time.Duration) (personal, record bool)
}

// GameInfo is the controller's snapshot object.
type GameInfo struct {
	Type       string `json:"type" msgpack:"type"`
	GameType   string `json:"game_type" msgpack:"game_type"`
	Map        string `json:"map" msgpack:"map"`
	RoundStart int64  `json:"round_start" msgpack:"round_start"`
	Warmup     int64  `json:"warmup,omitempty" msgpack:"warmup,omitempty"`
	RaceStart  int64  `json:"race_start,omitempty" msgpack:"race_start,omitempty"`
}

type Controller struct {
	cfg    config.Config
	world  *World
	m      *Map
	scores Scores
	log    *log.Logger

	game Game
	host Host

	gameType   string
	spawns     []events.Vec2
	mapName    string
	roundStart int64
	warmup     int64
	raceStart  [config.MaxClients]int64
}

var _ game.Controller = (*Controller)(nil)

func NewController(cfg config.Config, w *World, m *Map, scores Scores, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(os.Stderr, "[race] ", log.LstdFlags)
	}
	c := &Controller{cfg: cfg, world: w, m: m, scores: scores, log: logger, gameType: cfg.GameType}
	if c.gameType == "" {
		c.gameType = GameType
	}
	if m != nil {
		c.mapName = m.Name
	}
	return c
}

// Bind connects the controller to the running game and its host.
func (c *Controller) Bind(g Game, h Host) {
	c.game = g
	c.host = h
	c.roundStart = c.tick()
}

func (c *Controller) tick() int64 {
	if c.host == nil {
		return 0
	}
	return c.host.Tick()
}

func (c *Controller) tickSpeed() int64 {
	if c.host == nil || c.host.TickSpeed() <= 0 {
		return 50
	}
	return int64(c.host.TickSpeed())
}

func (c *Controller) GameType() string { return c.gameType }

func (c *Controller) MapName() string { return c.mapName }

func (c *Controller) OnEntity(index int, pos events.Vec2) bool {
	switch index {
	case EntitySpawn, EntitySpawnRed, EntitySpawnBlue:
		c.spawns = append(c.spawns, pos)
		return true
	}
	return false
}

func (c *Controller) Tick() {
	if c.warmup > 0 {
		c.warmup--
		if c.warmup == 0 {
			c.StartRound()
		}
		return
	}
	if c.m == nil || c.world == nil {
		return
	}
	now := c.tick()
	for _, slot := range c.world.slots() {
		ch := c.world.chars[slot]
		switch c.m.TileAt(ch.Pos) {
		case TileBegin:
			c.raceStart[slot] = now
		case TileEnd:
			if c.raceStart[slot] != 0 {
				c.finish(slot, now-c.raceStart[slot])
				c.raceStart[slot] = 0
			}
		}
	}
}

func (c *Controller) finish(slot int, ticks int64) {
	d := time.Duration(ticks) * time.Second / time.Duration(c.tickSpeed())
	var prev time.Duration
	personal, record := true, false
	if c.scores != nil {
		prev = c.scores.PlayerData(slot).BestTime
		personal, record = c.scores.Finish(slot, d)
	}
	c.log.Printf("finish slot=%d time=%s personal=%v record=%v", slot, d, personal, record)
	if c.game == nil {
		return
	}

	mins := int(d / time.Minute)
	secs := (d % time.Minute).Seconds()
	c.game.SendChat(-1, game.ChatAll, fmt.Sprintf("'%s' finished in: %d minute(s) %.2f second(s)", c.name(slot), mins, secs))
	if personal && prev > 0 {
		c.game.SendChatTarget(slot, fmt.Sprintf("New record: %.2f second(s) better", (prev - d).Seconds()))
	}
	if record {
		c.game.SendRecord(-1)
	}
}

func (c *Controller) name(slot int) string {
	if c.host == nil {
		return fmt.Sprintf("%d", slot)
	}
	return c.host.ClientName(slot)
}

func (c *Controller) Snap(slot int) []any {
	info := GameInfo{
		Type:       "game_info",
		GameType:   GameType,
		Map:        c.mapName,
		RoundStart: c.roundStart,
		Warmup:     c.warmup,
	}
	if slot >= 0 && slot < len(c.raceStart) {
		info.RaceStart = c.raceStart[slot]
	}
	return []any{info}
}

func (c *Controller) activePlayers(except int) int {
	if c.game == nil {
		return 0
	}
	n := 0
	for i := 0; i < config.MaxClients; i++ {
		if i == except {
			continue
		}
		if p := c.game.Player(i); p != nil && !p.IsSpectator() {
			n++
		}
	}
	return n
}

func (c *Controller) AutoTeam(slot int) int {
	if c.activePlayers(slot) < c.cfg.ActivePlayers() {
		return game.TeamRed
	}
	return game.TeamSpectators
}

func (c *Controller) CanJoinTeam(team, slot int) bool {
	if team == game.TeamSpectators {
		return true
	}
	return c.activePlayers(slot) < c.cfg.ActivePlayers()
}

// Race has a single team, so every change keeps teams balanced.
func (c *Controller) CanChangeTeam(p *game.Player, team int) bool { return true }

func (c *Controller) CheckTeamBalance() bool { return false }

func (c *Controller) TeamName(team int) string {
	if team == game.TeamSpectators {
		return "spectators"
	}
	return "game"
}

// OnPlayerInfoChange cancels the running race of p, which changed team.
func (c *Controller) OnPlayerInfoChange(p *game.Player) {
	c.cancelRun(p.ClientID)
}

// SpawnPos picks the spawn point furthest from other characters.
func (c *Controller) SpawnPos(p *game.Player) (events.Vec2, bool) {
	if p.IsSpectator() || len(c.spawns) == 0 {
		return events.Vec2{}, false
	}
	best, bestScore := c.spawns[0], -1.0
	for _, s := range c.spawns {
		score := 0.0
		for _, slot := range c.world.slots() {
			ch := c.world.chars[slot]
			dx, dy := ch.Pos.X-s.X, ch.Pos.Y-s.Y
			if d := dx*dx + dy*dy; d > 0 {
				score += 1 / d
			} else {
				score += 1e9
			}
		}
		if bestScore < 0 || score < bestScore {
			best, bestScore = s, score
		}
	}
	return best, true
}

// ChangeMap switches to a builtin map and restarts the round.
func (c *Controller) ChangeMap(name string) {
	m, err := BuiltinMap(name)
	if err != nil {
		c.log.Printf("change_map: %v", err)
		return
	}
	c.m = m
	c.mapName = m.Name
	c.spawns = c.spawns[:0]
	w, h, tiles := m.GameLayer()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if t := tiles[y*w+x]; t >= game.EntityOffset {
				c.OnEntity(t-game.EntityOffset, events.Vec2{X: float64(x)*TileSize + 16, Y: float64(y)*TileSize + 16})
			}
		}
	}
	if c.world != nil {
		c.world.SetMap(m)
	}
	c.log.Printf("map changed to %s", m.Name)
	c.StartRound()
}

func (c *Controller) StartRound() {
	c.roundStart = c.tick()
	c.warmup = 0
	c.raceStart = [config.MaxClients]int64{}
	if c.world != nil {
		c.world.Reset()
	}
}

func (c *Controller) DoWarmup(seconds int) {
	if seconds <= 0 {
		c.warmup = 0
		return
	}
	c.warmup = int64(seconds) * c.tickSpeed()
}
