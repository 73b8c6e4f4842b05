package game

import (
	"log"
	"time"

	"racecore/internal/protocol"
	"racecore/internal/sim/events"
	"racecore/internal/sim/tuning"
)

// Server is the transport and identity side of the host.
type Server interface {
	Tick() int64
	TickSpeed() int
	ClientName(slot int) string
	SetClientName(slot int, name string)
	ClientAddr(slot int) string
	IsAuthed(slot int) bool
	Send(msg protocol.Message, flags protocol.Flags, target int)
	SetBrowseInfo(gameType string)
}

// Controller implements the rules of one game mode.
type Controller interface {
	GameType() string
	Tick()
	Snap(slot int) []any
	OnEntity(index int, pos events.Vec2) bool
	AutoTeam(slot int) int
	CanJoinTeam(team, slot int) bool
	CanChangeTeam(p *Player, team int) bool
	CheckTeamBalance() bool
	TeamName(team int) string
	OnPlayerInfoChange(p *Player)
	SpawnPos(p *Player) (events.Vec2, bool)
	ChangeMap(name string)
	StartRound()
	DoWarmup(seconds int)
}

// World is the physics side: characters, collision and projectiles.
type World interface {
	Tick(params tuning.Params)
	Paused() bool
	Snap(slot int) []any
	HasCharacter(slot int) bool
	SpawnCharacter(slot int, pos events.Vec2)
	KillCharacter(slot int, weapon int) (events.Vec2, bool)
}

// Map exposes the game layer of the loaded map.
type Map interface {
	GameLayer() (width, height int, tiles []int)
}

type PlayerData struct {
	BestTime time.Duration
	CurTime  time.Duration
}

// Scores is the record store. Calls must not block the tick; replies such
// as rank lookups are delivered back to the host asynchronously.
type Scores interface {
	ResetPlayer(slot int)
	LoadScore(slot int, name string)
	PlayerData(slot int) PlayerData
	Record() time.Duration
	ShowTop5(slot int, start int)
	ShowRank(slot int, name string, search bool)
}

// Actions executes stored command lines such as the one a passed vote carries.
type Actions interface {
	Execute(line string) error
}

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type Deps struct {
	Server     Server
	Controller Controller
	World      World
	Map        Map
	Scores     Scores
	Actions    Actions
	Clock      Clock
	Logger     *log.Logger
}
