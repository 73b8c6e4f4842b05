package game

import (
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"racecore/internal/config"
	"racecore/internal/protocol"
	"racecore/internal/sim/events"
	"racecore/internal/sim/tuning"
)

type sent struct {
	msg    protocol.Message
	flags  protocol.Flags
	target int
}

type fakeServer struct {
	tick   int64
	speed  int
	names  map[int]string
	addrs  map[int]string
	authed map[int]bool
	out    []sent
	browse string
}

func (s *fakeServer) Tick() int64                      { return s.tick }
func (s *fakeServer) TickSpeed() int                   { return s.speed }
func (s *fakeServer) ClientName(slot int) string       { return s.names[slot] }
func (s *fakeServer) SetClientName(slot int, n string) { s.names[slot] = n }
func (s *fakeServer) ClientAddr(slot int) string       { return s.addrs[slot] }
func (s *fakeServer) IsAuthed(slot int) bool           { return s.authed[slot] }
func (s *fakeServer) SetBrowseInfo(gameType string)    { s.browse = gameType }
func (s *fakeServer) Send(msg protocol.Message, flags protocol.Flags, target int) {
	s.out = append(s.out, sent{msg: msg, flags: flags, target: target})
}

// chatTo returns the chat lines slot would receive, in order.
func (s *fakeServer) chatTo(slot int) []string {
	var lines []string
	for _, m := range s.out {
		cm, ok := m.msg.(protocol.ChatMsg)
		if !ok || m.flags.Has(protocol.FlagNoSend) {
			continue
		}
		if m.target == slot || m.target == protocol.TargetAll {
			lines = append(lines, cm.Message)
		}
	}
	return lines
}

func (s *fakeServer) sentOf(kind protocol.Kind) []sent {
	var out []sent
	for _, m := range s.out {
		if m.msg.Kind() == kind {
			out = append(out, m)
		}
	}
	return out
}

type fakeController struct {
	gameType   string
	canJoin    bool
	canChange  bool
	ticks      int
	entities   []int
	warmup     int
	rounds     int
	mapName    string
	infoChange int
}

func (c *fakeController) GameType() string                       { return c.gameType }
func (c *fakeController) Tick()                                  { c.ticks++ }
func (c *fakeController) Snap(slot int) []any                    { return nil }
func (c *fakeController) AutoTeam(slot int) int                  { return TeamRed }
func (c *fakeController) CanJoinTeam(team, slot int) bool        { return c.canJoin }
func (c *fakeController) CanChangeTeam(p *Player, team int) bool { return c.canChange }
func (c *fakeController) CheckTeamBalance() bool                 { return true }
func (c *fakeController) OnPlayerInfoChange(p *Player)           { c.infoChange++ }
func (c *fakeController) ChangeMap(name string)                  { c.mapName = name }
func (c *fakeController) StartRound()                            { c.rounds++ }
func (c *fakeController) DoWarmup(seconds int)                   { c.warmup = seconds }
func (c *fakeController) OnEntity(index int, pos events.Vec2) bool {
	c.entities = append(c.entities, index)
	return true
}
func (c *fakeController) SpawnPos(p *Player) (events.Vec2, bool) {
	return events.Vec2{X: 16, Y: 16}, true
}
func (c *fakeController) TeamName(team int) string {
	switch team {
	case TeamRed:
		return "red team"
	case TeamBlue:
		return "blue team"
	}
	return "spectators"
}

type fakeWorld struct {
	paused bool
	ticks  int
	tuning tuning.Params
	chars  map[int]bool
	kills  []int
}

func (w *fakeWorld) Tick(p tuning.Params) { w.ticks++; w.tuning = p }
func (w *fakeWorld) Paused() bool         { return w.paused }
func (w *fakeWorld) Snap(slot int) []any  { return nil }
func (w *fakeWorld) HasCharacter(slot int) bool {
	return w.chars[slot]
}
func (w *fakeWorld) SpawnCharacter(slot int, pos events.Vec2) { w.chars[slot] = true }
func (w *fakeWorld) KillCharacter(slot, weapon int) (events.Vec2, bool) {
	if !w.chars[slot] {
		return events.Vec2{}, false
	}
	delete(w.chars, slot)
	w.kills = append(w.kills, slot)
	return events.Vec2{X: 32, Y: 48}, true
}

type fakeScores struct {
	loaded []int
	top5   []int
	ranks  []string
	cur    map[int]time.Duration
	record time.Duration
}

func (s *fakeScores) ResetPlayer(slot int)            {}
func (s *fakeScores) LoadScore(slot int, name string) { s.loaded = append(s.loaded, slot) }
func (s *fakeScores) Record() time.Duration           { return s.record }
func (s *fakeScores) ShowTop5(slot, start int)        { s.top5 = append(s.top5, start) }
func (s *fakeScores) ShowRank(slot int, name string, search bool) {
	s.ranks = append(s.ranks, name)
}
func (s *fakeScores) PlayerData(slot int) PlayerData {
	return PlayerData{CurTime: s.cur[slot]}
}

type fakeActions struct {
	lines []string
	err   error
	run   func(line string)
}

func (a *fakeActions) Execute(line string) error {
	a.lines = append(a.lines, line)
	if a.run != nil {
		a.run(line)
	}
	return a.err
}

type fakeMap struct {
	w, h  int
	tiles []int
}

func (m fakeMap) GameLayer() (int, int, []int) { return m.w, m.h, m.tiles }

type fixture struct {
	ctx     *Context
	srv     *fakeServer
	ctrl    *fakeController
	world   *fakeWorld
	scores  *fakeScores
	actions *fakeActions
	now     time.Time
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Defaults()
	if mutate != nil {
		mutate(&cfg)
	}
	f := &fixture{
		srv: &fakeServer{
			tick:   1,
			speed:  50,
			names:  map[int]string{},
			addrs:  map[int]string{},
			authed: map[int]bool{},
		},
		ctrl:    &fakeController{gameType: "race", canJoin: true, canChange: true},
		world:   &fakeWorld{chars: map[int]bool{}},
		scores:  &fakeScores{cur: map[int]time.Duration{}},
		actions: &fakeActions{},
		now:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	ctx, err := New(cfg, Deps{
		Server:     f.srv,
		Controller: f.ctrl,
		World:      f.world,
		Scores:     f.scores,
		Actions:    f.actions,
		Clock:      ClockFunc(func() time.Time { return f.now }),
		Logger:     log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	f.ctx = ctx
	return f
}

// join connects and enters slot with a distinct address.
func (f *fixture) join(slot int) *Player {
	f.srv.names[slot] = fmt.Sprintf("p%d", slot)
	if _, ok := f.srv.addrs[slot]; !ok {
		f.srv.addrs[slot] = fmt.Sprintf("10.0.0.%d", slot)
	}
	f.ctx.OnClientConnected(slot)
	f.ctx.OnClientEnter(slot)
	return f.ctx.Player(slot)
}

func (f *fixture) send(t *testing.T, slot int, kind protocol.Kind, payload string) {
	t.Helper()
	f.ctx.OnMessage(kind, []byte(payload), slot)
}

// advance moves the server tick and wall clock forward by n ticks, runs one
// OnTick and drops the tick's events.
func (f *fixture) advance(n int64) {
	f.srv.tick += n
	f.now = f.now.Add(time.Duration(n) * time.Second / time.Duration(f.srv.speed))
	f.ctx.OnTick(f.now)
	f.ctx.OnPostSnap()
}

func (f *fixture) reset() { f.srv.out = nil }

func contains(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

var errTest = errors.New("test failure")
