package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"racecore/internal/admin"
	"racecore/internal/config"
	"racecore/internal/persistence/store"
	"racecore/internal/protocol"
	"racecore/internal/sim/game"
	"racecore/internal/sim/race"
)

type recorded struct {
	tick int64
	msg  protocol.Message
}

type fakeRecorder struct{ msgs []recorded }

func (r *fakeRecorder) Record(tick int64, msg protocol.Message) error {
	r.msgs = append(r.msgs, recorded{tick: tick, msg: msg})
	return nil
}

type fakeBans struct {
	bans map[string]time.Duration
}

func (b *fakeBans) Ban(addr string, d time.Duration, reason string) error {
	b.bans[addr] = d
	return nil
}

func (b *fakeBans) Unban(addr string) error {
	if _, ok := b.bans[addr]; !ok {
		return store.ErrNotBanned
	}
	delete(b.bans, addr)
	return nil
}

type fakeFeed struct {
	replies chan store.Reply
	applied []store.Reply
}

func (f *fakeFeed) ResetPlayer(int)                {}
func (f *fakeFeed) LoadScore(int, string)          {}
func (f *fakeFeed) PlayerData(int) game.PlayerData { return game.PlayerData{} }
func (f *fakeFeed) Record() time.Duration          { return 0 }
func (f *fakeFeed) ShowTop5(int, int)              {}
func (f *fakeFeed) ShowRank(int, string, bool)     {}
func (f *fakeFeed) Replies() <-chan store.Reply    { return f.replies }
func (f *fakeFeed) Apply(r store.Reply)            { f.applied = append(f.applied, r) }

type client struct {
	slot   int
	id     string
	out    chan Outbound
	closed []string
}

type harness struct {
	t    *testing.T
	loop *Loop
	rec  *fakeRecorder
	bans *fakeBans
	n    int
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	cfg := config.Defaults()
	cfg.MaxClients = 4
	m, err := race.BuiltinMap("sprint")
	if err != nil {
		t.Fatalf("BuiltinMap: %v", err)
	}
	w := race.NewWorld(m)

	h := &harness{t: t, rec: &fakeRecorder{}, bans: &fakeBans{bans: map[string]time.Duration{}}}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	opts := Options{
		Config:     cfg,
		World:      w,
		Map:        m,
		Recorder:   h.rec,
		Bans:       h.bans,
		Clock:      game.ClockFunc(func() time.Time { return now }),
		Logger:     quiet(),
		GameLogger: quiet(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	ctrl := race.NewController(opts.Config, w, m, nil, quiet())
	opts.Controller = ctrl
	l, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctrl.Bind(l.Game(), l)
	con := admin.New(quiet())
	admin.RegisterGame(con, l.Game(), l)
	admin.RegisterRace(con, ctrl)
	l.Game().SetActions(con)
	l.SetConsole(con)
	h.loop = l
	return h
}

func (h *harness) connect(name, addr string) (*client, JoinResponse) {
	h.t.Helper()
	h.n++
	c := &client{id: fmt.Sprintf("session-%d", h.n), out: make(chan Outbound, 256)}
	resp := make(chan JoinResponse, 1)
	h.loop.step([]JoinRequest{{
		SessionID: c.id,
		Name:      name,
		Addr:      addr,
		Out:       c.out,
		Close:     func(reason string) { c.closed = append(c.closed, reason) },
		Resp:      resp,
	}}, nil, nil)
	r := <-resp
	c.slot = r.Slot
	return c, r
}

func (h *harness) send(c *client, kind protocol.Kind, payload string) {
	h.loop.step(nil, nil, []Inbound{{Slot: c.slot, SessionID: c.id, Kind: kind, Payload: []byte(payload)}})
}

func (h *harness) enter(c *client) {
	h.t.Helper()
	name := h.loop.ClientName(c.slot)
	h.send(c, protocol.KindStartInfo, fmt.Sprintf(`{"name":%q,"skin":"default"}`, name))
	h.send(c, protocol.KindEnterGame, "")
	if s := h.loop.sessions[c.slot]; s == nil || s.state != stateInGame {
		h.t.Fatalf("client %d did not enter", c.slot)
	}
}

func drain(c *client) []Outbound {
	var out []Outbound
	for {
		select {
		case f := <-c.out:
			out = append(out, f)
		default:
			return out
		}
	}
}

func chats(frames []Outbound) []string {
	var out []string
	for _, f := range frames {
		if m, ok := f.Msg.(protocol.ChatMsg); ok {
			out = append(out, m.Message)
		}
	}
	return out
}

func has(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

func TestLoop_JoinEnterAndSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	c, resp := h.connect("alice", "10.0.0.1")
	if resp.Err != nil || resp.Slot != 0 || resp.TickSpeed != 50 || resp.GameType != race.GameType {
		t.Fatalf("join response: %+v", resp)
	}
	frames := drain(c)
	if len(frames) == 0 {
		t.Fatalf("no frames after connect")
	}
	if _, ok := frames[0].Msg.(protocol.MotdMsg); !ok || !frames[0].Flags.Has(protocol.FlagVital) {
		t.Fatalf("first frame = %+v", frames[0])
	}
	for _, f := range frames {
		if _, ok := f.Msg.(protocol.SnapshotMsg); ok {
			t.Fatalf("snapshot before entering")
		}
	}

	h.enter(c)
	frames = drain(c)
	var ready, snap bool
	for _, f := range frames {
		switch m := f.Msg.(type) {
		case protocol.ReadyToEnterMsg:
			ready = f.Flags.Has(protocol.FlagFlush)
		case protocol.SnapshotMsg:
			snap = len(m.Players) == 1 && m.Players[0].Name == "alice" && m.Players[0].Local
		}
	}
	if !ready || !snap {
		t.Fatalf("ready=%v snap=%v frames=%+v", ready, snap, frames)
	}
	if !has(chats(frames), "'alice' entered and joined the game") {
		t.Fatalf("chat = %v", chats(frames))
	}

	var recordedChat bool
	for _, r := range h.rec.msgs {
		if _, ok := r.msg.(protocol.SnapshotMsg); ok {
			t.Fatalf("snapshot recorded")
		}
		if m, ok := r.msg.(protocol.ChatMsg); ok && m.Message == "'alice' entered and joined the game" {
			recordedChat = true
		}
	}
	if !recordedChat {
		t.Fatalf("entry chat not recorded")
	}
}

func TestLoop_EnterRequiresReady(t *testing.T) {
	h := newHarness(t, nil)
	c, _ := h.connect("alice", "10.0.0.1")
	h.send(c, protocol.KindEnterGame, "")
	if h.loop.sessions[c.slot].state != stateConnected {
		t.Fatalf("entered without start info")
	}
	for _, f := range drain(c) {
		if _, ok := f.Msg.(protocol.SnapshotMsg); ok {
			t.Fatalf("snapshot sent to connecting client")
		}
	}
}

func TestLoop_ServerFull(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Config.MaxClients = 1 })
	h.connect("a", "10.0.0.1")
	_, resp := h.connect("b", "10.0.0.2")
	if !errors.Is(resp.Err, ErrServerFull) || resp.Slot != -1 {
		t.Fatalf("second join: %+v", resp)
	}
}

func TestLoop_UniqueNames(t *testing.T) {
	h := newHarness(t, nil)
	a, _ := h.connect("bob", "10.0.0.1")
	b, _ := h.connect("bob", "10.0.0.2")
	c, _ := h.connect("  ", "10.0.0.3")
	d, _ := h.connect("averyveryverylongname", "10.0.0.4")
	if got := h.loop.ClientName(a.slot); got != "bob" {
		t.Fatalf("first = %q", got)
	}
	if got := h.loop.ClientName(b.slot); got != "(1)bob" {
		t.Fatalf("second = %q", got)
	}
	if got := h.loop.ClientName(c.slot); got != "nameless tee" {
		t.Fatalf("blank = %q", got)
	}
	if got := h.loop.ClientName(d.slot); got != "averyveryverylo" {
		t.Fatalf("long = %q", got)
	}

	h.loop.SetClientName(a.slot, "(1)bob")
	if got := h.loop.ClientName(a.slot); got != "(1)(1)bob" {
		t.Fatalf("rename collision = %q", got)
	}
}

func TestLoop_LeaveChecksSession(t *testing.T) {
	h := newHarness(t, nil)
	a, _ := h.connect("a", "10.0.0.1")
	b, _ := h.connect("b", "10.0.0.2")
	h.enter(a)
	h.enter(b)
	drain(b)

	h.loop.step(nil, []LeaveRequest{{Slot: a.slot, SessionID: "someone-else"}}, nil)
	if h.loop.sessions[a.slot] == nil {
		t.Fatalf("stale leave dropped the client")
	}
	h.loop.step(nil, []LeaveRequest{{Slot: a.slot, SessionID: a.id}}, nil)
	if h.loop.sessions[a.slot] != nil || h.loop.Game().Player(a.slot) != nil {
		t.Fatalf("leave did not free the slot")
	}
	if !has(chats(drain(b)), "'a' has left the game") {
		t.Fatalf("leave not announced")
	}
}

func TestLoop_VoteKickDropsAfterTick(t *testing.T) {
	h := newHarness(t, nil)
	p1, _ := h.connect("p1", "10.0.0.1")
	p2, _ := h.connect("p2", "10.0.0.2")
	p3, _ := h.connect("p3", "10.0.0.3")
	for _, c := range []*client{p1, p2, p3} {
		h.enter(c)
	}
	drain(p1)

	h.send(p1, protocol.KindCallVote, fmt.Sprintf(`{"vote_type":"kick","value":"%d griefing"}`, p3.slot))
	if !h.loop.Game().VoteActive() {
		t.Fatalf("vote did not start: %v", chats(drain(p1)))
	}
	h.send(p2, protocol.KindVote, `{"vote":1}`)

	if len(p3.closed) != 1 || p3.closed[0] != "Kicked by vote" {
		t.Fatalf("p3 closed = %v", p3.closed)
	}
	if h.loop.sessions[p3.slot] != nil || h.loop.Game().Player(p3.slot) != nil {
		t.Fatalf("p3 still connected")
	}
	lines := chats(drain(p1))
	if !has(lines, "Vote passed") || !has(lines, "'p3' has left the game") {
		t.Fatalf("chat = %v", lines)
	}
}

func TestLoop_BanKicksAddress(t *testing.T) {
	h := newHarness(t, nil)
	a, _ := h.connect("a", "10.0.0.9")
	b, _ := h.connect("b", "10.0.0.9")
	c, _ := h.connect("c", "10.0.0.10")

	out, err := h.loop.console.Run("ban 10.0.0.9 10 griefing")
	if err != nil {
		t.Fatalf("ban: %v", err)
	}
	if len(out) != 1 || !strings.HasPrefix(out[0], "banned 10.0.0.9") {
		t.Fatalf("ban output = %v", out)
	}
	if h.bans.bans["10.0.0.9"] != 10*time.Minute {
		t.Fatalf("ban list = %v", h.bans.bans)
	}
	want := "You have been banned for 10 minute(s) (griefing)"
	if len(a.closed) != 1 || a.closed[0] != want || len(b.closed) != 1 || len(c.closed) != 0 {
		t.Fatalf("closed a=%v b=%v c=%v", a.closed, b.closed, c.closed)
	}
	h.loop.flushDrops()
	if h.loop.sessions[a.slot] != nil || h.loop.sessions[b.slot] != nil || h.loop.sessions[c.slot] == nil {
		t.Fatalf("wrong sessions dropped")
	}

	if err := h.loop.Unban("10.0.0.9"); err != nil {
		t.Fatalf("Unban: %v", err)
	}
	if err := h.loop.Unban("10.0.0.9"); !errors.Is(err, store.ErrNotBanned) {
		t.Fatalf("second Unban: %v", err)
	}
}

func TestLoop_HostErrors(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Bans = nil })
	if err := h.loop.Kick(3, "x"); !errors.Is(err, ErrNoSuchClient) {
		t.Fatalf("Kick empty slot: %v", err)
	}
	if err := h.loop.Kick(99, "x"); !errors.Is(err, ErrNoSuchClient) {
		t.Fatalf("Kick out of range: %v", err)
	}
	if err := h.loop.Ban("10.0.0.1", 0, "x"); !errors.Is(err, ErrNoBanList) {
		t.Fatalf("Ban without list: %v", err)
	}
	if h.loop.ClientName(7) != "(invalid)" || h.loop.ClientAddr(7) != "" || h.loop.IsAuthed(7) {
		t.Fatalf("empty slot identity")
	}
}

func TestLoop_SendFlags(t *testing.T) {
	h := newHarness(t, nil)
	a, _ := h.connect("a", "10.0.0.1")
	h.enter(a)
	drain(a)
	h.rec.msgs = nil

	h.loop.Send(protocol.ChatMsg{ClientID: -1, Message: "demo only"}, protocol.FlagVital|protocol.FlagNoSend, -1)
	h.loop.Send(protocol.BroadcastMsg{Message: "live only"}, protocol.FlagNoRecord, -1)

	if len(h.rec.msgs) != 1 {
		t.Fatalf("recorded = %+v", h.rec.msgs)
	}
	if m, ok := h.rec.msgs[0].msg.(protocol.ChatMsg); !ok || m.Message != "demo only" {
		t.Fatalf("recorded = %+v", h.rec.msgs[0])
	}
	frames := drain(a)
	if len(frames) != 1 {
		t.Fatalf("delivered = %+v", frames)
	}
	if m, ok := frames[0].Msg.(protocol.BroadcastMsg); !ok || m.Message != "live only" {
		t.Fatalf("delivered = %+v", frames[0])
	}
}

func TestLoop_VitalOverflowKicks(t *testing.T) {
	h := newHarness(t, nil)
	c := &client{id: "tiny", out: make(chan Outbound, 1)}
	resp := make(chan JoinResponse, 1)
	h.loop.step([]JoinRequest{{
		SessionID: c.id, Name: "slow", Addr: "10.0.0.5", Out: c.out,
		Close: func(reason string) { c.closed = append(c.closed, reason) },
		Resp:  resp,
	}}, nil, nil)
	c.slot = (<-resp).Slot

	// The MOTD already fills the queue.
	h.loop.Send(protocol.BroadcastMsg{Message: "x"}, 0, c.slot)
	if len(c.closed) != 0 {
		t.Fatalf("non-vital overflow kicked")
	}
	h.loop.Send(protocol.BroadcastMsg{Message: "y"}, protocol.FlagVital, c.slot)
	if len(c.closed) != 1 || c.closed[0] != "Too many pending messages" {
		t.Fatalf("closed = %v", c.closed)
	}
}

func TestLoop_ScoreReplies(t *testing.T) {
	feed := &fakeFeed{replies: make(chan store.Reply, 1)}
	h := newHarness(t, func(o *Options) { o.Scores = feed })
	a, _ := h.connect("a", "10.0.0.1")
	drain(a)

	h.loop.handleReply(store.Reply{Slot: a.slot, Lines: []string{"1. a Time: 0 minute(s) 9.00 second(s)"}})
	if got := chats(drain(a)); len(got) != 1 || got[0] != "1. a Time: 0 minute(s) 9.00 second(s)" {
		t.Fatalf("reply chat = %v", got)
	}
	h.loop.handleReply(store.Reply{Slot: a.slot, Load: true, Name: "a", Best: time.Second})
	if len(feed.applied) != 1 {
		t.Fatalf("load reply not applied")
	}
	h.loop.handleReply(store.Reply{Slot: 3, Lines: []string{"nobody"}})
}

func TestLoop_RunExecAndShutdown(t *testing.T) {
	h := newHarness(t, nil)
	a, _ := h.connect("a", "10.0.0.1")
	h.enter(a)
	drain(a)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.loop.Run(ctx) }()

	execCtx, execCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer execCancel()
	out, err := h.loop.Exec(execCtx, "tune gravity 0.25")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("tune output = %v", out)
	}
	if _, err := h.loop.Exec(execCtx, "bogus"); !errors.Is(err, admin.ErrUnknownCommand) {
		t.Fatalf("bogus command: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop")
	}
	if len(a.closed) != 1 || a.closed[0] != "Server shutdown" {
		t.Fatalf("closed = %v", a.closed)
	}
}

func TestLoop_ShutdownClosesEverySession(t *testing.T) {
	h := newHarness(t, nil)
	a, _ := h.connect("a", "10.0.0.1")
	h.enter(a)
	b, _ := h.connect("b", "10.0.0.2")

	h.loop.shutdown()
	for _, c := range []*client{a, b} {
		if len(c.closed) != 1 || c.closed[0] != "Server shutdown" {
			t.Fatalf("client %d closed = %v", c.slot, c.closed)
		}
		if s := h.loop.sessions[c.slot]; s == nil || !s.dropping {
			t.Fatalf("client %d not marked dropping", c.slot)
		}
	}
	// A second pass must not close again.
	h.loop.shutdown()
	if len(a.closed) != 1 || len(b.closed) != 1 {
		t.Fatalf("closed twice: %v %v", a.closed, b.closed)
	}
}

func TestLoop_JoinCarriesServerInfo(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Config.Name = "racecore eu"
		o.Config.GameType = "Race+"
	})
	_, resp := h.connect("a", "10.0.0.1")
	if resp.ServerName != "racecore eu" || resp.GameType != "Race+" {
		t.Fatalf("join response: %+v", resp)
	}
}
