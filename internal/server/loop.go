// Package server runs the game on a single goroutine. Transports and the
// admin endpoint reach it only through channels.
package server

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"racecore/internal/config"
	"racecore/internal/persistence/store"
	"racecore/internal/protocol"
	"racecore/internal/sim/game"
)

const maxNameLength = 15

type Options struct {
	Config     config.Config
	Controller game.Controller
	World      game.World
	Map        game.Map
	Scores     game.Scores
	Recorder   Recorder
	Bans       BanList
	Clock      game.Clock
	Logger     *log.Logger
	GameLogger *log.Logger
}

type Loop struct {
	cfg      config.Config
	log      *log.Logger
	clock    game.Clock
	game     *game.Context
	console  Console
	recorder Recorder
	bans     BanList
	feed     ScoreFeed

	tick     int64
	gameType string
	sessions [config.MaxClients]*session
	drops    []int

	join  chan JoinRequest
	inbox chan Inbound
	leave chan LeaveRequest
	admin chan AdminRequest
	stop  chan struct{}
	once  sync.Once
}

func New(opts Options) (*Loop, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[server] ", log.LstdFlags|log.Lmicroseconds)
	}
	if opts.Clock == nil {
		opts.Clock = game.ClockFunc(time.Now)
	}
	l := &Loop{
		cfg:      opts.Config,
		log:      opts.Logger,
		clock:    opts.Clock,
		recorder: opts.Recorder,
		bans:     opts.Bans,
		tick:     1,
		join:     make(chan JoinRequest, 64),
		inbox:    make(chan Inbound, 4096),
		leave:    make(chan LeaveRequest, 64),
		admin:    make(chan AdminRequest, 16),
		stop:     make(chan struct{}),
	}
	if feed, ok := opts.Scores.(ScoreFeed); ok {
		l.feed = feed
	}
	g, err := game.New(opts.Config, game.Deps{
		Server:     l,
		Controller: opts.Controller,
		World:      opts.World,
		Map:        opts.Map,
		Scores:     opts.Scores,
		Clock:      opts.Clock,
		Logger:     opts.GameLogger,
	})
	if err != nil {
		return nil, err
	}
	l.game = g
	g.OnInit()
	return l, nil
}

func (l *Loop) Game() *game.Context { return l.game }

// SetConsole installs the executor for admin lines and passed votes.
func (l *Loop) SetConsole(c Console) { l.console = c }

func (l *Loop) Join() chan<- JoinRequest   { return l.join }
func (l *Loop) Inbox() chan<- Inbound      { return l.inbox }
func (l *Loop) Leave() chan<- LeaveRequest { return l.leave }

func (l *Loop) Stop() { l.once.Do(func() { close(l.stop) }) }

// Exec runs one admin line on the loop goroutine and waits for its output.
func (l *Loop) Exec(ctx context.Context, line string) ([]string, error) {
	resp := make(chan AdminResponse, 1)
	select {
	case l.admin <- AdminRequest{Line: line, Resp: resp}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-resp:
		return r.Output, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loop) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(l.cfg.TickSpeed)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer l.shutdown()

	var replies <-chan store.Reply
	if l.feed != nil {
		replies = l.feed.Replies()
	}

	var (
		pendingJoins   []JoinRequest
		pendingLeaves  []LeaveRequest
		pendingInbound []Inbound
		pendingAdmin   []AdminRequest
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stop:
			return nil
		case req := <-l.join:
			pendingJoins = append(pendingJoins, req)
		case req := <-l.leave:
			pendingLeaves = append(pendingLeaves, req)
		case in := <-l.inbox:
			pendingInbound = append(pendingInbound, in)
		case req := <-l.admin:
			pendingAdmin = append(pendingAdmin, req)
		case r := <-replies:
			l.handleReply(r)
		case <-ticker.C:
			l.step(pendingJoins, pendingLeaves, pendingInbound)
			l.handleAdmin(pendingAdmin)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingInbound = pendingInbound[:0]
			pendingAdmin = pendingAdmin[:0]
		}
	}
}

// step applies queued network input, then advances the game one tick and
// snapshots it to every client in game.
func (l *Loop) step(joins []JoinRequest, leaves []LeaveRequest, inbound []Inbound) {
	for _, lv := range leaves {
		l.handleLeave(lv)
	}
	for _, req := range joins {
		l.handleJoin(req)
	}
	for _, in := range inbound {
		l.handleInbound(in)
		l.flushDrops()
	}

	l.tick++
	l.game.OnTick(l.clock.Now())
	l.flushDrops()

	for slot, s := range l.sessions {
		if s != nil && s.state == stateInGame && !s.dropping {
			l.game.OnSnap(slot)
		}
	}
	l.game.OnPostSnap()
}

func (l *Loop) shutdown() {
	for _, s := range l.sessions {
		if s != nil && !s.dropping {
			s.close("Server shutdown")
			s.dropping = true
		}
	}
	l.game.OnShutdown()
	l.log.Printf("loop stopped at tick %d", l.tick)
}

func (l *Loop) handleJoin(req JoinRequest) {
	slot := -1
	for i := 0; i < l.cfg.MaxClients && i < len(l.sessions); i++ {
		if l.sessions[i] == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		req.Resp <- JoinResponse{Slot: -1, Err: ErrServerFull}
		return
	}
	closeFn := req.Close
	if closeFn == nil {
		closeFn = func(string) {}
	}
	s := &session{
		id:     req.SessionID,
		addr:   req.Addr,
		authed: req.Authed,
		out:    req.Out,
		close:  closeFn,
	}
	l.sessions[slot] = s
	s.name = l.uniqueName(req.Name, slot)

	req.Resp <- JoinResponse{Slot: slot, TickSpeed: l.cfg.TickSpeed, GameType: l.gameType, ServerName: l.cfg.Name}
	l.log.Printf("join slot=%d addr=%s name='%s' session=%s", slot, s.addr, s.name, s.id)
	l.game.OnClientConnected(slot)
}

func (l *Loop) session(slot int, id string) *session {
	if slot < 0 || slot >= len(l.sessions) {
		return nil
	}
	s := l.sessions[slot]
	if s == nil || s.id != id {
		return nil
	}
	return s
}

func (l *Loop) handleLeave(lv LeaveRequest) {
	s := l.session(lv.Slot, lv.SessionID)
	if s == nil || s.dropping {
		return
	}
	l.drop(lv.Slot, "leave")
}

func (l *Loop) handleInbound(in Inbound) {
	s := l.session(in.Slot, in.SessionID)
	if s == nil || s.dropping {
		return
	}
	if in.Kind == protocol.KindEnterGame {
		if s.state != stateReadyToEnter {
			return
		}
		s.state = stateInGame
		l.log.Printf("enter slot=%d name='%s'", in.Slot, s.name)
		l.game.OnClientEnter(in.Slot)
		return
	}
	l.game.OnMessage(in.Kind, in.Payload, in.Slot)
}

func (l *Loop) drop(slot int, reason string) {
	l.game.OnClientDrop(slot)
	if s := l.sessions[slot]; s != nil {
		l.log.Printf("drop slot=%d name='%s' reason=%q", slot, s.name, reason)
	}
	l.sessions[slot] = nil
}

// flushDrops completes kicks requested while the game was running a handler.
func (l *Loop) flushDrops() {
	for len(l.drops) > 0 {
		slot := l.drops[0]
		l.drops = l.drops[1:]
		if s := l.sessions[slot]; s != nil && s.dropping {
			l.drop(slot, "kicked")
		}
	}
}

func (l *Loop) handleReply(r store.Reply) {
	if r.Load {
		l.feed.Apply(r)
	}
	if r.Slot < 0 || r.Slot >= len(l.sessions) || l.sessions[r.Slot] == nil {
		return
	}
	for _, line := range r.Lines {
		l.game.SendChatTarget(r.Slot, line)
	}
}

func (l *Loop) handleAdmin(reqs []AdminRequest) {
	for _, req := range reqs {
		var resp AdminResponse
		if l.console == nil {
			resp.Err = fmt.Errorf("no console")
		} else {
			resp.Output, resp.Err = l.console.Run(req.Line)
		}
		req.Resp <- resp
		l.flushDrops()
	}
}

func (l *Loop) uniqueName(name string, slot int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "nameless tee"
	}
	for utf8.RuneCountInString(name) > maxNameLength {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	taken := func(n string) bool {
		for i, s := range l.sessions {
			if s != nil && i != slot && s.name == n {
				return true
			}
		}
		return false
	}
	cand := name
	for i := 1; taken(cand); i++ {
		cand = fmt.Sprintf("(%d)%s", i, name)
	}
	return cand
}
