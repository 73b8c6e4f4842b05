package server

import (
	"errors"
	"time"

	"racecore/internal/persistence/store"
	"racecore/internal/protocol"
)

var (
	ErrServerFull   = errors.New("server is full")
	ErrNoSuchClient = errors.New("no such client")
	ErrNoBanList    = errors.New("bans are not enabled")
)

// Outbound is one message queued for a session's writer.
type Outbound struct {
	Msg   protocol.Message
	Flags protocol.Flags
}

type JoinRequest struct {
	SessionID string
	Name      string
	Addr      string
	Authed    bool
	Out       chan Outbound
	// Close ends the connection with reason. It must be safe to call from
	// the loop goroutine while the transport is reading and writing.
	Close func(reason string)
	Resp  chan JoinResponse
}

type JoinResponse struct {
	Slot       int
	TickSpeed  int
	GameType   string
	ServerName string
	Err        error
}

// Inbound is one client message. CL_ENTERGAME is handled by the loop, every
// other kind goes to the game.
type Inbound struct {
	Slot      int
	SessionID string
	Kind      protocol.Kind
	Payload   []byte
}

type LeaveRequest struct {
	Slot      int
	SessionID string
}

type AdminRequest struct {
	Line string
	Resp chan AdminResponse
}

type AdminResponse struct {
	Output []string
	Err    error
}

// Recorder captures recorded broadcasts.
type Recorder interface {
	Record(tick int64, msg protocol.Message) error
}

type BanList interface {
	Ban(addr string, d time.Duration, reason string) error
	Unban(addr string) error
}

// ScoreFeed is implemented by score stores that answer lookups
// asynchronously.
type ScoreFeed interface {
	Replies() <-chan store.Reply
	Apply(r store.Reply)
}

type Console interface {
	Run(line string) ([]string, error)
}

type sessionState int

const (
	stateConnected sessionState = iota
	stateReadyToEnter
	stateInGame
)

type session struct {
	id     string
	name   string
	addr   string
	authed bool
	state  sessionState
	out    chan Outbound
	close  func(reason string)

	dropping bool
}
