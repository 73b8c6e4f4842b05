package ws

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"racecore/internal/persistence/store"
	"racecore/internal/protocol"
	"racecore/internal/server"
)

const (
	hostTimeout = 5 * time.Second
	// lateJoinWait bounds how long a timed out join is watched for a late reply.
	lateJoinWait = time.Minute
)

// Host is the loop side of a connection.
type Host interface {
	Join() chan<- server.JoinRequest
	Inbox() chan<- server.Inbound
	Leave() chan<- server.LeaveRequest
}

// BanList answers whether an address may connect.
type BanList interface {
	Banned(addr string) (store.Ban, bool)
}

type Server struct {
	host       Host
	bans       BanList
	adminToken string
	log        *log.Logger
	timeout    time.Duration

	upgrader websocket.Upgrader
}

func NewServer(h Host, bans BanList, adminToken string, logger *log.Logger) *Server {
	s := &Server{
		host:       h,
		bans:       bans,
		adminToken: adminToken,
		log:        logger,
		timeout:    hostTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

type session struct {
	id    string
	slot  int
	codec codec
	out   chan server.Outbound
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess := s.handshake(conn, remoteHost(r.RemoteAddr), cancel)
		if sess == nil {
			return
		}

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case f, ok := <-sess.out:
					if !ok {
						return
					}
					mt, b, err := sess.codec.encode(protocol.Wrap(f.Msg))
					if err != nil {
						s.log.Printf("encode %s for slot %d: %v", f.Msg.Kind(), sess.slot, err)
						continue
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(mt, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			if base.Type != protocol.KindEnterGame && !protocol.IsClientKind(base.Type) {
				continue
			}
			in := server.Inbound{Slot: sess.slot, SessionID: sess.id, Kind: base.Type, Payload: base.Data}
			select {
			case s.host.Inbox() <- in:
			case <-ctx.Done():
			}
		}

		// Cleanup.
		s.leave(sess)
	}
}

func (s *Server) leave(sess *session) {
	select {
	case s.host.Leave() <- server.LeaveRequest{Slot: sess.slot, SessionID: sess.id}:
	case <-time.After(s.timeout):
		s.log.Printf("leave for slot %d timed out", sess.slot)
	}
}

func (s *Server) handshake(conn *websocket.Conn, addr string, cancel context.CancelFunc) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.KindHello {
		closeWith(conn, websocket.ClosePolicyViolation, protocol.ErrProtoBadRequest, "expected HELLO")
		return nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, protocol.ErrProtoBadRequest, "bad HELLO")
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, websocket.ClosePolicyViolation, protocol.ErrProtoVersion, "bad protocol_version")
		return nil
	}
	if b, banned := s.bans.Banned(addr); banned {
		s.log.Printf("refused banned addr=%s reason=%q", addr, b.Reason)
		closeWith(conn, websocket.ClosePolicyViolation, protocol.ErrBanned, banMessage(b, time.Now()))
		return nil
	}
	cd, err := codecFor(hello.Capabilities.Encoding)
	if err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, protocol.ErrProtoBadRequest, err.Error())
		return nil
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ < 64 {
		maxQ = 64
	}
	if maxQ > 1024 {
		maxQ = 1024
	}
	sess := &session{
		id:    uuid.NewString(),
		codec: cd,
		out:   make(chan server.Outbound, maxQ),
	}

	authed := false
	if hello.Auth != nil && s.adminToken != "" {
		tok := strings.TrimSpace(hello.Auth.Token)
		authed = subtle.ConstantTimeCompare([]byte(tok), []byte(s.adminToken)) == 1
	}

	respCh := make(chan server.JoinResponse, 1)
	req := server.JoinRequest{
		SessionID: sess.id,
		Name:      hello.Name,
		Addr:      addr,
		Authed:    authed,
		Out:       sess.out,
		Close: func(reason string) {
			closeWith(conn, websocket.ClosePolicyViolation, protocol.ErrKicked, reason)
			cancel()
			_ = conn.Close()
		},
		Resp: respCh,
	}
	select {
	case s.host.Join() <- req:
	case <-time.After(s.timeout):
		closeWith(conn, websocket.CloseTryAgainLater, protocol.ErrInternal, "server busy")
		return nil
	}
	var resp server.JoinResponse
	select {
	case resp = <-respCh:
	case <-time.After(s.timeout):
		// The loop may still admit the session; release the slot if it does.
		go func() {
			select {
			case r := <-respCh:
				if r.Err == nil {
					s.log.Printf("late join for slot %d released", r.Slot)
					s.leave(&session{id: sess.id, slot: r.Slot})
				}
			case <-time.After(lateJoinWait):
			}
		}()
		closeWith(conn, websocket.CloseTryAgainLater, protocol.ErrInternal, "server busy")
		return nil
	}
	if resp.Err != nil {
		code := protocol.ErrInternal
		if errors.Is(resp.Err, server.ErrServerFull) {
			code = protocol.ErrServerFull
		}
		closeWith(conn, websocket.CloseTryAgainLater, code, resp.Err.Error())
		return nil
	}
	sess.slot = resp.Slot

	welcome := protocol.WelcomeMsg{
		Type:            protocol.KindWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.id,
		ClientID:        resp.Slot,
		TickSpeed:       resp.TickSpeed,
		GameType:        resp.GameType,
		ServerName:      resp.ServerName,
	}
	mt, b, err := cd.encode(welcome)
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err = conn.WriteMessage(mt, b)
	}
	if err != nil {
		s.leave(sess)
		return nil
	}
	s.log.Printf("session %s slot=%d addr=%s encoding=%s authed=%v", sess.id, sess.slot, addr, cd.name, authed)
	return sess
}

func banMessage(b store.Ban, now time.Time) string {
	if b.Expires.IsZero() {
		return fmt.Sprintf("You have been banned (%s)", b.Reason)
	}
	mins := int(b.Expires.Sub(now).Minutes()) + 1
	return fmt.Sprintf("You have been banned for %d minute(s) (%s)", mins, b.Reason)
}

// closeWith sends a close frame whose text is "<error code>: <reason>".
func closeWith(conn *websocket.Conn, status int, code, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(status, closeText(code, reason)), time.Now().Add(time.Second))
}

func closeText(code, reason string) string {
	if code == "" || !protocol.IsKnownCode(code) {
		code = protocol.ErrInternal
	}
	text := code
	if reason != "" {
		text += ": " + reason
	}
	// Control frame payloads are limited to 125 bytes.
	if len(text) > 120 {
		text = text[:120]
	}
	return text
}

func remoteHost(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}

// codec encodes outbound frames in the encoding chosen in HELLO.
type codec struct {
	name string
	mt   int
	enc  func(v any) ([]byte, error)
}

func (c codec) encode(v any) (int, []byte, error) {
	b, err := c.enc(v)
	return c.mt, b, err
}

func codecFor(name string) (codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return codec{name: "json", mt: websocket.TextMessage, enc: json.Marshal}, nil
	case "msgpack":
		return codec{name: "msgpack", mt: websocket.BinaryMessage, enc: msgpackMarshal}, nil
	default:
		return codec{}, fmt.Errorf("unsupported encoding %q", name)
	}
}

func msgpackMarshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}
