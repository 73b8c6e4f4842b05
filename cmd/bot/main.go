package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"racecore/internal/protocol"
)

type envelope struct {
	Type protocol.Kind `json:"type"`
	Data any           `json:"data,omitempty"`
}

func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name    = flag.String("name", "bot", "player name")
		chatty  = flag.Int("chat_every", 500, "say something every N snapshots (0 to stay quiet)")
		msgpack = flag.Bool("msgpack", false, "ask for msgpack frames (the bot only logs their size)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.KindHello,
		ProtocolVersion: protocol.Version,
		Name:            *name,
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 128},
	}
	if *msgpack {
		hello.Capabilities.Encoding = "msgpack"
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	var (
		self  = -1
		snaps int
	)
	send := func(k protocol.Kind, data any) {
		if err := conn.WriteJSON(envelope{Type: k, Data: data}); err != nil {
			logger.Printf("send %s: %v", k, err)
		}
	}

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if ce, ok := err.(*websocket.CloseError); ok {
				logger.Printf("closed: %s", ce.Text)
			}
			return
		}
		if mt == websocket.BinaryMessage {
			snaps++
			if snaps%500 == 1 {
				logger.Printf("binary frame %d bytes", len(msg))
			}
			continue
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.KindWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			self = w.ClientID
			logger.Printf("WELCOME server=%q client_id=%d session=%s tick_speed=%d game=%s", w.ServerName, w.ClientID, w.SessionID, w.TickSpeed, w.GameType)
			send(protocol.KindStartInfo, protocol.InfoMsg{Name: *name, Skin: "default"})

		case protocol.KindReadyToEnter:
			send(protocol.KindEnterGame, nil)
			send(protocol.KindIsRace, protocol.IsRaceMsg{})

		case protocol.KindMotd, protocol.KindBroadcast:
			logger.Printf("%s %s", base.Type, base.Data)

		case protocol.KindChat:
			var c protocol.ChatMsg
			if err := json.Unmarshal(base.Data, &c); err == nil {
				logger.Printf("chat [%d] %s", c.ClientID, c.Message)
			}

		case protocol.KindRecord:
			var r protocol.RecordMsg
			if err := json.Unmarshal(base.Data, &r); err == nil {
				logger.Printf("server record %.2fs", float64(r.Time)/100)
			}

		case protocol.KindSnapshot:
			snaps++
			if *chatty > 0 && snaps%*chatty == 0 {
				r := rand.New(rand.NewSource(time.Now().UnixNano()))
				lines := []string{"gl hf", "/top5", "/rank", fmt.Sprintf("client %d checking in", self)}
				send(protocol.KindSay, protocol.SayMsg{Message: lines[r.Intn(len(lines))]})
			}
		}
	}
}
