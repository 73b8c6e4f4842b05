package protocol

// Message is any server -> client message.
type Message interface {
	Kind() Kind
}

// Flags control how an outbound message is delivered.
type Flags uint8

const (
	// Vital messages are delivered reliably and in order.
	FlagVital Flags = 1 << iota
	// FlagNoRecord keeps a message out of the demo recording.
	FlagNoRecord
	// FlagNoSend records a message without delivering it to anyone.
	FlagNoSend
	// FlagFlush asks the transport to flush the connection immediately.
	FlagFlush
)

func (f Flags) Has(o Flags) bool { return f&o != 0 }

// TargetAll addresses every connected slot.
const TargetAll = -1

// HELLO (client -> server)
type HelloMsg struct {
	Type            Kind              `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	Name            string            `json:"name"`
	Capabilities    HelloCapabilities `json:"capabilities"`
	Auth            *HelloAuth        `json:"auth,omitempty"`
}

type HelloCapabilities struct {
	// Encoding selects the outbound frame codec: "json" (default) or "msgpack".
	Encoding string `json:"encoding,omitempty"`
	MaxQueue int    `json:"max_queue,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            Kind   `json:"type" msgpack:"type"`
	ProtocolVersion string `json:"protocol_version" msgpack:"protocol_version"`
	SessionID       string `json:"session_id" msgpack:"session_id"`
	ClientID        int    `json:"client_id" msgpack:"client_id"`
	TickSpeed       int    `json:"tick_speed" msgpack:"tick_speed"`
	GameType        string `json:"game_type,omitempty" msgpack:"game_type,omitempty"`
	ServerName      string `json:"server_name,omitempty" msgpack:"server_name,omitempty"`
}

// Envelope is the wire form of every message after the handshake.
type Envelope struct {
	Type Kind `json:"type" msgpack:"type"`
	Data any  `json:"data,omitempty" msgpack:"data,omitempty"`
}

func Wrap(m Message) Envelope { return Envelope{Type: m.Kind(), Data: m} }

// Client messages.

type SayMsg struct {
	Team    bool   `json:"team"`
	Message string `json:"message"`
}

type CallVoteMsg struct {
	VoteType string `json:"vote_type"`
	Value    string `json:"value"`
}

type VoteMsg struct {
	Vote int `json:"vote"`
}

type SetTeamMsg struct {
	Team int `json:"team"`
}

// InfoMsg carries both CL_STARTINFO and CL_CHANGEINFO.
type InfoMsg struct {
	Name           string `json:"name"`
	Skin           string `json:"skin"`
	UseCustomColor bool   `json:"use_custom_color"`
	ColorBody      int    `json:"color_body"`
	ColorFeet      int    `json:"color_feet"`
}

type EmoticonMsg struct {
	Emoticon int `json:"emoticon"`
}

type KillMsg struct{}

type IsRaceMsg struct{}

type RaceShowOthersMsg struct {
	Active bool `json:"active"`
}

// Server messages.

type ChatMsg struct {
	Team     int    `json:"team" msgpack:"team"`
	ClientID int    `json:"client_id" msgpack:"client_id"`
	Message  string `json:"message" msgpack:"message"`
}

func (ChatMsg) Kind() Kind { return KindChat }

type BroadcastMsg struct {
	Message string `json:"message" msgpack:"message"`
}

func (BroadcastMsg) Kind() Kind { return KindBroadcast }

type MotdMsg struct {
	Message string `json:"message" msgpack:"message"`
}

func (MotdMsg) Kind() Kind { return KindMotd }

type VoteSetMsg struct {
	Timeout     int    `json:"timeout" msgpack:"timeout"`
	Description string `json:"description" msgpack:"description"`
	Command     string `json:"command" msgpack:"command"`
}

func (VoteSetMsg) Kind() Kind { return KindVoteSet }

type VoteStatusMsg struct {
	Total int `json:"total" msgpack:"total"`
	Yes   int `json:"yes" msgpack:"yes"`
	No    int `json:"no" msgpack:"no"`
	Pass  int `json:"pass" msgpack:"pass"`
}

func (VoteStatusMsg) Kind() Kind { return KindVoteStatus }

type VoteOptionMsg struct {
	Command string `json:"command" msgpack:"command"`
}

func (VoteOptionMsg) Kind() Kind { return KindVoteOption }

type VoteClearOptionsMsg struct{}

func (VoteClearOptionsMsg) Kind() Kind { return KindVoteClearOptions }

// TuneParamsMsg carries every tuning parameter in declaration order as
// fixed-point integers (value * 100).
type TuneParamsMsg struct {
	Params []int `json:"params" msgpack:"params"`
}

func (TuneParamsMsg) Kind() Kind { return KindTuneParams }

type ReadyToEnterMsg struct{}

func (ReadyToEnterMsg) Kind() Kind { return KindReadyToEnter }

type EmoticonOutMsg struct {
	ClientID int `json:"client_id" msgpack:"client_id"`
	Emoticon int `json:"emoticon" msgpack:"emoticon"`
}

func (EmoticonOutMsg) Kind() Kind { return KindEmoticonOut }

// RecordMsg and PlayerTimeMsg carry times in milliseconds.
type RecordMsg struct {
	Time int `json:"time" msgpack:"time"`
}

func (RecordMsg) Kind() Kind { return KindRecord }

type PlayerTimeMsg struct {
	Time     int `json:"time" msgpack:"time"`
	ClientID int `json:"client_id" msgpack:"client_id"`
}

func (PlayerTimeMsg) Kind() Kind { return KindPlayerTime }

// SnapshotMsg is the per-recipient view built once per tick.
type SnapshotMsg struct {
	Tick    int64        `json:"tick" msgpack:"tick"`
	Players []PlayerInfo `json:"players" msgpack:"players"`
	Events  []EventInfo  `json:"events,omitempty" msgpack:"events,omitempty"`
	Objects []any        `json:"objects,omitempty" msgpack:"objects,omitempty"`
}

func (SnapshotMsg) Kind() Kind { return KindSnapshot }

type PlayerInfo struct {
	ClientID       int    `json:"client_id" msgpack:"client_id"`
	Name           string `json:"name" msgpack:"name"`
	Team           int    `json:"team" msgpack:"team"`
	Skin           string `json:"skin" msgpack:"skin"`
	UseCustomColor bool   `json:"use_custom_color" msgpack:"use_custom_color"`
	ColorBody      int    `json:"color_body" msgpack:"color_body"`
	ColorFeet      int    `json:"color_feet" msgpack:"color_feet"`
	Score          int    `json:"score" msgpack:"score"`
	Local          bool   `json:"local,omitempty" msgpack:"local,omitempty"`
}

type EventInfo struct {
	Type     string `json:"type" msgpack:"type"`
	X        int    `json:"x" msgpack:"x"`
	Y        int    `json:"y" msgpack:"y"`
	Angle    int    `json:"angle,omitempty" msgpack:"angle,omitempty"`
	ClientID int    `json:"client_id,omitempty" msgpack:"client_id,omitempty"`
	SoundID  int    `json:"sound_id,omitempty" msgpack:"sound_id,omitempty"`
}
