package protocol

import "encoding/json"

const Version = "0.5"

// Kind names one protocol message. Client messages use the CL_ prefix,
// server messages SV_.
type Kind string

// Session control, handled by the host rather than the game.
const (
	KindHello     Kind = "HELLO"
	KindWelcome   Kind = "WELCOME"
	KindEnterGame Kind = "CL_ENTERGAME"
)

// Client -> server.
const (
	KindSay            Kind = "CL_SAY"
	KindCallVote       Kind = "CL_CALLVOTE"
	KindVote           Kind = "CL_VOTE"
	KindSetTeam        Kind = "CL_SETTEAM"
	KindChangeInfo     Kind = "CL_CHANGEINFO"
	KindStartInfo      Kind = "CL_STARTINFO"
	KindEmoticon       Kind = "CL_EMOTICON"
	KindKill           Kind = "CL_KILL"
	KindIsRace         Kind = "CL_ISRACE"
	KindRaceShowOthers Kind = "CL_RACESHOWOTHERS"
)

// Server -> client.
const (
	KindChat             Kind = "SV_CHAT"
	KindBroadcast        Kind = "SV_BROADCAST"
	KindMotd             Kind = "SV_MOTD"
	KindVoteSet          Kind = "SV_VOTESET"
	KindVoteStatus       Kind = "SV_VOTESTATUS"
	KindVoteOption       Kind = "SV_VOTEOPTION"
	KindVoteClearOptions Kind = "SV_VOTECLEAROPTIONS"
	KindTuneParams       Kind = "SV_TUNEPARAMS"
	KindReadyToEnter     Kind = "SV_READYTOENTER"
	KindEmoticonOut      Kind = "SV_EMOTICON"
	KindRecord           Kind = "SV_RECORD"
	KindPlayerTime       Kind = "SV_PLAYERTIME"
	KindSnapshot         Kind = "SV_SNAPSHOT"
)

// IsClientKind reports whether k is a message a client may send after the handshake.
func IsClientKind(k Kind) bool {
	_, ok := clientSchemas[k]
	return ok
}

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            Kind            `json:"type"`
	ProtocolVersion string          `json:"protocol_version,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
