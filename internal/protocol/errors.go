package protocol

import "errors"

var (
	ErrUnknownKind = errors.New("unknown message kind")
	ErrMalformed   = errors.New("malformed message")
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Session admission.
	ErrServerFull = "E_SERVER_FULL"
	ErrBanned     = "E_BANNED"
	ErrKicked     = "E_KICKED"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrServerFull:      {},
	ErrBanned:          {},
	ErrKicked:          {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
