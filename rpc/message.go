package rpc

import "github.com/saifulbkhan/gmpack/mpack"

// Kind tags a Message as one of the three MessagePack-RPC wire types
// (spec section 4.3).
type Kind uint8

// Message kinds.
const (
	Request Kind = iota
	Response
	Notification
)

func (k Kind) String() string {
	switch k {
	case Request:
		return "request"
	case Response:
		return "response"
	case Notification:
		return "notification"
	default:
		return "unknown"
	}
}

// wireType is the integer discriminator placed first in the framing
// array on the wire; it is distinct from Kind's Go-side ordering only
// in name, the values line up (spec section 4.3).
const (
	wireRequest      = 0
	wireResponse     = 1
	wireNotification = 2
)

// Message is the tagged record exchanged between a Session and its
// caller (spec section 3, "Message"). Not every field is meaningful
// for every Kind:
//
//   - Request:      ID, Method, Args
//   - Response:     ID, Result, Error, UserData
//   - Notification: Method, Args
type Message struct {
	Kind Kind
	ID   uint32

	Method mpack.Value
	Args   mpack.Value

	Result mpack.Value
	Error  mpack.Value

	// UserData is an implementer-chosen correlator carried through
	// SendRequest and surfaced again on the matching response; the
	// session never interprets it.
	UserData interface{}
}

// IsError reports whether a Response message carries a non-nil error.
func (m Message) IsError() bool {
	return m.Kind == Response && !m.Error.IsNil()
}
