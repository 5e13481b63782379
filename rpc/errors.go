// Package rpc implements MessagePack-RPC framing on top of mpack: it
// sequences token-codec output into request/response/notification
// messages, allocates and tracks request identifiers, and adapts a
// byte-oriented transport into a queue of completed messages.
package rpc

import (
	"github.com/pkg/errors"

	"github.com/saifulbkhan/gmpack/mpack"
)

// Protocol errors, terminal for the current message (spec section 7,
// taxonomy class 2). The caller must treat the transport as
// desynchronized and close it.
var (
	ErrArray    = errors.New("rpc: expected a framing array")
	ErrArrayLen = errors.New("rpc: framing array length does not match its type code")
	ErrType     = errors.New("rpc: message type code not in {0,1,2}")
	ErrMsgID    = errors.New("rpc: id field absent, too large, or wrong type")
	ErrResID    = errors.New("rpc: response id has no matching outstanding request")
)

// ErrNoMem is the same recoverable "out of memory" condition the
// token codec reports on parser-stack overflow (spec section 6 gives
// both one shared error code): here it additionally covers a full
// in-flight request table. Callers distinguish the two only by which
// operation returned it; both recover the same way, by growing the
// relevant bounded structure and retrying.
var ErrNoMem = mpack.ErrNoMem
