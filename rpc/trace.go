package rpc

import (
	"context"
	"log"
	"time"

	"github.com/imdario/mergo"
)

// unique type to prevent assignment from outside this package.
type traceContextKey struct{}

// Trace holds optional callback hooks for observing session-level
// events: message send/receive, id allocation, and in-flight table
// pressure. Any nil field is a no-op. This mirrors the teacher's
// ClientTrace pattern exactly, generalized from NETCONF RPCs to
// MessagePack-RPC messages.
//
//nolint:golint
type Trace struct {
	// SendStart is called before a message's tokens are written to the
	// session's output sink.
	SendStart func(kind Kind, id uint32, method string)

	// SendDone is called after a message has been fully written, or
	// after the attempt failed.
	SendDone func(kind Kind, id uint32, method string, err error, d time.Duration)

	// ReceiveStart is called before the session attempts to decode a
	// framing array from its input.
	ReceiveStart func()

	// ReceiveDone is called after a message has been decoded (or the
	// attempt failed with anything other than a recoverable Eof).
	ReceiveDone func(msg Message, err error, d time.Duration)

	// RequestIDAllocated is called once an id has been chosen for a
	// new outbound request and recorded in the in-flight table, before
	// any of the request's bytes are written.
	RequestIDAllocated func(id uint32)

	// InFlightFull is called when a request send fails because the
	// in-flight table has no free slot.
	InFlightFull func(capacity int)

	// Error is called on any terminal protocol or format error.
	Error func(context string, err error)
}

// NoOpTrace performs no logging; it is the base every other Trace is
// merged over, so a caller supplying only a few hooks still gets
// zero-cost no-ops for the rest.
var NoOpTrace = &Trace{
	SendStart:          func(Kind, uint32, string) {},
	SendDone:           func(Kind, uint32, string, error, time.Duration) {},
	ReceiveStart:       func() {},
	ReceiveDone:        func(Message, error, time.Duration) {},
	RequestIDAllocated: func(uint32) {},
	InFlightFull:       func(int) {},
	Error:              func(string, error) {},
}

// DiagnosticTrace logs every hook via the standard library logger,
// the teacher's own choice of sink (see DESIGN.md).
var DiagnosticTrace = &Trace{
	SendStart: func(kind Kind, id uint32, method string) {
		log.Printf("rpc-SendStart kind:%s id:%d method:%s\n", kind, id, method)
	},
	SendDone: func(kind Kind, id uint32, method string, err error, d time.Duration) {
		log.Printf("rpc-SendDone kind:%s id:%d method:%s err:%v took:%s\n", kind, id, method, err, d)
	},
	ReceiveStart: func() {
		log.Println("rpc-ReceiveStart")
	},
	ReceiveDone: func(msg Message, err error, d time.Duration) {
		log.Printf("rpc-ReceiveDone kind:%s id:%d err:%v took:%s\n", msg.Kind, msg.ID, err, d)
	},
	RequestIDAllocated: func(id uint32) {
		log.Printf("rpc-RequestIDAllocated id:%d\n", id)
	},
	InFlightFull: func(capacity int) {
		log.Printf("rpc-InFlightFull capacity:%d\n", capacity)
	},
	Error: func(context string, err error) {
		log.Printf("rpc-Error context:%s err:%v\n", context, err)
	},
}

// WithTrace returns a context carrying trace, for use with
// ContextTrace.
func WithTrace(ctx context.Context, trace *Trace) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// ContextTrace returns the Trace attached to ctx, merged over
// NoOpTrace so every field is safe to call unconditionally. If ctx
// carries no Trace, it returns NoOpTrace itself.
func ContextTrace(ctx context.Context) *Trace {
	trace, _ := ctx.Value(traceContextKey{}).(*Trace)
	if trace == nil {
		return NoOpTrace
	}
	merged := *trace
	_ = mergo.Merge(&merged, NoOpTrace)
	return &merged
}
