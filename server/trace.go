package server

import (
	"log"
	"net"

	"github.com/imdario/mergo"
)

// Trace holds optional callback hooks for observing server-level
// events, mirroring rpc.Trace's pattern one layer up: per-transport
// accept/close and dispatch-time method resolution failures. Every
// field of a caller-supplied Trace is merged over NoOpTrace so every
// hook is always safe to call.
type Trace struct {
	Accepted      func(remote net.Addr)
	TransportDone func(remote net.Addr, err error)
	UnknownMethod func(method string)
	HandlerError  func(method string, err error)
}

// NoOpTrace performs no logging.
var NoOpTrace = &Trace{
	Accepted:      func(net.Addr) {},
	TransportDone: func(net.Addr, error) {},
	UnknownMethod: func(string) {},
	HandlerError:  func(string, error) {},
}

// DiagnosticTrace logs every hook via the standard library logger.
var DiagnosticTrace = &Trace{
	Accepted: func(remote net.Addr) {
		log.Printf("server-Accepted remote:%s\n", remote)
	},
	TransportDone: func(remote net.Addr, err error) {
		log.Printf("server-TransportDone remote:%s err:%v\n", remote, err)
	},
	UnknownMethod: func(method string) {
		log.Printf("server-UnknownMethod method:%s\n", method)
	},
	HandlerError: func(method string, err error) {
		log.Printf("server-HandlerError method:%s err:%v\n", method, err)
	},
}

// mergedTrace merges t's hooks over NoOpTrace, the same
// mergo-over-no-op pattern rpc.ContextTrace uses, so callers never
// need a nil check before invoking a hook.
func mergedTrace(t *Trace) *Trace {
	if t == nil {
		return NoOpTrace
	}
	merged := *t
	_ = mergo.Merge(&merged, NoOpTrace)
	return &merged
}
