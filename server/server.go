package server

import (
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/saifulbkhan/gmpack/rpc"
)

// Server accepts transports on a listener, giving each one its own
// session and a perpetual read loop, and dispatches inbound requests
// to handlers bound in its Registry (spec section 4.6).
type Server struct {
	Registry *Registry

	listener net.Listener
	trace    *Trace
	pool     *workerPool

	mu       sync.Mutex
	sessions map[uuid.UUID]*rpc.Session
	closed   bool
}

// Listen starts a Server accepting TCP connections on host:port. A
// port of 0 selects an ephemeral port, retrievable from the
// listener's Addr via Server.Addr.
func Listen(host string, port int, cfg *Config, trace *Trace) (*Server, error) {
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, err
	}

	s := &Server{
		Registry: NewRegistry(),
		listener: ln,
		trace:    mergedTrace(trace),
		pool:     newWorkerPool(resolved.Workers),
		sessions: make(map[uuid.UUID]*rpc.Session),
	}
	go s.acceptLoop(resolved)
	return s, nil
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close stops accepting new transports, stops the worker pool, and
// closes the listener. Transports already accepted keep their read
// loops, which exit once their connection closes; messages they
// deliver after the worker pool has stopped are not dispatched to
// handlers.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.pool.stop()
	return s.listener.Close()
}

func (s *Server) acceptLoop(cfg *Config) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.trace.Accepted(conn.RemoteAddr())
		go s.serveTransport(conn, cfg)
	}
}

// serveTransport gives conn its own Session and read loop, dispatching
// every decoded message to the worker pool (spec section 5: "each
// accepted transport has its own session and read loop; sessions are
// never shared across transports").
func (s *Server) serveTransport(conn net.Conn, cfg *Config) {
	id := uuid.New()
	session := rpc.NewSession(conn, nil)

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	sr := rpc.NewStreamReader(conn, session, cfg.BlockSize)

	for {
		msgs, err := sr.ReadMessages()
		for _, msg := range msgs {
			switch msg.Kind {
			case rpc.Request, rpc.Notification:
				s.pool.submit(dispatchJob{session: session, registry: s.Registry, msg: msg, trace: s.trace})
			case rpc.Response:
				// Not expected of a client talking to a server; log and
				// drop (spec section 4.6).
				s.trace.HandlerError("<response>", errUnexpectedResponse)
			}
		}
		if err != nil {
			s.trace.TransportDone(conn.RemoteAddr(), err)
			return
		}
	}
}
