package client

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/saifulbkhan/gmpack/mpack"
	"github.com/saifulbkhan/gmpack/rpc"
)

// ErrAsyncStarted is returned by Request once RequestAsync has been
// called on the same Client; spec section 4.5 forbids mixing the two
// modes on one client.
var ErrAsyncStarted = errors.New("client: blocking request forbidden after async mode started")

// Client is a gmpack RPC endpoint client: a blocking request/notify
// façade over one rpc.Session and one underlying transport.
//
// ID is a random correlator used purely for trace/log grouping,
// distinct from the wire request ids rpc.Session allocates (spec
// section 4.3's counter).
type Client struct {
	ID uuid.UUID

	conn    readWriteCloser
	session *rpc.Session
	sr      *rpc.StreamReader
	trace   *rpc.Trace

	mu           sync.Mutex
	asyncStarted int32
}

type readWriteCloser interface {
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	Close() error
}

// New wraps an already-connected transport (e.g. the result of Dial)
// in a Client.
func New(conn readWriteCloser, cfg *Config, trace *rpc.Trace) (*Client, error) {
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return nil, err
	}

	session := rpc.NewSession(conn, trace)
	c := &Client{
		ID:      uuid.New(),
		conn:    conn,
		session: session,
		sr:      rpc.NewStreamReader(conn, session, resolved.BlockSize),
		trace:   trace,
	}
	return c, nil
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Notify sends a one-way notification and returns once the bytes have
// been accepted by the transport (spec section 4.5).
func (c *Client) Notify(method string, args mpack.Value) error {
	return c.session.SendNotification(method, args)
}

// Request performs a blocking request: it writes the framed request,
// then reads messages from the transport until it observes the
// response carrying the matching id, returning its result or error
// value. It is forbidden once RequestAsync has been used on this
// client (spec section 4.5's concurrency rule).
func (c *Client) Request(method string, args mpack.Value) (mpack.Value, error) {
	if atomic.LoadInt32(&c.asyncStarted) != 0 {
		return mpack.Nil, ErrAsyncStarted
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.session.SendRequest(method, args, nil)
	if err != nil {
		return mpack.Nil, err
	}

	for {
		msgs, err := c.sr.ReadMessages()
		for _, msg := range msgs {
			if msg.Kind != rpc.Response || msg.ID != id {
				continue
			}
			if msg.IsError() {
				return mpack.Nil, errors.Errorf("rpc error: %v", msg.Error)
			}
			return msg.Result, nil
		}
		if err != nil {
			return mpack.Nil, err
		}
	}
}
