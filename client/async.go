package client

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/saifulbkhan/gmpack/mpack"
	"github.com/saifulbkhan/gmpack/rpc"
)

// ResultCallback receives the outcome of an asynchronous request:
// err is non-nil precisely when the response carried a non-nil RPC
// error value, in which case result is mpack.Nil.
type ResultCallback func(result mpack.Value, err error)

// RequestAsync registers a pending callback keyed by the request's
// wire id, starting the client's background read loop on first use,
// and returns immediately without waiting for a response (spec
// section 4.5). Once called, Request is permanently disabled on this
// client.
func (c *Client) RequestAsync(method string, args mpack.Value, callback ResultCallback) error {
	if atomic.CompareAndSwapInt32(&c.asyncStarted, 0, 1) {
		go c.readLoop()
	}

	_, err := c.session.SendRequest(method, args, callback)
	return err
}

// readLoop is the client's perpetual background read loop (spec
// section 4.5, section 4.4's per-transport read chain): it pulls
// completed messages from the stream and resolves the pending
// callback for each Response it sees.
func (c *Client) readLoop() {
	for {
		msgs, err := c.sr.ReadMessages()
		for _, msg := range msgs {
			if msg.Kind != rpc.Response {
				continue
			}
			cb, ok := msg.UserData.(ResultCallback)
			if !ok || cb == nil {
				continue
			}
			if msg.IsError() {
				cb(mpack.Nil, errors.Errorf("rpc error: %v", msg.Error))
				continue
			}
			cb(msg.Result, nil)
		}
		if err != nil {
			return
		}
	}
}
