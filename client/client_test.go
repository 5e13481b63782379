package client

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	assert "github.com/stretchr/testify/require"

	"github.com/saifulbkhan/gmpack/mpack"
	"github.com/saifulbkhan/gmpack/rpc"
	"github.com/saifulbkhan/gmpack/rpctest"
)

// servePipe runs a minimal single-method RPC server over conn: it
// echoes back the sum of the two integer arguments for method "add",
// and ignores notifications. It stops once conn.Read fails.
func servePipe(t *testing.T, conn net.Conn) {
	session := rpc.NewSession(conn, nil)
	sr := rpc.NewStreamReader(conn, session, rpc.DefaultBlockSize)

	for {
		msgs, err := sr.ReadMessages()
		for _, msg := range msgs {
			switch msg.Kind {
			case rpc.Request:
				args := msg.Args.Array()
				sum := args[0].Uint() + args[1].Uint()
				assert.NoError(t, session.SendResponse(msg.ID, mpack.Nil, mpack.NewUint(sum)))
			case rpc.Notification:
				// ignored
			}
		}
		if err != nil {
			return
		}
	}
}

func TestClientRequestBlocking(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	go servePipe(t, serverConn)

	c, err := New(clientConn, nil, nil)
	assert.NoError(t, err)
	defer c.Close()

	result, err := c.Request("add", mpack.NewArray(mpack.NewUint(2), mpack.NewUint(3)))
	assert.NoError(t, err)
	assert.Equal(t, uint64(5), result.Uint())
}

func TestClientNotify(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	go servePipe(t, serverConn)
	defer serverConn.Close()

	c, err := New(clientConn, nil, nil)
	assert.NoError(t, err)
	defer c.Close()

	assert.NoError(t, c.Notify("log", mpack.NewArray(mpack.NewStr("hello"))))
}

func TestClientRequestAsync(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	go servePipe(t, serverConn)

	c, err := New(clientConn, nil, nil)
	assert.NoError(t, err)
	defer c.Close()

	var mu sync.Mutex
	var got mpack.Value
	done := make(chan struct{})

	err = c.RequestAsync("add", mpack.NewArray(mpack.NewUint(10), mpack.NewUint(20)), func(result mpack.Value, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.NoError(t, err)
		got = result
		close(done)
	})
	assert.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async callback")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, uint64(30), got.Uint())
}

func TestClientRequestForbiddenAfterAsync(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	go servePipe(t, serverConn)

	c, err := New(clientConn, nil, nil)
	assert.NoError(t, err)
	defer c.Close()

	err = c.RequestAsync("add", mpack.NewArray(mpack.NewUint(1), mpack.NewUint(1)), func(mpack.Value, error) {})
	assert.NoError(t, err)

	_, err = c.Request("add", mpack.NewArray(mpack.NewUint(1), mpack.NewUint(1)))
	assert.ErrorIs(t, err, ErrAsyncStarted)
}

// TestClientRequestWriteFailure injects a transport write failure via
// rpctest.Transport (modelled on netconf/common/codec/codec_test.go's
// mocks.Transport), a fault an in-memory net.Pipe can't easily
// produce: Request must surface the write error, and SendRequest must
// roll the consumed id back out of the in-flight table rather than
// leaking it.
func TestClientRequestWriteFailure(t *testing.T) {
	mt := &rpctest.Transport{}
	mt.On("Write", mock.Anything).Return(0, errors.New("write failed"))
	mt.On("Close").Return(nil)

	c, err := New(mt, nil, nil)
	assert.NoError(t, err)
	defer c.Close()

	_, err = c.Request("add", mpack.NewArray(mpack.NewUint(1), mpack.NewUint(1)))
	assert.Error(t, err)
	assert.Equal(t, 0, c.session.InFlightCount())
	mt.AssertExpectations(t)
}
