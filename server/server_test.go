package server

import (
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	assert "github.com/stretchr/testify/require"

	"github.com/saifulbkhan/gmpack/mpack"
	"github.com/saifulbkhan/gmpack/rpc"
)

var errConfiguredFailure = errors.New("configured failure")

// addHandler implements spec section 8 scenario 6: it interprets args
// as (uint a, int b) and returns a+b, unless the first argument is
// Nil, in which case it returns the configured error.
func addHandler(args mpack.Value, _ interface{}) (mpack.Value, error) {
	items := args.Array()
	if items[0].IsNil() {
		return mpack.Nil, errConfiguredFailure
	}
	sum := int64(items[0].Uint()) + items[1].Int()
	return mpack.NewInt(sum), nil
}

func TestServerHandlerDispatchSuccess(t *testing.T) {
	srv, err := Listen("127.0.0.1", 0, nil, nil)
	assert.NoError(t, err)
	defer srv.Close()
	srv.Registry.Bind("add", addHandler, nil, nil)

	conn, err := net.Dial("tcp", srv.Addr().String())
	assert.NoError(t, err)
	defer conn.Close()

	client := rpc.NewSession(conn, nil)
	id, err := client.SendRequest("add", mpack.NewArray(mpack.NewUint(1), mpack.NewInt(-1)), nil)
	assert.NoError(t, err)

	msg := readOneResponse(t, conn, client, id)
	assert.False(t, msg.IsError())
	assert.Equal(t, int64(0), msg.Result.Int())
}

func TestServerHandlerDispatchError(t *testing.T) {
	srv, err := Listen("127.0.0.1", 0, nil, nil)
	assert.NoError(t, err)
	defer srv.Close()
	srv.Registry.Bind("add", addHandler, nil, nil)

	conn, err := net.Dial("tcp", srv.Addr().String())
	assert.NoError(t, err)
	defer conn.Close()

	client := rpc.NewSession(conn, nil)
	id, err := client.SendRequest("add", mpack.NewArray(mpack.Nil, mpack.NewArray()), nil)
	assert.NoError(t, err)

	msg := readOneResponse(t, conn, client, id)
	assert.True(t, msg.IsError())
	assert.Equal(t, errConfiguredFailure.Error(), msg.Error.Str())
	assert.True(t, msg.Result.IsNil())
}

func readOneResponse(t *testing.T, conn net.Conn, client *rpc.Session, wantID uint32) rpc.Message {
	t.Helper()
	assert.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	sr := rpc.NewStreamReader(conn, client, rpc.DefaultBlockSize)
	for {
		msgs, err := sr.ReadMessages()
		for _, msg := range msgs {
			if msg.Kind == rpc.Response && msg.ID == wantID {
				return msg
			}
		}
		assert.NoError(t, err)
	}
}
