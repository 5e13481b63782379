package rpc

import (
	"bytes"
	"io"
	"testing"

	assert "github.com/stretchr/testify/require"

	"github.com/saifulbkhan/gmpack/mpack"
)

// oneByteReader serves the bytes of buf one at a time, to exercise
// StreamReader's resumption across arbitrary read boundaries (spec
// section 8, scenario 5).
type oneByteReader struct {
	data []byte
	pos  int
}

func (r *oneByteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}

func TestStreamReaderSplitReadResilience(t *testing.T) {
	var wire bytes.Buffer
	sender := NewSession(&wire, nil)
	assert.NoError(t, sender.SendNotification("NOTIFY", mpack.NewArray(mpack.NewStr("init"), mpack.NewStr("finished"))))

	server := NewSession(&wire, nil)
	sr := NewStreamReader(&oneByteReader{data: wire.Bytes()}, server, 1)

	var got []Message
	for {
		msgs, err := sr.ReadMessages()
		got = append(got, msgs...)
		if err == io.EOF {
			break
		}
		assert.NoError(t, err)
	}

	assert.Len(t, got, 1)
	assert.Equal(t, Notification, got[0].Kind)
	assert.Equal(t, "NOTIFY", got[0].Method.Str())
	assert.Len(t, got[0].Args.Array(), 2)
}

func TestStreamReaderMultipleMessagesOneRead(t *testing.T) {
	var wire bytes.Buffer
	sender := NewSession(&wire, nil)
	assert.NoError(t, sender.SendNotification("a", mpack.NewArray()))
	assert.NoError(t, sender.SendNotification("b", mpack.NewArray()))

	server := NewSession(&wire, nil)
	sr := NewStreamReader(bytes.NewReader(wire.Bytes()), server, DefaultBlockSize)

	msgs, err := sr.ReadMessages()
	assert.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].Method.Str())
	assert.Equal(t, "b", msgs[1].Method.Str())
}
