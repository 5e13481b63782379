package rpctest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	assert "github.com/stretchr/testify/require"

	"github.com/saifulbkhan/gmpack/mpack"
)

func TestPipeRoundTripsNotification(t *testing.T) {
	p := NewPipe()
	defer p.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, p.Client.SendNotification("ping", mpack.NewArray()))
	}()

	msgs, err := p.ServerStream.ReadMessages()
	<-done
	assert.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Equal(t, "ping", msgs[0].Method.Str())
}

func TestMockTransportInjectsWriteFailure(t *testing.T) {
	mt := &Transport{}
	mt.On("Write", mock.Anything).Return(0, errors.New("write failed"))
	mt.On("Close").Return(nil)

	n, err := mt.Write([]byte{0x01})
	assert.Error(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mt.Close())
	mt.AssertExpectations(t)
}
