// Package rpctest provides shared test harnesses for gmpack's client
// and server packages: an in-memory net.Pipe client/server pair, and
// a hand-rolled testify/mock transport for injecting I/O failures
// that a real pipe can't easily produce. The client tests use the
// mock transport; the pipe pair is exercised by this package's own
// tests.
package rpctest

import (
	"github.com/stretchr/testify/mock"
)

// Transport is a hand-rolled testify/mock double satisfying
// io.ReadWriteCloser, modelled directly on
// netconf/common/codec/codec_test.go's mocks.Transport — a
// hand-written mock rather than a code-generated gomock type, since
// the generated mocks that import depended on were never part of the
// retrieved example pack (see DESIGN.md).
type Transport struct {
	mock.Mock
}

// Read implements io.Reader by deferring to the mocked expectations.
func (t *Transport) Read(p []byte) (int, error) {
	args := t.Called(p)
	return args.Int(0), args.Error(1)
}

// Write implements io.Writer by deferring to the mocked expectations.
func (t *Transport) Write(p []byte) (int, error) {
	args := t.Called(p)
	return args.Int(0), args.Error(1)
}

// Close implements io.Closer by deferring to the mocked expectations.
func (t *Transport) Close() error {
	args := t.Called()
	return args.Error(0)
}
