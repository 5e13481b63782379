package rpctest

import (
	"net"

	"github.com/saifulbkhan/gmpack/rpc"
)

// Pipe is an in-memory client/server session pair connected by
// net.Pipe, modelled on netconf/testserver's TestNCServer harness but
// backed by a plain in-memory pipe rather than a real SSH/TCP accept
// loop, since the transport itself is not under test (see
// SPEC_FULL.md's testing section).
type Pipe struct {
	ClientConn net.Conn
	ServerConn net.Conn

	Client *rpc.Session
	Server *rpc.Session

	ClientStream *rpc.StreamReader
	ServerStream *rpc.StreamReader
}

// NewPipe creates a connected Pipe with default trace and block-size
// settings on both sides.
func NewPipe() *Pipe {
	clientConn, serverConn := net.Pipe()

	client := rpc.NewSession(clientConn, nil)
	server := rpc.NewSession(serverConn, nil)

	return &Pipe{
		ClientConn:   clientConn,
		ServerConn:   serverConn,
		Client:       client,
		Server:       server,
		ClientStream: rpc.NewStreamReader(clientConn, client, rpc.DefaultBlockSize),
		ServerStream: rpc.NewStreamReader(serverConn, server, rpc.DefaultBlockSize),
	}
}

// Close closes both ends of the pipe.
func (p *Pipe) Close() {
	_ = p.ClientConn.Close()
	_ = p.ServerConn.Close()
}
