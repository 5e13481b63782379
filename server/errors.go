package server

import "github.com/pkg/errors"

// errUnexpectedResponse marks a Response message received on a server
// transport, which is never expected (spec section 4.6: "Response:
// not expected; log and drop").
var errUnexpectedResponse = errors.New("server: received unexpected response message")
