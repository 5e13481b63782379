package mpack

import "github.com/pkg/errors"

// Sentinel conditions returned by the token codec and the object parser.
//
// ErrEof and ErrNoMem are recoverable: the caller either supplies more
// input bytes (ErrEof) or grows a bounded buffer and retries the same
// call (ErrNoMem). ErrFormat is terminal for the byte stream that
// produced it. ErrEof and ErrNoMem are returned unwrapped, so callers
// may compare them with ==; ErrFormat is wrapped with errors.Wrap or
// errors.Wrapf to add context, so compare against it with errors.Is.
var (
	// ErrEof indicates the reader or parser needs more input bytes to
	// complete the token or value it is part-way through decoding.
	ErrEof = errors.New("mpack: short input")

	// ErrNoMem indicates a bounded internal buffer (parser depth stack)
	// is full. Grow the buffer and retry with the same input.
	ErrNoMem = errors.New("mpack: capacity exceeded")

	// ErrFormat indicates a malformed token prefix byte. It is terminal
	// for the current decode; the caller should treat the byte stream
	// as desynchronized.
	ErrFormat = errors.New("mpack: malformed token")
)
