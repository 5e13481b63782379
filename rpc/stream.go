package rpc

import (
	"io"

	"github.com/saifulbkhan/gmpack/mpack"
)

// DefaultBlockSize is the default single-read block size (spec
// section 4.4, section 6 configuration knobs).
const DefaultBlockSize = 1024

// StreamReader sits between a byte transport and a Session: it issues
// fixed-size reads, buffers partial data across reads, and drives the
// session's receive path to yield a FIFO queue of completed messages
// (spec section 4.4).
type StreamReader struct {
	r         io.Reader
	session   *Session
	blockSize int
	pending   []byte
}

// NewStreamReader creates a StreamReader pulling from r and decoding
// through session. blockSize <= 0 selects DefaultBlockSize.
func NewStreamReader(r io.Reader, session *Session, blockSize int) *StreamReader {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &StreamReader{r: r, session: session, blockSize: blockSize}
}

// ReadMessages issues one read of the configured block size,
// concatenates it with any leftover bytes from the previous call, and
// decodes as many complete messages as the combined buffer contains.
//
// It returns the messages decoded (possibly none), in wire order. A
// nil error means the read and every decode attempt succeeded; io.EOF
// means the transport closed after yielding the returned messages. Any
// other error is terminal: the session has been resynced and any
// bytes still unconsumed from this read are discarded, per spec
// section 7's note on partial-message discard.
func (sr *StreamReader) ReadMessages() ([]Message, error) {
	buf := make([]byte, sr.blockSize)
	n, readErr := sr.r.Read(buf)

	data := buf[:n]
	if len(sr.pending) > 0 {
		data = append(sr.pending, data...) //nolint:gocritic // pending is owned solely by this reader
		sr.pending = nil
	}

	var msgs []Message
	offset := 0

	for offset < len(data) {
		msg, consumed, err := sr.session.Receive(data[offset:])
		switch err {
		case nil:
			offset += consumed
			msgs = append(msgs, msg)

		case mpack.ErrEof:
			sr.pending = append([]byte(nil), data[offset+consumed:]...)
			offset = len(data)

		case mpack.ErrNoMem:
			sr.session.GrowParserDepth()
			offset += consumed

		default:
			sr.session.Resync()
			return msgs, err
		}
	}

	if readErr != nil {
		return msgs, readErr
	}
	return msgs, nil
}
