package mpack

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Reader is a stateful, resumable MessagePack token decoder. It
// consumes byte slices handed to it by the caller and never performs
// I/O itself; the caller owns the transport. A Reader is not safe
// for concurrent use — it belongs to exactly one session or parser
// (spec section "Scheduling model").
//
// Reader implements the token codec described in spec section 4.1:
// Next behaves like a bufio.SplitFunc that can straddle arbitrary
// byte-boundary cuts in its input, buffering at most a marker byte
// plus its header fields (maxHeaderBytes) across calls.
type Reader struct {
	pending    [maxHeaderBytes]byte
	pendingLen int

	// passthrough mode: once a Str/Bin/Ext header has been emitted,
	// subsequent Next calls slice the caller's own buffer into Chunk
	// tokens (zero-copy) until passRemaining bytes have been delivered.
	passthrough  bool
	passRemaining uint32
}

// NewReader creates a Reader with empty state.
func NewReader() *Reader {
	return &Reader{}
}

// Next attempts to decode one Token from data.
//
// On success it returns the token and the number of bytes of data it
// consumed (advance), with err == nil.
//
// If data does not yet hold a complete token, Next consumes all of
// data into its internal pending buffer and returns ErrEof; advance
// equals len(data) in that case. The caller should call Next again,
// with data starting at the next unread byte of the stream, once more
// bytes are available — decoding resumes exactly where it stopped.
//
// If the leading byte (of a new header) is a malformed marker, Next
// returns ErrFormat; this is terminal and the byte stream must be
// treated as desynchronized.
//
// Chunk tokens returned while in passthrough mode (see HasPayload)
// alias data directly (Token.Data is a subslice of data): the caller
// must not retain or mutate it past this call without copying.
func (r *Reader) Next(data []byte) (tok Token, advance int, err error) {
	if r.passthrough {
		return r.nextChunk(data)
	}
	return r.nextHeader(data)
}

func (r *Reader) nextChunk(data []byte) (Token, int, error) {
	if len(data) == 0 {
		return Token{}, 0, ErrEof
	}
	n := len(data)
	if uint32(n) > r.passRemaining {
		n = int(r.passRemaining)
	}
	r.passRemaining -= uint32(n)
	if r.passRemaining == 0 {
		r.passthrough = false
	}
	return Token{Type: Chunk, Data: data[:n]}, n, nil
}

func (r *Reader) nextHeader(data []byte) (Token, int, error) {
	var marker byte
	if r.pendingLen > 0 {
		marker = r.pending[0]
	} else if len(data) > 0 {
		marker = data[0]
	} else {
		return Token{}, 0, ErrEof
	}

	hlen := headerLen(marker)
	if hlen < 0 {
		return Token{}, 0, errors.Wrapf(ErrFormat, "marker 0x%02x", marker)
	}
	required := 1 + hlen

	available := r.pendingLen + len(data)
	if available < required {
		n := copy(r.pending[r.pendingLen:], data)
		r.pendingLen += n
		return Token{}, len(data), ErrEof
	}

	var buf [maxHeaderBytes]byte
	copy(buf[:], r.pending[:r.pendingLen])
	fromData := required - r.pendingLen
	copy(buf[r.pendingLen:required], data[:fromData])
	r.pendingLen = 0

	tok, err := decodeHeader(buf[:required])
	if err != nil {
		return Token{}, fromData, err
	}

	if tok.HasPayload() && tok.Length > 0 {
		r.passthrough = true
		r.passRemaining = tok.Length
	}

	return tok, fromData, nil
}

//nolint:gocyclo // one decode table, mirrors the MessagePack spec directly.
func decodeHeader(buf []byte) (Token, error) {
	m := buf[0]

	switch {
	case m <= markerPosFixIntMax:
		return Token{Type: UInt, Uint: uint64(m)}, nil
	case m >= markerNegFixIntMin:
		return Token{Type: SInt, Sint: int64(int8(m))}, nil
	case m >= markerFixMapMin && m <= markerFixMapMax:
		return Token{Type: Map, Length: uint32(m & 0x0f)}, nil
	case m >= markerFixArrayMin && m <= markerFixArrayMax:
		return Token{Type: Array, Length: uint32(m & 0x0f)}, nil
	case m >= markerFixStrMin && m <= markerFixStrMax:
		return Token{Type: Str, Length: uint32(m & 0x1f)}, nil
	}

	switch m {
	case markerNil:
		return Token{Type: Nil}, nil
	case markerFalse:
		return Token{Type: Bool, Bool: false}, nil
	case markerTrue:
		return Token{Type: Bool, Bool: true}, nil

	case markerBin8:
		return Token{Type: Bin, Length: uint32(buf[1])}, nil
	case markerBin16:
		return Token{Type: Bin, Length: uint32(binary.BigEndian.Uint16(buf[1:3]))}, nil
	case markerBin32:
		return Token{Type: Bin, Length: binary.BigEndian.Uint32(buf[1:5])}, nil

	case markerExt8:
		return Token{Type: Ext, Length: uint32(buf[1]), ExtType: int8(buf[2])}, nil
	case markerExt16:
		return Token{Type: Ext, Length: uint32(binary.BigEndian.Uint16(buf[1:3])), ExtType: int8(buf[3])}, nil
	case markerExt32:
		return Token{Type: Ext, Length: binary.BigEndian.Uint32(buf[1:5]), ExtType: int8(buf[5])}, nil

	case markerFloat32:
		bits := binary.BigEndian.Uint32(buf[1:5])
		return Token{Type: Float, Float: float64(math.Float32frombits(bits))}, nil
	case markerFloat64:
		bits := binary.BigEndian.Uint64(buf[1:9])
		return Token{Type: Float, Float: math.Float64frombits(bits)}, nil

	case markerUint8:
		return Token{Type: UInt, Uint: uint64(buf[1])}, nil
	case markerUint16:
		return Token{Type: UInt, Uint: uint64(binary.BigEndian.Uint16(buf[1:3]))}, nil
	case markerUint32:
		return Token{Type: UInt, Uint: uint64(binary.BigEndian.Uint32(buf[1:5]))}, nil
	case markerUint64:
		return Token{Type: UInt, Uint: binary.BigEndian.Uint64(buf[1:9])}, nil

	case markerInt8:
		return upgradeSigned(int64(int8(buf[1]))), nil
	case markerInt16:
		return upgradeSigned(int64(int16(binary.BigEndian.Uint16(buf[1:3])))), nil
	case markerInt32:
		return upgradeSigned(int64(int32(binary.BigEndian.Uint32(buf[1:5])))), nil
	case markerInt64:
		return upgradeSigned(int64(binary.BigEndian.Uint64(buf[1:9]))), nil

	case markerFixExt1, markerFixExt2, markerFixExt4, markerFixExt8, markerFixExt16:
		return Token{Type: Ext, Length: fixExtPayloadLen(m), ExtType: int8(buf[1])}, nil

	case markerStr8:
		return Token{Type: Str, Length: uint32(buf[1])}, nil
	case markerStr16:
		return Token{Type: Str, Length: uint32(binary.BigEndian.Uint16(buf[1:3]))}, nil
	case markerStr32:
		return Token{Type: Str, Length: binary.BigEndian.Uint32(buf[1:5])}, nil

	case markerArray16:
		return Token{Type: Array, Length: uint32(binary.BigEndian.Uint16(buf[1:3]))}, nil
	case markerArray32:
		return Token{Type: Array, Length: binary.BigEndian.Uint32(buf[1:5])}, nil

	case markerMap16:
		return Token{Type: Map, Length: uint32(binary.BigEndian.Uint16(buf[1:3]))}, nil
	case markerMap32:
		return Token{Type: Map, Length: binary.BigEndian.Uint32(buf[1:5])}, nil
	}

	return Token{}, errors.Wrapf(ErrFormat, "marker 0x%02x", m)
}

// upgradeSigned implements the reader-side rule from spec section
// 4.1: a signed header whose payload has a clear sign bit is
// upgraded to unsigned.
func upgradeSigned(v int64) Token {
	if v >= 0 {
		return Token{Type: UInt, Uint: uint64(v)}
	}
	return Token{Type: SInt, Sint: v}
}
