package mpack

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Writer is a stateful, resumable MessagePack token encoder, the
// mirror image of Reader (spec section 4.1, "Writer contract"). It
// writes at most maxHeaderBytes of header into a small internal
// pending buffer whenever the caller's output slice has no room for
// the whole header, then drains that buffer across subsequent Flush
// calls. Chunk payloads are never buffered internally: Put copies as
// much of a Chunk token's bytes as fit and leaves it to the caller to
// resubmit the remainder, so Writer never retains a pointer into
// caller-owned storage past the call that supplied it (spec section
// "Buffer ownership for strings").
//
// A Writer is not safe for concurrent use.
type Writer struct {
	pending    [maxHeaderBytes]byte
	pendingLen int
	pendingOff int
}

// NewWriter creates a Writer with empty state.
func NewWriter() *Writer {
	return &Writer{}
}

// Put encodes tok and writes as many bytes as fit into dst.
//
// For a Chunk token, Put copies min(len(tok.Data), len(dst)) bytes
// from tok.Data into dst. If not all of tok.Data fit, it returns
// ErrEof; the caller should call Put again, once more output space is
// available, with Token{Type: Chunk, Data: tok.Data[n:]}.
//
// For any other token, Put encodes the full header and writes as much
// of it as fits into dst. If the header doesn't fully fit, the
// remainder is buffered internally and Put returns ErrEof; the caller
// should call Flush (not Put) with further output space until Flush
// returns nil, before moving on to the next token.
func (w *Writer) Put(dst []byte, tok Token) (n int, err error) {
	if w.pendingLen > w.pendingOff {
		return 0, errors.New("mpack: Put called with an undrained header pending; call Flush first")
	}

	if tok.Type == Chunk {
		n = copy(dst, tok.Data)
		if n < len(tok.Data) {
			return n, ErrEof
		}
		return n, nil
	}

	var buf [maxHeaderBytes]byte
	hn, err := encodeHeader(&buf, tok)
	if err != nil {
		return 0, err
	}

	w.pending = buf
	w.pendingLen = hn
	w.pendingOff = 0

	return w.Flush(dst)
}

// Flush drains bytes buffered by a previous Put call that returned
// ErrEof. It returns nil once the whole pending header has been
// written, or ErrEof (with the partial write count in n) if dst was
// still too small.
func (w *Writer) Flush(dst []byte) (n int, err error) {
	remaining := w.pending[w.pendingOff:w.pendingLen]
	n = copy(dst, remaining)
	w.pendingOff += n
	if w.pendingOff < w.pendingLen {
		return n, ErrEof
	}
	return n, nil
}

//nolint:gocyclo // one encode table, mirrors the MessagePack spec directly.
func encodeHeader(buf *[maxHeaderBytes]byte, tok Token) (int, error) {
	switch tok.Type {
	case Nil:
		buf[0] = markerNil
		return 1, nil

	case Bool:
		if tok.Bool {
			buf[0] = markerTrue
		} else {
			buf[0] = markerFalse
		}
		return 1, nil

	case UInt:
		return encodeUint(buf, tok.Uint), nil

	case SInt:
		return encodeInt(buf, tok.Sint), nil

	case Float:
		return encodeFloat(buf, tok.Float), nil

	case Array:
		return encodeLength(buf, tok.Length, markerFixArrayMin, markerFixArrayMax, markerArray16, markerArray32), nil

	case Map:
		return encodeLength(buf, tok.Length, markerFixMapMin, markerFixMapMax, markerMap16, markerMap32), nil

	case Str:
		return encodeStrLength(buf, tok.Length), nil

	case Bin:
		return encodeBinLength(buf, tok.Length), nil

	case Ext:
		return encodeExt(buf, tok.Length, tok.ExtType), nil

	default:
		return 0, errors.Errorf("mpack: cannot write token type %s as a header", tok.Type)
	}
}

// encodeUint picks the shortest unsigned encoding, per spec section
// 4.1 ("the writer picks the shortest encoding that preserves sign
// and value").
func encodeUint(buf *[maxHeaderBytes]byte, u uint64) int {
	switch {
	case u <= markerPosFixIntMax:
		buf[0] = byte(u)
		return 1
	case u <= 0xff:
		buf[0] = markerUint8
		buf[1] = byte(u)
		return 2
	case u <= 0xffff:
		buf[0] = markerUint16
		binary.BigEndian.PutUint16(buf[1:3], uint16(u))
		return 3
	case u <= 0xffffffff:
		buf[0] = markerUint32
		binary.BigEndian.PutUint32(buf[1:5], uint32(u))
		return 5
	default:
		buf[0] = markerUint64
		binary.BigEndian.PutUint64(buf[1:9], u)
		return 9
	}
}

func encodeInt(buf *[maxHeaderBytes]byte, i int64) int {
	if i >= 0 {
		return encodeUint(buf, uint64(i))
	}
	switch {
	case i >= -32:
		buf[0] = byte(int8(i))
		return 1
	case i >= -128:
		buf[0] = markerInt8
		buf[1] = byte(int8(i))
		return 2
	case i >= -32768:
		buf[0] = markerInt16
		binary.BigEndian.PutUint16(buf[1:3], uint16(int16(i)))
		return 3
	case i >= -2147483648:
		buf[0] = markerInt32
		binary.BigEndian.PutUint32(buf[1:5], uint32(int32(i)))
		return 5
	default:
		buf[0] = markerInt64
		binary.BigEndian.PutUint64(buf[1:9], uint64(i))
		return 9
	}
}

// encodeFloat downgrades to a 32-bit float when the value round-trips
// exactly, per spec section 4.1.
func encodeFloat(buf *[maxHeaderBytes]byte, f float64) int {
	if f32 := float32(f); float64(f32) == f {
		buf[0] = markerFloat32
		binary.BigEndian.PutUint32(buf[1:5], math.Float32bits(f32))
		return 5
	}
	buf[0] = markerFloat64
	binary.BigEndian.PutUint64(buf[1:9], math.Float64bits(f))
	return 9
}

// encodeLength encodes an Array/Map item count using the narrowest of
// a fixed-form marker (base..base+0x0f, count in the low nibble),
// a 16-bit form, or a 32-bit form.
func encodeLength(buf *[maxHeaderBytes]byte, n uint32, fixBase, fixMax, m16, m32 byte) int {
	switch {
	case n <= uint32(fixMax-fixBase):
		buf[0] = fixBase + byte(n)
		return 1
	case n <= 0xffff:
		buf[0] = m16
		binary.BigEndian.PutUint16(buf[1:3], uint16(n))
		return 3
	default:
		buf[0] = m32
		binary.BigEndian.PutUint32(buf[1:5], n)
		return 5
	}
}

func encodeStrLength(buf *[maxHeaderBytes]byte, n uint32) int {
	switch {
	case n <= 31:
		buf[0] = markerFixStrMin + byte(n)
		return 1
	case n <= 0xff:
		buf[0] = markerStr8
		buf[1] = byte(n)
		return 2
	case n <= 0xffff:
		buf[0] = markerStr16
		binary.BigEndian.PutUint16(buf[1:3], uint16(n))
		return 3
	default:
		buf[0] = markerStr32
		binary.BigEndian.PutUint32(buf[1:5], n)
		return 5
	}
}

func encodeBinLength(buf *[maxHeaderBytes]byte, n uint32) int {
	switch {
	case n <= 0xff:
		buf[0] = markerBin8
		buf[1] = byte(n)
		return 2
	case n <= 0xffff:
		buf[0] = markerBin16
		binary.BigEndian.PutUint16(buf[1:3], uint16(n))
		return 3
	default:
		buf[0] = markerBin32
		binary.BigEndian.PutUint32(buf[1:5], n)
		return 5
	}
}

func encodeExt(buf *[maxHeaderBytes]byte, n uint32, extType int8) int {
	if m := fixExtMarker(n); m != 0 {
		buf[0] = m
		buf[1] = byte(extType)
		return 2
	}
	switch {
	case n <= 0xff:
		buf[0] = markerExt8
		buf[1] = byte(n)
		buf[2] = byte(extType)
		return 3
	case n <= 0xffff:
		buf[0] = markerExt16
		binary.BigEndian.PutUint16(buf[1:3], uint16(n))
		buf[3] = byte(extType)
		return 4
	default:
		buf[0] = markerExt32
		binary.BigEndian.PutUint32(buf[1:5], n)
		buf[5] = byte(extType)
		return 6
	}
}

func fixExtMarker(n uint32) byte {
	switch n {
	case 1:
		return markerFixExt1
	case 2:
		return markerFixExt2
	case 4:
		return markerFixExt4
	case 8:
		return markerFixExt8
	case 16:
		return markerFixExt16
	default:
		return 0
	}
}
