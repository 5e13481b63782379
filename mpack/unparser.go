package mpack

// outFrame is one level of the Unparser's explicit depth stack, the
// mirror image of Parser's frame (spec section 4.2, "Unparse
// algorithm"). idx/emittingVal/sent track how much of the composite
// or payload has already been handed to the Writer.
type outFrame struct {
	kind frameKind

	items []Value
	idx   int

	pairs       []Pair
	emittingVal bool

	data []byte
	sent uint32
}

// UnparserOption configures an Unparser at construction time.
type UnparserOption func(*Unparser)

// WithUnparserMaxDepth overrides DefaultMaxDepth for an Unparser.
func WithUnparserMaxDepth(depth int) UnparserOption {
	return func(u *Unparser) { u.maxDepth = depth }
}

// Unparser serializes a Value tree into a MessagePack byte stream,
// using the same bounded explicit-stack approach as Parser rather
// than recursing on the host call stack. A single Value may need many
// calls to Next if the tree is large or the caller supplies small
// buffers; Unparser resumes exactly where the previous call left off.
//
// An Unparser is not safe for concurrent use.
type Unparser struct {
	w        *Writer
	stack    []outFrame
	maxDepth int

	pending    Value
	hasPending bool
	needFlush  bool
	// pendingChunk holds payload bytes that didn't fully fit in a
	// previous Next call's dst; it is drained before anything else.
	pendingChunk []byte

	finished bool
}

// NewUnparser creates an Unparser with DefaultMaxDepth, as modified by
// opts. Call Start before the first Next.
func NewUnparser(opts ...UnparserOption) *Unparser {
	u := &Unparser{w: NewWriter(), maxDepth: DefaultMaxDepth, finished: true}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// GrowDepth doubles the unparser's maximum nesting depth. Call it
// after Next returns ErrNoMem, then call Next again with more output
// space; the unparser retries the push that previously overflowed.
func (u *Unparser) GrowDepth() {
	if u.maxDepth == 0 {
		u.maxDepth = DefaultMaxDepth
		return
	}
	u.maxDepth *= 2
}

// Start begins encoding v. Any value previously in progress is
// discarded.
func (u *Unparser) Start(v Value) {
	u.stack = u.stack[:0]
	u.pending = v
	u.hasPending = true
	u.needFlush = false
	u.pendingChunk = nil
	u.finished = false
}

// Done reports whether the value passed to Start has been fully
// written.
func (u *Unparser) Done() bool { return u.finished }

// Next writes as much of the value given to Start into dst as fits,
// returning the number of bytes written.
//
// It returns nil once the whole value has been written. It returns
// ErrEof if dst was exhausted with more of the value still to write;
// call Next again with further output space. It returns ErrNoMem if
// writing the value would require nesting past the configured max
// depth; call GrowDepth and call Next again.
func (u *Unparser) Next(dst []byte) (int, error) {
	var total int

	for {
		if u.finished {
			return total, nil
		}

		if len(u.pendingChunk) > 0 {
			n := copy(dst[total:], u.pendingChunk)
			total += n
			u.pendingChunk = u.pendingChunk[n:]
			if len(u.pendingChunk) > 0 {
				return total, ErrEof
			}
			continue
		}

		if u.needFlush {
			n, err := u.w.Flush(dst[total:])
			total += n
			if err != nil {
				return total, ErrEof
			}
			u.needFlush = false
			continue
		}

		if u.hasPending {
			v := u.pending

			pushed, overflow := u.pushFrame(v)
			if overflow {
				return total, ErrNoMem
			}
			u.hasPending = false

			n, err := u.w.Put(dst[total:], headerToken(v))
			total += n
			if err != nil {
				u.needFlush = true
			}
			_ = pushed
			continue
		}

		if len(u.stack) == 0 {
			u.finished = true
			continue
		}

		top := &u.stack[len(u.stack)-1]
		switch top.kind {
		case frameArray:
			if top.idx >= len(top.items) {
				u.stack = u.stack[:len(u.stack)-1]
				continue
			}
			u.pending = top.items[top.idx]
			top.idx++
			u.hasPending = true

		case frameMap:
			if top.idx >= len(top.pairs) {
				u.stack = u.stack[:len(u.stack)-1]
				continue
			}
			if !top.emittingVal {
				u.pending = top.pairs[top.idx].Key
				top.emittingVal = true
			} else {
				u.pending = top.pairs[top.idx].Val
				top.emittingVal = false
				top.idx++
			}
			u.hasPending = true

		case framePayload:
			if top.sent >= uint32(len(top.data)) {
				u.stack = u.stack[:len(u.stack)-1]
				continue
			}
			chunk := top.data[top.sent:]
			n, err := u.w.Put(dst[total:], Token{Type: Chunk, Data: chunk})
			total += n
			top.sent += uint32(n)
			if err != nil {
				// The unwritten tail is handed to pendingChunk, so the
				// frame counts the whole payload as sent.
				u.pendingChunk = chunk[n:]
				top.sent = uint32(len(top.data))
				return total, ErrEof
			}
		}
	}
}

// pushFrame pushes a frame for a composite or non-empty payload value
// about to be written, enforcing maxDepth. Scalars and empty
// strings/binaries/exts need no frame: pushed is false and overflow
// is false.
func (u *Unparser) pushFrame(v Value) (pushed bool, overflow bool) {
	switch v.Type() {
	case VArray:
		if len(u.stack) >= u.maxDepth {
			return false, true
		}
		u.stack = append(u.stack, outFrame{kind: frameArray, items: v.items})
		return true, false
	case VMap:
		if len(u.stack) >= u.maxDepth {
			return false, true
		}
		u.stack = append(u.stack, outFrame{kind: frameMap, pairs: v.pairs})
		return true, false
	case VStr, VBin, VExt:
		if len(v.bytes) == 0 {
			return false, false
		}
		if len(u.stack) >= u.maxDepth {
			return false, true
		}
		u.stack = append(u.stack, outFrame{kind: framePayload, data: v.bytes})
		return true, false
	default:
		return false, false
	}
}

func headerToken(v Value) Token {
	switch v.Type() {
	case VNil:
		return Token{Type: Nil}
	case VBool:
		return Token{Type: Bool, Bool: v.b}
	case VUInt:
		return Token{Type: UInt, Uint: v.u}
	case VSInt:
		return Token{Type: SInt, Sint: v.i}
	case VFloat:
		return Token{Type: Float, Float: v.f}
	case VStr:
		return Token{Type: Str, Length: uint32(len(v.bytes))}
	case VBin:
		return Token{Type: Bin, Length: uint32(len(v.bytes))}
	case VExt:
		return Token{Type: Ext, Length: uint32(len(v.bytes)), ExtType: v.extType}
	case VArray:
		return Token{Type: Array, Length: uint32(len(v.items))}
	case VMap:
		return Token{Type: Map, Length: uint32(len(v.pairs))}
	default:
		return Token{Type: Nil}
	}
}
