package mpack

import "github.com/pkg/errors"

// DefaultMaxDepth is the default bound on nested nesting Parser and
// Unparser will tolerate before reporting ErrNoMem (spec section 3,
// "Parser state").
const DefaultMaxDepth = 32

type frameKind uint8

const (
	frameArray frameKind = iota
	frameMap
	framePayload
)

// frame is one level of the Parser's explicit depth stack. Per spec
// section "Callback-driven walker vs. native recursion", the parser
// never recurses on the host call stack; all nesting state lives here.
type frame struct {
	kind frameKind

	pos        uint32
	remaining  uint32
	keyVisited bool

	items []Value
	pairs []Pair
	savedKey Value

	payloadType ValueType
	extType     int8
	buf         []byte
	bufPos      uint32
}

// ParserOption configures a Parser at construction time.
type ParserOption func(*Parser)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) ParserOption {
	return func(p *Parser) { p.maxDepth = depth }
}

// Parser walks a MessagePack token stream and reconstructs a Value
// tree, using a bounded, explicit frame stack rather than native
// recursion (spec section 4.2). It owns a Reader to pull tokens from
// caller-supplied byte slices.
//
// A Parser is not safe for concurrent use.
type Parser struct {
	r        *Reader
	stack    []frame
	maxDepth int

	// pendingOpener holds a token that was successfully decoded but
	// could not be pushed because the stack was at capacity. Parse
	// retries the push (not the decode) once the caller has grown the
	// Parser's depth via GrowDepth.
	pendingOpener *Token
}

// NewParser creates a Parser with DefaultMaxDepth, as modified by opts.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{r: NewReader(), maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GrowDepth doubles the parser's maximum nesting depth. Call it after
// Parse returns ErrNoMem, then call Parse again with the same
// trailing input (or more, if more has since arrived); the parser
// retries the push that previously overflowed without re-decoding any
// bytes.
func (p *Parser) GrowDepth() {
	if p.maxDepth == 0 {
		p.maxDepth = DefaultMaxDepth
		return
	}
	p.maxDepth *= 2
}

// Parse attempts to decode one complete Value from data, resuming
// across calls as needed.
//
// On success, it returns the decoded value, the number of bytes of
// data consumed, and a nil error.
//
// If data runs out mid-value, Parse returns ErrEof; call it again
// with more bytes appended after the consumed prefix.
//
// If decoding would require pushing past the configured max depth,
// Parse returns ErrNoMem; call GrowDepth and call Parse again with
// the same remaining input.
//
// A malformed token prefix surfaces as ErrFormat and is terminal.
func (p *Parser) Parse(data []byte) (Value, int, error) {
	var total int

	for {
		if p.pendingOpener != nil {
			tok := *p.pendingOpener
			if !p.push(tok) {
				return Value{}, total, ErrNoMem
			}
			p.pendingOpener = nil
			if v, complete := p.maybeCompleteTop(); complete {
				return v, total, nil
			}
			continue
		}

		tok, n, err := p.r.Next(data[total:])
		total += n
		if err != nil {
			return Value{}, total, err
		}

		switch {
		case tok.Type == Chunk:
			v, complete, cerr := p.consumeChunk(tok)
			if cerr != nil {
				return Value{}, total, cerr
			}
			if complete {
				return v, total, nil
			}

		case tok.IsComposite() || tok.HasPayload():
			if !p.push(tok) {
				cp := tok
				p.pendingOpener = &cp
				return Value{}, total, ErrNoMem
			}
			if v, complete := p.maybeCompleteTop(); complete {
				return v, total, nil
			}

		default:
			if res, complete := p.finish(scalarValue(tok)); complete {
				return res, total, nil
			}
		}
	}
}

func (p *Parser) push(tok Token) bool {
	if len(p.stack) >= p.maxDepth {
		return false
	}
	switch tok.Type {
	case Array:
		p.stack = append(p.stack, frame{kind: frameArray, remaining: tok.Length, items: make([]Value, 0, tok.Length)})
	case Map:
		p.stack = append(p.stack, frame{kind: frameMap, remaining: tok.Length, pairs: make([]Pair, 0, tok.Length)})
	case Str, Bin, Ext:
		p.stack = append(p.stack, frame{
			kind:        framePayload,
			payloadType: payloadValueType(tok.Type),
			extType:     tok.ExtType,
			buf:         make([]byte, tok.Length),
		})
	}
	return true
}

// maybeCompleteTop checks whether the frame just pushed is already
// complete (an empty array/map, or a zero-length string/binary/ext
// with no chunks to follow) and, if so, unwinds it.
func (p *Parser) maybeCompleteTop() (Value, bool) {
	top := &p.stack[len(p.stack)-1]
	switch top.kind {
	case frameArray:
		if top.pos < top.remaining {
			return Value{}, false
		}
		v := NewArray(top.items...)
		p.stack = p.stack[:len(p.stack)-1]
		return p.finish(v)
	case frameMap:
		if top.pos < top.remaining {
			return Value{}, false
		}
		v := NewMap(top.pairs...)
		p.stack = p.stack[:len(p.stack)-1]
		return p.finish(v)
	case framePayload:
		if top.bufPos < uint32(len(top.buf)) {
			return Value{}, false
		}
		v := finishedPayloadValue(top)
		p.stack = p.stack[:len(p.stack)-1]
		return p.finish(v)
	}
	return Value{}, false
}

func (p *Parser) consumeChunk(tok Token) (Value, bool, error) {
	if len(p.stack) == 0 {
		return Value{}, false, errors.Wrap(ErrFormat, "chunk with no open string/binary/ext payload")
	}
	top := &p.stack[len(p.stack)-1]
	if top.kind != framePayload {
		return Value{}, false, errors.Wrap(ErrFormat, "chunk while not inside a string/binary/ext payload")
	}
	n := copy(top.buf[top.bufPos:], tok.Data)
	top.bufPos += uint32(n)
	if top.bufPos < uint32(len(top.buf)) {
		return Value{}, false, nil
	}
	v := finishedPayloadValue(top)
	p.stack = p.stack[:len(p.stack)-1]
	res, complete := p.finish(v)
	return res, complete, nil
}

// finish attaches a just-completed value v to its parent frame (if
// any), unwinding every ancestor frame that becomes complete as a
// result, per spec section 4.2 step 2. It returns the top-level value
// and true once the whole tree is complete, or a zero Value and false
// while some ancestor still awaits more children.
func (p *Parser) finish(v Value) (Value, bool) {
	for {
		if len(p.stack) == 0 {
			return v, true
		}
		top := &p.stack[len(p.stack)-1]
		switch top.kind {
		case frameArray:
			top.items = append(top.items, v)
			top.pos++
			if top.pos < top.remaining {
				return Value{}, false
			}
			v = NewArray(top.items...)
			p.stack = p.stack[:len(p.stack)-1]

		case frameMap:
			if !top.keyVisited {
				top.savedKey = v
				top.keyVisited = true
				return Value{}, false
			}
			top.pairs = append(top.pairs, Pair{Key: top.savedKey, Val: v})
			top.keyVisited = false
			top.pos++
			if top.pos < top.remaining {
				return Value{}, false
			}
			v = NewMap(top.pairs...)
			p.stack = p.stack[:len(p.stack)-1]

		default:
			// A payload frame is never a parent in the finish() sense:
			// it completes via consumeChunk/maybeCompleteTop, which pop
			// it before calling finish with its own constructed value.
			return Value{}, false
		}
	}
}

func scalarValue(tok Token) Value {
	switch tok.Type {
	case Nil:
		return Nil
	case Bool:
		return NewBool(tok.Bool)
	case UInt:
		return NewUint(tok.Uint)
	case SInt:
		return NewInt(tok.Sint)
	case Float:
		return NewFloat(tok.Float)
	default:
		return Nil
	}
}

func finishedPayloadValue(f *frame) Value {
	switch f.payloadType {
	case VStr:
		return Value{typ: VStr, bytes: f.buf}
	case VBin:
		return Value{typ: VBin, bytes: f.buf}
	case VExt:
		return Value{typ: VExt, bytes: f.buf, extType: f.extType}
	default:
		return Nil
	}
}

func payloadValueType(t TokenType) ValueType {
	switch t {
	case Str:
		return VStr
	case Bin:
		return VBin
	case Ext:
		return VExt
	default:
		return VNil
	}
}
