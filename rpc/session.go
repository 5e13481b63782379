package rpc

import (
	"io"
	"sync"
	"time"

	"github.com/imdario/mergo"
	"github.com/pkg/errors"

	"github.com/saifulbkhan/gmpack/mpack"
)

// sendBufSize is the scratch buffer size a Session uses to drain the
// token writer and unparser into the transport. It has no bearing on
// wire format; it only bounds how many Write calls a large message
// costs.
const sendBufSize = 512

// recvPhase tracks where Receive is within decoding one framing array
// across however many calls it takes to see enough bytes (spec
// section 4.3, "Receive path").
type recvPhase int

const (
	phaseArrayHeader recvPhase = iota
	phaseTypeCode
	phaseID
	phaseFirstValue
	phaseSecondValue
)

// Session frames and deframes MessagePack-RPC messages over a pair of
// mpack token codecs (spec section 4.3). It writes outbound messages
// directly to an io.Writer transport, serialized by an internal lock
// so that one message's bytes are never interleaved with another's
// (spec section 5, "Ordering guarantees"). Receive is pull-based: the
// caller (typically a StreamReader) feeds it byte slices as they
// arrive.
//
// A Session is safe for concurrent Send* calls; Receive must be
// called by a single owner at a time (spec section 5, "Scheduling
// model": one read loop per transport).
type Session struct {
	out io.Writer

	mu       sync.Mutex
	wr       *mpack.Writer
	un       *mpack.Unparser
	inflight *inflightTable
	nextID   uint32

	trace *Trace

	recvR     *mpack.Reader
	p         *mpack.Parser
	recvPhase recvPhase

	recvArrayLen uint32
	recvType     uint64
	recvID       uint32
	recvUserData interface{}
	recvFirst    mpack.Value
}

// NewSession creates a Session that writes framed messages to out.
// trace may be nil, in which case NoOpTrace is used; nil hooks of a
// non-nil trace are filled in from NoOpTrace.
func NewSession(out io.Writer, trace *Trace) *Session {
	if trace == nil {
		trace = NoOpTrace
	} else {
		merged := *trace
		_ = mergo.Merge(&merged, NoOpTrace)
		trace = &merged
	}
	return &Session{
		out:      out,
		wr:       mpack.NewWriter(),
		un:       mpack.NewUnparser(),
		inflight: newInflightTable(),
		trace:    trace,
		recvR:    mpack.NewReader(),
		p:        mpack.NewParser(),
	}
}

// InFlightCount reports the number of outstanding requests.
func (s *Session) InFlightCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight.count
}

// GrowInFlight doubles the capacity of the in-flight request table.
// Call it after a Send* call fails with ErrNoMem, then retry.
func (s *Session) GrowInFlight() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight.grow()
}

// GrowParserDepth doubles the max nesting depth Receive's object
// parser tolerates. Call it after Receive fails with ErrNoMem, then
// call Receive again with the same remaining input.
func (s *Session) GrowParserDepth() {
	s.p.GrowDepth()
}

// allocateID picks the next request id per spec section 4.3 ("ID
// allocation"): start at nextID, increment modulo 2^32-1, skip ids
// that collide with a live in-flight entry.
func (s *Session) allocateID() (uint32, bool) {
	limit := s.inflight.capacity() + 1
	for i := 0; i < limit; i++ {
		id := s.nextID
		s.nextID++
		if s.nextID == 0xffffffff {
			s.nextID = 0
		}
		if !s.inflight.has(id) {
			return id, true
		}
	}
	return 0, false
}

// SendRequest writes a framed request and records userData in the
// in-flight table under the allocated id before any byte leaves the
// session (spec section 4.3, "Send path"). If the table has no free
// slot, it returns ErrNoMem and consumes no id; if encoding fails
// partway, the id is rolled back out of the table.
func (s *Session) SendRequest(method string, args mpack.Value, userData interface{}) (id uint32, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.allocateID()
	if !ok {
		s.trace.InFlightFull(s.inflight.capacity())
		return 0, ErrNoMem
	}
	if inserted, _ := s.inflight.put(id, userData); !inserted {
		s.nextID = id
		s.trace.InFlightFull(s.inflight.capacity())
		return 0, ErrNoMem
	}
	s.trace.RequestIDAllocated(id)

	start := time.Now()
	s.trace.SendStart(Request, id, method)
	err = s.writeFramed(Request, id, mpack.NewStr(method), args)
	s.trace.SendDone(Request, id, method, err, time.Since(start))
	if err != nil {
		s.inflight.pop(id)
		return 0, err
	}
	return id, nil
}

// SendResponse writes a framed response for id. errVal should be Nil
// on success; result is ignored by convention when errVal is not Nil.
func (s *Session) SendResponse(id uint32, errVal, result mpack.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.trace.SendStart(Response, id, "")
	err := s.writeFramed(Response, id, errVal, result)
	s.trace.SendDone(Response, id, "", err, time.Since(start))
	return err
}

// SendNotification writes a framed one-way notification.
func (s *Session) SendNotification(method string, args mpack.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.trace.SendStart(Notification, 0, method)
	err := s.writeFramed(Notification, 0, mpack.NewStr(method), args)
	s.trace.SendDone(Notification, 0, method, err, time.Since(start))
	return err
}

func (s *Session) writeFramed(kind Kind, id uint32, first, second mpack.Value) error {
	var arrLen uint64
	var typeCode uint64
	switch kind {
	case Request:
		arrLen, typeCode = 4, wireRequest
	case Response:
		arrLen, typeCode = 4, wireResponse
	case Notification:
		arrLen, typeCode = 3, wireNotification
	}

	if err := s.emitToken(mpack.Token{Type: mpack.Array, Length: uint32(arrLen)}); err != nil {
		return err
	}
	if err := s.emitToken(mpack.Token{Type: mpack.UInt, Uint: typeCode}); err != nil {
		return err
	}
	if kind == Request || kind == Response {
		if err := s.emitToken(mpack.Token{Type: mpack.UInt, Uint: uint64(id)}); err != nil {
			return err
		}
	}
	if err := s.emitValue(first); err != nil {
		return err
	}
	return s.emitValue(second)
}

func (s *Session) emitToken(tok mpack.Token) error {
	var buf [sendBufSize]byte

	if tok.Type == mpack.Chunk {
		data := tok.Data
		for len(data) > 0 {
			n, err := s.wr.Put(buf[:], mpack.Token{Type: mpack.Chunk, Data: data})
			if n > 0 {
				if _, werr := s.out.Write(buf[:n]); werr != nil {
					return werr
				}
			}
			if err == nil {
				return nil
			}
			if err != mpack.ErrEof {
				return err
			}
			data = data[n:]
		}
		return nil
	}

	n, err := s.wr.Put(buf[:], tok)
	if n > 0 {
		if _, werr := s.out.Write(buf[:n]); werr != nil {
			return werr
		}
	}
	for err == mpack.ErrEof {
		n, err = s.wr.Flush(buf[:])
		if n > 0 {
			if _, werr := s.out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
	}
	return err
}

func (s *Session) emitValue(v mpack.Value) error {
	s.un.Start(v)
	var buf [sendBufSize]byte
	for {
		n, err := s.un.Next(buf[:])
		if n > 0 {
			if _, werr := s.out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		switch err {
		case nil:
			return nil
		case mpack.ErrNoMem:
			s.un.GrowDepth()
		case mpack.ErrEof:
			// continue draining
		default:
			return err
		}
	}
}

// Receive attempts to decode one Message from data, resuming across
// calls exactly as Parser/Reader do (spec section 4.3, "Receive
// path"; section 8, "split at arbitrary byte boundaries").
//
// On success it returns the message and the number of bytes of data
// consumed. mpack.ErrEof means more bytes are needed; call Receive
// again with them appended. mpack.ErrNoMem means the object parser's
// depth limit was hit; call GrowParserDepth and call Receive again
// with the same remaining input. Any other error is terminal for the
// transport (spec section 7, taxonomy classes 2 and 3).
func (s *Session) Receive(data []byte) (msg Message, consumed int, err error) {
	if s.recvPhase == phaseArrayHeader {
		s.trace.ReceiveStart()
	}
	start := time.Now()
	defer func() {
		if err != mpack.ErrEof {
			s.trace.ReceiveDone(msg, err, time.Since(start))
		}
		if err != nil && err != mpack.ErrEof && err != mpack.ErrNoMem {
			s.trace.Error("receive", err)
		}
	}()

	var total int

	for {
		switch s.recvPhase {
		case phaseArrayHeader:
			tok, n, err := s.recvR.Next(data[total:])
			total += n
			if err != nil {
				return Message{}, total, err
			}
			if tok.Type != mpack.Array {
				return Message{}, total, errors.WithStack(ErrArray)
			}
			if tok.Length != 3 && tok.Length != 4 {
				return Message{}, total, errors.WithStack(ErrArrayLen)
			}
			s.recvArrayLen = tok.Length
			s.recvPhase = phaseTypeCode

		case phaseTypeCode:
			tok, n, err := s.recvR.Next(data[total:])
			total += n
			if err != nil {
				return Message{}, total, err
			}
			if tok.Type != mpack.UInt {
				return Message{}, total, errors.WithStack(ErrType)
			}
			s.recvType = tok.Uint
			switch s.recvType {
			case wireRequest, wireResponse:
				if s.recvArrayLen != 4 {
					return Message{}, total, errors.WithStack(ErrArrayLen)
				}
				s.recvPhase = phaseID
			case wireNotification:
				if s.recvArrayLen != 3 {
					return Message{}, total, errors.WithStack(ErrArrayLen)
				}
				s.recvPhase = phaseFirstValue
			default:
				return Message{}, total, errors.WithStack(ErrType)
			}

		case phaseID:
			tok, n, err := s.recvR.Next(data[total:])
			total += n
			if err != nil {
				return Message{}, total, err
			}
			if tok.Type != mpack.UInt || tok.Uint > 0xffffffff {
				return Message{}, total, errors.WithStack(ErrMsgID)
			}
			s.recvID = uint32(tok.Uint)
			if s.recvType == wireResponse {
				s.mu.Lock()
				userData, ok := s.inflight.pop(s.recvID)
				s.mu.Unlock()
				if !ok {
					return Message{}, total, errors.WithStack(ErrResID)
				}
				s.recvUserData = userData
			}
			s.recvPhase = phaseFirstValue

		case phaseFirstValue:
			v, n, err := s.p.Parse(data[total:])
			total += n
			if err != nil {
				return Message{}, total, err
			}
			s.recvFirst = v
			s.recvPhase = phaseSecondValue

		case phaseSecondValue:
			v, n, err := s.p.Parse(data[total:])
			total += n
			if err != nil {
				return Message{}, total, err
			}

			var msg Message
			switch s.recvType {
			case wireRequest:
				msg = Message{Kind: Request, ID: s.recvID, Method: s.recvFirst, Args: v}
			case wireResponse:
				msg = Message{Kind: Response, ID: s.recvID, Error: s.recvFirst, Result: v, UserData: s.recvUserData}
			case wireNotification:
				msg = Message{Kind: Notification, Method: s.recvFirst, Args: v}
			}
			s.resetRecv()
			return msg, total, nil
		}
	}
}

func (s *Session) resetRecv() {
	s.recvPhase = phaseArrayHeader
	s.recvArrayLen = 0
	s.recvType = 0
	s.recvID = 0
	s.recvUserData = nil
	s.recvFirst = mpack.Nil
}

// Resync discards any partially decoded message state after a
// terminal Receive error, so the next Receive call starts clean at
// the next byte the caller supplies (spec section 7, "Note on
// partial-message discard").
func (s *Session) Resync() {
	s.recvR = mpack.NewReader()
	s.p = mpack.NewParser()
	s.resetRecv()
}
