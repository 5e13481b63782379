package mpack

import "fmt"

// Token is a single MessagePack element header, or a chunk of the
// payload that follows a Str/Bin/Ext header. One Token never
// represents a full composite value; arrays and maps are a sequence
// of Tokens for their children, produced and consumed by the object
// parser (see parser.go, unparser.go).

// TokenType discriminates the kind of Token.
type TokenType uint8

// Token kinds, per spec section "Token".
const (
	Nil TokenType = iota
	Bool
	UInt
	SInt
	Float
	Array
	Map
	Str
	Bin
	Ext
	Chunk
)

func (t TokenType) String() string {
	switch t {
	case Nil:
		return "Nil"
	case Bool:
		return "Bool"
	case UInt:
		return "UInt"
	case SInt:
		return "SInt"
	case Float:
		return "Float"
	case Array:
		return "Array"
	case Map:
		return "Map"
	case Str:
		return "Str"
	case Bin:
		return "Bin"
	case Ext:
		return "Ext"
	case Chunk:
		return "Chunk"
	default:
		return fmt.Sprintf("TokenType(%d)", uint8(t))
	}
}

// Token is the unit of work exchanged with Reader/Writer.
//
// For Array/Map, Length holds the item count (in pairs, for Map, not
// tokens). For Str/Bin, Length holds the payload byte length that the
// following Chunk tokens must sum to. For Ext, Length is the payload
// byte length and ExtType carries the extension type byte. For
// Chunk, Data holds (a slice of, in the Reader's zero-copy
// passthrough case) the chunk bytes; Length is unused.
type Token struct {
	Type TokenType

	Bool bool

	// Uint and Sint hold the decoded magnitude for UInt/SInt tokens.
	// Readers upgrade a signed encoding with a clear sign bit to UInt;
	// writers pick whichever of the two is narrowest for the value.
	Uint uint64
	Sint int64

	Float float64

	// Length is the Array/Map item count (pairs for Map), or the
	// Str/Bin/Ext payload byte length.
	Length uint32

	// ExtType is the signed extension type byte, valid only for Ext.
	ExtType int8

	// Data is the raw bytes of a Chunk token.
	Data []byte
}

// IsComposite reports whether t opens a value with children (Array,
// Map) rather than being a scalar or a chunk/opener-that-is-its-own-leaf.
func (t Token) IsComposite() bool {
	return t.Type == Array || t.Type == Map
}

// HasPayload reports whether t is a header that will be followed by
// Chunk tokens summing to Length bytes.
func (t Token) HasPayload() bool {
	return t.Type == Str || t.Type == Bin || t.Type == Ext
}
