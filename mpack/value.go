package mpack

import "fmt"

// ValueType discriminates the variant held by a Value.
type ValueType uint8

// Value variants, per spec section 3, "Value".
const (
	VNil ValueType = iota
	VBool
	VUInt
	VSInt
	VFloat
	VStr
	VBin
	VExt
	VArray
	VMap
)

func (t ValueType) String() string {
	switch t {
	case VNil:
		return "Nil"
	case VBool:
		return "Bool"
	case VUInt:
		return "UInt"
	case VSInt:
		return "SInt"
	case VFloat:
		return "Float"
	case VStr:
		return "Str"
	case VBin:
		return "Bin"
	case VExt:
		return "Ext"
	case VArray:
		return "Array"
	case VMap:
		return "Map"
	default:
		return fmt.Sprintf("ValueType(%d)", uint8(t))
	}
}

// Pair is one key/value entry of an ordered Map. Maps preserve
// insertion order and may contain duplicate or non-comparable keys;
// they are represented as a sequence of Pairs, never as a Go map
// (spec section 3, "Value").
type Pair struct {
	Key Value
	Val Value
}

// Value is a recursive dynamic MessagePack value. The zero Value is
// VNil.
type Value struct {
	typ ValueType

	b bool
	u uint64
	i int64
	f float64

	// bytes holds the Str (UTF-8, not validated), Bin, or Ext payload.
	// It is an owned buffer once materialized by the parser (spec
	// section "String materialization").
	bytes   []byte
	extType int8

	items []Value
	pairs []Pair
}

// Nil is the Nil value.
var Nil = Value{typ: VNil}

// NewBool returns a Bool value.
func NewBool(b bool) Value { return Value{typ: VBool, b: b} }

// NewUint returns a UInt value.
func NewUint(u uint64) Value { return Value{typ: VUInt, u: u} }

// NewInt returns an SInt value.
func NewInt(i int64) Value { return Value{typ: VSInt, i: i} }

// NewFloat returns a Float value.
func NewFloat(f float64) Value { return Value{typ: VFloat, f: f} }

// NewStr returns a Str value. The string's bytes are copied.
func NewStr(s string) Value {
	return Value{typ: VStr, bytes: append([]byte(nil), s...)}
}

// NewBin returns a Bin value. b is copied.
func NewBin(b []byte) Value {
	return Value{typ: VBin, bytes: append([]byte(nil), b...)}
}

// NewExt returns an Ext value. b is copied.
func NewExt(extType int8, b []byte) Value {
	return Value{typ: VExt, extType: extType, bytes: append([]byte(nil), b...)}
}

// NewArray returns an Array value wrapping items (not copied).
func NewArray(items ...Value) Value {
	return Value{typ: VArray, items: items}
}

// NewMap returns a Map value wrapping pairs (not copied), preserving
// the supplied order.
func NewMap(pairs ...Pair) Value {
	return Value{typ: VMap, pairs: pairs}
}

// Type reports the value's variant.
func (v Value) Type() ValueType { return v.typ }

// IsNil reports whether v is Nil.
func (v Value) IsNil() bool { return v.typ == VNil }

// Bool returns v's boolean payload; valid only if Type() == VBool.
func (v Value) Bool() bool { return v.b }

// Uint returns v's unsigned payload; valid only if Type() == VUInt.
func (v Value) Uint() uint64 { return v.u }

// Int returns v's signed payload; valid only if Type() == VSInt.
func (v Value) Int() int64 { return v.i }

// Float returns v's float payload; valid only if Type() == VFloat.
func (v Value) Float() float64 { return v.f }

// Str returns v's string payload; valid only if Type() == VStr.
func (v Value) Str() string { return string(v.bytes) }

// Bin returns v's binary payload; valid only if Type() == VBin.
func (v Value) Bin() []byte { return v.bytes }

// Ext returns v's extension type and payload; valid only if
// Type() == VExt.
func (v Value) Ext() (extType int8, data []byte) { return v.extType, v.bytes }

// Array returns v's elements; valid only if Type() == VArray.
func (v Value) Array() []Value { return v.items }

// Map returns v's key/value pairs, in insertion order; valid only if
// Type() == VMap.
func (v Value) Map() []Pair { return v.pairs }

// Equal reports whether v and o represent the same MessagePack value.
// Ordered maps are compared as sequences (order matters); a UInt and
// an SInt are equal when they hold the same number, so a non-negative
// SInt equals the UInt of the same magnitude (spec section 8,
// "Invariants").
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		switch {
		case v.typ == VUInt && o.typ == VSInt:
			return o.i >= 0 && uint64(o.i) == v.u
		case v.typ == VSInt && o.typ == VUInt:
			return v.i >= 0 && uint64(v.i) == o.u
		}
		return false
	}
	switch v.typ {
	case VNil:
		return true
	case VBool:
		return v.b == o.b
	case VUInt:
		return v.u == o.u
	case VSInt:
		return v.i == o.i
	case VFloat:
		return v.f == o.f
	case VStr, VBin:
		return string(v.bytes) == string(o.bytes)
	case VExt:
		return v.extType == o.extType && string(v.bytes) == string(o.bytes)
	case VArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case VMap:
		if len(v.pairs) != len(o.pairs) {
			return false
		}
		for i := range v.pairs {
			if !v.pairs[i].Key.Equal(o.pairs[i].Key) || !v.pairs[i].Val.Equal(o.pairs[i].Val) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
