package mpack

import (
	"testing"

	assert "github.com/stretchr/testify/require"
)

// TestKnownEncodings pins exact wire bytes for a few canonical values,
// so a future change to the marker tables is caught even if it
// happens to preserve round-tripping.
func TestKnownEncodings(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want []byte
	}{
		{"fixarray-of-two-uints", NewArray(NewUint(1), NewUint(2)), []byte{0x92, 0x01, 0x02}},
		{"fixmap-one-pair", NewMap(Pair{Key: NewStr("a"), Val: NewUint(1)}), []byte{0x81, 0xa1, 'a', 0x01}},
		{"nil", Nil, []byte{0xc0}},
		{"bool-true", NewBool(true), []byte{0xc3}},
		{"negative-fixint", NewInt(-1), []byte{0xff}},
		{"empty-bin", NewBin(nil), []byte{0xc4, 0x00}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := encodeAll(t, tc.v)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSplitHeaderAcrossReaderCalls(t *testing.T) {
	// uint32 header: marker + 4 bytes, delivered one byte at a time.
	wire := []byte{markerUint32, 0x01, 0x02, 0x03, 0x04}
	r := NewReader()

	var tok Token
	var err error
	for i, b := range wire {
		var n int
		tok, n, err = r.Next([]byte{b})
		if i < len(wire)-1 {
			assert.ErrorIs(t, err, ErrEof)
			assert.Equal(t, 1, n)
		}
	}
	assert.NoError(t, err)
	assert.Equal(t, UInt, tok.Type)
	assert.Equal(t, uint64(0x01020304), tok.Uint)
}
