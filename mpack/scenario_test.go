package mpack

import (
	"testing"

	assert "github.com/stretchr/testify/require"
)

// TestCannedStructureScenario pins the worked example from the design
// document: an array of two maps, one of which holds a negative
// float and a zero-length string key.
func TestCannedStructureScenario(t *testing.T) {
	wire := []byte{
		0x92, 0x82, 0xa7, 'c', 'o', 'm', 'p', 'a', 'c', 't', 0xc3, 0xa6, 's', 'c', 'h', 'e', 'm', 'a', 0x00,
		0x82, 0xa0, 0xcf, 0xdc, 0xc8, 0x0c, 0xd4, 0x00, 0x00, 0x00, 0x00, 0xa6, 'n', 'e', 'g', ' ', 'P', 'i', 0xcb,
		0xc0, 0x09, 0x1e, 0xb8, 0x51, 0xeb, 0x85, 0x1f,
	}

	p := NewParser()
	v, n, err := p.Parse(wire)
	assert.NoError(t, err)
	assert.Equal(t, len(wire), n)

	items := v.Array()
	assert.Len(t, items, 2)

	first := items[0].Map()
	assert.Len(t, first, 2)
	assert.True(t, first[0].Key.Equal(NewStr("compact")))
	assert.True(t, first[0].Val.Equal(NewBool(true)))
	assert.True(t, first[1].Key.Equal(NewStr("schema")))
	assert.True(t, first[1].Val.Equal(NewUint(0)))

	second := items[1].Map()
	assert.Len(t, second, 2)
	assert.True(t, second[0].Key.Equal(NewStr("")))
	assert.Equal(t, uint64(0xdcc80cd400000000), second[0].Val.Uint())
	assert.True(t, second[1].Key.Equal(NewStr("neg Pi")))
	assert.InDelta(t, -3.14, second[1].Val.Float(), 1e-12)

	reencoded := encodeAll(t, v)
	assert.Equal(t, wire, reencoded)
}
