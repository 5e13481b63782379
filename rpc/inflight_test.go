package rpc

import (
	"testing"

	assert "github.com/stretchr/testify/require"
)

func TestInflightPutPopBasic(t *testing.T) {
	tbl := newInflightTable()

	ok, dup := tbl.put(5, "hello")
	assert.True(t, ok)
	assert.False(t, dup)
	assert.Equal(t, 1, tbl.count)

	_, dup = tbl.put(5, "again")
	assert.True(t, dup)

	v, ok := tbl.pop(5)
	assert.True(t, ok)
	assert.Equal(t, "hello", v)
	assert.Equal(t, 0, tbl.count)

	_, ok = tbl.pop(5)
	assert.False(t, ok)
}

func TestInflightSurvivesPopOfCollidingEntry(t *testing.T) {
	tbl := newInflightTable()
	capacity := tbl.capacity()

	a := uint32(3)
	b := a + uint32(capacity) // collides with a's home slot

	ok, _ := tbl.put(a, "a")
	assert.True(t, ok)
	ok, _ = tbl.put(b, "b")
	assert.True(t, ok)

	// Popping a leaves a tombstone; b (which probed past a's home slot)
	// must still be findable.
	_, ok = tbl.pop(a)
	assert.True(t, ok)

	v, ok := tbl.pop(b)
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestInflightFullThenGrow(t *testing.T) {
	tbl := newInflightTable()
	capacity := tbl.capacity()

	for i := 0; i < capacity; i++ {
		ok, _ := tbl.put(uint32(i), i)
		assert.True(t, ok, "insert %d should succeed", i)
	}

	ok, dup := tbl.put(uint32(capacity), "overflow")
	assert.False(t, ok)
	assert.False(t, dup)

	tbl.grow()
	assert.Equal(t, capacity*2, tbl.capacity())
	assert.Equal(t, capacity, tbl.count)

	ok, _ = tbl.put(uint32(capacity), "fits now")
	assert.True(t, ok)

	for i := 0; i < capacity; i++ {
		v, ok := tbl.pop(uint32(i))
		assert.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestInflightHas(t *testing.T) {
	tbl := newInflightTable()
	assert.False(t, tbl.has(1))
	_, _ = tbl.put(1, nil)
	assert.True(t, tbl.has(1))
	_, _ = tbl.pop(1)
	assert.False(t, tbl.has(1))
}
