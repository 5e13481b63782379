package server

import (
	"testing"

	assert "github.com/stretchr/testify/require"

	"github.com/saifulbkhan/gmpack/mpack"
)

func TestRegistryBindLookup(t *testing.T) {
	r := NewRegistry()
	id := r.Bind("add", func(args mpack.Value, userData interface{}) (mpack.Value, error) {
		return mpack.Nil, nil
	}, nil, nil)
	assert.Equal(t, uint32(0), id)

	h, _, ok := r.Lookup("add")
	assert.True(t, ok)
	assert.NotNil(t, h)

	_, _, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistryRebindReturnsOriginalID(t *testing.T) {
	r := NewRegistry()
	var destroyedWith interface{}
	id1 := r.Bind("add", func(mpack.Value, interface{}) (mpack.Value, error) { return mpack.Nil, nil }, "v1", func(v interface{}) {
		destroyedWith = v
	})

	id2 := r.Bind("add", func(mpack.Value, interface{}) (mpack.Value, error) { return mpack.Nil, nil }, "v2", nil)

	assert.Equal(t, id1, id2)
	assert.Equal(t, "v1", destroyedWith)

	_, userData, ok := r.Lookup("add")
	assert.True(t, ok)
	assert.Equal(t, "v2", userData)
}

func TestRegistryUnbind(t *testing.T) {
	r := NewRegistry()
	r.Bind("add", func(mpack.Value, interface{}) (mpack.Value, error) { return mpack.Nil, nil }, nil, nil)

	assert.True(t, r.Unbind("add"))
	assert.False(t, r.Unbind("add"))

	_, _, ok := r.Lookup("add")
	assert.False(t, ok)
}

func TestRegistryBindAssignsIncrementingIDs(t *testing.T) {
	r := NewRegistry()
	id0 := r.Bind("a", func(mpack.Value, interface{}) (mpack.Value, error) { return mpack.Nil, nil }, nil, nil)
	id1 := r.Bind("b", func(mpack.Value, interface{}) (mpack.Value, error) { return mpack.Nil, nil }, nil, nil)
	assert.Equal(t, uint32(0), id0)
	assert.Equal(t, uint32(1), id1)
}
