package lvlhsh

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertFind(t *testing.T) {
	var h Hash

	assert.True(t, h.Insert("a", DJB("a"), 1, false))
	assert.True(t, h.Insert("b", DJB("b"), 2, false))
	assert.Equal(t, 2, h.Len())

	e := h.Find("a", DJB("a"))
	require.NotNil(t, e)
	assert.Equal(t, 1, e.Value)

	assert.Nil(t, h.Find("c", DJB("c")))
}

func TestInsertNoReplace(t *testing.T) {
	var h Hash

	require.True(t, h.Insert("k", DJB("k"), "old", false))
	assert.False(t, h.Insert("k", DJB("k"), "new", false))
	assert.Equal(t, "old", h.Find("k", DJB("k")).Value)

	assert.True(t, h.Insert("k", DJB("k"), "new", true))
	assert.Equal(t, "new", h.Find("k", DJB("k")).Value)
	assert.Equal(t, 1, h.Len())
}

func TestCollisionChaining(t *testing.T) {
	var h Hash

	// Same hash forces descent to the deepest level and then chaining.
	for i := range 5 {
		key := fmt.Sprintf("key%d", i)
		require.True(t, h.Insert(key, 0xdeadbeef, i, false))
	}

	for i := range 5 {
		key := fmt.Sprintf("key%d", i)
		e := h.Find(key, 0xdeadbeef)
		require.NotNil(t, e, key)
		assert.Equal(t, i, e.Value)
	}
}

func TestDelete(t *testing.T) {
	var h Hash

	for i := range 100 {
		key := fmt.Sprintf("k%d", i)
		h.Insert(key, DJB(key), i, false)
	}

	assert.True(t, h.Delete("k50", DJB("k50")))
	assert.False(t, h.Delete("k50", DJB("k50")))
	assert.Nil(t, h.Find("k50", DJB("k50")))
	assert.Equal(t, 99, h.Len())

	// The rest are untouched.
	e := h.Find("k51", DJB("k51"))
	require.NotNil(t, e)
	assert.Equal(t, 51, e.Value)
}

func TestInsertionOrderIteration(t *testing.T) {
	var h Hash

	keys := []string{"zulu", "alpha", "mike", "echo", "bravo"}
	for i, k := range keys {
		h.Insert(k, DJB(k), i, false)
	}
	h.Delete("mike", DJB("mike"))
	h.Insert("mike", DJB("mike"), 99, false)

	var got []string
	for c := h.Each(); ; {
		e := c.Next()
		if e == nil {
			break
		}
		got = append(got, e.Key)
	}
	assert.Equal(t, []string{"zulu", "alpha", "echo", "bravo", "mike"}, got)
}

func TestReplaceKeepsOrder(t *testing.T) {
	var h Hash
	for _, k := range []string{"one", "two", "three"} {
		h.Insert(k, DJB(k), 0, false)
	}
	h.Insert("two", DJB("two"), 42, true)

	var got []string
	for c := h.Each(); ; {
		e := c.Next()
		if e == nil {
			break
		}
		got = append(got, e.Key)
	}
	assert.Equal(t, []string{"one", "two", "three"}, got)
}

func TestForkCopyOnWrite(t *testing.T) {
	var base Hash
	for i := range 50 {
		key := fmt.Sprintf("proto%d", i)
		base.Insert(key, DJB(key), i, false)
	}

	fork := base.Fork()
	require.Equal(t, 50, fork.Len())

	// Mutating the fork must not touch the origin.
	fork.Insert("own", DJB("own"), "mine", false)
	fork.Delete("proto0", DJB("proto0"))
	fork.Insert("proto1", DJB("proto1"), "patched", true)

	assert.Nil(t, base.Find("own", DJB("own")))
	require.NotNil(t, base.Find("proto0", DJB("proto0")))
	assert.Equal(t, 1, base.Find("proto1", DJB("proto1")).Value)

	assert.NotNil(t, fork.Find("own", DJB("own")))
	assert.Nil(t, fork.Find("proto0", DJB("proto0")))
	assert.Equal(t, "patched", fork.Find("proto1", DJB("proto1")).Value)

	// And the reverse: origin mutations stay private to the origin.
	base.Insert("late", DJB("late"), true, false)
	assert.Nil(t, fork.Find("late", DJB("late")))
}

func TestDJBStable(t *testing.T) {
	assert.Equal(t, DJB("name"), DJB("name"))
	assert.NotEqual(t, DJB("name"), DJB("Name"))
	assert.Equal(t, uint32(5381), DJB(""))
}
