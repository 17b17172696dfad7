package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexInfoOrdering(t *testing.T) {
	t.Run("command index dominates", func(t *testing.T) {
		a := IndexInfo{CommandIndex: 2}
		b := IndexInfo{CommandIndex: 5, LoopIndex: []int{1}}
		assert.True(t, a.Less(b))
		assert.False(t, b.Less(a))
	})

	t.Run("loop counters break ties", func(t *testing.T) {
		a := IndexInfo{CommandIndex: 3, LoopIndex: []int{1}}
		b := IndexInfo{CommandIndex: 3, LoopIndex: []int{2}}
		assert.True(t, a.Less(b))
	})

	t.Run("shorter prefix orders first", func(t *testing.T) {
		outer := IndexInfo{CommandIndex: 3, LoopIndex: []int{1}}
		inner := IndexInfo{CommandIndex: 3, LoopIndex: []int{1, 4}}
		assert.True(t, outer.Less(inner))
		assert.False(t, inner.Less(outer))
	})

	t.Run("equal positions", func(t *testing.T) {
		a := IndexInfo{CommandIndex: 7, LoopIndex: []int{2, 1}}
		b := IndexInfo{CommandIndex: 7, LoopIndex: []int{2, 1}}
		assert.Equal(t, 0, a.Compare(b))
		assert.False(t, a.Less(b))
	})

	t.Run("before start precedes everything", func(t *testing.T) {
		assert.True(t, BeforeStart.Less(IndexInfo{CommandIndex: 0}))
		assert.True(t, BeforeStart.Less(IndexInfo{CommandIndex: 0, LoopIndex: []int{1}}))
	})
}

func TestIndexInfoClone(t *testing.T) {
	a := IndexInfo{CommandIndex: 4, LoopIndex: []int{1, 2}}
	c := a.Clone()
	require.Equal(t, a, c)

	c.LoopIndex[0] = 99
	assert.Equal(t, 1, a.LoopIndex[0], "clone must not share the counter slice")
}
