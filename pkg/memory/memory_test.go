package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	mem := make(map[string]any)

	require.NoError(t, Set(mem, "name", "Alice"))
	v, ok := Get(mem, "name")
	require.True(t, ok)
	assert.Equal(t, "Alice", v)
}

func TestSetNestedPathCreatesObjects(t *testing.T) {
	mem := make(map[string]any)

	require.NoError(t, Set(mem, "user.address.city", "Lyon"))

	v, ok := Get(mem, "user.address.city")
	require.True(t, ok)
	assert.Equal(t, "Lyon", v)

	user, ok := mem["user"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, user, "address")
}

func TestSetOverwrites(t *testing.T) {
	mem := make(map[string]any)
	require.NoError(t, Set(mem, "user.name", "Alice"))
	require.NoError(t, Set(mem, "user.name", "Bob"))

	v, _ := Get(mem, "user.name")
	assert.Equal(t, "Bob", v)
}

func TestGetMissing(t *testing.T) {
	mem := map[string]any{"user": map[string]any{"name": "Alice"}}

	_, ok := Get(mem, "user.age")
	assert.False(t, ok)
	_, ok = Get(mem, "missing.path")
	assert.False(t, ok)
}

func TestRoot(t *testing.T) {
	assert.Equal(t, "user", Root("user.address.city"))
	assert.Equal(t, "plain", Root("plain"))
}
