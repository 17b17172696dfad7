package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SINHASantos/csml-engine/pkg/domain"
	"github.com/SINHASantos/csml-engine/pkg/ports"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	srv := miniredis.RunT(t)
	b := NewFromClient(backend.NewClient(&backend.Options{Addr: srv.Addr()}))
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBatchWriteAndGet(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	items := []ports.Item{
		{Hash: "h1", Range: "message#conv#0000000001", Data: []byte("one")},
		{Hash: "h1", Range: "message#conv#0000000002", Data: []byte("two")},
		{Hash: "h2", Range: "state#conv", Data: []byte("ctx")},
	}
	require.NoError(t, b.BatchWrite(ctx, "conversations", items))

	got, err := b.BatchGet(ctx, "conversations", []ports.Key{
		{Hash: "h1", Range: "message#conv#0000000002"},
		{Hash: "h2", Range: "state#conv"},
		{Hash: "h1", Range: "missing"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2, "absent keys are skipped, not errors")
	assert.Equal(t, []byte("two"), got[0].Data)
	assert.Equal(t, []byte("ctx"), got[1].Data)
}

func TestQueryByPrefix(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.BatchWrite(ctx, "conversations", []ports.Item{
		{Hash: "h1", Range: "message#conv-a#0000000002", Data: []byte("2")},
		{Hash: "h1", Range: "message#conv-a#0000000001", Data: []byte("1")},
		{Hash: "h1", Range: "message#conv-b#0000000001", Data: []byte("other")},
		{Hash: "h1", Range: "state#conv-a", Data: []byte("ctx")},
	}))

	got, err := b.Query(ctx, "conversations", "h1", "message#conv-a#")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "message#conv-a#0000000001", got[0].Range, "results sort by range key")
	assert.Equal(t, "message#conv-a#0000000002", got[1].Range)
}

func TestQueryUnknownHash(t *testing.T) {
	b := newTestBackend(t)

	got, err := b.Query(context.Background(), "conversations", "nope", "message#")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCapacityErrorMapping(t *testing.T) {
	cases := []struct {
		msg      string
		capacity bool
	}{
		{"BUSY Redis is busy running a script", true},
		{"LOADING Redis is loading the dataset in memory", true},
		{"OOM command not allowed when used memory > 'maxmemory'", true},
		{"ERR unknown command", false},
		{"connection refused", false},
	}
	for _, tc := range cases {
		err := wrap(errors.New(tc.msg), "batch write")
		assert.Equal(t, tc.capacity, errors.Is(err, domain.ErrCapacityExceeded), tc.msg)
	}
}
