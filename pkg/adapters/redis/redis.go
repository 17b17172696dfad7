// Package redis implements the storage Backend on Redis. Items live in one
// hash per (table, hash key) pair, field-addressed by range key, so a batch
// write is a single pipelined call and prefix queries scan one hash.
package redis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	backend "github.com/redis/go-redis/v9"

	"github.com/SINHASantos/csml-engine/pkg/domain"
	"github.com/SINHASantos/csml-engine/pkg/ports"
)

// Backend is a Redis-backed ports.Backend.
type Backend struct {
	client *backend.Client
}

// New connects a Backend to a Redis server.
func New(addr, password string, db int) *Backend {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client) *Backend {
	return &Backend{client: client}
}

func (b *Backend) key(table, hash string) string {
	return table + ":" + hash
}

func (b *Backend) BatchWrite(ctx context.Context, table string, items []ports.Item) error {
	pipe := b.client.Pipeline()
	for _, item := range items {
		pipe.HSet(ctx, b.key(table, item.Hash), item.Range, item.Data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return wrap(err, "batch write")
	}
	return nil
}

func (b *Backend) BatchGet(ctx context.Context, table string, keys []ports.Key) ([]ports.Item, error) {
	pipe := b.client.Pipeline()
	cmds := make([]*backend.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGet(ctx, b.key(table, key.Hash), key.Range)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != backend.Nil {
		return nil, wrap(err, "batch get")
	}
	var out []ports.Item
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err == backend.Nil {
			continue
		}
		if err != nil {
			return nil, wrap(err, "batch get")
		}
		out = append(out, ports.Item{Hash: keys[i].Hash, Range: keys[i].Range, Data: data})
	}
	return out, nil
}

func (b *Backend) Query(ctx context.Context, table string, hash, prefix string) ([]ports.Item, error) {
	fields, err := b.client.HGetAll(ctx, b.key(table, hash)).Result()
	if err != nil {
		return nil, wrap(err, "query")
	}
	var out []ports.Item
	for r, data := range fields {
		if strings.HasPrefix(r, prefix) {
			out = append(out, ports.Item{Hash: hash, Range: r, Data: []byte(data)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range < out[j].Range })
	return out, nil
}

// Close closes the underlying client.
func (b *Backend) Close() error {
	return b.client.Close()
}

// wrap maps Redis throughput rejections (BUSY, LOADING, OOM from
// maxmemory pressure) onto the capacity error the retry loop watches for;
// everything else propagates as is.
func wrap(err error, op string) error {
	if isCapacity(err) {
		return fmt.Errorf("%s: %s: %w", op, err.Error(), domain.ErrCapacityExceeded)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isCapacity(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "BUSY") ||
		strings.HasPrefix(msg, "LOADING") ||
		strings.HasPrefix(msg, "OOM")
}
