// Package memorystore is an in-process Backend for tests and local runs.
package memorystore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/SINHASantos/csml-engine/pkg/ports"
)

// Backend stores items in nested maps, keyed table → hash → range.
type Backend struct {
	mu     sync.RWMutex
	tables map[string]map[string]map[string][]byte
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{tables: make(map[string]map[string]map[string][]byte)}
}

func (b *Backend) BatchWrite(ctx context.Context, table string, items []ports.Item) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tables[table]
	if !ok {
		t = make(map[string]map[string][]byte)
		b.tables[table] = t
	}
	for _, item := range items {
		h, ok := t[item.Hash]
		if !ok {
			h = make(map[string][]byte)
			t[item.Hash] = h
		}
		h[item.Range] = append([]byte(nil), item.Data...)
	}
	return nil
}

func (b *Backend) BatchGet(ctx context.Context, table string, keys []ports.Key) ([]ports.Item, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []ports.Item
	t := b.tables[table]
	for _, key := range keys {
		if data, ok := t[key.Hash][key.Range]; ok {
			out = append(out, ports.Item{Hash: key.Hash, Range: key.Range, Data: append([]byte(nil), data...)})
		}
	}
	return out, nil
}

func (b *Backend) Query(ctx context.Context, table string, hash, prefix string) ([]ports.Item, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []ports.Item
	for r, data := range b.tables[table][hash] {
		if strings.HasPrefix(r, prefix) {
			out = append(out, ports.Item{Hash: hash, Range: r, Data: append([]byte(nil), data...)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range < out[j].Range })
	return out, nil
}
