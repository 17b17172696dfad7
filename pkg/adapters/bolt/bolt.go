// Package bolt implements the storage Backend on a local bbolt file, for
// single-node deployments that do not want a network store. Each table is a
// bucket; keys concatenate hash and range so a cursor prefix seek serves
// range queries.
package bolt

import (
	"context"
	"fmt"
	"strings"

	bolt "go.etcd.io/bbolt"

	"github.com/SINHASantos/csml-engine/pkg/ports"
)

// Backend is a bbolt-backed ports.Backend. Local disk writes never raise
// capacity errors; every failure propagates immediately.
type Backend struct {
	db *bolt.DB
}

// Open opens (creating if needed) the database file.
func Open(path string) (*Backend, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}
	return &Backend{db: db}, nil
}

// Close closes the database file.
func (b *Backend) Close() error {
	return b.db.Close()
}

func itemKey(hash, rng string) []byte {
	return []byte(hash + "|" + rng)
}

func (b *Backend) BatchWrite(ctx context.Context, table string, items []ports.Item) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := bucket.Put(itemKey(item.Hash, item.Range), item.Data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Backend) BatchGet(ctx context.Context, table string, keys []ports.Key) ([]ports.Item, error) {
	var out []ports.Item
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(table))
		if bucket == nil {
			return nil
		}
		for _, key := range keys {
			if data := bucket.Get(itemKey(key.Hash, key.Range)); data != nil {
				out = append(out, ports.Item{Hash: key.Hash, Range: key.Range, Data: append([]byte(nil), data...)})
			}
		}
		return nil
	})
	return out, err
}

func (b *Backend) Query(ctx context.Context, table string, hash, prefix string) ([]ports.Item, error) {
	var out []ports.Item
	seek := itemKey(hash, prefix)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(table))
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		for k, v := c.Seek(seek); k != nil && strings.HasPrefix(string(k), string(seek)); k, v = c.Next() {
			rng := strings.TrimPrefix(string(k), hash+"|")
			out = append(out, ports.Item{Hash: hash, Range: rng, Data: append([]byte(nil), v...)})
		}
		return nil
	})
	return out, err
}
