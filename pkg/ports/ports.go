// Package ports defines the small interfaces the engine consumes: the
// storage backend, the payload cipher, the expression evaluator and the
// clock/randomness sources injected into the retry loop.
package ports

import (
	"context"
	"time"
)

// Item is one stored record, addressed by a hash key (the conversation
// partner) and a range key (the record kind and ordering components).
type Item struct {
	Hash  string
	Range string
	Data  []byte
}

// Key addresses one Item.
type Key struct {
	Hash  string
	Range string
}

// Backend is the capacity-limited storage collaborator. Implementations
// must wrap throughput rejections in domain.ErrCapacityExceeded so the
// persistence layer can tell them apart from permanent failures; every
// other error is surfaced as is.
type Backend interface {
	// BatchWrite stores all items. Atomicity is whatever a single backend
	// batch call supplies; the engine adds no locking of its own.
	BatchWrite(ctx context.Context, table string, items []Item) error

	// BatchGet fetches the items for the given keys. Absent keys are
	// skipped, not errors: a result set smaller than keys is normal.
	BatchGet(ctx context.Context, table string, keys []Key) ([]Item, error)

	// Query returns all items under a hash key whose range key starts
	// with prefix, in range-key order.
	Query(ctx context.Context, table string, hash, prefix string) ([]Item, error)
}

// Cipher encrypts outbound payloads and decrypts stored ones. The engine
// treats the transform as opaque.
type Cipher interface {
	Encrypt(plain []byte) (string, error)
	Decrypt(sealed string) ([]byte, error)
}

// Evaluator evaluates one leaf expression against an environment of
// memories, locals and the inbound event. Referencing a name absent from
// env must return *domain.NotRememberedError.
type Evaluator interface {
	Eval(code string, env map[string]any) (any, error)
}

// Clock supplies time to the retry loop; tests substitute a fake.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Rand supplies jitter to the retry loop; tests substitute a fixed source.
type Rand interface {
	Int63n(n int64) int64
}
