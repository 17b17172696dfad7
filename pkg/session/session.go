// Package session serializes access to individual conversations. Runs for
// different conversations proceed independently; two invocations for the
// same conversation never interleave their load-execute-save cycles.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// lockEntry holds a conversation's mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager hands out per-conversation locks, garbage collecting entries by
// reference counting.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{locks: make(map[string]*lockEntry)}
}

// NewConversationID mints a conversation identifier.
func NewConversationID() string {
	return uuid.NewString()
}

func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.locks[id]
	if !ok {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.locks[id]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// WithLock runs fn while holding the conversation's lock.
func (m *Manager) WithLock(ctx context.Context, conversationID string, fn func(context.Context) error) error {
	entry := m.acquire(conversationID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(conversationID)
	}()
	return fn(ctx)
}
