// Package sessions keeps the refresh tokens issued by the service. A token is
// valid until it expires, is consumed by a refresh, or is revoked on logout.
package sessions

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrUnknownToken is returned for a refresh token that was never issued,
// has expired, or was already used
var ErrUnknownToken = errors.New("unknown or expired refresh token")

// Store keeps refresh tokens mapped to the id of the user they were issued to
type Store interface {
	Save(ctx context.Context, token, userID string, ttl time.Duration) error
	// Consume returns the owner and invalidates the token in one step
	Consume(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
	Close() error
}

type memoryEntry struct {
	userID    string
	expiresAt time.Time
}

// MemoryStore is a process-local Store for tests and single-instance setups
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Save(_ context.Context, token, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[token] = memoryEntry{userID: userID, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Consume(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[token]
	delete(m.entries, token)
	if !ok || !m.now().Before(entry.expiresAt) {
		return "", ErrUnknownToken
	}
	return entry.userID, nil
}

func (m *MemoryStore) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, token)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
