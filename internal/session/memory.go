package session

import (
	"context"
	"sync"
	"time"

	"seguimiento/internal/cache"
)

// maxMemorySessions bounds the in-memory store; the oldest idle session is
// evicted first.
const maxMemorySessions = 10000

// MemoryStore keeps sessions in an expiring LRU cache.
type MemoryStore struct {
	sessions *cache.LRUCache[Session]
	mu       sync.Mutex
	hints    map[string]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: cache.NewLRUCache[Session](maxMemorySessions, DefaultTTL),
		hints:    map[string]string{},
	}
}

// Cache exposes the session cache so it can be registered with a cache.Manager.
func (m *MemoryStore) Cache() *cache.LRUCache[Session] { return m.sessions }

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.sessions.SetUntil(s.Token, s, s.ExpiresAt)
	return nil
}

// Get returns ErrNotFound for both unknown and already evicted sessions.
func (m *MemoryStore) Get(_ context.Context, token string) (Session, error) {
	s, ok := m.sessions.Get(token)
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.sessions.Delete(token)
	return nil
}

func (m *MemoryStore) Purge(_ context.Context, now time.Time) (int, error) {
	return m.sessions.DeleteFunc(func(_ string, s Session) bool {
		return !now.Before(s.ExpiresAt)
	}), nil
}

func (m *MemoryStore) SetHint(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hints[key] = value
	return nil
}

func (m *MemoryStore) Hint(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hints[key], nil
}
