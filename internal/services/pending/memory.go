package pending

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	action  Action
	expires time.Time
}

// MemoryStore — Store в памяти процесса.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]entry
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, items: make(map[string]entry), now: time.Now}
}

func (m *MemoryStore) Put(_ context.Context, chatID, adminID int64, a Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gc()
	m.items[key(chatID, adminID)] = entry{action: a, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Take(_ context.Context, chatID, adminID int64) (Action, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(chatID, adminID)
	e, ok := m.items[k]
	if !ok {
		return Action{}, false, nil
	}
	delete(m.items, k)
	if m.now().After(e.expires) {
		return Action{}, false, nil
	}
	return e.action, true, nil
}

func (m *MemoryStore) Drop(_ context.Context, chatID, adminID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key(chatID, adminID))
	return nil
}

// gc удаляет просроченные записи; вызывается под m.mu.
func (m *MemoryStore) gc() {
	now := m.now()
	for k, e := range m.items {
		if now.After(e.expires) {
			delete(m.items, k)
		}
	}
}
