package cache

import (
	"sync"
	"time"

	"gorm.io/datatypes"
)

// Local / in-memory store for snapshots, mainly for testing purposes
type LocalStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

func NewLocalStore() *LocalStore {
	return &LocalStore{snapshots: make(map[string]Snapshot)}
}

func (m *LocalStore) Get(key string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.snapshots[key]
	if !ok {
		return nil, ErrNotFound
	}

	s.Data = append(datatypes.JSON(nil), s.Data...)
	return &s, nil
}

func (m *LocalStore) Put(key string, data datatypes.JSON) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.snapshots[key] = Snapshot{
		Key:       key,
		Data:      append(datatypes.JSON(nil), data...),
		CreatedAt: now,
		UpdatedAt: now,
	}

	return nil
}

func (m *LocalStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.snapshots, key)
	return nil
}
