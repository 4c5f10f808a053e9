package store

import "sync"

// MemStore keeps snapshots in memory. It is used by tests and by callers
// that do not need anything to survive the process.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Load(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blob, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	// Return a copy to prevent external mutation of the stored blob
	return append([]byte(nil), blob...), nil
}

func (m *MemStore) Save(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}
