package sdk

import "sync"

// MemoryStore is a process-local credential store, used by tests and
// ephemeral runs.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (m *MemoryStore) GetCredential() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != "", nil
}

func (m *MemoryStore) SaveCredential(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) DeleteCredential() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
