package banksdk

import (
	"context"
	"sync"
)

// MemoryCredentials is a CredentialStore that forgets everything when the
// process exits. The zero value is ready to use.
type MemoryCredentials struct {
	mu     sync.RWMutex
	values map[string]string
}

func (m *MemoryCredentials) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

func (m *MemoryCredentials) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

func (m *MemoryCredentials) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
