package tokenstore

import (
	"context"
	"sync"
)

// Memory keeps the token in process memory.
type Memory struct {
	mu    sync.RWMutex
	token string
	found bool
}

// NewMemory returns an empty memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Get implements authclient.TokenStore.
func (m *Memory) Get(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.found, nil
}

// Set implements authclient.TokenStore.
func (m *Memory) Set(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.token, m.found = token, true
	m.mu.Unlock()
	return nil
}

// Remove implements authclient.TokenStore.
func (m *Memory) Remove(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.token, m.found = "", false
	m.mu.Unlock()
	return nil
}
