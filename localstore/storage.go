// Package localstore holds durable client-local key/value storage: the local record store,
// the anonymous client id and the token blacklist all persist through it.
package localstore

import (
	"context"
	"sync"
	"time"
)

// Storage is a durable string key/value mapping.
type Storage interface {
	// Get returns the value under key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Expiring is a Storage whose entries can be given a lifetime. Expired entries read as absent
// and are eventually removed.
type Expiring interface {
	Storage
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
}

var (
	_ Expiring = (*Memory)(nil)
	_ Expiring = (*File)(nil)
	_ Expiring = (*Redis)(nil)
)

// Memory is a Storage that lives as long as the process.
type Memory struct {
	mu      sync.RWMutex
	values  map[string]string
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		values:  make(map[string]string),
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if exp, ok := m.expires[key]; ok && !m.now().Before(exp) {
		return "", false, nil
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	delete(m.expires, key)
	return nil
}

func (m *Memory) SetWithTTL(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, exp := range m.expires {
		if !now.Before(exp) {
			delete(m.values, k)
			delete(m.expires, k)
		}
	}
	m.values[key] = value
	m.expires[key] = now.Add(ttl)
	return nil
}
