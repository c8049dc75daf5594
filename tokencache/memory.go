package tokencache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Cache with a fixed expiry policy.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory returns an empty Memory cache whose entries expire ttl after
// they were set.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the live token stored under key.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !m.now().Before(entry.IssuedAt.Add(m.ttl)) {
		m.mu.Lock()
		if current, ok := m.entries[key]; ok && current.IssuedAt.Equal(entry.IssuedAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return "", false, nil
	}
	return entry.Token, true, nil
}

// Set stores token under key, replacing any previous entry.
func (m *Memory) Set(_ context.Context, key, token string) error {
	m.mu.Lock()
	m.entries[key] = Entry{Key: key, Token: token, IssuedAt: m.now()}
	m.mu.Unlock()
	return nil
}

// Clear removes every entry.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]Entry)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Entries returns a copy of the stored entries.
func (m *Memory) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out
}
