package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// entry pairs a stored blob with its expiration instant.
type entry struct {
	data      json.RawMessage
	expiresAt time.Time
}

// Memory is an in-process Store guarded by a RWMutex.
// The clock is injected so expiry is testable without sleeping.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates an in-memory store using the wall clock.
func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock creates an in-memory store with an injected clock.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     now,
	}
}

// Get returns the value for key if present and unexpired.
func (m *Memory) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || !m.now().Before(e.expiresAt) {
		return nil, false, nil
	}

	// Return a copy so callers cannot mutate the stored blob.
	out := make(json.RawMessage, len(e.data))
	copy(out, e.data)
	return out, true, nil
}

// Set stores value under key with expiration now+ttl.
func (m *Memory) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %s: %w", key, err)
	}

	m.mu.Lock()
	m.entries[key] = entry{
		data:      data,
		expiresAt: m.now().Add(ttl),
	}
	m.mu.Unlock()

	return nil
}

// Delete removes a key.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// DeleteExpired removes entries past their expiration.
// Reads already treat expired entries as absent; this only bounds memory
// growth under key churn.
func (m *Memory) DeleteExpired(ctx context.Context) (int, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of live (unexpired) entries.
func (m *Memory) Len(ctx context.Context) (int, error) {
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, e := range m.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n, nil
}

// Close is a no-op for the memory store.
func (m *Memory) Close() error {
	return nil
}
