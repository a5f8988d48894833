package cache

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemory_SetAndGet(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "quote:AAPL", map[string]float64{"price": 150.0}, time.Minute))

	data, ok, err := store.Get(ctx, "quote:AAPL")
	require.NoError(t, err)
	require.True(t, ok)

	var value map[string]float64
	require.NoError(t, json.Unmarshal(data, &value))
	assert.Equal(t, 150.0, value["price"])
}

func TestMemory_MissingKey(t *testing.T) {
	store := NewMemory()

	_, ok, err := store.Get(context.Background(), "quote:MISSING")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_Expiry(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryWithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "quote:AAPL", "cached", 10*time.Second))

	// Just before expiry the entry is served.
	clock.Advance(9 * time.Second)
	_, ok, err := store.Get(ctx, "quote:AAPL")
	require.NoError(t, err)
	assert.True(t, ok)

	// At the expiration instant the entry is treated as absent.
	clock.Advance(time.Second)
	_, ok, err = store.Get(ctx, "quote:AAPL")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_OverwriteReplacesWholesale(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryWithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "old", time.Second))
	require.NoError(t, store.Set(ctx, "k", "new", time.Minute))

	// The second write's TTL governs, not the first's.
	clock.Advance(30 * time.Second)
	data, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"new"`, string(data))
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "value", time.Minute))

	data, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	// Corrupting the returned blob must not affect later reads.
	for i := range data {
		data[i] = 'x'
	}

	again, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"value"`, string(again))
}

func TestMemory_Delete(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, store.Delete(ctx, "k"))

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting a missing key is not an error.
	assert.NoError(t, store.Delete(ctx, "k"))
}

func TestMemory_DeleteExpired(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryWithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", "v", 5*time.Second))
	require.NoError(t, store.Set(ctx, "long", "v", time.Hour))

	clock.Advance(time.Minute)

	removed, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok, err := store.Get(ctx, "long")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemory_Len(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryWithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", 1, 5*time.Second))
	require.NoError(t, store.Set(ctx, "b", 2, time.Hour))

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Expired entries do not count as live even before the sweep runs.
	clock.Advance(time.Minute)
	n, err = store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Set(ctx, "shared", "v", time.Minute)
		}()
		go func() {
			defer wg.Done()
			_, _, _ = store.Get(ctx, "shared")
		}()
	}
	wg.Wait()

	_, ok, err := store.Get(ctx, "shared")
	require.NoError(t, err)
	assert.True(t, ok)
}
