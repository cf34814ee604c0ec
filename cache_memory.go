package accounts

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache with per-entry expiry. It is meant
// for tests and single-node setups, production deployments should use
// RedisCache so sessions survive restarts.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

var _ Cache = (*MemoryCache)(nil)

// MemoryCacheOption customizes memory cache construction
type MemoryCacheOption func(*MemoryCache)

// WithMemoryCacheClock injects a custom clock for expiry checks
func WithMemoryCacheClock(clock func() time.Time) MemoryCacheOption {
	return func(c *MemoryCache) {
		if clock != nil {
			c.now = clock
		}
	}
}

func NewMemoryCache(opts ...MemoryCacheOption) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)

	return value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: make([]byte, len(value))}
	copy(entry.value, value)

	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false, nil
	}

	delete(c.entries, key)

	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		return false, nil
	}

	return true, nil
}
