package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Sethyshola20/T-itw/internal/types"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a bounded in-process cache with per-entry expiry.
type MemoryCache struct {
	entries *lru.Cache[string, entry]
	now     func() time.Time
}

var _ types.Cache = (*MemoryCache)(nil)

func NewMemory(size int) (*MemoryCache, error) {
	if size <= 0 {
		size = 10000
	}
	entries, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{entries: entries, now: time.Now}, nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.entries.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.entries.Add(key, e)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.entries.Remove(key)
	return nil
}

func (c *MemoryCache) Close() error {
	c.entries.Purge()
	return nil
}
