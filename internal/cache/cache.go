package cache

import (
	"context"
	"sync"
	"time"
)

// Cache stores encoded values under string keys
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Size(ctx context.Context) (int, error)
}

// MemoryCache is an in-process cache with TTL expiry and LRU eviction
type MemoryCache struct {
	mu      sync.Mutex
	items   map[string]*item
	maxSize int
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type item struct {
	value      []byte
	expiration time.Time
	accessTime time.Time
}

// NewMemoryCache creates a cache holding at most maxSize entries. Expired
// entries are swept every sweep interval until Close; a zero interval
// disables the sweeper.
func NewMemoryCache(maxSize int, sweep time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	c := &MemoryCache{
		items:   make(map[string]*item),
		maxSize: maxSize,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if sweep > 0 {
		go c.cleanupExpired(sweep)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	now := c.now()
	if now.After(it.expiration) {
		delete(c.items, key)
		return nil, false, nil
	}
	it.accessTime = now
	return it.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxSize {
		c.evictLRU()
	}
	now := c.now()
	c.items[key] = &item{
		value:      append([]byte(nil), value...),
		expiration: now.Add(ttl),
		accessTime: now,
	}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *MemoryCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*item)
	return nil
}

func (c *MemoryCache) Size(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items), nil
}

// Close stops the sweeper
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// evictLRU removes the least recently used item. Caller holds mu.
func (c *MemoryCache) evictLRU() {
	var (
		oldestKey  string
		oldestTime time.Time
	)
	for key, it := range c.items {
		if oldestKey == "" || it.accessTime.Before(oldestTime) {
			oldestKey = key
			oldestTime = it.accessTime
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

func (c *MemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, it := range c.items {
		if now.After(it.expiration) {
			delete(c.items, key)
		}
	}
}

func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}
