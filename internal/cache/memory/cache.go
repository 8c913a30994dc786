package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/stock-agent/internal/cache"
)

const DefaultCleanupInterval = 5 * time.Minute

type item struct {
	value     any
	expiresAt time.Time
}

// Cache is an in-memory TTL cache with a background sweeper.
type Cache struct {
	mu       sync.RWMutex
	items    map[string]item
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}
	stopped  bool
}

type Options struct {
	CleanupInterval time.Duration
}

func New() *Cache {
	return NewWithContext(context.Background(), Options{})
}

func NewWithContext(ctx context.Context, opts Options) *Cache {
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}

	c := &Cache{
		items:    make(map[string]item),
		interval: opts.CleanupInterval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.cleanup(ctx)
	return c
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok || time.Now().After(it.expiresAt) {
		return nil, false
	}
	return it.value, true
}

// Set stores value for ttl. A non-positive ttl is a no-op.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.items[key] = item{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len counts entries including expired ones not yet swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop ends the sweeper and waits for it to exit. Safe to call twice.
func (c *Cache) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.stopChan)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Cache) cleanup(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, k)
		}
	}
}

var _ cache.Cache = (*Cache)(nil)
