// Package memory is the in-process cache backend. Documents live in a
// map guarded by a RWMutex; a background sweep drops expired entries so
// a stalled collector does not leave stale state pinned forever.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/veesix-networks/osvswitch/pkg/cache"
)

type entry struct {
	value      []byte
	expiration time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiration.IsZero() && now.After(e.expiration)
}

type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	stop    chan struct{}
}

func New() cache.Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiration time.Time
	if ttl > 0 {
		expiration = time.Now().Add(ttl)
	}
	// Callers may reuse their buffer after Set returns.
	stored := make([]byte, len(value))
	copy(stored, value)
	c.entries[key] = &entry{value: stored, expiration: expiration}
	return nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	if e.expired(time.Now()) {
		return nil, fmt.Errorf("key expired: %s", key)
	}
	return e.value, nil
}

func (c *Cache) GetAll(ctx context.Context, pattern string) (map[string][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	out := make(map[string][]byte)
	for key, e := range c.entries {
		if e.expired(now) {
			continue
		}
		if matchPattern(pattern, key) {
			out[key] = e.value
		}
	}
	return out, nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return fmt.Errorf("key not found: %s", key)
	}
	if ttl > 0 {
		e.expiration = time.Now().Add(ttl)
	} else {
		e.expiration = time.Time{}
	}
	return nil
}

func (c *Cache) Close() error {
	close(c.stop)
	return nil
}

func matchPattern(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	i, j := 0, 0
	for i < len(pattern) && j < len(key) {
		if pattern[i] == '*' {
			if i == len(pattern)-1 {
				return true
			}
			for j < len(key) {
				if matchPattern(pattern[i+1:], key[j:]) {
					return true
				}
				j++
			}
			return false
		}
		if pattern[i] != key[j] {
			return false
		}
		i++
		j++
	}

	return i == len(pattern) && j == len(key)
}

func (c *Cache) sweep() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
		}
	}
}
