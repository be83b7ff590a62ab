package services

import (
	"sync"
	"time"
)

type cacheEntry struct {
	value    interface{}
	loadedAt time.Time
}

// ListCache keeps list responses per resource. Entries are scoped (one scope
// per credential) so one admin never sees a list fetched with another
// admin's token. Invalidate drops every scope of a resource.
type ListCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]map[string]cacheEntry
	now     func() time.Time
}

func NewListCache(ttl time.Duration) *ListCache {
	return &ListCache{
		ttl:     ttl,
		entries: make(map[string]map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *ListCache) get(resource, scope string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[resource][scope]
	if !ok || (c.ttl > 0 && c.now().Sub(e.loadedAt) > c.ttl) {
		return nil, false
	}
	return e.value, true
}

func (c *ListCache) put(resource, scope string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[resource] == nil {
		c.entries[resource] = make(map[string]cacheEntry)
	}
	c.entries[resource][scope] = cacheEntry{value: value, loadedAt: c.now()}
}

// Invalidate drops every scope of resource. It is a no-op on a nil cache.
func (c *ListCache) Invalidate(resource string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, resource)
}

// Cached returns the cached list or loads it with fetch. A nil cache always
// fetches. Failed fetches are not cached.
func Cached[T any](c *ListCache, resource, scope string, fetch func() ([]T, error)) ([]T, error) {
	if c == nil {
		return fetch()
	}
	if v, ok := c.get(resource, scope); ok {
		if items, ok := v.([]T); ok {
			return items, nil
		}
	}
	items, err := fetch()
	if err != nil {
		return nil, err
	}
	c.put(resource, scope, items)
	return items, nil
}
