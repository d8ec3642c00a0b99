// Package cache holds rendered comment pages per entity so repeated reads
// of a hot thread skip the store. Every write to an entity's thread
// invalidates all of its pages and bumps the entity's generation; a page
// is only stored if the generation it was read under is still current.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// ThreadCache stores encoded pages keyed by entity and page key.
type ThreadCache interface {
	Get(ctx context.Context, entityID int64, key string) ([]byte, bool, error)
	// Generation must be read before the rows a page is built from.
	Generation(ctx context.Context, entityID int64) (int64, error)
	// Set stores value only while the entity is still at gen; otherwise
	// it is a no-op.
	Set(ctx context.Context, entityID, gen int64, key string, value []byte) error
	Invalidate(ctx context.Context, entityID int64) error
}

func entityKey(entityID int64) string {
	return "comments:thread:" + strconv.FormatInt(entityID, 10)
}

func generationKey(entityID int64) string {
	return entityKey(entityID) + ":gen"
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is a process-local ThreadCache with a fixed TTL.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[int64]map[string]memoryEntry
	gens    map[int64]int64
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[int64]map[string]memoryEntry),
		gens:    make(map[int64]int64),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, entityID int64, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[entityID][key]
	if !ok || !c.now().Before(e.expires) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Generation(_ context.Context, entityID int64) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[entityID], nil
}

func (c *MemoryCache) Set(_ context.Context, entityID, gen int64, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[entityID] != gen {
		return nil
	}

	pages := c.entries[entityID]
	if pages == nil {
		pages = make(map[string]memoryEntry)
		c.entries[entityID] = pages
	}
	now := c.now()
	for k, e := range pages {
		if !now.Before(e.expires) {
			delete(pages, k)
		}
	}
	pages[key] = memoryEntry{value: value, expires: now.Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, entityID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, entityID)
	c.gens[entityID]++
	return nil
}
