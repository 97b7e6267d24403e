package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// memoryEntry wraps a cache entry with its LRU list element
type memoryEntry struct {
	entry   *Entry
	element *list.Element
}

// MemoryCache is an in-memory LRU cache with per-entry TTL.
// Thread-safe implementation using sync.Mutex.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	lruList *list.List // front = most recently used
	maxSize int
	hits    uint64
	misses  uint64

	now func() time.Time
}

// NewMemoryCache creates a new MemoryCache bounded to maxSize entries
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &MemoryCache{
		entries: make(map[string]*memoryEntry),
		lruList: list.New(),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get retrieves a live entry, evicting it lazily when expired
func (c *MemoryCache) Get(_ context.Context, fingerprint string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	me, exists := c.entries[fingerprint]
	if !exists || me.entry.Expired(c.now()) {
		c.misses++
		if exists {
			c.removeEntry(fingerprint)
		}
		return nil, false
	}

	c.lruList.MoveToFront(me.element)
	c.hits++

	copied := *me.entry
	return &copied, true
}

// Put stores an entry, evicting the least-recently-used one when full
func (c *MemoryCache) Put(_ context.Context, entry *Entry, ttl time.Duration) {
	if entry == nil || ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stored := *entry
	stored.CreatedAt = now
	stored.ExpiresAt = now.Add(ttl)

	if me, exists := c.entries[stored.Fingerprint]; exists {
		me.entry = &stored
		c.lruList.MoveToFront(me.element)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	me := &memoryEntry{entry: &stored}
	me.element = c.lruList.PushFront(stored.Fingerprint)
	c.entries[stored.Fingerprint] = me
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// CleanupExpired removes all expired entries and returns how many were removed
func (c *MemoryCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expired := make([]string, 0)
	for fp, me := range c.entries {
		if me.entry.Expired(now) {
			expired = append(expired, fp)
		}
	}
	for _, fp := range expired {
		c.removeEntry(fp)
	}
	return len(expired)
}

// StartCleanupWorker runs a periodic expired-entry sweep until stopCh closes
func (c *MemoryCache) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-stopCh:
			return
		}
	}
}

// removeEntry removes an entry (must be called with lock held)
func (c *MemoryCache) removeEntry(fingerprint string) {
	if me, exists := c.entries[fingerprint]; exists {
		c.lruList.Remove(me.element)
		delete(c.entries, fingerprint)
	}
}

// evictLRU evicts the least recently used entry (must be called with lock held)
func (c *MemoryCache) evictLRU() {
	back := c.lruList.Back()
	if back != nil {
		c.removeEntry(back.Value.(string))
	}
}
