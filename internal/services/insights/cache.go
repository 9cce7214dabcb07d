package insights

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache holds recently computed snapshots per user and window
type Cache struct {
	lru *expirable.LRU[string, *Snapshot]
}

// NewCache creates a bounded cache whose entries expire after ttl
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 256
	}
	return &Cache{lru: expirable.NewLRU[string, *Snapshot](size, nil, ttl)}
}

func cacheKey(userID uuid.UUID, windowDays int) string {
	return fmt.Sprintf("%s:%d", userID, windowDays)
}

// Get returns a cached snapshot if present and not expired
func (c *Cache) Get(userID uuid.UUID, windowDays int) (*Snapshot, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(cacheKey(userID, windowDays))
}

// Put stores a snapshot
func (c *Cache) Put(userID uuid.UUID, windowDays int, s *Snapshot) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey(userID, windowDays), s)
}

// Invalidate drops every cached window for a user. Called after task writes.
func (c *Cache) Invalidate(userID uuid.UUID) {
	if c == nil {
		return
	}
	prefix := userID.String() + ":"
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
}

// Len reports the number of cached snapshots
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
