// Package cache provides a small in-memory cache used in front of hot
// lookup tables, e.g. tax rates.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultExpiry  = 30 * time.Minute
	CleanupInterval = 10 * time.Minute
)

// Cache is a typed wrapper over go-cache.
type Cache struct {
	store *gocache.Cache
}

// NewInMemoryCache returns a cache with the default expiry.
func NewInMemoryCache() *Cache {
	return &Cache{store: gocache.New(DefaultExpiry, CleanupInterval)}
}

func (c *Cache) Get(key string) (interface{}, bool) {
	return c.store.Get(key)
}

func (c *Cache) Set(key string, value interface{}, expiry time.Duration) {
	c.store.Set(key, value, expiry)
}

func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}

// Typed attempts to convert a cache value to the requested type.
func Typed[T any](value interface{}) (T, bool) {
	typed, ok := value.(T)
	return typed, ok
}
