// Package cache provides the in-memory result cache for processed
// documents. Reprocessing the same bytes with the same knobs is pure waste,
// so results are memoized under a content+params hash with a TTL.
package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const cleanupThreshold = 1000

type entry[V any] struct {
	value        V
	createdAt    time.Time
	lastAccessed time.Time
	expiresAt    time.Time
}

// Cache is a TTL map with lazy expiry: entries are checked when read and
// swept in bulk once the map grows past the cleanup threshold.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]*entry[V]
	defaultTTL time.Duration
	log        *slog.Logger

	now func() time.Time
}

func New[V any](defaultTTL time.Duration, log *slog.Logger) *Cache[V] {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cache[V]{
		entries:    make(map[string]*entry[V]),
		defaultTTL: defaultTTL,
		log:        log,
		now:        time.Now,
	}
}

// Get returns the cached value and whether it was present and fresh.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	e.lastAccessed = c.now()
	return e.value, true
}

// Set stores a value under the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores a value with an explicit TTL.
func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = &entry[V]{
		value:        value,
		createdAt:    now,
		lastAccessed: now,
		expiresAt:    now.Add(ttl),
	}

	if len(c.entries) > cleanupThreshold {
		c.sweepLocked()
	}
}

// Delete removes a key, reporting whether it existed.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Clear drops everything.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
}

// Len counts live entries, expired ones included until the next sweep.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) sweepLocked() {
	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	c.log.Info("cache.sweep", "removed", removed, "remaining", len(c.entries))
}

// Params are the processing knobs that change the outcome for identical
// bytes. They are part of the cache identity.
type Params struct {
	UseAI bool   `json:"use_ai"`
	Model string `json:"model"`
}

// ContentHash hashes raw document bytes. Batch intake uses it for dedupe.
func ContentHash(content []byte) [32]byte {
	return sha256.Sum256(content)
}

// Key derives the cache key from document content and processing params:
// doc_<sha256(content)>_<sha256(params)>. Struct field order makes the
// params serialization stable.
func Key(content []byte, params Params) string {
	fileHash := sha256.Sum256(content)
	pj, _ := json.Marshal(params)
	paramsHash := sha256.Sum256(pj)
	return fmt.Sprintf("doc_%x_%x", fileHash, paramsHash)
}
