package memory

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/wolfeidau/onboard/internal/store"
)

var _ store.Cache = (*Cache)(nil)

// Cache implements store.Cache using in-memory storage.
// Entries are kept JSON encoded so callers observe the same decoding behaviour as the file store.
// This implementation is for testing and ephemeral sessions - data is lost on exit.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	writes  int
}

// NewCache creates a new in-memory cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

// Get decodes the entry for key into v.
func (c *Cache) Get(key string, v any) error {
	if key == "" {
		return store.ErrInvalidKey
	}

	c.mu.RLock()
	raw, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return store.ErrNotFound
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode cache entry %q: %w", key, err)
	}
	return nil
}

// Set stores v under key.
func (c *Cache) Set(key string, v any) error {
	if key == "" {
		return store.ErrInvalidKey
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %q: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = raw
	c.writes++
	return nil
}

// Delete removes the entry for key.
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// RemoveAll drops every entry.
func (c *Cache) RemoveAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string][]byte)
	return nil
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Writes returns how many times Set has succeeded.
func (c *Cache) Writes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.writes
}
