package store

import "errors"

// Sentinel errors
var (
	// ErrNotFound is returned when no entry exists for a key.
	ErrNotFound = errors.New("cache entry not found")

	// ErrInvalidKey is returned for an empty key.
	ErrInvalidKey = errors.New("invalid cache key")
)

// Cache is the client-side key-value cache that survives between runs of the console.
// Values are stored as JSON. Writes are last-write-wins.
type Cache interface {
	// Get decodes the entry stored under key into v. Returns ErrNotFound if there is none.
	Get(key string, v any) error

	// Set replaces the entry stored under key.
	Set(key string, v any) error

	// Delete removes a single entry. Deleting a missing key is not an error.
	Delete(key string) error

	// RemoveAll drops every entry.
	RemoveAll() error
}
