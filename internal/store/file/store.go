// Package file implements store.Cache as a JSON document on the local filesystem.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/onboard/internal/store"
)

const (
	// DefaultName is the cache file name used when none is given.
	DefaultName = "session.json"

	currentVersion = 1
)

var _ store.Cache = (*Store)(nil)

// document is the on-disk layout of the cache file.
type document struct {
	Version int                        `json:"version"`
	Entries map[string]json.RawMessage `json:"entries"`
}

// Store keeps cache entries in a single JSON file.
type Store struct {
	mu   sync.Mutex
	path string
}

// DefaultDir returns ~/.onboard, the directory used when no directory is configured.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".onboard"), nil
}

// New creates a store backed by baseDir/name.
// If baseDir is empty, uses ~/.onboard/. If name is empty, uses DefaultName.
func New(baseDir, name string) (*Store, error) {
	if baseDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		baseDir = dir
	}
	if name == "" {
		name = DefaultName
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	s := &Store{path: filepath.Join(baseDir, name)}

	if err := s.ensureDocument(); err != nil {
		return nil, err
	}

	log.Debug().Str("path", s.path).Msg("cache store initialized")

	return s, nil
}

// Path returns the location of the cache file.
func (s *Store) Path() string {
	return s.path
}

// Get decodes the entry for key into v.
func (s *Store) Get(key string, v any) error {
	if key == "" {
		return store.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	raw, ok := doc.Entries[key]
	if !ok {
		return store.ErrNotFound
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode cache entry %q: %w", key, err)
	}

	return nil
}

// Set encodes v and stores it under key.
func (s *Store) Set(key string, v any) error {
	if key == "" {
		return store.ErrInvalidKey
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	doc.Entries[key] = raw

	if err := s.save(doc); err != nil {
		return err
	}

	log.Debug().Str("key", key).Int("bytes", len(raw)).Msg("cache entry written")

	return nil
}

// Delete removes the entry for key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := doc.Entries[key]; !ok {
		return nil
	}

	delete(doc.Entries, key)

	return s.save(doc)
}

// RemoveAll drops every entry and leaves an empty document behind.
func (s *Store) RemoveAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(newDocument()); err != nil {
		return err
	}

	log.Info().Str("path", s.path).Msg("cache cleared")

	return nil
}

func newDocument() *document {
	return &document{
		Version: currentVersion,
		Entries: make(map[string]json.RawMessage),
	}
}

// ensureDocument creates an empty document if the file doesn't exist.
func (s *Store) ensureDocument() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	}

	return s.save(newDocument())
}

// load reads the cache file.
func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return newDocument(), nil
		}
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse cache: %w", err)
	}

	if doc.Entries == nil {
		doc.Entries = make(map[string]json.RawMessage)
	}

	return &doc, nil
}

// save writes the cache file atomically.
func (s *Store) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	// Write to temp file first
	tempPath := s.path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save cache: %w", err)
	}

	return nil
}
