package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/onboard/internal/store"
)

type entry struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

func TestNew(t *testing.T) {
	t.Run("creates directory with correct permissions", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "cache")

		s, err := New(dir, "")
		require.NoError(t, err)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
		assert.Equal(t, filepath.Join(dir, DefaultName), s.Path())
	})

	t.Run("creates empty document with restricted permissions", func(t *testing.T) {
		dir := t.TempDir()

		s, err := New(dir, "identity.json")
		require.NoError(t, err)

		info, err := os.Stat(s.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		doc, err := s.load()
		require.NoError(t, err)
		assert.Equal(t, 1, doc.Version)
		assert.Empty(t, doc.Entries)
	})

	t.Run("keeps existing document", func(t *testing.T) {
		dir := t.TempDir()

		s, err := New(dir, "")
		require.NoError(t, err)
		require.NoError(t, s.Set("session", entry{Name: "acme"}))

		reopened, err := New(dir, "")
		require.NoError(t, err)

		var got entry
		require.NoError(t, reopened.Get("session", &got))
		assert.Equal(t, "acme", got.Name)
	})
}

func TestStore_GetSet(t *testing.T) {
	s, err := New(t.TempDir(), "")
	require.NoError(t, err)

	t.Run("missing key", func(t *testing.T) {
		var got entry
		assert.ErrorIs(t, s.Get("nope", &got), store.ErrNotFound)
	})

	t.Run("empty key", func(t *testing.T) {
		assert.ErrorIs(t, s.Set("", entry{}), store.ErrInvalidKey)
		assert.ErrorIs(t, s.Get("", &entry{}), store.ErrInvalidKey)
	})

	t.Run("round trip keeps nil and empty roles apart", func(t *testing.T) {
		require.NoError(t, s.Set("nil", entry{Name: "a"}))
		require.NoError(t, s.Set("empty", entry{Name: "b", Roles: []string{}}))

		var gotNil, gotEmpty entry
		require.NoError(t, s.Get("nil", &gotNil))
		require.NoError(t, s.Get("empty", &gotEmpty))

		assert.Nil(t, gotNil.Roles)
		assert.NotNil(t, gotEmpty.Roles)
		assert.Empty(t, gotEmpty.Roles)
	})

	t.Run("last write wins", func(t *testing.T) {
		require.NoError(t, s.Set("k", entry{Name: "first"}))
		require.NoError(t, s.Set("k", entry{Name: "second"}))

		var got entry
		require.NoError(t, s.Get("k", &got))
		assert.Equal(t, "second", got.Name)
	})

	t.Run("no temp file left behind", func(t *testing.T) {
		_, err := os.Stat(s.Path() + ".tmp")
		assert.True(t, os.IsNotExist(err))
	})
}

func TestStore_Delete(t *testing.T) {
	s, err := New(t.TempDir(), "")
	require.NoError(t, err)

	require.NoError(t, s.Set("a", entry{Name: "a"}))
	require.NoError(t, s.Set("b", entry{Name: "b"}))

	require.NoError(t, s.Delete("a"))
	require.NoError(t, s.Delete("missing"))

	assert.ErrorIs(t, s.Get("a", &entry{}), store.ErrNotFound)
	assert.NoError(t, s.Get("b", &entry{}))
}

func TestStore_RemoveAll(t *testing.T) {
	s, err := New(t.TempDir(), "")
	require.NoError(t, err)

	require.NoError(t, s.Set("session", entry{Name: "acme"}))
	require.NoError(t, s.Set("GENDER", []string{"f", "m"}))

	require.NoError(t, s.RemoveAll())

	assert.ErrorIs(t, s.Get("session", &entry{}), store.ErrNotFound)
	assert.ErrorIs(t, s.Get("GENDER", &[]string{}), store.ErrNotFound)

	doc, err := s.load()
	require.NoError(t, err)
	assert.Empty(t, doc.Entries)
}

func TestStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0600))

	err = s.Get("session", &entry{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse cache")

	// Clearing recovers from a corrupt file.
	require.NoError(t, s.RemoveAll())
	assert.ErrorIs(t, s.Get("session", &entry{}), store.ErrNotFound)
}
