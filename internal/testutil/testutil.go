// Package testutil provides shared test helpers for setting up corpora
// and index databases.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/pellmark/folio/internal/index"
	"github.com/pellmark/folio/internal/storage"
)

// TestDB opens a throwaway SQLite index under a per-test temp directory.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestCorpus creates an empty corpus directory backed by an FS provider.
func TestCorpus(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
