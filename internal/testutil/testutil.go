// Package testutil provides shared test helpers for setting up databases and
// transfer directories.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/othala/internal/storage"
	"github.com/starford/othala/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "othala-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestTransferDir creates a temporary transfer directory with a storage.FS.
func TestTransferDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fsys, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fsys
}
