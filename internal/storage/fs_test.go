package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func newFS(t *testing.T) (*FS, string) {
	t.Helper()
	dir := t.TempDir()
	fsys, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fsys, dir
}

func TestWriteAndRead(t *testing.T) {
	fsys, dir := newFS(t)

	if err := fsys.Write("note.md", []byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := fsys.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}

	// Overwrite goes through the same atomic path.
	if err := fsys.Write("note.md", []byte("replaced")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, _ = fsys.Read("note.md")
	if string(data) != "replaced" {
		t.Errorf("content = %q", data)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "note.md" {
			t.Errorf("unexpected leftover %q", e.Name())
		}
	}
}

func TestList_OnlyTopLevelMarkdown(t *testing.T) {
	fsys, dir := newFS(t)

	if err := fsys.Write("a.md", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := fsys.Write("manifest.yaml", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "nested.md"), []byte("n"), 0o644); err != nil {
		t.Fatal(err)
	}

	metas, err := fsys.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 1 || metas[0].Name != "a.md" {
		t.Errorf("metas = %+v, want only a.md", metas)
	}
	if metas[0].ModTime.IsZero() {
		t.Error("mod time not populated")
	}
}

func TestTraversalBlocked(t *testing.T) {
	fsys, _ := newFS(t)

	for _, name := range []string{"../escape.md", "/etc/passwd", "a/../../b.md", ""} {
		if err := fsys.Write(name, []byte("x")); err == nil {
			t.Errorf("Write(%q) should be rejected", name)
		}
		if _, err := fsys.Read(name); err == nil {
			t.Errorf("Read(%q) should be rejected", name)
		}
	}
}

func TestRead_Missing(t *testing.T) {
	fsys, _ := newFS(t)
	if _, err := fsys.Read("nope.md"); err == nil {
		t.Error("expected error for missing file")
	}
}
