package include

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReadCachesUntilMtimeChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.yaml")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewCache()
	e1, err := c.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(e1.Bytes) != "v1" {
		t.Fatalf("got %q, want v1", e1.Bytes)
	}

	// Overwrite the file without changing mtime: Read should still serve
	// the cached bytes.
	if err := os.WriteFile(path, []byte("v2-same-mtime"), 0o644); err != nil {
		t.Fatal(err)
	}
	sameTime := e1.ModTime
	if err := os.Chtimes(path, sameTime, sameTime); err != nil {
		t.Fatal(err)
	}
	e2, err := c.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(e2.Bytes) != "v1" {
		t.Fatalf("expected cached content v1, got %q", e2.Bytes)
	}

	// Advance mtime: Read must pick up the new content.
	newTime := sameTime.Add(time.Second)
	if err := os.Chtimes(path, newTime, newTime); err != nil {
		t.Fatal(err)
	}
	e3, err := c.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(e3.Bytes) != "v2-same-mtime" {
		t.Fatalf("expected refreshed content, got %q", e3.Bytes)
	}
	if e3.Hash == e1.Hash {
		t.Fatal("hash should change when content changes")
	}
}

func TestReadMissingFileErrors(t *testing.T) {
	c := NewCache()
	if _, err := c.Read(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
