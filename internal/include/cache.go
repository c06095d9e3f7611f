// Package include implements the IncludeCache: path -> (bytes, mtime)
// memoization so repeatedly-included files (a common `!include` pattern
// for shared fragments) are read from disk once per mtime generation.
// Grounded on isometry-platform-health's IncludeEntry{Path,Hash}, adapted:
// that example keys on a content hash and re-reads unconditionally, we key
// on absolute path and only refresh when mtime changes, content hash kept
// only as a secondary diagnostic field the spec calls for.
package include

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"
	"time"
)

// Entry is one cached file's content alongside the mtime it was read at
// and a content hash for diagnostics.
type Entry struct {
	Path    string
	Bytes   []byte
	ModTime time.Time
	Hash    string
}

// Cache memoizes file reads across an entire load() invocation tree (a top
// level load and every file it transitively includes share one Cache).
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: map[string]Entry{}}
}

// Read returns the bytes at absPath, served from cache unless the file's
// mtime has advanced since it was cached.
func (c *Cache) Read(absPath string) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(absPath)
	if err != nil {
		return Entry{}, err
	}
	if cached, ok := c.entries[absPath]; ok && cached.ModTime.Equal(info.ModTime()) {
		return cached, nil
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Entry{}, err
	}
	sum := sha256.Sum256(data)
	entry := Entry{
		Path:    absPath,
		Bytes:   data,
		ModTime: info.ModTime(),
		Hash:    hex.EncodeToString(sum[:]),
	}
	c.entries[absPath] = entry
	return entry, nil
}
