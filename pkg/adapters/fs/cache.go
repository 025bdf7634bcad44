package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// indexEntry is the identity summary cached for one note file.
type indexEntry struct {
	NoteID       string    `json:"note_id"`
	Domain       string    `json:"domain,omitempty"`
	NoteType     string    `json:"note_type,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// index is the persistent cache state.
type index struct {
	Version int                    `json:"version"`
	Entries map[string]*indexEntry `json:"entries"` // keyed by path relative to the root
	dirty   bool
	mu      sync.RWMutex
}

const indexVersion = 1

// cache persists note identities so that repeated scans only parse
// files whose mtime changed.
type cache struct {
	Path  string
	index *index
}

func newCache(root, systemDir string) *cache {
	return &cache{
		Path: filepath.Join(root, systemDir, "index.json"),
		index: &index{
			Version: indexVersion,
			Entries: make(map[string]*indexEntry),
		},
	}
}

// Load reads the cache from disk. A missing, corrupted or outdated file
// yields an empty index.
func (c *cache) Load() error {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	data, err := os.ReadFile(c.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}

	if err := json.Unmarshal(data, c.index); err != nil || c.index.Version != indexVersion {
		c.index.Version = indexVersion
		c.index.Entries = make(map[string]*indexEntry)
		return nil
	}
	if c.index.Entries == nil {
		c.index.Entries = make(map[string]*indexEntry)
	}

	c.index.dirty = false
	return nil
}

// Save persists the cache if it changed since the last load or save.
func (c *cache) Save() error {
	c.index.mu.RLock()
	if !c.index.dirty {
		c.index.mu.RUnlock()
		return nil
	}
	data, err := json.MarshalIndent(c.index, "", "  ")
	c.index.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return err
	}
	if err := WriteFileAtomic(c.Path, data, 0o644); err != nil {
		return err
	}

	c.index.mu.Lock()
	c.index.dirty = false
	c.index.mu.Unlock()
	return nil
}

// Get returns the entry for relPath when it is fresh for mtime.
func (c *cache) Get(relPath string, mtime time.Time) (*indexEntry, bool) {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()

	entry, ok := c.index.Entries[relPath]
	if !ok || !entry.LastModified.Equal(mtime) {
		return nil, false
	}
	return entry, true
}

func (c *cache) Set(relPath string, entry *indexEntry) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	c.index.Entries[relPath] = entry
	c.index.dirty = true
}

// Prune drops entries not present in keep.
func (c *cache) Prune(keep map[string]bool) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	for p := range c.index.Entries {
		if !keep[p] {
			delete(c.index.Entries, p)
			c.index.dirty = true
		}
	}
}

func (c *cache) Delete(relPath string) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	if _, ok := c.index.Entries[relPath]; ok {
		delete(c.index.Entries, relPath)
		c.index.dirty = true
	}
}

func (c *cache) Len() int {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()
	return len(c.index.Entries)
}
