package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Root          string     `json:"root"`
	Pattern       string     `json:"pattern"`
	Exclude       []string   `json:"exclude,omitempty"`
	SystemDir     string     `json:"system_dir"`
	CacheEnabled  bool       `json:"cache_enabled"`
	CacheSize     int        `json:"cache_size"`
	WatcherActive bool       `json:"watcher_active"`
	LastScan      *time.Time `json:"last_scan,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RepositoryState{
		Root:          r.Root,
		Pattern:       r.config.Pattern,
		Exclude:       r.config.Exclude,
		SystemDir:     r.config.SystemDir,
		CacheEnabled:  !r.config.NoCache,
		CacheSize:     r.cache.Len(),
		WatcherActive: r.watcherActive,
		LastScan:      r.lastScan,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "note-repository"
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)

func (r *Repository) setWatcherActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watcherActive = active
}

func (r *Repository) recordScan() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.lastScan = &now
}
