package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/cdhutch/cnsf/pkg/core"
	"github.com/cdhutch/cnsf/pkg/document"
)

// DefaultPattern selects every markdown note below the root.
const DefaultPattern = "**/*.md"

// DefaultSystemDir holds the identity index cache.
const DefaultSystemDir = ".cnsf"

// Repository is a directory tree of CNSF note files.
type Repository struct {
	Root   string
	config Config
	cache  *cache

	mu            sync.RWMutex
	watcherActive bool
	lastScan      *time.Time
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	Root string
	// Pattern is a doublestar glob relative to Root.
	Pattern string
	// Exclude lists doublestar globs, relative to Root, that are never notes.
	Exclude []string
	// SystemDir is the cache directory relative to Root.
	SystemDir string
	// NoCache disables the persistent identity index.
	NoCache      bool
	Logger       *slog.Logger
	ErrorHandler func(error)
	// Debounce coalesces bursts of watch events per file.
	Debounce time.Duration
}

// NewRepository creates a filesystem-backed note repository.
func NewRepository(config Config) *Repository {
	if config.Pattern == "" {
		config.Pattern = DefaultPattern
	}
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Debounce <= 0 {
		config.Debounce = 50 * time.Millisecond
	}
	return &Repository{
		Root:   config.Root,
		config: config,
		cache:  newCache(config.Root, config.SystemDir),
	}
}

// Match reports whether rel, a path relative to Root, names a note file.
func (r *Repository) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	if IsTempFile(rel) {
		return false
	}
	if rel == r.config.SystemDir || strings.HasPrefix(rel, r.config.SystemDir+"/") {
		return false
	}
	if ok, _ := doublestar.Match(r.config.Pattern, rel); !ok {
		return false
	}
	for _, ex := range r.config.Exclude {
		if ok, _ := doublestar.Match(ex, rel); ok {
			return false
		}
	}
	return true
}

// List returns the absolute paths of every note file, sorted.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches, err := doublestar.Glob(os.DirFS(r.Root), r.config.Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to glob %q: %w", r.config.Pattern, err)
	}
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		if r.Match(m) {
			paths = append(paths, filepath.Join(r.Root, filepath.FromSlash(m)))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Read parses one note file without canonicalizing it.
func (r *Repository) Read(ctx context.Context, path string) (*core.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return document.ParseFile(r.abs(path))
}

// Load parses every note. Notes that fail to parse are skipped and their
// errors are joined into the returned error.
func (r *Repository) Load(ctx context.Context) ([]*core.Note, error) {
	paths, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var notes []*core.Note
	var errs []error
	for _, p := range paths {
		note, err := r.Read(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs = append(errs, err)
			continue
		}
		notes = append(notes, note)
	}
	return notes, errors.Join(errs...)
}

// Write serializes a note to its Path atomically, creating parent directories.
func (r *Repository) Write(ctx context.Context, note core.Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if note.Path == "" {
		return fmt.Errorf("note %q has no path", note.ID())
	}
	data, err := document.Serialize(note)
	if err != nil {
		return err
	}
	path := r.abs(note.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create note directory: %w", err)
	}
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := WriteFileAtomic(path, data, perm); err != nil {
		return err
	}
	if rel, err := r.resolveID(path); err == nil {
		r.cache.Delete(rel)
	}
	return nil
}

// Index maps note_id to absolute path across the repository. Unchanged
// files are served from the identity cache. A note_id claimed by two files
// is reported as core.ErrDuplicate; unparseable files are reported but do
// not stop the scan.
func (r *Repository) Index(ctx context.Context) (map[string]string, error) {
	if !r.config.NoCache {
		if err := r.cache.Load(); err != nil {
			r.config.Logger.Warn("identity cache unreadable", "error", err)
		}
	}
	paths, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]string, len(paths))
	keep := make(map[string]bool, len(paths))
	var errs []error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel, err := r.resolveID(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		keep[rel] = true

		entry, err := r.entry(p, rel)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if entry.NoteID == "" {
			continue
		}
		if prev, ok := ids[entry.NoteID]; ok {
			errs = append(errs, fmt.Errorf("%w: note_id %q in %s and %s", core.ErrDuplicate, entry.NoteID, prev, p))
			continue
		}
		ids[entry.NoteID] = p
	}

	if !r.config.NoCache {
		r.cache.Prune(keep)
		if err := r.cache.Save(); err != nil {
			r.config.Logger.Warn("failed to save identity cache", "error", err)
		}
	}
	r.recordScan()
	return ids, errors.Join(errs...)
}

// Resolve returns the path of the note carrying noteID.
func (r *Repository) Resolve(ctx context.Context, noteID string) (string, error) {
	ids, err := r.Index(ctx)
	if p, ok := ids[noteID]; ok {
		return p, nil
	}
	if err != nil {
		return "", err
	}
	return "", fmt.Errorf("note %q: %w", noteID, core.ErrNotFound)
}

func (r *Repository) entry(path, rel string) (*indexEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !r.config.NoCache {
		if entry, ok := r.cache.Get(rel, info.ModTime()); ok {
			return entry, nil
		}
	}
	note, err := document.ParseFile(path)
	if err != nil {
		return nil, err
	}
	entry := &indexEntry{
		NoteID:       note.ID(),
		Domain:       note.Domain(),
		NoteType:     note.NoteType(),
		Tags:         note.Tags(),
		LastModified: info.ModTime(),
	}
	if !r.config.NoCache {
		r.cache.Set(rel, entry)
	}
	return entry, nil
}

func (r *Repository) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.Root, path)
}

// resolveID converts an absolute path into a slash-separated path relative to Root.
func (r *Repository) resolveID(path string) (string, error) {
	root, err := filepath.Abs(r.Root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", path, r.Root)
	}
	return filepath.ToSlash(rel), nil
}

var (
	_ core.Repository = (*Repository)(nil)
	_ core.Watchable  = (*Repository)(nil)
)
