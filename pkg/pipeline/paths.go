// Package pipeline wires the per-dataset stages: rendering the reviewed
// corpus, extracting AFTER blocks, merging them into the base export and
// pushing the result to the remote store.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default directories, relative to the repository root.
const (
	DefaultSourcesDir   = "domains/b737/anki/sources"
	DefaultExportsDir   = "domains/b737/anki/exports"
	DefaultGeneratedDir = "domains/b737/anki/generated"
)

// Paths locates every artifact of one dataset.
type Paths struct {
	Slug         string
	SourcesDir   string
	ExportsDir   string
	GeneratedDir string

	// CanonicalMD is the reviewed corpus document.
	CanonicalMD   string
	CanonicalHTML string
	// NotesDir holds the dataset's individual note files.
	NotesDir string

	BaseTSV       string
	AfterMDTSV    string
	AfterHTMLTSV  string
	ImportMDTSV   string
	ImportHTMLTSV string
	// SyncTSV is the full import table built from NotesDir.
	SyncTSV string
}

// NewPaths resolves the artifact paths of slug. Relative directories are
// joined to root; empty ones take the defaults.
func NewPaths(root, sources, exports, generated, slug string) (Paths, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" || strings.ContainsAny(slug, `/\`) {
		return Paths{}, fmt.Errorf("invalid dataset slug %q", slug)
	}
	p := Paths{
		Slug:         slug,
		SourcesDir:   resolve(root, sources, DefaultSourcesDir),
		ExportsDir:   resolve(root, exports, DefaultExportsDir),
		GeneratedDir: resolve(root, generated, DefaultGeneratedDir),
	}
	p.CanonicalMD = filepath.Join(p.SourcesDir, slug+"__canonical.md")
	p.CanonicalHTML = filepath.Join(p.GeneratedDir, slug+"__canonical.html")
	p.NotesDir = filepath.Join(p.SourcesDir, slug)
	p.BaseTSV = filepath.Join(p.ExportsDir, slug+"__base.tsv")
	p.AfterMDTSV = filepath.Join(p.ExportsDir, slug+"__after.tsv")
	p.AfterHTMLTSV = filepath.Join(p.ExportsDir, slug+"__after_html.tsv")
	p.ImportMDTSV = filepath.Join(p.ExportsDir, slug+"__import.tsv")
	p.ImportHTMLTSV = filepath.Join(p.ExportsDir, slug+"__import_html.tsv")
	p.SyncTSV = filepath.Join(p.ExportsDir, slug+"__sync.tsv")
	return p, nil
}

func resolve(root, dir, def string) string {
	if dir == "" {
		dir = def
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(root, filepath.FromSlash(dir))
}

// Ensure creates the output directories.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.SourcesDir, p.ExportsDir, p.GeneratedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// MissingInputError names a stage input that does not exist yet.
type MissingInputError struct {
	What string
	Path string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing %s: %s", e.What, e.Path)
}

func requireFile(what, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &MissingInputError{What: what, Path: path}
		}
		return err
	}
	return nil
}
