// Package render turns note markdown into HTML fragments through a
// pluggable rendering engine.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cdhutch/cnsf/pkg/adapters/fs"
	"github.com/cdhutch/cnsf/pkg/core"
)

// Renderer is a text to text markup transform.
type Renderer interface {
	Render(ctx context.Context, markdown []byte) ([]byte, error)
	// Name identifies the engine and its version for provenance comments.
	Name() string
}

// Engine names accepted by ByName.
const (
	EngineGoldmark      = "goldmark"
	EngineMultimarkdown = "multimarkdown"
	EnginePandoc        = "pandoc"
)

// ByName returns the renderer for an engine name. External engines that
// are not installed yield a *core.ConfigError.
func ByName(name string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EngineGoldmark:
		return NewGoldmarkRenderer(), nil
	case EngineMultimarkdown, "mmd":
		return Multimarkdown()
	case EnginePandoc:
		return Pandoc()
	default:
		return nil, &core.ConfigError{Component: "renderer", Err: fmt.Errorf("unknown engine %q", name)}
	}
}

// Provenance is the HTML comment prefixed to every rendered fragment.
func Provenance(r Renderer) string {
	return "<!-- renderer: " + r.Name() + " -->"
}

// Fragments are the rendered sections of one note.
type Fragments struct {
	NoteID string
	Front  []byte
	Back   []byte
}

// RenderNote renders both sections, each prefixed with a provenance line.
func RenderNote(ctx context.Context, r Renderer, note core.Note) (Fragments, error) {
	prov := []byte(Provenance(r) + "\n")
	front, err := r.Render(ctx, []byte(note.Front))
	if err != nil {
		return Fragments{}, fmt.Errorf("render %s front: %w", note.ID(), err)
	}
	back, err := r.Render(ctx, []byte(note.Back))
	if err != nil {
		return Fragments{}, fmt.Errorf("render %s back: %w", note.ID(), err)
	}
	return Fragments{
		NoteID: note.ID(),
		Front:  append(append([]byte(nil), prov...), front...),
		Back:   append(append([]byte(nil), prov...), back...),
	}, nil
}

// FragmentPaths returns where WriteFragments puts a note's fragments.
func FragmentPaths(dir, noteID string) (front, back string) {
	return filepath.Join(dir, noteID+"__front.html"), filepath.Join(dir, noteID+"__back.html")
}

// WriteFragments writes <note_id>__front.html and <note_id>__back.html into dir.
func WriteFragments(dir string, f Fragments) error {
	if f.NoteID == "" {
		return fmt.Errorf("fragments have no note_id")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	front, back := FragmentPaths(dir, f.NoteID)
	if err := fs.WriteFileAtomic(front, f.Front, 0o644); err != nil {
		return err
	}
	return fs.WriteFileAtomic(back, f.Back, 0o644)
}
