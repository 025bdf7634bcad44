// Package export flattens canonical notes into the import table consumed
// by the sync reconciler.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/cdhutch/cnsf/pkg/core"
	"github.com/cdhutch/cnsf/pkg/idmap"
	"github.com/cdhutch/cnsf/pkg/reconcile"
	"github.com/cdhutch/cnsf/pkg/render"
	"github.com/cdhutch/cnsf/pkg/tags"
	"github.com/cdhutch/cnsf/pkg/tsv"
)

// Options tunes Rows.
type Options struct {
	// Mapping prefills noteId for notes already known to the remote store.
	Mapping idmap.Mapping
	// Tags maps raw tags to the managed set. Zero value means tags.DefaultSpec.
	Tags *tags.Spec
	// Provenance keeps the renderer comment at the top of each fragment.
	Provenance bool
}

// Rows renders every note and builds one import row per note, in input order.
func Rows(ctx context.Context, r render.Renderer, notes []core.Note, opts Options) ([]reconcile.Row, error) {
	spec := tags.DefaultSpec
	if opts.Tags != nil {
		spec = *opts.Tags
	}

	rows := make([]reconcile.Row, 0, len(notes))
	for _, n := range notes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := n.ID()
		if id == "" {
			return nil, &core.SchemaError{Path: n.Path, Key: core.KeyNoteID, Msg: "note_id is required for export"}
		}
		frag, err := render.RenderNote(ctx, r, n)
		if err != nil {
			return nil, err
		}
		target := n.Target()
		row := reconcile.Row{
			NoteID:   id,
			RemoteID: opts.Mapping[id],
			Model:    target.Model,
			Deck:     target.Deck,
			Tags:     spec.ToManaged(n.Tags()),
			Front:    fragment(frag.Front, opts.Provenance),
			Back:     fragment(frag.Back, opts.Provenance),
			Extra:    n.Fields(),
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func fragment(b []byte, keepProvenance bool) string {
	s := string(b)
	if !keepProvenance {
		if i := strings.IndexByte(s, '\n'); i >= 0 && strings.HasPrefix(s, "<!-- renderer:") {
			s = s[i+1:]
		}
	}
	return strings.TrimRight(s, "\n")
}

// Table lays rows out with reconcile.RequiredColumns first, followed by the
// union of extra field names in first-seen order.
func Table(rows []reconcile.Row) (*tsv.Table, error) {
	header := append([]string(nil), reconcile.RequiredColumns...)
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[h] = true
	}
	for _, row := range rows {
		for _, f := range row.Extra {
			if seen[f.Name] {
				if isRequired(f.Name) {
					return nil, fmt.Errorf("note %s: field %q collides with a fixed column", row.NoteID, f.Name)
				}
				continue
			}
			seen[f.Name] = true
			header = append(header, f.Name)
		}
	}

	t := tsv.New(header...)
	for _, row := range rows {
		rec := map[string]string{
			"note_id":    row.NoteID,
			"noteId":     row.RemoteID,
			"model":      row.Model,
			"deck":       row.Deck,
			"tags":       strings.Join(row.Tags, " "),
			"front_html": row.Front,
			"back_html":  row.Back,
		}
		for _, f := range row.Extra {
			rec[f.Name] = f.Value
		}
		t.Append(rec)
	}
	return t, nil
}

func isRequired(name string) bool {
	for _, c := range reconcile.RequiredColumns {
		if c == name {
			return true
		}
	}
	return false
}
