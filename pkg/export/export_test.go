package export_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdhutch/cnsf/pkg/core"
	"github.com/cdhutch/cnsf/pkg/document"
	"github.com/cdhutch/cnsf/pkg/export"
	"github.com/cdhutch/cnsf/pkg/idmap"
	"github.com/cdhutch/cnsf/pkg/reconcile"
	"github.com/cdhutch/cnsf/pkg/render"
	"github.com/cdhutch/cnsf/pkg/tsv"
)

const noteA = `---
schema: cnsf/v0
domain: b737
note_type: system
note_id: sys_a
anki:
  model: CNSF
  deck: B737::Systems
tags:
  - hydraulics
  - textbook:fcom
  - hydraulics
fields:
  Source Document: FCOM
  Verification Notes: ""
---
# front_md
What is **A**?
# back_md
Line one

Line two
`

const noteB = `---
schema: cnsf/v0
note_id: sys_b
anki:
  model: CNSF
  deck: B737::Systems
fields:
  Mnemonic: abc
---
# front_md
Q
# back_md
A
`

func parse(t *testing.T, text string) core.Note {
	t.Helper()
	n, err := document.Parse("note.md", []byte(text))
	require.NoError(t, err)
	return *n
}

func TestRows(t *testing.T) {
	notes := []core.Note{parse(t, noteA), parse(t, noteB)}
	rows, err := export.Rows(context.Background(), render.NewGoldmarkRenderer(), notes, export.Options{
		Mapping: idmap.Mapping{"sys_b": "42"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	want := reconcile.Row{
		NoteID: "sys_a",
		Model:  "CNSF",
		Deck:   "B737::Systems",
		Tags:   []string{"topic:hydraulics", "src:textbook:fcom"},
		Front:  "<p>What is <strong>A</strong>?</p>",
		Back:   "<p>Line one</p>\n<p>Line two</p>",
		Extra: []core.Field{
			{Name: "Source Document", Value: "FCOM"},
			{Name: "Verification Notes", Value: ""},
		},
	}
	if diff := cmp.Diff(want, rows[0]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "42", rows[1].RemoteID)

	t.Run("Keeps Provenance", func(t *testing.T) {
		rows, err := export.Rows(context.Background(), render.NewGoldmarkRenderer(), notes[:1], export.Options{Provenance: true})
		require.NoError(t, err)
		assert.Equal(t, "<!-- renderer: goldmark -->\n<p>What is <strong>A</strong>?</p>", rows[0].Front)
	})

	t.Run("Requires Note ID", func(t *testing.T) {
		n := parse(t, noteB)
		n.Meta.Delete(core.KeyNoteID)
		_, err := export.Rows(context.Background(), render.NewGoldmarkRenderer(), []core.Note{n}, export.Options{})
		var se *core.SchemaError
		assert.ErrorAs(t, err, &se)
	})
}

func TestTable(t *testing.T) {
	notes := []core.Note{parse(t, noteA), parse(t, noteB)}
	rows, err := export.Rows(context.Background(), render.NewGoldmarkRenderer(), notes, export.Options{})
	require.NoError(t, err)

	tbl, err := export.Table(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"note_id", "noteId", "model", "deck", "tags", "front_html", "back_html",
		"Source Document", "Verification Notes", "Mnemonic",
	}, tbl.Header)
	assert.Equal(t, "topic:hydraulics src:textbook:fcom", tbl.Get(0, "tags"))
	assert.Equal(t, "", tbl.Get(0, "Mnemonic"))
	assert.Equal(t, "abc", tbl.Get(1, "Mnemonic"))

	t.Run("Round Trips Through Reconcile Rows", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, tsv.Write(&buf, tbl))
		back, err := tsv.Read(&buf)
		require.NoError(t, err)
		parsed, err := reconcile.ParseRows(back)
		require.NoError(t, err)
		require.Len(t, parsed, 2)
		assert.Equal(t, rows[0].Back, parsed[0].Back)
		assert.Equal(t, rows[0].Tags, parsed[0].Tags)
	})

	t.Run("Rejects Colliding Field", func(t *testing.T) {
		bad := []reconcile.Row{{NoteID: "x", Extra: []core.Field{{Name: "deck", Value: "D"}}}}
		_, err := export.Table(bad)
		assert.Error(t, err)
	})
}
