// Package merge joins a base export with extracted AFTER content by note_id.
package merge

import (
	"strings"

	"github.com/cdhutch/cnsf/pkg/tsv"
)

// Options names the columns involved in a merge.
type Options struct {
	// KeyColumn joins the two tables.
	KeyColumn string
	// RevisionColumn holds content in the revision table.
	RevisionColumn string
	// OutputColumn receives the revision content in the merged table.
	OutputColumn string
	// Columns is the fixed output column set, excluding OutputColumn, which
	// is always appended last.
	Columns []string
}

// DefaultOptions merges after_html into answer_html.
func DefaultOptions() Options {
	return Options{
		KeyColumn:      "note_id",
		RevisionColumn: "after_html",
		OutputColumn:   "answer_html",
		Columns:        []string{"note_id", "noteId", "prompt"},
	}
}

// MarkdownOptions merges after_md into answer_md.
func MarkdownOptions() Options {
	o := DefaultOptions()
	o.RevisionColumn = "after_md"
	o.OutputColumn = "answer_md"
	return o
}

// Result is the merged table plus its completeness report.
type Result struct {
	Table *tsv.Table
	// Missing lists base keys, in base order, whose merged content is empty.
	Missing      []string
	BaseRows     int
	RevisionRows int
}

// Complete reports whether every base row received content.
func (r Result) Complete() bool {
	return len(r.Missing) == 0
}

// Merge left-joins base onto revision. Every base row is kept in order;
// the output column is filled when a revision row with the same key exists.
// Incompleteness is reported in Result.Missing, never as an error. When the
// revision table repeats a key, the last row wins.
func Merge(base, revision *tsv.Table, opts Options) Result {
	content := make(map[string]string, revision.Len())
	for i := range revision.Rows {
		key := strings.TrimSpace(revision.Get(i, opts.KeyColumn))
		if key == "" {
			continue
		}
		content[key] = revision.Get(i, opts.RevisionColumn)
	}

	header := append(append([]string(nil), opts.Columns...), opts.OutputColumn)
	out := tsv.New(header...)
	res := Result{Table: out, BaseRows: base.Len(), RevisionRows: revision.Len()}

	for i := range base.Rows {
		rec := base.Record(i)
		key := strings.TrimSpace(rec[opts.KeyColumn])
		rec[opts.OutputColumn] = content[key]
		if rec[opts.OutputColumn] == "" {
			res.Missing = append(res.Missing, key)
		}
		out.Append(rec)
	}
	return res
}
