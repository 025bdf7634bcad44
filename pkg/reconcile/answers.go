package reconcile

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cdhutch/cnsf/pkg/tsv"
)

// AnswerFieldCandidates are tried in order when no answer field is named.
var AnswerFieldCandidates = []string{
	"Answer", "Back", "answer", "back",
	"answer_md", "answer_html", "Answer_md", "Answer_html", "Back_md", "Back_html",
}

// ChooseAnswerField picks the field to receive answer content from a note's
// field names, given in model order. An explicit preferred name must exist.
// Otherwise the first candidate present wins, and a two-field note falls
// back to its second field.
func ChooseAnswerField(names []string, preferred string) (string, error) {
	has := make(map[string]bool, len(names))
	for _, n := range names {
		has[n] = true
	}
	if preferred != "" {
		if has[preferred] {
			return preferred, nil
		}
		return "", fmt.Errorf("field %q not present on note; available: %s", preferred, strings.Join(names, ", "))
	}
	for _, c := range AnswerFieldCandidates {
		if has[c] {
			return c, nil
		}
	}
	if len(names) == 2 {
		return names[1], nil
	}
	return "", fmt.Errorf("could not detect answer field; available: %s", strings.Join(names, ", "))
}

// AnswerRow is one record of a merged table.
type AnswerRow struct {
	NoteID   string
	RemoteID string
	// Answer is stored with newlines encoded.
	Answer string
}

// AnswerRows reads rows from a merged table whose content sits in column.
func AnswerRows(t *tsv.Table, column string) ([]AnswerRow, error) {
	if missing := t.Missing("note_id", "noteId", column); len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	var rows []AnswerRow
	for i := range t.Rows {
		row := AnswerRow{
			NoteID:   strings.TrimSpace(t.Get(i, "note_id")),
			RemoteID: strings.TrimSpace(t.Get(i, "noteId")),
			Answer:   t.Get(i, column),
		}
		if row.NoteID == "" && row.RemoteID == "" && strings.TrimSpace(row.Answer) == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// AnswerOptions tunes UpdateAnswers.
type AnswerOptions struct {
	// Field names the target field; empty means detect per note.
	Field  string
	DryRun bool
	// Limit processes only the first Limit rows when positive.
	Limit int
}

// AnswerUpdate is one prepared single-field write.
type AnswerUpdate struct {
	NoteID   string
	RemoteID int64
	Field    string
	Value    string
}

// Skip records a row left untouched.
type Skip struct {
	NoteID string
	Reason string
}

// AnswerReport lists prepared updates and skipped rows.
type AnswerReport struct {
	Updates []AnswerUpdate
	Skipped []Skip
	// Applied is the number of updates sent; zero on a dry run.
	Applied int
}

// UpdateAnswers writes each row's answer into the matching remote note's
// answer field. Rows without a remote id, or whose id is unknown to the
// store, are skipped and reported.
func (r *Reconciler) UpdateAnswers(ctx context.Context, rows []AnswerRow, opts AnswerOptions) (AnswerReport, error) {
	var report AnswerReport
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}
	if err := r.Probe(ctx); err != nil {
		return report, err
	}

	var ids []int64
	parsed := make([]int64, len(rows))
	for i, row := range rows {
		if row.RemoteID == "" {
			continue
		}
		id, err := strconv.ParseInt(row.RemoteID, 10, 64)
		if err != nil {
			parsed[i] = -1
			continue
		}
		parsed[i] = id
		ids = append(ids, id)
	}

	fields := make(map[int64][]string, len(ids))
	if len(ids) > 0 {
		infos, err := r.store.NotesInfo(ctx, ids)
		if err != nil {
			return report, err
		}
		for _, info := range infos {
			if info.NoteID != 0 {
				fields[info.NoteID] = info.FieldNames()
			}
		}
	}

	for i, row := range rows {
		switch {
		case row.RemoteID == "":
			report.Skipped = append(report.Skipped, Skip{NoteID: row.NoteID, Reason: "no noteId"})
			continue
		case parsed[i] < 0:
			report.Skipped = append(report.Skipped, Skip{NoteID: row.NoteID, Reason: "noteId is not an integer"})
			continue
		}
		names, ok := fields[parsed[i]]
		if !ok {
			report.Skipped = append(report.Skipped, Skip{NoteID: row.NoteID, Reason: "noteId not found in store"})
			continue
		}
		field, err := ChooseAnswerField(names, opts.Field)
		if err != nil {
			report.Skipped = append(report.Skipped, Skip{NoteID: row.NoteID, Reason: err.Error()})
			continue
		}
		report.Updates = append(report.Updates, AnswerUpdate{
			NoteID:   row.NoteID,
			RemoteID: parsed[i],
			Field:    field,
			Value:    tsv.UnescapeCell(row.Answer),
		})
	}

	if opts.DryRun {
		return report, nil
	}
	for _, u := range report.Updates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := r.store.UpdateNoteFields(ctx, u.RemoteID, map[string]string{u.Field: u.Value}); err != nil {
			return report, err
		}
		report.Applied++
		r.logger.Info("answer updated", "note_id", u.NoteID, "remote_id", u.RemoteID, "field", u.Field)
	}
	return report, nil
}
