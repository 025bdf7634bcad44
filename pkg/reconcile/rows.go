package reconcile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cdhutch/cnsf/pkg/core"
	"github.com/cdhutch/cnsf/pkg/tsv"
)

// RequiredColumns must be present in an import table. Any other column is
// passed through as a model field of the same name.
var RequiredColumns = []string{"note_id", "noteId", "model", "deck", "tags", "front_html", "back_html"}

// rowValidate is shared by every row check. Initialized in init() with the
// note_id grammar.
var rowValidate *validator.Validate

func init() {
	rowValidate = validator.New()
	_ = rowValidate.RegisterValidation("noteid", validateNoteID)
}

func validateNoteID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return strings.TrimSpace(s) != "" && !strings.Contains(s, "-")
}

// Row is one import table record.
type Row struct {
	NoteID   string `validate:"noteid"`
	RemoteID string `validate:"omitempty,numeric"`
	Model    string `validate:"required"`
	Deck     string `validate:"required"`
	Tags     []string
	Front    string
	Back     string
	// Extra holds the pass-through columns in header order.
	Extra []core.Field
}

// ParseRows converts an import table into rows. Rows without a note_id are
// skipped. Tags are split on whitespace and content cells are unescaped.
func ParseRows(t *tsv.Table) ([]Row, error) {
	if missing := t.Missing(RequiredColumns...); len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	required := make(map[string]bool, len(RequiredColumns))
	for _, c := range RequiredColumns {
		required[c] = true
	}

	var rows []Row
	for i := range t.Rows {
		id := strings.TrimSpace(t.Get(i, "note_id"))
		if id == "" {
			continue
		}
		row := Row{
			NoteID:   id,
			RemoteID: strings.TrimSpace(t.Get(i, "noteId")),
			Model:    strings.TrimSpace(t.Get(i, "model")),
			Deck:     strings.TrimSpace(t.Get(i, "deck")),
			Tags:     strings.Fields(t.Get(i, "tags")),
			Front:    tsv.UnescapeCell(t.Get(i, "front_html")),
			Back:     tsv.UnescapeCell(t.Get(i, "back_html")),
		}
		for _, h := range t.Header {
			if !required[h] {
				row.Extra = append(row.Extra, core.Field{Name: h, Value: tsv.UnescapeCell(t.Get(i, h))})
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Check validates the row's own shape, before any remote lookup.
func (r Row) Check() error {
	err := rowValidate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Field(), fe.Tag()))
	}
	return &core.ValidationError{NoteID: r.NoteID, Model: r.Model, Msg: strings.Join(msgs, "; ")}
}

// ID parses the remote id. It is 0 when absent.
func (r Row) ID() (int64, error) {
	if r.RemoteID == "" {
		return 0, nil
	}
	return strconv.ParseInt(r.RemoteID, 10, 64)
}

// Payload returns the model fields to write: the identity field, Front,
// Back, then every extra column.
func (r Row) Payload(identityField string) map[string]string {
	fields := map[string]string{
		identityField: r.NoteID,
		"Front":       r.Front,
		"Back":        r.Back,
	}
	for _, f := range r.Extra {
		fields[f.Name] = f.Value
	}
	return fields
}

// PayloadNames returns the payload field names in write order.
func (r Row) PayloadNames(identityField string) []string {
	names := []string{identityField, "Front", "Back"}
	for _, f := range r.Extra {
		names = append(names, f.Name)
	}
	return names
}
