package ankiconnect

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// NewNote is the payload of an addNote call.
type NewNote struct {
	Deck   string
	Model  string
	Fields map[string]string
	Tags   []string
}

// Outcome tags the result of a create.
type Outcome int

const (
	Created Outcome = iota + 1
	DuplicateConflict
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case DuplicateConflict:
		return "duplicate"
	default:
		return "unknown"
	}
}

// CreateResult is the tagged outcome of AddNote. ID is set only when Created.
type CreateResult struct {
	Outcome Outcome
	ID      int64
	// Message carries the store's duplicate message.
	Message string
}

// NoteInfo is one entry of a notesInfo result.
type NoteInfo struct {
	NoteID    int64                 `json:"noteId"`
	ModelName string                `json:"modelName"`
	Tags      []string              `json:"tags"`
	Fields    map[string]FieldValue `json:"fields"`
}

// FieldValue is a field's content and its position in the model.
type FieldValue struct {
	Value string `json:"value"`
	Order int    `json:"order"`
}

// FieldNames returns the note's field names in model order.
func (n NoteInfo) FieldNames() []string {
	names := make([]string, 0, len(n.Fields))
	for name := range n.Fields {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return n.Fields[names[i]].Order < n.Fields[names[j]].Order
	})
	return names
}

// Version is the liveness probe.
func (c *Client) Version(ctx context.Context) (int, error) {
	var v int
	err := c.Invoke(ctx, "version", nil, &v)
	return v, err
}

// ModelFieldNames lists the field names of a note model.
func (c *Client) ModelFieldNames(ctx context.Context, model string) ([]string, error) {
	var names []string
	err := c.Invoke(ctx, "modelFieldNames", map[string]any{"modelName": model}, &names)
	return names, err
}

// AddNote creates a note with duplicate detection scoped to its deck.
// A duplicate rejection is returned as a DuplicateConflict outcome, not an error.
func (c *Client) AddNote(ctx context.Context, n NewNote) (CreateResult, error) {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	params := map[string]any{
		"note": map[string]any{
			"deckName":  n.Deck,
			"modelName": n.Model,
			"fields":    n.Fields,
			"tags":      tags,
			"options": map[string]any{
				"allowDuplicate": false,
				"duplicateScope": "deck",
			},
		},
	}
	var id int64
	err := c.Invoke(ctx, "addNote", params, &id)
	var re *RemoteError
	if errors.As(err, &re) && re.IsDuplicate() {
		return CreateResult{Outcome: DuplicateConflict, Message: re.Message}, nil
	}
	if err != nil {
		return CreateResult{}, err
	}
	return CreateResult{Outcome: Created, ID: id}, nil
}

// UpdateNoteFields overwrites the given fields of a note.
func (c *Client) UpdateNoteFields(ctx context.Context, id int64, fields map[string]string) error {
	params := map[string]any{"note": map[string]any{"id": id, "fields": fields}}
	return c.Invoke(ctx, "updateNoteFields", params, nil)
}

// GetNoteTags returns a note's tags.
func (c *Client) GetNoteTags(ctx context.Context, id int64) ([]string, error) {
	var tags []string
	err := c.Invoke(ctx, "getNoteTags", map[string]any{"note": id}, &tags)
	return tags, err
}

// AddTags adds tags to notes.
func (c *Client) AddTags(ctx context.Context, ids []int64, tags []string) error {
	return c.Invoke(ctx, "addTags", map[string]any{"notes": ids, "tags": strings.Join(tags, " ")}, nil)
}

// RemoveTags removes tags from notes.
func (c *Client) RemoveTags(ctx context.Context, ids []int64, tags []string) error {
	return c.Invoke(ctx, "removeTags", map[string]any{"notes": ids, "tags": strings.Join(tags, " ")}, nil)
}

// FindNotes runs a search query and returns matching note ids.
func (c *Client) FindNotes(ctx context.Context, query string) ([]int64, error) {
	var ids []int64
	err := c.Invoke(ctx, "findNotes", map[string]any{"query": query}, &ids)
	return ids, err
}

// NotesInfo fetches notes by id.
func (c *Client) NotesInfo(ctx context.Context, ids []int64) ([]NoteInfo, error) {
	var infos []NoteInfo
	err := c.Invoke(ctx, "notesInfo", map[string]any{"notes": ids}, &infos)
	return infos, err
}

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `_`, `\_`, `*`, `\*`)

func quote(s string) string {
	return `"` + quoter.Replace(s) + `"`
}

// ScopedQuery searches a model and deck for a field value.
func ScopedQuery(model, deck, field, value string) string {
	return "note:" + quote(model) + " deck:" + quote(deck) + " " + field + ":" + quote(value)
}

// FieldQuery searches every note for a field value.
func FieldQuery(field, value string) string {
	return field + ":" + quote(value)
}
