package core

import "strings"

// Schema is the only front matter schema literal accepted by this module.
const Schema = "cnsf/v0"

// Well-known front matter keys.
const (
	KeySchema   = "schema"
	KeyDomain   = "domain"
	KeyNoteType = "note_type"
	KeyNoteID   = "note_id"
	KeyTarget   = "anki"
	KeyTags     = "tags"
	KeyFields   = "fields"
	KeySource   = "source"
)

// Well-known sync target and field attribute names.
const (
	TargetModel = "model"
	TargetDeck  = "deck"

	FieldSourceDocument    = "Source Document"
	FieldVerificationNotes = "Verification Notes"
)

// Note is the central entity of the domain.
// It is one structured knowledge item: an ordered front matter block plus
// the two required body sections. Front and Back always end with a single
// newline once parsed.
type Note struct {
	Path  string
	Meta  *Metadata
	Front string
	Back  string
}

// ID returns the trimmed note_id, or "" when absent or not a string.
func (n Note) ID() string {
	if n.Meta == nil {
		return ""
	}
	s, _ := n.Meta.String(KeyNoteID)
	return strings.TrimSpace(s)
}

// Domain returns the free-form domain classification.
func (n Note) Domain() string {
	if n.Meta == nil {
		return ""
	}
	s, _ := n.Meta.String(KeyDomain)
	return strings.TrimSpace(s)
}

// NoteType returns the free-form note_type classification.
func (n Note) NoteType() string {
	if n.Meta == nil {
		return ""
	}
	s, _ := n.Meta.String(KeyNoteType)
	return strings.TrimSpace(s)
}

// Target returns the sync target (model, deck) of the note.
func (n Note) Target() SyncTarget {
	if n.Meta == nil {
		return SyncTarget{}
	}
	m, ok := n.Meta.Map(KeyTarget)
	if !ok {
		return SyncTarget{}
	}
	model, _ := m.String(TargetModel)
	deck, _ := m.String(TargetDeck)
	return SyncTarget{Model: model, Deck: deck}
}

// Tags returns the string entries of the tags list in order.
func (n Note) Tags() []string {
	if n.Meta == nil {
		return nil
	}
	v, ok := n.Meta.Get(KeyTags)
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Fields returns the named content attributes in front matter order.
// Non-string scalars are rendered with their YAML text.
func (n Note) Fields() []Field {
	if n.Meta == nil {
		return nil
	}
	m, ok := n.Meta.Map(KeyFields)
	if !ok {
		return nil
	}
	out := make([]Field, 0, m.Len())
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		out = append(out, Field{Name: k, Value: ScalarText(v)})
	}
	return out
}

// SyncTarget names where a note lives in the remote store.
type SyncTarget struct {
	Model string
	Deck  string
}

// Field is one named content attribute.
type Field struct {
	Name  string
	Value string
}
