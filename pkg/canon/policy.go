// Package canon validates CNSF front matter and renders notes in their
// canonical, idempotent on-disk form.
package canon

import (
	"fmt"
	"strings"

	"github.com/cdhutch/cnsf/pkg/core"
)

// Policy is the canonicalization policy. Key order is data, not code.
type Policy struct {
	// Schema is the required literal for the schema key.
	Schema string
	// KeyOrder lists top-level keys in canonical priority order.
	// Keys not listed keep their relative order after these.
	KeyOrder []string
	// TargetKey names the sync target mapping.
	TargetKey string
	// TargetOrder lists sync target keys in canonical order. Every entry is required.
	TargetOrder []string
	// DefaultFields are set in the fields mapping when absent, in order.
	DefaultFields []core.Field
	// Migrations run once on ingestion, before validation.
	Migrations []Migration
}

// DefaultPolicy returns the cnsf/v0 policy.
func DefaultPolicy() Policy {
	return Policy{
		Schema: core.Schema,
		KeyOrder: []string{
			core.KeySchema,
			core.KeyDomain,
			core.KeyNoteType,
			core.KeyNoteID,
			core.KeyTarget,
			core.KeyTags,
			core.KeyFields,
		},
		TargetKey:     core.KeyTarget,
		TargetOrder:   []string{core.TargetModel, core.TargetDeck},
		DefaultFields: []core.Field{{Name: core.FieldVerificationNotes, Value: ""}},
		Migrations:    []Migration{FoldSourceDocument},
	}
}

// Migration is one enumerated legacy-shape to canonical-shape step.
type Migration struct {
	Name  string
	Apply func(m *core.Metadata) bool
}

// FoldSourceDocument moves a legacy source.document reference into
// fields["Source Document"] unless that attribute is already set, then drops
// the legacy source mapping.
var FoldSourceDocument = Migration{
	Name: "fold-source-document",
	Apply: func(m *core.Metadata) bool {
		src, ok := m.Map(core.KeySource)
		if !ok {
			return false
		}
		if doc, ok := src.Get("document"); ok && core.Truthy(doc) {
			fields, ok := m.Map(core.KeyFields)
			if !ok && !m.Has(core.KeyFields) {
				fields = core.NewMetadata()
				m.Set(core.KeyFields, fields)
				ok = true
			}
			if ok {
				fields.SetDefault(core.FieldSourceDocument, doc)
			}
		}
		m.Delete(core.KeySource)
		return true
	},
}

// Migrate applies every migration to m in place and returns the names of those that fired.
func (p Policy) Migrate(m *core.Metadata) []string {
	var applied []string
	for _, mig := range p.Migrations {
		if mig.Apply(m) {
			applied = append(applied, mig.Name)
		}
	}
	return applied
}

// Validate checks required keys, types and the note_id grammar.
// It never repairs anything.
func (p Policy) Validate(path string, m *core.Metadata) error {
	fail := func(key string, value any, format string, args ...any) error {
		return &core.SchemaError{Path: path, Key: key, Value: value, Msg: fmt.Sprintf(format, args...)}
	}

	schemaVal, _ := m.Get(core.KeySchema)
	schema, _ := schemaVal.(string)
	if strings.TrimSpace(schema) != p.Schema {
		return fail(core.KeySchema, schemaVal, "schema must be %q", p.Schema)
	}

	idVal, _ := m.Get(core.KeyNoteID)
	id, isString := idVal.(string)
	id = strings.TrimSpace(id)
	if !isString || id == "" {
		return fail(core.KeyNoteID, idVal, "YAML must include note_id")
	}
	if strings.Contains(id, "-") {
		return &core.IdentityError{SchemaError: core.SchemaError{
			Path: path, Key: core.KeyNoteID, Value: id,
			Msg: "note_id must use underscores only (no hyphens)",
		}}
	}

	targetVal, ok := m.Get(p.TargetKey)
	if !ok {
		return fail(p.TargetKey, nil, "YAML missing required key: %s", p.TargetKey)
	}
	target, ok := targetVal.(*core.Metadata)
	if !ok {
		return fail(p.TargetKey, targetVal, "YAML key '%s' must be a mapping/object", p.TargetKey)
	}
	for _, k := range p.TargetOrder {
		v, _ := target.Get(k)
		if !core.Truthy(v) {
			return fail(p.TargetKey, nil, "%s must include %s", p.TargetKey, quoteAll(p.TargetOrder))
		}
	}

	tagsVal, ok := m.Get(core.KeyTags)
	if !ok {
		return fail(core.KeyTags, nil, "YAML missing required key: %s", core.KeyTags)
	}
	list, ok := tagsVal.([]any)
	if !ok {
		return fail(core.KeyTags, tagsVal, "tags must be a list of strings")
	}
	for _, item := range list {
		if _, ok := item.(string); !ok {
			return fail(core.KeyTags, item, "tags must be a list of strings")
		}
	}

	fieldsVal, ok := m.Get(core.KeyFields)
	if !ok {
		return fail(core.KeyFields, nil, "YAML missing required key: %s", core.KeyFields)
	}
	if _, ok := fieldsVal.(*core.Metadata); !ok {
		return fail(core.KeyFields, fieldsVal, "fields must be a mapping/object")
	}
	return nil
}

// Reorder returns m with canonical top-level and sync target key order.
// It is a pure function and idempotent.
func (p Policy) Reorder(m *core.Metadata) *core.Metadata {
	out := m.Reordered(p.KeyOrder)
	if target, ok := out.Map(p.TargetKey); ok {
		out.Set(p.TargetKey, target.Reordered(p.TargetOrder))
	}
	return out
}

// Canonicalize migrates, validates, fills defaults and reorders a copy of m.
func (p Policy) Canonicalize(path string, m *core.Metadata) (*core.Metadata, error) {
	c := m.Clone()
	if c == nil {
		c = core.NewMetadata()
	}
	p.Migrate(c)
	if err := p.Validate(path, c); err != nil {
		return nil, err
	}
	if fields, ok := c.Map(core.KeyFields); ok {
		for _, f := range p.DefaultFields {
			fields.SetDefault(f.Name, f.Value)
		}
	}
	return p.Reorder(c), nil
}

func quoteAll(keys []string) string {
	q := make([]string, len(keys))
	for i, k := range keys {
		q[i] = "'" + k + "'"
	}
	return strings.Join(q, " and ")
}
