package document

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdhutch/cnsf/pkg/core"
)

const validDoc = `---
schema: cnsf/v0
domain: b737
note_type: system
note_id: sys_elec_psc_010
anki:
  model: B737_Structured
  deck: B737::Electrical
tags:
  - electrical
fields:
  Verification Notes: ""
---

# front_md

What powers the standby bus?

# back_md

- Battery
- Static inverter
`

func TestParse(t *testing.T) {
	note, err := Parse("note.md", []byte(validDoc))
	require.NoError(t, err)

	assert.Equal(t, "sys_elec_psc_010", note.ID())
	assert.Equal(t, "What powers the standby bus?\n", note.Front)
	assert.Equal(t, "- Battery\n- Static inverter\n", note.Back)
	assert.Equal(t, []string{"schema", "domain", "note_type", "note_id", "anki", "tags", "fields"}, note.Meta.Keys())
	assert.Equal(t, core.SyncTarget{Model: "B737_Structured", Deck: "B737::Electrical"}, note.Target())
	assert.Equal(t, []string{"electrical"}, note.Tags())
}

func TestParse_CRLFAndMarkerVariants(t *testing.T) {
	text := "\r\n---\r\nnote_id: a\r\n---  \r\n#Front_MD\r\nq\r\n  #   back_md  \r\na\r\n"
	note, err := Parse("crlf.md", []byte(text))
	require.NoError(t, err)
	assert.Equal(t, "q\n", note.Front)
	assert.Equal(t, "a\n", note.Back)
}

func TestParse_FormatErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
	}{
		{"No Front Matter", "# front_md\nq\n# back_md\na\n", 1},
		{"Unclosed Front Matter", "---\nnote_id: a\n# front_md\nq\n", 1},
		{"Missing Both Sections", "---\nnote_id: a\n---\n\n", 5},
		{"Missing Back", "---\nnote_id: a\n---\n# front_md\nq\n", 4},
		{"Back Before Front", "---\nnote_id: a\n---\n# back_md\na\n# front_md\nq\n", 4},
		{"Content Before Front", "---\nnote_id: a\n---\npreamble\n# front_md\nq\n# back_md\na\n", 4},
		{"Duplicate Front", "---\nx: 1\n---\n# front_md\nq\n# front_md\n", 6},
		{"Empty Front", "---\nx: 1\n---\n# front_md\n  \n\n# back_md\na\n", 4},
		{"Empty Back", "---\nx: 1\n---\n# front_md\nq\n# back_md\n\n\n", 6},
		{"Bad YAML", "---\nx: [1,\n---\n# front_md\nq\n# back_md\na\n", 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("bad.md", []byte(tc.text))
			require.Error(t, err)
			var fe *core.FormatError
			require.True(t, errors.As(err, &fe), "want FormatError, got %T: %v", err, err)
			assert.Equal(t, "bad.md", fe.Path)
			assert.Equal(t, tc.line, fe.Line, fe.Error())
		})
	}
}

func TestParse_NonMappingIsSchemaError(t *testing.T) {
	_, err := Parse("list.md", []byte("---\n- a\n- b\n---\n# front_md\nq\n# back_md\na\n"))
	var se *core.SchemaError
	require.True(t, errors.As(err, &se), "got %v", err)
}

func TestSerialize_RoundTrip(t *testing.T) {
	meta := core.NewMetadata()
	meta.Set("schema", core.Schema)
	meta.Set("note_id", "rt_001")
	target := core.NewMetadata()
	target.Set("model", "Basic")
	target.Set("deck", "Default")
	target.Set("extra", true)
	meta.Set("anki", target)
	meta.Set("tags", []any{"a", "ch:2"})
	fields := core.NewMetadata()
	fields.Set("Source Document", "FCOM 6.10")
	fields.Set("Verification Notes", "")
	meta.Set("fields", fields)
	meta.Set("priority", 3)
	meta.Set("weight", 2.0)
	meta.Set("numeric_string", "0042")
	meta.Set("multi", "line one\nline two\n")

	note := core.Note{
		Path:  "rt.md",
		Meta:  meta,
		Front: "Question **bold**\n\nsecond para\n",
		Back:  "| a | b |\n|---|---|\n| 1 | 2 |\n",
	}

	data, err := Serialize(note)
	require.NoError(t, err)

	parsed, err := Parse("rt.md", data)
	require.NoError(t, err)
	assert.Equal(t, note, *parsed)

	again, err := Serialize(*parsed)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestSerialize_FloatsStayFloats(t *testing.T) {
	doc := "---\nnote_id: f_1\nversion: 1.0\nratio: 2.5\nsize: 1e+06\n---\n\n# front_md\n\nQ\n\n# back_md\n\nA\n"
	note, err := Parse("f.md", []byte(doc))
	require.NoError(t, err)

	data, err := Serialize(*note)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version: 1.0\n")
	assert.Contains(t, string(data), "ratio: 2.5\n")

	again, err := Parse("f.md", data)
	require.NoError(t, err)
	for key, want := range map[string]float64{"version": 1, "ratio": 2.5, "size": 1e6} {
		v, ok := again.Meta.Get(key)
		require.True(t, ok, key)
		assert.IsType(t, float64(0), v, key)
		assert.Equal(t, want, v, key)
	}
}

func TestSerialize_RejectsEmptySections(t *testing.T) {
	_, err := Serialize(core.Note{Meta: core.NewMetadata(), Front: " ", Back: "a"})
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "n.md")
	require.NoError(t, os.WriteFile(path, []byte(validDoc), 0o644))

	note, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, note.Path)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "before_metadata", stateBeforeMetadata.String())
	assert.Equal(t, "in_back", stateInBack.String())
}
