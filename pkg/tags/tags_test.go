package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCanonical(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"Empty", "", nil},
		{"Semicolons", "a; b ;c", []string{"a", "b", "c"}},
		{"Commas Accepted", "a, b;c", []string{"a", "b", "c"}},
		{"Empty Tokens Dropped", ";; a ;;  ; b;", []string{"a", "b"}},
		{"Inner Spaces Kept", "electrical system; ch:3", []string{"electrical system", "ch:3"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseCanonical(tc.raw))
		})
	}
}

func TestNormalizeAtom(t *testing.T) {
	assert.Equal(t, "electrical_bus", NormalizeAtom("  electrical \t bus "))
	assert.Equal(t, "x", NormalizeAtom("__x__"))
	assert.Equal(t, "", NormalizeAtom(" _ "))
	assert.Equal(t, "topic:яблуко_сад", NormalizeAtom("topic:яблуко сад"))
}

func TestToManaged(t *testing.T) {
	t.Run("Source Shortcut", func(t *testing.T) {
		assert.Equal(t, []string{"src:textbook:x"}, ToManaged([]string{"textbook:x"}))
		assert.Equal(t, []string{"src:ch:3"}, ToManaged([]string{"ch:3"}))
	})

	t.Run("Bare Token Becomes Topic", func(t *testing.T) {
		assert.Equal(t, []string{"topic:bar"}, ToManaged([]string{"bar"}))
	})

	t.Run("Managed Kept", func(t *testing.T) {
		got := ToManaged([]string{"wf:review", "src:manual", "topic:hyd sys"})
		assert.Equal(t, []string{"wf:review", "src:manual", "topic:hyd_sys"}, got)
	})

	t.Run("Dedupe Preserves First Occurrence", func(t *testing.T) {
		assert.Equal(t, []string{"topic:bar"}, ToManaged([]string{"topic:bar", "topic:bar"}))
		assert.Equal(t, []string{"topic:b", "topic:a"}, ToManaged([]string{"b", "a", "topic:b"}))
	})

	t.Run("Empty Atoms Dropped", func(t *testing.T) {
		assert.Empty(t, ToManaged([]string{"", "   "}))
	})

	t.Run("Idempotent", func(t *testing.T) {
		inputs := [][]string{
			{"bar"},
			{"textbook:x", "ch:1", "wf:todo", "multi word topic", "_edge_"},
			{"topic:a  b", "src:  c"},
		}
		for _, in := range inputs {
			once := ToManaged(in)
			assert.Equal(t, once, ToManaged(once), "input %v", in)
		}
	})
}

func TestStripManaged(t *testing.T) {
	existing := []string{"leech", "topic:bar", "src:ch:1", "marked", "wf:todo", "topical"}
	assert.Equal(t, []string{"leech", "marked", "topical"}, StripManaged(existing))
	assert.Empty(t, StripManaged(nil))
}

func TestSpec_IsManaged(t *testing.T) {
	assert.True(t, DefaultSpec.IsManaged("wf:x"))
	assert.False(t, DefaultSpec.IsManaged("workflow"))
}
