package revision

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMarkdown(t *testing.T) {
	t.Run("Two Notes Second Empty", func(t *testing.T) {
		doc := "## sys_a\n\n### BEFORE\n\nold\n\n### AFTER\n\n- new one\n- new two\n\n---\n\n## sys_b\n\n### AFTER\n\n   \n\n---\n"
		got := ExtractMarkdown(doc)
		assert.Equal(t, []Block{{NoteID: "sys_a", Content: "- new one\n- new two"}}, got)
	})

	t.Run("Ends At EOF", func(t *testing.T) {
		got := ExtractMarkdown("## a\n### AFTER\ntext\n\n")
		assert.Equal(t, []Block{{NoteID: "a", Content: "text"}}, got)
	})

	t.Run("Ends At Next Heading", func(t *testing.T) {
		got := ExtractMarkdown("## a\n### AFTER\none\n## b\n### AFTER\ntwo\n")
		assert.Equal(t, []Block{{NoteID: "a", Content: "one"}, {NoteID: "b", Content: "two"}}, got)
	})

	t.Run("Keeps Interior Blank Lines", func(t *testing.T) {
		got := ExtractMarkdown("## a\n### AFTER\n\npara one\n\npara two\n\n---\n")
		assert.Equal(t, []Block{{NoteID: "a", Content: "para one\n\npara two"}}, got)
	})

	t.Run("Region Without After", func(t *testing.T) {
		assert.Empty(t, ExtractMarkdown("## a\n### BEFORE\nx\n---\n"))
	})

	t.Run("After Must Be Exact", func(t *testing.T) {
		assert.Empty(t, ExtractMarkdown("## a\n### After\nx\n"))
		assert.Empty(t, ExtractMarkdown("## a\n### AFTER edits\nx\n"))
	})

	t.Run("After Outside Region Ignored", func(t *testing.T) {
		assert.Empty(t, ExtractMarkdown("### AFTER\norphan\n"))
	})

	t.Run("CRLF", func(t *testing.T) {
		got := ExtractMarkdown("## a\r\n### AFTER\r\nx\r\n---\r\n")
		assert.Equal(t, []Block{{NoteID: "a", Content: "x"}}, got)
	})

	t.Run("Restartable", func(t *testing.T) {
		doc := "## a\n### AFTER\nx\n"
		assert.Equal(t, ExtractMarkdown(doc), ExtractMarkdown(doc))
	})
}

func TestExtractHTML(t *testing.T) {
	t.Run("Stops At HR And H2", func(t *testing.T) {
		doc := `<h1>Deck</h1>
<h2 id="sys_a">sys_a</h2>
<h3 id="before">BEFORE</h3>
<p>old</p>
<h3 id="after">AFTER</h3>
<ul>
<li>new &amp; improved</li>
</ul>
<hr />
<p>trailer</p>
<h2 id="sys_b">sys_b</h2>
<h3 id="after">after</h3>
<p class="x">B</p>
<h2 id="sys_c">sys_c</h2>
<h3>AFTER</h3>
   
`
		got, err := ExtractHTMLString(doc)
		require.NoError(t, err)
		assert.Equal(t, []Block{
			{NoteID: "sys_a", Content: "<ul>\n<li>new &amp; improved</li>\n</ul>"},
			{NoteID: "sys_b", Content: `<p class="x">B</p>`},
		}, got)
	})

	t.Run("Heading Text Is Unescaped And Trimmed", func(t *testing.T) {
		got, err := ExtractHTMLString("<h2> <a href=\"#x\">sys_a</a> </h2><h3> AFTER </h3><p>x</p>")
		require.NoError(t, err)
		assert.Equal(t, []Block{{NoteID: "sys_a", Content: "<p>x</p>"}}, got)
	})

	t.Run("Only First After Per Region", func(t *testing.T) {
		got, err := ExtractHTMLString("<h2>a</h2><h3>AFTER</h3><p>1</p><hr><h3>AFTER</h3><p>2</p>")
		require.NoError(t, err)
		assert.Equal(t, []Block{{NoteID: "a", Content: "<p>1</p>"}}, got)
	})

	t.Run("Nested H3 Kept In Capture", func(t *testing.T) {
		got, err := ExtractHTMLString("<h2>a</h2><h3>AFTER</h3><h3>Detail</h3><p>d</p>")
		require.NoError(t, err)
		assert.Equal(t, []Block{{NoteID: "a", Content: "<h3>Detail</h3><p>d</p>"}}, got)
	})

	t.Run("No Regions", func(t *testing.T) {
		got, err := ExtractHTMLString("<p>nothing</p>")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestWriteTSV(t *testing.T) {
	var buf bytes.Buffer
	blocks := []Block{{NoteID: "a", Content: "line\tone\nline two"}}
	require.NoError(t, WriteTSV(&buf, blocks, ColumnHTML))
	assert.Equal(t, "note_id\tafter_html\na\tline one\\nline two\n", buf.String())
}
