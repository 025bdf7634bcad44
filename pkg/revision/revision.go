// Package revision extracts per-note AFTER blocks from rendered corpus
// documents, in markdown or HTML form.
//
// A corpus document is a flat sequence of note regions. Each region is
// headed by a level-2 heading carrying the note_id and may hold a level-3
// "AFTER" heading; the content following it, up to the next stop
// condition, is the revised text for that note.
package revision

import (
	"io"
	"regexp"
	"strings"

	"github.com/cdhutch/cnsf/pkg/tsv"
)

// Column names used in extracted tables.
const (
	ColumnMarkdown = "after_md"
	ColumnHTML     = "after_html"
)

// Block is the AFTER content extracted for one note.
type Block struct {
	NoteID  string
	Content string
}

var (
	noteHeading  = regexp.MustCompile(`^##\s+(\S+)\s*$`)
	afterHeading = regexp.MustCompile(`^###\s+AFTER\s*$`)
	separator    = regexp.MustCompile(`^---\s*$`)
)

// NoteHeading reports whether line opens a note region and returns its id.
func NoteHeading(line string) (string, bool) {
	m := noteHeading.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsAfterHeading reports whether line starts an AFTER block.
func IsAfterHeading(line string) bool { return afterHeading.MatchString(line) }

// IsSeparator reports whether line is a region separator.
func IsSeparator(line string) bool { return separator.MatchString(line) }

// mdScanner holds the line state of a markdown extraction pass.
type mdScanner struct {
	noteID    string
	capturing bool
	buf       []string
	out       []Block
}

func (s *mdScanner) flush() {
	if s.noteID != "" && s.capturing {
		lines := s.buf
		for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
			lines = lines[1:]
		}
		for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
			lines = lines[:len(lines)-1]
		}
		if content := strings.Join(lines, "\n"); strings.TrimSpace(content) != "" {
			s.out = append(s.out, Block{NoteID: s.noteID, Content: content})
		}
	}
	s.capturing = false
	s.buf = nil
}

// ExtractMarkdown scans a markdown corpus document. A capture starts at a
// "### AFTER" line inside a "## <note_id>" region and ends at a lone "---",
// the next note heading, or end of input. Leading and trailing blank lines
// are trimmed, and notes whose capture is empty are omitted.
func ExtractMarkdown(text string) []Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var s mdScanner
	for _, line := range strings.Split(text, "\n") {
		if id, ok := NoteHeading(line); ok {
			s.flush()
			s.noteID = id
			continue
		}
		switch {
		case IsAfterHeading(line):
			s.capturing = true
			s.buf = nil
		case IsSeparator(line):
			s.flush()
		case s.capturing:
			s.buf = append(s.buf, line)
		}
	}
	s.flush()
	return s.out
}

// Table renders blocks as a two-column interchange table.
func Table(blocks []Block, column string) *tsv.Table {
	t := tsv.New("note_id", column)
	for _, b := range blocks {
		t.Rows = append(t.Rows, []string{b.NoteID, b.Content})
	}
	return t
}

// WriteTSV writes blocks as a note_id/column table.
func WriteTSV(w io.Writer, blocks []Block, column string) error {
	return tsv.Write(w, Table(blocks, column))
}
