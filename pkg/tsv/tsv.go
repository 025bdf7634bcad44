// Package tsv reads and writes the tab-separated interchange tables that
// carry notes between pipeline stages.
//
// The format is line oriented and quote free: a mandatory header row, one
// record per line, cells separated by a single tab. Multi-line content is
// stored with its newlines encoded as the two characters `\n`.
package tsv

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cdhutch/cnsf/pkg/adapters/fs"
)

// ErrEmpty is returned when a table has no header row.
var ErrEmpty = errors.New("empty table")

// Table is a header plus data rows. Every row read through this package
// has at least len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// New returns an empty table with the given header.
func New(header ...string) *Table {
	return &Table{Header: append([]string(nil), header...)}
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Has reports whether every named column is present.
func (t *Table) Has(names ...string) bool {
	for _, n := range names {
		if t.Index(n) < 0 {
			return false
		}
	}
	return true
}

// Missing returns the named columns absent from the header, in argument order.
func (t *Table) Missing(names ...string) []string {
	var out []string
	for _, n := range names {
		if t.Index(n) < 0 {
			out = append(out, n)
		}
	}
	return out
}

// Get returns the cell of row i under column name, or "" when the column
// does not exist.
func (t *Table) Get(i int, name string) string {
	c := t.Index(name)
	if c < 0 || i < 0 || i >= len(t.Rows) || c >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][c]
}

// Record returns row i keyed by column name.
func (t *Table) Record(i int) map[string]string {
	rec := make(map[string]string, len(t.Header))
	for c, h := range t.Header {
		if c < len(t.Rows[i]) {
			rec[h] = t.Rows[i][c]
		} else {
			rec[h] = ""
		}
	}
	return rec
}

// Append adds a row built from rec in header order. Keys not in the header are ignored.
func (t *Table) Append(rec map[string]string) {
	row := make([]string, len(t.Header))
	for c, h := range t.Header {
		row[c] = rec[h]
	}
	t.Rows = append(t.Rows, row)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Read parses a table. Blank lines are skipped and rows shorter than the
// header are padded with empty cells. Cells are returned as stored; use
// UnescapeCell to recover multi-line text.
func Read(r io.Reader) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var t *Table
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if t == nil {
			if line == "" {
				return nil, ErrEmpty
			}
			t = &Table{Header: strings.Split(line, "\t")}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, "\t")
		for len(cells) < len(t.Header) {
			cells = append(cells, "")
		}
		t.Rows = append(t.Rows, cells)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrEmpty
	}
	return t, nil
}

// ReadFile reads a table from path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Write emits the header and rows, escaping every cell so that each record
// stays on one line. Rows are written with exactly len(Header) cells.
func Write(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	writeRow := func(cells []string, width int) {
		for c := 0; c < width; c++ {
			if c > 0 {
				bw.WriteByte('\t')
			}
			if c < len(cells) {
				bw.WriteString(EscapeCell(cells[c]))
			}
		}
		bw.WriteByte('\n')
	}
	writeRow(t.Header, len(t.Header))
	for _, row := range t.Rows {
		writeRow(row, len(t.Header))
	}
	return bw.Flush()
}

// WriteFile writes a table to path atomically, creating parent directories.
func WriteFile(path string, t *Table) error {
	var buf bytes.Buffer
	if err := Write(&buf, t); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return fs.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

var escaper = strings.NewReplacer("\t", " ", "\r\n", `\n`, "\r", `\n`, "\n", `\n`)

// EscapeCell makes s safe for a single cell: tabs become spaces, line
// endings are normalized and then encoded as the literal `\n`.
func EscapeCell(s string) string {
	return escaper.Replace(s)
}

// UnescapeCell reverses the newline encoding of EscapeCell.
func UnescapeCell(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}
