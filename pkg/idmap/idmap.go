// Package idmap maintains the append-only log linking local note_ids to
// remote note identifiers.
package idmap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cdhutch/cnsf/pkg/tsv"
)

// Header is written once, when the log file is created.
const Header = "note_id\tnoteId\n"

// Mapping is note_id to remote id. Later lines override earlier ones.
type Mapping map[string]string

// Load reads a mapping file. A missing file yields an empty mapping.
func Load(path string) (Mapping, error) {
	t, err := tsv.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Mapping{}, nil
	}
	if errors.Is(err, tsv.ErrEmpty) {
		return Mapping{}, nil
	}
	if err != nil {
		return nil, err
	}
	if missing := t.Missing("note_id", "noteId"); len(missing) > 0 {
		return nil, fmt.Errorf("%s: missing columns %s", path, strings.Join(missing, ", "))
	}
	m := make(Mapping, t.Len())
	for i := range t.Rows {
		id := strings.TrimSpace(t.Get(i, "note_id"))
		remote := strings.TrimSpace(t.Get(i, "noteId"))
		if id != "" && remote != "" {
			m[id] = remote
		}
	}
	return m, nil
}

// Apply fills empty remote ids in place. get and set address row i.
// It returns the number of rows filled.
func (m Mapping) Apply(n int, get func(i int) (noteID, remoteID string), set func(i int, remoteID string)) int {
	applied := 0
	for i := 0; i < n; i++ {
		id, remote := get(i)
		if remote != "" {
			continue
		}
		if hit := m[id]; hit != "" {
			set(i, hit)
			applied++
		}
	}
	return applied
}

// ApplyTable fills the noteId column of t from the mapping.
func (m Mapping) ApplyTable(t *tsv.Table) int {
	idCol, remoteCol := t.Index("note_id"), t.Index("noteId")
	if idCol < 0 || remoteCol < 0 {
		return 0
	}
	return m.Apply(t.Len(),
		func(i int) (string, string) {
			return strings.TrimSpace(t.Rows[i][idCol]), strings.TrimSpace(t.Rows[i][remoteCol])
		},
		func(i int, remote string) { t.Rows[i][remoteCol] = remote },
	)
}

// Log appends mapping lines to a file. It never rewrites or deduplicates
// existing lines. A Log is safe for concurrent use within one process.
type Log struct {
	path string
	mu   sync.Mutex
}

// NewLog returns a log writing to path.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Append adds one line, writing the header first when the file is new.
func (l *Log) Append(noteID, remoteID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	line := tsv.EscapeCell(noteID) + "\t" + tsv.EscapeCell(remoteID) + "\n"
	if info.Size() == 0 {
		line = Header + line
	}
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("failed to append mapping for %s: %w", noteID, err)
	}
	return nil
}
