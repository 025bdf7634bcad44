// Package document reads and writes CNSF source documents: a YAML front
// matter block between "---" delimiter lines, then a body holding exactly
// two sections, "# front_md" followed by "# back_md".
//
// Parsing is an explicit line-driven state machine so every failure carries
// the line that triggered it.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cdhutch/cnsf/pkg/core"
)

// Markers recognised by the parser.
const (
	Delimiter   = "---"
	FrontMarker = "front_md"
	BackMarker  = "back_md"
)

type state int

const (
	stateBeforeMetadata state = iota
	stateInMetadata
	stateBeforeFront
	stateInFront
	stateInBack
)

func (s state) String() string {
	switch s {
	case stateBeforeMetadata:
		return "before_metadata"
	case stateInMetadata:
		return "in_metadata"
	case stateBeforeFront:
		return "before_front"
	case stateInFront:
		return "in_front"
	case stateInBack:
		return "in_back"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Document is a split but not yet decoded source document.
type Document struct {
	Path string
	// Meta is the front matter block exactly as written, without delimiters.
	Meta []byte
	// MetaLine is the 1-based line number of the opening delimiter.
	MetaLine int
	Front    string
	Back     string
}

type splitter struct {
	path  string
	state state

	meta      []string
	front     []string
	back      []string
	metaLine  int
	frontLine int
	backLine  int
}

func (s *splitter) fail(line int, format string, args ...any) error {
	return &core.FormatError{Path: s.path, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (s *splitter) step(lineNo int, line string) error {
	switch s.state {
	case stateBeforeMetadata:
		switch {
		case strings.TrimSpace(line) == "":
		case isDelimiter(line):
			s.metaLine = lineNo
			s.state = stateInMetadata
		default:
			return s.fail(lineNo, "missing front matter (expected leading '%s')", Delimiter)
		}
	case stateInMetadata:
		if isDelimiter(line) {
			s.state = stateBeforeFront
			return nil
		}
		s.meta = append(s.meta, line)
	case stateBeforeFront:
		switch {
		case strings.TrimSpace(line) == "":
		case isMarker(line, FrontMarker):
			s.frontLine = lineNo
			s.state = stateInFront
		case isMarker(line, BackMarker):
			return s.fail(lineNo, "'# %s' must come after '# %s'", BackMarker, FrontMarker)
		default:
			return s.fail(lineNo, "unexpected content before '# %s'", FrontMarker)
		}
	case stateInFront:
		switch {
		case isMarker(line, FrontMarker):
			return s.fail(lineNo, "duplicate '# %s' section", FrontMarker)
		case isMarker(line, BackMarker):
			s.backLine = lineNo
			s.state = stateInBack
		default:
			s.front = append(s.front, line)
		}
	case stateInBack:
		switch {
		case isMarker(line, FrontMarker):
			return s.fail(lineNo, "'# %s' must come before '# %s'", FrontMarker, BackMarker)
		case isMarker(line, BackMarker):
			return s.fail(lineNo, "duplicate '# %s' section", BackMarker)
		default:
			s.back = append(s.back, line)
		}
	}
	return nil
}

func (s *splitter) finish(lastLine int) (*Document, error) {
	switch s.state {
	case stateBeforeMetadata:
		return nil, s.fail(0, "missing front matter (expected leading '%s')", Delimiter)
	case stateInMetadata:
		return nil, s.fail(s.metaLine, "missing closing front matter delimiter '%s'", Delimiter)
	case stateBeforeFront:
		return nil, s.fail(lastLine, "must contain both '# %s' and '# %s' sections", FrontMarker, BackMarker)
	case stateInFront:
		return nil, s.fail(s.frontLine, "missing '# %s' section", BackMarker)
	}

	front := section(s.front)
	if front == "" {
		return nil, s.fail(s.frontLine, "%s section is empty", FrontMarker)
	}
	back := section(s.back)
	if back == "" {
		return nil, s.fail(s.backLine, "%s section is empty", BackMarker)
	}

	meta := strings.Join(s.meta, "\n")
	if meta != "" {
		meta += "\n"
	}
	return &Document{
		Path:     s.path,
		Meta:     []byte(meta),
		MetaLine: s.metaLine,
		Front:    front,
		Back:     back,
	}, nil
}

// Split runs the state machine over text.
func Split(path string, text []byte) (*Document, error) {
	normalized := strings.ReplaceAll(string(text), "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	lines := strings.Split(normalized, "\n")

	s := &splitter{path: path}
	for i, line := range lines {
		if err := s.step(i+1, line); err != nil {
			return nil, err
		}
	}
	return s.finish(len(lines))
}

// Parse splits text and decodes its front matter.
func Parse(path string, text []byte) (*core.Note, error) {
	doc, err := Split(path, text)
	if err != nil {
		return nil, err
	}
	meta, err := core.DecodeMetadata(doc.Meta)
	if err != nil {
		if errors.Is(err, core.ErrNotMapping) {
			return nil, &core.SchemaError{Path: path, Msg: "YAML front matter must be a mapping/object"}
		}
		return nil, &core.FormatError{Path: path, Line: doc.MetaLine, Msg: fmt.Sprintf("malformed YAML front matter block: %v", err)}
	}
	return &core.Note{
		Path:  path,
		Meta:  meta,
		Front: doc.Front,
		Back:  doc.Back,
	}, nil
}

// ParseFile reads and parses the note at path.
func ParseFile(path string) (*core.Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, data)
}

// Serialize renders a note: metadata block, then the front and back
// sections in fixed order, each ending with a single newline.
func Serialize(n core.Note) ([]byte, error) {
	if strings.TrimSpace(n.Front) == "" || strings.TrimSpace(n.Back) == "" {
		return nil, &core.FormatError{Path: n.Path, Msg: "front and back sections must not be empty"}
	}
	meta, err := core.EncodeMetadata(n.Meta)
	if err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(Delimiter + "\n")
	buf.Write(meta)
	buf.WriteString(Delimiter + "\n\n")
	buf.WriteString("# " + FrontMarker + "\n\n")
	buf.WriteString(section([]string{n.Front}))
	buf.WriteString("\n# " + BackMarker + "\n\n")
	buf.WriteString(section([]string{n.Back}))
	return buf.Bytes(), nil
}

func section(lines []string) string {
	s := strings.TrimSpace(strings.Join(lines, "\n"))
	if s == "" {
		return ""
	}
	return s + "\n"
}

func isDelimiter(line string) bool {
	return strings.TrimSpace(line) == Delimiter
}

func isMarker(line, name string) bool {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, "#") {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(t[1:]), name)
}
