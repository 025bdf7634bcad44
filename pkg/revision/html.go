package revision

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// htmlScanner tracks which part of a note region the tokenizer is in.
type htmlScanner struct {
	noteID string
	// done is set once the current region produced its capture.
	done bool

	heading     string // "h2" or "h3" while collecting heading text
	headingText strings.Builder

	capturing bool
	buf       bytes.Buffer
	out       []Block
}

func (s *htmlScanner) flush() {
	if s.capturing {
		if content := strings.TrimSpace(s.buf.String()); content != "" {
			s.out = append(s.out, Block{NoteID: s.noteID, Content: content})
		}
		s.done = true
	}
	s.capturing = false
	s.buf.Reset()
}

// ExtractHTML scans an HTML corpus document. A region starts at an <h2>
// whose text is the note_id; a capture starts after an <h3> whose text is
// AFTER (any case) and ends at an <hr>, the next <h2>, or end of input.
// Captured markup is returned verbatim, trimmed of surrounding whitespace.
func ExtractHTML(r io.Reader) ([]Block, error) {
	z := html.NewTokenizer(r)
	var s htmlScanner

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				s.flush()
				return s.out, nil
			}
			return nil, z.Err()
		}
		// Raw shares the tokenizer buffer, which TagName and Text rewrite.
		raw := append([]byte(nil), z.Raw()...)

		var tag string
		if tt == html.StartTagToken || tt == html.EndTagToken || tt == html.SelfClosingTagToken {
			name, _ := z.TagName()
			tag = string(name)
		}

		switch {
		case tt == html.StartTagToken && tag == "h2":
			s.flush()
			s.noteID, s.done = "", false
			s.heading = "h2"
			s.headingText.Reset()

		case s.heading != "" && tt == html.TextToken:
			s.headingText.Write(z.Text())

		case s.heading != "" && tt == html.EndTagToken && tag == s.heading:
			text := strings.TrimSpace(s.headingText.String())
			if s.heading == "h2" {
				s.noteID = text
			} else if strings.EqualFold(text, "AFTER") {
				s.capturing = true
				s.buf.Reset()
			}
			s.heading = ""

		case s.capturing && tag == "hr" && tt != html.EndTagToken:
			s.flush()

		case s.capturing:
			s.buf.Write(raw)

		case tt == html.StartTagToken && tag == "h3" && s.noteID != "" && !s.done:
			s.heading = "h3"
			s.headingText.Reset()
		}
	}
}

// ExtractHTMLString is ExtractHTML over a string.
func ExtractHTMLString(text string) ([]Block, error) {
	return ExtractHTML(strings.NewReader(text))
}
