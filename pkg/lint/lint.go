// Package lint checks the formatting of AFTER blocks in corpus documents
// and applies the fixes that cannot change meaning.
package lint

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cdhutch/cnsf/pkg/revision"
)

// Issue codes.
const (
	CodeBadBullet         = "BAD_BULLET"
	CodeNoBlankBeforeList = "NO_BLANK_BEFORE_LIST"
)

var (
	badBullet = regexp.MustCompile(`^(\s*)[•·‣◦▪▫]\s+(.*)$`)
	listItem  = regexp.MustCompile(`^\s*-\s+\S`)
)

// Issue is one formatting problem.
type Issue struct {
	Path   string
	Line   int
	Code   string
	NoteID string
	Msg    string
	// Context is the offending line.
	Context string
}

func (i Issue) String() string {
	note := ""
	if i.NoteID != "" {
		note = " [" + i.NoteID + "]"
	}
	return fmt.Sprintf("%s:%d:%s: %s%s", i.Path, i.Line, i.Code, i.Msg, note)
}

// Validate reports issues found inside AFTER blocks. Lines outside them
// are never inspected.
func Validate(path, text string) []Issue {
	lines := splitLines(text)
	var (
		issues  []Issue
		noteID  string
		inAfter bool
	)
	for i, line := range lines {
		if id, ok := revision.NoteHeading(line); ok {
			noteID, inAfter = id, false
			continue
		}
		if revision.IsAfterHeading(line) {
			inAfter = true
			continue
		}
		if revision.IsSeparator(line) {
			inAfter = false
			continue
		}
		if !inAfter {
			continue
		}

		issue := Issue{Path: path, Line: i + 1, NoteID: noteID, Context: line}
		switch {
		case badBullet.MatchString(line):
			issue.Code = CodeBadBullet
			issue.Msg = "non-markdown bullet character in AFTER block; use '- '"
			issues = append(issues, issue)
		case listItem.MatchString(line) && i > 0 && startsListRun(lines[i-1]):
			issue.Code = CodeNoBlankBeforeList
			issue.Msg = "markdown list should be preceded by a blank line"
			issues = append(issues, issue)
		}
	}
	return issues
}

// startsListRun reports whether a list item following prev needs a blank
// line in between.
func startsListRun(prev string) bool {
	if strings.TrimSpace(prev) == "" || listItem.MatchString(prev) {
		return false
	}
	if _, ok := revision.NoteHeading(prev); ok {
		return false
	}
	return !revision.IsAfterHeading(prev)
}

// Fix rewrites Unicode bullets inside AFTER blocks as "- ", keeping
// indentation. Blank lines are never inserted. It returns the new text and
// the number of lines changed.
func Fix(text string) (string, int) {
	lines := splitLines(text)
	inAfter, changed := false, 0
	for i, line := range lines {
		if _, ok := revision.NoteHeading(line); ok {
			inAfter = false
			continue
		}
		switch {
		case revision.IsAfterHeading(line):
			inAfter = true
		case revision.IsSeparator(line):
			inAfter = false
		case inAfter:
			if m := badBullet.FindStringSubmatch(line); m != nil {
				lines[i] = m[1] + "- " + m[2]
				changed++
			}
		}
	}
	if changed == 0 {
		return text, 0
	}
	out := strings.Join(lines, "\n")
	if strings.HasSuffix(text, "\n") {
		out += "\n"
	}
	return out, changed
}

// Result bundles the outcome of linting one file.
type Result struct {
	Path   string
	Issues []Issue
	Fixed  int
}

// Failed reports whether the result should fail the run. Issues are
// warnings unless strict is set.
func (r Result) Failed(strict bool) bool {
	return strict && len(r.Issues) > 0
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
