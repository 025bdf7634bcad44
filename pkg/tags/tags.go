// Package tags maps free-form label text to namespaced, deduplicated remote tags.
//
// Three namespaces are managed by tooling (src:, topic:, wf:). Tags outside
// them are user-authored and never touched by StripManaged.
package tags

import (
	"strings"
	"unicode"
)

// Spec names the managed namespaces and the rewrite prefixes.
type Spec struct {
	ManagedPrefixes []string
	SourceShortcuts []string
	SourcePrefix    string
	TopicPrefix     string
}

// DefaultSpec is the namespace policy used by the pipeline.
var DefaultSpec = Spec{
	ManagedPrefixes: []string{"src:", "topic:", "wf:"},
	SourceShortcuts: []string{"textbook:", "ch:"},
	SourcePrefix:    "src:",
	TopicPrefix:     "topic:",
}

// ParseCanonical splits canonical tag text on semicolons. Commas are
// accepted as an alternate delimiter. Empty tokens are discarded.
func ParseCanonical(raw string) []string {
	raw = strings.ReplaceAll(raw, ",", ";")
	var out []string
	for _, part := range strings.Split(raw, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeAtom trims s, collapses whitespace runs to a single underscore and
// strips leading and trailing underscores. Colons and non-ASCII letters are kept.
func NormalizeAtom(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('_')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), "_")
}

// ToManaged maps tokens to namespaced tags using DefaultSpec.
func ToManaged(tokens []string) []string {
	return DefaultSpec.ToManaged(tokens)
}

// ToManaged maps each token to its namespaced form. First match wins:
// an already managed token is kept, a source shortcut moves under
// SourcePrefix, anything else moves under TopicPrefix. Atoms that normalize
// to empty are dropped and the result is deduplicated in first-seen order.
// Applying it to its own output is a no-op.
func (s Spec) ToManaged(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		var tag string
		switch {
		case hasAnyPrefix(t, s.ManagedPrefixes):
			tag = NormalizeAtom(t)
		case hasAnyPrefix(t, s.SourceShortcuts):
			tag = NormalizeAtom(s.SourcePrefix + t)
		default:
			tag = NormalizeAtom(s.TopicPrefix + t)
		}
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// StripManaged removes tags under the DefaultSpec managed namespaces.
func StripManaged(existing []string) []string {
	return DefaultSpec.StripManaged(existing)
}

// StripManaged keeps only the tags outside the managed namespaces, in order.
func (s Spec) StripManaged(existing []string) []string {
	kept := make([]string, 0, len(existing))
	for _, t := range existing {
		if hasAnyPrefix(t, s.ManagedPrefixes) {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// IsManaged reports whether tag lives under a managed namespace.
func (s Spec) IsManaged(tag string) bool {
	return hasAnyPrefix(tag, s.ManagedPrefixes)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
