package core

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors.
var (
	// ErrDuplicate is reported by a remote store when a create collides with an existing note.
	ErrDuplicate = errors.New("duplicate note")
	// ErrNotFound means a lookup returned no match.
	ErrNotFound = errors.New("not found")
)

// FormatError reports malformed delimiters or sections in a source document.
type FormatError struct {
	Path string
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

// SchemaError reports front matter that fails a required key, type or grammar check.
type SchemaError struct {
	Path  string
	Key   string
	Value any
	Msg   string
}

func (e *SchemaError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (found: %#v)", e.Path, e.Msg, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

// IdentityError reports a malformed note_id. It is a SchemaError.
type IdentityError struct {
	SchemaError
}

func (e *IdentityError) Error() string {
	return e.SchemaError.Error()
}

// Unwrap lets errors.As match IdentityError as a *SchemaError.
func (e *IdentityError) Unwrap() error {
	return &e.SchemaError
}

// ValidationError reports import row fields unknown to the target model.
type ValidationError struct {
	NoteID  string
	Model   string
	Unknown []string
	Msg     string
}

func (e *ValidationError) Error() string {
	if len(e.Unknown) > 0 {
		return fmt.Sprintf("note %s: field(s) not present in model %q: %s", e.NoteID, e.Model, strings.Join(e.Unknown, ", "))
	}
	return fmt.Sprintf("note %s: %s", e.NoteID, e.Msg)
}

// SyncConflictError reports a duplicate on create that could not be adopted.
type SyncConflictError struct {
	NoteID string
	Msg    string
	Err    error
}

func (e *SyncConflictError) Error() string {
	return fmt.Sprintf("note %s: %s", e.NoteID, e.Msg)
}

func (e *SyncConflictError) Unwrap() error {
	return e.Err
}

// ConfigError reports an unusable collaborator (renderer, remote store).
// It is fatal for the whole run.
type ConfigError struct {
	Component string
	Err       error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Component, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
