package canon

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/cdhutch/cnsf/pkg/adapters/fs"
	"github.com/cdhutch/cnsf/pkg/core"
	"github.com/cdhutch/cnsf/pkg/document"
)

// Status is the per-file outcome of a check or write pass.
type Status int

const (
	StatusUnchanged Status = iota
	StatusChanged
	StatusOrderDrift
	StatusContentDrift
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUnchanged:
		return "unchanged"
	case StatusChanged:
		return "changed"
	case StatusOrderDrift:
		return "order drift"
	case StatusContentDrift:
		return "content drift"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome for one file.
type Result struct {
	Path   string
	Status Status
	Err    error
	// Diff is a unified diff from on-disk to canonical text, when requested.
	Diff string
}

func (r Result) String() string {
	switch r.Status {
	case StatusUnchanged:
		return "OK: " + r.Path
	case StatusChanged:
		return "FIXED: " + r.Path
	case StatusOrderDrift:
		return "FAIL (YAML order drift): " + r.Path
	case StatusContentDrift:
		return "FAIL (canonicalization drift): " + r.Path
	default:
		return fmt.Sprintf("ERROR: %v", r.Err)
	}
}

// Report collects per-file results in input order.
type Report struct {
	Results []Result
}

// Failed reports whether any file drifted or could not be processed.
func (r Report) Failed() bool {
	for _, res := range r.Results {
		if res.Status == StatusOrderDrift || res.Status == StatusContentDrift || res.Status == StatusError {
			return true
		}
	}
	return false
}

// Count returns the number of results with status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Canonicalizer runs check and write passes over batches of note files.
type Canonicalizer struct {
	policy Policy
	logger *slog.Logger
	diff   bool
}

// Option configures a Canonicalizer.
type Option func(*Canonicalizer)

// WithPolicy overrides the default cnsf/v0 policy.
func WithPolicy(p Policy) Option {
	return func(c *Canonicalizer) {
		c.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Canonicalizer) {
		c.logger = logger
	}
}

// WithDiff attaches a unified diff to drifting check results.
func WithDiff(enabled bool) Option {
	return func(c *Canonicalizer) {
		c.diff = enabled
	}
}

// New creates a Canonicalizer.
func New(opts ...Option) *Canonicalizer {
	c := &Canonicalizer{
		policy: DefaultPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the active policy.
func (c *Canonicalizer) Policy() Policy {
	return c.policy
}

// CanonicalText parses text, canonicalizes its metadata and returns the
// canonical serialization together with the canonical note.
func (c *Canonicalizer) CanonicalText(path string, text []byte) ([]byte, *core.Note, error) {
	note, err := document.Parse(path, text)
	if err != nil {
		return nil, nil, err
	}
	meta, err := c.policy.Canonicalize(path, note.Meta)
	if err != nil {
		return nil, nil, err
	}
	note.Meta = meta
	out, err := document.Serialize(*note)
	if err != nil {
		return nil, nil, err
	}
	return out, note, nil
}

// CheckFile compares a file against its canonical form without writing.
func (c *Canonicalizer) CheckFile(path string) Result {
	old, err := os.ReadFile(path)
	if err != nil {
		return Result{Path: path, Status: StatusError, Err: err}
	}
	canonical, note, err := c.CanonicalText(path, old)
	if err != nil {
		return Result{Path: path, Status: StatusError, Err: err}
	}
	if string(canonical) == string(old) {
		return Result{Path: path, Status: StatusUnchanged}
	}
	res := Result{Path: path, Status: ClassifyDrift(old, note.Meta.Keys())}
	if c.diff {
		res.Diff = unifiedDiff(path, old, canonical)
	}
	return res
}

// WriteFile rewrites a file with its canonical form when it differs.
func (c *Canonicalizer) WriteFile(path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return Result{Path: path, Status: StatusError, Err: err}
	}
	old, err := os.ReadFile(path)
	if err != nil {
		return Result{Path: path, Status: StatusError, Err: err}
	}
	canonical, _, err := c.CanonicalText(path, old)
	if err != nil {
		return Result{Path: path, Status: StatusError, Err: err}
	}
	if string(canonical) == string(old) {
		return Result{Path: path, Status: StatusUnchanged}
	}
	if err := fs.WriteFileAtomic(path, canonical, info.Mode().Perm()); err != nil {
		return Result{Path: path, Status: StatusError, Err: err}
	}
	return Result{Path: path, Status: StatusChanged}
}

// Check runs CheckFile over paths. A failure on one file does not stop the batch.
func (c *Canonicalizer) Check(ctx context.Context, paths []string) (Report, error) {
	return c.run(ctx, paths, c.CheckFile)
}

// Write runs WriteFile over paths. A failure on one file does not stop the batch.
func (c *Canonicalizer) Write(ctx context.Context, paths []string) (Report, error) {
	return c.run(ctx, paths, c.WriteFile)
}

func (c *Canonicalizer) run(ctx context.Context, paths []string, fn func(string) Result) (Report, error) {
	var report Report
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := fn(p)
		if res.Status == StatusError {
			c.logger.Warn("canonicalization failed", "path", p, "error", res.Err)
		} else {
			c.logger.Debug("canonicalized", "path", p, "status", res.Status.String())
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

// ClassifyDrift decides whether a drifting file only has its top-level keys
// out of order or differs in content. It is a diagnostic; the canonical text
// remains the only authority on correctness.
func ClassifyDrift(old []byte, canonicalKeys []string) Status {
	doc, err := document.Split("", old)
	if err != nil {
		return StatusContentDrift
	}
	oldKeys := core.TopLevelKeys(doc.Meta)

	inCanonical := make(map[string]bool, len(canonicalKeys))
	for _, k := range canonicalKeys {
		inCanonical[k] = true
	}
	inOld := make(map[string]bool, len(oldKeys))
	var common []string
	for _, k := range oldKeys {
		inOld[k] = true
		if inCanonical[k] {
			common = append(common, k)
		}
	}
	var want []string
	for _, k := range canonicalKeys {
		if inOld[k] {
			want = append(want, k)
		}
	}
	for i := range common {
		if common[i] != want[i] {
			return StatusOrderDrift
		}
	}
	return StatusContentDrift
}

func unifiedDiff(path string, old, canonical []byte) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(old)),
		B:        difflib.SplitLines(string(canonical)),
		FromFile: path,
		ToFile:   path + " (canonical)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}
