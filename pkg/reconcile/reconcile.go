// Package reconcile drives the remote store's create, update and adopt
// protocol for an import table and records identity mappings.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cdhutch/cnsf/pkg/ankiconnect"
	"github.com/cdhutch/cnsf/pkg/core"
	"github.com/cdhutch/cnsf/pkg/idmap"
	"github.com/cdhutch/cnsf/pkg/tags"
)

// Store is the remote store contract. *ankiconnect.Client implements it.
type Store interface {
	Version(ctx context.Context) (int, error)
	ModelFieldNames(ctx context.Context, model string) ([]string, error)
	AddNote(ctx context.Context, n ankiconnect.NewNote) (ankiconnect.CreateResult, error)
	UpdateNoteFields(ctx context.Context, id int64, fields map[string]string) error
	GetNoteTags(ctx context.Context, id int64) ([]string, error)
	AddTags(ctx context.Context, ids []int64, tags []string) error
	RemoveTags(ctx context.Context, ids []int64, tags []string) error
	FindNotes(ctx context.Context, query string) ([]int64, error)
	NotesInfo(ctx context.Context, ids []int64) ([]ankiconnect.NoteInfo, error)
}

var _ Store = (*ankiconnect.Client)(nil)

// DefaultIdentityField is the model field holding the note_id.
const DefaultIdentityField = "NoteID"

// Action is what happened to a row.
type Action int

const (
	ActionSkipped Action = iota
	ActionCreated
	ActionUpdated
	ActionAdopted
	ActionFailed
)

func (a Action) String() string {
	switch a {
	case ActionCreated:
		return "created"
	case ActionUpdated:
		return "updated"
	case ActionAdopted:
		return "adopted"
	case ActionFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// RowResult is the outcome for one row.
type RowResult struct {
	NoteID   string
	RemoteID string
	Action   Action
	Err      error
}

// Report collects row outcomes in table order.
type Report struct {
	Results []RowResult
}

// Count returns the number of rows with action a.
func (r Report) Count(a Action) int {
	n := 0
	for _, res := range r.Results {
		if res.Action == a {
			n++
		}
	}
	return n
}

// Failed reports whether any row failed.
func (r Report) Failed() bool {
	return r.Count(ActionFailed) > 0
}

// Reconciler runs sync passes against a Store. Rows are processed strictly
// in order with one outstanding call at a time.
type Reconciler struct {
	store            Store
	logger           *slog.Logger
	log              *idmap.Log
	identityField    string
	preserveUserTags bool
	tagSpec          tags.Spec

	mu         sync.Mutex
	fieldCache map[string][]string
	lastRun    *RunState
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithMappingLog appends every creation and adoption to log.
func WithMappingLog(log *idmap.Log) Option {
	return func(r *Reconciler) {
		r.log = log
	}
}

// WithIdentityField names the model field that stores the note_id.
func WithIdentityField(name string) Option {
	return func(r *Reconciler) {
		r.identityField = name
	}
}

// WithPreserveUserTags limits the tag reset on update to managed tags.
// By default every existing tag is cleared.
func WithPreserveUserTags(preserve bool) Option {
	return func(r *Reconciler) {
		r.preserveUserTags = preserve
	}
}

// WithTagSpec sets the managed namespace definition used by
// WithPreserveUserTags.
func WithTagSpec(spec tags.Spec) Option {
	return func(r *Reconciler) {
		r.tagSpec = spec
	}
}

// New creates a Reconciler over store.
func New(store Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:         store,
		logger:        slog.Default(),
		identityField: DefaultIdentityField,
		tagSpec:       tags.DefaultSpec,
		fieldCache:    make(map[string][]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Probe checks the store is reachable. Any failure is a *core.ConfigError.
func (r *Reconciler) Probe(ctx context.Context) error {
	v, err := r.store.Version(ctx)
	if err != nil {
		if core.IsConfigError(err) || ctx.Err() != nil {
			return err
		}
		return &core.ConfigError{Component: "remote store", Err: err}
	}
	r.logger.Debug("remote store reachable", "version", v)
	return nil
}

// Plan lists which rows a sync would create and which it would update,
// without contacting the store.
type Plan struct {
	Creates []string
	Updates []string
}

// Check plans rows offline.
func Check(rows []Row) Plan {
	var p Plan
	for _, row := range rows {
		if row.RemoteID == "" {
			p.Creates = append(p.Creates, row.NoteID)
		} else {
			p.Updates = append(p.Updates, row.NoteID)
		}
	}
	return p
}

// Validate checks every row's shape and its field names against the target
// model. Model field names are fetched once per model. The returned slice
// is indexed like rows; a nil entry means the row is valid. The error is
// non-nil only when validation itself could not run.
func (r *Reconciler) Validate(ctx context.Context, rows []Row) ([]error, error) {
	errs := make([]error, len(rows))
	for i, row := range rows {
		if err := row.Check(); err != nil {
			errs[i] = err
			continue
		}
		known, err := r.modelFields(ctx, row.Model)
		if err != nil {
			var re *ankiconnect.RemoteError
			if errors.As(err, &re) {
				errs[i] = &core.ValidationError{NoteID: row.NoteID, Model: row.Model, Msg: re.Message}
				continue
			}
			return nil, err
		}
		set := make(map[string]bool, len(known))
		for _, k := range known {
			set[k] = true
		}
		var unknown []string
		for _, name := range row.PayloadNames(r.identityField) {
			if !set[name] {
				unknown = append(unknown, name)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			errs[i] = &core.ValidationError{NoteID: row.NoteID, Model: row.Model, Unknown: unknown}
		}
	}
	return errs, nil
}

func (r *Reconciler) modelFields(ctx context.Context, model string) ([]string, error) {
	r.mu.Lock()
	cached, ok := r.fieldCache[model]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}
	names, err := r.store.ModelFieldNames(ctx, model)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.fieldCache[model] = names
	r.mu.Unlock()
	return names, nil
}

// Sync runs one pass. Rows that fail validation, or whose duplicate cannot
// be adopted, fail alone and the pass continues. Any other store error
// ends the pass and is returned together with the partial report.
func (r *Reconciler) Sync(ctx context.Context, rows []Row) (Report, error) {
	started := time.Now()
	var report Report
	defer func() { r.recordRun(started, report) }()

	if err := r.Probe(ctx); err != nil {
		return report, err
	}
	verrs, err := r.Validate(ctx, rows)
	if err != nil {
		return report, err
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if verrs[i] != nil {
			r.logger.Warn("row rejected", "note_id", row.NoteID, "error", verrs[i])
			report.Results = append(report.Results, RowResult{NoteID: row.NoteID, RemoteID: row.RemoteID, Action: ActionFailed, Err: verrs[i]})
			continue
		}

		res, err := r.syncRow(ctx, row)
		report.Results = append(report.Results, res)
		if err != nil {
			return report, err
		}
		if res.Action == ActionFailed {
			r.logger.Warn("row failed", "note_id", row.NoteID, "error", res.Err)
		} else {
			r.logger.Info("row synced", "note_id", row.NoteID, "remote_id", res.RemoteID, "action", res.Action.String())
		}
	}
	return report, nil
}

// syncRow returns a failed RowResult for row-local failures and a non-nil
// error for failures that must end the pass.
func (r *Reconciler) syncRow(ctx context.Context, row Row) (RowResult, error) {
	res := RowResult{NoteID: row.NoteID, RemoteID: row.RemoteID}

	if row.RemoteID != "" {
		id, err := row.ID()
		if err != nil {
			res.Action, res.Err = ActionFailed, &core.ValidationError{NoteID: row.NoteID, Msg: "noteId is not an integer"}
			return res, nil
		}
		if err := r.update(ctx, id, row); err != nil {
			res.Action, res.Err = ActionFailed, err
			return res, err
		}
		res.Action = ActionUpdated
		return res, nil
	}

	created, err := r.store.AddNote(ctx, ankiconnect.NewNote{
		Deck:   row.Deck,
		Model:  row.Model,
		Fields: row.Payload(r.identityField),
		Tags:   row.Tags,
	})
	if err != nil {
		res.Action, res.Err = ActionFailed, err
		return res, err
	}

	switch created.Outcome {
	case ankiconnect.Created:
		res.RemoteID = fmt.Sprint(created.ID)
		res.Action = ActionCreated
		if err := r.record(row.NoteID, res.RemoteID); err != nil {
			return res, err
		}
		return res, nil

	case ankiconnect.DuplicateConflict:
		id, err := r.lookup(ctx, row)
		if err != nil {
			res.Action, res.Err = ActionFailed, err
			var conflict *core.SyncConflictError
			if errors.As(err, &conflict) {
				return res, nil
			}
			return res, err
		}
		res.RemoteID = fmt.Sprint(id)
		if err := r.update(ctx, id, row); err != nil {
			res.Action, res.Err = ActionFailed, err
			return res, err
		}
		res.Action = ActionAdopted
		if err := r.record(row.NoteID, res.RemoteID); err != nil {
			return res, err
		}
		return res, nil

	default:
		return res, fmt.Errorf("note %s: unexpected create outcome %v", row.NoteID, created.Outcome)
	}
}

// lookup finds the existing note behind a duplicate rejection: first scoped
// to the row's model and deck, then by identity field alone.
func (r *Reconciler) lookup(ctx context.Context, row Row) (int64, error) {
	queries := []string{
		ankiconnect.ScopedQuery(row.Model, row.Deck, r.identityField, row.NoteID),
		ankiconnect.FieldQuery(r.identityField, row.NoteID),
	}
	for _, q := range queries {
		hits, err := r.store.FindNotes(ctx, q)
		if err != nil {
			return 0, err
		}
		switch {
		case len(hits) == 1:
			r.logger.Debug("adopting existing note", "note_id", row.NoteID, "remote_id", hits[0], "query", q)
			return hits[0], nil
		case len(hits) > 1:
			return 0, &core.SyncConflictError{
				NoteID: row.NoteID,
				Msg:    fmt.Sprintf("duplicate on create and %d notes match %s", len(hits), q),
				Err:    core.ErrDuplicate,
			}
		}
	}
	return 0, &core.SyncConflictError{
		NoteID: row.NoteID,
		Msg:    fmt.Sprintf("duplicate on create but no note matches %s", r.identityField),
		Err:    core.ErrNotFound,
	}
}

// update overwrites every payload field and replaces the note's tags.
func (r *Reconciler) update(ctx context.Context, id int64, row Row) error {
	if err := r.store.UpdateNoteFields(ctx, id, row.Payload(r.identityField)); err != nil {
		return err
	}
	current, err := r.store.GetNoteTags(ctx, id)
	if err != nil {
		return err
	}
	remove := current
	if r.preserveUserTags {
		remove = nil
		for _, t := range current {
			if r.tagSpec.IsManaged(t) {
				remove = append(remove, t)
			}
		}
	}
	if len(remove) > 0 {
		if err := r.store.RemoveTags(ctx, []int64{id}, remove); err != nil {
			return err
		}
	}
	if len(row.Tags) > 0 {
		if err := r.store.AddTags(ctx, []int64{id}, row.Tags); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) record(noteID, remoteID string) error {
	if r.log == nil {
		return nil
	}
	if err := r.log.Append(noteID, remoteID); err != nil {
		return fmt.Errorf("identity mapping: %w", err)
	}
	return nil
}
