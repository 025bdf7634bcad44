package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/cdhutch/cnsf/pkg/ankiconnect"
	"github.com/cdhutch/cnsf/pkg/core"
)

// fakeStore is an in-memory remote store that records every call.
type fakeStore struct {
	calls []string

	versionErr error
	models     map[string][]string
	// duplicates makes AddNote report a conflict for these note_ids.
	duplicates map[string]bool
	// hits answers FindNotes by exact query.
	hits   map[string][]int64
	tags   map[int64][]string
	fields map[int64]map[string]string
	infos  map[int64]ankiconnect.NoteInfo
	nextID int64
	// failOn makes the named action return a remote error.
	failOn string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		models: map[string][]string{
			"B737_Structured": {"NoteID", "Front", "Back", "Source Document", "Verification Notes"},
		},
		duplicates: map[string]bool{},
		hits:       map[string][]int64{},
		tags:       map[int64][]string{},
		fields:     map[int64]map[string]string{},
		infos:      map[int64]ankiconnect.NoteInfo{},
		nextID:     1000,
	}
}

func (f *fakeStore) record(format string, args ...any) error {
	call := fmt.Sprintf(format, args...)
	f.calls = append(f.calls, call)
	if f.failOn != "" && strings.HasPrefix(call, f.failOn) {
		return &ankiconnect.RemoteError{Action: f.failOn, Message: "boom"}
	}
	return nil
}

func (f *fakeStore) actions() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = strings.SplitN(c, " ", 2)[0]
	}
	return out
}

func (f *fakeStore) Version(ctx context.Context) (int, error) {
	if f.versionErr != nil {
		return 0, f.versionErr
	}
	return 6, f.record("version")
}

func (f *fakeStore) ModelFieldNames(ctx context.Context, model string) ([]string, error) {
	if err := f.record("modelFieldNames %s", model); err != nil {
		return nil, err
	}
	names, ok := f.models[model]
	if !ok {
		return nil, &ankiconnect.RemoteError{Action: "modelFieldNames", Message: "model was not found: " + model}
	}
	return names, nil
}

func (f *fakeStore) AddNote(ctx context.Context, n ankiconnect.NewNote) (ankiconnect.CreateResult, error) {
	if err := f.record("addNote %s", n.Fields["NoteID"]); err != nil {
		return ankiconnect.CreateResult{}, err
	}
	if f.duplicates[n.Fields["NoteID"]] {
		return ankiconnect.CreateResult{Outcome: ankiconnect.DuplicateConflict, Message: "cannot create note because it is a duplicate"}, nil
	}
	f.nextID++
	f.fields[f.nextID] = n.Fields
	f.tags[f.nextID] = n.Tags
	return ankiconnect.CreateResult{Outcome: ankiconnect.Created, ID: f.nextID}, nil
}

func (f *fakeStore) UpdateNoteFields(ctx context.Context, id int64, fields map[string]string) error {
	if err := f.record("updateNoteFields %d", id); err != nil {
		return err
	}
	f.fields[id] = fields
	return nil
}

func (f *fakeStore) GetNoteTags(ctx context.Context, id int64) ([]string, error) {
	if err := f.record("getNoteTags %d", id); err != nil {
		return nil, err
	}
	return append([]string(nil), f.tags[id]...), nil
}

func (f *fakeStore) AddTags(ctx context.Context, ids []int64, tags []string) error {
	if err := f.record("addTags %v %s", ids, strings.Join(tags, " ")); err != nil {
		return err
	}
	for _, id := range ids {
		f.tags[id] = append(f.tags[id], tags...)
	}
	return nil
}

func (f *fakeStore) RemoveTags(ctx context.Context, ids []int64, tags []string) error {
	if err := f.record("removeTags %v %s", ids, strings.Join(tags, " ")); err != nil {
		return err
	}
	drop := make(map[string]bool, len(tags))
	for _, t := range tags {
		drop[t] = true
	}
	for _, id := range ids {
		var keep []string
		for _, t := range f.tags[id] {
			if !drop[t] {
				keep = append(keep, t)
			}
		}
		f.tags[id] = keep
	}
	return nil
}

func (f *fakeStore) FindNotes(ctx context.Context, query string) ([]int64, error) {
	if err := f.record("findNotes %s", query); err != nil {
		return nil, err
	}
	return f.hits[query], nil
}

func (f *fakeStore) NotesInfo(ctx context.Context, ids []int64) ([]ankiconnect.NoteInfo, error) {
	if err := f.record("notesInfo %v", ids); err != nil {
		return nil, err
	}
	var out []ankiconnect.NoteInfo
	for _, id := range ids {
		if info, ok := f.infos[id]; ok {
			out = append(out, info)
		} else {
			out = append(out, ankiconnect.NoteInfo{})
		}
	}
	return out, nil
}

var _ Store = (*fakeStore)(nil)

var errOffline = &core.ConfigError{Component: "ankiconnect", Err: fmt.Errorf("connection refused")}
