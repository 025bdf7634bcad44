package ankiconnect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdhutch/cnsf/pkg/core"
)

type call struct {
	Action  string          `json:"action"`
	Version int             `json:"version"`
	Params  json.RawMessage `json:"params"`
}

// fakeAnki answers each action with a canned result or error.
type fakeAnki struct {
	mu      sync.Mutex
	calls   []call
	results map[string]any
	errors  map[string]string
}

func (f *fakeAnki) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var c call
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	resp := map[string]any{"result": f.results[c.Action], "error": nil}
	if msg, ok := f.errors[c.Action]; ok {
		resp = map[string]any{"result": nil, "error": msg}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func setup(t *testing.T, f *fakeAnki) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func params(t *testing.T, c call) map[string]any {
	t.Helper()
	var p map[string]any
	require.NoError(t, json.Unmarshal(c.Params, &p))
	return p
}

func TestClient_Envelope(t *testing.T) {
	f := &fakeAnki{results: map[string]any{"version": 6}}
	c := setup(t, f)

	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, v)

	require.Len(t, f.calls, 1)
	assert.Equal(t, "version", f.calls[0].Action)
	assert.Equal(t, APIVersion, f.calls[0].Version)
	assert.JSONEq(t, `{}`, string(f.calls[0].Params))
}

func TestClient_RemoteError(t *testing.T) {
	f := &fakeAnki{errors: map[string]string{"modelFieldNames": "model was not found: X"}}
	c := setup(t, f)

	_, err := c.ModelFieldNames(context.Background(), "X")
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "modelFieldNames", re.Action)
	assert.False(t, re.IsDuplicate())
	assert.False(t, core.IsConfigError(err))
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Version(context.Background())
	assert.True(t, core.IsConfigError(err))
}

func TestClient_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Version(context.Background())
	assert.True(t, core.IsConfigError(err))
}

func TestClient_AddNote(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		f := &fakeAnki{results: map[string]any{"addNote": 1700000000001}}
		c := setup(t, f)

		res, err := c.AddNote(context.Background(), NewNote{
			Deck:   "B737::Electrical",
			Model:  "B737_Structured",
			Fields: map[string]string{"NoteID": "sys_a", "Front": "Q", "Back": "A"},
		})
		require.NoError(t, err)
		assert.Equal(t, CreateResult{Outcome: Created, ID: 1700000000001}, res)

		p := params(t, f.calls[0])
		note := p["note"].(map[string]any)
		assert.Equal(t, "B737::Electrical", note["deckName"])
		assert.Equal(t, []any{}, note["tags"])
		assert.Equal(t, map[string]any{"allowDuplicate": false, "duplicateScope": "deck"}, note["options"])
	})

	t.Run("Duplicate Is An Outcome", func(t *testing.T) {
		f := &fakeAnki{errors: map[string]string{"addNote": "cannot create note because it is a duplicate"}}
		c := setup(t, f)

		res, err := c.AddNote(context.Background(), NewNote{Deck: "D", Model: "M"})
		require.NoError(t, err)
		assert.Equal(t, DuplicateConflict, res.Outcome)
		assert.Zero(t, res.ID)
	})

	t.Run("Other Errors Fail", func(t *testing.T) {
		f := &fakeAnki{errors: map[string]string{"addNote": "deck was not found"}}
		c := setup(t, f)

		_, err := c.AddNote(context.Background(), NewNote{Deck: "D", Model: "M"})
		var re *RemoteError
		assert.True(t, errors.As(err, &re))
	})
}

func TestClient_TagsAndFields(t *testing.T) {
	f := &fakeAnki{results: map[string]any{"getNoteTags": []string{"topic:a", "mine"}}}
	c := setup(t, f)
	ctx := context.Background()

	require.NoError(t, c.UpdateNoteFields(ctx, 42, map[string]string{"Back": "B"}))
	tags, err := c.GetNoteTags(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"topic:a", "mine"}, tags)
	require.NoError(t, c.RemoveTags(ctx, []int64{42}, tags))
	require.NoError(t, c.AddTags(ctx, []int64{42}, []string{"topic:b", "src:x"}))

	require.Len(t, f.calls, 4)
	assert.JSONEq(t, `{"note":{"id":42,"fields":{"Back":"B"}}}`, string(f.calls[0].Params))
	assert.JSONEq(t, `{"note":42}`, string(f.calls[1].Params))
	assert.JSONEq(t, `{"notes":[42],"tags":"topic:a mine"}`, string(f.calls[2].Params))
	assert.JSONEq(t, `{"notes":[42],"tags":"topic:b src:x"}`, string(f.calls[3].Params))
}

func TestClient_NotesInfo(t *testing.T) {
	f := &fakeAnki{results: map[string]any{
		"findNotes": []int64{7},
		"notesInfo": []map[string]any{{
			"noteId":    7,
			"modelName": "Basic",
			"tags":      []string{},
			"fields": map[string]any{
				"Back":  map[string]any{"value": "b", "order": 1},
				"Front": map[string]any{"value": "f", "order": 0},
			},
		}},
	}}
	c := setup(t, f)

	ids, err := c.FindNotes(context.Background(), FieldQuery("NoteID", "sys_a"))
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, ids)

	infos, err := c.NotesInfo(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, []string{"Front", "Back"}, infos[0].FieldNames())
	assert.Equal(t, "b", infos[0].Fields["Back"].Value)
}

func TestQueries(t *testing.T) {
	assert.Equal(t, `note:"B737\_Structured" deck:"B737::Electrical" NoteID:"sys\_a"`,
		ScopedQuery("B737_Structured", "B737::Electrical", "NoteID", "sys_a"))
	assert.Equal(t, `NoteID:"say \"hi\""`, FieldQuery("NoteID", `say "hi"`))

	t.Run("Wildcards Match Literally", func(t *testing.T) {
		assert.Equal(t, `NoteID:"a\_b\*"`, FieldQuery("NoteID", "a_b*"))
		assert.Equal(t, `NoteID:"c:\\tmp"`, FieldQuery("NoteID", `c:\tmp`))
	})
}
