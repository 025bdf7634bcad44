package fs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdhutch/cnsf/pkg/adapters/fs"
	"github.com/cdhutch/cnsf/pkg/core"
)

func noteText(id string) string {
	return "---\nschema: cnsf/v0\nnote_id: " + id + "\nanki:\n  model: M\n  deck: D\ntags: []\nfields: {}\n---\n\n# front_md\n\nQ " + id + "\n\n# back_md\n\nA " + id + "\n"
}

// setupRepo creates a note tree and returns a repository over it.
func setupRepo(t *testing.T, files map[string]string, opts ...func(*fs.Config)) (*fs.Repository, string) {
	t.Helper()

	root := t.TempDir()
	for rel, text := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(text), 0o644))
	}

	cfg := fs.Config{Root: root}
	for _, opt := range opts {
		opt(&cfg)
	}
	return fs.NewRepository(cfg), root
}

func TestRepository_List(t *testing.T) {
	t.Run("Finds Nested Markdown Sorted", func(t *testing.T) {
		repo, root := setupRepo(t, map[string]string{
			"b.md":           noteText("b"),
			"sub/a.md":       noteText("a"),
			"sub/readme.txt": "x",
		})

		paths, err := repo.List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "b.md"),
			filepath.Join(root, "sub", "a.md"),
		}, paths)
	})

	t.Run("Honors Exclude And Skips Temp Files", func(t *testing.T) {
		repo, root := setupRepo(t, map[string]string{
			"a.md":                     noteText("a"),
			"drafts/x.md":              noteText("x"),
			fs.TempFilePrefix + "1.md": "partial",
			".cnsf/cached.md":          "x",
		}, func(c *fs.Config) {
			c.Exclude = []string{"drafts/**"}
		})

		paths, err := repo.List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "a.md")}, paths)
	})

	t.Run("Custom Pattern", func(t *testing.T) {
		repo, root := setupRepo(t, map[string]string{
			"notes/a.md": noteText("a"),
			"other/b.md": noteText("b"),
		}, func(c *fs.Config) {
			c.Pattern = "notes/*.md"
		})

		paths, err := repo.List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "notes", "a.md")}, paths)
	})
}

func TestRepository_Load(t *testing.T) {
	repo, _ := setupRepo(t, map[string]string{
		"a.md":   noteText("a"),
		"bad.md": "not a note\n",
	})

	notes, err := repo.Load(context.Background())
	require.Len(t, notes, 1)
	assert.Equal(t, "a", notes[0].ID())

	var fe *core.FormatError
	assert.True(t, errors.As(err, &fe))
}

func TestRepository_Write(t *testing.T) {
	repo, root := setupRepo(t, nil)
	note, err := repo.Read(context.Background(), writeTemp(t, noteText("w")))
	require.NoError(t, err)

	note.Path = filepath.Join("deep", "w.md")
	require.NoError(t, repo.Write(context.Background(), *note))

	data, err := os.ReadFile(filepath.Join(root, "deep", "w.md"))
	require.NoError(t, err)
	assert.Equal(t, noteText("w"), string(data))
}

func writeTemp(t *testing.T, text string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "n.md")
	require.NoError(t, os.WriteFile(p, []byte(text), 0o644))
	return p
}

func TestRepository_Index(t *testing.T) {
	t.Run("Maps Note IDs", func(t *testing.T) {
		repo, root := setupRepo(t, map[string]string{
			"a.md":     noteText("a"),
			"sub/b.md": noteText("b"),
		})

		ids, err := repo.Index(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"a": filepath.Join(root, "a.md"),
			"b": filepath.Join(root, "sub", "b.md"),
		}, ids)
		assert.FileExists(t, filepath.Join(root, fs.DefaultSystemDir, "index.json"))

		p, err := repo.Resolve(context.Background(), "b")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "sub", "b.md"), p)

		_, err = repo.Resolve(context.Background(), "zzz")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("Reports Duplicate IDs", func(t *testing.T) {
		repo, _ := setupRepo(t, map[string]string{
			"a.md": noteText("same"),
			"b.md": noteText("same"),
		}, func(c *fs.Config) { c.NoCache = true })

		ids, err := repo.Index(context.Background())
		assert.ErrorIs(t, err, core.ErrDuplicate)
		assert.Len(t, ids, 1)
	})

	t.Run("Picks Up Edits Through Cache", func(t *testing.T) {
		repo, root := setupRepo(t, map[string]string{"a.md": noteText("a")})
		_, err := repo.Index(context.Background())
		require.NoError(t, err)

		p := filepath.Join(root, "a.md")
		require.NoError(t, os.WriteFile(p, []byte(noteText("renamed")), 0o644))
		info, err := os.Stat(p)
		require.NoError(t, err)
		later := info.ModTime().Add(2e9)
		require.NoError(t, os.Chtimes(p, later, later))

		ids, err := repo.Index(context.Background())
		require.NoError(t, err)
		assert.Contains(t, ids, "renamed")
		assert.NotContains(t, ids, "a")
	})
}

func TestRepository_State(t *testing.T) {
	repo, root := setupRepo(t, nil)
	state, ok := repo.State().(fs.RepositoryState)
	require.True(t, ok)
	assert.Equal(t, root, state.Root)
	assert.Equal(t, fs.DefaultPattern, state.Pattern)
	assert.False(t, state.WatcherActive)
	assert.Equal(t, "note-repository", repo.ComponentType())
}
