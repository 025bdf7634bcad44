package platform_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdhutch/cnsf/internal/platform"
	"github.com/cdhutch/cnsf/pkg/adapters/fs"
)

const note = `---
schema: cnsf/v0
domain: b737
note_type: system
note_id: sys_a
anki:
  model: CNSF
  deck: B737
tags:
  - electrical
fields:
  Verification Notes: ""
---

# front_md

Q

# back_md

A
`

func setupWorkspace(t *testing.T, opts ...platform.Option) *platform.Workspace {
	t.Helper()
	root := t.TempDir()
	sources := filepath.Join(root, "domains", "b737", "anki", "sources")
	require.NoError(t, os.MkdirAll(filepath.Join(sources, "electrical"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sources, "electrical", "sys_a.md"), []byte(note), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sources, "electrical__canonical.md"), []byte("## sys_a\n"), 0o644))

	w, err := platform.New(root, append([]platform.Option{platform.WithNoCache(true)}, opts...)...)
	require.NoError(t, err)
	return w
}

func TestWorkspace_Repository(t *testing.T) {
	w := setupWorkspace(t)
	paths, err := w.Repository().List(context.Background())
	require.NoError(t, err)
	require.Len(t, paths, 1, "corpus documents are not notes")
	assert.Equal(t, "sys_a.md", filepath.Base(paths[0]))

	idx, err := w.Repository().Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, paths[0], idx["sys_a"])
}

func TestWorkspace_Overrides(t *testing.T) {
	w := setupWorkspace(t,
		platform.WithAnkiURL("http://10.0.0.2:8765"),
		platform.WithMappingFile("exports/map.tsv"),
	)
	assert.Equal(t, "http://10.0.0.2:8765", w.Config.AnkiURL)
	require.NotNil(t, w.MappingLog())
	assert.Equal(t, filepath.Join(w.Root, "exports", "map.tsv"), w.MappingLog().Path())

	t.Run("Invalid Override", func(t *testing.T) {
		_, err := platform.New(t.TempDir(), platform.WithRenderer("wordperfect"))
		assert.Error(t, err)
	})
}

func TestWorkspace_Pipeline(t *testing.T) {
	w := setupWorkspace(t)
	p, err := w.Pipeline("electrical")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Root, "domains", "b737", "anki", "sources", "electrical__canonical.md"), p.Paths.CanonicalMD)

	n, err := p.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.FileExists(t, p.Paths.SyncTSV)
}

func TestWorkspace_Canonicalizer(t *testing.T) {
	w := setupWorkspace(t)
	paths, err := w.Repository().List(context.Background())
	require.NoError(t, err)

	report, err := w.Canonicalizer().Check(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.False(t, report.Failed(), report.Results[0].String())
}

func TestWorkspace_State(t *testing.T) {
	w := setupWorkspace(t)
	_, err := w.Renderer()
	require.NoError(t, err)

	state, ok := w.State().(platform.WorkspaceState)
	require.True(t, ok)
	assert.Equal(t, w.Root, state.Root)
	assert.Equal(t, "goldmark", state.Renderer)
	repoState, ok := state.Repository.(fs.RepositoryState)
	require.True(t, ok)
	assert.False(t, repoState.CacheEnabled)
	assert.Equal(t, "workspace", w.ComponentType())
}

func TestOpen(t *testing.T) {
	w := setupWorkspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(w.Root, platform.ConfigFile), []byte("renderer: goldmark\n"), 0o644))

	opened, err := platform.Open(filepath.Join(w.Root, "domains", "b737"))
	require.NoError(t, err)
	assert.Equal(t, w.Root, opened.Root)

	_, err = platform.New(w.Root, platform.WithConfig(platform.Config{}))
	assert.Error(t, err)
}
