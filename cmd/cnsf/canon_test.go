package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdhutch/cnsf"
	"github.com/cdhutch/cnsf/pkg/canon"
	"github.com/cdhutch/cnsf/pkg/git"
)

const stagedNote = `---
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

func TestWriteCanonical_Staged(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	root := t.TempDir()
	client := git.NewClient(root, nil)
	require.NoError(t, client.Init(ctx))

	dir := filepath.Join(root, "domains", "b737", "anki", "sources", "electrical")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	note := filepath.Join(dir, "sys_a.md")
	lock := filepath.Join(root, git.LockFile)

	ws, err := cnsf.New(root, cnsf.WithNoCache(true))
	require.NoError(t, err)

	t.Run("Failed Write Releases Lock", func(t *testing.T) {
		bad := strings.Replace(stagedNote, "note_id: sys_a", "note_id: bad-id", 1)
		require.NoError(t, os.WriteFile(note, []byte(bad), 0o644))
		require.NoError(t, client.Add(ctx, note))

		report, err := writeCanonical(ctx, ws, []string{note}, true)
		require.NoError(t, err)
		assert.True(t, report.Failed())
		assert.NoFileExists(t, lock)
	})

	t.Run("Next Run Is Not Blocked", func(t *testing.T) {
		drifted := strings.Replace(stagedNote, "schema: cnsf/v0\ndomain: b737\n", "domain: b737\nschema: cnsf/v0\n", 1)
		require.NoError(t, os.WriteFile(note, []byte(drifted), 0o644))
		require.NoError(t, client.Add(ctx, note))

		runCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		report, err := writeCanonical(runCtx, ws, []string{note}, true)
		require.NoError(t, err)
		require.Len(t, report.Results, 1)
		assert.Equal(t, canon.StatusChanged, report.Results[0].Status)
		assert.NoFileExists(t, lock)

		data, err := os.ReadFile(note)
		require.NoError(t, err)
		assert.Equal(t, stagedNote, string(data))
	})

	t.Run("Stale Lock Times Out", func(t *testing.T) {
		require.NoError(t, os.WriteFile(lock, nil, 0o644))
		defer os.Remove(lock)

		prev := canonLockWait
		canonLockWait = 20 * time.Millisecond
		defer func() { canonLockWait = prev }()

		_, err := writeCanonical(ctx, ws, []string{note}, true)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.FileExists(t, lock, "a lock held by another run is left alone")
	})
}
