package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRoot(t *testing.T) {
	// base/
	//   repo/ (.git, domains)
	//     domains/b737/anki/
	//   configured/ (cnsf.yaml)
	//     nested/
	//   bare/ (.git only)
	base := t.TempDir()
	repo := filepath.Join(base, "repo")
	deep := filepath.Join(repo, "domains", "b737", "anki")
	configured := filepath.Join(base, "configured")
	nested := filepath.Join(configured, "nested")
	bare := filepath.Join(base, "bare")

	for _, dir := range []string{deep, filepath.Join(repo, ".git"), nested, filepath.Join(bare, ".git")} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(configured, ConfigFile), nil, 0o644))

	tests := []struct {
		name    string
		start   string
		want    string
		wantErr bool
	}{
		{name: "Start At Root", start: repo, want: repo},
		{name: "Start Nested Deeply", start: deep, want: repo},
		{name: "Config File Marks Root", start: nested, want: configured},
		{name: "Git Alone Is Not Enough", start: bare, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindRoot(tt.start)
			if tt.wantErr {
				// An ancestor of the temp dir may itself qualify.
				if err == nil {
					assert.NotEqual(t, bare, got)
				} else {
					assert.ErrorIs(t, err, ErrRootNotFound)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Clean(tt.want), filepath.Clean(got))
		})
	}
}
