package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Missing File Yields Defaults", func(t *testing.T) {
		cfg, err := LoadConfig(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
		assert.Equal(t, "http://127.0.0.1:8765", cfg.AnkiURL)
		assert.Equal(t, "goldmark", cfg.Renderer)
		assert.Equal(t, "NoteID", cfg.IdentityField)
	})

	t.Run("File Overrides Defaults", func(t *testing.T) {
		root := t.TempDir()
		yml := "renderer: pandoc\nmap_file: exports/map.tsv\nanki_url: http://anki.local:9000\n"
		require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFile), []byte(yml), 0o644))

		cfg, err := LoadConfig(root)
		require.NoError(t, err)
		assert.Equal(t, "pandoc", cfg.Renderer)
		assert.Equal(t, "exports/map.tsv", cfg.MapFile)
		assert.Equal(t, "http://anki.local:9000", cfg.AnkiURL)
		assert.Equal(t, DefaultConfig().Sources, cfg.Sources)
	})

	t.Run("Empty File Yields Defaults", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFile), nil, 0o644))
		cfg, err := LoadConfig(root)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	tests := []struct {
		name string
		yml  string
		want string
	}{
		{name: "Unknown Renderer", yml: "renderer: markdown-it\n", want: "Renderer"},
		{name: "Bad URL", yml: "anki_url: not a url\n", want: "AnkiURL"},
		{name: "Unknown Key", yml: "sourcez: x\n", want: "sourcez"},
		{name: "Identity Field With Space", yml: "identity_field: Note ID\n", want: "IdentityField"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFile), []byte(tt.yml), 0o644))
			_, err := LoadConfig(root)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_Marshal(t *testing.T) {
	data, err := DefaultConfig().Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "anki_url: http://127.0.0.1:8765\n")
	assert.Contains(t, string(data), "renderer: goldmark\n")
}
