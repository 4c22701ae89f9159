// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, TavilyAPIKey, "  tvly-abc123  \n")
				writeFile(t, dir, "other-key", "xyz")
				return dir
			},
			want: map[string]string{
				TavilyAPIKey: "tvly-abc123",
				"other-key":  "xyz",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, TavilyAPIKey, "tvly-valid")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{TavilyAPIKey: "tvly-valid"},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, TavilyAPIKey, "tvly-real")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{TavilyAPIKey: "tvly-real"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	loaded := map[string]string{TavilyAPIKey: "from-file"}

	t.Run("explicit wins", func(t *testing.T) {
		t.Setenv("TAVILY_API_KEY", "from-env")
		assert.Equal(t, "from-flag", Resolve(loaded, TavilyAPIKey, "from-flag"))
	})

	t.Run("file before env", func(t *testing.T) {
		t.Setenv("TAVILY_API_KEY", "from-env")
		assert.Equal(t, "from-file", Resolve(loaded, TavilyAPIKey, ""))
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv("TAVILY_API_KEY", " from-env ")
		assert.Equal(t, "from-env", Resolve(map[string]string{}, TavilyAPIKey, ""))
	})

	t.Run("unknown key has no fallback", func(t *testing.T) {
		assert.Empty(t, Resolve(map[string]string{}, "unknown", ""))
	})
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
