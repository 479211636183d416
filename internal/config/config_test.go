package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorerag/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Chunker.ChunkSize)
	assert.Equal(t, 50, cfg.Chunker.Overlap)
	assert.Equal(t, 3, cfg.Retriever.TopK)
	assert.Equal(t, "hashing", cfg.Embedder.Type)
	assert.Equal(t, "vectorstore", cfg.Snapshot.Dir)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, "GEMINI_API_KEY", cfg.LLM.APIKeyEnv)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "lorerag.yaml", `
chunker:
  chunk_size: 120
retriever:
  top_k: 5
embedder:
  type: openai
  openai:
    base_url: http://localhost:11434/v1
    model: all-minilm
    dimension: 384
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Chunker.ChunkSize)
	assert.Equal(t, 50, cfg.Chunker.Overlap, "unset keys keep defaults")
	assert.Equal(t, 5, cfg.Retriever.TopK)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "all-minilm", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 384, cfg.Embedder.OpenAI.Dimension)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, 32, cfg.Embedder.OpenAI.BatchSize)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "lorerag.toml", `
[chunker]
chunk_size = 80
overlap = 10

[llm]
type = "extractive"

[server]
addr = "127.0.0.1:9000"
cors_origins = ["https://lore.example"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 80, cfg.Chunker.ChunkSize)
	assert.Equal(t, 10, cfg.Chunker.Overlap)
	assert.Equal(t, "extractive", cfg.LLM.Type)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://lore.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"overlap equals chunk size", "chunker:\n  chunk_size: 10\n  overlap: 10\n"},
		{"negative overlap", "chunker:\n  overlap: -1\n"},
		{"zero top_k", "retriever:\n  top_k: 0\n"},
		{"unknown embedder", "embedder:\n  type: word2vec\n"},
		{"unknown log format", "logging:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "lorerag.yaml", tt.content))
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LORERAG_TOP_K", "7")
	t.Setenv("LORERAG_SNAPSHOT_DIR", "/srv/lore")
	t.Setenv("LORERAG_EMBEDDER", "gemini")
	t.Setenv("LORERAG_CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Retriever.TopK)
	assert.Equal(t, "/srv/lore", cfg.Snapshot.Dir)
	assert.Equal(t, "gemini", cfg.Embedder.Type)
	require.NotNil(t, cfg.Embedder.Gemini)
	assert.Equal(t, "gemini-embedding-001", cfg.Embedder.Gemini.Model)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
}

func TestLoad_EnvBadInteger(t *testing.T) {
	t.Setenv("LORERAG_CHUNK_SIZE", "lots")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Retriever.TopK = 9
			cfg.LLM.Type = "extractive"
			path := filepath.Join(t.TempDir(), "nested", name)

			require.NoError(t, Save(path, cfg))
			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, 9, got.Retriever.TopK)
			assert.Equal(t, "extractive", got.LLM.Type)
			assert.Equal(t, cfg.Server, got.Server)
		})
	}
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "lorerag", "config.yaml"), path)
	assert.FileExists(t, path)
	assert.Equal(t, 500, cfg.Chunker.ChunkSize)
}

func TestLoadDefault_PrefersWorkingDirectory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lorerag.toml"), []byte("[retriever]\ntop_k = 4\n"), 0o644))

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "lorerag.toml", path)
	assert.Equal(t, 4, cfg.Retriever.TopK)
}
