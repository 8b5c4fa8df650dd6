package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "hash", cfg.Embedder.Type)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 100, cfg.Chunker.Overlap)
	assert.Equal(t, 500, cfg.MaxPages)
}

func TestLoad_ParsesFileAndFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedder:
  type: openai
  model: text-embedding-3-small
  normalize: true
store:
  type: qdrant
  qdrant:
    host: vectors.internal
chunker:
  chunk_size: 800
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedder.Type)
	assert.Equal(t, "qdrant", cfg.Store.Type)
	assert.Equal(t, "vectors.internal", cfg.Store.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Store.Qdrant.Port, "unset port falls back to default")
	assert.Equal(t, 800, cfg.Chunker.ChunkSize)
	assert.Equal(t, 500, cfg.MaxPages)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder: [not: valid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
