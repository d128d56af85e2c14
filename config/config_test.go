package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "memory", cfg.VectorDB.Type)
	assert.Equal(t, "cosine", cfg.VectorDB.Distance)
	assert.Equal(t, "local", cfg.Embed.Provider)
	assert.Equal(t, 800, cfg.Document.ChunkSize)
	assert.Equal(t, 150, cfg.Document.ChunkOverlap)
	assert.Equal(t, 3, cfg.Search.TopK)
	assert.Equal(t, 200, cfg.Search.SnippetLength)

	// 默认不配置生成式提供商
	assert.Empty(t, cfg.LLM.Provider)
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  port: 9090
  mode: release
llm:
  provider: tongyi
  model: qwen-turbo
  api_key: ${TEST_LLM_KEY}
  endpoint: https://llm-proxy.internal.example.com/api/v1
vectordb:
  type: faiss
  path: ./data/index.faiss
  distance: l2
search:
  top_k: 5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("TEST_LLM_KEY", "secret-from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "tongyi", cfg.LLM.Provider)
	assert.Equal(t, "secret-from-env", cfg.LLM.APIKey)
	assert.Equal(t, "https://llm-proxy.internal.example.com/api/v1", cfg.LLM.Endpoint)
	assert.Equal(t, "faiss", cfg.VectorDB.Type)
	assert.Equal(t, "l2", cfg.VectorDB.Distance)
	assert.Equal(t, 5, cfg.Search.TopK)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	cfg.Cache.Type = "memcached"
	assert.Error(t, Validate(cfg))

	cfg.Cache.Type = "memory"
	cfg.Document.ChunkOverlap = cfg.Document.ChunkSize
	assert.Error(t, Validate(cfg))

	cfg.Document.ChunkOverlap = 150
	cfg.VectorDB.Distance = "manhattan"
	assert.Error(t, Validate(cfg))

	cfg.VectorDB.Distance = "cosine"
	cfg.LLM.Endpoint = "not-a-url"
	assert.Error(t, Validate(cfg))
}
