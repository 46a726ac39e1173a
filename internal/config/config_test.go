package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "./data/cinequery.db", cfg.Database.Path)
	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, "movie_summaries", cfg.Qdrant.Collection)
	assert.Equal(t, 5, cfg.Qdrant.TopK)
	assert.Equal(t, "http://localhost:11434/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 15000, cfg.Router.AdapterTimeoutMS)
	assert.Equal(t, 0.5, cfg.Router.ConfidenceThreshold)
	assert.True(t, cfg.Merge.DedupTitles)
	assert.Equal(t, 5, cfg.History.Window)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  host: 127.0.0.1
  port: 9090
router:
  adapter_timeout_ms: 2000
  confidence_threshold: 0.7
merge:
  dedup_titles: false
history:
  window: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2000, cfg.Router.AdapterTimeoutMS)
	assert.Equal(t, 0.7, cfg.Router.ConfidenceThreshold)
	assert.False(t, cfg.Merge.DedupTitles)
	assert.Equal(t, 3, cfg.History.Window)

	// Untouched sections keep their defaults.
	assert.Equal(t, "movie_summaries", cfg.Qdrant.Collection)
}

func TestAddress(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Host: "0.0.0.0", Port: 8080}}
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestAdapterTimeout(t *testing.T) {
	cfg := &Config{Router: RouterConfig{AdapterTimeoutMS: 2500}}
	assert.Equal(t, 2500*time.Millisecond, cfg.AdapterTimeout())
}
