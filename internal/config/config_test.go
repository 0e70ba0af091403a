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

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, ProviderOffline, cfg.LLM.Provider)
	assert.Equal(t, 30, cfg.Study.QuotaPerCell)
	assert.Equal(t, 20*time.Second, cfg.LLM.TimeoutFor("info-cue"))
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "csrlab.yaml")
	yml := `
port: "9090"
storage:
  backend: sqlite
  sqlite_path: /tmp/x.db
llm:
  provider: openai
  model: gpt-4o-mini
  timeout: 15s
  timeouts:
    client-opening-line: 40s
study:
  quota_per_cell: 12
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("CSRLAB_QUOTA_PER_CELL", "5")
	t.Setenv("CSRLAB_LLM_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StorageSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 5, cfg.Study.QuotaPerCell, "env wins over file")
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 40*time.Second, cfg.LLM.TimeoutFor("client-opening-line"))
	assert.Equal(t, 15*time.Second, cfg.LLM.TimeoutFor("info-guide"))
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown storage", func(c *Config) { c.Storage.Backend = "mongo" }},
		{"firestore without project", func(c *Config) { c.Storage.Backend = StorageFirestore }},
		{"redis without addr", func(c *Config) { c.Sessions.Backend = SessionsRedis; c.Redis.Addr = "" }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "llama" }},
		{"azure without endpoint", func(c *Config) { c.LLM.Provider = ProviderAzure }},
		{"zero quota", func(c *Config) { c.Study.QuotaPerCell = 0 }},
		{"zero timeout", func(c *Config) { c.LLM.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("CSRLAB_SESSION_TTL", "forever")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
