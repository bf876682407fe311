package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERVER_HOST", "PORT", "OPENAI_API_KEY", "OPENAI_BASE_URL", "LLM_MODEL",
		"AIRTABLE_API_KEY", "AIRTABLE_BASE_ID", "AIRTABLE_TABLE_NAME", "STORE_BACKEND",
		"DATABASE_URL", "LOG_LEVEL", "LOG_FORMAT", "FETCH_TIMEOUT", "MAX_DETACHED_RUNS",
		"PDF_ENABLED", "MAX_UPLOAD_MB", "TEMP_DIR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AIRTABLE_API_KEY", "pat-test")
	t.Setenv("AIRTABLE_BASE_ID", "appTEST")
	t.Setenv("PORT", "8080")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("PDF_ENABLED", "false")
	t.Setenv("MAX_DETACHED_RUNS", "3")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "Invoices", cfg.Store.Airtable.TableName)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.False(t, cfg.PDF.Enabled)
	assert.EqualValues(t, 3, cfg.Pipeline.MaxDetachedRuns)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.True(t, cfg.StoreConfigured())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  api_key: sk-from-file
  model: gpt-4o-mini
store:
  backend: postgres
  postgres:
    dsn: postgres://file
`), 0o644))
	t.Setenv("DATABASE_URL", "postgres://env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, "postgres://env", cfg.Store.Postgres.DSN)
	assert.Equal(t, 1000, cfg.LLM.MaxTokens, "defaults survive partial YAML")
}

func TestLoad_MissingCredentials(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY is required")
	assert.Contains(t, err.Error(), "AIRTABLE_API_KEY is required")
	assert.Contains(t, err.Error(), "AIRTABLE_BASE_ID is required")
}

func TestLoad_BadEnvValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk")
	t.Setenv("AIRTABLE_API_KEY", "pat")
	t.Setenv("AIRTABLE_BASE_ID", "app")
	t.Setenv("FETCH_TIMEOUT", "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FETCH_TIMEOUT")
}

func TestValidate_Backend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "sk"
	cfg.Store.Backend = "sheets"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid store backend")
	assert.False(t, cfg.StoreConfigured())
}
