package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultReflexionConfig().MaxRetries, cfg.Reflexion.MaxRetries)
	assert.Equal(t, DefaultRetentionConfig().SessionRetentionDays, cfg.Retention.SessionRetentionDays)
	assert.Equal(t, "", cfg.LLM.Provider)
}

func TestLoad_FileValuesOverrideDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
reflexion:
  max_retries: 5
retention:
  session_retention_days: 90
llm:
  provider: anthropic
  model: claude-3-opus
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Reflexion.MaxRetries)
	assert.Equal(t, 90, cfg.Retention.SessionRetentionDays)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-3-opus", cfg.LLM.Model)
	// untouched fields keep their defaults
	assert.Equal(t, DefaultDatabaseConfig().Port, cfg.Database.Port)
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  password: ${TEST_DB_PASSWORD}
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Password)
}

func TestLoad_InvalidYAMLReturnsLoadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: valid: yaml: [}"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, loadErr, ErrInvalidYAML)
}

func TestDefaultReflexionConfig_MatchesReflexionPackageDefault(t *testing.T) {
	// pkg/reflexion.DefaultMaxRetries is 2; keep this config default in sync.
	assert.Equal(t, 2, DefaultReflexionConfig().MaxRetries)
}

func TestDefaultRetentionConfig_CleanupIntervalIsPositive(t *testing.T) {
	assert.Greater(t, DefaultRetentionConfig().CleanupInterval, time.Duration(0))
}
