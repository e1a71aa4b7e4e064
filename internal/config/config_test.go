package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "logger:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "UTC", cfg.Ranking.Timezone)
	assert.Equal(t, 10*time.Millisecond, cfg.Participation.Retry.InitialInterval)
	assert.Equal(t, time.Second, cfg.Participation.Retry.MaxInterval)
	assert.Zero(t, cfg.Participation.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Ranking.CacheTTL)
}

func TestLoadParsesDurations(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
storage:
  driver: postgres
  database: "host=localhost user=judge dbname=judge"
ranking:
  timezone: Asia/Shanghai
  cache_ttl: 15s
participation:
  retry:
    initial_interval: 5ms
    max_interval: 250ms
    max_attempts: 40
`))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 15*time.Second, cfg.Ranking.CacheTTL)
	assert.Equal(t, 5*time.Millisecond, cfg.Participation.Retry.InitialInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.Participation.Retry.MaxInterval)
	assert.Equal(t, uint64(40), cfg.Participation.Retry.MaxAttempts)
	assert.Equal(t, "Asia/Shanghai", cfg.Location().String())
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	_, err := Load(writeConfig(t, "storage:\n  driver: mysql\n"))
	assert.ErrorContains(t, err, "unsupported storage driver")

	_, err = Load(writeConfig(t, "ranking:\n  timezone: Mars/Olympus\n"))
	assert.ErrorContains(t, err, "invalid ranking timezone")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
