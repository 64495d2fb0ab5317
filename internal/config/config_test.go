package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("AI_API_KEY", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/examprep")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 20, cfg.Quiz.MaxCount)
	assert.Equal(t, 500, cfg.Quiz.AskedLimit)
	assert.Equal(t, 30*time.Minute, cfg.News.TTL)
	assert.Equal(t, "secret", cfg.AI.APIKey)
	assert.False(t, cfg.Telegram.Enabled())

	dsn, err := cfg.DB.DSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/examprep", dsn)
}

func TestLoadMissingSecrets(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "no ai key",
			env:  map[string]string{"DATABASE_URL": "postgres://localhost/examprep"},
		},
		{
			name: "postgres without url",
			env:  map[string]string{"AI_API_KEY": "secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv("AI_API_KEY", "")
			t.Setenv("DATABASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.ErrorIs(t, err, ErrMissingEnvironmentVariables)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("AI_API_KEY", "secret")
	t.Setenv("TELEGRAM_API_TOKEN", "token")

	yaml := `
env: production
storage:
  driver: sqlite
  sqlite_path: /tmp/examprep.db
quiz:
  max_count: 10
  asked_limit: 50
`
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/tmp/examprep.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 10, cfg.Quiz.MaxCount)
	assert.Equal(t, 50, cfg.Quiz.AskedLimit)
	assert.True(t, cfg.Telegram.Enabled())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	chdirTemp(t)
	t.Setenv("AI_API_KEY", "secret")
	t.Setenv("STORAGE_DRIVER", "mongo")

	_, err := Load()
	assert.Error(t, err)
}
