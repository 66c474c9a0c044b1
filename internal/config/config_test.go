package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kosench/go-url-tracker/internal/expiry"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, StoragePostgres, cfg.App.Storage)
	assert.Equal(t, 5, cfg.App.MaxRetries)
	assert.Equal(t, expiry.ModeShort, cfg.DurationMode())
	assert.Equal(t, time.Minute, cfg.App.ShortOffset)
	assert.Equal(t, 100*24*time.Hour, cfg.App.LongOffset)
	assert.Equal(t, 10*time.Second, cfg.Telegram.Timeout)
	assert.Equal(t, []string{"*"}, cfg.GetAllowedOrigins())
	assert.False(t, cfg.Telegram.Enabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("URLTRACKER_APP_DURATION_MODE", "long")
	t.Setenv("URLTRACKER_APP_STORAGE", "memory")
	t.Setenv("URLTRACKER_SERVER_PORT", "9090")
	t.Setenv("URLTRACKER_TELEGRAM_TIMEOUT", "3s")
	t.Setenv("URLTRACKER_WORKER_SCHEDULE", "*/5 * * * *")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, expiry.ModeLong, cfg.DurationMode())
	assert.Equal(t, StorageMemory, cfg.App.Storage)
	assert.Equal(t, "0.0.0.0:9090", cfg.GetServerAddress())
	assert.Equal(t, 3*time.Second, cfg.Telegram.Timeout)
	assert.Equal(t, "*/5 * * * *", cfg.Worker.Schedule)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  environment: production
  duration_mode: long
  long_offset: 24h
telegram:
  enabled: true
  bot_token: "123:abc"
  chat_id: "@alerts"
worker:
  timezone: Europe/Berlin
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 24*time.Hour, cfg.App.LongOffset)
	assert.True(t, cfg.Telegram.Enabled)
	assert.Equal(t, "@alerts", cfg.Telegram.ChatID)
	assert.Equal(t, "Europe/Berlin", cfg.Worker.Timezone)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown duration mode", env: map[string]string{"URLTRACKER_APP_DURATION_MODE": "forever"}},
		{name: "unknown storage", env: map[string]string{"URLTRACKER_APP_STORAGE": "mongo"}},
		{name: "telegram without token", env: map[string]string{"URLTRACKER_TELEGRAM_ENABLED": "true"}},
		{name: "bad timezone", env: map[string]string{"URLTRACKER_WORKER_TIMEZONE": "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "tracker",
		Password: "p@ss",
		DBName:   "urls",
		SSLMode:  "disable",
	}
	assert.Equal(t, "postgres://tracker:p%40ss@db:5432/urls?sslmode=disable", d.GetDSN())

	d.DSN = "postgres://override"
	assert.Equal(t, "postgres://override", d.GetDSN())
}
