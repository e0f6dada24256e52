package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("SOURCE_BASE_URL", "https://attendance.example.com/api")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, SourceHTTP, cfg.Source.Type)
	assert.Equal(t, 30*time.Second, cfg.Source.Timeout)
	assert.Equal(t, StorageLocal, cfg.Storage.Type)
	assert.Equal(t, 300*time.Millisecond, cfg.Report.SearchDebounce)
	assert.Equal(t, 30*time.Minute, cfg.Report.SessionIdleTTL)
	assert.Equal(t, 24*time.Hour, cfg.Report.ExportRetention)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
	assert.Empty(t, cfg.Report.AllowedRoles)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SOURCE_TYPE", "POSTGRES")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("TIMEZONE", "Asia/Dhaka")
	t.Setenv("SEARCH_DEBOUNCE", "150ms")
	t.Setenv("SESSION_IDLE_TTL", "10m")
	t.Setenv("REPORT_ALLOWED_ROLES", "admin, supervisor ,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, SourcePostgres, cfg.Source.Type)
	assert.Equal(t, "postgres://postgres:pw@localhost:6543/campaign?sslmode=disable", cfg.DatabaseURL())
	assert.Equal(t, "Asia/Dhaka", cfg.Location().String())
	assert.Equal(t, 150*time.Millisecond, cfg.Report.SearchDebounce)
	assert.Equal(t, 10*time.Minute, cfg.Report.SessionIdleTTL)
	assert.Equal(t, []string{"admin", "supervisor"}, cfg.Report.AllowedRoles)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"JWT_SECRET_KEY": ""}, "JWT_SECRET_KEY"},
		{"missing base url", map[string]string{"SOURCE_BASE_URL": ""}, "SOURCE_BASE_URL"},
		{"unknown source", map[string]string{"SOURCE_TYPE": "ftp"}, "SOURCE_TYPE"},
		{"postgres without password", map[string]string{"SOURCE_TYPE": "postgres", "DB_PASSWORD": ""}, "DB_PASSWORD"},
		{"bad port", map[string]string{"APP_PORT": "eighty"}, "APP_PORT"},
		{"bad duration", map[string]string{"SOURCE_TIMEOUT": "soon"}, "SOURCE_TIMEOUT"},
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}, "TIMEZONE"},
		{"unknown storage", map[string]string{"STORAGE_TYPE": "minio"}, "STORAGE_TYPE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
