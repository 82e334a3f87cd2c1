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
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadFromFile_Defaults(t *testing.T) {
	p := writeConfig(t, "app:\n  environment: development\n")

	cfg, err := LoadFromFile(p)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.App.BaseURL)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.Equal(t, 30*time.Second, cfg.N8N.Timeout)
	assert.Equal(t, 168*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 6*time.Hour, cfg.Lifecycle.StaleAfter)
	assert.NotEmpty(t, cfg.Auth.JWTSecret, "development gets a fallback secret")
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	p := writeConfig(t, "app:\n  base_url: http://from-file:3000/\n")
	t.Setenv("N8N_CALLBACK_SECRET", "shh")
	t.Setenv("N8N_WEBHOOK_START_URL", "http://n8n:5678/webhook/start")
	t.Setenv("STORAGE_PROVIDER", "S3")
	t.Setenv("STORAGE_S3_BUCKET", "uploads")

	cfg, err := LoadFromFile(p)
	require.NoError(t, err)

	assert.Equal(t, "http://from-file:3000", cfg.App.BaseURL)
	assert.Equal(t, "shh", cfg.N8N.CallbackSecret)
	assert.Equal(t, "http://n8n:5678/webhook/start", cfg.N8N.WebhookURL)
	assert.Equal(t, "s3", cfg.Storage.Provider)
	assert.Equal(t, "uploads", cfg.Storage.S3.Bucket)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown storage", yaml: "storage:\n  provider: ftp\n"},
		{name: "s3 without bucket", yaml: "storage:\n  provider: s3\n"},
		{name: "unknown driver", yaml: "database:\n  driver: mysql\n"},
		{name: "production without secret", yaml: "app:\n  environment: production\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, errInvalidConfig)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		DBHost:         "db",
		DBPort:         "5432",
		DBUser:         "mm",
		DBName:         "matchmap",
		DBPassword:     "it's secret",
		DBSSLMode:      "disable",
		ConnectTimeout: 5 * time.Second,
	}
	assert.Equal(t,
		`host=db port=5432 user=mm dbname=matchmap password='it\'s secret' sslmode=disable connect_timeout=5`,
		cfg.DSN(),
	)

	cfg.DBPassword, cfg.ConnectTimeout = "", 0
	assert.Equal(t, "host=db port=5432 user=mm dbname=matchmap sslmode=disable", cfg.DSN())
}
