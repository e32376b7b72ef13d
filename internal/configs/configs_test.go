package configs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{"ENVIRONMENT", "PORT", "PUBLIC_DIR", "HISTORY_LIMIT", "ALLOWED_ORIGINS", "DATABASE_URL"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_DevelopmentDefaults(t *testing.T) {
	req := require.New(t)
	clearEnv(t)

	cfg, err := LoadConfig()
	req.NoError(err)

	req.Equal("development", cfg.Environment)
	req.Equal(3000, cfg.Port)
	req.Equal("./public", cfg.PublicDir)
	req.Equal(DefaultHistoryLimit, cfg.HistoryLimit)
	req.Empty(cfg.AllowedOrigins)
	req.NotEmpty(cfg.DatabaseDSN)
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	req := require.New(t)
	clearEnv(t)

	t.Setenv("PORT", "not-a-number")
	_, err := LoadConfig()
	req.Error(err)

	t.Setenv("PORT", "80")
	_, err = LoadConfig()
	req.Error(err)

	t.Setenv("PORT", "70000")
	_, err = LoadConfig()
	req.Error(err)
}

func TestLoadConfig_HistoryLimit(t *testing.T) {
	req := require.New(t)
	clearEnv(t)

	t.Setenv("HISTORY_LIMIT", "50")
	cfg, err := LoadConfig()
	req.NoError(err)
	req.Equal(50, cfg.HistoryLimit)

	t.Setenv("HISTORY_LIMIT", "0")
	_, err = LoadConfig()
	req.Error(err)

	t.Setenv("HISTORY_LIMIT", "abc")
	_, err = LoadConfig()
	req.Error(err)
}

func TestLoadConfig_AllowedOrigins(t *testing.T) {
	req := require.New(t)
	clearEnv(t)

	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com ,")
	cfg, err := LoadConfig()
	req.NoError(err)
	req.Equal([]string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func TestLoadConfig_ProductionRequiresDatabaseURL(t *testing.T) {
	req := require.New(t)
	clearEnv(t)

	t.Setenv("ENVIRONMENT", "production")
	_, err := LoadConfig()
	req.Error(err)

	t.Setenv("DATABASE_URL", "postgres://chat:secret@db:5432/friendchat")
	cfg, err := LoadConfig()
	req.NoError(err)
	req.Equal("postgres://chat:secret@db:5432/friendchat", cfg.DatabaseDSN)
}
