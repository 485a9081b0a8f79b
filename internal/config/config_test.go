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
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.Equal(t, "", cfg.Auth.JWTSecret)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, "plain", cfg.Auth.PasswordHashing)
	assert.Equal(t, "report", cfg.Calendar.StalePolicy)
	assert.Equal(t, "", cfg.Snapshot.Path)
	assert.Equal(t, time.Minute, cfg.SnapshotInterval())
	assert.Equal(t, "feather-exports", cfg.Storage.KeyPrefix)
	assert.Equal(t, "us-east-1", cfg.Storage.Region)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "*", cfg.CORS.AllowOrigin)

	assert.Error(t, cfg.Validate(), "missing secret must fail validation")
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FEATHER_AUTH_JWTSECRET", "s3cret")
	t.Setenv("FEATHER_AUTH_TOKENTTLMINUTES", "0")
	t.Setenv("FEATHER_CALENDAR_STALEPOLICY", "prune")
	t.Setenv("FEATHER_SERVER_ADDR", "127.0.0.1:9999")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, time.Duration(0), cfg.TokenTTL())
	assert.Equal(t, "prune", cfg.Calendar.StalePolicy)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("FEATHER_STORAGE_REGION", "eu-west-1")

	content := "# comment\nFEATHER_AUTH_JWTSECRET=\"from-dotenv\"\nFEATHER_STORAGE_REGION=ignored\nbroken line\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("FEATHER_AUTH_JWTSECRET") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Auth.JWTSecret)
	assert.Equal(t, "eu-west-1", cfg.Storage.Region, "environment wins over .env")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var cfg Config
		cfg.Auth.JWTSecret = "s"
		cfg.Auth.PasswordHashing = "plain"
		cfg.Calendar.StalePolicy = "report"
		cfg.Log.Format = "text"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "blank secret", mutate: func(c *Config) { c.Auth.JWTSecret = "  " }},
		{name: "negative ttl", mutate: func(c *Config) { c.Auth.TokenTTLMinutes = -1 }},
		{name: "hashing", mutate: func(c *Config) { c.Auth.PasswordHashing = "md5" }},
		{name: "stale policy", mutate: func(c *Config) { c.Calendar.StalePolicy = "ignore" }},
		{name: "snapshot interval", mutate: func(c *Config) { c.Snapshot.Path = "x.db" }},
		{name: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }},
	}

	require.NoError(t, valid().Validate())
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid()
			test.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
