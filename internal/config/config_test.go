package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_TYPE", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("DEBUG", "")

	cfg := Load()

	if cfg.DatabaseType != "sqlite" {
		t.Errorf("DatabaseType = %q, want sqlite", cfg.DatabaseType)
	}
	if cfg.AccessTokenTTL != 24*time.Hour {
		t.Errorf("AccessTokenTTL = %v, want 24h", cfg.AccessTokenTTL)
	}
	if cfg.AccountPurgeAfter != 30*24*time.Hour {
		t.Errorf("AccountPurgeAfter = %v, want 720h", cfg.AccountPurgeAfter)
	}
	if cfg.Debug {
		t.Error("Debug should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(*Config) bool
	}{
		{
			name:  "database type",
			key:   "DB_TYPE",
			value: "postgres",
			check: func(c *Config) bool { return c.DatabaseType == "postgres" },
		},
		{
			name:  "access token ttl",
			key:   "ACCESS_TOKEN_TTL",
			value: "90m",
			check: func(c *Config) bool { return c.AccessTokenTTL == 90*time.Minute },
		},
		{
			name:  "invalid duration falls back",
			key:   "REFRESH_TOKEN_TTL",
			value: "soon",
			check: func(c *Config) bool { return c.RefreshTokenTTL == 30*24*time.Hour },
		},
		{
			name:  "debug flag",
			key:   "DEBUG",
			value: "true",
			check: func(c *Config) bool { return c.Debug },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if !tt.check(Load()) {
				t.Errorf("override %s=%s not applied", tt.key, tt.value)
			}
		})
	}
}
