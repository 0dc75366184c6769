package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	for _, k := range []string{"DATABASE_URL", "JWT_SECRET", "FRONTEND_URL", "ENV", "PORT"} {
		t.Setenv(k, "")
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
	return loadConfig(aconfig.Config{SkipFlags: true, SkipFiles: true})
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := load(t, map[string]string{"POS_DATABASE_URL": "postgres://localhost/pos"})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5000", cfg.Addr)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.False(t, cfg.Production())
	assert.Equal(t, devSecret, cfg.Auth.Secret)
	assert.Equal(t, 168*time.Hour, cfg.Auth.TTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "TZS", cfg.Currency)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Empty(t, cfg.AMQPURL)
	assert.False(t, cfg.CrossSiteCookie())
}

func TestLoadConfig_PlatformVariables(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"DATABASE_URL": "postgres://db/pos",
		"JWT_SECRET":   "s3cret",
		"FRONTEND_URL": "https://pos.enzi.coffee",
		"ENV":          "production",
		"PORT":         "8081",
		"POS_TIMEZONE": "Africa/Dar_es_Salaam",
	})
	require.NoError(t, err)

	assert.Equal(t, "postgres://db/pos", cfg.DatabaseURL)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, "0.0.0.0:8081", cfg.Addr)
	assert.True(t, cfg.Production())
	assert.True(t, cfg.CrossSiteCookie())
	assert.Equal(t, "Africa/Dar_es_Salaam", cfg.Location().String())
}

func TestLoadConfig_PrefixedWins(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"DATABASE_URL":     "postgres://platform/pos",
		"POS_DATABASE_URL": "postgres://explicit/pos",
		"ENV":              "production",
		"POS_ENV":          "development",
		"POS_AUTH_SECRET":  "explicit",
		"JWT_SECRET":       "platform",
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres://explicit/pos", cfg.DatabaseURL)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "explicit", cfg.Auth.Secret)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"NoDatabase", map[string]string{}, "database URL is required"},
		{
			"NoSecretInProduction",
			map[string]string{"POS_DATABASE_URL": "postgres://db", "POS_ENV": "production"},
			"session secret is required",
		},
		{
			"UnknownEnv",
			map[string]string{"POS_DATABASE_URL": "postgres://db", "POS_ENV": "staging"},
			"unknown environment",
		},
		{
			"BadTimezone",
			map[string]string{"POS_DATABASE_URL": "postgres://db", "POS_TIMEZONE": "Mars/Olympus"},
			"timezone",
		},
		{
			"LocalTimezone",
			map[string]string{"POS_DATABASE_URL": "postgres://db", "POS_TIMEZONE": "Local"},
			"use an IANA name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.env)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
