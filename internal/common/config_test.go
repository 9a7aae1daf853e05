package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "APP_TIMEZONE", "SESSION_TTL", "TRANSLATION_CACHE_TTL", "PROVIDER_RPS", "REMINDERS_ENABLED", "MAX_REFLECTIONS_PER_DAY"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Local, cfg.Location)
	assert.Equal(t, DefaultSessionTTL, cfg.SessionTTL)
	assert.Equal(t, 24*time.Hour, cfg.TranslationTTL)
	assert.Equal(t, 5.0, cfg.ProviderRPS)
	assert.True(t, cfg.RemindersEnabled)
	assert.Equal(t, DefaultReflectionsCap, cfg.MaxReflectionsPerDay)
	assert.Equal(t, DefaultHunyuanModel, cfg.HunyuanModel)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_TIMEZONE", "America/Chicago")
	t.Setenv("TRANSLATION_CACHE_TTL", "1h")
	t.Setenv("REMINDERS_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "America/Chicago", cfg.Location.String())
	assert.Equal(t, time.Hour, cfg.TranslationTTL)
	assert.False(t, cfg.RemindersEnabled)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"APP_TIMEZONE":            "Mars/Olympus",
		"SESSION_TTL":             "forever",
		"PROVIDER_RPS":            "fast",
		"REMINDERS_ENABLED":       "maybe",
		"MAX_REFLECTIONS_PER_DAY": "ten",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.Validate())
	cfg.JWTSecret = "short"
	assert.Error(t, cfg.Validate())
	cfg.JWTSecret = "a-long-enough-test-secret"
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("BEREAN_TEST_VALUE=from-file\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("BEREAN_TEST_VALUE", "")
	os.Unsetenv("BEREAN_TEST_VALUE")

	require.NoError(t, LoadEnvFile())
	assert.Equal(t, "from-file", os.Getenv("BEREAN_TEST_VALUE"))

	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	assert.NoError(t, LoadEnvFile())
}
