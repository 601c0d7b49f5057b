package config_test

import (
	"testing"

	"github.com/jrsteele09/go-token-server/internal/config"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "APP_NAME", "ENV", "LOG_LEVEL", "ALLOWED_ORIGINS",
		"ACCESS_TOKEN_LIFETIME_MINUTES", "REFRESH_TOKEN_LIFETIME_MINUTES", "REQUEST_SCOPE",
		"ROTATE_REFRESH_TOKENS", "SIGNING_KEY", "ISSUER", "STORE", "REDIS_ADDR", "REDIS_PASSWORD",
		"REDIS_DB", "REDIS_KEY_PREFIX", "BOLT_PATH", "DATABASE_URL", "SEED_FILE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.GetPort())
	require.Equal(t, "DEV", cfg.GetEnv())
	require.Equal(t, "info", cfg.GetLogLevel())
	require.Equal(t, 0, cfg.GetAccessTokenLifetimeMinutes())
	require.Equal(t, 0, cfg.GetRefreshTokenLifetimeMinutes())
	require.Empty(t, cfg.GetRequestScope())
	require.False(t, cfg.GetRotateRefreshTokens())
	require.Equal(t, config.StoreMemory, cfg.GetStoreBackend())
	require.Empty(t, cfg.GetAllowedOrigins())
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", ":9090")
	t.Setenv("ENV", "PROD")
	t.Setenv("ACCESS_TOKEN_LIFETIME_MINUTES", "15")
	t.Setenv("REFRESH_TOKEN_LIFETIME_MINUTES", "-1")
	t.Setenv("REQUEST_SCOPE", "api")
	t.Setenv("ROTATE_REFRESH_TOKENS", "true")
	t.Setenv("SIGNING_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("STORE", "redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.GetPort())
	require.Equal(t, "PROD", cfg.GetEnv())
	require.Equal(t, 15, cfg.GetAccessTokenLifetimeMinutes())
	require.Equal(t, -1, cfg.GetRefreshTokenLifetimeMinutes())
	require.Equal(t, "api", cfg.GetRequestScope())
	require.True(t, cfg.GetRotateRefreshTokens())
	require.Equal(t, "cache:6379", cfg.GetRedisAddr())
	require.Equal(t, 2, cfg.GetRedisDB())

	origins := cfg.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://b.example"))
	require.False(t, origins.IsAllowedOrigin("https://c.example"))
	require.Equal(t, "https://a.example, https://b.example", origins.String())
}

func TestLoadValidation(t *testing.T) {
	clearEnv(t)
	t.Run("unknown store", func(t *testing.T) {
		t.Setenv("STORE", "mongo")
		_, err := config.Load()
		require.ErrorContains(t, err, "unknown STORE")
	})

	t.Run("postgres requires url", func(t *testing.T) {
		t.Setenv("STORE", "postgres")
		_, err := config.Load()
		require.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("short signing key", func(t *testing.T) {
		t.Setenv("SIGNING_KEY", "short")
		_, err := config.Load()
		require.ErrorContains(t, err, "SIGNING_KEY")
	})

	t.Run("malformed lifetime", func(t *testing.T) {
		t.Setenv("ACCESS_TOKEN_LIFETIME_MINUTES", "soon")
		_, err := config.Load()
		require.Error(t, err)
	})
}

func TestAllowedOriginsWildcard(t *testing.T) {
	origins := config.Cors{Origins: []string{"*"}}.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://anything.example"))
}
