package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/clubhub")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.HTTPAddress())
	assert.Equal(t, "clubhub", cfg.JWTIssuer)
	assert.Equal(t, 60*time.Minute, cfg.JWTTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", " postgres://db/clubhub ")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_TTL_MINUTES", "15")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ADMIN_EMAILS", "Root@Example.com, ")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://db/clubhub", cfg.DatabaseURL)
	assert.Equal(t, ":9090", cfg.HTTPAddress())
	assert.Equal(t, 15*time.Minute, cfg.JWTTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.IsAdminEmail("root@example.com"))
	assert.False(t, cfg.IsAdminEmail("someone@example.com"))
}

func TestLoad_NonPositiveTTLFallsBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/clubhub")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_TTL_MINUTES", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Minute, cfg.JWTTTL)
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/clubhub")
	t.Setenv("JWT_SECRET", "  ")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestLoadClient(t *testing.T) {
	t.Setenv("CLUBHUB_URL", "https://clubhub.example/ ")
	t.Setenv("CLUBHUB_SESSION_FILE", "/tmp/session.json")
	t.Setenv("CLUBHUB_TIMEOUT", "3s")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.True(t, cfg.Configured())
	assert.Equal(t, "https://clubhub.example", cfg.BaseURL)
	assert.Equal(t, "/tmp/session.json", cfg.SessionFile)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
}

func TestLoadClient_Unconfigured(t *testing.T) {
	t.Setenv("CLUBHUB_URL", "")
	t.Setenv("CLUBHUB_SESSION_FILE", "")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.False(t, cfg.Configured())
	assert.NotEmpty(t, cfg.SessionFile)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}
