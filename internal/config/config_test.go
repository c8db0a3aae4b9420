package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
server:
  port: "9090"
  allowed_origins:
    - "https://admin.example.com"
database:
  host: "db"
  user: "policies"
  dbname: "policies"
redis:
  addrs:
    - "redis-1:6379"
cache:
  effective_policy_ttl: "90s"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("DATABASE_HOST", "")
	t.Setenv("SERVER_PORT", "")
	path := writeConfig(t, testConfigYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 15, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"https://admin.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "migrations", cfg.Database.MigrationsDir)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "single", cfg.Redis.Mode)
	assert.Equal(t, 90*time.Second, cfg.Cache.EffectivePolicyTTL)
	assert.Equal(t, 30, cfg.RateLimit.ConsentMaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.ConsentWindow)
	assert.Equal(t, "policy-api", cfg.Auth.AdminJWTIssuer)
	assert.Equal(t, "json", cfg.Logger.Encoding)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("DATABASE_HOST", "prod-db")
	t.Setenv("DATABASE_PASSWORD", "s3cret")
	t.Setenv("ADMIN_JWT_SECRET", "jwt-secret")
	t.Setenv("POLICY_CACHE_TTL", "2m")
	t.Setenv("LOG_LEVEL", "warn")
	path := writeConfig(t, testConfigYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod-db", cfg.Database.Host)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "jwt-secret", cfg.Auth.AdminJWTSecret)
	assert.Equal(t, 2*time.Minute, cfg.Cache.EffectivePolicyTTL)
	assert.Equal(t, "warn", cfg.Logger.Level)
}

func TestLoad_ReleaseModeRequiresSecrets(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("DATABASE_PASSWORD", "")
	t.Setenv("ADMIN_JWT_SECRET", "")
	path := writeConfig(t, testConfigYAML)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database password")

	t.Setenv("DATABASE_PASSWORD", "s3cret")
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin JWT secret")
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("DATABASE_HOST", "env-db")
	t.Setenv("DATABASE_USER", "env-user")
	t.Setenv("DATABASE_DBNAME", "env-name")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://app.example.com,https://admin.example.com")
	t.Setenv("SERVER_TRUSTED_PROXIES", "10.0.0.1")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-db", cfg.Database.Host)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []string{"10.0.0.1"}, cfg.Server.TrustedProxies)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_EnvOnlyWithoutOriginsIsAnError(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("DATABASE_HOST", "env-db")
	t.Setenv("DATABASE_USER", "env-user")
	t.Setenv("DATABASE_DBNAME", "env-name")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "allowed_origins")
}

func TestLoad_IncompleteDatabase(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("DATABASE_HOST", "")
	path := writeConfig(t, "database:\n  user: \"u\"\n  dbname: \"d\"\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsNonPositiveRateLimit(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")
	path := writeConfig(t, testConfigYAML+"ratelimit:\n  consent_max_requests: 0\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "consent_max_requests")
}

func TestPostgresConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: "5432", User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=n sslmode=disable", d.PostgresConnectionString())
}
