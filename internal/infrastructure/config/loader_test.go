package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useSearchPaths points the loader at dir for the duration of the test
func useSearchPaths(t *testing.T, dir string, dotEnv ...string) {
	t.Helper()
	prevConfig, prevDotEnv := ConfigPaths, DotEnvPaths
	ConfigPaths = []string{dir}
	DotEnvPaths = dotEnv
	t.Cleanup(func() {
		ConfigPaths, DotEnvPaths = prevConfig, prevDotEnv
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	useSearchPaths(t, t.TempDir())
	t.Setenv("MW_ENV", "TEST")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, Test, cfg.Environment)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Empty(t, cfg.Server.AllowedOrigins)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Store.RetryInterval)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.Payment.PinTTL)
	assert.Equal(t, 24*time.Hour, cfg.Payment.ReceiptTTL)
	assert.Equal(t, 5*time.Second, cfg.Payment.LockTimeout())
	assert.Equal(t, "50000", cfg.Wallet.StartingBalance)
	assert.Equal(t, EventsNone, cfg.Events.Driver)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	useSearchPaths(t, dir)
	t.Setenv("MW_ENV", Test)

	yaml := `
server:
  port: 9090
  readTimeout: 3
store:
  backend: rest
  baseURL: http://store.local
database:
  host: from-file
payment:
  lockTimeoutMs: 2000
events:
  driver: rabbitmq
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.yaml"), []byte(yaml), 0o600))

	t.Setenv("MW_DB_HOST", "db.internal")
	t.Setenv("MW_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("MW_REDIS_ENABLED", "true")
	t.Setenv("MW_PAYMENT_LOCK_TIMEOUT_MS", "750")
	t.Setenv("MW_SERVER_ALLOWED_ORIGINS", "http://a.local,http://b.local")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, BackendREST, cfg.Store.Backend)
	assert.Equal(t, "http://store.local", cfg.Store.BaseURL)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.Kafka.Brokers)
	assert.Equal(t, EventsRabbitMQ, cfg.Events.Driver)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 750*time.Millisecond, cfg.Payment.LockTimeout())
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	useSearchPaths(t, dir)
	t.Setenv("MW_ENV", Test)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.yaml"), []byte("server: [unclosed"), 0o600))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MW_AUTH_JWT_SECRET=from-dotenv-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("MW_AUTH_JWT_SECRET") })

	useSearchPaths(t, dir, filepath.Join(dir, "missing.env"), envFile)
	t.Setenv("MW_ENV", Test)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv-file", cfg.Auth.JWTSecret)

	DotEnvPaths = []string{filepath.Join(dir, "missing.env")}
	assert.Error(t, loadDotEnvFile())
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("MW_TEST_INT", "42")
	t.Setenv("MW_TEST_BAD_INT", "forty-two")
	t.Setenv("MW_TEST_BOOL", "false")

	assert.Equal(t, 42, getEnvInt("MW_TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("MW_TEST_BAD_INT", 1))
	assert.Equal(t, 1, getEnvInt("MW_TEST_UNSET_INT", 1))

	v, ok := getEnvBool("MW_TEST_BOOL")
	assert.True(t, ok)
	assert.False(t, v)
	_, ok = getEnvBool("MW_TEST_UNSET_BOOL")
	assert.False(t, ok)
}
