package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizboard-service/internal/app"
	"quizboard-service/internal/domain"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	gc := cfg.GameConfig()
	assert.Equal(t, app.DefaultGameConfig(), gc)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9000"
board:
  size: 40
  wrap: false
game:
  gracePeriod: 30s
  placeholderName: Student
  rateLimits:
    join: 2
quizmaster:
  name: Owl
  enabled: true
email:
  recipient: teacher@example.com
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("PORT", "7000")
	t.Setenv("DATABASE_URL", "postgres://quiz@localhost/quiz")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "postgres://quiz@localhost/quiz", cfg.Postgres.URL)

	gc := cfg.GameConfig()
	assert.Equal(t, 40, gc.BoardSize)
	assert.False(t, gc.Wrap)
	assert.Equal(t, 30*time.Second, gc.GracePeriod)
	assert.Equal(t, "Student", gc.PlaceholderName)
	assert.Equal(t, 2, gc.RateLimits[domain.InJoin])
	assert.Equal(t, 10, gc.RateLimits[domain.InMove])
	assert.Equal(t, "Owl", gc.QuizmasterName)
	assert.True(t, gc.QuizmasterEnabled)
	assert.Equal(t, "teacher@example.com", gc.NotifyRecipient)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("board: [1, 2"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestGracePeriodSecondsFromEnv(t *testing.T) {
	t.Setenv("GRACE_PERIOD", "20")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, cfg.GameConfig().GracePeriod)
}

func TestTTLDuration(t *testing.T) {
	assert.Equal(t, time.Minute, TTLDuration("", time.Minute))
	assert.Equal(t, 5*time.Second, TTLDuration("5s", time.Minute))
	assert.Equal(t, time.Minute, TTLDuration("soon", time.Minute))
}

func TestRedisURLFromEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://:secret@cache.internal:6380/3")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, "secret", cfg.Redis.Password)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestRedisAddrFromEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "localhost:6379")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestRedisURLRejectsBadScheme(t *testing.T) {
	t.Setenv("REDIS_URL", "http://localhost:6379")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestZeroGracePeriodIsKept(t *testing.T) {
	t.Setenv("GRACE_PERIOD", "0")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.GameConfig().GracePeriod)
}
