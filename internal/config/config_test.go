package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pubquiz-service/internal/scoring"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
redis:
  addr: localhost:6379
  ttl: 5m
quiz:
  dir: ./quizzes
  permissive: true
snapshot:
  driver: sqlite
  sqlite_path: /tmp/pubquiz.db
scoring:
  streak_bonus: 0
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, TTLDuration(cfg.Redis.TTL, time.Minute))
	assert.True(t, cfg.Quiz.Permissive)
	assert.Equal(t, SnapshotSQLite, cfg.SnapshotDriver())

	policy := cfg.ScoringPolicy()
	assert.Equal(t, 0, policy.StreakBonus)
	assert.Equal(t, scoring.DefaultPolicy().StreakThreshold, policy.StreakThreshold)

	logger := cfg.NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, SnapshotMemory, cfg.SnapshotDriver())
	assert.Equal(t, scoring.DefaultPolicy(), cfg.ScoringPolicy())
	assert.Equal(t, logrus.InfoLevel, cfg.NewLogger().GetLevel())
}

func TestLoadRejectsBadConfig(t *testing.T) {
	for name, body := range map[string]string{
		"unknown driver":      "snapshot:\n  driver: etcd\n",
		"redis without addr":  "snapshot:\n  driver: redis\n",
		"sqlite without path": "snapshot:\n  driver: sqlite\n",
		"bad level":           "log:\n  level: loud\n",
		"bad format":          "log:\n  format: xml\n",
		"bad yaml":            "server: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestSnapshotDriverImplied(t *testing.T) {
	var cfg Config
	cfg.Postgres.URL = "postgres://localhost/quiz"
	assert.Equal(t, SnapshotPostgres, cfg.SnapshotDriver())
	cfg.Redis.Addr = "localhost:6379"
	assert.Equal(t, SnapshotRedis, cfg.SnapshotDriver())
}

func TestTTLDuration(t *testing.T) {
	assert.Equal(t, time.Minute, TTLDuration("", time.Minute))
	assert.Equal(t, time.Minute, TTLDuration("soon", time.Minute))
	assert.Equal(t, 90*time.Second, TTLDuration("90s", time.Minute))
}
