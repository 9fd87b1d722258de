package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"pubquiz-service/internal/scoring"
)

// Snapshot drivers.
const (
	SnapshotMemory   = "memory"
	SnapshotRedis    = "redis"
	SnapshotPostgres = "postgres"
	SnapshotSQLite   = "sqlite"
	SnapshotNone     = "none"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL        string `yaml:"ttl"`
		Dir        string `yaml:"dir"`
		Permissive bool   `yaml:"permissive"`
	} `yaml:"quiz"`
	Snapshot struct {
		// Driver is one of memory, redis, postgres, sqlite or none. Empty
		// picks redis, then postgres, then memory, by what is configured.
		Driver     string `yaml:"driver"`
		SQLitePath string `yaml:"sqlite_path"`
		TTL        string `yaml:"ttl"`
	} `yaml:"snapshot"`
	Scoring struct {
		ProgressiveStep *float64 `yaml:"progressive_step"`
		StreakThreshold *int     `yaml:"streak_threshold"`
		StreakBonus     *int     `yaml:"streak_bonus"`
	} `yaml:"scoring"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads YAML config from path. A missing file yields the zero config,
// so the service can run on defaults and environment alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Snapshot.Driver {
	case "", SnapshotMemory, SnapshotNone:
	case SnapshotRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("snapshot driver redis needs redis.addr")
		}
	case SnapshotPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("snapshot driver postgres needs postgres.url")
		}
	case SnapshotSQLite:
		if c.Snapshot.SQLitePath == "" {
			return fmt.Errorf("snapshot driver sqlite needs snapshot.sqlite_path")
		}
	default:
		return fmt.Errorf("unknown snapshot driver %q", c.Snapshot.Driver)
	}
	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return err
		}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// SnapshotDriver resolves the configured or implied snapshot driver.
func (c Config) SnapshotDriver() string {
	switch {
	case c.Snapshot.Driver != "":
		return c.Snapshot.Driver
	case c.Redis.Addr != "":
		return SnapshotRedis
	case c.Postgres.URL != "":
		return SnapshotPostgres
	}
	return SnapshotMemory
}

// ScoringPolicy overlays configured constants on the default policy.
func (c Config) ScoringPolicy() scoring.Policy {
	p := scoring.DefaultPolicy()
	if c.Scoring.ProgressiveStep != nil {
		p.ProgressiveStep = *c.Scoring.ProgressiveStep
	}
	if c.Scoring.StreakThreshold != nil {
		p.StreakThreshold = *c.Scoring.StreakThreshold
	}
	if c.Scoring.StreakBonus != nil {
		p.StreakBonus = *c.Scoring.StreakBonus
	}
	return p
}

// NewLogger builds the process logger from the log section.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if lvl, err := logrus.ParseLevel(c.Log.Level); err == nil {
		logger.SetLevel(lvl)
	}
	if c.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
