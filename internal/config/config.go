package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"quizboard-service/internal/app"
)

type Config struct {
	Server struct {
		Port            string `yaml:"port"`
		ShutdownTimeout string `yaml:"shutdownTimeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Board struct {
		Size int   `yaml:"size"`
		Wrap *bool `yaml:"wrap"`
	} `yaml:"board"`
	Game struct {
		GracePeriod      string         `yaml:"gracePeriod"`
		PlaceholderName  string         `yaml:"placeholderName"`
		MaxQuizLength    int            `yaml:"maxQuizLength"`
		QueueSize        int            `yaml:"queueSize"`
		DefaultRateLimit int            `yaml:"defaultRateLimit"`
		RateLimits       map[string]int `yaml:"rateLimits"`
	} `yaml:"game"`
	Quizmaster struct {
		Name    string `yaml:"name"`
		Enabled bool   `yaml:"enabled"`
	} `yaml:"quizmaster"`
	Replay struct {
		CacheTTL  string `yaml:"cacheTTL"`
		QueueSize int    `yaml:"queueSize"`
	} `yaml:"replay"`
	Email struct {
		Host      string `yaml:"host"`
		Port      string `yaml:"port"`
		User      string `yaml:"user"`
		Password  string `yaml:"password"`
		From      string `yaml:"from"`
		Recipient string `yaml:"recipient"`
		BaseURL   string `yaml:"baseURL"`
	} `yaml:"email"`
}

// Load reads YAML config from path. A missing file is not an error; the
// returned config then carries only environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		if err := applyRedisURL(cfg, v); err != nil {
			return err
		}
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Email.Host = v
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.Email.User = v
	}
	if v := os.Getenv("SMTP_PASS"); v != "" {
		cfg.Email.Password = v
	}
	if v := os.Getenv("NOTIFY_EMAIL"); v != "" {
		cfg.Email.Recipient = v
	}
	if v := os.Getenv("GRACE_PERIOD"); v != "" {
		if _, err := time.ParseDuration(v); err == nil {
			cfg.Game.GracePeriod = v
		} else if secs, err := strconv.Atoi(v); err == nil {
			cfg.Game.GracePeriod = (time.Duration(secs) * time.Second).String()
		}
	}
	return nil
}

// applyRedisURL accepts either a redis:// URL or a bare host:port.
func applyRedisURL(cfg *Config, raw string) error {
	if !strings.Contains(raw, "://") {
		cfg.Redis.Addr = raw
		return nil
	}
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return fmt.Errorf("parse REDIS_URL: %w", err)
	}
	cfg.Redis.Addr = opts.Addr
	cfg.Redis.Password = opts.Password
	cfg.Redis.DB = opts.DB
	return nil
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

// GameConfig converts the board, game and quizmaster sections, filling
// anything unset from app.DefaultGameConfig.
func (c Config) GameConfig() app.GameConfig {
	gc := app.DefaultGameConfig()
	if c.Board.Size > 0 {
		gc.BoardSize = c.Board.Size
	}
	if c.Board.Wrap != nil {
		gc.Wrap = *c.Board.Wrap
	}
	gc.GracePeriod = TTLDuration(c.Game.GracePeriod, gc.GracePeriod)
	if c.Game.PlaceholderName != "" {
		gc.PlaceholderName = c.Game.PlaceholderName
	}
	if c.Game.MaxQuizLength > 0 {
		gc.MaxQuizLength = c.Game.MaxQuizLength
	}
	if c.Game.QueueSize > 0 {
		gc.QueueSize = c.Game.QueueSize
	}
	if c.Game.DefaultRateLimit > 0 {
		gc.DefaultRateLimit = c.Game.DefaultRateLimit
	}
	for kind, limit := range c.Game.RateLimits {
		gc.RateLimits[kind] = limit
	}
	if c.Quizmaster.Name != "" {
		gc.QuizmasterName = c.Quizmaster.Name
	}
	gc.QuizmasterEnabled = c.Quizmaster.Enabled
	gc.NotifyRecipient = c.Email.Recipient
	return gc
}
