package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

const (
	defaultRetentionHours = 7 * 24
	defaultSweepCron      = "*/30 * * * *"
	defaultJWTTTLHours    = 72
)

type Config struct {
	Port                int              `json:"port"`
	JWTSecret           string           `json:"jwt_secret"`
	JWTTTLHours         int              `json:"jwt_ttl_hours"`
	ShareBaseURL        string           `json:"share_base_url"`
	TrashRetentionHours int              `json:"trash_retention_hours"`
	SweepCron           string           `json:"sweep_cron"`
	CORSOrigins         []string         `json:"cors_origins"`
	LogConfig           logger.LogConfig `json:"log_config"`
	Database            DatabaseConfig   `json:"database"`
	FileStore           FileStoreConfig  `json:"file_store"`
	RateLimit           RateLimitConfig  `json:"rate_limit"`
	Redis               RedisConfig      `json:"redis"`
}

type DatabaseConfig struct {
	Driver         string `json:"driver"`
	DSN            string `json:"dsn"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	DBName         string `json:"dbname"`
	SSLMode        string `json:"sslmode"`
	Path           string `json:"path"`
	Database       string `json:"database"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type RateLimitConfig struct {
	RPS        float64 `json:"rps"`
	Burst      int     `json:"burst"`
	CacheSize  int     `json:"cache_size"`
	TTLSeconds int     `json:"ttl_seconds"`
}

type RedisConfig struct {
	Addr          string `json:"addr"`
	Password      string `json:"password"`
	DB            int    `json:"db"`
	WindowSeconds int    `json:"window_seconds"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = defaultJWTTTLHours
	}
	if cfg.TrashRetentionHours < 0 {
		return fmt.Errorf("trash_retention_hours must not be negative")
	}
	if cfg.TrashRetentionHours == 0 {
		cfg.TrashRetentionHours = defaultRetentionHours
	}
	if cfg.SweepCron == "" {
		cfg.SweepCron = defaultSweepCron
	}
	cfg.ShareBaseURL = strings.TrimSuffix(cfg.ShareBaseURL, "/")
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if err := cfg.Database.normalize(); err != nil {
		return err
	}
	cfg.FileStore.Type = strings.ToLower(strings.TrimSpace(cfg.FileStore.Type))
	if cfg.RateLimit.RPS <= 0 {
		cfg.RateLimit.RPS = 5
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 10
	}
	if cfg.RateLimit.CacheSize <= 0 {
		cfg.RateLimit.CacheSize = 10000
	}
	if cfg.RateLimit.TTLSeconds <= 0 {
		cfg.RateLimit.TTLSeconds = 600
	}
	if cfg.Redis.WindowSeconds <= 0 {
		cfg.Redis.WindowSeconds = 60
	}
	return nil
}

func (d *DatabaseConfig) normalize() error {
	d.Driver = strings.ToLower(strings.TrimSpace(d.Driver))
	if d.Driver == "" {
		d.Driver = "sqlite"
	}
	if d.TimeoutSeconds <= 0 {
		d.TimeoutSeconds = 5
	}
	switch d.Driver {
	case "postgres":
		if d.DSN == "" && d.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required for postgres")
		}
		if d.Port == 0 {
			d.Port = 5432
		}
	case "sqlite":
		if d.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "mongo":
		if d.DSN == "" {
			return fmt.Errorf("database.dsn is required for mongo")
		}
		if d.Database == "" {
			d.Database = "mdocs"
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be postgres, sqlite, mongo or memory")
	}
	return nil
}
