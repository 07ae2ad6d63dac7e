// Package config loads service settings from config.yaml, .env and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/lotto/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`

	Telegram struct {
		Token       string  `yaml:"token"`
		Username    string  `yaml:"username"`
		AdminIDs    []int64 `yaml:"admin_ids"`
		Debug       bool    `yaml:"debug"`
		Concurrency int     `yaml:"concurrency"`
	} `yaml:"telegram"`

	HTTP struct {
		Port       string `yaml:"port"`
		AdminToken string `yaml:"admin_token"`
		Gateway    bool   `yaml:"gateway"`
	} `yaml:"http"`

	NATS struct {
		URL           string `yaml:"url"`
		StreamName    string `yaml:"stream_name"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	// Database is filled from DB_* variables only
	Database dbconfig.Config `yaml:"-"`
}

func defaults() *Config {
	var c Config
	c.Log.Level = "info"
	c.Log.Pretty = true
	c.Telegram.Concurrency = 16
	c.HTTP.Port = "8080"
	c.HTTP.Gateway = true
	c.Redis.TTL = 5 * time.Minute
	return &c
}

// Load reads .env (if present), then path (if present), then applies
// environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Debug().Str("path", path).Msg("config file not found, using defaults")
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.Database = dbconfig.NewConfigFromEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Pretty = getEnvAsBool("LOG_PRETTY", c.Log.Pretty)

	c.Telegram.Token = getEnv("TELEGRAM_TOKEN", c.Telegram.Token)
	c.Telegram.Username = getEnv("TELEGRAM_USERNAME", c.Telegram.Username)
	c.Telegram.Debug = getEnvAsBool("TELEGRAM_DEBUG", c.Telegram.Debug)
	c.Telegram.Concurrency = getEnvAsInt("TELEGRAM_CONCURRENCY", c.Telegram.Concurrency)
	if ids := os.Getenv("TELEGRAM_ADMIN_IDS"); ids != "" {
		c.Telegram.AdminIDs = parseIDs(ids)
	}

	c.HTTP.Port = getEnv("PORT", c.HTTP.Port)
	c.HTTP.AdminToken = getEnv("ADMIN_TOKEN", c.HTTP.AdminToken)
	c.HTTP.Gateway = getEnvAsBool("GATEWAY_ENABLED", c.HTTP.Gateway)

	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.StreamName = getEnv("NATS_STREAM", c.NATS.StreamName)
	c.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", c.NATS.SubjectPrefix)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
}

func parseIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			log.Warn().Str("value", part).Msg("ignoring invalid admin id")
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
