package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// MongoConfig points at the event database.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// AuthConfig configures session tokens for editors.
type AuthConfig struct {
	JWTSecret  string `yaml:"jwt_secret"`
	CookieName string `yaml:"cookie_name"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// Timezone is the IANA zone calendar days are cut in (e.g. "Europe/Madrid").
	Timezone string `yaml:"timezone"`

	// WeekStart is the first column of the month grid: "monday" (default)
	// or "sunday".
	WeekStart string `yaml:"week_start"`

	// Store selects the persistence backend: "mongo" (default) or "memory".
	Store string `yaml:"store"`

	Mongo MongoConfig `yaml:"mongo"`
	Auth  AuthConfig  `yaml:"auth"`

	// BaseURL is the public origin used for absolute links in exports.
	BaseURL string `yaml:"base_url"`

	// LatestBackfillDays is how many past days the index "latest events"
	// list reaches back.
	LatestBackfillDays int `yaml:"latest_backfill_days"`

	LogLevel string `yaml:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen:             ":8080",
		Timezone:           "UTC",
		WeekStart:          "monday",
		Store:              StoreMongo,
		Mongo:              MongoConfig{URI: "mongodb://localhost:27017", Database: "calendar"},
		Auth:               AuthConfig{CookieName: "calendar_session"},
		LatestBackfillDays: 2,
		LogLevel:           "info",
	}
}

// Normalize fills in missing or invalid values with defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}

	switch strings.ToLower(c.WeekStart) {
	case "monday", "sunday":
		c.WeekStart = strings.ToLower(c.WeekStart)
	default:
		c.WeekStart = def.WeekStart
	}

	switch c.Store {
	case StoreMongo, StoreMemory:
	default:
		c.Store = def.Store
	}

	if c.Mongo.URI == "" {
		c.Mongo.URI = def.Mongo.URI
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = def.Mongo.Database
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = def.Auth.CookieName
	}
	if c.LatestBackfillDays < 0 {
		c.LatestBackfillDays = def.LatestBackfillDays
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Load reads the YAML file at path, applies environment overrides and
// normalizes the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Info("Config file not found, using defaults", "path", path)
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	cfg.ApplyEnv()
	cfg.Normalize()

	return cfg, nil
}

// ApplyEnv overrides fields from environment variables when they are set.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Listen, "LISTEN")
	set(&c.Timezone, "TIMEZONE")
	set(&c.WeekStart, "WEEK_START")
	set(&c.Store, "STORE")
	set(&c.Mongo.URI, "MONGO_URI")
	set(&c.Mongo.Database, "MONGO_DB")
	set(&c.Auth.JWTSecret, "JWT_SECRET")
	set(&c.BaseURL, "BASE_URL")
	set(&c.LogLevel, "LOG_LEVEL")

	if v := os.Getenv("LATEST_BACKFILL_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LatestBackfillDays = n
		}
	}
}

// FirstWeekday is the weekday of the first grid column.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Error("Failed to load timezone, falling back to UTC", "timezone", c.Timezone, "error", err)
		return time.UTC
	}
	return loc
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
