// Package config loads and validates the operating thresholds and
// connection settings for the ingestion pipeline. Pattern grounded on
// the teacher's internal/config/config.go (env-var Load with
// getEnv/getEnvInt helpers), extended with go-playground/validator
// struct-tag validation (akmatori-akmatori/internal/api/validation.go)
// and an optional YAML overlay (gopkg.in/yaml.v3, also used by
// akmatori-akmatori).
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/seawatch/trackwatch/internal/errs"
)

// OutOfOrderPolicy controls how the pipeline treats a point whose
// timestamp precedes the vessel's current VesselLatest.timestamp. See
// DESIGN.md for the rationale behind the chosen default.
type OutOfOrderPolicy string

const (
	OutOfOrderSkipLatest   OutOfOrderPolicy = "skip_latest"
	OutOfOrderUpdateLatest OutOfOrderPolicy = "update_latest"
	OutOfOrderDiscard      OutOfOrderPolicy = "discard"
)

// Config holds every operator-tunable parameter named in spec §6, plus
// the connection settings needed to reach Postgres and Redis.
type Config struct {
	// HTTP control surface
	HTTPPort string `yaml:"http_port"`

	// Postgres (durable storage)
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBMaxConns int32  `yaml:"db_max_conns" validate:"gte=1"`

	// Redis (cooldown fast-path cache, optional)
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db" validate:"gte=0"`

	// Control-surface auth
	ValidAPIKeys []string `yaml:"valid_api_keys"`

	// Detection thresholds (spec §6)
	TeleportSpeedKnotsShort   float64 `yaml:"teleport_speed_knots_short" validate:"gt=0"`
	TeleportSpeedKnotsMedium  float64 `yaml:"teleport_speed_knots_medium" validate:"gt=0"`
	MaxTurnRateDegPerSec      float64 `yaml:"max_turn_rate_deg_per_sec" validate:"gt=0"`
	MinSpeedForTurnCheckKnots float64 `yaml:"min_speed_for_turn_check_knots" validate:"gte=0"`
	AlertCooldownSec          float64 `yaml:"alert_cooldown_sec" validate:"gte=0"`
	DefaultBatchSize          int     `yaml:"default_batch_size" validate:"gte=1,lte=10000"`
	StreamingThresholdMB      float64 `yaml:"streaming_threshold_mb" validate:"gte=0"`
	ChunkSize                 int     `yaml:"chunk_size" validate:"gte=1"`
	TrackWindowSize           int     `yaml:"track_window_size" validate:"gte=1"`

	// Out-of-order handling (Open Question, see DESIGN.md)
	OutOfOrderPolicy OutOfOrderPolicy `yaml:"out_of_order_policy"`

	// Cooldown cleanup
	CooldownMaxAge string `yaml:"cooldown_max_age"` // parseable by time.ParseDuration, default "24h"

	// Fan-out bus
	SubscriberMailboxSize int `yaml:"subscriber_mailbox_size" validate:"gte=1"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from environment variables (after loading a
// .env file if present), optionally overlaying a YAML file first when
// configPath is non-empty, then validates the result. A ConfigError is
// returned on any invalid value — the caller must refuse to start.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load() // absence of .env is expected in production

	cfg := defaults()

	if configPath != "" {
		if err := overlayYAML(cfg, configPath); err != nil {
			return nil, errs.ConfigError("loading config file %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		HTTPPort:                  "8001",
		DBHost:                    "localhost",
		DBPort:                    "5432",
		DBUser:                    "trackwatch",
		DBPassword:                "trackwatch",
		DBName:                    "trackwatch",
		DBMaxConns:                15,
		RedisAddr:                 "localhost:6379",
		RedisPassword:             "",
		RedisDB:                   0,
		ValidAPIKeys:              nil,
		TeleportSpeedKnotsShort:   60,
		TeleportSpeedKnotsMedium:  100,
		MaxTurnRateDegPerSec:      3,
		MinSpeedForTurnCheckKnots: 10,
		AlertCooldownSec:          300,
		DefaultBatchSize:          100,
		StreamingThresholdMB:      50,
		ChunkSize:                 10000,
		TrackWindowSize:           5,
		OutOfOrderPolicy:          OutOfOrderSkipLatest,
		CooldownMaxAge:            "24h",
		SubscriberMailboxSize:     256,
	}
}

func overlayYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.DBMaxConns = int32(getEnvInt("DB_MAX_CONNS", int(cfg.DBMaxConns)))

	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)

	if keys := os.Getenv("VALID_API_KEYS"); keys != "" {
		cfg.ValidAPIKeys = strings.Split(keys, ",")
	}

	cfg.TeleportSpeedKnotsShort = getEnvFloat("TELEPORT_SPEED_KNOTS_SHORT", cfg.TeleportSpeedKnotsShort)
	cfg.TeleportSpeedKnotsMedium = getEnvFloat("TELEPORT_SPEED_KNOTS_MEDIUM", cfg.TeleportSpeedKnotsMedium)
	cfg.MaxTurnRateDegPerSec = getEnvFloat("MAX_TURN_RATE_DEG_PER_SEC", cfg.MaxTurnRateDegPerSec)
	cfg.MinSpeedForTurnCheckKnots = getEnvFloat("MIN_SPEED_FOR_TURN_CHECK_KNOTS", cfg.MinSpeedForTurnCheckKnots)
	cfg.AlertCooldownSec = getEnvFloat("ALERT_COOLDOWN_SEC", cfg.AlertCooldownSec)
	cfg.DefaultBatchSize = getEnvInt("DEFAULT_BATCH_SIZE", cfg.DefaultBatchSize)
	cfg.StreamingThresholdMB = getEnvFloat("STREAMING_THRESHOLD_MB", cfg.StreamingThresholdMB)
	cfg.ChunkSize = getEnvInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.TrackWindowSize = getEnvInt("TRACK_WINDOW_SIZE", cfg.TrackWindowSize)

	if p := os.Getenv("OUT_OF_ORDER_POLICY"); p != "" {
		cfg.OutOfOrderPolicy = OutOfOrderPolicy(p)
	}
	cfg.CooldownMaxAge = getEnv("COOLDOWN_MAX_AGE", cfg.CooldownMaxAge)
	cfg.SubscriberMailboxSize = getEnvInt("SUBSCRIBER_MAILBOX_SIZE", cfg.SubscriberMailboxSize)
}

// Validate checks struct tags plus cross-field invariants the tags
// can't express. It is exported so callers can re-validate a config
// mutated after Load (e.g. in tests).
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return errs.ConfigError("invalid configuration: %w", err)
	}

	if cfg.TeleportSpeedKnotsShort >= cfg.TeleportSpeedKnotsMedium {
		return errs.ConfigError("teleport_speed_knots_short (%v) must be less than teleport_speed_knots_medium (%v)",
			cfg.TeleportSpeedKnotsShort, cfg.TeleportSpeedKnotsMedium)
	}
	switch cfg.OutOfOrderPolicy {
	case OutOfOrderSkipLatest, OutOfOrderUpdateLatest, OutOfOrderDiscard:
	default:
		return errs.ConfigError("out_of_order_policy %q is not one of skip_latest|update_latest|discard", cfg.OutOfOrderPolicy)
	}
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"teleport_speed_knots_short", cfg.TeleportSpeedKnotsShort},
		{"teleport_speed_knots_medium", cfg.TeleportSpeedKnotsMedium},
		{"max_turn_rate_deg_per_sec", cfg.MaxTurnRateDegPerSec},
		{"min_speed_for_turn_check_knots", cfg.MinSpeedForTurnCheckKnots},
		{"alert_cooldown_sec", cfg.AlertCooldownSec},
		{"streaming_threshold_mb", cfg.StreamingThresholdMB},
	} {
		if isNaNOrInf(f.val) {
			return errs.ConfigError("%s must be finite, got %v", f.name, f.val)
		}
	}
	return nil
}

func isNaNOrInf(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// DSN builds the Postgres connection string in the teacher's format.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?pool_max_conns=%d",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBMaxConns,
	)
}
