// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - Errors returned to callers wrap ErrInvalidConfig or ErrLoadConfig.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// Timezone names the IANA zone whose calendar decides "today".
	Timezone string `koanf:"timezone" validate:"required"`

	// StorageDriver selects the persistence backend.
	StorageDriver string `koanf:"storage_driver" validate:"oneof=memory sqlite file redis"`
	SQLitePath    string `koanf:"sqlite_path" validate:"required_if=StorageDriver sqlite"`
	DataDir       string `koanf:"data_dir" validate:"required_if=StorageDriver file"`

	RedisAddr      string `koanf:"redis_addr" validate:"required_if=StorageDriver redis"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db" validate:"gte=0"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`

	// WriteQueueSize bounds the write-behind queue.
	WriteQueueSize int `koanf:"write_queue_size" validate:"gt=0"`
	// WriterCount sets the number of persistence writers. One keeps durable
	// order equal to submission order.
	WriterCount int `koanf:"writer_count" validate:"gt=0"`
	// DedupeSize bounds the number of remembered client write IDs.
	DedupeSize int `koanf:"dedupe_size" validate:"gte=0"`

	// RateLimitRPS and RateLimitBurst throttle the HTTP API; 0 disables it.
	RateLimitRPS   float64 `koanf:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `koanf:"rate_limit_burst" validate:"gte=0"`

	// MaxHistoryDays caps GET /history?limit.
	MaxHistoryDays int `koanf:"max_history_days" validate:"gt=0"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":9080",
		Timezone:       "Local",
		StorageDriver:  DriverSQLite,
		SQLitePath:     "defend100.db",
		DataDir:        "data",
		RedisAddr:      "localhost:6379",
		RedisKeyPrefix: "d100:",
		WriteQueueSize: 1024,
		WriterCount:    1,
		DedupeSize:     10_000,
		RateLimitRPS:   50,
		RateLimitBurst: 100,
		MaxHistoryDays: 366,
	}
}

var validate = validator.New()

// Validate checks field constraints and that Timezone resolves.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}
