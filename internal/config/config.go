// Package config defines service configuration structures and loading hooks.
//
// Values are layered: defaults from New, an optional YAML file, an optional
// dotenv file, then MAHJIC_* environment variables.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingest workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many idempotency keys are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// SubmitTimeoutMS bounds how long a submission waits for its result.
	SubmitTimeoutMS int `koanf:"submit_timeout_ms"`

	// MaxRoundsPerSession caps rounds in one submission. Zero disables the cap.
	MaxRoundsPerSession int `koanf:"max_rounds_per_session"`

	// Leaderboard paging.
	MaxLeaderboardLimit     int `koanf:"max_leaderboard_limit"`
	DefaultLeaderboardLimit int `koanf:"default_leaderboard_limit"`
	DefaultMinGames         int `koanf:"default_min_games"`

	// MaxHistoryLimit caps GET /players/{id}/history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// StartingRating is given to every new player in both families.
	StartingRating float64 `koanf:"starting_rating"`

	// HouseEmail identifies the filler seat. HouseRating is its fixed rating.
	HouseEmail  string  `koanf:"house_email"`
	HouseRating float64 `koanf:"house_rating"`

	// LeaderboardRefreshMS is the leaderboard snapshot interval.
	LeaderboardRefreshMS int `koanf:"leaderboard_refresh_ms"`

	// DatabaseDriver is sqlite or postgres. DatabaseDSN is passed to the driver.
	DatabaseDriver string `koanf:"database_driver"`
	DatabaseDSN    string `koanf:"database_dsn"`

	// Sources are seeded into the store at startup.
	Sources []SourceConfig `koanf:"sources"`
}

// SourceConfig describes a source allowed to submit sessions.
type SourceConfig struct {
	ID           string `koanf:"id"`
	Name         string `koanf:"name"`
	Slug         string `koanf:"slug"`
	APIKey       string `koanf:"api_key"`
	ContactEmail string `koanf:"contact_email"`
	// Pending sources are known but not yet approved to submit.
	Pending bool `koanf:"pending"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		QueueSize:               10_000,
		WorkerCount:             runtime.NumCPU(),
		DedupeSize:              100_000,
		SubmitTimeoutMS:         10_000,
		MaxRoundsPerSession:     50,
		MaxLeaderboardLimit:     200,
		DefaultLeaderboardLimit: 50,
		DefaultMinGames:         10,
		MaxHistoryLimit:         100,
		StartingRating:          1500,
		HouseEmail:              "bob@mahjic.org",
		HouseRating:             1500,
		LeaderboardRefreshMS:    1000,
		DatabaseDriver:          DriverSQLite,
		DatabaseDSN:             "file:mahjic.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
	}
}

// SubmitTimeout returns SubmitTimeoutMS as a duration.
func (c *Config) SubmitTimeout() time.Duration {
	return time.Duration(c.SubmitTimeoutMS) * time.Millisecond
}

// LeaderboardRefresh returns LeaderboardRefreshMS as a duration.
func (c *Config) LeaderboardRefresh() time.Duration {
	return time.Duration(c.LeaderboardRefreshMS) * time.Millisecond
}

// Validate checks the values the service cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.SubmitTimeoutMS <= 0:
		return fmt.Errorf("%w: submit_timeout_ms must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.DefaultLeaderboardLimit <= 0 || c.DefaultLeaderboardLimit > c.MaxLeaderboardLimit:
		return fmt.Errorf("%w: default_leaderboard_limit must be in 1..max_leaderboard_limit", ErrInvalidConfig)
	case c.DefaultMinGames < 0:
		return fmt.Errorf("%w: default_min_games must not be negative", ErrInvalidConfig)
	case c.MaxHistoryLimit <= 0:
		return fmt.Errorf("%w: max_history_limit must be positive", ErrInvalidConfig)
	case c.HouseEmail == "":
		return fmt.Errorf("%w: house_email must not be empty", ErrInvalidConfig)
	case c.DatabaseDriver != DriverSQLite && c.DatabaseDriver != DriverPostgres:
		return fmt.Errorf("%w: database_driver must be %s or %s", ErrInvalidConfig, DriverSQLite, DriverPostgres)
	case c.DatabaseDSN == "":
		return fmt.Errorf("%w: database_dsn must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	}

	keys := make(map[string]string, len(c.Sources))
	for i, s := range c.Sources {
		if s.ID == "" || strings.TrimSpace(s.APIKey) == "" {
			return fmt.Errorf("%w: sources[%d] needs id and api_key", ErrInvalidConfig, i)
		}
		if other, dup := keys[s.APIKey]; dup {
			return fmt.Errorf("%w: sources %s and %s share an api_key", ErrInvalidConfig, other, s.ID)
		}
		keys[s.APIKey] = s.ID
	}
	return nil
}
