package config_test

import (
	"context"
	"errors"
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/okian/mahjic/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DefaultLeaderboardLimit, convey.ShouldEqual, 50)
			convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 200)
			convey.So(cfg.DefaultMinGames, convey.ShouldEqual, 10)
			convey.So(cfg.MaxHistoryLimit, convey.ShouldEqual, 100)
			convey.So(cfg.StartingRating, convey.ShouldEqual, 1500)
			convey.So(cfg.HouseEmail, convey.ShouldEqual, "bob@mahjic.org")
			convey.So(cfg.DatabaseDriver, convey.ShouldEqual, config.DriverSQLite)
			convey.So(cfg.SubmitTimeout().Seconds(), convey.ShouldEqual, 10)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("MAHJIC_ADDR", ":8080")
			_ = os.Setenv("MAHJIC_QUEUE_SIZE", "500")
			_ = os.Setenv("MAHJIC_WORKER_COUNT", "3")
			_ = os.Setenv("MAHJIC_STARTING_RATING", "1200")
			_ = os.Setenv("MAHJIC_DATABASE_DRIVER", "postgres")
			_ = os.Setenv("MAHJIC_DATABASE_DSN", "postgres://localhost/mahjic?sslmode=disable")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.StartingRating, convey.ShouldEqual, 1200)
				convey.So(cfg.DatabaseDriver, convey.ShouldEqual, config.DriverPostgres)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempFile("mahjic-config-*.yaml", `
addr: ":9090"
log_format: json
default_min_games: 0
house_email: "house@club.example"
sources:
  - id: club-1
    name: Tuesday Club
    slug: tuesday-club
    api_key: key-one
    contact_email: admin@club.example
  - id: club-2
    name: Pending League
    slug: pending-league
    api_key: key-two
    pending: true
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("MAHJIC_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.DefaultMinGames, convey.ShouldEqual, 0)
				convey.So(cfg.HouseEmail, convey.ShouldEqual, "house@club.example")
			})

			convey.Convey("And the sources should be decoded", func() {
				convey.So(len(cfg.Sources), convey.ShouldEqual, 2)
				convey.So(cfg.Sources[0].APIKey, convey.ShouldEqual, "key-one")
				convey.So(cfg.Sources[0].Pending, convey.ShouldBeFalse)
				convey.So(cfg.Sources[1].Pending, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempFile("mahjic-config-*.yaml", "addr: \":9090\"\nqueue_size: 42\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("MAHJIC_CONFIG", tmpFile)
			_ = os.Setenv("MAHJIC_ADDR", ":7070")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 42)
			})
		})

		convey.Convey("When loading config with a dotenv file", func() {
			envFile := createTempFile("mahjic-*.env", "MAHJIC_ADDR=:6060\nMAHJIC_LOG_LEVEL=debug\n")
			defer func() { _ = os.Remove(envFile) }()
			_ = os.Setenv("MAHJIC_ENV_FILE", envFile)

			convey.Convey("Then its values are applied", func() {
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})

			convey.Convey("And process variables still win", func() {
				_ = os.Setenv("MAHJIC_ADDR", ":5050")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":5050")
			})
		})

		convey.Convey("When the explicit dotenv file is missing", func() {
			_ = os.Setenv("MAHJIC_ENV_FILE", "/nonexistent/mahjic.env")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldStartWith, "read mahjic configuration: dotenv /nonexistent/mahjic.env")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempFile("mahjic-config-*.yaml", "addr: [unterminated\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("MAHJIC_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("MAHJIC_CONFIG", "/nonexistent/config.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("MAHJIC_QUEUE_SIZE", "lots")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown database driver", func() {
			_ = os.Setenv("MAHJIC_DATABASE_DRIVER", "oracle")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(err.Error(), convey.ShouldEqual, "invalid mahjic configuration: database_driver must be sqlite or postgres")
			})
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When addr is empty", func() {
			cfg.Addr = ""
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the default limit exceeds the maximum", func() {
			cfg.DefaultLeaderboardLimit = cfg.MaxLeaderboardLimit + 1
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When a source has no api key", func() {
			cfg.Sources = []config.SourceConfig{{ID: "club-1"}}
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When two sources share an api key", func() {
			cfg.Sources = []config.SourceConfig{
				{ID: "club-1", APIKey: "same"},
				{ID: "club-2", APIKey: "same"},
			}
			err := cfg.Validate()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "share an api_key")
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "MAHJIC_") {
			_ = os.Unsetenv(name)
		}
	}
}

func createTempFile(pattern, content string) string {
	tmpFile, err := os.CreateTemp("", pattern)
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
