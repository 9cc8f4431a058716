package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/mahjic/internal/adapters/repository"
	app "github.com/okian/mahjic/internal/app"
	"github.com/okian/mahjic/internal/config"
	"github.com/okian/mahjic/pkg/logger"
	"github.com/okian/mahjic/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.InitWithWriter(io.Discard, false)
	os.Exit(m.Run())
}

func setenv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given MAHJIC_* environment variables", t, func() {
		setenv(t, map[string]string{
			"MAHJIC_ADDR":            ":8080",
			"MAHJIC_QUEUE_SIZE":      "1000",
			"MAHJIC_WORKER_COUNT":    "4",
			"MAHJIC_DATABASE_DRIVER": "sqlite",
			"MAHJIC_DATABASE_DSN":    ":memory:",
		})

		convey.Convey("Then configuration should be loadable", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			convey.So(cfg.DatabaseDSN, convey.ShouldEqual, ":memory:")
		})
	})

	convey.Convey("Given an invalid database driver", t, func() {
		setenv(t, map[string]string{"MAHJIC_DATABASE_DRIVER": "oracle"})

		convey.Convey("Then configuration loading should fail", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestSourceFromConfig(t *testing.T) {
	convey.Convey("Given configured sources", t, func() {
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		convey.Convey("A regular source is approved at seed time", func() {
			src := sourceFromConfig(config.SourceConfig{ID: "club", Name: "Club", Slug: "club", APIKey: "k1"}, now)
			convey.So(src.Approved(), convey.ShouldBeTrue)
			convey.So(*src.ApprovedAt, convey.ShouldEqual, now)
			convey.So(src.APIKey, convey.ShouldEqual, "k1")
		})

		convey.Convey("A pending source stays unapproved", func() {
			src := sourceFromConfig(config.SourceConfig{ID: "club", APIKey: "k1", Pending: true}, now)
			convey.So(src.Approved(), convey.ShouldBeFalse)
		})
	})
}

func TestSeedSources(t *testing.T) {
	convey.Convey("Given an empty store", t, func() {
		ctx := context.Background()
		store, err := repository.Open(ctx, config.DriverSQLite, ":memory:")
		convey.So(err, convey.ShouldBeNil)
		defer store.Close()

		sources := []config.SourceConfig{
			{ID: "club", Name: "Club", Slug: "club", APIKey: "club-key"},
			{ID: "league", Name: "League", Slug: "league", APIKey: "league-key", Pending: true},
		}

		convey.Convey("When sources are seeded twice", func() {
			convey.So(seedSources(ctx, store, sources, time.Now()), convey.ShouldBeNil)
			convey.So(seedSources(ctx, store, sources, time.Now()), convey.ShouldBeNil)

			convey.Convey("Then each key resolves to its source", func() {
				src, err := store.SourceByAPIKey(ctx, "club-key")
				convey.So(err, convey.ShouldBeNil)
				convey.So(src.ID, convey.ShouldEqual, "club")
				convey.So(src.Approved(), convey.ShouldBeTrue)

				src, err = store.SourceByAPIKey(ctx, "league-key")
				convey.So(err, convey.ShouldBeNil)
				convey.So(src.Approved(), convey.ShouldBeFalse)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("The system metrics updater returns on cancellation", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("The service metrics updater returns on cancellation", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startServiceMetricsUpdater(ctx, app.New()) }, convey.ShouldNotPanic)
		})

		convey.Convey("Metric updates work on a service that never started", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(app.New()) }, convey.ShouldNotPanic)
		})

		convey.Convey("A metrics manager can use a private registry", func() {
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
			convey.So(manager, convey.ShouldNotBeNil)
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a fully wired application on an in-memory store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cfg := config.New(ctx)
		cfg.DatabaseDSN = ":memory:"
		cfg.WorkerCount = 2
		cfg.DefaultMinGames = 0
		cfg.Sources = []config.SourceConfig{{ID: "club", Name: "Club", Slug: "club", APIKey: "club-key"}}
		convey.So(cfg.Validate(), convey.ShouldBeNil)

		store, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
		convey.So(err, convey.ShouldBeNil)
		defer store.Close()
		convey.So(seedSources(ctx, store, cfg.Sources, time.Now()), convey.ShouldBeNil)

		svc := app.New(
			app.WithLogger(logger.Get()),
			app.WithStore(store),
			app.WithWorkerCount(cfg.WorkerCount),
			app.WithHouseEmail(cfg.HouseEmail),
		)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newMux(ctx, cfg, svc, logger.Get()))
		defer srv.Close()

		convey.Convey("When a session is posted", func() {
			body := `{
				"session_date": "2026-04-02",
				"game_type": "social",
				"rounds": [{
					"wall_games": 0,
					"players": [
						{"email": "amy@example.com", "games_played": 2, "mahjongs": 2},
						{"email": "ben@example.com", "games_played": 2, "mahjongs": 0}
					]
				}]
			}`
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/api/v1/sessions", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			req.Header.Set("Authorization", "Bearer club-key")
			req.Header.Set("Content-Type", "application/json")

			resp, err := http.DefaultClient.Do(req)
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then both players are rated", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)

				var out struct {
					SessionID string `json:"session_id"`
					Results   []struct {
						Email        string  `json:"email"`
						RatingChange float64 `json:"rating_change"`
						IsNewPlayer  bool    `json:"is_new_player"`
					} `json:"results"`
				}
				convey.So(json.NewDecoder(resp.Body).Decode(&out), convey.ShouldBeNil)
				convey.So(out.SessionID, convey.ShouldNotBeEmpty)
				convey.So(len(out.Results), convey.ShouldEqual, 2)

				changes := map[string]float64{}
				for _, r := range out.Results {
					convey.So(r.IsNewPlayer, convey.ShouldBeTrue)
					changes[r.Email] = r.RatingChange
				}
				convey.So(changes["amy@example.com"], convey.ShouldEqual, 16)
				convey.So(changes["ben@example.com"], convey.ShouldEqual, -16)
			})
		})

		convey.Convey("When the health and docs routes are requested", func() {
			for _, path := range []string{"/healthz", "/openapi.yaml", "/api-docs"} {
				resp, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}
