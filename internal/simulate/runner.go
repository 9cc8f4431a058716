package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/mahjic/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
	leaderboardLimit    = 200
	percentage          = 100
)

// ErrVerification is returned when stored ratings disagree with the
// submitted results.
var ErrVerification = errors.New("verification failed")

// Run executes a complete simulation.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	log := logger.Named("simulate")
	stats := &Stats{StartTime: time.Now()}

	runID := strings.SplitN(uuid.NewString(), "-", 2)[0]
	log.Info(ctx, "starting mahjic simulation",
		logger.String("runID", runID),
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("players", cfg.Players),
		logger.Int("workers", cfg.Workers),
		logger.String("gameType", cfg.GameType))

	client := NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	subs := NewGenerator(cfg, runID).Generate(cfg.Sessions)
	stats.SessionsGenerated = len(subs)
	if cfg.OutputFile != "" {
		if err := saveSubmissions(cfg.OutputFile, subs); err != nil {
			log.Warn(ctx, "failed to save sessions", logger.Error(err))
		}
	}

	ledger := NewLedger()
	SubmitAll(ctx, cfg, client, subs, ledger, stats)

	// Submit returns after commit, so every accepted session is visible now.
	mismatches := VerifyPlayers(ctx, client, cfg.StartingRating, ledger)
	changes, _ := ledger.Players()
	stats.PlayersChecked = len(changes)
	stats.PlayersMismatched = len(mismatches)
	logMismatches(ctx, mismatches, cfg.Verbose)

	board, err := client.Leaderboard(ctx, leaderboardLimit)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardEntries = len(board)
	if err := VerifyLeaderboard(board); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrVerification, err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, stats)

	if len(mismatches) > 0 {
		return stats, fmt.Errorf("%w: %d of %d players", ErrVerification, len(mismatches), stats.PlayersChecked)
	}
	if stats.SessionsFailed > 0 {
		return stats, fmt.Errorf("%d sessions failed", stats.SessionsFailed)
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

func validate(cfg *Config) error {
	switch {
	case cfg.BaseURL == "":
		return errors.New("base url is required")
	case cfg.APIKey == "":
		return errors.New("api key is required")
	case cfg.Sessions <= 0:
		return errors.New("sessions must be positive")
	case cfg.Players < 2:
		return errors.New("at least two players are required")
	case cfg.Workers <= 0:
		return errors.New("workers must be positive")
	}
	switch cfg.GameType {
	case GameSocial, GameLeague, GameTournament, GameMixed:
	default:
		return fmt.Errorf("unknown game type %q", cfg.GameType)
	}
	return nil
}

// saveSubmissions writes the generated sessions as a JSON array.
func saveSubmissions(filename string, subs []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

func logStats(ctx context.Context, stats *Stats) {
	var successRate, perSecond float64
	if stats.SessionsSubmitted > 0 {
		successRate = float64(stats.SessionsSuccessful) / float64(stats.SessionsSubmitted) * percentage
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.SessionsSubmitted) / stats.Duration.Seconds()
	}

	logger.Named("simulate").Info(ctx, "final statistics",
		logger.Int("sessionsGenerated", stats.SessionsGenerated),
		logger.Int("sessionsSubmitted", stats.SessionsSubmitted),
		logger.Int("sessionsSuccessful", stats.SessionsSuccessful),
		logger.Int("sessionsRejected", stats.SessionsRejected),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("playersChecked", stats.PlayersChecked),
		logger.Int("playersMismatched", stats.PlayersMismatched),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("sessionsPerSecond", perSecond))
}
