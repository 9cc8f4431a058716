// Package repository persists players, sources, sessions and rating history.
package repository

import (
	"context"
	"time"

	"github.com/okian/mahjic/internal/domain/model"
)

// Store provides read access and transactional writes.
type Store interface {
	// WithTx runs fn in one transaction. fn's error rolls everything back.
	// Transactions are serialized, so ratings read inside fn are current.
	WithTx(ctx context.Context, fn func(Tx) error) error

	// SourceByAPIKey returns ErrNotFound for an unknown key.
	SourceByAPIKey(ctx context.Context, apiKey string) (model.Source, error)
	// UpsertSource inserts the source or updates it by id.
	UpsertSource(ctx context.Context, src model.Source) error

	Player(ctx context.Context, id string) (model.Player, error)
	// LeaderboardPlayers lists every verified player in normal privacy mode.
	LeaderboardPlayers(ctx context.Context) ([]model.Player, error)
	History(ctx context.Context, playerID string, q model.HistoryQuery) (model.HistoryPage, error)
	Stats(ctx context.Context) (Stats, error)

	Close() error
}

// Tx is the write side, valid only inside WithTx.
type Tx interface {
	// AfterCommit registers fn to run once the transaction commits, before
	// the next transaction may start. Hooks run in registration order and
	// are dropped on rollback.
	AfterCommit(fn func())

	PlayerByBGTUserID(ctx context.Context, bgtUserID string) (model.Player, error)
	PlayerByEmail(ctx context.Context, email string) (model.Player, error)
	// CreatePlayer assigns id and timestamps when unset.
	CreatePlayer(ctx context.Context, p model.Player) (model.Player, error)
	LinkBGTUserID(ctx context.Context, playerID, bgtUserID string) error
	UpdatePlayerRatings(ctx context.Context, playerID string, rating, verifiedRating float64, gamesPlayed int) error

	CreateSession(ctx context.Context, rec SessionRecord) (string, error)
	CreateRound(ctx context.Context, rec RoundRecord) (string, error)
	AddRoundPlayer(ctx context.Context, rec RoundPlayerRecord) error
	AddRatingHistory(ctx context.Context, rec HistoryRecord) error
}

// SessionRecord is a game_sessions row.
type SessionRecord struct {
	SourceID       string
	SessionDate    time.Time
	GameType       model.GameType
	IdempotencyKey string
}

// RoundRecord is a rounds row.
type RoundRecord struct {
	SessionID      string
	Index          int
	GamesPlayed    int
	WallGames      int
	VerifiedScored bool
}

// RoundPlayerRecord is a round_players row: one real seat's open-family move.
type RoundPlayerRecord struct {
	RoundID   string
	PlayerID  string
	Seat      int
	Mahjongs  int
	Points    *float64
	EloBefore float64
	EloChange float64
}

// HistoryRecord is a rating_history row.
type HistoryRecord struct {
	PlayerID     string
	RoundID      string
	Family       model.RatingFamily
	RatingBefore float64
	RatingAfter  float64
}

// Stats are table counts for the stats endpoint.
type Stats struct {
	Players         int
	VerifiedPlayers int
	Sources         int
	Sessions        int
	Rounds          int
}
