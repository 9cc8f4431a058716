package model

import "time"

// PlayerResult is a player's outcome for a whole session.
type PlayerResult struct {
	PlayerID              string
	BGTUserID             string
	Email                 string
	IsNew                 bool
	RatingBefore          float64
	RatingAfter           float64
	RatingChange          float64
	VerifiedRatingBefore  float64
	VerifiedRatingAfter   float64
	VerifiedRatingChange  float64
	GamesPlayedTotal      int
	VerifiedRatingApplied bool // at least one round scored the verified family
}

// SessionResult is what a submission returns.
type SessionResult struct {
	SessionID string
	Results   []PlayerResult
}

// LeaderboardEntry is one row of the verified leaderboard.
type LeaderboardEntry struct {
	Rank           int
	PlayerID       string
	Name           string
	VerifiedRating float64
	GamesPlayed    int
}

// HistoryEntry is one rating movement of one family for one player.
type HistoryEntry struct {
	RoundID      string
	SessionDate  time.Time
	SourceName   string
	GameType     GameType
	Family       RatingFamily
	GamesPlayed  int
	Mahjongs     int
	Points       *float64
	RatingBefore float64
	RatingAfter  float64
	CreatedAt    time.Time
}

// RatingChange is the persisted movement of the entry.
func (h HistoryEntry) RatingChange() float64 { return h.RatingAfter - h.RatingBefore }

// HistoryQuery filters a player's history.
type HistoryQuery struct {
	Family RatingFamily
	Limit  int
	Offset int
	From   *time.Time // inclusive, by creation time
	To     *time.Time // inclusive, by creation time
}

// HistoryPage is a page of history with the total matching count.
type HistoryPage struct {
	Entries []HistoryEntry
	Total   int
}
