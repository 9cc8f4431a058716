// Package simulate drives a running mahjic service with random sessions and
// checks that the ratings it stores add up.
package simulate

import "time"

// Game type choices for generated sessions. GameMixed picks per session.
const (
	GameSocial     = "social"
	GameLeague     = "league"
	GameTournament = "tournament"
	GameMixed      = "mixed"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL          string        // Base URL of the service
	APIKey           string        // Bearer key of an approved source
	Sessions         int           // Number of sessions to submit
	Players          int           // Size of the simulated player pool
	Workers          int           // Number of concurrent submitters
	Timeout          time.Duration // HTTP request timeout
	GameType         string        // social, league, tournament or mixed
	HouseEmail       string        // Email of the filler seat
	HouseProbability float64       // Chance a round seats the house
	StartingRating   float64       // Rating the service gives new players
	Seed             uint64        // Zero picks a random seed
	OutputFile       string        // Where generated sessions are written
	Verbose          bool          // Enable verbose logging
}

// SessionPayload is the POST /api/v1/sessions body.
type SessionPayload struct {
	SessionDate string         `json:"session_date"`
	GameType    string         `json:"game_type"`
	Rounds      []RoundPayload `json:"rounds"`
}

// RoundPayload is one round of a session.
type RoundPayload struct {
	WallGames int             `json:"wall_games"`
	Players   []PlayerPayload `json:"players"`
}

// PlayerPayload is one seat of a round.
type PlayerPayload struct {
	Email       string   `json:"email"`
	BGTUserID   string   `json:"bgt_user_id,omitempty"`
	GamesPlayed int      `json:"games_played"`
	Mahjongs    int      `json:"mahjongs"`
	Points      *float64 `json:"points,omitempty"`
}

// Submission pairs a payload with the idempotency key it is sent under.
type Submission struct {
	IdempotencyKey string         `json:"idempotency_key"`
	Session        SessionPayload `json:"session"`
}

// PlayerResult is one row of a session response.
type PlayerResult struct {
	MahjicID     string  `json:"mahjic_id"`
	Email        string  `json:"email"`
	IsNewPlayer  bool    `json:"is_new_player"`
	RatingBefore float64 `json:"rating_before"`
	RatingAfter  float64 `json:"rating_after"`
	RatingChange float64 `json:"rating_change"`
	GamesTotal   int     `json:"games_played_total"`
}

// SessionResponse is the 201 body of a session submission.
type SessionResponse struct {
	SessionID string         `json:"session_id"`
	Results   []PlayerResult `json:"results"`
}

// Profile is the subset of GET /api/v1/players/{id} the checks read.
type Profile struct {
	MahjicID    string  `json:"mahjic_id"`
	Rating      float64 `json:"rating"`
	GamesPlayed int     `json:"games_played"`
}

// LeaderboardEntry is one leaderboard row.
type LeaderboardEntry struct {
	Rank           int     `json:"rank"`
	MahjicID       string  `json:"mahjic_id"`
	VerifiedRating float64 `json:"verified_rating"`
	GamesPlayed    int     `json:"games_played"`
}

// Stats holds run statistics.
type Stats struct {
	SessionsGenerated  int
	SessionsSubmitted  int
	SessionsSuccessful int
	SessionsRejected   int
	SessionsFailed     int
	PlayersChecked     int
	PlayersMismatched  int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
