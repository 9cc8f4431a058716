// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/mahjic/internal/domain/model"
	"github.com/okian/mahjic/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionDependencies
	LeaderboardDependencies
	PlayerDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	sessionsHandler    *SessionsHandler
	leaderboardHandler *LeaderboardHandler
	playersHandler     *PlayersHandler

	defaultLeaderboardLimit int
	maxLeaderboardLimit     int
	defaultMinGames         int
	maxHistoryLimit         int
	houseEmail              string
	maxRounds               int
	maxBodyBytes            int64

	logger logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		defaultLeaderboardLimit: 50,
		maxLeaderboardLimit:     200,
		defaultMinGames:         10,
		maxHistoryLimit:         100,
		houseEmail:              "bob@mahjic.org",
		maxRounds:               50,
		maxBodyBytes:            1 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("http")
	}
	if s.defaultLeaderboardLimit > s.maxLeaderboardLimit {
		s.defaultLeaderboardLimit = s.maxLeaderboardLimit
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.sessionsHandler = &SessionsHandler{
		deps:         deps,
		houseEmail:   s.houseEmail,
		maxRounds:    s.maxRounds,
		maxBodyBytes: s.maxBodyBytes,
		logger:       s.logger,
	}
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.defaultLeaderboardLimit, s.maxLeaderboardLimit, s.defaultMinGames)
	s.playersHandler = &PlayersHandler{
		deps:            deps,
		defaultMinGames: s.defaultMinGames,
		maxHistoryLimit: s.maxHistoryLimit,
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/v1/sessions", MetricsMiddleware(s.sessionsHandler.HandlePostSession, "sessions"))
	mux.HandleFunc("/api/v1/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/api/v1/players/", MetricsMiddleware(s.playersHandler.HandlePlayers, "players"))
}

// errorBody is the JSON error envelope shared by every endpoint.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	// Details lists field violations for invalid_session.
	Details any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the envelope. message defaults to the status text.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeErrorDetails(w, status, code, message, nil)
}

func writeErrorDetails(w http.ResponseWriter, status int, code, message string, details any) {
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message, Status: status, Details: details}})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) bool {
	if r.Method == allowed {
		return false
	}
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	return true
}

// nullable renders an empty string as JSON null.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// leaderboardEntryJSON is one public leaderboard row.
type leaderboardEntryJSON struct {
	Rank           int     `json:"rank"`
	MahjicID       string  `json:"mahjic_id"`
	DisplayName    *string `json:"display_name"`
	VerifiedRating float64 `json:"verified_rating"`
	GamesPlayed    int     `json:"games_played"`
	SkillLevel     string  `json:"skill_level"`
}

func toLeaderboardEntryJSON(e model.LeaderboardEntry) leaderboardEntryJSON {
	return leaderboardEntryJSON{
		Rank:           e.Rank,
		MahjicID:       e.PlayerID,
		DisplayName:    nullable(e.Name),
		VerifiedRating: e.VerifiedRating,
		GamesPlayed:    e.GamesPlayed,
		SkillLevel:     string(model.BandFor(e.VerifiedRating)),
	}
}
