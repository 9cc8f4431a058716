package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/mahjic/internal/domain/model"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, offset, limit, minGames int) ([]model.LeaderboardEntry, int, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps            LeaderboardDependencies
	defaultLimit    int
	maxLimit        int
	defaultMinGames int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, defaultLimit, maxLimit, defaultMinGames int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:            deps,
		defaultLimit:    defaultLimit,
		maxLimit:        maxLimit,
		defaultMinGames: defaultMinGames,
	}
}

type leaderboardResponse struct {
	Leaderboard []leaderboardEntryJSON `json:"leaderboard"`
	Total       int                    `json:"total"`
	Limit       int                    `json:"limit"`
	Offset      int                    `json:"offset"`
}

// HandleGetLeaderboard handles GET /api/v1/leaderboard?limit=&offset=&min_games=.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if methodNotAllowed(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"), h.defaultLimit, 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
		return
	}
	limit = min(limit, h.maxLimit)
	offset, err := intParam(q.Get("offset"), 0, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "offset must be a non-negative integer")
		return
	}
	minGames, err := intParam(q.Get("min_games"), h.defaultMinGames, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "min_games must be a non-negative integer")
		return
	}

	entries, total, err := h.deps.Leaderboard(r.Context(), offset, limit, minGames)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	out := leaderboardResponse{
		Leaderboard: make([]leaderboardEntryJSON, 0, len(entries)),
		Total:       total,
		Limit:       limit,
		Offset:      offset,
	}
	for _, e := range entries {
		out.Leaderboard = append(out.Leaderboard, toLeaderboardEntryJSON(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// intParam parses an optional integer query parameter no smaller than floor.
func intParam(s string, def, floor int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, NewKind("api.int_param", ErrBadRequest)
	}
	if n < floor {
		return 0, NewKind("api.int_param", ErrBadRequest)
	}
	return n, nil
}
