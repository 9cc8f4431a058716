package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	service "github.com/okian/mahjic/internal/app"
	"github.com/okian/mahjic/internal/domain/model"
)

// PlayerDependencies defines the operations behind /api/v1/players/.
type PlayerDependencies interface {
	Player(ctx context.Context, id string) (model.Player, error)
	PlayerRank(ctx context.Context, playerID string, minGames int) (model.LeaderboardEntry, error)
	History(ctx context.Context, id string, q model.HistoryQuery) (model.HistoryPage, error)
}

// PlayersHandler serves public player profiles, rating history and ranks.
type PlayersHandler struct {
	deps            PlayerDependencies
	defaultMinGames int
	maxHistoryLimit int
}

const playersPrefix = "/api/v1/players/"

const dateLayout = "2006-01-02"

type playerResponse struct {
	MahjicID       string  `json:"mahjic_id"`
	DisplayName    *string `json:"display_name"`
	Rating         float64 `json:"rating"`
	VerifiedRating float64 `json:"verified_rating"`
	GamesPlayed    int     `json:"games_played"`
	Tier           string  `json:"tier"`
	SkillLevel     string  `json:"skill_level"`
	IsPrivate      bool    `json:"is_private"`
	JoinedAt       string  `json:"joined_at"`
}

type historyEntryJSON struct {
	Date         string   `json:"date"`
	RoundID      string   `json:"round_id"`
	SourceName   string   `json:"source_name"`
	GameType     string   `json:"game_type"`
	GamesPlayed  int      `json:"games_played"`
	Mahjongs     int      `json:"mahjongs"`
	Points       *float64 `json:"points"`
	RatingBefore float64  `json:"rating_before"`
	RatingAfter  float64  `json:"rating_after"`
	RatingChange float64  `json:"rating_change"`
}

type historyResponse struct {
	MahjicID   string             `json:"mahjic_id"`
	RatingType string             `json:"rating_type"`
	History    []historyEntryJSON `json:"history"`
	Total      int                `json:"total"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

// HandlePlayers routes GET /api/v1/players/{id}, /{id}/history and /{id}/rank.
func (h *PlayersHandler) HandlePlayers(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r, http.MethodGet) {
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, playersPrefix), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 2 {
		writeError(w, http.StatusNotFound, "not_found", "")
		return
	}
	id := parts[0]
	if len(parts) == 1 {
		h.handleProfile(w, r, id)
		return
	}
	switch parts[1] {
	case "history":
		h.handleHistory(w, r, id)
	case "rank":
		h.handleRank(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not_found", "")
	}
}

func (h *PlayersHandler) handleProfile(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.get_player"
	p, err := h.deps.Player(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writePlayerNotFound(w, id)
			return
		}
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, playerResponse{
		MahjicID:       p.ID,
		DisplayName:    nullable(p.Name),
		Rating:         p.Rating,
		VerifiedRating: p.VerifiedRating,
		GamesPlayed:    p.GamesPlayed,
		Tier:           string(p.Tier),
		SkillLevel:     string(model.BandFor(p.VerifiedRating)),
		IsPrivate:      false,
		JoinedAt:       p.CreatedAt.UTC().Format(dateLayout),
	})
}

func (h *PlayersHandler) handleHistory(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.get_player_history"
	v := r.URL.Query()

	limit, err := intParam(v.Get("limit"), h.maxHistoryLimit, 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
		return
	}
	offset, err := intParam(v.Get("offset"), 0, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "offset must be a non-negative integer")
		return
	}
	q := model.HistoryQuery{
		Family: model.FamilyOpen,
		Limit:  min(limit, h.maxHistoryLimit),
		Offset: offset,
	}
	if t := strings.TrimSpace(v.Get("type")); t != "" {
		q.Family = model.RatingFamily(t)
		if !q.Family.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_request", "type must be mahjic or verified")
			return
		}
	}
	if s := v.Get("from"); s != "" {
		from, err := time.Parse(dateLayout, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "from must be a date (YYYY-MM-DD)")
			return
		}
		q.From = &from
	}
	if s := v.Get("to"); s != "" {
		to, err := time.Parse(dateLayout, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "to must be a date (YYYY-MM-DD)")
			return
		}
		to = to.Add(24*time.Hour - time.Second)
		q.To = &to
	}

	page, err := h.deps.History(r.Context(), id, q)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writePlayerNotFound(w, id)
			return
		}
		writeServiceError(w, op, err)
		return
	}
	out := historyResponse{
		MahjicID:   id,
		RatingType: string(q.Family),
		History:    make([]historyEntryJSON, 0, len(page.Entries)),
		Total:      page.Total,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	for _, e := range page.Entries {
		out.History = append(out.History, historyEntryJSON{
			Date:         e.SessionDate.UTC().Format(dateLayout),
			RoundID:      e.RoundID,
			SourceName:   e.SourceName,
			GameType:     string(e.GameType),
			GamesPlayed:  e.GamesPlayed,
			Mahjongs:     e.Mahjongs,
			Points:       e.Points,
			RatingBefore: e.RatingBefore,
			RatingAfter:  e.RatingAfter,
			RatingChange: e.RatingChange(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PlayersHandler) handleRank(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.get_player_rank"
	minGames, err := intParam(r.URL.Query().Get("min_games"), h.defaultMinGames, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "min_games must be a non-negative integer")
		return
	}
	e, err := h.deps.PlayerRank(r.Context(), id, minGames)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "player_not_ranked", "Player "+id+" is not on the leaderboard")
			return
		}
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaderboardEntryJSON(e))
}

func writePlayerNotFound(w http.ResponseWriter, id string) {
	writeError(w, http.StatusNotFound, "player_not_found", "No player exists with ID "+id)
}

// writeServiceError maps read-path service errors to responses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "")
	case errors.Is(err, service.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", "Service is starting")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err).Error())
	}
}
