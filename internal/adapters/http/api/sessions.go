package api

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	service "github.com/okian/mahjic/internal/app"
	"github.com/okian/mahjic/internal/domain/model"
	"github.com/okian/mahjic/internal/domain/validation"
	"github.com/okian/mahjic/pkg/logger"
	"github.com/okian/mahjic/pkg/metrics"
)

// SessionDependencies defines the operations behind POST /api/v1/sessions.
type SessionDependencies interface {
	Authenticate(ctx context.Context, apiKey string) (model.Source, error)
	Submit(ctx context.Context, src model.Source, sub model.SessionSubmission, idempotencyKey string) (model.SessionResult, error)
}

// SessionsHandler accepts session submissions from approved sources.
type SessionsHandler struct {
	deps         SessionDependencies
	houseEmail   string
	maxRounds    int
	maxBodyBytes int64
	logger       logger.Logger
}

type playerResultJSON struct {
	MahjicID              string  `json:"mahjic_id"`
	BGTUserID             *string `json:"bgt_user_id"`
	Email                 string  `json:"email"`
	IsNewPlayer           bool    `json:"is_new_player"`
	RatingBefore          float64 `json:"rating_before"`
	RatingAfter           float64 `json:"rating_after"`
	RatingChange          float64 `json:"rating_change"`
	VerifiedRatingBefore  float64 `json:"verified_rating_before"`
	VerifiedRatingAfter   float64 `json:"verified_rating_after"`
	VerifiedRatingChange  float64 `json:"verified_rating_change"`
	GamesPlayedTotal      int     `json:"games_played_total"`
	VerifiedRatingApplied bool    `json:"verified_rating_applied"`
}

type sessionResponse struct {
	SessionID string             `json:"session_id"`
	Results   []playerResultJSON `json:"results"`
}

const bearerPrefix = "Bearer "

// HandlePostSession handles POST /api/v1/sessions.
func (h *SessionsHandler) HandlePostSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_session"
	if methodNotAllowed(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()

	src, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.RecordSessionRejected("too_large")
			writeError(w, http.StatusRequestEntityTooLarge, "request_too_large", "Request body is too large")
			return
		}
		metrics.RecordSessionRejected("invalid_json")
		writeError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}

	sub, err := validation.ParseSession(raw, validation.WithHouseEmail(h.houseEmail), validation.WithMaxRounds(h.maxRounds))
	if err != nil {
		var verrs validation.Errors
		switch {
		case errors.As(err, &verrs):
			metrics.RecordSessionRejected("invalid_session")
			writeErrorDetails(w, http.StatusBadRequest, "invalid_session",
				"Validation failed: "+strings.Join(verrs.Messages(), "; "), []validation.FieldError(verrs))
		default:
			metrics.RecordSessionRejected("invalid_json")
			writeError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		}
		return
	}

	res, err := h.deps.Submit(ctx, src, sub, strings.TrimSpace(r.Header.Get("Idempotency-Key")))
	if err != nil {
		h.writeSubmitError(ctx, w, op, src, err)
		return
	}

	out := sessionResponse{SessionID: res.SessionID, Results: make([]playerResultJSON, 0, len(res.Results))}
	for _, pr := range res.Results {
		out.Results = append(out.Results, playerResultJSON{
			MahjicID:              pr.PlayerID,
			BGTUserID:             nullable(pr.BGTUserID),
			Email:                 pr.Email,
			IsNewPlayer:           pr.IsNew,
			RatingBefore:          pr.RatingBefore,
			RatingAfter:           pr.RatingAfter,
			RatingChange:          pr.RatingChange,
			VerifiedRatingBefore:  pr.VerifiedRatingBefore,
			VerifiedRatingAfter:   pr.VerifiedRatingAfter,
			VerifiedRatingChange:  pr.VerifiedRatingChange,
			GamesPlayedTotal:      pr.GamesPlayedTotal,
			VerifiedRatingApplied: pr.VerifiedRatingApplied,
		})
	}
	writeJSON(w, http.StatusCreated, out)
}

// authenticate resolves the bearer key to an approved source or writes the
// 401/403 response.
func (h *SessionsHandler) authenticate(w http.ResponseWriter, r *http.Request) (model.Source, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		h.reject(w, http.StatusUnauthorized, "Missing Authorization header")
		return model.Source{}, false
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		h.reject(w, http.StatusUnauthorized, "Invalid Authorization header format. Expected: Bearer <api_key>")
		return model.Source{}, false
	}
	key := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if key == "" {
		h.reject(w, http.StatusUnauthorized, "API key is required")
		return model.Source{}, false
	}

	src, err := h.deps.Authenticate(r.Context(), key)
	switch {
	case err == nil:
		return src, true
	case errors.Is(err, service.ErrForbidden):
		h.reject(w, http.StatusForbidden, "Source not approved. Your application is still under review.")
	case errors.Is(err, service.ErrUnauthorized):
		h.reject(w, http.StatusUnauthorized, "Invalid API key")
	default:
		h.logger.Error(r.Context(), "authentication failed", logger.Error(Wrap("api.authenticate", err)))
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
	return model.Source{}, false
}

func (h *SessionsHandler) reject(w http.ResponseWriter, status int, message string) {
	metrics.RecordSessionRejected("unauthorized")
	writeError(w, status, "invalid_api_key", message)
}

func (h *SessionsHandler) writeSubmitError(ctx context.Context, w http.ResponseWriter, op string, src model.Source, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSession):
		metrics.RecordSessionRejected("invalid_session")
		writeError(w, http.StatusBadRequest, "invalid_session", err.Error())
	case errors.Is(err, service.ErrDuplicate):
		writeError(w, http.StatusConflict, "duplicate_submission", "A session with this Idempotency-Key was already submitted")
	case errors.Is(err, service.ErrBackpressure):
		metrics.RecordSessionRejected("backpressure")
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "backpressure", "Too many submissions in flight, retry shortly")
	case errors.Is(err, service.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "timeout", "Session processing timed out")
	case errors.Is(err, service.ErrUnavailable), errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", "Service is not accepting submissions")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		h.logger.Error(ctx, "session processing failed",
			logger.String("source_id", src.ID),
			logger.Error(Wrap(op, err)))
		writeError(w, http.StatusInternalServerError, "processing_error", "Failed to process session")
	}
}
