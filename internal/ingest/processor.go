// Package ingest applies a validated session to the store: it resolves
// players, scores every round in order and persists the new ratings and
// history in one transaction.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/okian/mahjic/internal/adapters/repository"
	"github.com/okian/mahjic/internal/domain/model"
	"github.com/okian/mahjic/internal/domain/rating"
	"github.com/okian/mahjic/internal/domain/validation"
	"github.com/okian/mahjic/pkg/logger"
	"github.com/okian/mahjic/pkg/metrics"
)

// Defaults for the house player and new players.
const (
	DefaultStartingRating = 1500.0
	DefaultHouseEmail     = "bob@mahjic.org"
	DefaultHouseRating    = 1500.0
)

// Outcome is a committed session.
type Outcome struct {
	Result model.SessionResult
	// Players holds the final state of every real player in the session,
	// in first-appearance order.
	Players []model.Player
}

// Processor ingests sessions. It is safe for concurrent use; the store
// serializes the transactions.
type Processor struct {
	store          repository.Store
	logger         logger.Logger
	startingRating float64
	houseEmail     string
	houseRating    float64
	onCommit       func([]model.Player)
}

// NewProcessor returns a Processor writing to store.
func NewProcessor(store repository.Store, opts ...Option) *Processor {
	p := &Processor{
		store:          store,
		logger:         logger.Get().Named("ingest"),
		startingRating: DefaultStartingRating,
		houseEmail:     DefaultHouseEmail,
		houseRating:    DefaultHouseRating,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.houseEmail = strings.ToLower(p.houseEmail)
	return p
}

// session accumulates one submission's state inside the transaction.
type session struct {
	tx      repository.Tx
	players map[string]*model.Player // by submitted and stored email
	byID    map[string]*model.Player
	created map[string]bool // player ids created in this session
	order   []string        // player ids, first appearance
	results map[string]*model.PlayerResult

	changes  []familyChange
	rounds   int
	skipped  int
	newCount int
}

type familyChange struct {
	family model.RatingFamily
	change float64
}

// Process applies sub for src. Either every round is persisted or none is.
// A non-empty idempotencyKey is stored with the session and rejected with
// repository.ErrConflict when the source already used it.
func (p *Processor) Process(ctx context.Context, src model.Source, sub model.SessionSubmission, idempotencyKey string) (Outcome, error) {
	start := time.Now()
	defer func() {
		metrics.RecordIngestLatency(float64(time.Since(start).Milliseconds()))
	}()

	if len(sub.Rounds) == 0 {
		return Outcome{}, ErrEmptySession
	}
	bonus := sub.GameType.ScoresPoints()

	var out Outcome
	var st *session
	err := p.store.WithTx(ctx, func(tx repository.Tx) error {
		st = &session{
			tx:      tx,
			players: make(map[string]*model.Player),
			created: make(map[string]bool),
			byID:    make(map[string]*model.Player),
			results: make(map[string]*model.PlayerResult),
		}

		sessionID, err := tx.CreateSession(ctx, repository.SessionRecord{
			SourceID:       src.ID,
			SessionDate:    sub.SessionDate,
			GameType:       sub.GameType,
			IdempotencyKey: idempotencyKey,
		})
		if err != nil {
			return err
		}

		for i, round := range sub.Rounds {
			if err := p.applyRound(ctx, st, sessionID, i, round, bonus); err != nil {
				return fmt.Errorf("round %d: %w", i, err)
			}
		}

		out.Result.SessionID = sessionID
		for _, id := range st.order {
			out.Result.Results = append(out.Result.Results, *st.results[id])
			out.Players = append(out.Players, *st.byID[id])
		}
		if p.onCommit != nil {
			players := out.Players
			tx.AfterCommit(func() { p.onCommit(players) })
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	for i := 0; i < st.rounds; i++ {
		metrics.RecordRoundScored()
	}
	for i := 0; i < st.skipped; i++ {
		metrics.RecordVerifiedSkipped()
	}
	for i := 0; i < st.newCount; i++ {
		metrics.RecordPlayerCreated()
	}
	for _, c := range st.changes {
		metrics.RecordRatingChange(string(c.family), c.change)
	}

	p.logger.Info(ctx, "session ingested",
		logger.String("session_id", out.Result.SessionID),
		logger.String("source_id", src.ID),
		logger.String("game_type", string(sub.GameType)),
		logger.Int("rounds", st.rounds),
		logger.Int("players", len(out.Players)),
		logger.Int("new_players", st.newCount),
	)
	return out, nil
}

func (p *Processor) applyRound(ctx context.Context, st *session, sessionID string, index int, round model.RoundSubmission, bonus bool) error {
	if len(round.Players) == 0 {
		return ErrEmptyRound
	}
	gamesPlayed := round.GamesPlayed()

	seats := make([]rating.Seat, 0, len(round.Players))
	var real []*model.Player
	var inputs []model.RoundPlayerInput
	var seatIdx []int
	seated := make(map[string]int, len(round.Players))
	for i, in := range round.Players {
		if p.isHouse(in) {
			seats = append(seats, rating.HouseSeat{Rating: p.houseRating, Wins: in.Mahjongs, Points: in.Points})
			continue
		}
		pl, err := p.resolve(ctx, st, in)
		if err != nil {
			return err
		}
		if prev, ok := seated[pl.ID]; ok {
			return fmt.Errorf("%w: seats %d and %d are %s", ErrDuplicatePlayer, prev, i, pl.ID)
		}
		seated[pl.ID] = i
		seats = append(seats, rating.PlayerSeat{
			PlayerID:       pl.ID,
			OpenRating:     pl.Rating,
			VerifiedRating: pl.VerifiedRating,
			GamesPlayed:    pl.GamesPlayed,
			Verified:       pl.Verified(),
			Wins:           in.Mahjongs,
			Points:         in.Points,
		})
		real = append(real, pl)
		inputs = append(inputs, in)
		seatIdx = append(seatIdx, i)
	}

	score := rating.ScoreRound(seats, bonus)

	roundID, err := st.tx.CreateRound(ctx, repository.RoundRecord{
		SessionID:      sessionID,
		Index:          index,
		GamesPlayed:    gamesPlayed,
		WallGames:      round.WallGames,
		VerifiedScored: score.VerifiedScored,
	})
	if err != nil {
		return err
	}

	for i, ps := range score.Players {
		pl := real[i]
		openBefore, verifiedBefore := pl.Rating, pl.VerifiedRating
		openAfter := math.Round(openBefore + ps.Open.Change)
		verifiedAfter := verifiedBefore
		if ps.Verified != nil {
			verifiedAfter = math.Round(verifiedBefore + ps.Verified.Change)
		}
		games := pl.GamesPlayed + gamesPlayed

		if err := st.tx.UpdatePlayerRatings(ctx, pl.ID, openAfter, verifiedAfter, games); err != nil {
			return err
		}
		if err := st.tx.AddRoundPlayer(ctx, repository.RoundPlayerRecord{
			RoundID:   roundID,
			PlayerID:  pl.ID,
			Seat:      seatIdx[i],
			Mahjongs:  inputs[i].Mahjongs,
			Points:    inputs[i].Points,
			EloBefore: openBefore,
			EloChange: openAfter - openBefore,
		}); err != nil {
			return err
		}
		if err := st.tx.AddRatingHistory(ctx, repository.HistoryRecord{
			PlayerID: pl.ID, RoundID: roundID, Family: model.FamilyOpen,
			RatingBefore: openBefore, RatingAfter: openAfter,
		}); err != nil {
			return err
		}
		st.changes = append(st.changes, familyChange{model.FamilyOpen, openAfter - openBefore})
		if ps.Verified != nil {
			if err := st.tx.AddRatingHistory(ctx, repository.HistoryRecord{
				PlayerID: pl.ID, RoundID: roundID, Family: model.FamilyVerified,
				RatingBefore: verifiedBefore, RatingAfter: verifiedAfter,
			}); err != nil {
				return err
			}
			st.changes = append(st.changes, familyChange{model.FamilyVerified, verifiedAfter - verifiedBefore})
		}

		pl.Rating, pl.VerifiedRating, pl.GamesPlayed = openAfter, verifiedAfter, games
		st.merge(pl, openBefore, verifiedBefore, ps.Verified != nil)
	}

	st.rounds++
	if !score.VerifiedScored {
		st.skipped++
	}
	return nil
}

// merge folds one round into the player's session result: before values
// from the first round, after values from the latest, changes summed.
func (st *session) merge(pl *model.Player, openBefore, verifiedBefore float64, verifiedApplied bool) {
	r, ok := st.results[pl.ID]
	if !ok {
		r = &model.PlayerResult{
			PlayerID:             pl.ID,
			IsNew:                st.created[pl.ID],
			RatingBefore:         openBefore,
			VerifiedRatingBefore: verifiedBefore,
		}
		st.results[pl.ID] = r
		st.order = append(st.order, pl.ID)
	}
	r.BGTUserID = pl.BGTUserID
	r.Email = pl.Email
	r.RatingAfter = pl.Rating
	r.RatingChange = r.RatingAfter - r.RatingBefore
	r.VerifiedRatingAfter = pl.VerifiedRating
	r.VerifiedRatingChange = r.VerifiedRatingAfter - r.VerifiedRatingBefore
	r.GamesPlayedTotal = pl.GamesPlayed
	r.VerifiedRatingApplied = r.VerifiedRatingApplied || verifiedApplied
}

func (p *Processor) isHouse(in model.RoundPlayerInput) bool {
	return !in.Email.Anonymous() && in.Email.Email == p.houseEmail
}

// resolve finds the seat's player: by bgt_user_id, then by email (linking the
// bgt_user_id when the player has none), else a new provisional player.
func (p *Processor) resolve(ctx context.Context, st *session, in model.RoundPlayerInput) (*model.Player, error) {
	if pl, ok := st.players[in.Email.Email]; ok {
		return pl, nil
	}

	found, err := p.lookup(ctx, st.tx, in)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		np := model.Player{
			Email:          in.Email.Email,
			BGTUserID:      in.BGTUserID,
			Name:           validation.AnonymousNickname(in.Email),
			Tier:           model.TierProvisional,
			Privacy:        in.Email.Privacy,
			Rating:         p.startingRating,
			VerifiedRating: p.startingRating,
		}
		if found, err = st.tx.CreatePlayer(ctx, np); err != nil {
			return nil, err
		}
		st.created[found.ID] = true
		st.newCount++
	case err != nil:
		return nil, err
	}

	// A bgt_user_id match may carry another email than the one submitted.
	pl, ok := st.byID[found.ID]
	if !ok {
		pl = &found
		st.byID[found.ID] = pl
	}
	st.players[in.Email.Email] = pl
	st.players[pl.Email] = pl
	return pl, nil
}

func (p *Processor) lookup(ctx context.Context, tx repository.Tx, in model.RoundPlayerInput) (model.Player, error) {
	if in.BGTUserID != "" {
		pl, err := tx.PlayerByBGTUserID(ctx, in.BGTUserID)
		if !errors.Is(err, repository.ErrNotFound) {
			return pl, err
		}
	}

	pl, err := tx.PlayerByEmail(ctx, in.Email.Email)
	if err != nil {
		return model.Player{}, err
	}
	if in.BGTUserID != "" && pl.BGTUserID == "" {
		if err := tx.LinkBGTUserID(ctx, pl.ID, in.BGTUserID); err != nil {
			return model.Player{}, err
		}
		pl.BGTUserID = in.BGTUserID
		p.logger.Info(ctx, "linked player to bgt user",
			logger.String("player_id", pl.ID),
			logger.String("bgt_user_id", in.BGTUserID),
		)
	}
	return pl, nil
}
