// Package service wires the rating pipeline together and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/okian/mahjic/internal/adapters/mq/queue"
	"github.com/okian/mahjic/internal/adapters/mq/worker"
	"github.com/okian/mahjic/internal/adapters/ranking"
	"github.com/okian/mahjic/internal/adapters/repository"
	"github.com/okian/mahjic/internal/domain/dedupe"
	"github.com/okian/mahjic/internal/domain/model"
	"github.com/okian/mahjic/internal/ingest"
	"github.com/okian/mahjic/pkg/logger"
	"github.com/okian/mahjic/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Service implements the API dependencies for the rating system.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	index     *ranking.Index
	deduper   dedupe.Deduper
	queue     *queue.InMemoryQueue
	pool      *worker.Pool
	processor *ingest.Processor

	workerCount          int
	queueSize            int
	dedupeSize           int
	startingRating       float64
	houseEmail           string
	houseRating          float64
	submitTimeout        time.Duration
	indexMetricsInterval time.Duration

	started bool
	logger  logger.Logger
}

// New constructs a Service. It needs WithStore before Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:          runtime.NumCPU(),
		queueSize:            10_000,
		dedupeSize:           dedupe.DefaultMaxSize,
		startingRating:       ingest.DefaultStartingRating,
		houseEmail:           ingest.DefaultHouseEmail,
		houseRating:          ingest.DefaultHouseRating,
		submitTimeout:        10 * time.Second,
		indexMetricsInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start rebuilds the leaderboard index from the store and starts the ingest
// workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil {
		return ErrNoStore
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting rating service...")

	players, err := s.store.LeaderboardPlayers(ctx)
	if err != nil {
		return fmt.Errorf("load leaderboard: %w", err)
	}
	s.index = ranking.New(ctx, ranking.WithMetricsUpdateInterval(s.indexMetricsInterval))
	entries := make([]ranking.Entry, 0, len(players))
	for _, p := range players {
		entries = append(entries, entryFor(p))
	}
	s.index.Replace(entries)
	metrics.UpdateLeaderboardPlayers(len(entries))

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	index := s.index
	s.processor = ingest.NewProcessor(s.store,
		ingest.WithLogger(s.logger.Named("ingest")),
		ingest.WithStartingRating(s.startingRating),
		ingest.WithHouse(s.houseEmail, s.houseRating),
		ingest.WithCommitHook(func(players []model.Player) { publish(index, players) }),
	)
	s.pool = worker.NewPool(s.workerCount, s.queue, worker.ProcessorFunc(s.process),
		worker.WithLogger(s.logger.Named("worker")))
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("leaderboardPlayers", len(entries)),
	)
	return nil
}

// Stop drains queued submissions and stops background work. The store is
// left open.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping rating service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	_ = s.index.Close()

	s.started = false
	s.logger.Info(ctx, "rating service stopped")
}

// process is the worker entry point. The index is updated by the commit
// hook, not here, so concurrent workers publish in commit order.
func (s *Service) process(ctx context.Context, job queue.Job) (model.SessionResult, error) {
	out, err := s.processor.Process(ctx, job.Source, job.Submission, job.IdempotencyKey)
	if err != nil {
		return model.SessionResult{}, err
	}
	return out.Result, nil
}

// publish applies committed player state to the leaderboard index.
func publish(index *ranking.Index, players []model.Player) {
	for _, p := range players {
		if p.OnLeaderboard() {
			index.Set(entryFor(p))
		} else {
			index.Remove(p.ID)
		}
	}
}

func entryFor(p model.Player) ranking.Entry {
	return ranking.Entry{PlayerID: p.ID, Name: p.Name, Rating: p.VerifiedRating, GamesPlayed: p.GamesPlayed}
}

// running returns the started components under the read lock.
func (s *Service) running() (*ranking.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.index, nil
}

// Authenticate resolves an API key to an approved source.
func (s *Service) Authenticate(ctx context.Context, apiKey string) (model.Source, error) {
	if apiKey == "" {
		return model.Source{}, ErrUnauthorized
	}
	if s.store == nil {
		return model.Source{}, ErrNoStore
	}
	src, err := s.store.SourceByAPIKey(ctx, apiKey)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Source{}, ErrUnauthorized
	}
	if err != nil {
		return model.Source{}, err
	}
	if !src.Approved() {
		return src, ErrForbidden
	}
	return src, nil
}

// Submit queues a validated session and waits for its result. A non-empty
// idempotencyKey makes repeats from the same source fail with ErrDuplicate.
func (s *Service) Submit(ctx context.Context, src model.Source, sub model.SessionSubmission, idempotencyKey string) (model.SessionResult, error) {
	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return model.SessionResult{}, ErrNotStarted
	}
	q, d, timeout := s.queue, s.deduper, s.submitTimeout
	s.mu.RUnlock()

	var key string
	if idempotencyKey != "" {
		key = dedupe.Key(src.ID, idempotencyKey)
		if d.SeenAndRecord(ctx, key) {
			metrics.RecordSessionDuplicate()
			return model.SessionResult{}, ErrDuplicate
		}
	}
	forget := func() {
		if key != "" {
			d.Unrecord(ctx, key)
		}
	}

	job := queue.NewJob(uuid.NewString(), src, sub, idempotencyKey)
	if err := q.Enqueue(ctx, job); err != nil {
		forget()
		switch {
		case errors.Is(err, queue.ErrFull):
			return model.SessionResult{}, ErrBackpressure
		case errors.Is(err, queue.ErrClosed):
			return model.SessionResult{}, ErrUnavailable
		}
		return model.SessionResult{}, err
	}
	metrics.RecordSessionSubmitted()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-job.Reply:
		if r.Err == nil {
			return r.Result, nil
		}
		if errors.Is(r.Err, repository.ErrConflict) {
			metrics.RecordSessionDuplicate()
			return model.SessionResult{}, errors.Wrap(ErrDuplicate, r.Err.Error())
		}
		forget()
		if errors.Is(r.Err, ingest.ErrDuplicatePlayer) {
			return model.SessionResult{}, errors.Wrap(ErrInvalidSession, r.Err.Error())
		}
		return model.SessionResult{}, r.Err
	case <-timer.C:
		// The job may still commit, so the key stays recorded.
		return model.SessionResult{}, ErrTimeout
	case <-ctx.Done():
		return model.SessionResult{}, ctx.Err()
	}
}

// Leaderboard returns a page of the verified leaderboard.
func (s *Service) Leaderboard(ctx context.Context, offset, limit, minGames int) ([]model.LeaderboardEntry, int, error) {
	index, err := s.running()
	if err != nil {
		return nil, 0, err
	}
	page, total, err := index.Page(ctx, offset, limit, minGames)
	if errors.Is(err, ranking.ErrInvalidLimit) {
		return nil, 0, errors.Wrap(ErrInvalidQuery, err.Error())
	}
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.LeaderboardEntry, len(page))
	for i, r := range page {
		out[i] = leaderboardEntry(r)
	}
	return out, total, nil
}

// PlayerRank returns the player's leaderboard position among players with
// at least minGames games.
func (s *Service) PlayerRank(ctx context.Context, playerID string, minGames int) (model.LeaderboardEntry, error) {
	index, err := s.running()
	if err != nil {
		return model.LeaderboardEntry{}, err
	}
	r, err := index.Rank(ctx, playerID, minGames)
	if errors.Is(err, ranking.ErrNotFound) {
		return model.LeaderboardEntry{}, ErrNotFound
	}
	if err != nil {
		return model.LeaderboardEntry{}, err
	}
	return leaderboardEntry(r), nil
}

func leaderboardEntry(r ranking.Ranked) model.LeaderboardEntry {
	return model.LeaderboardEntry{
		Rank:           r.Rank,
		PlayerID:       r.PlayerID,
		Name:           r.Name,
		VerifiedRating: r.Rating,
		GamesPlayed:    r.GamesPlayed,
	}
}

// Player returns a public player. Private and anonymous players are
// reported as not found.
func (s *Service) Player(ctx context.Context, id string) (model.Player, error) {
	if s.store == nil {
		return model.Player{}, ErrNoStore
	}
	p, err := s.store.Player(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Player{}, ErrNotFound
	}
	if err != nil {
		return model.Player{}, err
	}
	if !p.Privacy.Public() {
		return model.Player{}, ErrNotFound
	}
	return p, nil
}

// History returns a public player's rating history, newest first.
func (s *Service) History(ctx context.Context, id string, q model.HistoryQuery) (model.HistoryPage, error) {
	if _, err := s.Player(ctx, id); err != nil {
		return model.HistoryPage{}, err
	}
	if q.Limit < 1 || q.Offset < 0 || (q.Family != "" && !q.Family.Valid()) {
		return model.HistoryPage{}, ErrInvalidQuery
	}
	return s.store.History(ctx, id, q)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if !s.started {
		return stats
	}

	stats["queueLength"] = s.queue.Len(ctx)
	stats["leaderboardPlayers"] = s.index.Len()
	stats["dedupeEntries"] = s.deduper.Size()

	st, err := s.store.Stats(ctx)
	if err != nil {
		s.logger.Warn(ctx, "store stats unavailable", logger.Error(err))
		return stats
	}
	stats["players"] = st.Players
	stats["verifiedPlayers"] = st.VerifiedPlayers
	stats["sources"] = st.Sources
	stats["sessions"] = st.Sessions
	stats["rounds"] = st.Rounds
	return stats
}
