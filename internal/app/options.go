package service

import (
	"time"

	"github.com/okian/mahjic/internal/adapters/repository"
	"github.com/okian/mahjic/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. The caller keeps ownership and
// closes it after Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of ingest workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending submissions.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithStartingRating sets the rating new players start with.
func WithStartingRating(r float64) Option {
	return func(s *Service) {
		if r > 0 {
			s.startingRating = r
		}
	}
}

// WithHouseEmail sets the email that marks the house seat.
func WithHouseEmail(email string) Option {
	return func(s *Service) {
		if email != "" {
			s.houseEmail = email
		}
	}
}

// WithHouseRating sets the house seat's fixed rating.
func WithHouseRating(r float64) Option {
	return func(s *Service) {
		if r > 0 {
			s.houseRating = r
		}
	}
}

// WithSubmitTimeout bounds how long Submit waits for a worker.
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.submitTimeout = d
		}
	}
}

// WithIndexMetricsInterval sets how often leaderboard size is published.
func WithIndexMetricsInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.indexMetricsInterval = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
