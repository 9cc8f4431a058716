package ingest

import (
	"github.com/okian/mahjic/internal/domain/model"
	"github.com/okian/mahjic/pkg/logger"
)

// Option applies a configuration option to the Processor.
type Option func(*Processor)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithStartingRating sets the rating new players start with in both families.
func WithStartingRating(r float64) Option {
	return func(p *Processor) {
		if r > 0 {
			p.startingRating = r
		}
	}
}

// WithHouse sets the house player's email and fixed rating.
func WithHouse(email string, rating float64) Option {
	return func(p *Processor) {
		if email != "" {
			p.houseEmail = email
		}
		if rating > 0 {
			p.houseRating = rating
		}
	}
}

// WithCommitHook sets fn to receive the final players of every committed
// session. It runs before the store admits the next write, so calls arrive
// in commit order.
func WithCommitHook(fn func(players []model.Player)) Option {
	return func(p *Processor) {
		p.onCommit = fn
	}
}
