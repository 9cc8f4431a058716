package api

import "github.com/okian/mahjic/pkg/logger"

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLeaderboardLimits sets the default and maximum leaderboard page size.
func WithLeaderboardLimits(defaultLimit, maxLimit int) Option {
	return func(s *Server) {
		if maxLimit > 0 {
			s.maxLeaderboardLimit = maxLimit
		}
		if defaultLimit > 0 {
			s.defaultLeaderboardLimit = defaultLimit
		}
	}
}

// WithDefaultMinGames sets the games floor used when min_games is absent.
func WithDefaultMinGames(n int) Option {
	return func(s *Server) {
		if n >= 0 {
			s.defaultMinGames = n
		}
	}
}

// WithMaxHistoryLimit caps the history page size.
func WithMaxHistoryLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxHistoryLimit = n
		}
	}
}

// WithHouseEmail tells validation which email is the house seat.
func WithHouseEmail(email string) Option {
	return func(s *Server) {
		if email != "" {
			s.houseEmail = email
		}
	}
}

// WithMaxRounds caps rounds per submitted session. Zero disables the cap.
func WithMaxRounds(n int) Option {
	return func(s *Server) {
		if n >= 0 {
			s.maxRounds = n
		}
	}
}

// WithMaxBodyBytes caps the session request body.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger used by handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
