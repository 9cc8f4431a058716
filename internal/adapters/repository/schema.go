package repository

// Timestamps are unix milliseconds so both drivers read them the same way.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS verified_sources (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		slug          TEXT NOT NULL UNIQUE,
		api_key       TEXT NOT NULL UNIQUE,
		contact_email TEXT NOT NULL DEFAULT '',
		created_at    BIGINT NOT NULL,
		approved_at   BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS players (
		id              TEXT PRIMARY KEY,
		email           TEXT NOT NULL UNIQUE,
		name            TEXT NOT NULL DEFAULT '',
		bgt_user_id     TEXT UNIQUE,
		tier            TEXT NOT NULL,
		privacy_mode    TEXT NOT NULL,
		mahjic_rating   DOUBLE PRECISION NOT NULL,
		verified_rating DOUBLE PRECISION NOT NULL,
		games_played    INTEGER NOT NULL DEFAULT 0,
		created_at      BIGINT NOT NULL,
		updated_at      BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS players_leaderboard ON players (tier, privacy_mode)`,
	`CREATE TABLE IF NOT EXISTS game_sessions (
		id              TEXT PRIMARY KEY,
		source_id       TEXT NOT NULL REFERENCES verified_sources (id),
		session_date    TEXT NOT NULL,
		game_type       TEXT NOT NULL,
		idempotency_key TEXT,
		created_at      BIGINT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS game_sessions_idempotency ON game_sessions (source_id, idempotency_key)`,
	`CREATE TABLE IF NOT EXISTS rounds (
		id              TEXT PRIMARY KEY,
		session_id      TEXT NOT NULL REFERENCES game_sessions (id) ON DELETE CASCADE,
		round_index     INTEGER NOT NULL,
		games_played    INTEGER NOT NULL,
		wall_games      INTEGER NOT NULL,
		verified_scored INTEGER NOT NULL DEFAULT 0,
		created_at      BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS round_players (
		id         TEXT PRIMARY KEY,
		round_id   TEXT NOT NULL REFERENCES rounds (id) ON DELETE CASCADE,
		player_id  TEXT NOT NULL REFERENCES players (id),
		seat       INTEGER NOT NULL,
		mahjongs   INTEGER NOT NULL,
		points     DOUBLE PRECISION,
		elo_before DOUBLE PRECISION NOT NULL,
		elo_change DOUBLE PRECISION NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rating_history (
		id            TEXT PRIMARY KEY,
		player_id     TEXT NOT NULL REFERENCES players (id),
		round_id      TEXT NOT NULL REFERENCES rounds (id) ON DELETE CASCADE,
		rating_type   TEXT NOT NULL,
		rating_before DOUBLE PRECISION NOT NULL,
		rating_after  DOUBLE PRECISION NOT NULL,
		created_at    BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS rating_history_player ON rating_history (player_id, rating_type, created_at)`,
}
