package ingest

import "errors"

var (
	// ErrEmptySession is returned for a submission without rounds.
	ErrEmptySession = errors.New("session has no rounds")
	// ErrEmptyRound is returned for a round without seats.
	ErrEmptyRound = errors.New("round has no players")
	// ErrDuplicatePlayer is returned when two seats of one round resolve to
	// the same stored player, e.g. one by bgt_user_id and one by email.
	ErrDuplicatePlayer = errors.New("player seated twice in one round")
)
