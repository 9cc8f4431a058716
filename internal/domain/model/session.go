package model

import "time"

// GameType is the kind of contest a session was played as.
type GameType string

const (
	GameSocial     GameType = "social"
	GameLeague     GameType = "league"
	GameTournament GameType = "tournament"
)

// GameTypes lists the accepted game types in display order.
var GameTypes = []GameType{GameSocial, GameLeague, GameTournament}

// Valid reports whether t is a known game type.
func (t GameType) Valid() bool {
	switch t {
	case GameSocial, GameLeague, GameTournament:
		return true
	}
	return false
}

// ScoresPoints reports whether the contest keeps points, which both makes
// points mandatory and enables the rating points bonus.
func (t GameType) ScoresPoints() bool {
	return t == GameLeague || t == GameTournament
}

// RatingFamily names one of the two ratings every player carries.
type RatingFamily string

const (
	// FamilyOpen is scored over every seat at the table.
	FamilyOpen RatingFamily = "mahjic"
	// FamilyVerified is scored over verified seats only.
	FamilyVerified RatingFamily = "verified"
)

// Valid reports whether f is a known family.
func (f RatingFamily) Valid() bool { return f == FamilyOpen || f == FamilyVerified }

// SessionSubmission is a validated session as sent by a source.
type SessionSubmission struct {
	SessionDate time.Time // calendar date, UTC midnight
	GameType    GameType
	Rounds      []RoundSubmission
}

// RoundSubmission is one sequence of games played by the same table.
type RoundSubmission struct {
	WallGames int
	Players   []RoundPlayerInput
}

// GamesPlayed is the shared games_played of the round's seats.
func (r RoundSubmission) GamesPlayed() int {
	if len(r.Players) == 0 {
		return 0
	}
	return r.Players[0].GamesPlayed
}

// RoundPlayerInput is one seat as submitted.
type RoundPlayerInput struct {
	Email       ParsedEmail
	BGTUserID   string
	GamesPlayed int
	Mahjongs    int
	Points      *float64
}

// ParsedEmail is a submitted identifier with its privacy prefix resolved.
type ParsedEmail struct {
	// Email is the lookup key. For anonymous players it keeps the full
	// prefixed identifier so nicknames stay local to the submission.
	Email   string
	Privacy PrivacyMode
}

// Anonymous reports whether the identifier carries no real email.
func (e ParsedEmail) Anonymous() bool { return e.Privacy == PrivacyAnonymous }
