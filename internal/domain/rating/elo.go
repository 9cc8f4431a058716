// Package rating computes pairwise multiplayer rating changes for a mahjong
// table.
//
// Every seat is compared against every other seat at the table. The seat with
// more mahjongs (winning hands) in the round wins the pairing, equal counts
// tie. Each pairing contributes K*(actual-expected) to the seat's change, with
// K picked from the seat's own lifetime games played, so a table with mixed
// experience is not zero-sum. Scored contests (league, tournament) add a small
// bounded bonus from the point differential.
//
// The package is pure: no I/O, no shared state. Callers fetch ratings before a
// round and persist the results.
package rating

import "math"

// Rating scale.
const (
	// StartingRating is the rating every new player starts from.
	StartingRating = 1500.0
	// Deviation is the logistic scale: a 400 point gap is 10:1 expected odds.
	Deviation = 400.0
)

// K-factor bands over lifetime games played.
const (
	NewPlayerGames = 30  // below this a player is new
	MidPlayerGames = 100 // up to and including this a player is intermediate

	KNew         = 32.0
	KMid         = 24.0
	KExperienced = 16.0
)

// Points bonus for scored contests.
const (
	PointsBonusDivisor = 50.0
	PointsBonusCap     = 5.0
)

// ExpectedScore is the expected share of a pairing for a player rated
// ratingA against one rated ratingB.
func ExpectedScore(ratingA, ratingB float64) float64 {
	return 1 / (1 + math.Pow(10, (ratingB-ratingA)/Deviation))
}

// ActualScore compares mahjong counts: 1 for more, 0.5 for equal, 0 for fewer.
func ActualScore(mine, theirs int) float64 {
	switch {
	case mine > theirs:
		return 1
	case mine == theirs:
		return 0.5
	default:
		return 0
	}
}

// KFactor returns the sensitivity for a player with gamesPlayed lifetime games.
func KFactor(gamesPlayed int) float64 {
	switch {
	case gamesPlayed < NewPlayerGames:
		return KNew
	case gamesPlayed <= MidPlayerGames:
		return KMid
	default:
		return KExperienced
	}
}

// PointsBonus is (mine-theirs)/50 clamped to [-5, 5].
func PointsBonus(mine, theirs float64) float64 {
	bonus := (mine - theirs) / PointsBonusDivisor
	return math.Max(-PointsBonusCap, math.Min(PointsBonusCap, bonus))
}

// roundCents rounds to two decimal places, half away from zero.
func roundCents(x float64) float64 {
	r := math.Round(x*100) / 100
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}
