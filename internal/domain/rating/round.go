package rating

// Seat is one position at a table. It is either a PlayerSeat, a real player
// whose ratings are persisted, or a HouseSeat, a synthetic filler with a fixed
// rating that is never persisted.
type Seat interface {
	seat()
}

// PlayerSeat is a real player's state at the start of the round.
type PlayerSeat struct {
	PlayerID       string
	OpenRating     float64
	VerifiedRating float64
	GamesPlayed    int
	Verified       bool
	Wins           int
	Points         *float64
}

// HouseSeat fills an empty seat. It takes part in every comparison, counts as
// verified, and never appears in a RoundScore.
type HouseSeat struct {
	Rating float64
	Wins   int
	Points *float64
}

func (PlayerSeat) seat() {}
func (HouseSeat) seat()  {}

// PlayerScore carries both rating families for one real player.
type PlayerScore struct {
	PlayerID string
	Open     Delta
	// Verified is nil when the verified family was not scored for this
	// player: either the player is not verified or the table had fewer than
	// two verified seats.
	Verified *Delta
}

// RoundScore is the engine output for a round, real players only, in seat
// order.
type RoundScore struct {
	Players        []PlayerScore
	VerifiedScored bool
}

// ScoreRound scores a round twice: the open family over every seat and the
// verified family over verified seats only, when there are at least two.
func ScoreRound(seats []Seat, includeBonus bool) RoundScore {
	open := make([]Participant, 0, len(seats))
	// owner[i] is the index into Players for open[i], -1 for house seats.
	owner := make([]int, 0, len(seats))

	var verified []Participant
	var verifiedOwner []int

	score := RoundScore{Players: make([]PlayerScore, 0, len(seats))}
	for _, s := range seats {
		switch s := s.(type) {
		case PlayerSeat:
			idx := len(score.Players)
			score.Players = append(score.Players, PlayerScore{PlayerID: s.PlayerID})
			open = append(open, Participant{ID: s.PlayerID, Rating: s.OpenRating, GamesPlayed: s.GamesPlayed, Wins: s.Wins, Points: s.Points})
			owner = append(owner, idx)
			if s.Verified {
				verified = append(verified, Participant{ID: s.PlayerID, Rating: s.VerifiedRating, GamesPlayed: s.GamesPlayed, Wins: s.Wins, Points: s.Points})
				verifiedOwner = append(verifiedOwner, idx)
			}
		case HouseSeat:
			p := Participant{Rating: s.Rating, Wins: s.Wins, Points: s.Points}
			open = append(open, p)
			owner = append(owner, -1)
			verified = append(verified, p)
			verifiedOwner = append(verifiedOwner, -1)
		}
	}

	for i, d := range ComputeTableDeltas(open, includeBonus) {
		if owner[i] >= 0 {
			score.Players[owner[i]].Open = d
		}
	}

	if len(verified) < 2 {
		return score
	}
	score.VerifiedScored = true
	for i, d := range ComputeTableDeltas(verified, includeBonus) {
		if verifiedOwner[i] >= 0 {
			d := d
			score.Players[verifiedOwner[i]].Verified = &d
		}
	}
	return score
}
