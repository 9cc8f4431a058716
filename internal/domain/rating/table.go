package rating

// Participant is a seat's state as of the start of the round.
type Participant struct {
	ID          string
	Rating      float64
	GamesPlayed int
	Wins        int
	// Points is nil when the contest carries no score for this seat.
	Points *float64
}

// Delta is the outcome of a round for one participant.
type Delta struct {
	ID           string
	RatingBefore float64
	RatingAfter  float64
	Change       float64
	KFactor      float64
}

// ComputeTableDeltas scores one round for every participant, in input order.
//
// Opponents are told apart by position, so two seats may share an id or a
// rating. All pairings read pre-round ratings. The summed change is rounded
// to cents once per participant. The points bonus is only added when
// includeBonus is set and both sides of a pairing carry points.
func ComputeTableDeltas(participants []Participant, includeBonus bool) []Delta {
	out := make([]Delta, len(participants))
	for i, p := range participants {
		k := KFactor(p.GamesPlayed)

		var total float64
		for j, o := range participants {
			if i == j {
				continue
			}
			total += pairContribution(p, o, k, includeBonus)
		}

		change := roundCents(total)
		out[i] = Delta{
			ID:           p.ID,
			RatingBefore: p.Rating,
			RatingAfter:  p.Rating + change,
			Change:       change,
			KFactor:      k,
		}
	}
	return out
}

func pairContribution(p, o Participant, k float64, includeBonus bool) float64 {
	c := k * (ActualScore(p.Wins, o.Wins) - ExpectedScore(p.Rating, o.Rating))
	if includeBonus && p.Points != nil && o.Points != nil {
		c += PointsBonus(*p.Points, *o.Points)
	}
	return c
}
