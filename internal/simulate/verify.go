package simulate

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/okian/mahjic/pkg/logger"
)

const ratingTolerance = 1e-6

// Mismatch is a player whose stored state disagrees with the ledger.
type Mismatch struct {
	PlayerID   string
	WantRating float64
	GotRating  float64
	WantGames  int
	GotGames   int
	FetchErr   error
}

func (m Mismatch) String() string {
	if m.FetchErr != nil {
		return fmt.Sprintf("%s: %v", m.PlayerID, m.FetchErr)
	}
	return fmt.Sprintf("%s: rating %.2f want %.2f, games %d want %d",
		m.PlayerID, m.GotRating, m.WantRating, m.GotGames, m.WantGames)
}

// VerifyPlayers checks that every player's stored open rating equals the
// starting rating plus the sum of the changes reported for them, and that
// the games total matches the latest one reported. A lost update between two
// concurrent sessions breaks the sum.
func VerifyPlayers(ctx context.Context, client *Client, startingRating float64, ledger *Ledger) []Mismatch {
	changes, games := ledger.Players()

	ids := make([]string, 0, len(changes))
	for id := range changes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Mismatch
	for _, id := range ids {
		want := startingRating + changes[id]
		p, err := client.Player(ctx, id)
		if err != nil {
			out = append(out, Mismatch{PlayerID: id, FetchErr: err})
			continue
		}
		if math.Abs(p.Rating-want) > ratingTolerance || p.GamesPlayed != games[id] {
			out = append(out, Mismatch{
				PlayerID:   id,
				WantRating: want,
				GotRating:  p.Rating,
				WantGames:  games[id],
				GotGames:   p.GamesPlayed,
			})
		}
	}
	return out
}

// VerifyLeaderboard checks ordering: ratings never increase down the page and
// ranks never decrease.
func VerifyLeaderboard(entries []LeaderboardEntry) error {
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.VerifiedRating > prev.VerifiedRating {
			return fmt.Errorf("entry %d (%s, %.2f) rated above entry %d (%s, %.2f)",
				i, cur.MahjicID, cur.VerifiedRating, i-1, prev.MahjicID, prev.VerifiedRating)
		}
		if cur.Rank < prev.Rank {
			return fmt.Errorf("entry %d has rank %d below previous rank %d", i, cur.Rank, prev.Rank)
		}
	}
	return nil
}

func logMismatches(ctx context.Context, mismatches []Mismatch, verbose bool) {
	log := logger.Named("simulate")
	limit := 10
	if verbose {
		limit = len(mismatches)
	}
	for i, m := range mismatches {
		if i == limit {
			log.Warn(ctx, "more mismatches omitted", logger.Int("omitted", len(mismatches)-limit))
			return
		}
		log.Error(ctx, "player mismatch", logger.String("detail", m.String()))
	}
}
