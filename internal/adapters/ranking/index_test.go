package ranking_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/okian/mahjic/internal/adapters/ranking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndex(t *testing.T) *ranking.Index {
	t.Helper()
	x := ranking.New(context.Background())
	t.Cleanup(func() { _ = x.Close() })
	return x
}

func ids(rs []ranking.Ranked) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.PlayerID
	}
	return out
}

func TestIndex_Ordering(t *testing.T) {
	ctx := context.Background()
	x := newIndex(t)

	x.Set(ranking.Entry{PlayerID: "c", Rating: 1500, GamesPlayed: 40})
	x.Set(ranking.Entry{PlayerID: "a", Rating: 1620, GamesPlayed: 40})
	x.Set(ranking.Entry{PlayerID: "b", Rating: 1500, GamesPlayed: 40})
	x.Set(ranking.Entry{PlayerID: "d", Rating: 1388, GamesPlayed: 40})

	page, total, err := x.Page(ctx, 0, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(page))
	for i, r := range page {
		assert.Equal(t, i+1, r.Rank)
	}

	// Equal ratings get distinct positions, lower id first.
	tied, err := x.Rank(ctx, "c", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, tied.Rank)
}

func TestIndex_SetMovesBothWays(t *testing.T) {
	ctx := context.Background()
	x := newIndex(t)

	x.Set(ranking.Entry{PlayerID: "a", Rating: 1600})
	x.Set(ranking.Entry{PlayerID: "b", Rating: 1500})
	x.Set(ranking.Entry{PlayerID: "c", Rating: 1400})

	x.Set(ranking.Entry{PlayerID: "a", Rating: 1350})
	page, _, err := x.Page(ctx, 0, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, ids(page))

	x.Set(ranking.Entry{PlayerID: "c", Rating: 1700, Name: "Cee"})
	page, _, err = x.Page(ctx, 0, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(page))
	assert.Equal(t, "Cee", page[0].Name)
	assert.Equal(t, 3, x.Len())
}

func TestIndex_PageOffsetAndMinGames(t *testing.T) {
	ctx := context.Background()
	x := newIndex(t)

	for i := 0; i < 10; i++ {
		x.Set(ranking.Entry{PlayerID: fmt.Sprintf("p%02d", i), Rating: float64(2000 - i*10), GamesPlayed: i * 5})
	}

	page, total, err := x.Page(ctx, 3, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.Equal(t, []string{"p03", "p04"}, ids(page))
	assert.Equal(t, 4, page[0].Rank)
	assert.Equal(t, 5, page[1].Rank)

	// Players p02.. have >= 10 games.
	page, total, err = x.Page(ctx, 0, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 8, total)
	assert.Equal(t, []string{"p02", "p03", "p04"}, ids(page))
	assert.Equal(t, 1, page[0].Rank)

	page, total, err = x.Page(ctx, 6, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 8, total)
	assert.Equal(t, []string{"p08", "p09"}, ids(page))
	assert.Equal(t, 7, page[0].Rank)

	page, _, err = x.Page(ctx, 50, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, page)

	_, _, err = x.Page(ctx, 0, 0, 0)
	assert.ErrorIs(t, err, ranking.ErrInvalidLimit)
}

func TestIndex_RankMatchesPage(t *testing.T) {
	ctx := context.Background()
	x := newIndex(t)

	for i := 0; i < 50; i++ {
		x.Set(ranking.Entry{PlayerID: fmt.Sprintf("p%02d", i), Rating: float64(1400 + (i*37)%300), GamesPlayed: i % 20})
	}

	for _, minGames := range []int{0, 10} {
		page, total, err := x.Page(ctx, 0, 100, minGames)
		require.NoError(t, err)
		require.Len(t, page, total)
		for _, r := range page {
			got, err := x.Rank(ctx, r.PlayerID, minGames)
			require.NoError(t, err)
			assert.Equal(t, r.Rank, got.Rank, "player %s minGames %d", r.PlayerID, minGames)
		}
	}

	_, err := x.Rank(ctx, "p01", 10)
	assert.ErrorIs(t, err, ranking.ErrNotFound)
	_, err = x.Rank(ctx, "nobody", 0)
	assert.ErrorIs(t, err, ranking.ErrNotFound)
}

func TestIndex_RemoveAndReplace(t *testing.T) {
	ctx := context.Background()
	x := newIndex(t)

	x.Set(ranking.Entry{PlayerID: "a", Rating: 1500})
	x.Set(ranking.Entry{PlayerID: "b", Rating: 1600})
	assert.True(t, x.Remove("a"))
	assert.False(t, x.Remove("a"))
	_, ok := x.Get("a")
	assert.False(t, ok)

	x.Replace([]ranking.Entry{{PlayerID: "z", Rating: 1000}, {PlayerID: "y", Rating: 1100}})
	page, total, err := x.Page(ctx, 0, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, []string{"y", "z"}, ids(page))
}

func TestIndex_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	x := newIndex(t)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("p%d", (w*200+i)%300)
				x.Set(ranking.Entry{PlayerID: id, Rating: float64(1000 + (w*i)%900), GamesPlayed: i})
				_, _, _ = x.Page(ctx, 0, 10, 5)
				_, _ = x.Rank(ctx, id, 0)
			}
		}(w)
	}
	wg.Wait()

	page, total, err := x.Page(ctx, 0, 1000, 0)
	require.NoError(t, err)
	assert.Equal(t, 300, total)
	assert.Len(t, page, 300)
	assert.True(t, sort.SliceIsSorted(page, func(i, j int) bool {
		if page[i].Rating != page[j].Rating {
			return page[i].Rating > page[j].Rating
		}
		return page[i].PlayerID < page[j].PlayerID
	}))
}

func TestIndex_CloseIsIdempotent(t *testing.T) {
	x := ranking.New(context.Background())
	require.NoError(t, x.Close())
	require.NoError(t, x.Close())
}
