// Package ranking keeps the verified leaderboard in memory.
//
// The Index holds every leaderboard-eligible player (verified tier, normal
// privacy) ordered by verified rating, highest first, ties broken by player
// id. It is rebuilt from the store at startup and updated after every
// committed session, so reads never touch the database.
package ranking

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/mahjic/pkg/metrics"
)

// Entry is one indexed player.
type Entry struct {
	PlayerID    string
	Name        string
	Rating      float64
	GamesPlayed int
}

// Ranked is an Entry with its 1-based leaderboard position.
type Ranked struct {
	Rank int
	Entry
}

// Index is a treap-backed leaderboard safe for concurrent use.
type Index struct {
	mu   sync.RWMutex
	root *node
	byID map[string]Entry

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// New constructs an empty index and starts its metrics updater, which stops
// on ctx cancellation or Close.
func New(ctx context.Context, opts ...Option) *Index {
	x := &Index{
		byID:                  make(map[string]Entry),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(x)
	}
	x.startMetricsUpdater(ctx)
	return x
}

// Close stops background work.
func (x *Index) Close() error {
	x.stopOnce.Do(func() { close(x.stopChan) })
	x.wg.Wait()
	return nil
}

// Set inserts the player or moves it to its new position. Ratings move both
// ways, so an existing entry is always removed first.
func (x *Index) Set(e Entry) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.setLocked(e)
}

// Replace swaps the whole index content, used for the startup rebuild.
func (x *Index) Replace(entries []Entry) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.root = nil
	x.byID = make(map[string]Entry, len(entries))
	for _, e := range entries {
		x.setLocked(e)
	}
}

func (x *Index) setLocked(e Entry) {
	if old, ok := x.byID[e.PlayerID]; ok {
		x.root = deleteNode(x.root, old.PlayerID, old.Rating)
	}
	x.byID[e.PlayerID] = e
	x.root = insert(x.root, e.PlayerID, e.Rating, rand.Uint64())
}

// Remove drops the player. It reports whether the player was indexed.
func (x *Index) Remove(playerID string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	old, ok := x.byID[playerID]
	if !ok {
		return false
	}
	x.root = deleteNode(x.root, old.PlayerID, old.Rating)
	delete(x.byID, playerID)
	return true
}

// Get returns the indexed entry for the player.
func (x *Index) Get(playerID string) (Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.byID[playerID]
	return e, ok
}

// Len returns the number of indexed players.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byID)
}

// Rank returns the player's position among players with at least minGames
// games. Positions match the ranks Page reports for the same minGames.
func (x *Index) Rank(_ context.Context, playerID string, minGames int) (Ranked, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency("ranking_rank", float64(time.Since(start).Milliseconds()))
	}()

	x.mu.RLock()
	defer x.mu.RUnlock()

	e, ok := x.byID[playerID]
	if !ok || e.GamesPlayed < minGames {
		return Ranked{}, ErrNotFound
	}
	if minGames <= 0 {
		return Ranked{Rank: position(x.root, e.PlayerID, e.Rating) + 1, Entry: e}, nil
	}

	rank := 0
	walkFrom(x.root, 0, func(n *node) bool {
		if x.byID[n.id].GamesPlayed >= minGames {
			rank++
		}
		return n.id != playerID
	})
	return Ranked{Rank: rank, Entry: e}, nil
}

// Page returns up to limit players starting at offset, counting only players
// with at least minGames games, plus the total number of such players.
func (x *Index) Page(_ context.Context, offset, limit, minGames int) ([]Ranked, int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency("ranking_page", float64(time.Since(start).Milliseconds()))
	}()

	if limit < 1 {
		return nil, 0, ErrInvalidLimit
	}
	if offset < 0 {
		offset = 0
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]Ranked, 0, min(limit, len(x.byID)))

	if minGames <= 0 {
		total := nsize(x.root)
		rank := offset
		walkFrom(x.root, offset, func(n *node) bool {
			rank++
			out = append(out, Ranked{Rank: rank, Entry: x.byID[n.id]})
			return len(out) < limit
		})
		return out, total, nil
	}

	total := 0
	walkFrom(x.root, 0, func(n *node) bool {
		e := x.byID[n.id]
		if e.GamesPlayed < minGames {
			return true
		}
		total++
		if total > offset && len(out) < limit {
			out = append(out, Ranked{Rank: total, Entry: e})
		}
		return true
	})
	return out, total, nil
}

func (x *Index) startMetricsUpdater(ctx context.Context) {
	x.wg.Add(1)
	go func() {
		defer x.wg.Done()
		ticker := time.NewTicker(x.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-x.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateLeaderboardPlayers(x.Len())
			}
		}
	}()
}
