package simulate

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/mahjic/pkg/logger"
)

const progressInterval = time.Second

// Ledger sums every reported rating change per player.
type Ledger struct {
	mu      sync.Mutex
	changes map[string]float64
	games   map[string]int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{changes: make(map[string]float64), games: make(map[string]int)}
}

// Record folds one accepted session into the ledger.
func (l *Ledger) Record(resp SessionResponse) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range resp.Results {
		l.changes[r.MahjicID] += r.RatingChange
		if r.GamesTotal > l.games[r.MahjicID] {
			l.games[r.MahjicID] = r.GamesTotal
		}
	}
}

// Players returns the summed change and highest games total per player.
func (l *Ledger) Players() (map[string]float64, map[string]int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	changes := make(map[string]float64, len(l.changes))
	games := make(map[string]int, len(l.games))
	for id, c := range l.changes {
		changes[id] = c
		games[id] = l.games[id]
	}
	return changes, games
}

// SubmitAll posts every submission with cfg.Workers concurrent workers.
// Rejections (4xx) and failures are counted, not returned.
func SubmitAll(ctx context.Context, cfg *Config, client *Client, subs []Submission, ledger *Ledger, stats *Stats) {
	log := logger.Named("simulate")
	log.Info(ctx, "submitting sessions", logger.Int("sessions", len(subs)), logger.Int("workers", cfg.Workers))

	var submitted, successful, rejected, failed atomic.Int64
	var lastReport atomic.Int64

	ch := make(chan Submission, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range ch {
				resp, err := client.Submit(ctx, sub)
				submitted.Add(1)

				var se *StatusError
				switch {
				case err == nil:
					successful.Add(1)
					ledger.Record(resp)
				case errors.As(err, &se) && se.Status < http.StatusInternalServerError:
					rejected.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "session rejected", logger.String("key", sub.IdempotencyKey), logger.Error(err))
					}
				default:
					failed.Add(1)
					log.Warn(ctx, "session failed", logger.String("key", sub.IdempotencyKey), logger.Error(err))
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.Int64("submitted", submitted.Load()),
						logger.Int("total", len(subs)),
						logger.Int64("failed", failed.Load()))
				}
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, sub := range subs {
			select {
			case <-ctx.Done():
				return
			case ch <- sub:
			}
		}
	}()
	wg.Wait()

	stats.SessionsSubmitted = int(submitted.Load())
	stats.SessionsSuccessful = int(successful.Load())
	stats.SessionsRejected = int(rejected.Load())
	stats.SessionsFailed = int(failed.Load())
}
