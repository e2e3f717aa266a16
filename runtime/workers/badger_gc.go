package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerGCWorker reclaims value log space left by taken messages and expired cache entries.
type BadgerGCWorker struct {
	db           *badger.DB
	interval     time.Duration
	discardRatio float64
	log          *slog.Logger
}

func NewBadgerGCWorker(db *badger.DB, interval time.Duration, log *slog.Logger) *BadgerGCWorker {
	return &BadgerGCWorker{db: db, interval: interval, discardRatio: 0.5, log: log}
}

func (w *BadgerGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.collect()
		}
	}
}

// collect rewrites value log files until badger reports nothing left to reclaim.
func (w *BadgerGCWorker) collect() {
	rewritten := 0
	for {
		err := w.db.RunValueLogGC(w.discardRatio)
		if err != nil {
			switch err {
			case badger.ErrNoRewrite, badger.ErrRejected, badger.ErrGCInMemoryMode:
			default:
				w.log.Warn("Value log GC failed", "error", err)
			}
			break
		}
		rewritten++
	}
	if rewritten > 0 {
		w.log.Debug("Value log GC done", "rewritten", rewritten)
	}
}
