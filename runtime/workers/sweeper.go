package workers

import (
	"context"
	"log/slog"
	"time"
)

type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// SweepWorker purges expired messages on a fixed interval, so stale messages
// nobody reads again do not pile up between creations.
type SweepWorker struct {
	log      *slog.Logger
	sweeper  Sweeper
	interval time.Duration
}

func NewSweepWorker(log *slog.Logger, sweeper Sweeper, interval time.Duration) *SweepWorker {
	return &SweepWorker{log: log, sweeper: sweeper, interval: interval}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping sweeper")
			return nil
		case <-ticker.C:
			deleted, err := w.sweeper.Sweep(ctx)
			if err != nil {
				w.log.Warn("Periodic sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				w.log.Debug("Periodic sweep", "deleted", deleted)
			}
		}
	}
}
