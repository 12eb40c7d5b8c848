package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const sweepInterval = 5 * time.Minute

// PendingSweeper is implemented by *service.SiteService.
type PendingSweeper interface {
	SweepPending(ctx context.Context) (int, error)
}

// Sweeper periodically releases custom URLs held by unpaid checkouts.
type Sweeper struct {
	sites    PendingSweeper
	interval time.Duration
	log      *zap.Logger
}

func NewSweeper(sites PendingSweeper, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{sites: sites, interval: sweepInterval, log: log}
}

// Start sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.sites.SweepPending(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error("pending sweep failed", zap.Error(err))
		}
		return
	}
	if n > 0 {
		s.log.Info("pending sweep released sites", zap.Int("count", n))
	}
}
