package cron

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultInterval = time.Hour
	jobTimeout      = 5 * time.Minute
)

type SiteExpirer interface {
	ExpireSites(ctx context.Context) (int64, error)
}

type StagingCleaner interface {
	CleanupStaging(maxAge time.Duration, dryRun bool) (int, error)
}

// Pruner drops idle in-memory state, such as rate limit buckets.
type Pruner interface {
	Prune() int
}

// Service runs the API process's periodic housekeeping: hiding expired
// cards and deleting abandoned staging directories.
type Service struct {
	sites         SiteExpirer
	staging       StagingCleaner
	pruner        Pruner
	stagingMaxAge time.Duration
	interval      time.Duration
	log           *zap.Logger

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewService builds the job runner. expireHours is the staging age after
// which an abandoned draft's files are removed; pruner may be nil.
func NewService(sites SiteExpirer, staging StagingCleaner, pruner Pruner, expireHours int, log *zap.Logger) *Service {
	if expireHours <= 0 {
		expireHours = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		sites:         sites,
		staging:       staging,
		pruner:        pruner,
		stagingMaxAge: time.Duration(expireHours) * time.Hour,
		interval:      defaultInterval,
		log:           log,
		stopChan:      make(chan struct{}),
	}
}

func (s *Service) Start() {
	s.wg.Add(1)
	go s.loop()
	s.log.Info("cron started", zap.Duration("interval", s.interval))
}

// Stop ends the loop and waits for a run in progress. Safe to call twice.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	s.log.Info("cron stopped")
}

func (s *Service) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			if err := s.RunNow(ctx); err != nil {
				s.log.Warn("cron run finished with errors", zap.Error(err))
			}
			cancel()
		}
	}
}

// RunNow executes every job once. A failing job does not stop the others.
func (s *Service) RunNow(ctx context.Context) error {
	var errs []error

	if s.sites != nil {
		n, err := s.sites.ExpireSites(ctx)
		if err != nil {
			errs = append(errs, err)
		} else if n > 0 {
			s.log.Info("expired sites", zap.Int64("count", n))
		}
	}

	if s.staging != nil {
		n, err := s.staging.CleanupStaging(s.stagingMaxAge, false)
		if err != nil {
			errs = append(errs, err)
		} else if n > 0 {
			s.log.Info("removed abandoned staging dirs", zap.Int("count", n))
		}
	}

	if s.pruner != nil {
		if n := s.pruner.Prune(); n > 0 {
			s.log.Debug("pruned rate limit buckets", zap.Int("count", n))
		}
	}

	return errors.Join(errs...)
}
