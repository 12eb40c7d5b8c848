package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/amorempixels/amor_server/internal/pkg/queue"
)

const popTimeout = 5 * time.Second

// Source is where notifications are read from. *queue.Queue satisfies it.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.Notification, error)
}

type Pool struct {
	source     Source
	processor  *Processor
	workers    int
	popTimeout time.Duration
	log        *zap.Logger
}

func NewPool(source Source, processor *Processor, workers int, log *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		source:     source,
		processor:  processor,
		workers:    workers,
		popTimeout: popTimeout,
		log:        log,
	}
}

// Run consumes notifications until ctx is cancelled and every worker has
// returned. A failed notification is logged and dropped.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) loop(ctx context.Context, workerID int) {
	log := p.log.With(zap.Int("worker", workerID))
	for {
		select {
		case <-ctx.Done():
			log.Debug("worker shutting down")
			return
		default:
		}

		msg, err := p.source.Pop(ctx, p.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("failed to pop notification", zap.Error(err))
			continue
		}
		if msg == nil {
			continue
		}

		if err := p.processor.Process(ctx, msg); err != nil {
			log.Error("notification failed", zap.String("kind", msg.Kind), zap.Error(err))
		}
	}
}
