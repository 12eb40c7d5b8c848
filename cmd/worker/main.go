package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/amorempixels/amor_server/config"
	"github.com/amorempixels/amor_server/internal/catalog"
	"github.com/amorempixels/amor_server/internal/database"
	"github.com/amorempixels/amor_server/internal/pkg/email"
	"github.com/amorempixels/amor_server/internal/pkg/logger"
	"github.com/amorempixels/amor_server/internal/pkg/metrics"
	"github.com/amorempixels/amor_server/internal/pkg/pubsub"
	"github.com/amorempixels/amor_server/internal/pkg/queue"
	"github.com/amorempixels/amor_server/internal/pkg/storage"
	"github.com/amorempixels/amor_server/internal/repository"
	"github.com/amorempixels/amor_server/internal/service"
	"github.com/amorempixels/amor_server/internal/wizard"
	"github.com/amorempixels/amor_server/internal/worker"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog := logger.Must(cfg.Log).Named("worker")
	defer zlog.Sync()

	db, err := database.Open(&cfg.Database)
	if err != nil {
		zlog.Fatal("failed to connect database", zap.Error(err))
	}

	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		zlog.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		zlog.Fatal("failed to init storage", zap.Error(err))
	}

	notifications := queue.NewQueue(rdb, cfg.Queue.NotificationQueue)
	siteRepo := repository.NewSiteRepository(db)
	siteCache := repository.NewSiteCache(rdb, time.Duration(cfg.Site.CacheTTLMinutes)*time.Minute)
	activator := service.NewSiteActivator(siteRepo, siteCache, pubsub.NewPublisher(rdb), notifications, metrics.New(), zlog, cfg.Site.PublicBaseURL)
	machine, err := wizard.NewMachine(catalog.New(cfg), cfg.Wizard.DefaultPlan)
	if err != nil {
		zlog.Fatal("failed to build wizard", zap.Error(err))
	}
	siteService := service.NewSiteService(siteRepo, repository.NewOrderRepository(db), siteCache, store, machine, activator, zlog, cfg)

	pool := worker.NewPool(notifications, worker.NewProcessor(email.NewService(&cfg.Email), zlog), cfg.Queue.MaxWorkers, zlog)
	sweeper := worker.NewSweeper(siteService, zlog)

	zlog.Info("worker started", zap.Int("max_workers", cfg.Queue.MaxWorkers))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pool.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		sweeper.Start(ctx)
	}()

	<-ctx.Done()
	zlog.Info("received shutdown signal")
	wg.Wait()
	zlog.Info("worker shutdown complete")
}
