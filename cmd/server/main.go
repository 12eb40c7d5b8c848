package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/amorempixels/amor_server/config"
	"github.com/amorempixels/amor_server/internal/api"
	"github.com/amorempixels/amor_server/internal/api/handler"
	"github.com/amorempixels/amor_server/internal/api/middleware"
	"github.com/amorempixels/amor_server/internal/catalog"
	"github.com/amorempixels/amor_server/internal/database"
	"github.com/amorempixels/amor_server/internal/pkg/cron"
	"github.com/amorempixels/amor_server/internal/pkg/logger"
	"github.com/amorempixels/amor_server/internal/pkg/metrics"
	"github.com/amorempixels/amor_server/internal/pkg/oauth"
	"github.com/amorempixels/amor_server/internal/pkg/payment"
	"github.com/amorempixels/amor_server/internal/pkg/pubsub"
	"github.com/amorempixels/amor_server/internal/pkg/queue"
	"github.com/amorempixels/amor_server/internal/pkg/storage"
	"github.com/amorempixels/amor_server/internal/pkg/ws"
	"github.com/amorempixels/amor_server/internal/repository"
	"github.com/amorempixels/amor_server/internal/service"
	"github.com/amorempixels/amor_server/internal/wizard"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog := logger.Must(cfg.Log)
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(db, zlog); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	zlog.Info("database connected", zap.String("driver", cfg.Database.Driver))

	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()
	zlog.Info("redis connected")

	store, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	if err := os.MkdirAll(cfg.Upload.TempDir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	m := metrics.New()
	hub := ws.NewHub(zlog.Named("ws"))
	publisher := pubsub.NewPublisher(rdb)
	notifications := queue.NewQueue(rdb, cfg.Queue.NotificationQueue)
	payments := payment.NewStripe(&cfg.Payment)

	cat := catalog.New(cfg)
	machine, err := wizard.NewMachine(cat, cfg.Wizard.DefaultPlan)
	if err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(db)
	siteRepo := repository.NewSiteRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	tokenRepo := repository.NewTokenRepository(rdb)
	draftRepo := repository.NewDraftRepository(rdb, time.Duration(cfg.Wizard.DraftTTLHours)*time.Hour)
	siteCache := repository.NewSiteCache(rdb, time.Duration(cfg.Site.CacheTTLMinutes)*time.Minute)

	activator := service.NewSiteActivator(siteRepo, siteCache, publisher, notifications, m, zlog, cfg.Site.PublicBaseURL)
	authService := service.NewAuthService(userRepo, tokenRepo, oauth.NewStateStore(rdb), publisher, notifications, zlog, cfg)
	wizardService := service.NewWizardService(machine, draftRepo, siteRepo, orderRepo, store, payments, activator, m, zlog, cfg)
	siteService := service.NewSiteService(siteRepo, orderRepo, siteCache, store, machine, activator, zlog, cfg)
	checkoutService := service.NewCheckoutService(orderRepo, siteRepo, payments, activator, zlog)

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	health := handler.NewHealthHandler(map[string]handler.Pinger{
		"database": sqlDB.PingContext,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	limiter := middleware.NewIPLimiter(cfg.RateLimit)
	router := api.NewRouter(api.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		WebSocket: handler.NewWebSocketHandler(hub, cfg.JWT.Secret, authService),
		Catalog:   handler.NewCatalogHandler(cat),
		Draft:     handler.NewDraftHandler(wizardService, cat),
		Site:      handler.NewSiteHandler(ctx, siteService),
		Dashboard: handler.NewDashboardHandler(siteService),
		Checkout:  handler.NewCheckoutHandler(checkoutService),
		Health:    health,
	}, authService, limiter, m, zlog, cfg)

	engine, err := router.Setup()
	if err != nil {
		return err
	}

	jobs := cron.NewService(siteService, wizardService, limiter, cfg.Upload.ExpireHours, zlog.Named("cron"))
	jobs.Start()
	defer jobs.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zlog.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// events published by the worker or other API replicas reach local sockets
	g.Go(func() error {
		err := pubsub.NewSubscriber(rdb).Subscribe(gctx, hub.Dispatch)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("user events subscription: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zlog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		zlog.Info("closed websocket connections", zap.Int("count", hub.CloseAll()))
		return err
	})

	return g.Wait()
}
