package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amorempixels/amor_server/config"
	"github.com/amorempixels/amor_server/internal/catalog"
	"github.com/amorempixels/amor_server/internal/database"
	"github.com/amorempixels/amor_server/internal/pkg/logger"
	"github.com/amorempixels/amor_server/internal/pkg/metrics"
	"github.com/amorempixels/amor_server/internal/pkg/payment"
	"github.com/amorempixels/amor_server/internal/pkg/pubsub"
	"github.com/amorempixels/amor_server/internal/pkg/queue"
	"github.com/amorempixels/amor_server/internal/pkg/storage"
	"github.com/amorempixels/amor_server/internal/repository"
	"github.com/amorempixels/amor_server/internal/service"
	"github.com/amorempixels/amor_server/internal/wizard"
)

var (
	configPath    string
	olderThanDays int
	execute       bool
)

var rootCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge media of long-expired cards and abandoned staging files",
	Long: `Deletes the stored photos, videos and music of cards that expired more
than --older-than-days ago, and removes staging directories of drafts that
were never submitted. Runs as a dry run unless --execute is given.`,
	SilenceUsage: true,
	RunE:         runCleanup,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", envOr("CONFIG_PATH", "config.yaml"), "config file path")
	rootCmd.Flags().IntVar(&olderThanDays, "older-than-days", 30, "days a card must have been expired before its media is purged")
	rootCmd.Flags().BoolVar(&execute, "execute", false, "actually delete; without it only report what would be removed")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	if olderThanDays < 0 {
		return fmt.Errorf("--older-than-days must not be negative")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	zlog := logger.Must(cfg.Log).Named("cleanup")
	defer zlog.Sync()

	dryRun := !execute
	zlog.Info("cleanup starting", zap.Bool("dry_run", dryRun), zap.Int("older_than_days", olderThanDays))

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	store, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	m := metrics.New()
	notifications := queue.NewQueue(rdb, cfg.Queue.NotificationQueue)
	machine, err := wizard.NewMachine(catalog.New(cfg), cfg.Wizard.DefaultPlan)
	if err != nil {
		return err
	}
	siteRepo := repository.NewSiteRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	siteCache := repository.NewSiteCache(rdb, time.Duration(cfg.Site.CacheTTLMinutes)*time.Minute)
	draftRepo := repository.NewDraftRepository(rdb, time.Duration(cfg.Wizard.DraftTTLHours)*time.Hour)
	activator := service.NewSiteActivator(siteRepo, siteCache, pubsub.NewPublisher(rdb), notifications, m, zlog, cfg.Site.PublicBaseURL)

	siteService := service.NewSiteService(siteRepo, orderRepo, siteCache, store, machine, activator, zlog, cfg)
	wizardService := service.NewWizardService(machine, draftRepo, siteRepo, orderRepo, store, payment.NewStripe(&cfg.Payment), activator, m, zlog, cfg)

	report, err := siteService.PurgeExpired(ctx, time.Duration(olderThanDays)*24*time.Hour, dryRun)
	if err != nil {
		return fmt.Errorf("purge expired sites: %w", err)
	}

	dirs, err := wizardService.CleanupStaging(time.Duration(cfg.Upload.ExpireHours)*time.Hour, dryRun)
	if err != nil {
		return fmt.Errorf("clean staging: %w", err)
	}

	verb := "Removed"
	if dryRun {
		verb = "Would remove"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d objects from %d expired cards\n", verb, report.Objects, report.Sites)
	fmt.Fprintf(out, "%s %d abandoned staging directories\n", verb, dirs)
	if dryRun {
		fmt.Fprintln(out, "Dry run. Re-run with --execute to delete.")
	}
	return nil
}
