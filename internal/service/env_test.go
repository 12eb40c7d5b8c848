package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/amorempixels/amor_server/config"
	"github.com/amorempixels/amor_server/internal/catalog"
	"github.com/amorempixels/amor_server/internal/pkg/metrics"
	"github.com/amorempixels/amor_server/internal/pkg/oauth"
	"github.com/amorempixels/amor_server/internal/pkg/payment"
	"github.com/amorempixels/amor_server/internal/pkg/pubsub"
	"github.com/amorempixels/amor_server/internal/pkg/queue"
	"github.com/amorempixels/amor_server/internal/pkg/storage"
	"github.com/amorempixels/amor_server/internal/repository"
	"github.com/amorempixels/amor_server/internal/testutil"
	"github.com/amorempixels/amor_server/internal/wizard"
)

// env wires every service against SQLite, miniredis and in-memory collaborators.
type env struct {
	cfg      *config.Config
	db       *gorm.DB
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	store    *storage.Memory
	payments *payment.Fake
	queue    *queue.Queue
	metrics  *metrics.Metrics

	sites  *repository.SiteRepository
	orders *repository.OrderRepository
	drafts *repository.DraftRepository

	activator *SiteActivator
	wizard    *WizardService
	site      *SiteService
	checkout  *CheckoutService
	auth      *AuthService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	cfg, err := config.Defaults()
	require.NoError(t, err)
	cfg.Upload.TempDir = t.TempDir()
	cfg.JWT.Secret = "test-secret"
	cfg.Site.PublicBaseURL = "https://amorempixels.test/"

	db := testutil.SetupTestDB(t)
	mr, rdb := testutil.SetupRedis(t)
	log := zap.NewNop()

	e := &env{
		cfg:      cfg,
		db:       db,
		mr:       mr,
		rdb:      rdb,
		store:    storage.NewMemory(),
		payments: &payment.Fake{},
		queue:    queue.NewQueue(rdb, cfg.Queue.NotificationQueue),
		metrics:  metrics.New(),
		sites:    repository.NewSiteRepository(db),
		orders:   repository.NewOrderRepository(db),
		drafts:   repository.NewDraftRepository(rdb, time.Hour),
	}

	cache := repository.NewSiteCache(rdb, 5*time.Minute)
	publisher := pubsub.NewPublisher(rdb)
	machine, err := wizard.NewMachine(catalog.New(cfg), cfg.Wizard.DefaultPlan)
	require.NoError(t, err)

	e.activator = NewSiteActivator(e.sites, cache, publisher, e.queue, e.metrics, log, cfg.Site.PublicBaseURL)
	e.wizard = NewWizardService(machine, e.drafts, e.sites, e.orders, e.store, e.payments, e.activator, e.metrics, log, cfg)
	e.site = NewSiteService(e.sites, e.orders, cache, e.store, machine, e.activator, log, cfg)
	e.checkout = NewCheckoutService(e.orders, e.sites, e.payments, e.activator, log)
	e.auth = NewAuthService(
		repository.NewUserRepository(db),
		repository.NewTokenRepository(rdb),
		oauth.NewStateStore(rdb),
		publisher,
		e.queue,
		log,
		cfg,
	)
	return e
}

func (e *env) queued(t *testing.T) int64 {
	t.Helper()
	n, err := e.queue.Length(context.Background())
	require.NoError(t, err)
	return n
}

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 120)...)
	mp3Bytes = append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), bytes.Repeat([]byte{0}, 120)...)
)

func pngUpload(name string) Upload {
	return Upload{Name: name, Size: int64(len(pngBytes)), ContentType: "image/png", Body: bytes.NewReader(pngBytes)}
}

func strPtr(s string) *string {
	return &s
}

// summaryDraft creates a draft filled for plan and walks it to the summary step.
func (e *env) summaryDraft(t *testing.T, plan, template, customURL string, photos int) *wizard.Draft {
	t.Helper()
	ctx := context.Background()

	d, err := e.wizard.Create(ctx, nil)
	require.NoError(t, err)

	_, err = e.wizard.Update(ctx, d.ID, wizard.Patch{
		Plan:       strPtr(plan),
		Template:   strPtr(template),
		CoupleName: strPtr("Ana e Bruno"),
		StartDate:  strPtr("2020-02-14"),
		Message:    strPtr("Cada dia ao seu lado é um presente."),
		Password:   strPtr("1234"),
		CustomURL:  strPtr(customURL),
		Email:      strPtr("ana@example.com"),
	})
	require.NoError(t, err)

	for i := 0; i < photos; i++ {
		_, _, err := e.wizard.Stage(ctx, d.ID, catalog.KindPhoto, pngUpload("foto.png"))
		require.NoError(t, err)
	}

	for i := 0; i < int(wizard.StepSummary); i++ {
		_, err := e.wizard.Next(ctx, d.ID)
		require.NoError(t, err)
	}

	d, err = e.wizard.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, wizard.StepSummary, d.Step)
	return d
}
