package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/amorempixels/amor_server/config"
	"github.com/amorempixels/amor_server/internal/api/middleware"
	"github.com/amorempixels/amor_server/internal/catalog"
	"github.com/amorempixels/amor_server/internal/pkg/jwt"
	"github.com/amorempixels/amor_server/internal/pkg/metrics"
	"github.com/amorempixels/amor_server/internal/pkg/oauth"
	"github.com/amorempixels/amor_server/internal/pkg/payment"
	"github.com/amorempixels/amor_server/internal/pkg/pubsub"
	"github.com/amorempixels/amor_server/internal/pkg/queue"
	"github.com/amorempixels/amor_server/internal/pkg/response"
	"github.com/amorempixels/amor_server/internal/pkg/storage"
	"github.com/amorempixels/amor_server/internal/pkg/ws"
	"github.com/amorempixels/amor_server/internal/repository"
	"github.com/amorempixels/amor_server/internal/service"
	"github.com/amorempixels/amor_server/internal/testutil"
	"github.com/amorempixels/amor_server/internal/wizard"
)

func init() {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = wizard.RegisterValidators(v)
	}
}

const testSecret = "test-secret-key"

type testEnv struct {
	cfg      *config.Config
	db       *gorm.DB
	rdb      *redis.Client
	store    *storage.Memory
	payments *payment.Fake
	hub      *ws.Hub

	sites  *repository.SiteRepository
	orders *repository.OrderRepository

	auth     *service.AuthService
	wizard   *service.WizardService
	site     *service.SiteService
	checkout *service.CheckoutService

	siteHandler *SiteHandler
	stopStreams context.CancelFunc
	router      *gin.Engine
}

// newTestEnv mounts every handler on the same paths the API router uses.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg, err := config.Defaults()
	require.NoError(t, err)
	cfg.Upload.TempDir = t.TempDir()
	cfg.JWT.Secret = testSecret
	cfg.Site.PublicBaseURL = "https://amorempixels.test"

	db := testutil.SetupTestDB(t)
	_, rdb := testutil.SetupRedis(t)
	log := zap.NewNop()
	m := metrics.New()

	e := &testEnv{
		cfg:      cfg,
		db:       db,
		rdb:      rdb,
		store:    storage.NewMemory(),
		payments: &payment.Fake{},
		hub:      ws.NewHub(log),
		sites:    repository.NewSiteRepository(db),
		orders:   repository.NewOrderRepository(db),
	}

	cat := catalog.New(cfg)
	machine, err := wizard.NewMachine(cat, cfg.Wizard.DefaultPlan)
	require.NoError(t, err)
	cache := repository.NewSiteCache(rdb, 5*time.Minute)
	publisher := pubsub.NewPublisher(rdb)
	q := queue.NewQueue(rdb, cfg.Queue.NotificationQueue)
	drafts := repository.NewDraftRepository(rdb, time.Hour)

	activator := service.NewSiteActivator(e.sites, cache, publisher, q, m, log, cfg.Site.PublicBaseURL)
	e.wizard = service.NewWizardService(machine, drafts, e.sites, e.orders, e.store, e.payments, activator, m, log, cfg)
	e.site = service.NewSiteService(e.sites, e.orders, cache, e.store, machine, activator, log, cfg)
	e.checkout = service.NewCheckoutService(e.orders, e.sites, e.payments, activator, log)
	e.auth = service.NewAuthService(
		repository.NewUserRepository(db),
		repository.NewTokenRepository(rdb),
		oauth.NewStateStore(rdb),
		publisher,
		q,
		log,
		cfg,
	)

	authHandler := NewAuthHandler(e.auth)
	draftHandler := NewDraftHandler(e.wizard, cat)
	streams, stopStreams := context.WithCancel(context.Background())
	t.Cleanup(stopStreams)
	e.stopStreams = stopStreams
	e.siteHandler = NewSiteHandler(streams, e.site)
	dashboardHandler := NewDashboardHandler(e.site)
	checkoutHandler := NewCheckoutHandler(e.checkout)
	catalogHandler := NewCatalogHandler(cat)
	wsHandler := NewWebSocketHandler(e.hub, testSecret, e.auth)

	requireAuth := middleware.Auth(testSecret, e.auth)
	optionalAuth := middleware.OptionalAuth(testSecret, e.auth)

	r := gin.New()
	api := r.Group("/api/v1")
	api.GET("/ws", wsHandler.Handle)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", requireAuth, authHandler.Logout)
	api.GET("/auth/me", requireAuth, authHandler.Me)
	api.GET("/auth/github", authHandler.GithubAuth)
	api.GET("/auth/github/callback", authHandler.GithubCallback)

	api.GET("/plans", catalogHandler.Plans)
	api.GET("/templates", catalogHandler.Templates)

	api.POST("/drafts", optionalAuth, draftHandler.Create)
	api.GET("/drafts/:id", draftHandler.Get)
	api.PATCH("/drafts/:id", draftHandler.Update)
	api.DELETE("/drafts/:id", draftHandler.Delete)
	api.POST("/drafts/:id/next", draftHandler.Next)
	api.POST("/drafts/:id/back", draftHandler.Back)
	api.POST("/drafts/:id/save", draftHandler.Save)
	api.POST("/drafts/:id/media/:kind", draftHandler.Stage)
	api.DELETE("/drafts/:id/media/:kind/:index", draftHandler.Unstage)
	api.GET("/drafts/:id/media/:file_id", draftHandler.Media)
	api.GET("/drafts/:id/preview", draftHandler.Preview)
	api.POST("/drafts/:id/submit", optionalAuth, draftHandler.Submit)

	api.GET("/sites/availability", optionalAuth, e.siteHandler.Availability)
	api.GET("/sites/:custom_url", optionalAuth, e.siteHandler.Get)
	api.GET("/sites/:custom_url/together/ws", optionalAuth, e.siteHandler.Together)

	dash := api.Group("/dashboard", requireAuth)
	dash.GET("/sites", dashboardHandler.List)
	dash.GET("/sites/:id", dashboardHandler.Get)
	dash.PUT("/sites/:id", dashboardHandler.Update)
	dash.DELETE("/sites/:id", dashboardHandler.Delete)
	dash.POST("/sites/:id/media/:kind", dashboardHandler.AddMedia)
	dash.DELETE("/sites/:id/media/:kind/:index", dashboardHandler.RemoveMedia)

	api.POST("/payments/webhook", checkoutHandler.Webhook)
	api.GET("/checkout/return", checkoutHandler.Return)

	e.router = r
	return e
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	return performAuthRequest(r, method, path, body, "")
}

func performAuthRequest(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// performUpload posts content as the multipart "file" field.
func performUpload(t *testing.T, r http.Handler, path, filename, contentType string, content []byte, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// dataMap returns the envelope's data as a JSON object.
func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return data
}

func tokenFor(t *testing.T, userID int64) string {
	t.Helper()
	token, err := jwt.GenerateToken(userID, testSecret, 24)
	require.NoError(t, err)
	return token
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 120)...)
