package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/amorempixels/amor_server/config"
	"github.com/amorempixels/amor_server/internal/api/handler"
	"github.com/amorempixels/amor_server/internal/api/middleware"
	"github.com/amorempixels/amor_server/internal/pkg/metrics"
	"github.com/amorempixels/amor_server/internal/wizard"
)

type Router struct {
	authHandler      *handler.AuthHandler
	websocketHandler *handler.WebSocketHandler
	catalogHandler   *handler.CatalogHandler
	draftHandler     *handler.DraftHandler
	siteHandler      *handler.SiteHandler
	dashboardHandler *handler.DashboardHandler
	checkoutHandler  *handler.CheckoutHandler
	healthHandler    *handler.HealthHandler
	revoked          middleware.RevocationChecker
	limiter          *middleware.IPLimiter
	metrics          *metrics.Metrics
	log              *zap.Logger
	cfg              *config.Config
}

type Handlers struct {
	Auth      *handler.AuthHandler
	WebSocket *handler.WebSocketHandler
	Catalog   *handler.CatalogHandler
	Draft     *handler.DraftHandler
	Site      *handler.SiteHandler
	Dashboard *handler.DashboardHandler
	Checkout  *handler.CheckoutHandler
	Health    *handler.HealthHandler
}

func NewRouter(
	h Handlers,
	revoked middleware.RevocationChecker,
	limiter *middleware.IPLimiter,
	m *metrics.Metrics,
	log *zap.Logger,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:      h.Auth,
		websocketHandler: h.WebSocket,
		catalogHandler:   h.Catalog,
		draftHandler:     h.Draft,
		siteHandler:      h.Site,
		dashboardHandler: h.Dashboard,
		checkoutHandler:  h.Checkout,
		healthHandler:    h.Health,
		revoked:          revoked,
		limiter:          limiter,
		metrics:          m,
		log:              log,
		cfg:              cfg,
	}
}

// RegisterValidators adds the custom binding tags to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return wizard.RegisterValidators(v)
}

func (r *Router) Setup() (*gin.Engine, error) {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logger(r.log))
	engine.Use(middleware.Metrics(r.metrics))
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/health", r.healthHandler.Check)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.metrics.Registry, promhttp.HandlerOpts{})))

	secret := r.cfg.JWT.Secret
	requireAuth := middleware.Auth(secret, r.revoked)
	optionalAuth := middleware.OptionalAuth(secret, r.revoked)
	limited := middleware.RateLimit(r.limiter)

	api := engine.Group("/api/v1")
	{
		api.GET("/ws", r.websocketHandler.Handle)

		auth := api.Group("/auth")
		{
			auth.POST("/register", limited, r.authHandler.Register)
			auth.POST("/login", limited, r.authHandler.Login)
			auth.POST("/logout", requireAuth, r.authHandler.Logout)
			auth.GET("/me", requireAuth, r.authHandler.Me)
			auth.GET("/github", r.authHandler.GithubAuth)
			auth.GET("/github/callback", r.authHandler.GithubCallback)
		}

		api.GET("/plans", r.catalogHandler.Plans)
		api.GET("/templates", r.catalogHandler.Templates)

		drafts := api.Group("/drafts")
		{
			drafts.POST("", optionalAuth, r.draftHandler.Create)
			drafts.GET("/:id", r.draftHandler.Get)
			drafts.PATCH("/:id", r.draftHandler.Update)
			drafts.DELETE("/:id", r.draftHandler.Delete)
			drafts.POST("/:id/next", r.draftHandler.Next)
			drafts.POST("/:id/back", r.draftHandler.Back)
			drafts.POST("/:id/save", r.draftHandler.Save)
			drafts.POST("/:id/media/:kind", r.draftHandler.Stage)
			drafts.DELETE("/:id/media/:kind/:index", r.draftHandler.Unstage)
			drafts.GET("/:id/media/:file_id", r.draftHandler.Media)
			drafts.GET("/:id/preview", r.draftHandler.Preview)
			drafts.POST("/:id/submit", optionalAuth, r.draftHandler.Submit)
		}

		sites := api.Group("/sites")
		sites.Use(optionalAuth)
		{
			sites.GET("/availability", r.siteHandler.Availability)
			sites.GET("/:custom_url", limited, r.siteHandler.Get)
			sites.GET("/:custom_url/together/ws", limited, r.siteHandler.Together)
		}

		dashboard := api.Group("/dashboard")
		dashboard.Use(requireAuth)
		{
			dashboard.GET("/sites", r.dashboardHandler.List)
			dashboard.GET("/sites/:id", r.dashboardHandler.Get)
			dashboard.PUT("/sites/:id", r.dashboardHandler.Update)
			dashboard.DELETE("/sites/:id", r.dashboardHandler.Delete)
			dashboard.POST("/sites/:id/media/:kind", r.dashboardHandler.AddMedia)
			dashboard.DELETE("/sites/:id/media/:kind/:index", r.dashboardHandler.RemoveMedia)
		}

		api.POST("/payments/webhook", r.checkoutHandler.Webhook)
		api.GET("/checkout/return", r.checkoutHandler.Return)
	}

	return engine, nil
}
