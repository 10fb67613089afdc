package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/mirror/api/handler"
	"github.com/use-agent/mirror/api/middleware"
	"github.com/use-agent/mirror/cache"
	"github.com/use-agent/mirror/config"
	"github.com/use-agent/mirror/metrics"
	"github.com/use-agent/mirror/webhook"
)

// Service is what the router serves: crawling plus health reporting.
type Service interface {
	handler.Crawler
	handler.Status
}

// Deps are the optional collaborators of the router. Nil fields disable
// the matching feature.
type Deps struct {
	Cache    cache.Store
	Notifier *webhook.Notifier
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID → Logger
//	Crawl:   Auth (if enabled) → RateLimit
//
// /health and /metrics stay outside auth so health checks and scrapers always work.
func NewRouter(svc Service, cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Metrics))

	r.GET("/health", handler.Health(svc))
	if cfg.Metrics.Enabled && deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	protected := r.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/crawl", handler.Crawl(svc, deps.Cache, deps.Metrics))
	protected.POST("/crawl/batch", handler.CrawlBatch(svc, deps.Notifier))

	return r
}
