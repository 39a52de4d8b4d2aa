// Package api wires the HTTP transport layer around the core substrate
// (queue, browserpool, pagescraper, crawler): request admission, auth,
// rate limiting, response caching and async job tracking.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scrapeforge/scrapesvc/api/handler"
	"github.com/scrapeforge/scrapesvc/api/middleware"
	"github.com/scrapeforge/scrapesvc/browserpool"
	"github.com/scrapeforge/scrapesvc/cache"
	"github.com/scrapeforge/scrapesvc/config"
	"github.com/scrapeforge/scrapesvc/queue"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(
	q *queue.Queue,
	pool *browserpool.Pool,
	sc handler.PageScraper,
	cr handler.WebsiteCrawler,
	cc *cache.Cache,
	cfg *config.Config,
	startTime time.Time,
) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(pool, q, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/scrape", handler.Scrape(q, sc, cc))

	protected.POST("/batch/scrape", handler.PostBatch(q, sc))
	protected.GET("/batch/:id", handler.GetBatch())

	protected.POST("/crawl", handler.PostCrawl(q, cr))
	protected.GET("/crawl/:id", handler.GetCrawl())

	return r
}
