package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scrapeforge/scrapesvc/api"
	"github.com/scrapeforge/scrapesvc/browserpool"
	"github.com/scrapeforge/scrapesvc/cache"
	"github.com/scrapeforge/scrapesvc/config"
	"github.com/scrapeforge/scrapesvc/crawler"
	"github.com/scrapeforge/scrapesvc/fetch"
	"github.com/scrapeforge/scrapesvc/memctrl"
	"github.com/scrapeforge/scrapesvc/model"
	"github.com/scrapeforge/scrapesvc/pagescraper"
	"github.com/scrapeforge/scrapesvc/queue"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("scrapesvc starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxContexts", cfg.Browser.MaxContexts,
	)

	// ── 3. Initialise BrowserPool and launch Chrome ──────────────────
	pool := browserpool.New(cfg.Browser)
	if err := pool.Start(); err != nil {
		slog.Error("failed to start browser pool", "error", err)
		os.Exit(1)
	}
	defer pool.Shutdown()

	// ── 4. Initialise RequestQueue ───────────────────────────────────
	q := queue.New(queue.Config{
		MaxConcurrent:  cfg.Queue.MaxConcurrent,
		RequestTimeout: cfg.Queue.RequestTimeout,
		QueueTimeout:   cfg.Queue.QueueTimeout,
	})

	// ── 5. Initialise PageScraper ─────────────────────────────────────
	sc := pagescraper.New(pool, cfg.Scraper)

	// ── 6. Initialise WebsiteCrawler, racing a fast-path dispatcher for
	// subpages when multi-engine is enabled (root page always goes through
	// the full browser path; see crawler.WithSubpageFetcher). ──────────
	cr := crawler.New(sc, pool, cfg.Crawler)

	if cfg.Fetch.EnableMultiEngine {
		httpEngine := fetch.NewHTTPEngine()
		rodEngine := fetch.NewRodEngine(sc.FetchRaw)
		engines := []fetch.Engine{httpEngine, rodEngine}

		memory := fetch.NewDomainMemory(cfg.Fetch.DomainMemoryTTL)
		defer memory.Stop()

		dispatcher := fetch.NewDispatcher(engines, cfg.Fetch.EscalationDelays, memory)
		subpageFetcher := fetch.NewScraper[*model.ScrapeResult](dispatcher, sc.BuildResult)

		cr = cr.WithSubpageFetcher(subpageFetcher)
		slog.Info("multi-engine fast path enabled for subpage fetches",
			"engines", len(engines),
			"delays", cfg.Fetch.EscalationDelays,
		)
	}

	// ── 7. Initialise MemoryController watchdog ──────────────────────
	memCtl := memctrl.New(memctrl.Config{
		MetricsInterval: cfg.Memory.MetricsInterval,
		IdleInterval:    cfg.Memory.IdleInterval,
		IdleRSSBytes:    cfg.Memory.IdleRSSBytes,
	}, pool, queueActiveCounter{q})
	memCtl.Start()
	defer memCtl.Stop()

	// ── 8. Initialise response cache ──────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries)

	// ── 9. Setup router ────────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(q, pool, sc, cr, cc, cfg, startTime)

	// ── 10. Start HTTP server ───────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 11. Graceful shutdown ────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// memCtl.Stop() and pool.Shutdown() run via defer above.
	slog.Info("scrapesvc stopped")
}

// queueActiveCounter adapts queue.Queue to memctrl.ActiveRequestCounter.
type queueActiveCounter struct {
	q *queue.Queue
}

func (c queueActiveCounter) ActiveRequests() int { return c.q.Stats().Active }

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
