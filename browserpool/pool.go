// Package browserpool amortizes browser startup over many requests and
// bounds concurrent page load, recovering from crashes or draining
// states. It is the concrete implementation of BrowserPool.
package browserpool

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"

	"github.com/scrapeforge/scrapesvc/config"
	"github.com/scrapeforge/scrapesvc/model"
)

// Status is a point-in-time snapshot for the health endpoint.
type Status struct {
	State          string `json:"state"`
	IdleContexts   int    `json:"idle_contexts"`
	TotalContexts  int    `json:"total_contexts"`
	WarmPages      int    `json:"warm_pages"`
	PagesProcessed int64  `json:"pages_processed"`
}

// Metrics is the observability surface polled by MemoryController and
// the /health endpoint.
type Metrics struct {
	Status
	RestartCount int64 `json:"restart_count"`
}

// Pool implements the BrowserPool contract of spec.md §4.1.
type Pool struct {
	cfg config.BrowserPoolConfig

	state stateBox

	mu      sync.RWMutex // guards browser swap during restart
	browser *rod.Browser

	ctxPool  *contextPool
	pagePool *warmPagePool

	pagesProcessed atomic.Int64
	restartCount   atomic.Int64

	restartOnce sync.Once
	stopCh      chan struct{}
}

// New constructs a Pool in the Uninitialized state. Call Start to launch
// the browser and warm the pools.
func New(cfg config.BrowserPoolConfig) *Pool {
	p := &Pool{cfg: cfg, stopCh: make(chan struct{})}
	p.state.Store(Uninitialized)
	return p
}

// Start launches the browser and warms MinContexts contexts, retrying up
// to 3 times with linear backoff (2s, 4s, 6s).
func (p *Pool) Start() error {
	if !p.state.CAS(Uninitialized, Starting) {
		return fmt.Errorf("browser pool: Start called from state %s", p.state.Load())
	}

	var lastErr error
	for attempt := 1; attempt <= 4; attempt++ {
		browser, err := launchBrowser(p.cfg)
		if err == nil {
			p.mu.Lock()
			p.browser = browser
			p.mu.Unlock()
			break
		}
		lastErr = err
		slog.Warn("browser pool: launch attempt failed", "attempt", attempt, "err", err)
		if attempt < 4 {
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
		}
	}
	if p.browser == nil {
		p.state.Store(Uninitialized)
		return model.NewScrapeError(model.ErrCodeBrowserError, "failed to launch browser after 4 attempts", lastErr)
	}

	p.ctxPool = newContextPool(contextPoolConfig{Min: p.cfg.MinContexts, Max: p.cfg.MaxContexts}, p.currentBrowser)
	p.pagePool = newWarmPagePool(p.cfg.PagePoolSize)

	if err := p.ctxPool.prewarm(p.cfg.MinContexts, 10*time.Second); err != nil {
		p.state.Store(Uninitialized)
		return model.NewScrapeError(model.ErrCodeBrowserError, "failed to warm context pool", err)
	}

	p.state.Store(Ready)
	go p.metricsLoop()
	return nil
}

func (p *Pool) currentBrowser() *rod.Browser {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.browser
}

func launchBrowser(cfg config.BrowserPoolConfig) (*rod.Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return browser, nil
}

// WithPage borrows (or creates) a Page, applies opts (stealth JS,
// extra headers), invokes fn, and guarantees cleanup regardless of how
// fn returns.
func WithPage[T any](p *Pool, opts model.ScrapeOptions, fn func(*rod.Page) (T, error)) (T, error) {
	var zero T
	if p.state.Load() == ShutdownState {
		return zero, model.NewScrapeError(model.ErrCodeBrowserError, "browser pool is shut down", nil)
	}

	page, fromWarmPool, ctxHandle, err := p.acquirePage(opts)
	if err != nil {
		return zero, err
	}

	defer p.releasePage(page, fromWarmPool, ctxHandle)

	result, fnErr := fn(page)
	if fnErr == nil {
		p.notePageProcessed()
	}
	return result, fnErr
}

// acquirePage implements the §4.1 page-acquisition algorithm. It returns
// the page, whether it came from the warm pool, and (for freshly created
// pages) the owning context so release can decrement activePages. opts
// is applied to the page regardless of origin — a warm-borrowed page may
// carry a previous caller's stealth/header settings, so both branches
// re-apply opts rather than only the freshly-created one.
func (p *Pool) acquirePage(opts model.ScrapeOptions) (*rod.Page, bool, *browserContext, error) {
	if p.pagePool.len() > 0 && rand.Float64() < 0.8 {
		if page, ok := p.pagePool.tryBorrow(500 * time.Millisecond); ok {
			if err := resetWarmPage(page); err == nil {
				if err := applyScrapeOptions(page, opts); err != nil {
					slog.Warn("browser pool: failed to apply scrape options to warm page", "err", err)
				}
				return page, true, nil, nil
			}
			page.Close()
		}
	}

	bc, err := p.ctxPool.get()
	if err != nil {
		if err == errPoolDraining {
			if recoverErr := p.recoverFromDraining(); recoverErr != nil {
				return nil, false, nil, model.NewScrapeError(model.ErrCodeBrowserError, "context pool draining recovery failed", recoverErr)
			}
			bc, err = p.ctxPool.get()
		}
		if err != nil {
			return nil, false, nil, model.NewScrapeError(model.ErrCodeBrowserError, "failed to acquire browser context", err)
		}
	}

	page, err := bc.newPage(p.currentBrowser())
	if err != nil {
		p.ctxPool.put(bc, false)
		return nil, false, nil, model.NewScrapeError(model.ErrCodeBrowserError, "failed to create page", err)
	}
	if err := applyScrapeOptions(page, opts); err != nil {
		slog.Warn("browser pool: failed to apply scrape options to new page", "err", err)
	}
	installResourceFilter(page)
	page = page.Timeout(p.cfg.PageTimeout)
	bc.activePages.Add(1)

	return page, false, bc, nil
}

// recoverFromDraining implements the draining-recovery path: reset the
// context pool and retry up to 3 times with 1s spacing.
func (p *Pool) recoverFromDraining() error {
	slog.Warn("browser pool: context pool draining, resetting")
	p.ResetContextPool()
	for attempt := 0; attempt < 3; attempt++ {
		if !p.ctxPool.isDraining() {
			return nil
		}
		time.Sleep(time.Second)
	}
	if p.ctxPool.isDraining() {
		return fmt.Errorf("context pool still draining after 3 retries")
	}
	return nil
}

// ResetContextPool starts draining the old pool in the background,
// installs a fresh pool, and pre-warms MinContexts one at a time.
func (p *Pool) ResetContextPool() {
	old := p.ctxPool
	fresh := newContextPool(contextPoolConfig{Min: p.cfg.MinContexts, Max: p.cfg.MaxContexts}, p.currentBrowser)
	p.ctxPool = fresh
	go old.drain()
	go func() {
		if err := fresh.prewarm(p.cfg.MinContexts, 10*time.Second); err != nil {
			slog.Error("browser pool: failed to prewarm fresh context pool", "err", err)
		}
	}()
}

// releasePage implements the always-runs cleanup / release-path policy.
// releasePage returns page to the warm pool when it resets cleanly
// (closing it only if the pool is already full), regardless of whether
// it was borrowed from the warm pool or freshly created — this is what
// seeds the warm pool in the first place, since Start only pre-warms
// contexts. A freshly-created page additionally releases its owning
// context back to the context pool.
func (p *Pool) releasePage(page *rod.Page, fromWarmPool bool, bc *browserContext) {
	if err := resetWarmPage(page); err != nil {
		page.Close()
	} else {
		p.pagePool.put(page)
	}

	if fromWarmPool || bc == nil {
		return
	}
	remaining := bc.activePages.Add(-1)
	_, total := p.ctxPool.size()
	shouldClose := remaining <= 0 && total > p.cfg.MinContexts && rand.Float64() < 0.3
	p.ctxPool.put(bc, shouldClose)
}

func (p *Pool) notePageProcessed() {
	n := p.pagesProcessed.Add(1)
	if n%int64(p.cfg.RestartThreshold) == 0 {
		go p.scheduleRestart()
	}
}

// scheduleRestart initializes a replacement Browser first, then closes
// the old one 10s later so in-flight requests complete.
func (p *Pool) scheduleRestart() {
	if !p.state.CAS(Ready, Draining) {
		return // a restart is already underway
	}
	slog.Info("browser pool: scheduling restart", "pagesProcessed", p.pagesProcessed.Load())

	newBrowser, err := launchBrowser(p.cfg)
	if err != nil {
		slog.Error("browser pool: restart failed to launch replacement", "err", err)
		p.state.Store(Ready)
		return
	}

	p.state.Store(Restarting)
	old := p.currentBrowser()

	p.mu.Lock()
	p.browser = newBrowser
	p.mu.Unlock()

	p.ResetContextPool()
	p.pagePool.drain()
	p.restartCount.Add(1)

	time.AfterFunc(10*time.Second, func() {
		if old != nil {
			old.Close()
		}
	})

	p.state.Store(Ready)
}

// ForceCleanupAndRestart replaces the Browser immediately, draining and
// recreating the context pool.
func (p *Pool) ForceCleanupAndRestart() error {
	prev := p.state.Load()
	if prev == ShutdownState {
		return model.NewScrapeError(model.ErrCodeBrowserError, "cannot restart a shut-down pool", nil)
	}
	p.state.Store(Draining)

	newBrowser, err := launchBrowser(p.cfg)
	if err != nil {
		p.state.Store(Ready)
		return model.NewScrapeError(model.ErrCodeBrowserError, "force restart failed to launch replacement", err)
	}

	p.state.Store(Restarting)
	old := p.currentBrowser()
	p.mu.Lock()
	p.browser = newBrowser
	p.mu.Unlock()

	p.ResetContextPool()
	p.pagePool.drain()
	p.restartCount.Add(1)

	if old != nil {
		old.Close()
	}
	p.state.Store(Ready)
	return nil
}

// ReleaseUnusedContexts proactively closes idle contexts exceeding
// MinContexts, returning the count closed.
func (p *Pool) ReleaseUnusedContexts() int {
	if p.ctxPool == nil {
		return 0
	}
	n := p.ctxPool.releaseIdleAboveMin()
	if n > 0 {
		slog.Debug("browser pool: released idle contexts", "count", n)
	}
	return n
}

// Shutdown drains both pools and closes the Browser. Idempotent.
func (p *Pool) Shutdown() error {
	if !p.state.CAS(Ready, ShutdownState) && !p.state.CAS(Draining, ShutdownState) && !p.state.CAS(Restarting, ShutdownState) {
		if p.state.Load() == ShutdownState {
			return nil
		}
	}
	p.state.Store(ShutdownState)
	close(p.stopCh)

	if p.pagePool != nil {
		p.pagePool.drain()
	}
	if p.ctxPool != nil {
		p.ctxPool.drain()
	}
	b := p.currentBrowser()
	if b != nil {
		if err := b.Close(); err != nil {
			slog.Warn("browser pool: error closing browser on shutdown", "err", err)
		}
	}
	return nil
}

// Status returns a point-in-time snapshot for the health endpoint.
func (p *Pool) Status() Status {
	idle, total, warm := 0, 0, 0
	if p.ctxPool != nil {
		idle, total = p.ctxPool.size()
	}
	if p.pagePool != nil {
		warm = p.pagePool.len()
	}
	return Status{
		State:          p.state.Load().String(),
		IdleContexts:   idle,
		TotalContexts:  total,
		WarmPages:      warm,
		PagesProcessed: p.pagesProcessed.Load(),
	}
}

// Metrics extends Status with restart accounting, consumed by
// MemoryController's logging and the /health handler.
func (p *Pool) Metrics() Metrics {
	return Metrics{Status: p.Status(), RestartCount: p.restartCount.Load()}
}

func (p *Pool) metricsLoop() {
	ticker := time.NewTicker(p.cfg.MetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m := p.Metrics()
			slog.Debug("browser pool metrics", "state", m.State, "idle", m.IdleContexts,
				"total", m.TotalContexts, "warm", m.WarmPages, "processed", m.PagesProcessed)
		case <-p.stopCh:
			return
		}
	}
}
