package browserpool

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// browserContext is one isolated CDP browser context (an incognito-style
// tab group). Pages created within it share cookies/storage with each
// other and with no other context.
type browserContext struct {
	id          proto.TargetBrowserContextID
	activePages atomic.Int32
	createdAt   time.Time
}

// newPage creates a page bound to this context and applies the fixed
// desktop viewport / UA settings and ignores TLS certificate errors.
// JavaScript is left at Chrome's default (enabled).
func (c *browserContext) newPage(browser *rod.Browser) (*rod.Page, error) {
	page, err := browser.Page(proto.TargetCreateTarget{
		URL:              "about:blank",
		BrowserContextID: c.id,
	})
	if err != nil {
		return nil, fmt.Errorf("create page in context: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  1280,
		Height: 720,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if err := (proto.NetworkSetUserAgentOverride{
		UserAgent: desktopUserAgent,
	}).Call(page); err != nil {
		page.Close()
		return nil, fmt.Errorf("set user agent: %w", err)
	}
	if err := (proto.SecuritySetIgnoreCertificateErrors{Ignore: true}).Call(page); err != nil {
		page.Close()
		return nil, fmt.Errorf("ignore certificate errors: %w", err)
	}
	return page, nil
}

const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// contextPoolConfig mirrors BrowserPoolConfig's pool-shaped fields.
type contextPoolConfig struct {
	Min int
	Max int
}

// contextFactory and contextDestroyer are injected so the pool's
// LIFO/min/max bookkeeping can be exercised without a live browser,
// mirroring the PageFactory/PageDestroyer shape of AdaptivePool.
type contextFactory func() (*browserContext, error)
type contextDestroyer func(*browserContext)

// contextPool is a LIFO-biased pool of browserContext handles, grounded
// on the factory/destroyer AdaptivePool shape but specialized to browser
// contexts rather than pages: contexts are coarser-grained and are not
// scored on release. On borrow only nil entries are skipped; a context is
// not checked for being able to open a page.
type contextPool struct {
	cfg       contextPoolConfig
	factory   contextFactory
	destroyer contextDestroyer

	mu       sync.Mutex
	idle     []*browserContext // stack; last element borrowed first
	all      map[proto.TargetBrowserContextID]*browserContext
	draining bool
}

func newContextPool(cfg contextPoolConfig, browser func() *rod.Browser) *contextPool {
	return &contextPool{
		cfg:       cfg,
		factory:   func() (*browserContext, error) { return createBrowserContext(browser()) },
		destroyer: func(bc *browserContext) { destroyBrowserContext(browser(), bc) },
		all:       make(map[proto.TargetBrowserContextID]*browserContext),
	}
}

// newContextPoolWithFactory builds a pool against injected factory/destroyer
// functions, used by tests to exercise the bookkeeping without a browser.
func newContextPoolWithFactory(cfg contextPoolConfig, factory contextFactory, destroyer contextDestroyer) *contextPool {
	return &contextPool{
		cfg:       cfg,
		factory:   factory,
		destroyer: destroyer,
		all:       make(map[proto.TargetBrowserContextID]*browserContext),
	}
}

// prewarm creates n contexts one at a time, each bounded by perItemTimeout.
func (p *contextPool) prewarm(n int, perItemTimeout time.Duration) error {
	for i := 0; i < n; i++ {
		done := make(chan error, 1)
		go func() { done <- p.createAndStash() }()
		select {
		case err := <-done:
			if err != nil {
				return err
			}
		case <-time.After(perItemTimeout):
			return fmt.Errorf("context prewarm %d/%d timed out after %s", i+1, n, perItemTimeout)
		}
	}
	return nil
}

func (p *contextPool) createAndStash() error {
	bc, err := p.create()
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.idle = append(p.idle, bc)
	p.all[bc.id] = bc
	p.mu.Unlock()
	return nil
}

func (p *contextPool) create() (*browserContext, error) {
	return p.factory()
}

func (p *contextPool) destroy(bc *browserContext) {
	p.destroyer(bc)
}

func createBrowserContext(b *rod.Browser) (*browserContext, error) {
	result, err := proto.TargetCreateBrowserContext{}.Call(b)
	if err != nil {
		return nil, fmt.Errorf("create browser context: %w", err)
	}
	return &browserContext{id: result.BrowserContextID, createdAt: time.Now()}, nil
}

func destroyBrowserContext(b *rod.Browser, bc *browserContext) {
	if b == nil {
		return
	}
	_ = proto.TargetDisposeBrowserContext{BrowserContextID: bc.id}.Call(b)
}

// isDraining reports whether the pool is mid-reset; Get returns an error
// in that state so the caller can invoke the draining-recovery path.
func (p *contextPool) isDraining() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draining
}

var errPoolDraining = fmt.Errorf("context pool is draining")

// get borrows a context, LIFO-biased, skipping nil entries (no other
// check is made on the borrowed context); an empty pool falls through to
// creating a new one bounded by the Max ceiling.
func (p *contextPool) get() (*browserContext, error) {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return nil, errPoolDraining
	}
	for len(p.idle) > 0 {
		bc := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		if bc != nil {
			p.mu.Unlock()
			return bc, nil
		}
	}
	total := len(p.all)
	p.mu.Unlock()

	if total >= p.cfg.Max {
		return nil, fmt.Errorf("context pool exhausted: %d/%d", total, p.cfg.Max)
	}
	bc, err := p.create()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.all[bc.id] = bc
	p.mu.Unlock()
	return bc, nil
}

// put returns bc to the idle stack, unless shouldClose decides to retire
// it (see the release-path policy in pool.go).
func (p *contextPool) put(bc *browserContext, shouldClose bool) {
	p.mu.Lock()
	retire := shouldClose || p.draining
	if retire {
		delete(p.all, bc.id)
	} else {
		p.idle = append(p.idle, bc)
	}
	p.mu.Unlock()

	if retire {
		p.destroy(bc)
	}
}

// size returns (idle, total).
func (p *contextPool) size() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle), len(p.all)
}

// releaseIdleAboveMin closes idle contexts beyond Min, returning the count
// closed. Used by ReleaseUnusedContexts.
func (p *contextPool) releaseIdleAboveMin() int {
	p.mu.Lock()
	var victims []*browserContext
	for len(p.idle) > 0 && len(p.all) > p.cfg.Min {
		bc := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		delete(p.all, bc.id)
		victims = append(victims, bc)
	}
	p.mu.Unlock()
	for _, bc := range victims {
		p.destroy(bc)
	}
	return len(victims)
}

// drain marks the pool draining and disposes every currently-idle
// context. Contexts still checked out are left in `all` and are
// destroyed by put (rather than stashed) once their borrower releases
// them, so a context is never disposed while still in use.
func (p *contextPool) drain() {
	p.mu.Lock()
	p.draining = true
	victims := make([]*browserContext, 0, len(p.idle))
	for _, bc := range p.idle {
		victims = append(victims, bc)
		delete(p.all, bc.id)
	}
	p.idle = nil
	p.mu.Unlock()

	for _, bc := range victims {
		p.destroy(bc)
	}
}
