package browserpool

import (
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// warmPagePool is the fast-path page pool from §4.1 step 1: a small
// channel of ready-to-reuse Pages that lets WithPage skip context
// acquisition and resource-filter installation entirely on the common
// path.
type warmPagePool struct {
	pages chan *rod.Page
}

func newWarmPagePool(size int) *warmPagePool {
	return &warmPagePool{pages: make(chan *rod.Page, size)}
}

// tryBorrow attempts a non-blocking-ish borrow bounded by timeout. The
// 0.8 probability gate lives in the caller (pool.go), matching the
// acquisition algorithm's step 1.
func (w *warmPagePool) tryBorrow(timeout time.Duration) (*rod.Page, bool) {
	select {
	case p := <-w.pages:
		return p, true
	case <-time.After(timeout):
		return nil, false
	}
}

// reset clears local/session storage, scrolls to origin, and with
// probability 0.3 clears cookies, per the acquisition algorithm's reuse
// policy.
func resetWarmPage(p *rod.Page) error {
	_, err := p.Eval(`() => {
		try { window.localStorage.clear() } catch (e) {}
		try { window.sessionStorage.clear() } catch (e) {}
		window.scrollTo(0, 0)
	}`)
	if err != nil {
		return err
	}
	if rand.Float64() < 0.3 {
		_ = proto.NetworkClearBrowserCookies{}.Call(p)
	}
	return nil
}

// put returns a page to the warm pool if there is room, else closes it.
func (w *warmPagePool) put(p *rod.Page) {
	select {
	case w.pages <- p:
	default:
		p.Close()
	}
}

// drain closes every page currently sitting idle in the pool.
func (w *warmPagePool) drain() {
	for {
		select {
		case p := <-w.pages:
			p.Close()
		default:
			return
		}
	}
}

func (w *warmPagePool) len() int { return len(w.pages) }
