package fetch

import (
	"context"

	"github.com/scrapeforge/scrapesvc/model"
)

// ResultBuilder turns raw HTML into a full scrape result. Implemented by
// pagescraper.Scraper.BuildResult.
type ResultBuilder[T any] func(url, html, title string) (T, error)

// Scraper wraps a Dispatcher and a ResultBuilder so the fast multi-engine
// path can stand in for a full browser-based scraper wherever the caller
// only needs PageFetcher's Scrape(ctx, url, opts) shape (crawler.PageFetcher).
type Scraper[T any] struct {
	dispatcher *Dispatcher
	build      ResultBuilder[T]
}

// NewScraper returns a Scraper that races engines via dispatcher and
// builds results with build.
func NewScraper[T any](dispatcher *Dispatcher, build ResultBuilder[T]) *Scraper[T] {
	return &Scraper[T]{dispatcher: dispatcher, build: build}
}

// Scrape fetches url via the fastest winning engine and builds a result
// from the returned HTML. opts.Stealth/opts.Headers ride along on the
// Request so whichever engine wins (including the rod engine) can honor
// them.
func (s *Scraper[T]) Scrape(ctx context.Context, url string, opts model.ScrapeOptions) (T, error) {
	var zero T
	result, err := s.dispatcher.Dispatch(ctx, &Request{URL: url, Headers: opts.Headers, Stealth: opts.Stealth})
	if err != nil {
		return zero, err
	}
	return s.build(url, result.HTML, result.Title)
}
