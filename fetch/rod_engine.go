package fetch

import (
	"context"
	"fmt"

	"github.com/scrapeforge/scrapesvc/model"
)

// RawFetchFunc fetches rendered HTML and title for a URL via a real
// browser. Implemented by pagescraper.Scraper.FetchRaw; injected here to
// avoid a fetch -> pagescraper -> browserpool -> fetch import cycle.
type RawFetchFunc func(ctx context.Context, url string, opts model.ScrapeOptions) (html string, title string, err error)

// RodEngine is a browser-based engine that delegates to a RawFetchFunc.
type RodEngine struct {
	fetchFunc RawFetchFunc
}

// NewRodEngine creates a RodEngine around fetchFunc.
func NewRodEngine(fetchFunc RawFetchFunc) *RodEngine {
	return &RodEngine{fetchFunc: fetchFunc}
}

func (e *RodEngine) Name() string { return "rod" }

func (e *RodEngine) Fetch(ctx context.Context, req *Request) (*Result, error) {
	if e.fetchFunc == nil {
		return nil, fmt.Errorf("rod: fetchFunc not configured")
	}

	opts := model.ScrapeOptions{Stealth: req.Stealth, Headers: req.Headers}
	html, title, err := e.fetchFunc(ctx, req.URL, opts)
	if err != nil {
		return nil, fmt.Errorf("rod: %w", err)
	}

	return &Result{
		HTML:       html,
		Title:      title,
		FinalURL:   req.URL,
		EngineName: e.Name(),
	}, nil
}
