package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scrapeforge/scrapesvc/model"
)

type builtResult struct {
	url   string
	html  string
	title string
}

func TestScraper_BuildsResultFromWinningEngineHTML(t *testing.T) {
	engine := &fakeEngine{name: "http"}
	d := NewDispatcher([]Engine{engine}, []time.Duration{0}, NewDomainMemory(time.Minute))

	build := func(url, html, title string) (builtResult, error) {
		return builtResult{url: url, html: html, title: title}, nil
	}

	s := NewScraper(d, build)
	result, err := s.Scrape(context.Background(), "https://example.com", model.ScrapeOptions{})
	require.NoError(t, err)
	require.Equal(t, "https://example.com", result.url)
	require.Equal(t, "<html></html>", result.html)
}

func TestScraper_PropagatesDispatchFailure(t *testing.T) {
	engine := &fakeEngine{name: "http", err: errors.New("boom")}
	d := NewDispatcher([]Engine{engine}, []time.Duration{0}, NewDomainMemory(time.Minute))

	build := func(url, html, title string) (builtResult, error) {
		return builtResult{url: url, html: html, title: title}, nil
	}

	s := NewScraper(d, build)
	_, err := s.Scrape(context.Background(), "https://example.com", model.ScrapeOptions{})
	require.Error(t, err)
}

func TestScraper_PropagatesBuildFailure(t *testing.T) {
	engine := &fakeEngine{name: "http"}
	d := NewDispatcher([]Engine{engine}, []time.Duration{0}, NewDomainMemory(time.Minute))

	buildErr := errors.New("extraction failed")
	build := func(url, html, title string) (builtResult, error) {
		return builtResult{}, buildErr
	}

	s := NewScraper(d, build)
	_, err := s.Scrape(context.Background(), "https://example.com", model.ScrapeOptions{})
	require.ErrorIs(t, err, buildErr)
}
