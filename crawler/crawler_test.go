package crawler

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scrapeforge/scrapesvc/config"
	"github.com/scrapeforge/scrapesvc/model"
)

type fakeFetcher struct {
	calls   atomic.Int32
	results map[string]*model.ScrapeResult
	fail    map[string]error
}

func (f *fakeFetcher) Scrape(_ context.Context, rawURL string, _ model.ScrapeOptions) (*model.ScrapeResult, error) {
	f.calls.Add(1)
	if err, ok := f.fail[rawURL]; ok {
		return nil, err
	}
	if r, ok := f.results[rawURL]; ok {
		return r, nil
	}
	return &model.ScrapeResult{URL: rawURL, Success: true, Links: model.NewLinkBundle()}, nil
}

func testCrawlerConfig() config.CrawlerConfig {
	return config.CrawlerConfig{
		DefaultSubpagesCount:   5,
		DefaultMaxDepth:        2,
		MaxConcurrentSubpages:  10,
		SubpageRequestTimeout:  5 * time.Second,
		MemoryCheckRSSBytes:    1 << 40, // effectively disabled in tests
		SimhashDedupeThreshold: 3,
	}
}

func TestScrapeWebsite_MergesSubpagesAndBuildsCombinedMarkdown(t *testing.T) {
	root := &model.ScrapeResult{
		URL:      "https://site.com",
		Markdown: "# Root\n",
		Links: &model.LinkBundle{
			PageURLs: map[string]model.Link{
				"https://site.com/about":    {Href: "https://site.com/about"},
				"https://site.com/features": {Href: "https://site.com/features"},
			},
			SocialURLs:   map[string]model.Link{},
			ContactURLs:  map[string]model.ContactEntry{},
			ImageURLs:    map[string]string{},
			ExternalURLs: map[string]model.Link{},
		},
	}

	fetcher := &fakeFetcher{
		results: map[string]*model.ScrapeResult{
			"https://site.com":          root,
			"https://site.com/about":    {URL: "https://site.com/about", Markdown: "about body", Links: model.NewLinkBundle(), Metadata: model.Metadata{Title: "About"}, MainContent: "about body unique text"},
			"https://site.com/features": {URL: "https://site.com/features", Markdown: "features body", Links: model.NewLinkBundle(), Metadata: model.Metadata{Title: "Features"}, MainContent: "features body unique text altogether different"},
		},
	}

	c := New(fetcher, nil, testCrawlerConfig())
	agg, err := c.ScrapeWebsite(context.Background(), "site.com", model.WebsiteCrawlOptions{SubpagesCount: 5})
	require.NoError(t, err)
	require.Equal(t, 2, agg.Stats.Processed)
	require.Equal(t, 0, agg.Stats.Failed)
	require.Contains(t, agg.CombinedMarkdown, "# Root")
	require.Contains(t, agg.CombinedMarkdown, "Subpage 1: About")
	require.Contains(t, agg.CombinedMarkdown, "Subpage 2: Features")
	require.Len(t, agg.Subpages, 2)
}

func TestScrapeWebsite_SubpageFailureDoesNotFailCrawl(t *testing.T) {
	root := &model.ScrapeResult{
		URL:   "https://site.com",
		Links: &model.LinkBundle{PageURLs: map[string]model.Link{"https://site.com/about": {Href: "https://site.com/about"}}, SocialURLs: map[string]model.Link{}, ContactURLs: map[string]model.ContactEntry{}, ImageURLs: map[string]string{}, ExternalURLs: map[string]model.Link{}},
	}
	fetcher := &fakeFetcher{
		results: map[string]*model.ScrapeResult{"https://site.com": root},
		fail:    map[string]error{"https://site.com/about": fmt.Errorf("navigation failed")},
	}

	c := New(fetcher, nil, testCrawlerConfig())
	agg, err := c.ScrapeWebsite(context.Background(), "site.com", model.WebsiteCrawlOptions{SubpagesCount: 5})
	require.NoError(t, err)
	require.Equal(t, 1, agg.Stats.Failed)
	require.False(t, agg.Subpages[0].Success)
}

func TestScrapeWebsite_RootFailurePropagates(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]error{"https://site.com": fmt.Errorf("root down")}}
	c := New(fetcher, nil, testCrawlerConfig())
	_, err := c.ScrapeWebsite(context.Background(), "site.com", model.WebsiteCrawlOptions{SubpagesCount: 5})
	require.Error(t, err)
}

func TestScrapeWebsite_RespectsSubpageCountK(t *testing.T) {
	root := &model.ScrapeResult{
		URL: "https://site.com",
		Links: &model.LinkBundle{
			PageURLs: map[string]model.Link{
				"https://site.com/a": {Href: "https://site.com/a"},
				"https://site.com/b": {Href: "https://site.com/b"},
				"https://site.com/c": {Href: "https://site.com/c"},
			},
			SocialURLs: map[string]model.Link{}, ContactURLs: map[string]model.ContactEntry{},
			ImageURLs: map[string]string{}, ExternalURLs: map[string]model.Link{},
		},
	}
	fetcher := &fakeFetcher{results: map[string]*model.ScrapeResult{"https://site.com": root}}
	c := New(fetcher, nil, testCrawlerConfig())
	agg, err := c.ScrapeWebsite(context.Background(), "site.com", model.WebsiteCrawlOptions{SubpagesCount: 2})
	require.NoError(t, err)
	require.LessOrEqual(t, len(agg.Subpages), 2)
}
