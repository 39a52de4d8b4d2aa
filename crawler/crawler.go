package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/scrapeforge/scrapesvc/config"
	"github.com/scrapeforge/scrapesvc/memctrl"
	"github.com/scrapeforge/scrapesvc/model"
	"github.com/scrapeforge/scrapesvc/simhash"
)

// PageFetcher is the subset of pagescraper.Scraper the crawler depends on.
// Declared locally so crawler has no compile-time dependency on
// pagescraper's browser-acquisition internals.
type PageFetcher interface {
	Scrape(ctx context.Context, rawURL string, opts model.ScrapeOptions) (*model.ScrapeResult, error)
}

// ContextReleaser is the subset of browserpool.Pool the crawler drives
// under memory pressure mid-crawl.
type ContextReleaser interface {
	ReleaseUnusedContexts() int
}

// Crawler orchestrates WebsiteCrawler.ScrapeWebsite (spec.md §4.4).
type Crawler struct {
	root     PageFetcher
	subpage  PageFetcher
	releaser ContextReleaser
	cfg      config.CrawlerConfig
}

// New returns a Crawler that scrapes the root via root and, when RSS
// exceeds the configured threshold mid-crawl, asks releaser to free
// unused browser contexts. Subpages are scraped via root as well.
func New(root PageFetcher, releaser ContextReleaser, cfg config.CrawlerConfig) *Crawler {
	return &Crawler{root: root, subpage: root, releaser: releaser, cfg: cfg}
}

// WithSubpageFetcher returns a copy of c that scrapes subpages via a
// different (typically cheaper, multi-engine-raced) fetcher than the one
// used for the root page. The root page always goes through the full
// browser path since its link graph drives subpage selection.
func (c *Crawler) WithSubpageFetcher(subpage PageFetcher) *Crawler {
	clone := *c
	clone.subpage = subpage
	return &clone
}

// ScrapeWebsite implements spec.md §4.4: scrape the root, select up to k
// best subpages, fan them out, and merge into a model.AggregatedResult.
// opts.Scrape carries the stealth/header knobs applied to every fetch
// (root and subpages); opts.Keywords/ExcludePatterns extend the §4.4
// step 3 scoring and exclusion lists.
func (c *Crawler) ScrapeWebsite(ctx context.Context, rawURL string, opts model.WebsiteCrawlOptions) (*model.AggregatedResult, error) {
	rootURL, err := normalizeRoot(rawURL)
	if err != nil {
		return nil, model.NewScrapeError(model.ErrCodeInvalidURL, err.Error(), err)
	}

	k := opts.SubpagesCount
	if k <= 0 {
		k = c.cfg.DefaultSubpagesCount
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = c.cfg.DefaultMaxDepth
	}
	if maxDepth <= 0 {
		maxDepth = 2
	}

	mainResult, err := c.root.Scrape(ctx, rootURL, opts.Scrape)
	if err != nil {
		return nil, err
	}

	var candidates []model.Link
	if mainResult.Links != nil {
		candidates = SelectSubpages(rootURL, mainResult.Links.PageURLs, maxDepth, k, opts.Keywords, opts.ExcludePatterns)
	}

	subpageResults := c.fanOut(ctx, candidates, opts.Scrape)

	merged := model.NewLinkBundle()
	if mainResult.Links != nil {
		merged.Merge(mainResult.Links)
	}

	rootFingerprint := simhash.Fingerprint(mainResult.MainContent)
	mergedFingerprints := []uint64{rootFingerprint}

	var combined strings.Builder
	combined.WriteString(mainResult.Markdown)

	summaries := make([]model.SubpageSummary, 0, len(subpageResults))
	processed, failed := 0, 0

	for i, sp := range subpageResults {
		if sp.err != nil {
			failed++
			summaries = append(summaries, model.SubpageSummary{
				URL:     sp.url,
				Success: false,
				Error:   (&model.ScrapeError{Code: model.CodeOf(sp.err), Message: sp.err.Error()}).ToInfo(),
			})
			continue
		}

		processed++
		result := sp.result
		merged.Merge(result.Links)

		fp := simhash.Fingerprint(result.MainContent)
		duplicate := isNearDuplicate(fp, mergedFingerprints, c.cfg.SimhashDedupeThreshold)

		summaries = append(summaries, model.SubpageSummary{
			URL:       result.URL,
			Title:     result.Metadata.Title,
			Success:   true,
			Duplicate: duplicate,
		})

		if !duplicate {
			mergedFingerprints = append(mergedFingerprints, fp)
			fmt.Fprintf(&combined, "\n\n## Subpage %d: %s\n\n%s\n", i+1, result.Metadata.Title, result.Markdown)
		}
	}

	merged.Finalize()

	stats := model.AggregatedStats{
		Requested: len(candidates),
		Selected:  len(candidates),
		Processed: processed,
		Failed:    failed,
		Links:     merged.Stats(),
	}

	return &model.AggregatedResult{
		MainResult:       mainResult,
		Subpages:         summaries,
		Links:            merged,
		CombinedMarkdown: combined.String(),
		Stats:            stats,
	}, nil
}

type subpageOutcome struct {
	url    string
	result *model.ScrapeResult
	err    error
}

// fanOut implements spec.md §4.4 step 4: batched concurrency-capped
// subpage fetches with a mid-crawl RSS check between batches.
func (c *Crawler) fanOut(ctx context.Context, candidates []model.Link, scrapeOpts model.ScrapeOptions) []subpageOutcome {
	if len(candidates) == 0 {
		return nil
	}

	concurrency := c.cfg.MaxConcurrentSubpages
	if concurrency <= 0 {
		concurrency = 10
	}
	batchSize := 2 * concurrency

	results := make([]subpageOutcome, 0, len(candidates))

	for start := 0; start < len(candidates); start += batchSize {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		batchResults := c.runBatch(ctx, batch, concurrency, scrapeOpts)
		results = append(results, batchResults...)

		if rss, err := memctrl.ReadRSS(); err == nil && rss > c.cfg.MemoryCheckRSSBytes {
			if c.releaser != nil {
				released := c.releaser.ReleaseUnusedContexts()
				slog.Debug("crawler: RSS over threshold mid-crawl, released contexts", "rss_bytes", rss, "released", released)
			}
		}
	}

	return results
}

// runBatch scrapes one batch of subpages with at most concurrency concurrent
// requests, each bounded by SubpageRequestTimeout.
func (c *Crawler) runBatch(ctx context.Context, batch []model.Link, concurrency int, scrapeOpts model.ScrapeOptions) []subpageOutcome {
	results := make([]subpageOutcome, len(batch))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, link := range batch {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, link model.Link) {
			defer wg.Done()
			defer func() { <-sem }()

			subCtx, cancel := context.WithTimeout(ctx, c.cfg.SubpageRequestTimeout)
			defer cancel()

			result, err := c.subpage.Scrape(subCtx, link.Href, scrapeOpts)
			results[i] = subpageOutcome{url: link.Href, result: result, err: err}
		}(i, link)
	}

	wg.Wait()
	return results
}

func isNearDuplicate(fp uint64, seen []uint64, threshold int) bool {
	if threshold <= 0 {
		threshold = 3
	}
	for _, existing := range seen {
		if simhash.Distance(fp, existing) <= threshold {
			return true
		}
	}
	return false
}

// normalizeRoot implements spec.md §4.4 step 1: add scheme if missing,
// lowercase the host, upgrade http to https.
func normalizeRoot(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("url must not be empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	if u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	u.Host = strings.ToLower(u.Host)
	if u.Host == "" {
		return "", fmt.Errorf("url has no host")
	}
	return u.String(), nil
}
