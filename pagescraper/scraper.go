// Package pagescraper implements the PageScraper component: the per-URL
// scrape unit that borrows a page from browserpool.Pool, navigates,
// extracts structured content and link buckets, and assembles Markdown.
package pagescraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/go-rod/rod"

	"github.com/scrapeforge/scrapesvc/browserpool"
	"github.com/scrapeforge/scrapesvc/cleaner"
	"github.com/scrapeforge/scrapesvc/config"
	"github.com/scrapeforge/scrapesvc/model"
)

// Config is the tunable surface for Scrape, sourced from
// config.ScraperConfig.
type Config = config.ScraperConfig

// Scraper borrows pages from a browserpool.Pool and turns them into
// model.ScrapeResult values.
type Scraper struct {
	pool *browserpool.Pool
	cfg  Config
	conv *converter.Converter
}

// New returns a Scraper backed by pool.
func New(pool *browserpool.Pool, cfg Config) *Scraper {
	return &Scraper{
		pool: pool,
		cfg:  cfg,
		conv: cleaner.NewMarkdownConverter(),
	}
}

// Scrape implements spec.md §4.3's ten-step algorithm for a single URL.
// opts carries per-call stealth/header knobs applied down in
// browserpool; the zero value applies no stealth and no extra headers.
func (s *Scraper) Scrape(ctx context.Context, rawURL string, opts model.ScrapeOptions) (*model.ScrapeResult, error) {
	target, err := normalizeURL(rawURL)
	if err != nil {
		return nil, model.NewScrapeError(model.ErrCodeInvalidURL, err.Error(), err)
	}

	var lastErr error
	attempts := 1 + s.cfg.MaxRetries
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(1000*pow2(attempt-2)) * time.Millisecond
			if backoff > 5*time.Second {
				backoff = 5 * time.Second
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, model.NewScrapeError(model.ErrCodeCancelled, "scrape cancelled during retry backoff", ctx.Err())
			}
		}

		result, scrapeErr := s.scrapeOnce(ctx, target, opts)
		if scrapeErr == nil {
			return result, nil
		}
		lastErr = scrapeErr

		if !model.IsRetryable(scrapeErr) || attempt == attempts {
			break
		}
		slog.Warn("scrape attempt failed, retrying", "url", target, "attempt", attempt, "error", scrapeErr)
	}

	return nil, lastErr
}

// rawPage is the output of a single browser visit, before extraction.
type rawPage struct {
	html  string
	title string
}

// scrapeOnce runs a single non-retried attempt: acquire a page, navigate,
// scroll, extract, classify, and assemble Markdown.
func (s *Scraper) scrapeOnce(ctx context.Context, target string, opts model.ScrapeOptions) (*model.ScrapeResult, error) {
	rp, err := s.FetchRawHTML(ctx, target, opts)
	if err != nil {
		return nil, err
	}
	return s.BuildResult(target, rp.html, rp.title)
}

// FetchRaw drives a single browser visit and returns the rendered HTML
// and document title in the shape fetch.RawFetchFunc expects, so a
// Scraper can plug directly into fetch.NewRodEngine.
func (s *Scraper) FetchRaw(ctx context.Context, target string, opts model.ScrapeOptions) (string, string, error) {
	rp, err := s.FetchRawHTML(ctx, target, opts)
	if err != nil {
		return "", "", err
	}
	return rp.html, rp.title, nil
}

// FetchRawHTML drives a single browser visit (navigate, settle, scroll)
// and returns the rendered HTML and document title, without running
// extraction. FetchRaw wraps it for the fetch package's multi-engine
// dispatcher, which uses it as the "rod" engine in a race against a
// pure-HTTP fetch.
func (s *Scraper) FetchRawHTML(ctx context.Context, target string, opts model.ScrapeOptions) (rawPage, error) {
	return browserpool.WithPage(s.pool, opts, func(page *rod.Page) (rawPage, error) {
		p := page.Context(ctx)

		if navErr := p.Navigate(target); navErr != nil {
			return rawPage{}, categorizeNavError(navErr)
		}

		if waitErr := p.WaitDOMStable(300*time.Millisecond, 0.1); waitErr != nil {
			slog.Debug("page did not settle before timeout, proceeding anyway", "url", target, "error", waitErr)
		}

		// Up to 5s additional wait for loadEventEnd, best-effort.
		waitLoadEvent(p, 5*time.Second)

		time.Sleep(s.cfg.StabilityDelay)

		html, err := p.HTML()
		if err != nil {
			return rawPage{}, model.NewScrapeError(model.ErrCodeExtraction, "failed to read page HTML", err)
		}

		if needsScroll(html) {
			if err := scrollPage(p, scrollConfig{
				ByPixels:    s.cfg.ScrollByPixels,
				Interval:    s.cfg.ScrollInterval,
				MaxDuration: s.cfg.MaxScrollTime,
			}); err != nil {
				slog.Debug("scroll loop ended early", "url", target, "error", err)
			}
			html, err = p.HTML()
			if err != nil {
				return rawPage{}, model.NewScrapeError(model.ErrCodeExtraction, "failed to read page HTML after scroll", err)
			}
		}

		title, _ := p.Eval(`() => document.title`)
		titleStr := ""
		if title != nil {
			titleStr = title.Value.Str()
		}

		return rawPage{html: html, title: titleStr}, nil
	})
}

// BuildResult runs the post-navigation extraction/classification/assembly
// steps (spec.md §4.3 steps 6-9) over a single HTML snapshot. Exported so
// callers that acquire HTML some other way (the fetch package's HTTP
// engine) can still produce a model.ScrapeResult through the same pipeline.
func (s *Scraper) BuildResult(target, rawHTML, title string) (*model.ScrapeResult, error) {
	links, err := classifyLinks(rawHTML, target, s.cfg)
	if err != nil {
		return nil, model.NewScrapeError(model.ErrCodeExtraction, "link classification failed", err)
	}

	metadata := cleaner.ExtractMetadata(rawHTML)
	if metadata.Title == "" {
		metadata.Title = title
	}

	footer := cleaner.ExtractFooter(rawHTML, s.cfg.FooterCharLimit)

	article, err := cleaner.ExtractArticle(rawHTML, target)
	if err != nil {
		return nil, err
	}

	host := hostOf(target)
	contentMarkdown, err := cleaner.ToMarkdown(s.conv, article.Content, host)
	if err != nil {
		contentMarkdown = article.TextContent
	}

	markdown := assembleMarkdown(assembledSections{
		Title:   firstNonEmpty(metadata.Title, article.Title, title),
		Content: contentMarkdown,
		Links:   links,
		Footer:  footer,
	})

	return &model.ScrapeResult{
		URL:         target,
		Metadata:    metadata,
		MainContent: cleanMainContent(article.TextContent),
		Markdown:    markdown,
		Links:       links,
		Footer:      footer,
		Success:     true,
	}, nil
}

var whitespaceRunPattern = regexp.MustCompile(`[ \t]+`)

// cleanMainContent implements spec.md §4.3 step 8: tabs become spaces,
// each line is trimmed and its interior whitespace runs collapsed to a
// single space, and runs of blank lines collapse to one.
func cleanMainContent(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\t", " "), "\n")
	cleaned := make([]string, 0, len(lines))
	lastBlank := false
	for _, line := range lines {
		line = strings.TrimSpace(whitespaceRunPattern.ReplaceAllString(line, " "))
		if line == "" {
			if lastBlank {
				continue
			}
			lastBlank = true
		} else {
			lastBlank = false
		}
		cleaned = append(cleaned, line)
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

func waitLoadEvent(p *rod.Page, max time.Duration) {
	ctx, cancel := context.WithTimeout(p.GetContext(), max)
	defer cancel()
	_, _ = p.Context(ctx).Eval(`() => new Promise(resolve => {
		if (document.readyState === 'complete') return resolve(true);
		window.addEventListener('load', () => resolve(true), { once: true });
	})`)
}

func categorizeNavError(err error) *model.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return model.NewScrapeError(model.ErrCodeTimeout, "navigation timed out", err)
	case errors.Is(err, context.Canceled):
		return model.NewScrapeError(model.ErrCodeCancelled, "navigation cancelled", err)
	default:
		return model.NewScrapeError(model.ErrCodeNavigation, "navigation failed", err)
	}
}

// normalizeURL validates rawURL and prepends https:// if no scheme is
// present, per spec.md §4.3 step 1.
func normalizeURL(rawURL string) (string, error) {
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
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url has no host")
	}
	return u.String(), nil
}

func pow2(n int) int {
	if n <= 0 {
		return 1
	}
	result := 1
	for i := 0; i < n; i++ {
		result *= 2
	}
	return result
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
