package handler

import "github.com/scrapeforge/scrapesvc/model"

// ScrapeRequest is the payload for POST /api/v1/scrape.
type ScrapeRequest struct {
	// URL is the target page to scrape. Required.
	URL string `json:"url" binding:"required,url"`

	// MaxAge, in milliseconds, allows a cached response younger than this
	// to be returned instead of re-scraping. 0 disables cache lookup.
	MaxAge int `json:"max_age_ms,omitempty" binding:"omitempty,min=0"`

	// OutputFormat and ExtractMode are accepted for API compatibility with
	// the cache key shape but do not change pagescraper.Scraper's output,
	// which always produces Markdown via the single extraction pipeline.
	OutputFormat string `json:"output_format,omitempty" binding:"omitempty,oneof=markdown"`
	ExtractMode  string `json:"extract_mode,omitempty"`

	// Stealth enables anti-bot-detection evasions for this request.
	Stealth bool `json:"stealth,omitempty"`

	// Headers are extra HTTP headers applied to the navigation request.
	Headers map[string]string `json:"headers,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.OutputFormat == "" {
		r.OutputFormat = "markdown"
	}
}

// ToScrapeOptions builds the model.ScrapeOptions PageScraper.Scrape
// expects from the request's stealth/header fields.
func (r *ScrapeRequest) ToScrapeOptions() model.ScrapeOptions {
	return model.ScrapeOptions{Stealth: r.Stealth, Headers: r.Headers}
}

// ScrapeResponse is the response for POST /api/v1/scrape. Result is nil
// when Error is set (a nil embedded pointer would drop model.ScrapeResult's
// own Error field from the JSON output, so the two are kept separate
// rather than embedded).
type ScrapeResponse struct {
	Result      *model.ScrapeResult `json:"result,omitempty"`
	Error       *model.ErrorInfo    `json:"error,omitempty"`
	CacheStatus string              `json:"cache_status,omitempty"` // "hit", "miss", or ""
	Timing      TimingInfo          `json:"timing"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	TotalMs      int64 `json:"total_ms"`
	NavigationMs int64 `json:"navigation_ms,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string         `json:"status"` // "healthy" or "degraded"
	Uptime    string         `json:"uptime"`
	Pool      PoolHealth     `json:"pool"`
	Queue     QueueHealth    `json:"queue"`
	Version   string         `json:"version"`
}

// PoolHealth mirrors browserpool.Metrics for the health endpoint.
type PoolHealth struct {
	State          string `json:"state"`
	IdleContexts   int    `json:"idle_contexts"`
	TotalContexts  int    `json:"total_contexts"`
	WarmPages      int    `json:"warm_pages"`
	PagesProcessed int64  `json:"pages_processed"`
	RestartCount   int64  `json:"restart_count"`
}

// QueueHealth mirrors queue.Stats for the health endpoint.
type QueueHealth struct {
	Active  int `json:"active"`
	Pending int `json:"pending"`
}

// CrawlRequest is the payload for POST /api/v1/crawl.
type CrawlRequest struct {
	// URL is the root page to crawl. Required.
	URL string `json:"url" binding:"required,url"`

	// SubpagesCount is k in WebsiteCrawler.ScrapeWebsite. 0 uses the
	// configured default.
	SubpagesCount int `json:"subpages_count,omitempty" binding:"omitempty,min=1,max=50"`

	// Keywords add to the built-in subpage-scoring keyword list.
	Keywords []string `json:"keywords,omitempty"`

	// ExcludePatterns add to the built-in excluded-path-prefix list.
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`

	// MaxDepth bounds candidate subpage path depth. 0 uses the configured
	// default.
	MaxDepth int `json:"max_depth,omitempty" binding:"omitempty,min=1,max=10"`

	// Stealth and Headers are applied to the root fetch and every subpage.
	Stealth bool              `json:"stealth,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// ToWebsiteCrawlOptions builds the model.WebsiteCrawlOptions
// WebsiteCrawler.ScrapeWebsite expects from the request's fields.
func (r *CrawlRequest) ToWebsiteCrawlOptions() model.WebsiteCrawlOptions {
	return model.WebsiteCrawlOptions{
		SubpagesCount:   r.SubpagesCount,
		Keywords:        r.Keywords,
		ExcludePatterns: r.ExcludePatterns,
		MaxDepth:        r.MaxDepth,
		Scrape:          model.ScrapeOptions{Stealth: r.Stealth, Headers: r.Headers},
	}
}

// CrawlResponse is the immediate response for POST /api/v1/crawl.
type CrawlResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CrawlStatusResponse is the response for GET /api/v1/crawl/:id.
type CrawlStatusResponse struct {
	ID     string                  `json:"id"`
	Status string                  `json:"status"` // "processing", "completed", "failed"
	Result *model.AggregatedResult `json:"result,omitempty"`
	Error  *model.ErrorInfo        `json:"error,omitempty"`
}

// CrawlJob tracks an in-progress crawl job.
type CrawlJob struct {
	ID            string
	Status        string
	Result        *model.AggregatedResult
	Error         *model.ErrorInfo
	CreatedAt     int64 // unix timestamp
	WebhookURL    string
	WebhookSecret string
}

// BatchRequest is the payload for POST /api/v1/batch/scrape.
type BatchRequest struct {
	URLs []string `json:"urls" binding:"required,min=1,max=100"`

	// Stealth and Headers apply to every URL in the batch.
	Stealth bool              `json:"stealth,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// ToScrapeOptions builds the model.ScrapeOptions applied to every URL in
// the batch.
func (r *BatchRequest) ToScrapeOptions() model.ScrapeOptions {
	return model.ScrapeOptions{Stealth: r.Stealth, Headers: r.Headers}
}

// BatchResponse is the immediate response for POST /api/v1/batch/scrape.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID        string                   `json:"id"`
	Status    string                   `json:"status"`
	Completed int                      `json:"completed"`
	Total     int                      `json:"total"`
	Results   []*BatchItemResult       `json:"results,omitempty"`
}

// BatchItemResult is one URL's outcome within a batch job.
type BatchItemResult struct {
	URL    string              `json:"url"`
	Result *model.ScrapeResult `json:"result,omitempty"`
	Error  *model.ErrorInfo    `json:"error,omitempty"`
}

// BatchJob tracks an in-progress batch scrape job.
type BatchJob struct {
	ID        string
	Status    string
	Total     int
	Completed int
	Results   []*BatchItemResult
	CreatedAt int64
}
