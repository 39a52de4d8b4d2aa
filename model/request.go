package model

// ScrapeOptions carries the per-call knobs accepted by PageScraper.Scrape.
// The zero value means no stealth evasions and no extra headers.
type ScrapeOptions struct {
	// Stealth enables anti-bot-detection evasions (navigator.webdriver
	// masking etc.) via github.com/go-rod/stealth.
	Stealth bool

	// Headers are extra HTTP headers applied to the navigation request.
	Headers map[string]string
}

// WebsiteCrawlOptions is the payload accepted by WebsiteCrawler.ScrapeWebsite,
// mirroring spec.md §6's ScrapeWebsite(url, {subpagesCount, keywords,
// excludePatterns, maxDepth}) signature.
type WebsiteCrawlOptions struct {
	// SubpagesCount is K, the number of subpages to select and fan out to.
	// Default: DefaultSubpagesCount (5).
	SubpagesCount int

	// Keywords are extra terms that boost a candidate subpage's score
	// (spec.md §4.4 step 3's keyword-hits term).
	Keywords []string

	// ExcludePatterns are additional path-prefix substrings to drop,
	// merged with the built-in default list.
	ExcludePatterns []string

	// MaxDepth bounds candidate path depth. Default: 2.
	MaxDepth int

	// Scrape options applied to the root and to every subpage.
	Scrape ScrapeOptions
}

// DefaultWebsiteCrawlOptions returns the spec.md §6/§4.4-default options.
func DefaultWebsiteCrawlOptions() WebsiteCrawlOptions {
	return WebsiteCrawlOptions{
		SubpagesCount: 5,
		MaxDepth:      2,
		ExcludePatterns: []string{
			"/login", "/signin", "/signup", "/register", "/account",
			"/privacy", "/terms", "/cookies", "/gdpr",
			"/contact", "/cart", "/checkout", "/basket", "/purchase", "/buy",
		},
	}
}
