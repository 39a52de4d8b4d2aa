package model

// Metadata holds page-level information extracted during scraping.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	Type        string `json:"type,omitempty"`
	Lang        string `json:"lang,omitempty"`
	OGImage     string `json:"og_image,omitempty"`
}

// Link is a single anchor extracted from a page.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// ContactEntry is a single contact-method extracted from a page.
type ContactEntry struct {
	Type  string `json:"type"` // "calendar", "meeting", "form", "chat", "email"
	Value string `json:"value"`
}

// LinkBundle is the set of categorized URLs extracted from a single page.
// Each bucket deduplicates by URL. The cross-bundle rule (spec.md §3 /
// §4.3 step 7) removes any URL from ExternalURLs that also appears in
// SocialURLs; Finalize (and Merge) apply that rule, so code that writes
// to the maps directly calls Finalize afterwards for the invariant to hold.
type LinkBundle struct {
	PageURLs     map[string]Link         `json:"-"`
	SocialURLs   map[string]Link         `json:"-"`
	ContactURLs  map[string]ContactEntry `json:"-"`
	ImageURLs    map[string]string       `json:"-"`
	ExternalURLs map[string]Link         `json:"-"`
}

// NewLinkBundle returns an empty, initialized LinkBundle.
func NewLinkBundle() *LinkBundle {
	return &LinkBundle{
		PageURLs:     make(map[string]Link),
		SocialURLs:   make(map[string]Link),
		ContactURLs:  make(map[string]ContactEntry),
		ImageURLs:    make(map[string]string),
		ExternalURLs: make(map[string]Link),
	}
}

// Finalize applies the cross-bundle rule: any URL present in SocialURLs is
// removed from ExternalURLs. Must be called once after a bundle is fully
// populated, and again after WebsiteCrawler merges bundles together.
func (b *LinkBundle) Finalize() {
	for url := range b.SocialURLs {
		delete(b.ExternalURLs, url)
	}
}

// Merge unions other into b with set-union (dedup-by-URL) semantics, then
// re-applies the cross-bundle rule. The caller owns neither map after this
// call returns; b is mutated in place.
func (b *LinkBundle) Merge(other *LinkBundle) {
	if other == nil {
		return
	}
	for k, v := range other.PageURLs {
		b.PageURLs[k] = v
	}
	for k, v := range other.SocialURLs {
		b.SocialURLs[k] = v
	}
	for k, v := range other.ContactURLs {
		b.ContactURLs[k] = v
	}
	for k, v := range other.ImageURLs {
		b.ImageURLs[k] = v
	}
	for k, v := range other.ExternalURLs {
		b.ExternalURLs[k] = v
	}
	b.Finalize()
}

// Stats summarizes bucket sizes for the API and for WebsiteCrawler's
// aggregated stats field.
type LinkStats struct {
	Pages    int `json:"pages"`
	Social   int `json:"social"`
	Contact  int `json:"contact"`
	Images   int `json:"images"`
	External int `json:"external"`
}

func (b *LinkBundle) Stats() LinkStats {
	return LinkStats{
		Pages:    len(b.PageURLs),
		Social:   len(b.SocialURLs),
		Contact:  len(b.ContactURLs),
		Images:   len(b.ImageURLs),
		External: len(b.ExternalURLs),
	}
}

// ScrapeResult is the output of a single PageScraper.Scrape call.
type ScrapeResult struct {
	URL         string
	Metadata    Metadata
	MainContent string
	Markdown    string
	Links       *LinkBundle
	Footer      string
	Success     bool
	Error       *ErrorInfo
}

// SubpageSummary is one entry in an AggregatedResult's Subpages list.
type SubpageSummary struct {
	URL       string     `json:"url"`
	Title     string     `json:"title,omitempty"`
	Success   bool       `json:"success"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Score     int        `json:"score,omitempty"`
	Duplicate bool       `json:"duplicate,omitempty"`
}

// AggregatedStats reports counts for a WebsiteCrawler run.
type AggregatedStats struct {
	Requested int       `json:"requested"`
	Selected  int       `json:"selected"`
	Processed int       `json:"processed"`
	Failed    int       `json:"failed"`
	Links     LinkStats `json:"links"`
}

// AggregatedResult is the output of WebsiteCrawler.ScrapeWebsite.
type AggregatedResult struct {
	MainResult      *ScrapeResult
	Subpages        []SubpageSummary
	Links           *LinkBundle
	CombinedMarkdown string
	Stats           AggregatedStats
}
