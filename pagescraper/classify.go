package pagescraper

import (
	"regexp"
	"strings"

	"github.com/scrapeforge/scrapesvc/cleaner"
	"github.com/scrapeforge/scrapesvc/model"
)

// socialHostSubstrings maps a platform name to the host substrings that
// identify it, fixed per spec.md §4.3.
var socialHostSubstrings = map[string][]string{
	"twitter":   {"twitter.com", "t.co"},
	"facebook":  {"facebook.com", "fb.com"},
	"instagram": {"instagram.com"},
	"linkedin":  {"linkedin.com"},
	"youtube":   {"youtube.com"},
	"tiktok":    {"tiktok.com"},
	"reddit":    {"reddit.com"},
	"github":    {"github.com"},
}

// contactServiceSubstrings maps a contact-service category to the host
// substrings that identify it, fixed per spec.md §4.3.
var contactServiceSubstrings = map[string][]string{
	"calendar": {"calendly.com", "cal.com", "youcanbook.me", "meetingbird.com", "doodle.com", "meetbot"},
	"meeting":  {"meet.google.com", "zoom.us", "teams.microsoft.com", "webex.com", "gotomeeting.com"},
	"form":     {"forms.", "typeform", "surveymonkey", "formstack", "wufoo", "jotform"},
	"chat":     {"intercom", "zendesk", "livechat", "tawk.to", "drift.com", "olark", "chatwoot"},
}

// emailPattern is a practical (not RFC-5322-exhaustive) email matcher used
// to scan body text for contact addresses.
var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

func matchesAnySubstring(host string, substrings []string) bool {
	host = strings.ToLower(host)
	for _, sub := range substrings {
		if strings.Contains(host, sub) {
			return true
		}
	}
	return false
}

func socialPlatformOf(host string) (string, bool) {
	for platform, subs := range socialHostSubstrings {
		if matchesAnySubstring(host, subs) {
			return platform, true
		}
	}
	return "", false
}

func contactServiceOf(host string) (string, bool) {
	for category, subs := range contactServiceSubstrings {
		if matchesAnySubstring(host, subs) {
			return category, true
		}
	}
	return "", false
}

// classifyLinks implements spec.md §4.3 step 7: build the five-bucket
// link bundle from a snapshot of the page's raw HTML, applying the
// cross-bundle rule once all buckets are populated.
func classifyLinks(rawHTML, pageURL string, cfg Config) (*model.LinkBundle, error) {
	bundle := model.NewLinkBundle()

	anchors, err := cleaner.ExtractAnchors(rawHTML, pageURL)
	if err != nil {
		return nil, err
	}

	baseHost := hostOf(pageURL)

	for _, a := range anchors {
		if platform, ok := socialPlatformOf(a.Host); ok {
			bundle.SocialURLs[a.Href] = a.Link
			_ = platform
			continue
		}
		if category, ok := contactServiceOf(a.Host); ok {
			bundle.ContactURLs[a.Href] = model.ContactEntry{Type: category, Value: a.Href}
			continue
		}
		if strings.EqualFold(stripWWW(a.Host), stripWWW(baseHost)) {
			if len(bundle.PageURLs) < cfg.MaxInternalLinks {
				bundle.PageURLs[a.Href] = a.Link
			}
		} else {
			if len(bundle.ExternalURLs) < cfg.MaxExternalLinks {
				bundle.ExternalURLs[a.Href] = a.Link
			}
		}
	}

	images, err := cleaner.ExtractImages(rawHTML, pageURL)
	if err == nil {
		for _, img := range images {
			bundle.ImageURLs[img] = img
		}
	}

	mailtos, err := cleaner.ExtractMailtoLinks(rawHTML)
	if err == nil {
		for _, addr := range mailtos {
			bundle.ContactURLs["mailto:"+addr] = model.ContactEntry{Type: "email", Value: addr}
		}
	}

	scanForEmails(rawHTML, bundle, cfg.EmailScanLimit, cfg.MaxEmailContacts)

	bundle.Finalize()
	return bundle, nil
}

// scanForEmails scans up to scanLimit runes of rawHTML for email
// addresses and adds unique ones not already present until the bundle
// holds maxContacts email entries (mailto: entries included).
func scanForEmails(rawHTML string, bundle *model.LinkBundle, scanLimit, maxContacts int) {
	runes := []rune(rawHTML)
	if scanLimit > 0 && len(runes) > scanLimit {
		runes = runes[:scanLimit]
	}
	text := string(runes)

	found := 0
	for _, entry := range bundle.ContactURLs {
		if entry.Type == "email" {
			found++
		}
	}

	for _, match := range emailPattern.FindAllString(text, -1) {
		if found >= maxContacts {
			break
		}
		key := "mailto:" + match
		if _, exists := bundle.ContactURLs[key]; exists {
			continue
		}
		bundle.ContactURLs[key] = model.ContactEntry{Type: "email", Value: match}
		found++
	}
}

func hostOf(rawURL string) string {
	h := strings.TrimPrefix(rawURL, "https://")
	h = strings.TrimPrefix(h, "http://")
	if idx := strings.IndexAny(h, "/?#"); idx >= 0 {
		h = h[:idx]
	}
	if idx := strings.Index(h, "@"); idx >= 0 {
		h = h[idx+1:]
	}
	if idx := strings.LastIndex(h, ":"); idx >= 0 {
		h = h[:idx]
	}
	return h
}

func stripWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
