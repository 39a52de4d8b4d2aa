package cleaner

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/scrapeforge/scrapesvc/model"
)

// RawAnchor is one deduplicated, absolute-resolved anchor found on a page.
// pagescraper.classify builds the social/contact/internal/external buckets
// from a slice of these using the fixed platform tables.
type RawAnchor struct {
	model.Link
	Host string
}

// ExtractAnchors parses rawHTML and returns every distinct http(s) anchor
// with its href resolved to an absolute URL against sourceURL.
func ExtractAnchors(rawHTML string, sourceURL string) ([]RawAnchor, error) {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	var anchors []RawAnchor
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		resolved.Fragment = ""
		absURL := resolved.String()
		if _, ok := seen[absURL]; ok {
			return
		}
		seen[absURL] = struct{}{}

		anchors = append(anchors, RawAnchor{
			Link: model.Link{Href: absURL, Text: strings.TrimSpace(s.Text())},
			Host: resolved.Hostname(),
		})
	})

	return anchors, nil
}

// ExtractMailtoLinks returns every mailto: href with the angle brackets and
// query string stripped off the address.
func ExtractMailtoLinks(rawHTML string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	var addrs []string
	seen := make(map[string]struct{})
	doc.Find("a[href^='mailto:']").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if idx := strings.IndexAny(addr, "?#"); idx >= 0 {
			addr = addr[:idx]
		}
		addr = strings.Trim(strings.TrimSpace(addr), "<>")
		if addr == "" {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		addrs = append(addrs, addr)
	})
	return addrs, nil
}

// ExtractImages parses the raw HTML and returns absolute image URLs,
// skipping data: URIs.
func ExtractImages(rawHTML string, sourceURL string) ([]string, error) {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	var images []string
	seen := make(map[string]struct{})
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, exists := s.Attr("src")
		if !exists || src == "" {
			return
		}
		resolved, err := base.Parse(src)
		if err != nil {
			return
		}
		if resolved.Scheme == "data" {
			return
		}
		absURL := resolved.String()
		if _, ok := seen[absURL]; ok {
			return
		}
		seen[absURL] = struct{}{}
		images = append(images, absURL)
	})
	return images, nil
}

// ExtractMetadata parses title, description, site name, type, language and
// og:image from the raw HTML.
func ExtractMetadata(rawHTML string) model.Metadata {
	var md model.Metadata

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return md
	}

	md.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		md.Lang = lang
	}

	doc.Find("meta[property], meta[name]").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		if prop == "" {
			prop, _ = s.Attr("name")
		}
		content, _ := s.Attr("content")
		if content == "" {
			return
		}
		switch prop {
		case "og:title":
			md.Title = content
		case "og:description", "description":
			if md.Description == "" {
				md.Description = content
			}
		case "og:image":
			md.OGImage = content
		case "og:type":
			md.Type = content
		case "og:site_name":
			md.SiteName = content
		}
	})

	return md
}

// ExtractFooter returns the trimmed text content of the page's <footer>
// element (or an element with class/id "footer"), truncated to limit
// characters.
func ExtractFooter(rawHTML string, limit int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}

	sel := doc.Find("footer").First()
	if sel.Length() == 0 {
		sel = doc.Find(".footer, #footer").First()
	}
	text := strings.TrimSpace(sel.Text())
	if r := []rune(text); limit > 0 && len(r) > limit {
		text = string(r[:limit])
	}
	return text
}
