// Package crawler implements the WebsiteCrawler component: it scrapes a
// root URL via pagescraper, selects the best K subpages from the root's
// link graph, fans them out, and merges the results into a
// model.AggregatedResult.
package crawler

import (
	"net/url"
	"sort"
	"strings"

	"github.com/scrapeforge/scrapesvc/model"
)

// excludedPathPrefixes are dropped from subpage candidates unconditionally,
// per spec.md §4.4 step 3.
var excludedPathPrefixes = []string{
	"/login", "/signin", "/signup", "/register", "/account",
	"/privacy", "/terms", "/cookies", "/gdpr",
	"/contact", "/cart", "/checkout", "/basket", "/purchase", "/buy",
}

// scoreKeywords add 20 points per hit anywhere in the path.
var scoreKeywords = []string{"blog", "article", "news", "guide", "docs", "pricing"}

// importantSections add 15 points per hit when the path starts with them.
var importantSections = []string{"/about", "/products", "/services", "/faq", "/features"}

type candidate struct {
	normalized string
	link       model.Link
	depth      int
	score      int
	order      int
}

// SelectSubpages implements spec.md §4.4 step 3: deterministic scoring
// over the root's same-origin page links, returning up to k candidates.
// extraKeywords add to the built-in scoring keyword list; extraExcludes
// add to the built-in excluded-path-prefix list (model.WebsiteCrawlOptions'
// Keywords/ExcludePatterns).
func SelectSubpages(rootURL string, pageURLs map[string]model.Link, maxDepth, k int, extraKeywords, extraExcludes []string) []model.Link {
	root, err := url.Parse(rootURL)
	if err != nil {
		return nil
	}
	rootHost := stripWWWHost(root.Hostname())
	normalizedRoot := normalizeForDedupe(rootURL)

	excludes := append(append([]string{}, excludedPathPrefixes...), extraExcludes...)
	keywords := append(append([]string{}, scoreKeywords...), extraKeywords...)

	seen := make(map[string]struct{})
	var candidates []candidate
	order := 0

	keys := make([]string, 0, len(pageURLs))
	for k := range pageURLs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, href := range keys {
		link := pageURLs[href]
		u, err := url.Parse(href)
		if err != nil {
			continue
		}
		if stripWWWHost(u.Hostname()) != rootHost {
			continue
		}

		u.Fragment = ""
		norm := normalizeForDedupe(u.String())
		if norm == normalizedRoot {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}

		if hasExcludedPrefix(u.Path, excludes) {
			continue
		}

		depth := pathDepth(u.Path)
		if depth > maxDepth {
			continue
		}

		seen[norm] = struct{}{}
		score := scoreCandidate(u.Path, maxDepth, depth, keywords)
		candidates = append(candidates, candidate{
			normalized: norm,
			link:       link,
			depth:      depth,
			score:      score,
			order:      order,
		})
		order++
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].order < candidates[j].order
	})

	topPool := 2 * k
	if topPool > len(candidates) {
		topPool = len(candidates)
	}
	candidates = candidates[:topPool]

	finalSeen := make(map[string]struct{})
	var result []model.Link
	for _, c := range candidates {
		if len(result) >= k {
			break
		}
		if _, dup := finalSeen[c.normalized]; dup {
			continue
		}
		finalSeen[c.normalized] = struct{}{}
		result = append(result, c.link)
	}

	return result
}

func scoreCandidate(path string, maxDepth, depth int, keywords []string) int {
	score := (maxDepth - depth) * 10

	pathLen := len(path)
	lenBonus := 100 - pathLen
	if lenBonus < 0 {
		lenBonus = 0
	}
	score += lenBonus

	lower := strings.ToLower(path)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			score += 20
		}
	}
	for _, section := range importantSections {
		if strings.HasPrefix(lower, section) {
			score += 15
		}
	}

	return score
}

func hasExcludedPrefix(path string, excludes []string) bool {
	lower := strings.ToLower(path)
	for _, prefix := range excludes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

func pathDepth(path string) int {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	depth := 0
	for _, s := range segments {
		if s != "" {
			depth++
		}
	}
	return depth
}

func stripWWWHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// normalizeForDedupe lowercases the host and strips a trailing slash so
// equivalent URLs collapse to one candidate.
func normalizeForDedupe(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	path := strings.TrimSuffix(u.Path, "/")
	u.Path = path
	return u.String()
}
