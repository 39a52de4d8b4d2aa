package pagescraper

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/scrapeforge/scrapesvc/cleaner"
	"github.com/scrapeforge/scrapesvc/model"
)

// assembledSections holds the pieces assembleMarkdown composes into the
// final document, per spec.md §4.3 step 9.
type assembledSections struct {
	Title   string
	Content string
	Links   *model.LinkBundle
	Footer  string
}

var blankLineRun = regexp.MustCompile(`\n{3,}`)

// assembleMarkdown builds the final document: a title heading, the core
// content, then Navigation/Social Media/Contact Information/Footer
// sections (only when non-empty), with all link references converted to
// reference-style and emitted once at the end.
func assembleMarkdown(s assembledSections) string {
	var b strings.Builder

	if s.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", s.Title)
	}

	b.WriteString("## Core Content\n\n")
	b.WriteString(strings.TrimSpace(s.Content))
	b.WriteString("\n")

	if s.Links != nil {
		if section := linkSection("Navigation", s.Links.PageURLs); section != "" {
			b.WriteString("\n")
			b.WriteString(section)
		}
		if section := linkSection("Social Media", s.Links.SocialURLs); section != "" {
			b.WriteString("\n")
			b.WriteString(section)
		}
		if section := contactSection(s.Links.ContactURLs); section != "" {
			b.WriteString("\n")
			b.WriteString(section)
		}
	}

	if strings.TrimSpace(s.Footer) != "" {
		fmt.Fprintf(&b, "\n## Footer\n\n%s\n", strings.TrimSpace(s.Footer))
	}

	out := blankLineRun.ReplaceAllString(b.String(), "\n\n")
	return cleaner.ConvertToCitations(strings.TrimSpace(out) + "\n")
}

func linkSection(heading string, links map[string]model.Link) string {
	if len(links) == 0 {
		return ""
	}
	keys := make([]string, 0, len(links))
	for k := range links {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", heading)
	for _, href := range keys {
		link := links[href]
		text := link.Text
		if text == "" {
			text = href
		}
		fmt.Fprintf(&b, "- [%s](%s)\n", text, href)
	}
	return b.String()
}

func contactSection(contacts map[string]model.ContactEntry) string {
	if len(contacts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(contacts))
	for k := range contacts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("## Contact Information\n\n")
	for _, href := range keys {
		entry := contacts[href]
		fmt.Fprintf(&b, "- %s: [%s](%s)\n", entry.Type, entry.Value, href)
	}
	return b.String()
}
