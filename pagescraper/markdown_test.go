package pagescraper

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scrapeforge/scrapesvc/model"
)

func TestAssembleMarkdown_IncludesPopulatedSectionsOnly(t *testing.T) {
	bundle := model.NewLinkBundle()
	bundle.PageURLs["https://site.com/about"] = model.Link{Href: "https://site.com/about", Text: "About"}
	bundle.SocialURLs["https://twitter.com/x"] = model.Link{Href: "https://twitter.com/x", Text: "Twitter"}

	md := assembleMarkdown(assembledSections{
		Title:   "Example Page",
		Content: "Some body text.",
		Links:   bundle,
	})

	require.Contains(t, md, "# Example Page")
	require.Contains(t, md, "## Core Content")
	require.Contains(t, md, "## Navigation")
	require.Contains(t, md, "## Social Media")
	require.NotContains(t, md, "## Contact Information")
	require.NotContains(t, md, "## Footer")
}

func TestAssembleMarkdown_CollapsesExcessBlankLines(t *testing.T) {
	md := assembleMarkdown(assembledSections{
		Title:   "T",
		Content: "line one\n\n\n\n\nline two",
	})
	require.NotContains(t, md, "\n\n\n")
}

func TestAssembleMarkdown_IncludesFooterWhenPresent(t *testing.T) {
	md := assembleMarkdown(assembledSections{
		Title:   "T",
		Content: "body",
		Footer:  "Copyright 2026 Acme",
	})
	require.Contains(t, md, "## Footer")
	require.Contains(t, md, "Copyright 2026 Acme")
}
