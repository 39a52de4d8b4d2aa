package pagescraper

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scrapeforge/scrapesvc/config"
)

func testConfig() Config {
	return config.ScraperConfig{
		EmailScanLimit:   15000,
		FooterCharLimit:  1000,
		MaxEmailContacts: 5,
		MaxInternalLinks: 50,
		MaxExternalLinks: 30,
	}
}

// spec scenario 3: social contains twitter only; external contains the
// blog but not twitter; contact contains an email and a calendar entry.
func TestClassifyLinks_SocialContactExternalSplit(t *testing.T) {
	html := `<html><body>
		<a href="https://twitter.com/x">Twitter</a>
		<a href="https://blog.example.com">Blog</a>
		<a href="mailto:a@b.com">Email us</a>
		<a href="https://calendly.com/x">Book a call</a>
		<a href="/about">About</a>
	</body></html>`

	bundle, err := classifyLinks(html, "https://site.com", testConfig())
	require.NoError(t, err)

	require.Contains(t, bundle.SocialURLs, "https://twitter.com/x")
	require.NotContains(t, bundle.ExternalURLs, "https://twitter.com/x")
	require.Contains(t, bundle.ExternalURLs, "https://blog.example.com")

	require.Len(t, bundle.ContactURLs, 2)
	var sawEmail, sawCalendar bool
	for _, entry := range bundle.ContactURLs {
		switch entry.Type {
		case "email":
			sawEmail = true
			require.Equal(t, "a@b.com", entry.Value)
		case "calendar":
			sawCalendar = true
		}
	}
	require.True(t, sawEmail)
	require.True(t, sawCalendar)

	require.Contains(t, bundle.PageURLs, "https://site.com/about")
}

func TestClassifyLinks_CrossBundleRuleRemovesSocialFromExternal(t *testing.T) {
	html := `<a href="https://facebook.com/page">FB</a>`
	bundle, err := classifyLinks(html, "https://site.com", testConfig())
	require.NoError(t, err)
	require.Contains(t, bundle.SocialURLs, "https://facebook.com/page")
	require.NotContains(t, bundle.ExternalURLs, "https://facebook.com/page")
}

func TestClassifyLinks_RespectsInternalExternalCaps(t *testing.T) {
	cfg := testConfig()
	cfg.MaxInternalLinks = 1
	cfg.MaxExternalLinks = 1

	html := `<a href="/a">a</a><a href="/b">b</a>
		<a href="https://other1.com">1</a><a href="https://other2.com">2</a>`
	bundle, err := classifyLinks(html, "https://site.com", cfg)
	require.NoError(t, err)
	require.Len(t, bundle.PageURLs, 1)
	require.Len(t, bundle.ExternalURLs, 1)
}

func TestScanForEmails_DedupsAgainstMailtoLinks(t *testing.T) {
	cfg := testConfig()
	html := `<a href="mailto:a@b.com">Email</a><p>reach us at a@b.com or c@d.com</p>`
	bundle, err := classifyLinks(html, "https://site.com", cfg)
	require.NoError(t, err)

	count := 0
	for _, entry := range bundle.ContactURLs {
		if entry.Type == "email" {
			count++
		}
	}
	require.Equal(t, 2, count)
}
