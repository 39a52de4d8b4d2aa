package cache

import (
	"testing"
	"time"

	"github.com/scrapeforge/scrapesvc/model"
	"github.com/stretchr/testify/require"
)

func TestCache_GetMissesBelowMaxAgeZero(t *testing.T) {
	c := New(10)
	key := Key("https://example.com", "markdown", "")
	c.Set(key, &model.ScrapeResult{URL: "https://example.com"})

	_, hit := c.Get(key, 0)
	require.False(t, hit)
}

func TestCache_GetHitsWithinMaxAgeAndMissesAfterExpiry(t *testing.T) {
	c := New(10)
	key := Key("https://example.com", "markdown", "")
	c.Set(key, &model.ScrapeResult{URL: "https://example.com"})

	resp, hit := c.Get(key, 1000)
	require.True(t, hit)
	require.Equal(t, "https://example.com", resp.URL)

	time.Sleep(5 * time.Millisecond)
	_, hit = c.Get(key, 1)
	require.False(t, hit)
}

func TestCache_KeyDiffersByFormatAndMode(t *testing.T) {
	require.NotEqual(t, Key("https://example.com", "markdown", ""), Key("https://example.com", "html", ""))
	require.NotEqual(t, Key("https://example.com", "markdown", "fast"), Key("https://example.com", "markdown", "full"))
}

func TestCache_EvictsWhenAtCapacity(t *testing.T) {
	c := New(1)
	c.Set(Key("a", "markdown", ""), &model.ScrapeResult{URL: "a"})
	c.Set(Key("b", "markdown", ""), &model.ScrapeResult{URL: "b"})

	_, bHit := c.Get(Key("b", "markdown", ""), 1000)
	require.True(t, bHit)
	require.Len(t, c.store, 1)
}
