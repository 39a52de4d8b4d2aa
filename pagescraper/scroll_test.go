package pagescraper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNeedsScroll_DetectsLazyLoadMarkers(t *testing.T) {
	require.True(t, needsScroll(`<img data-src="x.jpg">`))
	require.True(t, needsScroll(`<img loading="lazy" src="x.jpg">`))
	require.True(t, needsScroll(`<div class="infinite-scroll">`))
	require.True(t, needsScroll(`<div class="pagination">`))
	require.False(t, needsScroll(`<p>plain static content</p>`))
}

func TestNeedsScroll_DetectsScrollPlusLoadMoreText(t *testing.T) {
	require.True(t, needsScroll(`<p>Scroll down to load more results</p>`))
	require.True(t, needsScroll(`<p>infinite scroll enabled here</p>`))
	require.False(t, needsScroll(`<p>scroll to top</p>`))
}
