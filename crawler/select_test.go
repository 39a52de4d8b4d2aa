package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scrapeforge/scrapesvc/model"
)

// spec scenario 4: selected set = {/about, /products/x, /features};
// /privacy and /cart excluded by pattern, /products/x/y/z excluded by depth.
func TestSelectSubpages_WorkedExample(t *testing.T) {
	pages := map[string]model.Link{
		"https://site.com/about":          {Href: "https://site.com/about"},
		"https://site.com/privacy":        {Href: "https://site.com/privacy"},
		"https://site.com/products/x":     {Href: "https://site.com/products/x"},
		"https://site.com/products/x/y/z": {Href: "https://site.com/products/x/y/z"},
		"https://site.com/cart":           {Href: "https://site.com/cart"},
		"https://site.com/features":       {Href: "https://site.com/features"},
	}

	selected := SelectSubpages("https://site.com", pages, 2, 3, nil, nil)
	require.Len(t, selected, 3)

	hrefs := make(map[string]bool)
	for _, l := range selected {
		hrefs[l.Href] = true
	}
	require.True(t, hrefs["https://site.com/about"])
	require.True(t, hrefs["https://site.com/products/x"])
	require.True(t, hrefs["https://site.com/features"])
	require.False(t, hrefs["https://site.com/privacy"])
	require.False(t, hrefs["https://site.com/cart"])
	require.False(t, hrefs["https://site.com/products/x/y/z"])
}

func TestSelectSubpages_DropsOffOriginLinks(t *testing.T) {
	pages := map[string]model.Link{
		"https://other.com/about": {Href: "https://other.com/about"},
		"https://site.com/about":  {Href: "https://site.com/about"},
	}
	selected := SelectSubpages("https://site.com", pages, 2, 5, nil, nil)
	require.Len(t, selected, 1)
	require.Equal(t, "https://site.com/about", selected[0].Href)
}

func TestSelectSubpages_TreatsWWWAsSameOrigin(t *testing.T) {
	pages := map[string]model.Link{
		"https://www.site.com/about": {Href: "https://www.site.com/about"},
	}
	selected := SelectSubpages("https://site.com", pages, 2, 5, nil, nil)
	require.Len(t, selected, 1)
}

func TestSelectSubpages_CapsAtK(t *testing.T) {
	pages := map[string]model.Link{
		"https://site.com/a": {Href: "https://site.com/a"},
		"https://site.com/b": {Href: "https://site.com/b"},
		"https://site.com/c": {Href: "https://site.com/c"},
		"https://site.com/d": {Href: "https://site.com/d"},
	}
	selected := SelectSubpages("https://site.com", pages, 2, 2, nil, nil)
	require.Len(t, selected, 2)
}

func TestSelectSubpages_ExcludesNormalizedRoot(t *testing.T) {
	pages := map[string]model.Link{
		"https://site.com/":     {Href: "https://site.com/"},
		"https://site.com/real": {Href: "https://site.com/real"},
	}
	selected := SelectSubpages("https://site.com", pages, 2, 5, nil, nil)
	require.Len(t, selected, 1)
	require.Equal(t, "https://site.com/real", selected[0].Href)
}
