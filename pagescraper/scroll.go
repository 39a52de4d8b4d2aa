package pagescraper

import (
	"strings"
	"time"

	"github.com/go-rod/rod"
)

// dynamicContentMarkers are DOM signals that a page lazy-loads content on
// scroll, per spec.md §4.3 step 4.
var dynamicContentMarkers = []string{
	"data-lazy", "data-src", `loading="lazy"`,
	"infinite-scroll", "load-more", "#infinite", "pagination",
}

// needsScroll reports whether rawHTML shows any sign of scroll-triggered
// content loading.
func needsScroll(rawHTML string) bool {
	lower := strings.ToLower(rawHTML)
	for _, marker := range dynamicContentMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	hasScroll := strings.Contains(lower, "scroll")
	hasLoadMore := strings.Contains(lower, "load-more") || strings.Contains(lower, "load more")
	hasInfinite := strings.Contains(lower, "infinite")
	return hasScroll && (hasLoadMore || hasInfinite)
}

// scrollConfig bundles the tunables scrollPage needs out of Config.
type scrollConfig struct {
	ByPixels    int
	Interval    time.Duration
	MaxDuration time.Duration
}

// scrollPage scrolls the page in fixed steps until it reaches the bottom
// (within 50px), MaxDuration elapses, or three consecutive steps produce no
// scroll-height change, per spec.md §4.3 step 4. It performs at least one
// scroll and always returns the page to the top afterward.
func scrollPage(page *rod.Page, cfg scrollConfig) error {
	deadline := time.Now().Add(cfg.MaxDuration)
	stagnant := 0
	lastHeight := -1

	for {
		if err := page.Mouse.Scroll(0, float64(cfg.ByPixels), 0); err != nil {
			return err
		}
		time.Sleep(cfg.Interval)

		height, scrollTop, viewportHeight, err := scrollMetrics(page)
		if err != nil {
			break
		}

		if height == lastHeight {
			stagnant++
		} else {
			stagnant = 0
			lastHeight = height
		}

		atBottom := height-(scrollTop+viewportHeight) <= 50
		if atBottom || stagnant >= 3 || time.Now().After(deadline) {
			break
		}
	}

	_, err := page.Eval(`() => window.scrollTo(0, 0)`)
	return err
}

// scrollMetrics returns (scrollHeight, scrollTop, innerHeight) in one
// round trip.
func scrollMetrics(page *rod.Page) (int, int, int, error) {
	res, err := page.Eval(`() => [document.documentElement.scrollHeight, window.scrollY, window.innerHeight]`)
	if err != nil {
		return 0, 0, 0, err
	}
	arr := res.Value.Arr()
	if len(arr) != 3 {
		return 0, 0, 0, nil
	}
	return arr[0].Int(), arr[1].Int(), arr[2].Int(), nil
}
