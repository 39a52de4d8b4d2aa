package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scrapeforge/scrapesvc/cache"
	"github.com/scrapeforge/scrapesvc/model"
	"github.com/scrapeforge/scrapesvc/queue"
)

// PageScraper is the subset of pagescraper.Scraper this handler depends
// on, declared locally so the handler package has no compile-time
// dependency on browser-acquisition internals.
type PageScraper interface {
	Scrape(ctx context.Context, rawURL string, opts model.ScrapeOptions) (*model.ScrapeResult, error)
}

// Scrape returns a handler for POST /api/v1/scrape.
//
// The request is admitted through q (RequestQueue) before PageScraper.Scrape
// runs, so this endpoint is bound by the same concurrency cap as every
// other caller of the core. Flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup (hit short-circuits the rest).
//  3. queue.Enqueue admits the scrape, bounding concurrency and applying
//     the request's execution deadline.
//  4. Cache store on a successful miss.
func Scrape(q *queue.Queue, sc PageScraper, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ScrapeResponse{
				Error: &model.ErrorInfo{Code: model.ErrCodeMissingParam, Message: err.Error()},
			})
			return
		}
		req.Defaults()

		if cc != nil && req.MaxAge > 0 {
			cacheKey := cache.Key(req.URL, req.OutputFormat, req.ExtractMode)
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				c.JSON(http.StatusOK, ScrapeResponse{
					Result:       cached,
					CacheStatus:  "hit",
					Timing:       TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()},
				})
				return
			}
		}

		navStart := time.Now()
		result, err := queue.Enqueue(q, c.Request.Context(), req.URL, func(ctx context.Context) (*model.ScrapeResult, error) {
			return sc.Scrape(ctx, req.URL, req.ToScrapeOptions())
		})
		navigationMs := time.Since(navStart).Milliseconds()

		if err != nil {
			respondScrapeError(c, err, TimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				NavigationMs: navigationMs,
			})
			return
		}

		if cc != nil && req.MaxAge > 0 {
			cacheKey := cache.Key(req.URL, req.OutputFormat, req.ExtractMode)
			cc.Set(cacheKey, result)
		}

		c.JSON(http.StatusOK, ScrapeResponse{
			Result:       result,
			CacheStatus:  cacheStatusFor(cc, req.MaxAge),
			Timing: TimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				NavigationMs: navigationMs,
			},
		})
	}
}

func cacheStatusFor(cc *cache.Cache, maxAge int) string {
	if cc == nil || maxAge <= 0 {
		return ""
	}
	return "miss"
}

// respondScrapeError maps a ScrapeError to the correct HTTP status code
// and writes a structured JSON error response.
func respondScrapeError(c *gin.Context, err error, timing TimingInfo) {
	c.JSON(mapErrorToStatus(err), ScrapeResponse{
		Error:  (&model.ScrapeError{Code: model.CodeOf(err), Message: err.Error()}).ToInfo(),
		Timing: timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(err error) int {
	switch model.CodeOf(err) {
	case model.ErrCodeTimeout, model.ErrCodeQueueTimeout:
		return http.StatusGatewayTimeout
	case model.ErrCodeNavigation:
		return http.StatusBadGateway
	case model.ErrCodeInvalidURL, model.ErrCodeMissingParam:
		return http.StatusBadRequest
	case model.ErrCodeCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
