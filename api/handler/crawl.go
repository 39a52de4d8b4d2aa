package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scrapeforge/scrapesvc/model"
	"github.com/scrapeforge/scrapesvc/queue"
	"github.com/scrapeforge/scrapesvc/webhook"
)

// WebsiteCrawler is the subset of crawler.Crawler this handler depends on.
type WebsiteCrawler interface {
	ScrapeWebsite(ctx context.Context, rawURL string, opts model.WebsiteCrawlOptions) (*model.AggregatedResult, error)
}

// crawlStore holds all in-flight and completed crawl jobs.
var crawlStore sync.Map

func init() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			crawlStore.Range(func(key, value any) bool {
				job := value.(*CrawlJob)
				if job.CreatedAt < cutoff {
					crawlStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// PostCrawl returns a handler for POST /api/v1/crawl. Each crawl runs
// as a background job wrapping a single, queue-admitted
// WebsiteCrawler.ScrapeWebsite call, with an optional webhook
// notification on completion — async because a full root+subpages
// crawl routinely exceeds an HTTP client's patience.
func PostCrawl(q *queue.Queue, cr WebsiteCrawler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CrawlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, CrawlResponse{Status: "failed"})
			return
		}

		jobID := "crawl-" + randomID()
		job := &CrawlJob{
			ID:            jobID,
			Status:        "processing",
			CreatedAt:     time.Now().Unix(),
			WebhookURL:    req.WebhookURL,
			WebhookSecret: req.WebhookSecret,
		}
		crawlStore.Store(jobID, job)

		go runCrawl(q, cr, job, req)

		c.JSON(http.StatusOK, CrawlResponse{ID: jobID, Status: "processing"})
	}
}

// GetCrawl returns a handler for GET /api/v1/crawl/:id.
func GetCrawl() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		val, ok := crawlStore.Load(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, CrawlStatusResponse{
				Status: "failed",
				Error:  &model.ErrorInfo{Code: model.ErrCodeMissingParam, Message: "crawl job not found"},
			})
			return
		}

		job := val.(*CrawlJob)
		c.JSON(http.StatusOK, CrawlStatusResponse{
			ID:     job.ID,
			Status: job.Status,
			Result: job.Result,
			Error:  job.Error,
		})
	}
}

// runCrawl executes one crawl job to completion and delivers a webhook
// notification, if configured.
func runCrawl(q *queue.Queue, cr WebsiteCrawler, job *CrawlJob, req CrawlRequest) {
	result, err := queue.Enqueue(q, context.Background(), job.ID, func(ctx context.Context) (*model.AggregatedResult, error) {
		return cr.ScrapeWebsite(ctx, req.URL, req.ToWebsiteCrawlOptions())
	})

	eventType := "crawl.completed"
	if err != nil {
		job.Status = "failed"
		job.Error = (&model.ScrapeError{Code: model.CodeOf(err), Message: err.Error()}).ToInfo()
		eventType = "crawl.failed"
	} else {
		job.Status = "completed"
		job.Result = result
	}

	slog.Info("crawl job finished", "id", job.ID, "status", job.Status)

	if job.WebhookURL != "" {
		webhook.DeliverAsync(job.WebhookURL, job.WebhookSecret, &webhook.Event{
			Type:      eventType,
			JobID:     job.ID,
			Timestamp: time.Now().Unix(),
			Data:      job,
		})
	}
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
