package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scrapeforge/scrapesvc/model"
	"github.com/scrapeforge/scrapesvc/queue"
)

// batchStore holds all in-flight and completed batch jobs.
var batchStore sync.Map

func init() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			batchStore.Range(func(key, value any) bool {
				job := value.(*BatchJob)
				if job.CreatedAt < cutoff {
					batchStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// PostBatch returns a handler for POST /api/v1/batch/scrape. Each URL is
// independently queue-admitted and scraped by the same PageScraper the
// single-page /scrape endpoint uses; there is no link-following here,
// unlike WebsiteCrawler — the caller supplies the full URL list.
func PostBatch(q *queue.Queue, sc PageScraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, BatchResponse{Status: "failed"})
			return
		}

		jobID := "batch-" + randomID()
		job := &BatchJob{
			ID:        jobID,
			Status:    "processing",
			Total:     len(req.URLs),
			Results:   make([]*BatchItemResult, len(req.URLs)),
			CreatedAt: time.Now().Unix(),
		}
		batchStore.Store(jobID, job)

		go runBatch(q, sc, job, req)

		c.JSON(http.StatusOK, BatchResponse{ID: jobID, Status: "processing", Total: len(req.URLs)})
	}
}

// GetBatch returns a handler for GET /api/v1/batch/:id.
func GetBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		val, ok := batchStore.Load(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, BatchStatusResponse{Status: "failed"})
			return
		}

		job := val.(*BatchJob)
		c.JSON(http.StatusOK, BatchStatusResponse{
			ID:        job.ID,
			Status:    job.Status,
			Completed: job.Completed,
			Total:     job.Total,
			Results:   job.Results,
		})
	}
}

// runBatch scrapes every URL in the job concurrently, each admitted
// through q independently, and settles the job's final status.
func runBatch(q *queue.Queue, sc PageScraper, job *BatchJob, req BatchRequest) {
	var wg sync.WaitGroup
	var completed, failed atomic.Int32

	for i, rawURL := range req.URLs {
		wg.Add(1)
		go func(idx int, targetURL string) {
			defer wg.Done()

			result, err := queue.Enqueue(q, context.Background(), targetURL, func(ctx context.Context) (*model.ScrapeResult, error) {
				return sc.Scrape(ctx, targetURL, req.ToScrapeOptions())
			})

			item := &BatchItemResult{URL: targetURL}
			if err != nil {
				item.Error = (&model.ScrapeError{Code: model.CodeOf(err), Message: err.Error()}).ToInfo()
				failed.Add(1)
			} else {
				item.Result = result
				completed.Add(1)
			}
			job.Results[idx] = item
			job.Completed = int(completed.Load()) + int(failed.Load())
		}(i, rawURL)
	}

	wg.Wait()

	failedCount := int(failed.Load())
	switch {
	case failedCount == job.Total && job.Total > 0:
		job.Status = "failed"
	case failedCount > 0:
		job.Status = "partial"
	default:
		job.Status = "completed"
	}

	slog.Info("batch job finished", "id", job.ID, "status", job.Status, "total", job.Total, "failed", failedCount)
}
