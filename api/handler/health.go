package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scrapeforge/scrapesvc/browserpool"
	"github.com/scrapeforge/scrapesvc/queue"
)

// Health returns a handler for GET /api/v1/health.
//
// Reports pool and queue occupancy, degrading status when the browser
// pool is fully checked out or the queue is backed up.
func Health(pool *browserpool.Pool, q *queue.Queue, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics := pool.Metrics()
		qstats := q.Stats()

		status := "healthy"
		if metrics.TotalContexts > 0 && metrics.IdleContexts == 0 {
			status = "degraded"
		}
		if qstats.Pending > 0 {
			status = "degraded"
		}

		c.JSON(http.StatusOK, HealthResponse{
			Status: status,
			Uptime: time.Since(startTime).Round(time.Second).String(),
			Pool: PoolHealth{
				State:          metrics.State,
				IdleContexts:   metrics.IdleContexts,
				TotalContexts:  metrics.TotalContexts,
				WarmPages:      metrics.WarmPages,
				PagesProcessed: metrics.PagesProcessed,
				RestartCount:   metrics.RestartCount,
			},
			Queue: QueueHealth{
				Active:  qstats.Active,
				Pending: qstats.Pending,
			},
			Version: "0.1.0",
		})
	}
}
