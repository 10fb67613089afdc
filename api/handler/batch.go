package handler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/use-agent/mirror/models"
	"github.com/use-agent/mirror/webhook"
)

// CrawlBatch returns a handler for POST /crawl/batch.
//
// All URLs are crawled concurrently with the shared options and the
// response lists one result per URL in request order. When webhook_url is
// set a batch.completed event carrying the same results is delivered in the
// background. notifier may be nil, which disables webhooks.
func CrawlBatch(cr Crawler, notifier *webhook.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchCrawlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			if len(req.URLs) == 0 {
				respondBadRequest(c, "URLs array is required")
				return
			}
			respondBadRequest(c, "Invalid request: "+err.Error())
			return
		}
		if len(req.URLs) == 0 {
			respondBadRequest(c, "URLs array is required")
			return
		}
		if len(req.URLs) > models.MaxBatchURLs {
			respondBadRequest(c, fmt.Sprintf("Maximum %d URLs per batch", models.MaxBatchURLs))
			return
		}

		batchID := "batch-" + uuid.NewString()
		c.Header("X-Batch-ID", batchID)

		results := cr.CrawlBatch(c.Request.Context(), req.URLs, req.Options())

		if req.WebhookURL != "" {
			if notifier == nil {
				slog.Warn("webhook requested but delivery is disabled", "batch_id", batchID)
			} else {
				notifier.DeliverAsync(req.WebhookURL, req.WebhookSecret,
					webhook.EventBatchCompleted, batchID, completedEvent(batchID, results))
			}
		}

		respondOK(c, results)
	}
}

func completedEvent(batchID string, results []*models.CrawlResult) models.BatchCompletedEvent {
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	return models.BatchCompletedEvent{
		Type:        webhook.EventBatchCompleted,
		BatchID:     batchID,
		Total:       len(results),
		Succeeded:   succeeded,
		Failed:      len(results) - succeeded,
		Results:     results,
		CompletedAt: time.Now(),
	}
}
