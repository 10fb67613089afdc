// Package handler implements the HTTP endpoints.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/mirror/models"
)

// Crawler runs crawls. Both methods always return results, never errors.
type Crawler interface {
	Crawl(ctx context.Context, rawURL string, opts models.CrawlOptions) *models.CrawlResult
	CrawlBatch(ctx context.Context, urls []string, opts models.CrawlOptions) []*models.CrawlResult
}

// Status reports process health.
type Status interface {
	BrowserName() string
	Uptime() time.Duration
}

// Version is reported by /health. Overridden at build time via -ldflags.
var Version = "0.1.0"

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, models.APIResponse{
		Code:    http.StatusOK,
		Message: "Success",
		Data:    data,
	})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.APIResponse{
		Code:    http.StatusBadRequest,
		Message: message,
	})
}

// respondCrawl writes a single crawl result. A failed crawl keeps HTTP 200
// and reports code 500 with the crawl error as message.
func respondCrawl(c *gin.Context, res *models.CrawlResult) {
	if res.Success {
		respondOK(c, res)
		return
	}
	message := res.Error
	if message == "" {
		message = "Crawl failed"
	}
	c.JSON(http.StatusOK, models.APIResponse{
		Code:    http.StatusInternalServerError,
		Message: message,
		Data:    res,
	})
}
