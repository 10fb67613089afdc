package scraper

import (
	"context"
	"errors"

	"github.com/use-agent/mirror/models"
)

// ErrNoResult is reported when a session ends without any path having
// resolved the crawl.
var ErrNoResult = errors.New("crawler finished without result")

// categorizeError maps an error to a CrawlError code. Errors that already
// carry a code pass through.
func categorizeError(err error, msg string) *models.CrawlError {
	var ce *models.CrawlError
	if errors.As(err, &ce) {
		return ce
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCrawlError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewCrawlError(models.ErrCodeCanceled, "crawl canceled", err)
	default:
		return models.NewCrawlError(models.ErrCodeNavigation, msg, err)
	}
}
