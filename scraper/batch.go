package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/mirror/models"
	"golang.org/x/sync/errgroup"
)

// CrawlBatch crawls every URL concurrently with the same options and
// returns one result per URL in input order. A failing URL never affects
// the others.
func (c *Crawler) CrawlBatch(ctx context.Context, urls []string, opts models.CrawlOptions) []*models.CrawlResult {
	return c.CrawlBatchFunc(ctx, urls, opts, nil)
}

// CrawlBatchFunc is CrawlBatch with a callback invoked once per URL, from
// the crawling goroutine, as soon as its result is final. onResult may be
// nil and must be safe for concurrent use.
func (c *Crawler) CrawlBatchFunc(ctx context.Context, urls []string, opts models.CrawlOptions, onResult func(i int, res *models.CrawlResult)) []*models.CrawlResult {
	start := time.Now()
	results := make([]*models.CrawlResult, len(urls))

	// Plain group: one URL failing must not cancel its siblings.
	var g errgroup.Group
	if c.cfg.BatchConcurrency > 0 {
		g.SetLimit(c.cfg.BatchConcurrency)
	}
	for i, u := range urls {
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("batch item panicked", "url", u, "panic", rec)
					results[i] = models.NewFailedResult(models.PlatformUnknown, u,
						fmt.Sprintf("unexpected crawl failure: %v", rec))
				}
				if results[i] == nil {
					results[i] = models.NewFailedResult(models.PlatformUnknown, u, ErrNoResult.Error())
				}
				if onResult != nil {
					onResult(i, results[i])
				}
			}()
			results[i] = c.crawl(ctx, u, opts)
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	slog.Info("batch crawl completed",
		"total", len(urls), "succeeded", succeeded, "failed", len(urls)-succeeded,
		"elapsed", time.Since(start))
	return results
}
