package handler

import (
	"cmp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/mirror/cache"
	"github.com/use-agent/mirror/metrics"
	"github.com/use-agent/mirror/models"
	"github.com/use-agent/mirror/platform"
)

// Crawl returns a handler for POST /crawl.
//
// Flow:
//  1. Parse and validate the request (400 on missing or malformed url).
//  2. Serve from the cache when max_age is set and a fresh result exists.
//  3. Crawl; failures come back in the envelope, not as HTTP errors.
//  4. Cache successful results for later max_age requests.
//
// store and m may be nil.
func Crawl(cr Crawler, store cache.Store, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ──
		var req models.CrawlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			if req.URL == "" {
				respondBadRequest(c, "URL is required")
				return
			}
			respondBadRequest(c, "Invalid request: "+err.Error())
			return
		}
		if _, err := platform.Host(req.URL); err != nil {
			respondBadRequest(c, "Invalid URL format")
			return
		}
		opts := req.Options()
		ctx := c.Request.Context()

		// ── 2. Cache lookup ──
		var key string
		if store != nil && req.MaxAge > 0 {
			key = cache.Key(req.URL,
				cmp.Or(opts.Format, models.FormatText),
				cmp.Or(opts.FetchMode, models.FetchModeBrowser),
				req.Cookies.Fingerprint(),
			)
			cached, hit := store.Get(ctx, key, time.Duration(req.MaxAge)*time.Millisecond)
			m.CacheLookup(hit)
			if hit {
				c.Header("X-Cache", "hit")
				respondOK(c, cached)
				return
			}
		}

		// ── 3. Crawl ──
		res := cr.Crawl(ctx, req.URL, opts)

		// ── 4. Cache store ──
		if key != "" && res.Success {
			store.Set(ctx, key, res)
			c.Header("X-Cache", "miss")
		}

		respondCrawl(c, res)
	}
}
