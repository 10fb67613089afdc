package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/use-agent/mirror/browser"
	"github.com/use-agent/mirror/cleaner"
	"github.com/use-agent/mirror/config"
	"github.com/use-agent/mirror/extractor"
	"github.com/use-agent/mirror/metrics"
	"github.com/use-agent/mirror/models"
	"github.com/use-agent/mirror/platform"
)

// Crawler runs one isolated browser session per URL and turns each into
// exactly one CrawlResult. It is safe for concurrent use.
type Crawler struct {
	browser     browser.Browser
	httpBrowser browser.Browser
	cfg         config.CrawlerConfig
	viewportW   int
	viewportH   int
	markdown    *converter.Converter
	metrics     *metrics.Metrics

	inFlight  atomic.Int32
	startTime time.Time

	// crawl is the single-URL entry point used by CrawlBatch.
	crawl func(ctx context.Context, rawURL string, opts models.CrawlOptions) *models.CrawlResult
}

// New creates a Crawler that opens sessions on b.
func New(b browser.Browser, cfg config.CrawlerConfig, browserCfg config.BrowserConfig) *Crawler {
	c := &Crawler{
		browser:   b,
		cfg:       cfg,
		viewportW: browserCfg.ViewportWidth,
		viewportH: browserCfg.ViewportHeight,
		markdown:  cleaner.NewMarkdownConverter(),
		startTime: time.Now(),
	}
	c.crawl = c.Crawl
	return c
}

// SetHTTPBrowser enables fetch_mode "http".
func (c *Crawler) SetHTTPBrowser(b browser.Browser) { c.httpBrowser = b }

// SetMetrics attaches crawl instrumentation. A nil m disables it.
func (c *Crawler) SetMetrics(m *metrics.Metrics) { c.metrics = m }

// InFlight returns the number of crawls currently running.
func (c *Crawler) InFlight() int32 { return c.inFlight.Load() }

// BrowserName returns the name of the default session backend.
func (c *Crawler) BrowserName() string { return c.browser.Name() }

// Uptime returns the time since the crawler was created.
func (c *Crawler) Uptime() time.Duration { return time.Since(c.startTime) }

// Crawl fetches rawURL in a fresh session and extracts it with the
// strategy registered for its platform. It never panics and always
// returns a result; failures are reported through Success and Error.
func (c *Crawler) Crawl(ctx context.Context, rawURL string, opts models.CrawlOptions) *models.CrawlResult {
	start := time.Now()
	if opts.TimeoutMillis <= 0 && c.cfg.DefaultTimeout > 0 {
		opts.TimeoutMillis = int(c.cfg.DefaultTimeout.Milliseconds())
	}
	opts.Defaults()
	timeout := opts.Timeout()
	if c.cfg.MaxTimeout > 0 && timeout > c.cfg.MaxTimeout {
		timeout = c.cfg.MaxTimeout
	}

	p, err := platform.Detect(rawURL)
	if err != nil {
		return c.reject(models.PlatformUnknown, rawURL, models.NewCrawlError(models.ErrCodeInvalidURL, "cannot crawl url", err), start)
	}
	b, err := c.backend(opts.FetchMode)
	if err != nil {
		return c.reject(p, rawURL, err, start)
	}

	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	c.metrics.CrawlStarted()

	r := newResolver(c.metrics.ResolutionDropped)
	s := &crawlSession{
		crawler:  c,
		backend:  b,
		url:      rawURL,
		platform: p,
		strategy: extractor.For(p),
		opts:     opts,
		timeout:  timeout,
		resolver: r,
	}

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.run(sessCtx)

	// Navigation and handling each get the full timeout, so a healthy
	// session always resolves before the guard fires.
	limit := 2*timeout + c.cfg.ResolveGrace
	guard := time.NewTimer(limit)
	defer guard.Stop()

	select {
	case <-r.done:
	case <-guard.C:
		r.resolve(s.failure(models.NewCrawlError(models.ErrCodeTimeout,
			fmt.Sprintf("crawl did not resolve within %s", limit), nil)), pathSession)
	case <-ctx.Done():
		r.resolve(s.failure(categorizeError(ctx.Err(), "crawl aborted")), pathSession)
	}

	result, path := r.outcome()
	elapsed := time.Since(start)
	c.metrics.CrawlResolved(p.String(), path, result.Success, elapsed)
	if result.Success {
		slog.Info("crawl succeeded",
			"url", rawURL, "platform", p, "elapsed", elapsed,
			"contentLen", len(result.Content), "images", len(result.Images), "videos", len(result.Videos))
	} else {
		slog.Warn("crawl failed",
			"url", rawURL, "platform", p, "path", path, "state", s.current(),
			"elapsed", elapsed, "error", result.Error)
	}
	return result
}

func (c *Crawler) backend(fetchMode string) (browser.Browser, error) {
	switch fetchMode {
	case models.FetchModeHTTP:
		if c.httpBrowser == nil {
			return nil, models.NewCrawlError(models.ErrCodeInvalidInput,
				fmt.Sprintf("fetch mode %q is not available", fetchMode), nil)
		}
		return c.httpBrowser, nil
	case models.FetchModeBrowser, "":
		if c.browser == nil {
			return nil, models.NewCrawlError(models.ErrCodeBrowserCrash, "no browser available", nil)
		}
		return c.browser, nil
	default:
		return nil, models.NewCrawlError(models.ErrCodeInvalidInput,
			fmt.Sprintf("unknown fetch mode %q", fetchMode), nil)
	}
}

// reject resolves a crawl that never got a session.
func (c *Crawler) reject(p models.Platform, rawURL string, err error, start time.Time) *models.CrawlResult {
	res := models.NewFailedResult(p, rawURL, err.Error())
	c.metrics.CrawlStarted()
	c.metrics.CrawlResolved(p.String(), pathRejected, false, time.Since(start))
	slog.Warn("crawl rejected", "url", rawURL, "error", err)
	return res
}
