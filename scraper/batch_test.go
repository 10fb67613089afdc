package scraper

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/mirror/models"
)

func TestCrawlBatchPreservesOrder(t *testing.T) {
	c := newTestCrawler(&fakeBrowser{})
	urls := []string{
		"https://www.zhihu.com/question/1",
		"https://x.com/a/status/2",
		"https://example.com/3",
		"https://mp.weixin.qq.com/s/4",
	}

	// Earlier URLs finish later so completion order differs from input order.
	c.crawl = func(ctx context.Context, rawURL string, opts models.CrawlOptions) *models.CrawlResult {
		for i, u := range urls {
			if u == rawURL {
				time.Sleep(time.Duration(len(urls)-i) * 10 * time.Millisecond)
			}
		}
		return &models.CrawlResult{Success: true, URL: rawURL}
	}

	results := c.CrawlBatch(context.Background(), urls, models.CrawlOptions{})
	if len(results) != len(urls) {
		t.Fatalf("got %d results, want %d", len(results), len(urls))
	}
	for i, r := range results {
		if r.URL != urls[i] {
			t.Errorf("results[%d].URL = %q, want %q", i, r.URL, urls[i])
		}
	}
}

func TestCrawlBatchIsolatesPanics(t *testing.T) {
	c := newTestCrawler(&fakeBrowser{})
	c.crawl = func(ctx context.Context, rawURL string, opts models.CrawlOptions) *models.CrawlResult {
		if strings.Contains(rawURL, "boom") {
			panic("crawler bug")
		}
		return &models.CrawlResult{Success: true, URL: rawURL}
	}

	urls := []string{"https://example.com/ok", "https://example.com/boom", "https://example.com/also-ok"}
	results := c.CrawlBatch(context.Background(), urls, models.CrawlOptions{})

	if !results[0].Success || !results[2].Success {
		t.Error("siblings of a panicking crawl must succeed")
	}
	failed := results[1]
	if failed.Success || failed.Platform != models.PlatformUnknown || failed.URL != urls[1] {
		t.Errorf("failed result = %+v", failed)
	}
	if !strings.Contains(failed.Error, "crawler bug") {
		t.Errorf("error = %q", failed.Error)
	}
}

func TestCrawlBatchFuncReportsEveryURL(t *testing.T) {
	c := newTestCrawler(&fakeBrowser{})
	c.crawl = func(ctx context.Context, rawURL string, opts models.CrawlOptions) *models.CrawlResult {
		switch {
		case strings.Contains(rawURL, "boom"):
			panic("crawler bug")
		case strings.Contains(rawURL, "nil"):
			return nil
		}
		return &models.CrawlResult{Success: true, URL: rawURL}
	}

	urls := []string{"https://example.com/ok", "https://example.com/boom", "https://example.com/nil"}
	var (
		mu   sync.Mutex
		seen = map[int]*models.CrawlResult{}
	)
	results := c.CrawlBatchFunc(context.Background(), urls, models.CrawlOptions{}, func(i int, res *models.CrawlResult) {
		mu.Lock()
		defer mu.Unlock()
		if _, dup := seen[i]; dup {
			t.Errorf("index %d reported twice", i)
		}
		seen[i] = res
	})

	if len(seen) != len(urls) {
		t.Fatalf("callback saw %d results, want %d", len(seen), len(urls))
	}
	for i, r := range results {
		if seen[i] != r {
			t.Errorf("callback result %d differs from returned result", i)
		}
	}
	if results[1].Success || results[1].Platform != models.PlatformUnknown {
		t.Errorf("panicking url = %+v", results[1])
	}
	if results[2].Success || results[2].Error != ErrNoResult.Error() {
		t.Errorf("nil result = %+v", results[2])
	}
}

func TestCrawlBatchConcurrencyLimit(t *testing.T) {
	c := newTestCrawler(&fakeBrowser{})
	c.cfg.BatchConcurrency = 2

	var running, peak atomic.Int32
	c.crawl = func(ctx context.Context, rawURL string, opts models.CrawlOptions) *models.CrawlResult {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return &models.CrawlResult{Success: true, URL: rawURL}
	}

	urls := make([]string, 6)
	for i := range urls {
		urls[i] = "https://example.com/"
	}
	c.CrawlBatch(context.Background(), urls, models.CrawlOptions{})
	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func TestCrawlBatchEndToEnd(t *testing.T) {
	fb := &fakeBrowser{newSession: documentSession(t, zhihuArticleHTML)}
	c := newTestCrawler(fb)

	results := c.CrawlBatch(context.Background(), []string{
		"https://zhuanlan.zhihu.com/p/1",
		"bogus",
	}, models.CrawlOptions{})

	if !results[0].Success {
		t.Errorf("first url failed: %s", results[0].Error)
	}
	if results[1].Success || !strings.Contains(results[1].Error, models.ErrCodeInvalidURL) {
		t.Errorf("second result = %+v", results[1])
	}
	if len(fb.opened()) != 1 {
		t.Errorf("opened %d sessions, want 1", len(fb.opened()))
	}
}
