package scraper

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/use-agent/mirror/browser"
	"github.com/use-agent/mirror/config"
	"github.com/use-agent/mirror/extractor"
	"github.com/use-agent/mirror/metrics"
	"github.com/use-agent/mirror/models"
)

const zhihuArticleHTML = `<html><head><title>Go 并发 - 知乎</title></head><body>
<h1 class="Post-Title">Go 并发</h1>
<div class="Post-Author"><span class="AuthorInfo-name">Alice</span></div>
<div class="Post-RichText"><p>Hello <strong>world</strong></p>
<img data-original="https://pic1.zhimg.com/v2-a.jpg"><img data-original="https://pic1.zhimg.com/v2-a.jpg"></div>
<div class="ContentItem-time">发布于 2024-01-02</div>
</body></html>`

func testCrawlerConfig() config.CrawlerConfig {
	return config.CrawlerConfig{
		DefaultTimeout:   time.Second,
		MaxTimeout:       5 * time.Second,
		MaxRetries:       1,
		ResolveGrace:     50 * time.Millisecond,
		BatchConcurrency: 4,
	}
}

func documentSession(t *testing.T, html string) func() *fakeSession {
	t.Helper()
	page, err := extractor.NewDocumentPage(html)
	if err != nil {
		t.Fatalf("NewDocumentPage: %v", err)
	}
	return func() *fakeSession { return &fakeSession{page: page} }
}

func newTestCrawler(b browser.Browser) *Crawler {
	return New(b, testCrawlerConfig(), config.BrowserConfig{ViewportWidth: 1920, ViewportHeight: 1080})
}

func TestCrawlSuccess(t *testing.T) {
	fb := &fakeBrowser{newSession: documentSession(t, zhihuArticleHTML)}
	c := newTestCrawler(fb)

	before := time.Now()
	res := c.Crawl(context.Background(), "https://zhuanlan.zhihu.com/p/123", models.CrawlOptions{
		Cookies: &models.CookieSpec{Raw: "z_c0=token; d_c0=abc"},
	})

	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.Platform != models.PlatformZhihu {
		t.Errorf("platform = %q, want zhihu", res.Platform)
	}
	if res.Title != "Go 并发" {
		t.Errorf("title = %q", res.Title)
	}
	if res.Author != "Alice" {
		t.Errorf("author = %q", res.Author)
	}
	if !strings.Contains(res.Content, "Hello world") {
		t.Errorf("content = %q", res.Content)
	}
	if len(res.Images) != 1 {
		t.Errorf("images = %v, want one deduplicated entry", res.Images)
	}
	if res.Videos == nil {
		t.Error("videos must be an empty list, not nil")
	}
	if res.Error != "" {
		t.Errorf("error set on success: %q", res.Error)
	}
	if res.CrawledAt.Before(before) {
		t.Errorf("crawled_at %v not stamped at resolution", res.CrawledAt)
	}

	sessions := fb.opened()
	if len(sessions) != 1 {
		t.Fatalf("opened %d sessions, want 1", len(sessions))
	}
	s := sessions[0]
	want := []string{"cookies", "viewport", "headers", "script", "script", "navigate"}
	if got := s.snapshot(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if len(s.cookies) != 2 || s.cookies[0].Domain != ".zhihu.com" || s.cookies[0].Path != "/" {
		t.Errorf("cookies = %+v", s.cookies)
	}
	if s.headers["Accept-Language"] != browser.AcceptLanguage || s.headers["User-Agent"] == "" {
		t.Errorf("headers = %v", s.headers)
	}
	if !s.closed.Load() {
		t.Error("session was not closed")
	}
}

func TestCrawlSkipsCookiesWhenNoneGiven(t *testing.T) {
	fb := &fakeBrowser{newSession: documentSession(t, zhihuArticleHTML)}
	c := newTestCrawler(fb)

	res := c.Crawl(context.Background(), "https://zhuanlan.zhihu.com/p/123", models.CrawlOptions{})
	if !res.Success {
		t.Fatalf("crawl failed: %s", res.Error)
	}
	if got := fb.opened()[0].snapshot(); slices.Contains(got, "cookies") {
		t.Errorf("cookies installed without any given: %v", got)
	}
}

func TestCrawlMarkdownFormat(t *testing.T) {
	fb := &fakeBrowser{newSession: documentSession(t, zhihuArticleHTML)}
	c := newTestCrawler(fb)

	res := c.Crawl(context.Background(), "https://zhuanlan.zhihu.com/p/123", models.CrawlOptions{
		Format: models.FormatMarkdown,
	})
	if !res.Success {
		t.Fatalf("crawl failed: %s", res.Error)
	}
	if !strings.Contains(res.Content, "**world**") {
		t.Errorf("content = %q, want markdown emphasis", res.Content)
	}
}

func TestCrawlTweetBodyCapAppliesToEveryFormat(t *testing.T) {
	html := `<html><head><title>Jack on X / X</title></head><body><article>
<div data-testid="User-Name"><a href="/jack"><span>Jack</span></a></div>
<div data-testid="tweetText"><span>` + strings.Repeat("推", 8000) + `</span></div>
</article></body></html>`

	for _, format := range []string{models.FormatText, models.FormatMarkdown} {
		t.Run(format, func(t *testing.T) {
			c := newTestCrawler(&fakeBrowser{newSession: documentSession(t, html)})
			res := c.Crawl(context.Background(), "https://x.com/jack/status/1", models.CrawlOptions{Format: format})
			if !res.Success {
				t.Fatalf("crawl failed: %s", res.Error)
			}
			if n := utf8.RuneCountInString(res.Content); n == 0 || n > 5000 {
				t.Errorf("content has %d runes, want 1..5000", n)
			}
		})
	}
}

func TestCrawlHugeTimeoutWithoutServerCap(t *testing.T) {
	cfg := testCrawlerConfig()
	cfg.MaxTimeout = 0
	c := New(&fakeBrowser{newSession: documentSession(t, zhihuArticleHTML)}, cfg, config.BrowserConfig{})

	res := c.Crawl(context.Background(), "https://zhuanlan.zhihu.com/p/123", models.CrawlOptions{TimeoutMillis: math.MaxInt})
	if !res.Success {
		t.Fatalf("crawl failed: %s", res.Error)
	}
}

func TestCrawlNavigationRetry(t *testing.T) {
	tests := []struct {
		name      string
		navErrs   []error
		success   bool
		wantNavs  int
		wantInErr string
	}{
		{
			name:     "first attempt succeeds",
			success:  true,
			wantNavs: 1,
		},
		{
			name:     "retry recovers",
			navErrs:  []error{errors.New("net::ERR_CONNECTION_RESET")},
			success:  true,
			wantNavs: 2,
		},
		{
			name:      "both attempts fail",
			navErrs:   []error{errors.New("net::ERR_CONNECTION_RESET"), errors.New("net::ERR_NAME_NOT_RESOLVED")},
			wantNavs:  2,
			wantInErr: models.ErrCodeNavigation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := extractor.NewDocumentPage(zhihuArticleHTML)
			if err != nil {
				t.Fatal(err)
			}
			fb := &fakeBrowser{newSession: func() *fakeSession {
				return &fakeSession{page: page, navErrs: tt.navErrs}
			}}
			c := newTestCrawler(fb)

			res := c.Crawl(context.Background(), "https://zhuanlan.zhihu.com/p/1", models.CrawlOptions{})
			if res.Success != tt.success {
				t.Fatalf("success = %v, error %q", res.Success, res.Error)
			}
			if got := fb.opened()[0].navigations(); got != tt.wantNavs {
				t.Errorf("navigations = %d, want %d", got, tt.wantNavs)
			}
			if tt.wantInErr != "" && !strings.Contains(res.Error, tt.wantInErr) {
				t.Errorf("error = %q, want %q", res.Error, tt.wantInErr)
			}
		})
	}
}

func TestCrawlNavigationTimeoutSkipsRetry(t *testing.T) {
	fb := &fakeBrowser{newSession: func() *fakeSession {
		return &fakeSession{blockNavigate: true}
	}}
	c := newTestCrawler(fb)

	start := time.Now()
	res := c.Crawl(context.Background(), "https://x.com/a/status/1", models.CrawlOptions{TimeoutMillis: 100})
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, models.ErrCodeTimeout) {
		t.Errorf("error = %q, want timeout", res.Error)
	}
	if res.Platform != models.PlatformTwitter {
		t.Errorf("platform = %q", res.Platform)
	}
	if got := fb.opened()[0].navigations(); got != 1 {
		t.Errorf("navigations = %d, want 1", got)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("crawl took %v", elapsed)
	}
}

func TestCrawlHandlerPanic(t *testing.T) {
	fb := &fakeBrowser{newSession: func() *fakeSession {
		return &fakeSession{page: panicPage{}}
	}}
	c := newTestCrawler(fb)

	res := c.Crawl(context.Background(), "https://mp.weixin.qq.com/s/abc", models.CrawlOptions{})
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, models.ErrCodeHandler) || !strings.Contains(res.Error, "page exploded") {
		t.Errorf("error = %q", res.Error)
	}
	if res.Platform != models.PlatformWechat {
		t.Errorf("platform = %q", res.Platform)
	}
	if res.Images == nil || res.Videos == nil {
		t.Error("failure result must carry empty lists")
	}
}

// droppedResolutions sums mirror_dropped_resolutions_total by path.
func droppedResolutions(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	out := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "mirror_dropped_resolutions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "path" {
					out[l.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	return out
}

func TestCrawlHandlerDeadlineResolvesOnce(t *testing.T) {
	release := make(chan struct{})
	fb := &fakeBrowser{newSession: func() *fakeSession {
		return &fakeSession{page: stuckPage{release: release}}
	}}
	c := newTestCrawler(fb)
	reg := prometheus.NewRegistry()
	c.SetMetrics(metrics.New(reg))

	res := c.Crawl(context.Background(), "https://example.com/post", models.CrawlOptions{TimeoutMillis: 100})
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, models.ErrCodeTimeout) {
		t.Errorf("error = %q, want timeout", res.Error)
	}
	if got := droppedResolutions(t, reg); len(got) != 0 {
		t.Fatalf("drops before release = %v", got)
	}

	// Once released, the stuck handler finishes and offers a late result,
	// which must be counted as dropped exactly once.
	close(release)
	deadline := time.Now().Add(2 * time.Second)
	var got map[string]float64
	for time.Now().Before(deadline) {
		if got = droppedResolutions(t, reg); len(got) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	got = droppedResolutions(t, reg)

	total := 0.0
	for _, v := range got {
		total += v
	}
	if total != 1 || got[pathSuccess]+got[pathHandler] != 1 {
		t.Errorf("dropped resolutions = %v, want one late handler result", got)
	}
}

func TestCrawlSettleInterrupted(t *testing.T) {
	fb := &fakeBrowser{newSession: documentSession(t, zhihuArticleHTML)}
	cfg := testCrawlerConfig()
	cfg.MaxSettleDelay = time.Second
	c := New(fb, cfg, config.BrowserConfig{})

	res := c.Crawl(context.Background(), "https://zhuanlan.zhihu.com/p/123", models.CrawlOptions{TimeoutMillis: 100})
	if res.Success {
		t.Fatal("expected failure while settling")
	}
	if !strings.Contains(res.Error, models.ErrCodeTimeout) {
		t.Errorf("error = %q", res.Error)
	}
}

func TestCrawlRejectsWithoutSession(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		opts      models.CrawlOptions
		platform  models.Platform
		wantInErr string
	}{
		{"invalid url", "not a url", models.CrawlOptions{}, models.PlatformUnknown, models.ErrCodeInvalidURL},
		{"unsupported scheme", "ftp://zhihu.com/x", models.CrawlOptions{}, models.PlatformUnknown, models.ErrCodeInvalidURL},
		{"http mode unavailable", "https://zhihu.com/question/1", models.CrawlOptions{FetchMode: models.FetchModeHTTP}, models.PlatformZhihu, "fetch mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBrowser{newSession: func() *fakeSession { return &fakeSession{} }}
			c := newTestCrawler(fb)

			res := c.Crawl(context.Background(), tt.url, tt.opts)
			if res.Success {
				t.Fatal("expected failure")
			}
			if res.Platform != tt.platform {
				t.Errorf("platform = %q, want %q", res.Platform, tt.platform)
			}
			if !strings.Contains(res.Error, tt.wantInErr) {
				t.Errorf("error = %q, want %q", res.Error, tt.wantInErr)
			}
			if len(fb.opened()) != 0 {
				t.Error("session opened for rejected crawl")
			}
		})
	}
}

func TestCrawlSessionOpenFailure(t *testing.T) {
	fb := &fakeBrowser{err: models.NewCrawlError(models.ErrCodeBrowserCrash, "browser gone", nil)}
	c := newTestCrawler(fb)

	res := c.Crawl(context.Background(), "https://www.xiaohongshu.com/explore/1", models.CrawlOptions{})
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, models.ErrCodeBrowserCrash) {
		t.Errorf("error = %q", res.Error)
	}
	if res.Platform != models.PlatformXiaohongshu {
		t.Errorf("platform = %q", res.Platform)
	}
}

func TestCrawlCallerCancel(t *testing.T) {
	fb := &fakeBrowser{newSession: func() *fakeSession {
		return &fakeSession{blockNavigate: true}
	}}
	c := newTestCrawler(fb)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	res := c.Crawl(ctx, "https://example.com", models.CrawlOptions{TimeoutMillis: 5000})
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, models.ErrCodeCanceled) {
		t.Errorf("error = %q", res.Error)
	}
}

func TestResolverFirstWins(t *testing.T) {
	var mu sync.Mutex
	var dropped []string
	r := newResolver(func(path string) {
		mu.Lock()
		dropped = append(dropped, path)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wins := make(chan string, 3)
	for _, path := range []string{pathSuccess, pathHandler, pathSession} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := &models.CrawlResult{Success: path == pathSuccess}
			if r.resolve(res, path) {
				wins <- path
			}
		}()
	}
	wg.Wait()
	close(wins)

	var won []string
	for p := range wins {
		won = append(won, p)
	}
	if len(won) != 1 {
		t.Fatalf("winners = %v, want exactly one", won)
	}
	res, path := r.outcome()
	if path != won[0] {
		t.Errorf("outcome path = %q, want %q", path, won[0])
	}
	if res.CrawledAt.IsZero() {
		t.Error("crawled_at not stamped")
	}
	if len(dropped) != 2 {
		t.Errorf("dropped = %v, want two late resolutions", dropped)
	}
	if !r.resolved() {
		t.Error("resolved() = false after resolution")
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, models.ErrCodeTimeout},
		{"canceled", context.Canceled, models.ErrCodeCanceled},
		{"other", errors.New("net::ERR_ABORTED"), models.ErrCodeNavigation},
		{"coded passes through", models.NewCrawlError(models.ErrCodeBrowserCrash, "x", nil), models.ErrCodeBrowserCrash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := categorizeError(tt.err, "msg").Code; got != tt.want {
				t.Errorf("code = %q, want %q", got, tt.want)
			}
		})
	}
}
