package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/use-agent/mirror/browser"
	"github.com/use-agent/mirror/cleaner"
	"github.com/use-agent/mirror/extractor"
	"github.com/use-agent/mirror/models"
	"github.com/use-agent/mirror/platform"
)

type state int32

const (
	stateCreated state = iota
	stateConfiguring
	stateNavigating
	stateExtracting
)

func (s state) String() string {
	switch s {
	case stateConfiguring:
		return "configuring"
	case stateNavigating:
		return "navigating"
	case stateExtracting:
		return "extracting"
	default:
		return "created"
	}
}

// crawlSession drives one URL through configure, navigate and extract on
// its own browser session.
type crawlSession struct {
	crawler  *Crawler
	backend  browser.Browser
	url      string
	platform models.Platform
	strategy extractor.Extractor
	opts     models.CrawlOptions
	timeout  time.Duration
	resolver *resolver

	state atomic.Int32
}

func (s *crawlSession) enter(st state) {
	s.state.Store(int32(st))
	slog.Debug("crawl state", "url", s.url, "state", st)
}

func (s *crawlSession) current() state { return state(s.state.Load()) }

func (s *crawlSession) failure(err error) *models.CrawlResult {
	return models.NewFailedResult(s.platform, s.url, err.Error())
}

// run is the session goroutine. Whatever happens, it leaves the crawl
// resolved when it returns.
func (s *crawlSession) run(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("crawl session panicked", "url", s.url, "panic", rec)
			s.resolver.resolve(s.failure(models.NewCrawlError(models.ErrCodeSession,
				"session panicked", fmt.Errorf("%v", rec))), pathSession)
		}
	}()

	err := s.drive(ctx)
	if err == nil {
		if s.resolver.resolved() {
			return
		}
		err = ErrNoResult
	}
	s.resolver.resolve(s.failure(err), pathSession)
}

func (s *crawlSession) drive(ctx context.Context) error {
	sess, err := s.backend.NewSession(ctx)
	if err != nil {
		return categorizeError(err, "failed to open session")
	}
	defer func() {
		if err := sess.Close(); err != nil {
			slog.Debug("session close failed", "url", s.url, "error", err)
		}
	}()

	// ── 1. Configure the context before any request is made ──
	s.enter(stateConfiguring)
	if err := s.configure(ctx, sess); err != nil {
		return err
	}

	// ── 2. Navigate ──
	s.enter(stateNavigating)
	if err := s.navigate(ctx, sess); err != nil {
		return err
	}

	// ── 3. Run the platform handler ──
	s.enter(stateExtracting)
	return s.handle(ctx, sess)
}

// configure applies cookies, viewport, identity headers and stealth
// scripts. Individual failures are logged and skipped.
func (s *crawlSession) configure(ctx context.Context, sess browser.Session) error {
	if cookies := models.NormalizeCookies(s.opts.Cookies, platform.CookieDomain(s.url)); len(cookies) > 0 {
		if err := sess.SetCookies(ctx, cookies); err != nil {
			slog.Warn("cookie injection failed, continuing without cookies", "url", s.url, "error", err)
		}
	}
	if err := sess.SetViewport(ctx, s.crawler.viewportW, s.crawler.viewportH); err != nil {
		slog.Warn("viewport setup failed", "url", s.url, "error", err)
	}
	if err := sess.SetHeaders(ctx, browser.RequestHeaders()); err != nil {
		slog.Warn("header setup failed", "url", s.url, "error", err)
	}
	for _, js := range browser.InitScripts() {
		if err := sess.AddInitScript(ctx, js); err != nil {
			slog.Warn("stealth script injection failed", "url", s.url, "error", err)
		}
	}
	return ctx.Err()
}

// navigate loads the page, retrying once when the first attempt fails
// with time left on the clock.
func (s *crawlSession) navigate(ctx context.Context, sess browser.Session) error {
	navCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	retries := min(max(s.crawler.cfg.MaxRetries, 0), 1)
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			s.crawler.metrics.NavigationRetried()
			slog.Info("retrying navigation", "url", s.url, "attempt", attempt+1, "error", err)
		}
		if err = sess.Navigate(navCtx, s.url); err == nil {
			return nil
		}
		if navCtx.Err() != nil {
			break
		}
	}

	if ctxErr := navCtx.Err(); ctxErr != nil {
		return categorizeError(ctxErr, fmt.Sprintf("navigation did not finish within %s", s.timeout))
	}
	return categorizeError(err, "navigation failed")
}

// handle runs extraction in its own goroutine under a fresh deadline. The
// handler resolves the crawl itself; when the deadline passes first the
// returned error resolves it from the session path instead.
func (s *crawlSession) handle(ctx context.Context, sess browser.Session) error {
	handleCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("page handler panicked", "url", s.url, "platform", s.platform, "panic", rec)
				s.resolver.resolve(s.failure(models.NewCrawlError(models.ErrCodeHandler,
					"page handler panicked", fmt.Errorf("%v", rec))), pathHandler)
			}
		}()

		content, err := s.extract(handleCtx, sess)
		if err != nil {
			s.resolver.resolve(s.failure(err), pathHandler)
			return
		}
		s.resolver.resolve(s.success(content), pathSuccess)
	}()

	select {
	case <-finished:
		return nil
	case <-handleCtx.Done():
		return categorizeError(handleCtx.Err(), fmt.Sprintf("page handling did not finish within %s", s.timeout))
	}
}

func (s *crawlSession) extract(ctx context.Context, sess browser.Session) (*extractor.Content, error) {
	settle := s.strategy.Settle()

	if delay := min(settle.Delay, s.crawler.cfg.MaxSettleDelay); delay > 0 {
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, categorizeError(ctx.Err(), "interrupted while waiting for page to settle")
		}
	}

	if settle.Selector != "" && s.crawler.cfg.HintTimeout > 0 {
		hintCtx, cancel := context.WithTimeout(ctx, s.crawler.cfg.HintTimeout)
		if err := sess.WaitFor(hintCtx, settle.Selector); err != nil {
			slog.Debug("content hint not found", "url", s.url, "selector", settle.Selector, "error", err)
		}
		cancel()
	}

	// Field lookups are individually bounded by the page; the strategy
	// runs to completion even if the handling deadline passes meanwhile.
	content, err := s.strategy.Extract(context.WithoutCancel(ctx), sess.Page(), s.url)
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeHandler, "extraction failed", err)
	}
	if content == nil {
		return nil, models.NewCrawlError(models.ErrCodeHandler, "extraction returned no content", nil)
	}
	return content, nil
}

func (s *crawlSession) success(content *extractor.Content) *models.CrawlResult {
	body := content.Body
	if s.opts.Format == models.FormatMarkdown && content.BodyHTML != "" {
		md, err := cleaner.ToMarkdown(s.crawler.markdown, content.BodyHTML, s.url)
		if err != nil {
			slog.Warn("markdown conversion failed, using plain text", "url", s.url, "error", err)
		} else if md = cleaner.Truncate(cleaner.CleanLines(md), content.BodyLimit()); md != "" {
			body = md
		}
	}

	return &models.CrawlResult{
		Success:     true,
		Platform:    s.platform,
		URL:         s.url,
		Title:       cleaner.CleanText(content.Title),
		Author:      cleaner.CleanText(content.Author),
		Content:     body,
		Images:      extractor.Dedupe(content.Images, extractor.MaxImages),
		Videos:      extractor.Dedupe(content.Videos, extractor.MaxVideos),
		PublishedAt: content.PublishedAt,
	}
}
