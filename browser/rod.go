package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/use-agent/mirror/config"
	"github.com/use-agent/mirror/extractor"
	"github.com/use-agent/mirror/models"
)

// RodBrowser drives one Chromium process. Each session gets a fresh
// incognito context and page; nothing is pooled or reused across crawls.
type RodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      config.BrowserConfig
}

// LaunchRod purges the user-data dir, launches Chromium with the stealth
// flags and connects to it.
func LaunchRod(cfg config.BrowserConfig) (*RodBrowser, error) {
	if cfg.UserDataDir != "" {
		if err := os.RemoveAll(cfg.UserDataDir); err != nil {
			slog.Warn("failed to purge user data dir", "dir", cfg.UserDataDir, "error", err)
		}
	}

	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}
	applyLaunchFlags(l)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	return &RodBrowser{browser: b, launcher: l, cfg: cfg}, nil
}

func (b *RodBrowser) Name() string { return "chromium" }

func (b *RodBrowser) NewSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	incognito, err := b.browser.Incognito()
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to create incognito context", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close()
		return nil, models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to open page", err)
	}

	return &rodSession{
		incognito: incognito,
		page:      page,
		router:    setupHijack(page, b.cfg.BlockedResourceTypes, b.cfg.BlockAds),
		timeout:   b.cfg.LocatorTimeout,
	}, nil
}

// Close kills Chromium and removes the user-data dir.
func (b *RodBrowser) Close() error {
	slog.Info("browser shutting down")
	err := b.browser.Close()
	b.launcher.Cleanup()
	return err
}

type rodSession struct {
	incognito *rod.Browser
	page      *rod.Page
	router    *rod.HijackRouter
	timeout   time.Duration
}

func (s *rodSession) SetCookies(ctx context.Context, cookies []models.CookieParam) error {
	p := s.page.Context(ctx)
	for _, c := range cookies {
		_, err := proto.NetworkSetCookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		}.Call(p)
		if err != nil {
			return fmt.Errorf("set cookie %q: %w", c.Name, err)
		}
	}
	return nil
}

func (s *rodSession) SetViewport(ctx context.Context, width, height int) error {
	return s.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
}

func (s *rodSession) SetHeaders(ctx context.Context, headers map[string]string) error {
	p := s.page.Context(ctx)

	extra := make(map[string]string, len(headers))
	for k, v := range headers {
		extra[k] = v
	}
	if ua := headers["User-Agent"]; ua != "" {
		delete(extra, "User-Agent")
		err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      ua,
			AcceptLanguage: headers["Accept-Language"],
		})
		if err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(extra)}.Call(p)
}

func (s *rodSession) AddInitScript(ctx context.Context, js string) error {
	_, err := s.page.Context(ctx).EvalOnNewDocument(js)
	return err
}

// Navigate registers the DOMContentLoaded waiter before navigating so the
// event cannot be missed.
func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(url); err != nil {
		return err
	}
	wait()
	return ctx.Err()
}

func (s *rodSession) WaitFor(ctx context.Context, selector string) error {
	_, err := s.page.Context(ctx).Element(selector)
	return err
}

func (s *rodSession) Page() extractor.Page {
	return &rodPage{page: s.page, timeout: s.timeout}
}

func (s *rodSession) Close() error {
	if s.router != nil {
		_ = s.router.Stop()
	}
	return errors.Join(s.page.Close(), s.incognito.Close())
}

// rodPage answers extractor lookups against the live DOM. Lookups do not
// wait for elements to appear; each is bounded by timeout.
type rodPage struct {
	page    *rod.Page
	timeout time.Duration
}

func (p *rodPage) bounded(ctx context.Context) (*rod.Page, context.CancelFunc) {
	if p.timeout <= 0 {
		return p.page.Context(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	return p.page.Context(ctx), cancel
}

func (p *rodPage) element(page *rod.Page, selector string) (*rod.Element, error) {
	has, el, err := page.Has(selector)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, extractor.ErrNotFound
	}
	return el, nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	page, cancel := p.bounded(ctx)
	defer cancel()
	return page.HTML()
}

func (p *rodPage) Text(ctx context.Context, selector string) (string, error) {
	page, cancel := p.bounded(ctx)
	defer cancel()
	el, err := p.element(page, selector)
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (p *rodPage) InnerHTML(ctx context.Context, selector string) (string, error) {
	page, cancel := p.bounded(ctx)
	defer cancel()
	el, err := p.element(page, selector)
	if err != nil {
		return "", err
	}
	res, err := el.Eval(`() => this.innerHTML`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (p *rodPage) Attr(ctx context.Context, selector, name string) (string, error) {
	page, cancel := p.bounded(ctx)
	defer cancel()
	el, err := p.element(page, selector)
	if err != nil {
		return "", err
	}
	v, err := el.Attribute(name)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", extractor.ErrNotFound
	}
	return *v, nil
}

func (p *rodPage) Attrs(ctx context.Context, selector, name string) ([]string, error) {
	page, cancel := p.bounded(ctx)
	defer cancel()
	els, err := page.Elements(selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, extractor.ErrNotFound
	}
	var out []string
	for _, el := range els {
		v, err := el.Attribute(name)
		if err != nil || v == nil {
			continue
		}
		out = append(out, *v)
	}
	return out, nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
