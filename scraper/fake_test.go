package scraper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/use-agent/mirror/browser"
	"github.com/use-agent/mirror/extractor"
	"github.com/use-agent/mirror/models"
)

// fakeBrowser hands out fakeSessions built by newSession.
type fakeBrowser struct {
	newSession func() *fakeSession
	err        error

	mu       sync.Mutex
	sessions []*fakeSession
}

func (b *fakeBrowser) NewSession(ctx context.Context) (browser.Session, error) {
	if b.err != nil {
		return nil, b.err
	}
	s := b.newSession()
	b.mu.Lock()
	b.sessions = append(b.sessions, s)
	b.mu.Unlock()
	return s, nil
}

func (b *fakeBrowser) Name() string { return "fake" }
func (b *fakeBrowser) Close() error { return nil }

func (b *fakeBrowser) opened() []*fakeSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*fakeSession(nil), b.sessions...)
}

// fakeSession records configuration calls and serves a fixed page.
type fakeSession struct {
	page extractor.Page

	// navErrs are returned by successive Navigate calls; past the end
	// Navigate succeeds.
	navErrs []error
	// blockNavigate makes Navigate wait for its context.
	blockNavigate bool

	mu      sync.Mutex
	calls   []string
	cookies []models.CookieParam
	headers map[string]string
	navs    int
	closed  atomic.Bool
}

func (s *fakeSession) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *fakeSession) SetCookies(ctx context.Context, cookies []models.CookieParam) error {
	s.record("cookies")
	s.mu.Lock()
	s.cookies = cookies
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) SetViewport(ctx context.Context, width, height int) error {
	s.record("viewport")
	return nil
}

func (s *fakeSession) SetHeaders(ctx context.Context, headers map[string]string) error {
	s.record("headers")
	s.mu.Lock()
	s.headers = headers
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) AddInitScript(ctx context.Context, js string) error {
	s.record("script")
	return nil
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.record("navigate")
	s.mu.Lock()
	n := s.navs
	s.navs++
	s.mu.Unlock()

	if s.blockNavigate {
		<-ctx.Done()
		return ctx.Err()
	}
	if n < len(s.navErrs) {
		return s.navErrs[n]
	}
	return nil
}

func (s *fakeSession) WaitFor(ctx context.Context, selector string) error {
	return nil
}

func (s *fakeSession) Page() extractor.Page { return s.page }

func (s *fakeSession) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *fakeSession) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeSession) navigations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.navs
}

// panicPage panics on every lookup.
type panicPage struct{}

func (panicPage) HTML(context.Context) (string, error) { panic("page exploded") }
func (panicPage) Text(context.Context, string) (string, error) { panic("page exploded") }
func (panicPage) InnerHTML(context.Context, string) (string, error) { panic("page exploded") }
func (panicPage) Attr(context.Context, string, string) (string, error) {
	panic("page exploded")
}
func (panicPage) Attrs(context.Context, string, string) ([]string, error) {
	panic("page exploded")
}

// stuckPage blocks every lookup until release is closed.
type stuckPage struct{ release chan struct{} }

func (p stuckPage) wait() error {
	<-p.release
	return errors.New("released")
}

func (p stuckPage) HTML(context.Context) (string, error) { return "", p.wait() }
func (p stuckPage) Text(context.Context, string) (string, error) {
	return "", p.wait()
}
func (p stuckPage) InnerHTML(context.Context, string) (string, error) {
	return "", p.wait()
}
func (p stuckPage) Attr(context.Context, string, string) (string, error) {
	return "", p.wait()
}
func (p stuckPage) Attrs(context.Context, string, string) ([]string, error) {
	return nil, p.wait()
}
