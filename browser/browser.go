// Package browser provides isolated page sessions for single crawls: a
// headless Chromium backend driven by rod and a plain HTTP backend.
package browser

import (
	"context"

	"github.com/use-agent/mirror/extractor"
	"github.com/use-agent/mirror/models"
)

// Browser opens isolated sessions. Implementations are safe for concurrent
// use; sessions are not.
type Browser interface {
	// NewSession opens a fresh context with its own cookie jar and storage.
	NewSession(ctx context.Context) (Session, error)

	// Name identifies the backend in logs and health output.
	Name() string

	Close() error
}

// Session is one isolated context plus page, owned by a single crawl and
// closed by it. Configuration calls must happen before Navigate.
type Session interface {
	SetCookies(ctx context.Context, cookies []models.CookieParam) error
	SetViewport(ctx context.Context, width, height int) error

	// SetHeaders installs request headers. "User-Agent" and
	// "Accept-Language" are applied as the browser identity.
	SetHeaders(ctx context.Context, headers map[string]string) error

	// AddInitScript runs js in every new document before page scripts.
	AddInitScript(ctx context.Context, js string) error

	// Navigate loads url and returns once the DOM is ready.
	Navigate(ctx context.Context, url string) error

	// WaitFor blocks until selector matches or ctx ends.
	WaitFor(ctx context.Context, selector string) error

	// Page is the loaded document.
	Page() extractor.Page

	Close() error
}
