package models

import "time"

const (
	// DefaultTimeoutMillis applies when a request carries no timeout.
	DefaultTimeoutMillis = 30000

	// MaxTimeoutMillis is the largest per-phase timeout accepted, whatever
	// the server-side cap.
	MaxTimeoutMillis = 600000

	// MaxBatchURLs is the largest batch accepted by POST /crawl/batch.
	MaxBatchURLs = 10

	FetchModeBrowser = "browser"
	FetchModeHTTP    = "http"

	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// CrawlRequest is the payload for POST /crawl.
type CrawlRequest struct {
	// URL is the page to crawl. Required.
	URL string `json:"url" binding:"required"`

	// Timeout is the per-phase budget in milliseconds. Default: 30000.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=600000"`

	// Cookies is either a raw cookie header string or a list of
	// {name, value, domain?, path?} objects.
	Cookies *CookieSpec `json:"cookies,omitempty"`

	// FetchMode selects the session backend.
	// "browser" (default): headless Chrome.
	// "http": TLS-fingerprinted GET, no JS rendering.
	FetchMode string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=browser http"`

	// Format controls the content field: "text" (default) or "markdown".
	Format string `json:"format,omitempty" binding:"omitempty,oneof=text markdown"`

	// MaxAge enables the response cache: a successful result younger than
	// MaxAge milliseconds is served without crawling. 0 disables it.
	MaxAge int64 `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Options returns the crawl options carried by the request.
func (r *CrawlRequest) Options() CrawlOptions {
	return CrawlOptions{
		TimeoutMillis: r.Timeout,
		Cookies:       r.Cookies,
		FetchMode:     r.FetchMode,
		Format:        r.Format,
	}
}

// BatchCrawlRequest is the payload for POST /crawl/batch.
type BatchCrawlRequest struct {
	// URLs to crawl. Required, 1 to 10 entries.
	URLs []string `json:"urls" binding:"required"`

	Timeout   int         `json:"timeout,omitempty" binding:"omitempty,min=1,max=600000"`
	Cookies   *CookieSpec `json:"cookies,omitempty"`
	FetchMode string      `json:"fetch_mode,omitempty" binding:"omitempty,oneof=browser http"`
	Format    string      `json:"format,omitempty" binding:"omitempty,oneof=text markdown"`

	// WebhookURL receives a batch.completed event once every URL resolved.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret signs webhook payloads with HMAC-SHA256 when set.
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Options returns the crawl options shared by every URL of the batch.
func (r *BatchCrawlRequest) Options() CrawlOptions {
	return CrawlOptions{
		TimeoutMillis: r.Timeout,
		Cookies:       r.Cookies,
		FetchMode:     r.FetchMode,
		Format:        r.Format,
	}
}

// CrawlOptions are the per-call knobs of a single crawl.
type CrawlOptions struct {
	TimeoutMillis int
	Cookies       *CookieSpec
	FetchMode     string
	Format        string
}

// Defaults applies default values to unset fields.
func (o *CrawlOptions) Defaults() {
	if o.TimeoutMillis <= 0 {
		o.TimeoutMillis = DefaultTimeoutMillis
	}
	o.TimeoutMillis = min(o.TimeoutMillis, MaxTimeoutMillis)
	if o.FetchMode == "" {
		o.FetchMode = FetchModeBrowser
	}
	if o.Format == "" {
		o.Format = FormatText
	}
}

// Timeout returns TimeoutMillis as a duration.
func (o CrawlOptions) Timeout() time.Duration {
	return time.Duration(o.TimeoutMillis) * time.Millisecond
}
