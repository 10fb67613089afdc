package models

import "time"

// CrawlResult is the single outcome of crawling one URL. Exactly one is
// produced per crawl, whether it succeeded or not.
type CrawlResult struct {
	Success  bool     `json:"success"`
	Platform Platform `json:"platform"`
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Author   string   `json:"author,omitempty"`
	Content  string   `json:"content"`

	// Images holds at most 20 distinct URLs, Videos at most 10.
	Images []string `json:"images"`
	Videos []string `json:"videos"`

	PublishedAt string `json:"published_at,omitempty"`

	// CrawledAt is stamped when the result is resolved.
	CrawledAt time.Time `json:"crawled_at"`

	// Error is set only when Success is false.
	Error string `json:"error,omitempty"`
}

// NewFailedResult builds a failure result with empty content fields.
func NewFailedResult(platform Platform, url, errMsg string) *CrawlResult {
	return &CrawlResult{
		Success:   false,
		Platform:  platform,
		URL:       url,
		Images:    []string{},
		Videos:    []string{},
		CrawledAt: time.Now(),
		Error:     errMsg,
	}
}
