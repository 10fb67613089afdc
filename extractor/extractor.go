// Package extractor holds the per-platform extraction strategies and the
// registry that selects one for a platform tag.
package extractor

import (
	"context"
	"time"

	"github.com/use-agent/mirror/models"
)

const (
	// MaxImages and MaxVideos cap the media lists of every result.
	MaxImages = 20
	MaxVideos = 10

	// MaxBodyRunes bounds the content field.
	MaxBodyRunes = 10000
)

// Content is what a strategy recovers from one page. Every text field is
// already normalized.
type Content struct {
	Title       string
	Author      string
	Body        string
	Images      []string
	Videos      []string
	PublishedAt string

	// BodyHTML is the markup of the node Body was read from, when known.
	// It feeds markdown rendering.
	BodyHTML string

	// MaxBodyRunes overrides the package-wide body cap for this page. Any
	// rendering of the body, markdown included, is held to it.
	MaxBodyRunes int
}

// BodyLimit returns the rune cap that applies to c's body.
func (c *Content) BodyLimit() int {
	if c.MaxBodyRunes > 0 {
		return min(c.MaxBodyRunes, MaxBodyRunes)
	}
	return MaxBodyRunes
}

// Settle is the extra wait a strategy wants after DOM ready and before it
// reads the page.
type Settle struct {
	// Delay is a fixed wait for deferred content and hydration.
	Delay time.Duration

	// Selector, when set, is awaited best effort after Delay.
	Selector string
}

// Extractor turns a loaded page into Content. Field lookups never fail the
// whole extraction: a missing element degrades only its field.
type Extractor interface {
	Platform() models.Platform
	Settle() Settle
	Extract(ctx context.Context, page Page, pageURL string) (*Content, error)
}

var (
	zhihu       Extractor = zhihuExtractor{}
	xiaohongshu Extractor = xiaohongshuExtractor{}
	twitter     Extractor = twitterExtractor{}
	wechat      Extractor = wechatExtractor{}
	generic     Extractor = genericExtractor{}
)

// For returns the strategy registered for p. Unknown and unrecognized tags
// get the generic strategy.
func For(p models.Platform) Extractor {
	switch p {
	case models.PlatformZhihu:
		return zhihu
	case models.PlatformXiaohongshu:
		return xiaohongshu
	case models.PlatformTwitter:
		return twitter
	case models.PlatformWechat:
		return wechat
	default:
		return generic
	}
}
