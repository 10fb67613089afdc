package extractor

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/mirror/models"
)

var (
	wechatTitlePatterns = []Pattern{
		pattern(`(?i)id="activity-name"[^>]*>\s*([^<]+?)\s*<`, 1),
		pattern(`(?i)class="[^"]*rich_media_title[^"]*"[^>]*>\s*([^<]+?)\s*<`, 1),
		pattern(`(?i)<meta[^>]*property="og:title"[^>]*content="([^"]+)"`, 1),
	}
	wechatAuthorPatterns = []Pattern{
		pattern(`(?i)id="js_name"[^>]*>\s*([^<]+?)\s*<`, 1),
		pattern(`(?i)class="[^"]*profile_nickname[^"]*"[^>]*>\s*([^<]+?)\s*<`, 1),
	}
	wechatImagePattern  = pattern(`data-src="([^"]+)"`, 1)
	wechatVideoPatterns = []Pattern{
		pattern(`(?i)data-src="([^"]+\.mp4[^"]*)"`, 1),
		pattern(`(?i)"url_info"\s*:\s*\{[^}]*"url"\s*:\s*"([^"]+)"`, 1),
		pattern(`(?i)<iframe[^>]*class="[^"]*video[^"]*"[^>]*src="([^"]+)"`, 1),
		pattern(`(?i)data-vidtype="[^"]*"[^>]*data-src="([^"]+)"`, 1),
	}
	wechatTimePatterns = []Pattern{
		pattern(`id="publish_time"[^>]*>\s*([^<]+?)\s*<`, 1),
		pattern(`"publish_time"[^>]*>\s*(\d{4}-\d{2}-\d{2})`, 1),
	}
	wechatCreateTime = pattern(`var\s+ct\s*=\s*"(\d{9,11})"`, 1)
)

type wechatExtractor struct{}

func (wechatExtractor) Platform() models.Platform { return models.PlatformWechat }

func (wechatExtractor) Settle() Settle {
	return Settle{Delay: 2 * time.Second, Selector: "#js_content"}
}

func (wechatExtractor) Extract(ctx context.Context, page Page, pageURL string) (*Content, error) {
	html := markup(ctx, page)
	c := &Content{}

	c.Title = firstText(ctx, page, "#activity-name", ".rich_media_title")
	if c.Title == "" {
		c.Title = metaContent(ctx, page, `meta[property="og:title"]`)
	}
	if c.Title == "" {
		c.Title = first(html, wechatTitlePatterns)
	}

	c.Author = firstText(ctx, page, "#js_name", ".profile_nickname", ".rich_media_meta_nickname")
	if c.Author == "" {
		c.Author = first(html, wechatAuthorPatterns)
	}

	b := firstBody(ctx, page, 0, "#js_content", ".rich_media_content")
	c.Body, c.BodyHTML = b.text, b.html

	images := newMediaSet(MaxImages)
	images.addAll(attrs(ctx, page, "#js_content img", "data-src", "src"), isWechatImage)
	images.addAll(all(html, []Pattern{wechatImagePattern}), isWechatImage)
	c.Images = images.list()

	videos := newMediaSet(MaxVideos)
	videos.addAll(all(html, wechatVideoPatterns), nil)
	videos.addAll(genericVideos(html), nil)
	c.Videos = videos.list()

	c.PublishedAt = firstText(ctx, page, "#publish_time")
	if c.PublishedAt == "" {
		c.PublishedAt = first(html, wechatTimePatterns)
	}
	if c.PublishedAt == "" {
		c.PublishedAt = unixToRFC3339(first(html, []Pattern{wechatCreateTime}))
	}

	return finish(c), nil
}

func isWechatImage(u string) bool {
	return !strings.Contains(u, ".mp4") && !strings.HasPrefix(u, "data:")
}

// unixToRFC3339 formats a unix-seconds string; anything else yields "".
func unixToRFC3339(s string) string {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil || sec <= 0 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
