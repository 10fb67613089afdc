package extractor

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/use-agent/mirror/cleaner"
	"github.com/use-agent/mirror/models"
)

var (
	xhsNicknamePattern    = pattern(`"nickname"\s*:\s*"([^"]{2,50})"`, 1)
	xhsProfileLinkPattern = pattern(`/user/profile/[^"]*"[^>]*>([^<]{2,30})</a>`, 1)

	xhsDescPatterns = []Pattern{
		pattern(`"desc"\s*:\s*"([^"]{10,})"`, 1),
		pattern(`(?s)id="detail-desc"[^>]*>(.*?)</div>`, 1),
		pattern(`class="[^"]*desc[^"]*"[^>]*>([^<]+)`, 1),
	}
	xhsImageListPattern   = pattern(`"imageList"\s*:\s*\[([^\]]+)\]`, 1)
	xhsImageInListPattern = pattern(`"([^"]+xhscdn[^"]+)"`, 1)
	xhsImagePatterns      = []Pattern{
		pattern(`"urlDefault"\s*:\s*"([^"]+)"`, 1),
		pattern(`"url"\s*:\s*"([^"]*(?:webpic|img)[^"]*xhscdn[^"]+)"`, 1),
		pattern(`(?:src|data-src)="([^"]*(?:webpic|sns-webpic)[^"]*xhscdn\.com[^"]+)"`, 1),
	}
	xhsVideoPatterns = []Pattern{
		pattern(`"masterUrl"\s*:\s*"([^"]+)"`, 1),
		pattern(`"videoUrl"\s*:\s*"([^"]+)"`, 1),
		pattern(`"originVideoKey"\s*:\s*"([^"]+)"`, 1),
		pattern(`"url"\s*:\s*"([^"]*sns-video[^"]+)"`, 1),
		pattern(`video[^>]*src="([^"]+\.mp4[^"]*)"`, 1),
	}
	xhsTimePattern = pattern(`(编辑于|发布于)?\s*(\d+[天小时分钟]+前)\s*(上海|北京|广州|深圳|杭州)?`, 0)
)

// Navigation and chrome labels that show up where a nickname is expected.
var xhsInvalidNames = []string{"登录", "关注", "http", "小红书", "发现", "通知", "我", "null", "评论", "wowo", "分享", "收藏", "首页"}

type xiaohongshuExtractor struct{}

func (xiaohongshuExtractor) Platform() models.Platform { return models.PlatformXiaohongshu }

func (xiaohongshuExtractor) Settle() Settle {
	return Settle{Delay: 3 * time.Second, Selector: "#detail-desc"}
}

func (xiaohongshuExtractor) Extract(ctx context.Context, page Page, pageURL string) (*Content, error) {
	html := markup(ctx, page)
	c := &Content{}

	// ── 1. Title: note heading, then <title> unless it is the login page ──
	c.Title = firstText(ctx, page, "#detail-title", ".note-content .title")
	if c.Title == "" {
		t := pageTitle(ctx, page, html)
		switch {
		case strings.Contains(t, " - 小红书"):
			c.Title = cleanTitle(t, " - 小红书")
		case !strings.Contains(t, "小红书") && !strings.Contains(t, "登录"):
			c.Title = t
		}
	}
	if c.Title == "" {
		c.Title = metaContent(ctx, page, `meta[property="og:title"]`, `meta[name="og:title"]`)
	}

	// ── 2. Author: the note owner, not a commenter ──
	c.Author = firstText(ctx, page, ".author-wrapper .username", ".author-container .username", ".author .name")
	if !validXhsName(c.Author) {
		c.Author = xhsAuthorFromMarkup(html)
	}

	// ── 3. Body ──
	b := firstBody(ctx, page, 0, "#detail-desc", ".note-content .desc", ".note-text")
	c.Body, c.BodyHTML = b.text, b.html
	if c.Body == "" {
		c.Body = xhsDescFromMarkup(html)
	}

	// ── 4. Media ──
	images := newMediaSet(MaxImages)
	for _, list := range all(html, []Pattern{xhsImageListPattern}) {
		images.addAll(stripAll(all(list, []Pattern{xhsImageInListPattern})), isXhsImage)
	}
	images.addAll(stripAll(all(html, xhsImagePatterns)), isXhsImage)
	images.addAll(stripAll(attrs(ctx, page, ".note-slider img, .swiper-slide img", "src")), isXhsImage)
	c.Images = images.list()

	videos := newMediaSet(MaxVideos)
	videos.addAll(attrs(ctx, page, "video", "src"), isXhsVideo)
	videos.addAll(all(html, xhsVideoPatterns), isXhsVideo)
	videos.addAll(genericVideos(html), isXhsVideo)
	c.Videos = videos.list()

	// ── 5. Published time, often relative ("编辑于 3天前 上海") ──
	c.PublishedAt = firstText(ctx, page, ".note-content .date", ".bottom-container .date")
	if c.PublishedAt == "" {
		c.PublishedAt = first(html, []Pattern{xhsTimePattern})
	}

	return finish(c), nil
}

// xhsAuthorFromMarkup prefers nicknames that appear before the comments
// block, then any nickname, then the profile link text.
func xhsAuthorFromMarkup(html string) string {
	if pos := strings.Index(html, `"comments"`); pos > 500 {
		if name := firstValidName(all(html[:pos], []Pattern{xhsNicknamePattern})); name != "" {
			return name
		}
	}
	if name := firstValidName(all(html, []Pattern{xhsNicknamePattern})); name != "" {
		return name
	}
	return firstValidName(all(html, []Pattern{xhsProfileLinkPattern}))
}

func firstValidName(candidates []string) string {
	for _, c := range candidates {
		if c = cleaner.CleanText(c); validXhsName(c) {
			return c
		}
	}
	return ""
}

func validXhsName(name string) bool {
	n := utf8.RuneCountInString(name)
	if n < 2 || n > 30 {
		return false
	}
	lower := strings.ToLower(name)
	for _, bad := range xhsInvalidNames {
		if strings.Contains(lower, bad) {
			return false
		}
	}
	return true
}

func xhsDescFromMarkup(html string) string {
	for _, p := range xhsDescPatterns {
		m := p.Re.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		desc := cleaner.CleanText(stripTags(unescapeText(m[p.Group])))
		if utf8.RuneCountInString(desc) > 20 {
			return desc
		}
	}
	return ""
}

func isXhsImage(u string) bool {
	lower := strings.ToLower(u)
	for _, bad := range []string{"avatar", "icon", "logo", ".js", ".css", "fe-static", "formula-static", "fe-video", "html2canvas"} {
		if strings.Contains(lower, bad) {
			return false
		}
	}
	for _, good := range []string{"webpic", "sns-webpic", "img.xhscdn"} {
		if strings.Contains(lower, good) {
			return true
		}
	}
	return false
}

func isXhsVideo(u string) bool {
	return strings.Contains(u, "sns-video") || strings.Contains(u, ".mp4") || strings.Contains(u, "stream")
}

func stripAll(urls []string) []string {
	for i, u := range urls {
		urls[i] = stripQuery(unescapeURL(u))
	}
	return urls
}
