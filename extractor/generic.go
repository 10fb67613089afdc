package extractor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/use-agent/mirror/cleaner"
	"github.com/use-agent/mirror/models"
	"github.com/use-agent/mirror/platform"
)

// genericContainers are tried in order; the first holding more than
// genericMinBodyRunes of text wins, otherwise <body> is used.
var genericContainers = []string{
	"article",
	"main",
	`[role="main"]`,
	".post-content",
	".entry-content",
	".article-content",
	".article-body",
	".content",
	"#content",
}

const genericMinBodyRunes = 100

var (
	githubRepoPattern   = regexp.MustCompile(`github\.com/([^/]+)/([^/?#]+)`)
	githubAboutPatterns = []Pattern{
		pattern(`<p[^>]*class="[^"]*f4[^"]*"[^>]*>([^<]+)</p>`, 1),
		pattern(`"description"\s*:\s*"([^"]+)"`, 1),
		pattern(`itemprop="about"[^>]*>([^<]+)<`, 1),
	}
	genericImagePattern = pattern(`(?i)src="(https?://[^"]+\.(?:jpg|jpeg|png|gif|webp)[^"]*)"`, 1)
)

type genericExtractor struct{}

func (genericExtractor) Platform() models.Platform { return models.PlatformUnknown }

func (genericExtractor) Settle() Settle {
	return Settle{Delay: time.Second}
}

func (genericExtractor) Extract(ctx context.Context, page Page, pageURL string) (*Content, error) {
	html := markup(ctx, page)

	if c, ok := githubRepository(ctx, page, html, pageURL); ok {
		return finish(c), nil
	}

	c := &Content{}
	c.Title = pageTitle(ctx, page, html)
	if c.Title == "" {
		c.Title = metaContent(ctx, page, `meta[property="og:title"]`)
	}
	if c.Title == "" {
		c.Title = firstText(ctx, page, "h1")
	}

	// ── Body: first substantial container, else the whole body ──
	b := firstBody(ctx, page, genericMinBodyRunes, genericContainers...)
	if b.text == "" {
		b = firstBody(ctx, page, 0, "body")
	}
	c.Body, c.BodyHTML = b.text, b.html
	if c.Body == "" {
		c.Body = metaContent(ctx, page, `meta[name="description"]`, `meta[property="og:description"]`)
	}

	c.Author = metaContent(ctx, page, `meta[name="author"]`, `meta[property="article:author"]`)
	if c.Author == "" {
		c.Author = firstText(ctx, page, `[rel="author"]`, ".author", ".byline")
	}
	if c.Author == "" && html != "" {
		if byline, ok := cleaner.ReadByline(html, pageURL); ok {
			c.Author = byline
		}
	}
	if utf8.RuneCountInString(c.Author) > 100 {
		c.Author = ""
	}

	c.PublishedAt = metaContent(ctx, page,
		`meta[property="article:published_time"]`,
		`meta[itemprop="datePublished"]`,
		`meta[name="pubdate"]`,
	)
	if c.PublishedAt == "" {
		c.PublishedAt = firstAttr(ctx, page, "datetime", "time[datetime]")
	}

	images := newMediaSet(MaxImages)
	images.addAll(stripAll(all(html, []Pattern{genericImagePattern})), nil)
	c.Images = images.list()

	videos := newMediaSet(MaxVideos)
	videos.addAll(attrs(ctx, page, "video, video source", "src"), nil)
	videos.addAll(genericVideos(html), nil)
	c.Videos = videos.list()

	return finish(c), nil
}

// githubRepository handles repository pages, whose rendered body is mostly
// navigation: the owner is the author and the description is the body.
func githubRepository(ctx context.Context, page Page, html, pageURL string) (*Content, bool) {
	host, err := platform.Host(pageURL)
	if err != nil || (host != "github.com" && !strings.HasSuffix(host, ".github.com")) {
		return nil, false
	}
	m := githubRepoPattern.FindStringSubmatch(pageURL)
	if m == nil {
		return nil, false
	}
	owner, repo := m[1], m[2]

	c := &Content{
		Author: owner,
		Title:  fmt.Sprintf("GitHub - %s/%s", owner, repo),
		Images: []string{},
		Videos: []string{},
	}
	if desc := metaContent(ctx, page, `meta[property="og:description"]`); desc != "" {
		c.Title = fmt.Sprintf("GitHub - %s/%s: %s", owner, repo, cleaner.Truncate(desc, 100))
		c.Body = desc
	}
	if c.Body == "" {
		c.Body = first(html, githubAboutPatterns)
	}
	return c, true
}
