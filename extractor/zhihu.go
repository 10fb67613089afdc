package extractor

import (
	"context"
	"strings"
	"time"

	"github.com/use-agent/mirror/models"
)

type zhihuLayout struct {
	name    string
	title   []string
	author  []string
	body    []string
	time    []string
	imgRoot string
}

var (
	zhihuArticle = zhihuLayout{
		name:    "article",
		title:   []string{"h1.Post-Title", ".Post-Title"},
		author:  []string{".Post-Author .AuthorInfo-name", ".AuthorInfo-name"},
		body:    []string{".Post-RichTextContainer .RichText", ".Post-RichText", ".RichText"},
		time:    []string{".ContentItem-time"},
		imgRoot: ".Post-RichText img",
	}
	zhihuAnswer = zhihuLayout{
		name:    "answer",
		title:   []string{"h1.QuestionHeader-title", ".QuestionHeader-title"},
		author:  []string{".AnswerItem .AuthorInfo-name", ".AuthorInfo-name"},
		body:    []string{".AnswerItem .RichContent-inner", ".AnswerItem .RichText", ".RichText"},
		time:    []string{".AnswerItem .ContentItem-time", ".ContentItem-time"},
		imgRoot: ".AnswerItem .RichText img",
	}
	zhihuQuestion = zhihuLayout{
		name:    "question",
		title:   []string{"h1.QuestionHeader-title", ".QuestionHeader-title"},
		author:  []string{".QuestionAuthor .AuthorInfo-name", ".AuthorInfo-name"},
		body:    []string{".QuestionRichText", ".QuestionHeader-detail", ".RichText"},
		time:    []string{".ContentItem-time"},
		imgRoot: ".RichText img",
	}
)

// zhihuLayoutFor picks the locator set from the URL shape.
func zhihuLayoutFor(pageURL string) zhihuLayout {
	switch {
	case strings.Contains(pageURL, "/p/"):
		return zhihuArticle
	case strings.Contains(pageURL, "/answer/"):
		return zhihuAnswer
	default:
		return zhihuQuestion
	}
}

var (
	zhihuTitlePatterns = []Pattern{
		pattern(`<h1[^>]*class="[^"]*Post-Title[^"]*"[^>]*>([^<]+)</h1>`, 1),
		pattern(`<h1[^>]*class="[^"]*QuestionHeader-title[^"]*"[^>]*>([^<]+)</h1>`, 1),
		pattern(`"title"\s*:\s*"([^"]+)"`, 1),
	}
	zhihuAuthorPatterns = []Pattern{
		pattern(`class="[^"]*AuthorInfo-name[^"]*"[^>]*>([^<]+)<`, 1),
		pattern(`"author"\s*:\s*\{[^}]*"name"\s*:\s*"([^"]+)"`, 1),
	}
	zhihuImagePatterns = []Pattern{
		pattern(`(?:src|data-original|data-actualsrc)="([^"]+)"`, 1),
	}
	zhihuVideoPatterns = []Pattern{
		pattern(`"play_url"\s*:\s*"([^"]+)"`, 1),
		pattern(`"video_url"\s*:\s*"([^"]+)"`, 1),
		pattern(`data-video="([^"]+)"`, 1),
		pattern(`class="[^"]*VideoCard[^"]*"[^>]*data-url="([^"]+)"`, 1),
	}
)

type zhihuExtractor struct{}

func (zhihuExtractor) Platform() models.Platform { return models.PlatformZhihu }

func (zhihuExtractor) Settle() Settle {
	return Settle{Delay: 3 * time.Second, Selector: ".RichText"}
}

func (zhihuExtractor) Extract(ctx context.Context, page Page, pageURL string) (*Content, error) {
	layout := zhihuLayoutFor(pageURL)
	html := markup(ctx, page)
	c := &Content{}

	// ── 1. Title ──
	c.Title = firstText(ctx, page, layout.title...)
	if c.Title == "" {
		c.Title = unescapeText(first(html, zhihuTitlePatterns))
	}
	if c.Title == "" {
		if t := pageTitle(ctx, page, html); strings.Contains(t, " - 知乎") {
			c.Title = cleanTitle(t, " - 知乎")
		}
	}

	// ── 2. Author ──
	c.Author = firstText(ctx, page, layout.author...)
	if c.Author == "" {
		c.Author = first(html, zhihuAuthorPatterns)
	}

	// ── 3. Body ──
	b := firstBody(ctx, page, 0, layout.body...)
	c.Body, c.BodyHTML = b.text, b.html
	if c.Body == "" {
		c.Body = firstText(ctx, page, "main", "body")
	}

	// ── 4. Media ──
	images := newMediaSet(MaxImages)
	images.addAll(attrs(ctx, page, layout.imgRoot, "data-original", "data-actualsrc"), isZhihuImage)
	images.addAll(all(html, zhihuImagePatterns), isZhihuImage)
	c.Images = images.list()

	videos := newMediaSet(MaxVideos)
	videos.addAll(all(html, zhihuVideoPatterns), nil)
	videos.addAll(genericVideos(html), nil)
	c.Videos = videos.list()

	// ── 5. Published time ──
	c.PublishedAt = firstText(ctx, page, layout.time...)
	if c.PublishedAt == "" {
		c.PublishedAt = metaContent(ctx, page, `meta[itemprop="datePublished"]`)
	}

	return finish(c), nil
}

func isZhihuImage(u string) bool {
	return strings.Contains(u, "zhimg.com") && !strings.Contains(u, "/avatar") && !strings.HasPrefix(u, "data:")
}
