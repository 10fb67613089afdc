package extractor

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/use-agent/mirror/cleaner"
	"github.com/use-agent/mirror/models"
)

const maxTweetRunes = 5000

var (
	tweetAuthorInTitle = regexp.MustCompile(`X 上的 ([^：:]+)[：:]`)
	tweetHandleInTitle = regexp.MustCompile(`@(\w+)`)
	tweetQuotedInTitle = regexp.MustCompile(`[：:]\s*["“”](.+?)["“”]\s*$`)
	tweetAfterColon    = regexp.MustCompile(`[：:]\s*(.+)$`)
	tweetTrailingShort = regexp.MustCompile(`\s*https?://t\.co/\w+\s*$`)
	tweetImagePattern  = pattern(`src="([^"]*pbs\.twimg\.com[^"]+)"`, 1)
	tweetDatetimeAttr  = pattern(`datetime="([^"]+)"`, 1)
	tweetVideoPatterns = []Pattern{
		pattern(`"video_url"\s*:\s*"([^"]+)"`, 1),
		pattern(`"playbackUrl"\s*:\s*"([^"]+)"`, 1),
		pattern(`src="([^"]*video\.twimg\.com[^"]+)"`, 1),
		pattern(`"variants"\s*:\s*\[[^\]]*"url"\s*:\s*"([^"]+\.mp4[^"]*)"`, 1),
		pattern(`"url"\s*:\s*"([^"]*video\.twimg\.com[^"]+\.mp4[^"]*)"`, 1),
	}
)

type twitterExtractor struct{}

func (twitterExtractor) Platform() models.Platform { return models.PlatformTwitter }

func (twitterExtractor) Settle() Settle {
	return Settle{Delay: 3 * time.Second, Selector: `article [data-testid="tweetText"]`}
}

func (twitterExtractor) Extract(ctx context.Context, page Page, pageURL string) (*Content, error) {
	html := markup(ctx, page)
	rawTitle := pageTitle(ctx, page, html)
	c := &Content{}

	c.Title = strings.ReplaceAll(strings.ReplaceAll(rawTitle, " / X", ""), " on X:", ": ")

	// ── 1. Author: rendered name, then the title forms ──
	c.Author = firstText(ctx, page, `article [data-testid="User-Name"] a span`, `article [data-testid="User-Name"]`)
	if c.Author == "" {
		if m := tweetAuthorInTitle.FindStringSubmatch(rawTitle); m != nil {
			c.Author = m[1]
		} else if m := tweetHandleInTitle.FindStringSubmatch(rawTitle); m != nil {
			c.Author = "@" + m[1]
		}
	}

	// ── 2. Body: tweet text node, then the quoted text in the title ──
	b := firstBody(ctx, page, 0, `article [data-testid="tweetText"]`)
	c.Body, c.BodyHTML = b.text, b.html
	if c.Body == "" {
		c.Body = tweetTextFromTitle(c.Title)
	}

	// ── 3. Media ──
	images := newMediaSet(MaxImages)
	images.addAll(attrs(ctx, page, `article [data-testid="tweetPhoto"] img`, "src"), isTweetImage)
	images.addAll(all(html, []Pattern{tweetImagePattern}), isTweetImage)
	c.Images = images.list()

	videos := newMediaSet(MaxVideos)
	videos.addAll(attrs(ctx, page, "article video, article video source", "src"), nil)
	videos.addAll(all(html, tweetVideoPatterns), nil)
	videos.addAll(genericVideos(html), nil)
	c.Videos = videos.list()

	// ── 4. Published time ──
	c.PublishedAt = firstAttr(ctx, page, "datetime", "article time")
	if c.PublishedAt == "" {
		c.PublishedAt = first(html, []Pattern{tweetDatetimeAttr})
	}

	c.MaxBodyRunes = maxTweetRunes
	return finish(c), nil
}

// tweetTextFromTitle recovers the tweet from titles shaped like
// `NAME: "text https://t.co/x"` once the " / X" suffix is gone.
func tweetTextFromTitle(title string) string {
	var text string
	if m := tweetQuotedInTitle.FindStringSubmatch(title); m != nil {
		text = m[1]
	} else if m := tweetAfterColon.FindStringSubmatch(title); m != nil {
		text = strings.Trim(m[1], `"“” `)
	}
	text = cleaner.CleanText(text)
	return tweetTrailingShort.ReplaceAllString(text, "")
}

func isTweetImage(u string) bool {
	return !strings.Contains(u, "_normal") && !strings.Contains(u, "profile_images")
}
