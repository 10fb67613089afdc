package extractor

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/use-agent/mirror/cleaner"
)

// firstText returns the normalized text of the first selector that yields
// non-blank text.
func firstText(ctx context.Context, page Page, selectors ...string) string {
	for _, sel := range selectors {
		text, err := page.Text(ctx, sel)
		if err != nil {
			slog.Debug("locator miss", "selector", sel, "error", err)
			continue
		}
		if text = cleaner.CleanText(text); text != "" {
			return text
		}
	}
	return ""
}

// firstAttr returns the first non-blank attribute value across selectors.
func firstAttr(ctx context.Context, page Page, name string, selectors ...string) string {
	for _, sel := range selectors {
		v, err := page.Attr(ctx, sel, name)
		if err != nil {
			slog.Debug("locator miss", "selector", sel, "attr", name, "error", err)
			continue
		}
		if v = cleaner.CleanText(v); v != "" {
			return v
		}
	}
	return ""
}

// attrs gathers attribute values of every element matching selector.
func attrs(ctx context.Context, page Page, selector string, names ...string) []string {
	var out []string
	for _, name := range names {
		vals, err := page.Attrs(ctx, selector, name)
		if err != nil {
			slog.Debug("locator miss", "selector", selector, "attr", name, "error", err)
			continue
		}
		out = append(out, vals...)
	}
	return out
}

// body is the text of a content container plus its markup.
type body struct {
	text string
	html string
}

// firstBody returns the first container whose normalized text has more than
// minRunes runes.
func firstBody(ctx context.Context, page Page, minRunes int, selectors ...string) body {
	for _, sel := range selectors {
		text, err := page.Text(ctx, sel)
		if err != nil {
			slog.Debug("locator miss", "selector", sel, "error", err)
			continue
		}
		text = cleaner.CleanText(text)
		if utf8.RuneCountInString(text) <= minRunes {
			continue
		}
		inner, err := page.InnerHTML(ctx, sel)
		if err != nil {
			inner = ""
		}
		return body{text: text, html: inner}
	}
	return body{}
}

// markup returns the page's full HTML, or "" when it cannot be read.
func markup(ctx context.Context, page Page) string {
	html, err := page.HTML(ctx)
	if err != nil {
		slog.Debug("page markup unavailable", "error", err)
		return ""
	}
	return html
}

// pageTitle reads the <title> element, falling back to a markup scan.
func pageTitle(ctx context.Context, page Page, html string) string {
	if t := firstText(ctx, page, "title"); t != "" {
		return t
	}
	return cleaner.CleanText(first(html, []Pattern{titleTagPattern}))
}

func metaContent(ctx context.Context, page Page, selectors ...string) string {
	return firstAttr(ctx, page, "content", selectors...)
}

func finish(c *Content) *Content {
	c.Title = cleaner.CleanText(c.Title)
	c.Author = cleaner.CleanText(c.Author)
	c.Body = cleaner.Truncate(cleaner.CleanText(c.Body), c.BodyLimit())
	c.PublishedAt = cleaner.CleanText(c.PublishedAt)
	if c.Images == nil {
		c.Images = []string{}
	}
	if c.Videos == nil {
		c.Videos = []string{}
	}
	return c
}

// cleanTitle removes site suffixes from a page title.
func cleanTitle(t string, suffixes ...string) string {
	for _, s := range suffixes {
		t = strings.ReplaceAll(t, s, "")
	}
	return cleaner.CleanText(t)
}
