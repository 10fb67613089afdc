package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// ReadByline runs the Readability algorithm over rawHTML and returns the
// normalized article byline. ok is false when readability could not parse
// the document or found no byline.
func ReadByline(rawHTML, pageURL string) (byline string, ok bool) {
	if strings.TrimSpace(rawHTML) == "" {
		return "", false
	}
	parsedURL, err := nurl.Parse(pageURL)
	if err != nil {
		slog.Debug("readability: invalid page URL", "url", pageURL, "error", err)
		return "", false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", pageURL, "error", err)
		return "", false
	}

	byline = CleanText(article.Byline)
	return byline, byline != ""
}
