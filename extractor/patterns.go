package extractor

import (
	"regexp"
	"strings"
)

// Pattern is a regular expression scanned over raw markup together with the
// capture group holding the value.
type Pattern struct {
	Re    *regexp.Regexp
	Group int
}

func pattern(expr string, group int) Pattern {
	return Pattern{Re: regexp.MustCompile(expr), Group: group}
}

// first returns the first non-blank capture of the first pattern that
// matches markup, in pattern order.
func first(markup string, patterns []Pattern) string {
	for _, p := range patterns {
		for _, m := range p.Re.FindAllStringSubmatch(markup, -1) {
			if p.Group < len(m) && strings.TrimSpace(m[p.Group]) != "" {
				return m[p.Group]
			}
		}
	}
	return ""
}

// all returns every capture of every pattern, pattern by pattern.
func all(markup string, patterns []Pattern) []string {
	var out []string
	for _, p := range patterns {
		for _, m := range p.Re.FindAllStringSubmatch(markup, -1) {
			if p.Group < len(m) {
				out = append(out, m[p.Group])
			}
		}
	}
	return out
}

var (
	titleTagPattern = pattern(`(?i)<title[^>]*>([^<]+)</title>`, 1)
	tagPattern      = regexp.MustCompile(`<[^>]+>`)
)

// stripTags replaces markup tags with spaces.
func stripTags(s string) string {
	return tagPattern.ReplaceAllString(s, " ")
}

var escapes = strings.NewReplacer(
	`\u002F`, "/",
	`\u002f`, "/",
	`\/`, "/",
	"&amp;", "&",
)

// unescapeURL undoes the JSON and entity escaping found in embedded
// player metadata.
func unescapeURL(s string) string {
	return strings.TrimSpace(escapes.Replace(s))
}

// unescapeText undoes JSON escaping in embedded text values.
func unescapeText(s string) string {
	return strings.NewReplacer(`\n`, "\n", `\t`, " ", `\"`, `"`).Replace(escapes.Replace(s))
}

// stripQuery drops the query string and fragment of u.
func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}
