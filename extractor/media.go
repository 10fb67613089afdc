package extractor

import "strings"

// mediaSet collects unique media URLs in discovery order up to a cap.
type mediaSet struct {
	limit int
	seen  map[string]struct{}
	urls  []string
}

func newMediaSet(limit int) *mediaSet {
	return &mediaSet{limit: limit, seen: make(map[string]struct{})}
}

// add unescapes raw and keeps it unless it is empty, a blob:/data: URL,
// a duplicate, or the set is full.
func (m *mediaSet) add(raw string) bool {
	u := unescapeURL(raw)
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	if u == "" || strings.HasPrefix(u, "blob:") || strings.HasPrefix(u, "data:") {
		return false
	}
	if m.full() {
		return false
	}
	if _, dup := m.seen[u]; dup {
		return false
	}
	m.seen[u] = struct{}{}
	m.urls = append(m.urls, u)
	return true
}

func (m *mediaSet) addAll(raws []string, keep func(string) bool) {
	for _, raw := range raws {
		if keep != nil && !keep(unescapeURL(raw)) {
			continue
		}
		m.add(raw)
	}
}

func (m *mediaSet) full() bool { return len(m.urls) >= m.limit }

// list returns the collected URLs, never nil.
func (m *mediaSet) list() []string {
	if m.urls == nil {
		return []string{}
	}
	return m.urls
}

// Dedupe returns the distinct entries of urls in order, dropping blanks,
// truncated to limit. The result is never nil.
func Dedupe(urls []string, limit int) []string {
	set := newMediaSet(limit)
	for _, u := range urls {
		set.add(u)
	}
	return set.list()
}

// Player metadata and tag forms shared by every strategy.
var genericVideoPatterns = []Pattern{
	pattern(`(?i)<video[^>]*src="([^"]+)"`, 1),
	pattern(`(?i)<source[^>]*src="([^"]+)"[^>]*type="video`, 1),
	pattern(`(?i)data-(?:video-)?src="([^"]+\.(?:mp4|m3u8|webm)[^"]*)"`, 1),
	pattern(`"(?:video_?url|videoUrl|video_src|stream_url|playUrl)"\s*:\s*"([^"]+)"`, 1),
}

// genericVideos scans markup for the shared video forms.
func genericVideos(markup string) []string {
	return all(markup, genericVideoPatterns)
}
