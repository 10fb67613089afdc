// Package platform classifies URLs into the site tags that select an
// extraction strategy.
package platform

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/use-agent/mirror/models"
)

// ErrInvalidURL is returned for URLs without an http(s) scheme or a host.
var ErrInvalidURL = errors.New("invalid url")

type signature struct {
	host         string
	platform     models.Platform
	cookieDomain string
}

// Ordered; the first match wins.
var signatures = []signature{
	{"zhihu.com", models.PlatformZhihu, ".zhihu.com"},
	{"xiaohongshu.com", models.PlatformXiaohongshu, ".xiaohongshu.com"},
	{"xhslink.com", models.PlatformXiaohongshu, ".xhslink.com"},
	{"twitter.com", models.PlatformTwitter, ".twitter.com"},
	{"x.com", models.PlatformTwitter, ".x.com"},
	{"weixin.qq.com", models.PlatformWechat, ".qq.com"},
}

// Detect returns the platform tag for rawURL. Hosts that match no signature
// are PlatformUnknown; only a malformed URL is an error.
func Detect(rawURL string) (models.Platform, error) {
	host, err := Host(rawURL)
	if err != nil {
		return models.PlatformUnknown, err
	}
	if sig, ok := match(host); ok {
		return sig.platform, nil
	}
	return models.PlatformUnknown, nil
}

// CookieDomain returns the domain cookies for rawURL are installed on:
// the platform's registrable domain, or the bare hostname for unknown hosts.
func CookieDomain(rawURL string) string {
	host, err := Host(rawURL)
	if err != nil {
		return ""
	}
	if sig, ok := match(host); ok {
		return sig.cookieDomain
	}
	return host
}

// Host validates rawURL and returns its lower-cased hostname.
func Host(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return host, nil
}

// match reports the first signature equal to host or a parent domain of it.
func match(host string) (signature, bool) {
	host = strings.TrimSuffix(host, ".")
	for _, sig := range signatures {
		if host == sig.host || strings.HasSuffix(host, "."+sig.host) {
			return sig, true
		}
	}
	return signature{}, false
}
