package browser

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	tls "github.com/refraction-networking/utls"
	"github.com/use-agent/mirror/extractor"
	"github.com/use-agent/mirror/models"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
)

// acceptEncoding matches what Chrome advertises. Setting it by hand turns
// off the transport's transparent gzip, so bodies are decoded here.
const acceptEncoding = "gzip, deflate, br"

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 10 << 20

// chromeH1Spec is a Chrome-like ClientHello with ALPN forced to http/1.1,
// since http.Transport cannot speak h2 over a utls connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// HTTPBrowser serves fetch_mode=http: one GET with a Chrome TLS
// fingerprint, parsed into a static document. No scripts run, so viewport
// and init scripts are accepted and ignored.
type HTTPBrowser struct {
	transport http.RoundTripper
}

// NewHTTPBrowser builds the shared utls transport.
func NewHTTPBrowser() *HTTPBrowser {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2:   false,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPBrowser{transport: transport}
}

func (b *HTTPBrowser) Name() string { return "http" }

func (b *HTTPBrowser) NewSession(ctx context.Context) (Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	empty, err := extractor.NewDocumentPage("")
	if err != nil {
		return nil, err
	}
	return &httpSession{
		client: &http.Client{
			Transport: b.transport,
			Jar:       jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		jar:     jar,
		headers: map[string]string{},
		page:    empty,
	}, nil
}

func (b *HTTPBrowser) Close() error {
	if t, ok := b.transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}

type httpSession struct {
	client  *http.Client
	jar     *cookiejar.Jar
	cookies []models.CookieParam
	headers map[string]string
	page    *extractor.DocumentPage
}

func (s *httpSession) SetCookies(ctx context.Context, cookies []models.CookieParam) error {
	s.cookies = append(s.cookies, cookies...)
	return nil
}

func (s *httpSession) SetViewport(ctx context.Context, width, height int) error { return nil }

func (s *httpSession) SetHeaders(ctx context.Context, headers map[string]string) error {
	for k, v := range headers {
		s.headers[k] = v
	}
	return nil
}

func (s *httpSession) AddInitScript(ctx context.Context, js string) error { return nil }

func (s *httpSession) Navigate(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	s.installCookies(u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept-Encoding", acceptEncoding)
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if ct != "" && !isHTMLContentType(ct) {
		return fmt.Errorf("non-html content-type %q", ct)
	}

	decoded, err := decodeBody(resp)
	if err != nil {
		return err
	}
	defer decoded.Close()

	reader, err := charset.NewReader(io.LimitReader(decoded, maxBodyBytes), ct)
	if err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	page, err := extractor.NewDocumentPage(string(body))
	if err != nil {
		return err
	}
	s.page = page
	return nil
}

// installCookies hands the configured cookies to the jar for u. The jar
// drops cookies whose domain does not cover u's host.
func (s *httpSession) installCookies(u *url.URL) {
	if len(s.cookies) == 0 {
		return
	}
	jarCookies := make([]*http.Cookie, 0, len(s.cookies))
	for _, c := range s.cookies {
		jarCookies = append(jarCookies, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: strings.TrimPrefix(c.Domain, "."),
			Path:   c.Path,
		})
	}
	s.jar.SetCookies(u, jarCookies)
}

func (s *httpSession) WaitFor(ctx context.Context, selector string) error {
	_, err := s.page.Text(ctx, selector)
	return err
}

func (s *httpSession) Page() extractor.Page { return s.page }

func (s *httpSession) Close() error { return nil }

// decodeBody unwraps the response's Content-Encoding.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
		return io.NopCloser(resp.Body), nil
	case "gzip":
		r, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		return r, nil
	case "deflate":
		r, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("deflate body: %w", err)
		}
		return r, nil
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	default:
		return nil, fmt.Errorf("unsupported content-encoding %q", enc)
	}
}

// isHTMLContentType returns true if the content-type header looks like HTML.
func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
