package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/mirror/cleaner"
)

// DocumentPage is a Page over a static HTML document. It backs the http
// fetch mode and strategy tests.
type DocumentPage struct {
	raw string
	doc *goquery.Document
}

// NewDocumentPage parses rawHTML into a queryable page. HTML returns the
// markup unchanged; element queries see the document without scripts and
// styles.
func NewDocumentPage(rawHTML string) (*DocumentPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	cleaner.StripNonContent(doc)
	return &DocumentPage{raw: rawHTML, doc: doc}, nil
}

func (p *DocumentPage) find(selector string) (*goquery.Selection, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", selector, err)
	}
	sel := p.doc.FindMatcher(m)
	if sel.Length() == 0 {
		return nil, ErrNotFound
	}
	return sel, nil
}

func (p *DocumentPage) HTML(ctx context.Context) (string, error) {
	return p.raw, nil
}

func (p *DocumentPage) Text(ctx context.Context, selector string) (string, error) {
	sel, err := p.find(selector)
	if err != nil {
		return "", err
	}
	return sel.First().Text(), nil
}

func (p *DocumentPage) InnerHTML(ctx context.Context, selector string) (string, error) {
	sel, err := p.find(selector)
	if err != nil {
		return "", err
	}
	return sel.First().Html()
}

func (p *DocumentPage) Attr(ctx context.Context, selector, name string) (string, error) {
	sel, err := p.find(selector)
	if err != nil {
		return "", err
	}
	v, ok := sel.First().Attr(name)
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (p *DocumentPage) Attrs(ctx context.Context, selector, name string) ([]string, error) {
	sel, err := p.find(selector)
	if err != nil {
		return nil, err
	}
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(name); ok {
			out = append(out, v)
		}
	})
	return out, nil
}
