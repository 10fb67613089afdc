package cleaner

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestStripNonContent(t *testing.T) {
	html := `<html><head><style>p{color:red}</style></head><body>
<p>visible</p><script>var hidden = 1;</script><noscript>enable js</noscript>
<template><p>tpl</p></template></body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	if n := StripNonContent(doc); n != 4 {
		t.Errorf("removed %d elements, want 4", n)
	}
	if got := CleanText(doc.Find("body").Text()); got != "visible" {
		t.Errorf("body text = %q, want %q", got, "visible")
	}
}
