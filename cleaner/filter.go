package cleaner

import "github.com/PuerkitoBio/goquery"

// nonContentSelector matches elements whose text never renders.
const nonContentSelector = "script, style, noscript, template"

// StripNonContent removes non-rendering elements from doc in place so that
// Selection.Text matches what a browser's innerText would report. It returns
// the number of elements removed.
func StripNonContent(doc *goquery.Document) int {
	sel := doc.Find(nonContentSelector)
	n := sel.Length()
	sel.Remove()
	return n
}
