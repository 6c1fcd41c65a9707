package engine

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML parses an HTML document for selector based extraction.
func ParseHTML(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, Parsef("parsing html: %v", err)
	}
	return doc, nil
}

// SelectText returns the trimmed text of the first node matching
// selector, or "" when nothing matches.
func SelectText(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

// SelectAttr returns the named attribute of the first node matching
// selector, or "" when the node or attribute is missing.
func SelectAttr(doc *goquery.Document, selector, attr string) string {
	v, _ := doc.Find(selector).First().Attr(attr)
	return strings.TrimSpace(v)
}

// SelectAllText returns the trimmed text of every node matching
// selector, skipping empty entries.
func SelectAllText(doc *goquery.Document, selector string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// SelectAllAttr returns the named attribute of every node matching
// selector, skipping nodes without it.
func SelectAllAttr(doc *goquery.Document, selector, attr string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	})
	return out
}

// ParseItems applies parse to every node matching selector
// concurrently and returns the results in document order. Nodes for
// which parse reports false are dropped.
func ParseItems[T any](doc *goquery.Document, selector string, parse func(*goquery.Selection) (T, bool)) []T {
	sel := doc.Find(selector)
	type slot struct {
		val T
		ok  bool
	}
	slots := make([]slot, sel.Length())

	var wg sync.WaitGroup
	sel.Each(func(i int, s *goquery.Selection) {
		wg.Add(1)
		go func(i int, s *goquery.Selection) {
			defer wg.Done()
			v, ok := parse(s)
			slots[i] = slot{val: v, ok: ok}
		}(i, s)
	})
	wg.Wait()

	out := make([]T, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.val)
		}
	}
	return out
}
