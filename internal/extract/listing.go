package extract

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DetailLinks returns the absolute urls of all anchors matching selector,
// in document order and without duplicates. Relative hrefs are resolved
// against base.
func DetailLinks(doc *goquery.Document, base *url.URL, selector string) []string {
	seen := map[string]bool{}
	links := []string{}
	doc.Find(selector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		if base != nil {
			u = base.ResolveReference(u)
		}
		u.Fragment = ""
		abs := u.String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})
	return links
}

// PageControl is one page button of the pagination form.
type PageControl struct {
	Number int
	Active bool
	// Selector addresses exactly this control, for clicking it.
	Selector string
}

// Pagination reads the page buttons. Buttons whose value is not a page
// number are ignored.
func Pagination(doc *goquery.Document, cfg ListingConfig) []PageControl {
	controls := []PageControl{}
	doc.Find(cfg.PaginationSelector).Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("value")
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return
		}
		controls = append(controls, PageControl{
			Number:   n,
			Active:   s.HasClass(cfg.ActiveClass),
			Selector: ControlSelector(cfg, n),
		})
	})
	return controls
}

// ControlSelector narrows the pagination selector to the button of page n.
func ControlSelector(cfg ListingConfig, n int) string {
	return cfg.PaginationSelector + "[value='" + strconv.Itoa(n) + "']"
}
