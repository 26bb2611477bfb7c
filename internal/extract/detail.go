// Package extract turns detail and listing pages into plain values.
package extract

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kv-thuringen/kvt-crawler/internal/date"
	"github.com/kv-thuringen/kvt-crawler/internal/record"
	"golang.org/x/net/html"
)

// DetailFromHTML parses r and extracts the fields of a detail page.
func DetailFromHTML(r io.Reader, sourceURL string) (record.RawFields, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return record.RawFields{}, fmt.Errorf("failed to parse detail page %s: %w", sourceURL, err)
	}
	return Detail(doc, sourceURL)
}

// Detail extracts the fields of a detail page. A page without a heading
// yields record.ErrExtractionIncomplete together with whatever else could
// be read.
func Detail(doc *goquery.Document, sourceURL string) (record.RawFields, error) {
	raw := record.RawFields{
		Name:      name(doc),
		Phone:     phone(doc),
		Specialty: specialty(doc),
		Offerings: offerings(doc),
		Schedule:  schedule(doc),
		SourceURL: sourceURL,
	}
	raw.Facility, raw.Street, raw.CityLine = facility(doc)
	if raw.Name == "" {
		return raw, fmt.Errorf("%w: no heading on %s", record.ErrExtractionIncomplete, sourceURL)
	}
	return raw, nil
}

func text(s *goquery.Selection) string {
	return record.Norm(s.Text())
}

func name(doc *goquery.Document) string {
	h := doc.Find(".resultdetail h1")
	if h.Length() == 0 {
		h = doc.Find("h1")
	}
	return text(h.First())
}

// heading finds the first tag element whose normalized text equals title,
// ignoring case.
func heading(doc *goquery.Document, tag, title string) *goquery.Selection {
	return doc.Find(tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.EqualFold(text(s), title)
	}).First()
}

// sibling returns the element directly following s if it is a tag element,
// otherwise the first tag element inside s's parent when fallback is set.
func sibling(s *goquery.Selection, tag string, fallback bool) *goquery.Selection {
	next := s.Next()
	if next.Is(tag) || !fallback {
		return next.Filter(tag)
	}
	return s.Parent().Find(tag).First()
}

func phone(doc *goquery.Document) string {
	h := heading(doc, "h3", "Telefon")
	if h.Length() == 0 {
		return ""
	}
	return text(sibling(h, "p", true))
}

var specialtyPrefixRe = regexp.MustCompile(`(?i)^fachgebiet:\s*`)

func specialty(doc *goquery.Document) string {
	p := doc.Find(".resultdetail p").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.HasPrefix(strings.ToLower(text(s)), "fachgebiet:")
	}).First()
	if p.Length() == 0 {
		return ""
	}
	return record.Norm(specialtyPrefixRe.ReplaceAllString(text(p), ""))
}

// facility reads the paragraph after the "Einrichtung" heading. Its lines
// are facility, street and city line in this order.
func facility(doc *goquery.Document) (string, string, string) {
	h := heading(doc, "h3", "Einrichtung")
	if h.Length() == 0 {
		return "", "", ""
	}
	p := sibling(h, "p", false)
	if p.Length() == 0 {
		return "", "", ""
	}
	lines := []string{}
	for _, l := range strings.Split(innerText(p.Nodes[0]), "\n") {
		if l = record.Norm(l); l != "" {
			lines = append(lines, l)
		}
	}
	for len(lines) < 3 {
		lines = append(lines, "")
	}
	return lines[0], lines[1], lines[2]
}

var offeringsMarkerRe = regexp.MustCompile(`(?i)leistungsangebote\s*:`)

func offerings(doc *goquery.Document) []string {
	var ul *goquery.Selection
	if h := heading(doc, "h3", "Leistungsangebote"); h.Length() > 0 {
		ul = sibling(h, "ul", true)
	}
	if ul == nil || ul.Length() == 0 {
		marker := doc.Find(".resultdetail p").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return offeringsMarkerRe.MatchString(text(s))
		}).First()
		if marker.Length() > 0 {
			ul = sibling(marker, "ul", true)
		}
	}
	out := []string{}
	if ul == nil {
		return out
	}
	ul.Find("li").Each(func(_ int, li *goquery.Selection) {
		if t := text(li); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// schedule reads the rows of the table following the "Sprechzeiten"
// heading: day label, time text and an optional note. Rows with an
// unknown day label are skipped.
func schedule(doc *goquery.Document) map[time.Weekday][]record.DayText {
	out := map[time.Weekday][]record.DayText{}
	h := heading(doc, "h3", "Sprechzeiten")
	if h.Length() == 0 {
		return out
	}
	table := sibling(h, "table", false)
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td").Map(func(_ int, td *goquery.Selection) string {
			return text(td)
		})
		if len(cells) == 0 {
			return
		}
		d, ok := date.WeekdayFromLabel(cells[0])
		if !ok {
			return
		}
		row := record.DayText{Label: cells[0]}
		if len(cells) > 1 {
			row.TimeText = cells[1]
		}
		if len(cells) > 2 {
			row.Note = cells[2]
		}
		out[d] = append(out[d], row)
	})
	return out
}

var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "tr": true, "address": true,
	"h1": true, "h2": true, "h3": true, "h4": true,
}

// innerText renders the text of n split into lines the way a browser lays
// it out: <br> and block boundaries become line breaks. Callers normalize
// the spaces within each line.
func innerText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(" " + strings.Join(strings.Fields(n.Data), " ") + " ")
			return
		case html.ElementNode:
			if n.Data == "br" {
				b.WriteString("\n")
				return
			}
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			b.WriteString("\n")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return b.String()
}
