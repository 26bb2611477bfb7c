// Package view shows the collection: a pure filter and sort over records
// and an interactive table on top of it.
package view

import (
	"slices"
	"strings"
	"time"

	"github.com/kv-thuringen/kvt-crawler/internal/record"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Status filter values besides a status code.
const (
	StatusAll  = "ALL"
	StatusAny  = "ANY"
	StatusNone = "NONE"
)

type Filter struct {
	// Text is searched case insensitively in all displayed fields.
	Text    string
	OpenNow bool
	// Status is StatusAll, StatusAny, StatusNone or a status code.
	Status string
}

// Active reports whether f hides anything.
func (f Filter) Active() bool {
	return strings.TrimSpace(f.Text) != "" || f.OpenNow || (f.Status != "" && f.Status != StatusAll)
}

var fold = cases.Fold()

// Apply returns the records matching f at instant now, keeping their order.
func Apply(recs []*record.Record, f Filter, now time.Time) []*record.Record {
	needle := fold.String(strings.TrimSpace(f.Text))
	out := []*record.Record{}
	for _, r := range recs {
		if f.OpenNow && !record.IsOpenNow(r, now) {
			continue
		}
		if !matchStatus(r, f.Status) {
			continue
		}
		if needle != "" && !strings.Contains(haystack(r), needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchStatus(r *record.Record, status string) bool {
	switch status {
	case "", StatusAll:
		return true
	case StatusAny:
		return r.Status != nil
	case StatusNone:
		return r.Status == nil
	default:
		return r.Status != nil && r.Status.Code == status
	}
}

func haystack(r *record.Record) string {
	return fold.String(strings.Join([]string{
		r.Name, r.Phone, r.Address, r.CityLine, r.Street, r.Specialty, r.Facility,
		strings.Join(r.Offerings, " | "),
		record.StatusLabel(r),
		record.StatusNote(r),
		record.FormatHours(r),
	}, " "))
}

// SortByName orders recs by name the way a German phone book does.
func SortByName(recs []*record.Record) {
	c := collate.New(language.German, collate.IgnoreCase)
	slices.SortStableFunc(recs, func(a, b *record.Record) int {
		return c.CompareString(a.Name, b.Name)
	})
}

// StatusFilters lists the filter values in the order they are cycled.
func StatusFilters() []string {
	out := []string{StatusAll, StatusAny, StatusNone}
	for _, o := range record.StatusOptions {
		out = append(out, o.Code)
	}
	return out
}

// StatusFilterLabel names a filter value for display.
func StatusFilterLabel(status string) string {
	switch status {
	case "", StatusAll:
		return "all"
	case StatusAny:
		return "any status"
	case StatusNone:
		return "no status"
	default:
		if o, ok := record.LookupStatusOption(status); ok {
			return o.Label
		}
		return status
	}
}
