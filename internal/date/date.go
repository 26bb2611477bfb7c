// Package date maps the weekday labels found on detail pages to weekdays
// and formats timestamps for display.
package date

import (
	"strings"
	"time"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/goodsign/monday"
)

// maxLabelDistance is the largest edit distance at which a misspelled long
// day name is still recognized, eg. "Mittwch".
const maxLabelDistance = 2

// WeekdayFromLabel recognizes a weekday label such as "Montag", "Mo.",
// "Mo:" or "Monday". Exact matches on the short and long tables win; after
// that the closest long name within maxLabelDistance is taken if it is
// unambiguous.
func WeekdayFromLabel(label string) (time.Weekday, bool) {
	l := cleanLabel(label)
	if l == "" {
		return time.Sunday, false
	}
	for _, lm := range longDayNames {
		if d, ok := lm.namesMap[l]; ok {
			return d, true
		}
	}
	for _, lm := range shortDayNames {
		if d, ok := lm.namesMap[l]; ok {
			return d, true
		}
	}
	if len([]rune(l)) < 4 {
		return time.Sunday, false
	}

	best, bestDist, tie := time.Sunday, maxLabelDistance+1, false
	for _, lm := range longDayNames {
		for name, d := range lm.namesMap {
			dist := levenshtein.ComputeDistance(l, name)
			switch {
			case dist < bestDist:
				best, bestDist, tie = d, dist, false
			case dist == bestDist && d != best:
				tie = true
			}
		}
	}
	if bestDist > maxLabelDistance || tie {
		return time.Sunday, false
	}
	return best, true
}

func cleanLabel(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	return strings.TrimRightFunc(l, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// DisplayLayout is the layout used for timestamps shown to the user.
const DisplayLayout = "Mon, 02.01.2006 15:04"

// Format renders t in the given locale, eg. "de_DE". Unknown locales fall
// back to en_US.
func Format(t time.Time, layout, locale string) string {
	var loc monday.Locale = monday.LocaleEnUS
	if _, ok := localeLabels[locale]; ok {
		loc = monday.Locale(locale)
	}
	return monday.Format(t, layout, loc)
}

// localeLabels lists the locales timestamps can be displayed in.
var localeLabels = map[string]string{
	"de_DE": "Deutsch",
	"en_US": "English",
}

// SupportedLocale reports whether timestamps can be displayed in locale.
func SupportedLocale(locale string) bool {
	_, ok := localeLabels[locale]
	return ok
}
