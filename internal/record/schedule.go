package record

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	uhrRe        = regexp.MustCompile(`(?i)uhr`)
	dashReplacer = strings.NewReplacer("–", "-", "—", "-")
	separatorRe  = regexp.MustCompile(`(?i)\s*(?:,|;|/|\bund\b|\band\b|\+)\s*`)
	rangeRe      = regexp.MustCompile(`(\d{1,2}:\d{2})\s*-\s*(\d{1,2}:\d{2})`)
)

// ParseWindows turns a free text like "08:00-12:00, 14:00–16:00 Uhr" into
// time windows. Segments without a time range are dropped as long as at
// least one segment matched. If none matched, the whole text is kept as a
// single note-only window. Empty text yields an empty list.
func ParseWindows(text string) []TimeWindow {
	text = Norm(text)
	if text == "" {
		return []TimeWindow{}
	}
	windows := parseBounded(text)
	if len(windows) == 0 {
		windows = append(windows, noteWindow(text))
	}
	return windows
}

// DayWindows builds the windows of one schedule row. The row note is
// attached to every bounded window. A row that has no parsable range but
// some text becomes one note-only window holding "time text | note".
func DayWindows(timeText, note string) []TimeWindow {
	timeText, note = Norm(timeText), Norm(note)
	windows := parseBounded(timeText)
	if len(windows) > 0 {
		if note != "" {
			for i := range windows {
				n := note
				windows[i].Note = &n
			}
		}
		return windows
	}
	if timeText == "" && note == "" {
		return []TimeWindow{}
	}
	return []TimeWindow{noteWindow(joinNonEmpty(" | ", timeText, note))}
}

func parseBounded(text string) []TimeWindow {
	s := Norm(dashReplacer.Replace(uhrRe.ReplaceAllString(text, "")))
	windows := []TimeWindow{}
	if s == "" {
		return windows
	}
	for _, seg := range separatorRe.Split(s, -1) {
		seg = Norm(seg)
		if seg == "" {
			continue
		}
		m := rangeRe.FindStringSubmatch(seg)
		if m == nil {
			continue
		}
		from, okFrom := ParseMinute(m[1])
		to, okTo := ParseMinute(m[2])
		if !okFrom || !okTo {
			continue
		}
		windows = append(windows, TimeWindow{From: &from, To: &to})
	}
	return windows
}

func noteWindow(note string) TimeWindow {
	return TimeWindow{Note: &note}
}

// MinuteOfDay returns the minute of the day of t in t's location.
func MinuteOfDay(t time.Time) Minute {
	return Minute(t.Hour()*60 + t.Minute())
}

// IsOpenNow reports whether some bounded window of t's weekday contains t.
// Windows are half open, the end minute itself is closed.
func IsOpenNow(r *Record, t time.Time) bool {
	cur := MinuteOfDay(t)
	for _, w := range *r.Hours.Slot(t.Weekday()) {
		if !w.Bounded() {
			continue
		}
		if *w.From <= cur && cur < *w.To {
			return true
		}
	}
	return false
}

// FormatHours renders the whole week, one "Mo: ..." line per day that has
// windows.
func FormatHours(r *Record) string {
	lines := []string{}
	for _, d := range Weekdays {
		windows := *r.Hours.Slot(d)
		if len(windows) == 0 {
			continue
		}
		parts := make([]string, 0, len(windows))
		for _, w := range windows {
			s := w.String()
			if s == "" {
				s = "(unknown)"
			}
			parts = append(parts, s)
		}
		lines = append(lines, ShortDayLabel(d)+": "+strings.Join(parts, " | "))
	}
	return strings.Join(lines, "\n")
}

var shortDayLabels = map[time.Weekday]string{
	time.Monday:    "Mo",
	time.Tuesday:   "Di",
	time.Wednesday: "Mi",
	time.Thursday:  "Do",
	time.Friday:    "Fr",
	time.Saturday:  "Sa",
	time.Sunday:    "So",
}

// ShortDayLabel returns the two letter German label of d.
func ShortDayLabel(d time.Weekday) string {
	if l, ok := shortDayLabels[d]; ok {
		return l
	}
	return strconv.Itoa(int(d))
}
