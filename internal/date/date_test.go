package date

import (
	"testing"
	"time"
)

func TestWeekdayFromLabel(t *testing.T) {
	tests := []struct {
		label    string
		expected time.Weekday
		ok       bool
	}{
		{"Montag", time.Monday, true},
		{"  montag: ", time.Monday, true},
		{"Di.", time.Tuesday, true},
		{"Mittwch", time.Wednesday, true},
		{"Donnerstag", time.Thursday, true},
		{"Fr", time.Friday, true},
		{"Samstag", time.Saturday, true},
		{"Sonnabend", time.Saturday, true},
		{"So", time.Sunday, true},
		{"Wednesday", time.Wednesday, true},
		{"Feiertag", time.Sunday, false},
		{"", time.Sunday, false},
		{"xy", time.Sunday, false},
	}
	for _, tt := range tests {
		d, ok := WeekdayFromLabel(tt.label)
		if ok != tt.ok {
			t.Errorf("WeekdayFromLabel(%q) ok = %v; want %v", tt.label, ok, tt.ok)
			continue
		}
		if ok && d != tt.expected {
			t.Errorf("WeekdayFromLabel(%q) = %v; want %v", tt.label, d, tt.expected)
		}
	}
}

func TestFormat(t *testing.T) {
	ts := time.Date(2024, 3, 4, 9, 5, 0, 0, time.UTC)
	if got := Format(ts, DisplayLayout, "de_DE"); got != "Mo, 04.03.2024 09:05" {
		t.Fatalf("unexpected german format %q", got)
	}
	if got := Format(ts, DisplayLayout, "en_US"); got != "Mon, 04.03.2024 09:05" {
		t.Fatalf("unexpected english format %q", got)
	}
	if got := Format(ts, DisplayLayout, "xx_XX"); got != "Mon, 04.03.2024 09:05" {
		t.Fatalf("unexpected fallback format %q", got)
	}
}
