package view

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kv-thuringen/kvt-crawler/internal/record"
)

func minute(m int) *record.Minute {
	v := record.Minute(m)
	return &v
}

func names(recs []*record.Record) []string {
	out := []string{}
	for _, r := range recs {
		out = append(out, r.Name)
	}
	return out
}

func testRecords() []*record.Record {
	note := "Rückruf Montag"
	return []*record.Record{
		{
			ID: "zimmer", Name: "Zimmer", Street: "Große Straße 3",
			Hours:  record.Week{Mon: []record.TimeWindow{{From: minute(480), To: minute(720)}}},
			Status: &record.Status{Code: "urlaub", Label: "Urlaub", Note: &note},
		},
		{
			ID: "ahrens", Name: "Ahrens", Offerings: []string{"Videosprechstunde"},
			Hours: record.Week{Mon: []record.TimeWindow{{From: minute(720), To: minute(900)}}},
		},
		{
			ID: "oehler", Name: "Öhler", Specialty: "Kinder- und Jugendlichenpsychotherapie",
			Status: &record.Status{Code: "keine_neuen_patienten", Label: "Keine neuen Patienten"},
		},
		{ID: "bach", Name: "bach"},
	}
}

func TestApply(t *testing.T) {
	monday10 := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{"no filter", Filter{Status: StatusAll}, []string{"Zimmer", "Ahrens", "Öhler", "bach"}},
		{"zero value", Filter{}, []string{"Zimmer", "Ahrens", "Öhler", "bach"}},
		{"open now", Filter{OpenNow: true}, []string{"Zimmer"}},
		{"any status", Filter{Status: StatusAny}, []string{"Zimmer", "Öhler"}},
		{"no status", Filter{Status: StatusNone}, []string{"Ahrens", "bach"}},
		{"status code", Filter{Status: "urlaub"}, []string{"Zimmer"}},
		{"search offering", Filter{Text: "  VIDEO "}, []string{"Ahrens"}},
		{"search note", Filter{Text: "rückruf"}, []string{"Zimmer"}},
		{"search folds sharp s", Filter{Text: "grosse strasse"}, []string{"Zimmer"}},
		{"search hours", Filter{Text: "12:00-15:00"}, []string{"Ahrens"}},
		{"combined", Filter{Text: "jugend", Status: StatusAny}, []string{"Öhler"}},
		{"nothing", Filter{Text: "xyz"}, []string{}},
	}
	for _, tt := range tests {
		got := names(Apply(testRecords(), tt.filter, monday10))
		if diff := cmp.Diff(tt.expected, got); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestFilterActive(t *testing.T) {
	if (Filter{Status: StatusAll}).Active() || (Filter{Text: "  "}).Active() {
		t.Fatalf("empty filters must be inactive")
	}
	if !(Filter{Status: StatusNone}).Active() || !(Filter{OpenNow: true}).Active() {
		t.Fatalf("expected active filters")
	}
}

func TestSortByName(t *testing.T) {
	recs := testRecords()
	SortByName(recs)
	if diff := cmp.Diff([]string{"Ahrens", "bach", "Öhler", "Zimmer"}, names(recs)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestNextStatusFilter(t *testing.T) {
	f := StatusAll
	seen := map[string]bool{}
	for range StatusFilters() {
		seen[f] = true
		f = nextStatusFilter(f)
	}
	if f != StatusAll || len(seen) != 3+len(record.StatusOptions) {
		t.Fatalf("cycling must visit every filter once, ended at %s after %v", f, seen)
	}
	if StatusFilterLabel("urlaub") != "Urlaub" {
		t.Fatalf("unexpected label %s", StatusFilterLabel("urlaub"))
	}
}
