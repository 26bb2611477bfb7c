// Package record defines the collected records, the durable collection that
// stores them and the weekly schedule model used to answer "open now".
package record

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
)

// Minute is a minute of the day, 0 is midnight. On the wire it is written
// as "HH:MM".
type Minute int

func (m Minute) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

func (m Minute) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Minute) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int
		if errN := json.Unmarshal(b, &n); errN != nil {
			return fmt.Errorf("minute must be a \"HH:MM\" string or a number: %s", b)
		}
		*m = Minute(n)
		return nil
	}
	v, ok := ParseMinute(s)
	if !ok {
		return fmt.Errorf("invalid time of day %q", s)
	}
	*m = v
	return nil
}

var hhmmRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ParseMinute parses "H:MM" or "HH:MM". 24:00 is accepted as end of day.
func ParseMinute(s string) (Minute, bool) {
	m := hhmmRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if mm > 59 || h > 24 || (h == 24 && mm != 0) {
		return 0, false
	}
	return Minute(h*60 + mm), true
}

// TimeWindow is one opening window of a weekday. A window without bounds
// only carries a note, eg. "nach Vereinbarung".
type TimeWindow struct {
	From *Minute `json:"from"`
	To   *Minute `json:"to"`
	Note *string `json:"note"`
}

func (w TimeWindow) Bounded() bool {
	return w.From != nil && w.To != nil
}

// String renders the window as "HH:MM-HH:MM (note)" or the note alone.
func (w TimeWindow) String() string {
	note := ""
	if w.Note != nil {
		note = *w.Note
	}
	if w.Bounded() {
		if note != "" {
			return fmt.Sprintf("%s-%s (%s)", w.From, w.To, note)
		}
		return fmt.Sprintf("%s-%s", w.From, w.To)
	}
	return note
}

// Week holds the windows of each weekday.
type Week struct {
	Mon []TimeWindow `json:"mon"`
	Tue []TimeWindow `json:"tue"`
	Wed []TimeWindow `json:"wed"`
	Thu []TimeWindow `json:"thu"`
	Fri []TimeWindow `json:"fri"`
	Sat []TimeWindow `json:"sat"`
	Sun []TimeWindow `json:"sun"`
}

// Weekdays lists the days in display order, Monday first.
var Weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// Slot returns a pointer to the windows of day d.
func (w *Week) Slot(d time.Weekday) *[]TimeWindow {
	switch d {
	case time.Monday:
		return &w.Mon
	case time.Tuesday:
		return &w.Tue
	case time.Wednesday:
		return &w.Wed
	case time.Thursday:
		return &w.Thu
	case time.Friday:
		return &w.Fri
	case time.Saturday:
		return &w.Sat
	default:
		return &w.Sun
	}
}

// FormatDay joins the rendered windows of one day with " | ".
func FormatDay(windows []TimeWindow) string {
	parts := make([]string, 0, len(windows))
	for _, w := range windows {
		parts = append(parts, w.String())
	}
	return strings.Join(parts, " | ")
}

// Status is the manually maintained state of a record, eg. after a phone call.
type Status struct {
	Code  string  `json:"code"`
	Label string  `json:"label"`
	Note  *string `json:"note"`
}

// Record is one collected subject.
type Record struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`

	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Specialty string `json:"specialty,omitempty"`
	Facility  string `json:"facility,omitempty"`
	Street    string `json:"street,omitempty"`
	CityLine  string `json:"cityLine,omitempty"`
	Address   string `json:"address,omitempty"`

	Offerings []string `json:"offerings"`
	Hours     Week     `json:"hours"`

	Status          *Status    `json:"status"`
	StatusUpdatedAt *time.Time `json:"statusUpdatedAt"`

	SourceURL string    `json:"sourceUrl,omitempty"`
	ScrapedAt time.Time `json:"scrapedAt"`
}

// DayText is one row of a schedule table as extracted from a page.
type DayText struct {
	Label    string
	TimeText string
	Note     string
}

// RawFields is what an extractor produces for one detail page. An empty
// Name means the extraction failed.
type RawFields struct {
	Name      string
	Phone     string
	Specialty string
	Facility  string
	Street    string
	CityLine  string
	Offerings []string
	Schedule  map[time.Weekday][]DayText
	SourceURL string
}

// Norm collapses all whitespace runs to single spaces and trims the result.
func Norm(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// IDFromName derives the record id from a display name.
func IDFromName(name string) string {
	id := nonWordRe.ReplaceAllString(strings.ToLower(Norm(name)), "_")
	return strings.Trim(id, "_")
}

// Fingerprint hashes the normalized name, phone and address. It is a
// signature for display and export, not an identity.
func Fingerprint(r *Record) string {
	s := strings.Join([]string{Norm(r.Name), Norm(r.Phone), Norm(r.Address)}, "|")
	var h uint32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + uint32(c)
	}
	return "h" + strconv.FormatUint(uint64(h), 16)
}

// newRecord builds a record from freshly extracted fields.
func newRecord(raw RawFields, now time.Time) *Record {
	name := Norm(raw.Name)
	r := &Record{
		ID:        IDFromName(name),
		Name:      name,
		Phone:     Norm(raw.Phone),
		Specialty: Norm(raw.Specialty),
		Facility:  Norm(raw.Facility),
		Street:    Norm(raw.Street),
		CityLine:  Norm(raw.CityLine),
		Offerings: []string{},
		SourceURL: raw.SourceURL,
		ScrapedAt: now,
	}
	r.Address = joinNonEmpty(", ", r.Street, r.CityLine)
	for _, o := range raw.Offerings {
		if o = Norm(o); o != "" {
			r.Offerings = append(r.Offerings, o)
		}
	}
	for _, d := range Weekdays {
		slot := r.Hours.Slot(d)
		*slot = []TimeWindow{}
		for _, row := range raw.Schedule[d] {
			*slot = append(*slot, DayWindows(row.TimeText, row.Note)...)
		}
	}
	r.Fingerprint = Fingerprint(r)
	return r
}

// migrate fills schema fields a stored record lacks with their empty state.
// Populated fields are never touched. It reports whether anything changed.
func (r *Record) migrate() bool {
	changed := false
	if r.Offerings == nil {
		r.Offerings = []string{}
		changed = true
	}
	for _, d := range Weekdays {
		if slot := r.Hours.Slot(d); *slot == nil {
			*slot = []TimeWindow{}
			changed = true
		}
	}
	return changed
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
