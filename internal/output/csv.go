package output

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/kv-thuringen/kvt-crawler/internal/record"
)

// CSVColumns is the fixed column set of the csv export.
var CSVColumns = []string{
	"name", "phone", "specialty", "facility", "street", "cityLine", "address",
	"offerings",
	"status_label", "status_note", "statusUpdatedAt",
	"hours_mo", "hours_di", "hours_mi", "hours_do", "hours_fr", "hours_sa", "hours_so",
	"sourceUrl", "scrapedAt",
}

const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// EncodeCSV writes one line per record in id order. Fields are quoted only
// if they contain a comma, a quote or a line break.
func EncodeCSV(w io.Writer, s *record.Store) error {
	bw := bufio.NewWriter(w)
	writeCSVLine(bw, CSVColumns)
	for _, r := range s.Records() {
		writeCSVLine(bw, csvRow(r))
	}
	return bw.Flush()
}

func csvRow(r *record.Record) []string {
	row := []string{
		r.Name, r.Phone, r.Specialty, r.Facility, r.Street, r.CityLine, r.Address,
		strings.Join(r.Offerings, " | "),
		record.StatusLabel(r), record.StatusNote(r), isoTime(r.StatusUpdatedAt),
	}
	for _, d := range record.Weekdays {
		row = append(row, record.FormatDay(*r.Hours.Slot(d)))
	}
	return append(row, r.SourceURL, isoTime(&r.ScrapedAt))
}

func isoTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(isoLayout)
}

func writeCSVLine(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteString(csvEscape(f))
	}
	w.WriteByte('\n')
}

func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
