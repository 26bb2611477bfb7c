package output

import (
	"io"
	"time"

	"github.com/kv-thuringen/kvt-crawler/internal/date"
	"github.com/kv-thuringen/kvt-crawler/internal/record"
	"github.com/kv-thuringen/kvt-crawler/internal/utils"
	"github.com/olekukonko/tablewriter"
)

// WriteSummary renders one table row per record. now decides the open
// column, locale the language of the status timestamps.
func WriteSummary(w io.Writer, recs []*record.Record, now time.Time, locale string) error {
	table := tablewriter.NewWriter(w)
	table.Header("Name", "Phone", "City", "Status", "Updated", "Open")
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		updated := ""
		if r.StatusUpdatedAt != nil {
			updated = date.Format(r.StatusUpdatedAt.In(now.Location()), date.DisplayLayout, locale)
		}
		open := ""
		if record.IsOpenNow(r, now) {
			open = "now"
		}
		rows = append(rows, []string{
			utils.ShortenString(r.Name, 40),
			r.Phone,
			r.CityLine,
			utils.ShortenString(record.StatusLabel(r), 30),
			updated,
			open,
		})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// WriteKeyValues renders a two column table.
func WriteKeyValues(w io.Writer, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header("Key", "Value")
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
