package view

import (
	"context"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/kv-thuringen/kvt-crawler/internal/clock"
	"github.com/kv-thuringen/kvt-crawler/internal/date"
	"github.com/kv-thuringen/kvt-crawler/internal/record"
	"github.com/kv-thuringen/kvt-crawler/internal/utils"
	"github.com/rivo/tview"
)

var columns = []string{"Name", "Phone", "Address", "Offerings", "Status", "Hours", "Now"}

// Viewer is the interactive table over the collection. Enter on a row
// sets its status, F2 toggles the open-now filter, F3 cycles the status
// filter, Tab switches between search and table and Esc quits.
type Viewer struct {
	coll   *record.Collection
	clock  clock.Clock
	locale string

	ctx    context.Context
	recs   []*record.Record
	shown  []*record.Record
	filter Filter

	app    *tview.Application
	pages  *tview.Pages
	search *tview.InputField
	table  *tview.Table
	info   *tview.TextView
}

func New(coll *record.Collection, clk clock.Clock, locale string) *Viewer {
	return &Viewer{
		coll:   coll,
		clock:  clk,
		locale: locale,
		filter: Filter{Status: StatusAll},
	}
}

// Run loads the collection and shows it until the operator quits.
func (v *Viewer) Run(ctx context.Context) error {
	store, err := v.coll.Load(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	v.ctx = ctx
	v.recs = store.Records()
	SortByName(v.recs)

	v.app = tview.NewApplication()
	v.search = tview.NewInputField().SetLabel("Search: ").SetChangedFunc(func(text string) {
		v.filter.Text = text
		v.render()
	})
	v.search.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			v.app.SetFocus(v.table)
		}
	})
	v.table = tview.NewTable().SetBorders(false).SetFixed(1, 0).SetSelectable(true, false)
	v.table.SetSelectedFunc(func(row, column int) {
		if row > 0 && row <= len(v.shown) {
			v.showStatusDialog(v.shown[row-1])
		}
	})
	v.info = tview.NewTextView().SetDynamicColors(true)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(v.search, 1, 0, true).
		AddItem(v.table, 0, 1, false).
		AddItem(v.info, 1, 0, false)
	v.pages = tview.NewPages().AddPage("main", layout, true, true)

	v.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if v.pages.HasPage("status") {
			return event
		}
		switch event.Key() {
		case tcell.KeyEscape:
			v.app.Stop()
			return nil
		case tcell.KeyTab:
			if v.search.HasFocus() {
				v.app.SetFocus(v.table)
			} else {
				v.app.SetFocus(v.search)
			}
			return nil
		case tcell.KeyF2:
			v.filter.OpenNow = !v.filter.OpenNow
			v.render()
			return nil
		case tcell.KeyF3:
			v.filter.Status = nextStatusFilter(v.filter.Status)
			v.render()
			return nil
		}
		return event
	})

	v.render()
	go func() {
		<-ctx.Done()
		v.app.Stop()
	}()
	return v.app.SetRoot(v.pages, true).SetFocus(v.search).Run()
}

func nextStatusFilter(current string) string {
	filters := StatusFilters()
	for i, f := range filters {
		if f == current {
			return filters[(i+1)%len(filters)]
		}
	}
	return StatusAll
}

func (v *Viewer) render() {
	now := v.clock.Now()
	v.shown = Apply(v.recs, v.filter, now)

	v.table.Clear()
	for c, name := range columns {
		v.table.SetCell(0, c, tview.NewTableCell(name).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}
	for i, r := range v.shown {
		row := i + 1
		cells := []string{
			r.Name,
			r.Phone,
			r.Address,
			utils.ShortenString(strings.Join(r.Offerings, " | "), 40),
			v.statusText(r),
			utils.ShortenString(strings.ReplaceAll(record.FormatHours(r), "\n", "; "), 60),
			"",
		}
		if record.IsOpenNow(r, now) {
			cells[6] = "NOW"
		}
		for c, text := range cells {
			cell := tview.NewTableCell(tview.Escape(text)).SetMaxWidth(60)
			if c == 6 {
				cell.SetTextColor(tcell.ColorGreen)
			}
			v.table.SetCell(row, c, cell)
		}
	}

	msg := fmt.Sprintf("%d entries", len(v.recs))
	if v.filter.Active() {
		msg += fmt.Sprintf(", [green]%d matches[-]", len(v.shown))
	}
	open := "off"
	if v.filter.OpenNow {
		open = "on"
	}
	msg += fmt.Sprintf(" | F2 open now: %s | F3 status: %s | Enter: set status | Esc: quit",
		open, tview.Escape(StatusFilterLabel(v.filter.Status)))
	v.info.SetText(msg)
}

func (v *Viewer) statusText(r *record.Record) string {
	label := record.StatusLabel(r)
	if label == "" {
		return ""
	}
	if note := record.StatusNote(r); note != "" {
		label += " (" + note + ")"
	}
	if r.StatusUpdatedAt != nil {
		label += ", " + date.Format(r.StatusUpdatedAt.In(v.clock.Now().Location()), date.DisplayLayout, v.locale)
	}
	return label
}

// showStatusDialog lets the operator pick a status and a note for r. The
// current note is the default, so switching the code keeps it.
func (v *Viewer) showStatusDialog(r *record.Record) {
	code := ""
	if r.Status != nil {
		code = r.Status.Code
	}
	options := append([]string{""}, statusCodes()...)
	labels := []string{"(no status)"}
	current := 0
	for i, c := range options[1:] {
		o, _ := record.LookupStatusOption(c)
		labels = append(labels, o.Label)
		if c == code {
			current = i + 1
		}
	}

	form := tview.NewForm()
	form.AddDropDown("Status", labels, current, nil).
		AddInputField("Note", record.StatusNote(r), 60, nil, nil).
		AddButton("Save", func() {
			idx, _ := form.GetFormItemByLabel("Status").(*tview.DropDown).GetCurrentOption()
			note := form.GetFormItemByLabel("Note").(*tview.InputField).GetText()
			v.saveStatus(r, options[idx], note)
			v.closeDialog()
		}).
		AddButton("Cancel", v.closeDialog)
	form.SetBorder(true).SetTitle(" " + tview.Escape(r.Name) + " ")
	form.SetCancelFunc(v.closeDialog)

	modal := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(form, 11, 1, true).
			AddItem(nil, 0, 1, false), 80, 1, true).
		AddItem(nil, 0, 1, false)
	v.pages.AddPage("status", modal, true, true)
	v.app.SetFocus(form)
}

func (v *Viewer) closeDialog() {
	v.pages.RemovePage("status")
	v.app.SetFocus(v.table)
}

func (v *Viewer) saveStatus(r *record.Record, code, note string) {
	var st *record.Status
	if code != "" {
		o, _ := record.LookupStatusOption(code)
		st = o.Status(note)
	}
	updated, err := v.coll.SetStatus(v.ctx, r.ID, st)
	if err != nil {
		v.info.SetText(fmt.Sprintf("[red]failed to save status: %s[-]", tview.Escape(err.Error())))
		return
	}
	for i, rec := range v.recs {
		if rec.ID == updated.ID {
			v.recs[i] = updated
		}
	}
	v.render()
}

func statusCodes() []string {
	out := make([]string, 0, len(record.StatusOptions))
	for _, o := range record.StatusOptions {
		out = append(out, o.Code)
	}
	return out
}
