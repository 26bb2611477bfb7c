// Package collect implements the operator commands working on a single
// detail page: storing it and setting its status.
package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kv-thuringen/kvt-crawler/internal/extract"
	"github.com/kv-thuringen/kvt-crawler/internal/fetch"
	"github.com/kv-thuringen/kvt-crawler/internal/operator"
	"github.com/kv-thuringen/kvt-crawler/internal/record"
)

type Collector struct {
	coll    *record.Collection
	fetcher fetch.Fetcher
	op      operator.Interaction
	logger  *slog.Logger
}

func New(coll *record.Collection, fetcher fetch.Fetcher, op operator.Interaction) *Collector {
	return &Collector{
		coll:    coll,
		fetcher: fetcher,
		op:      op,
		logger:  slog.With(slog.String("component", "collect")),
	}
}

// CollectURL fetches a detail page and stores it.
func (c *Collector) CollectURL(ctx context.Context, url string) (*record.UpsertResult, error) {
	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	return c.CollectHTML(ctx, url, body)
}

// CollectHTML extracts a rendered detail page and stores it. A record that
// already exists keeps its content.
func (c *Collector) CollectHTML(ctx context.Context, url, html string) (*record.UpsertResult, error) {
	raw, err := extract.DetailFromHTML(strings.NewReader(html), url)
	if err != nil {
		if errors.Is(err, record.ErrExtractionIncomplete) {
			c.op.Notify(ctx, fmt.Sprintf("no name found on %s, nothing stored", url))
		}
		return nil, err
	}
	res, err := c.coll.UpsertFromExtraction(ctx, raw)
	if err != nil {
		return nil, err
	}
	if res.Created {
		c.op.Notify(ctx, fmt.Sprintf("stored: %s (total: %d)", res.Record.Name, res.Total))
	} else {
		c.op.Notify(ctx, fmt.Sprintf("already present, skipped: %s", res.Record.Name))
	}
	return res, nil
}

// OnLoad stores every page the navigation channel loads. Failures are
// logged and never stop a run.
func (c *Collector) OnLoad(ctx context.Context, url, html string) {
	if _, err := c.CollectHTML(ctx, url, html); err != nil {
		c.logger.Warn(fmt.Sprintf("failed to collect page: %v", err), slog.String("url", url))
	}
}

// IDForURL fetches a detail page and returns the id its record has or
// would have.
func (c *Collector) IDForURL(ctx context.Context, url string) (string, error) {
	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	raw, err := extract.DetailFromHTML(strings.NewReader(body), url)
	if err != nil {
		return "", err
	}
	return record.IDFromName(raw.Name), nil
}

// SetStatusInteractive lets the operator pick a status for record id.
// Option 0 clears the status. The note defaults to the current one.
func (c *Collector) SetStatusInteractive(ctx context.Context, id string) (*record.Record, error) {
	r, err := c.coll.Get(ctx, id)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			c.op.Notify(ctx, "record is not in the collection yet, collect it first")
		}
		return nil, err
	}

	current := record.StatusLabel(r)
	if current == "" {
		current = "(no status)"
	}
	options := []string{"clear status"}
	for _, o := range record.StatusOptions {
		options = append(options, o.Label)
	}
	n, err := c.op.Choose(ctx, fmt.Sprintf("Status of %s, currently: %s", r.Name, current), options)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		r, err = c.coll.SetStatus(ctx, id, nil)
		if err != nil {
			return nil, err
		}
		c.op.Notify(ctx, "status cleared")
		return r, nil
	}

	opt := record.StatusOptions[n-1]
	note, err := c.op.Ask(ctx, "note, eg. date or contact person", record.StatusNote(r))
	if err != nil {
		return nil, err
	}
	r, err = c.coll.SetStatus(ctx, id, opt.Status(note))
	if err != nil {
		return nil, err
	}
	c.op.Notify(ctx, fmt.Sprintf("status saved: %s", opt.Label))
	return r, nil
}

// SetStatus sets the status of record id to the option with code. An
// empty code clears the status.
func (c *Collector) SetStatus(ctx context.Context, id, code, note string) (*record.Record, error) {
	if code == "" {
		return c.coll.SetStatus(ctx, id, nil)
	}
	opt, ok := record.LookupStatusOption(code)
	if !ok {
		return nil, fmt.Errorf("unknown status code %q", code)
	}
	return c.coll.SetStatus(ctx, id, opt.Status(note))
}
