package automate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kv-thuringen/kvt-crawler/internal/clock"
)

// Listing is the tab holding the paginated listing.
type Listing interface {
	Pager
	Open(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	DetailLinks(ctx context.Context) ([]string, error)
	// WaitReload blocks until the listing finished loading after a page
	// control was activated.
	WaitReload(ctx context.Context) error
}

// Summary describes a finished run.
type Summary struct {
	Pages      int
	Visited    int
	Outcome    Phase
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Runner drives an engine across listing reloads: after every page
// advance it waits for the reload and resumes the run on the new page.
type Runner struct {
	engine  *Engine
	listing Listing
	clock   clock.Clock
	logger  *slog.Logger
}

func NewRunner(e *Engine, l Listing) *Runner {
	return &Runner{
		engine:  e,
		listing: l,
		clock:   e.clock,
		logger:  e.logger,
	}
}

// Run opens listingURL and walks it to the end. A run left running in the
// session scope is resumed instead of started anew.
func (r *Runner) Run(ctx context.Context, listingURL string) (*Summary, error) {
	sum := &Summary{StartedAt: r.clock.Now(), Outcome: Idle}
	finish := func(err error) (*Summary, error) {
		sum.Outcome = r.engine.Phase()
		sum.Visited = r.engine.Visited()
		sum.FinishedAt = r.clock.Now()
		sum.Err = err
		return sum, err
	}

	if err := r.listing.Open(ctx, listingURL); err != nil {
		return finish(err)
	}
	urls, loc, err := r.page(ctx)
	if err != nil {
		return finish(err)
	}
	resumed, err := r.engine.ResumeIfApplicable(ctx, urls, loc)
	if err != nil {
		return finish(err)
	}
	if !resumed {
		if err := r.engine.Start(ctx, urls, loc); err != nil {
			return finish(err)
		}
	}
	sum.Pages = 1

	for {
		phase, err := r.engine.Run(ctx)
		if err != nil || phase != Advanced {
			return finish(err)
		}
		if err := r.listing.WaitReload(ctx); err != nil {
			return finish(r.engine.abort(ctx, fmt.Errorf("%w: %w", ErrNextPageNotFound, err)))
		}
		if err := r.clock.Sleep(ctx, time.Duration(r.engine.cfg.ResumeDelayMS)*time.Millisecond); err != nil {
			return finish(r.engine.abort(ctx, err))
		}
		urls, loc, err := r.page(ctx)
		if err != nil {
			return finish(r.engine.abort(ctx, err))
		}
		resumed, err := r.engine.ResumeIfApplicable(ctx, urls, loc)
		if err != nil {
			return finish(err)
		}
		if !resumed {
			r.engine.phase = Aborted
			return finish(nil)
		}
		sum.Pages++
		r.logger.Info(fmt.Sprintf("page %d loaded", sum.Pages), slog.String("list", loc))
	}
}

func (r *Runner) page(ctx context.Context) ([]string, string, error) {
	loc, err := r.listing.URL(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read listing url: %w", err)
	}
	urls, err := r.listing.DetailLinks(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read detail links: %w", err)
	}
	return urls, loc, nil
}

// Stopped reports whether err ended a run because it was cancelled rather
// than because of a failure.
func Stopped(err error) bool {
	return errors.Is(err, context.Canceled)
}
