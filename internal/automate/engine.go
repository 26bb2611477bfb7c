// Package automate walks a paginated listing: every detail link of the
// current page is visited through one navigation channel, then the next
// page control is invoked. Progress lives in the session scope so a run
// survives the reload caused by pagination and can be stopped from
// another process.
package automate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kv-thuringen/kvt-crawler/internal/clock"
	"github.com/kv-thuringen/kvt-crawler/internal/extract"
	"github.com/kv-thuringen/kvt-crawler/internal/persist"
)

type Phase int

const (
	Idle Phase = iota
	Running
	// Stopping means the run was stopped and ends at the next step.
	Stopping
	Completed
	Aborted
	// Advanced means the next page control was invoked. This instance is
	// done; the reloaded listing resumes the run.
	Advanced
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	case Advanced:
		return "advanced"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Done reports whether the phase ends the current instance.
func (p Phase) Done() bool {
	return p == Completed || p == Aborted || p == Advanced
}

// Channel is the single reusable handle detail pages are visited with.
type Channel interface {
	IsOpen() bool
	EnsureOpen(ctx context.Context, url string) error
	Redirect(ctx context.Context, url string) error
}

// Pager reads and invokes the pagination controls of the current listing.
type Pager interface {
	Controls(ctx context.Context) ([]extract.PageControl, error)
	Activate(ctx context.Context, c extract.PageControl) error
}

// Notifier receives the short status messages of a run.
type Notifier interface {
	Notify(ctx context.Context, msg string)
}

type Config struct {
	InterVisitDelayMS int    `yaml:"inter_visit_delay_ms" env:"KVT_INTER_VISIT_DELAY_MS" env-default:"2500"`
	SettleDelayMS     int    `yaml:"settle_delay_ms" env:"KVT_SETTLE_DELAY_MS" env-default:"2500"`
	ResumeDelayMS     int    `yaml:"resume_delay_ms" env:"KVT_RESUME_DELAY_MS" env-default:"800"`
	StateKey          string `yaml:"state_key" env:"KVT_STATE_KEY" env-default:"psychologen_autorun_v1"`
}

func DefaultConfig() Config {
	return Config{
		InterVisitDelayMS: 2500,
		SettleDelayMS:     2500,
		ResumeDelayMS:     800,
		StateKey:          DefaultStateKey,
	}
}

// Engine is the state machine of one run. It is not safe for concurrent
// use, and only one run may use a session key at a time.
type Engine struct {
	cfg      Config
	session  persist.Scope
	channel  Channel
	pager    Pager
	clock    clock.Clock
	notifier Notifier
	logger   *slog.Logger

	phase   Phase
	urls    []string
	visited int
	err     error
}

func NewEngine(cfg Config, session persist.Scope, ch Channel, pager Pager, clk clock.Clock, n Notifier) *Engine {
	if cfg.StateKey == "" {
		cfg.StateKey = DefaultStateKey
	}
	return &Engine{
		cfg:      cfg,
		session:  session,
		channel:  ch,
		pager:    pager,
		clock:    clk,
		notifier: n,
		logger:   slog.With(slog.String("component", "automate")),
	}
}

func (e *Engine) Phase() Phase { return e.phase }

// Err returns the error that ended the run, if any.
func (e *Engine) Err() error { return e.err }

// Visited returns the number of visits of the run as last persisted.
func (e *Engine) Visited() int { return e.visited }

func (e *Engine) notify(ctx context.Context, msg string) {
	e.logger.Info(msg)
	if e.notifier != nil {
		e.notifier.Notify(ctx, msg)
	}
}

// Start begins a run over urls. listURL identifies the listing page the
// urls were read from. The state is persisted before anything is visited.
func (e *Engine) Start(ctx context.Context, urls []string, listURL string) error {
	if len(urls) == 0 {
		e.notify(ctx, ErrNoTargets.Error())
		return ErrNoTargets
	}
	st := &State{
		Running:           true,
		InterVisitDelayMS: e.cfg.InterVisitDelayMS,
		SettleDelayMS:     e.cfg.SettleDelayMS,
		StartedAt:         e.clock.Now(),
		LastListURL:       &listURL,
	}
	if err := saveState(ctx, e.session, e.cfg.StateKey, st); err != nil {
		return err
	}
	e.arm(urls, st)
	e.logger.Info(fmt.Sprintf("started run over %d links", len(urls)), slog.String("list", listURL))
	return nil
}

// ResumeIfApplicable continues a persisted, running run on a freshly
// loaded listing page. The cursor restarts at 0 because every page has its
// own links. It reports whether a run was resumed. A leftover stopped
// state is removed.
func (e *Engine) ResumeIfApplicable(ctx context.Context, urls []string, listURL string) (bool, error) {
	st, ok, err := LoadState(ctx, e.session, e.cfg.StateKey)
	if err != nil || !ok {
		return false, err
	}
	if !st.Running {
		e.visited = st.TotalVisited
		return false, e.clear(ctx)
	}
	if len(urls) == 0 {
		e.visited = st.TotalVisited
		return false, e.abort(ctx, ErrNoTargets)
	}
	st.Cursor = 0
	st.LastListURL = &listURL
	if err := saveState(ctx, e.session, e.cfg.StateKey, st); err != nil {
		return false, err
	}
	e.arm(urls, st)
	e.logger.Info(fmt.Sprintf("resumed run over %d links", len(urls)), slog.String("list", listURL))
	return true, nil
}

func (e *Engine) arm(urls []string, st *State) {
	e.urls = append([]string(nil), urls...)
	e.phase = Running
	e.visited = st.TotalVisited
	e.err = nil
}

// Stop marks the run as stopped. It takes effect at the next step
// boundary.
func (e *Engine) Stop(ctx context.Context) error {
	if _, err := Stop(ctx, e.session, e.cfg.StateKey); err != nil {
		return err
	}
	if e.phase == Running {
		e.phase = Stopping
	}
	return nil
}

// Run steps until the instance is done.
func (e *Engine) Run(ctx context.Context) (Phase, error) {
	for {
		phase, err := e.Step(ctx)
		if err != nil || phase.Done() {
			return phase, err
		}
	}
}

// Step performs one visit, or the pagination phase once all links are
// visited. A visit is: point the channel at the url, count it, wait the
// inter-visit delay and advance the cursor. The state is re-read after the
// visit and after the delay, so a stop landing in either is never
// overwritten.
func (e *Engine) Step(ctx context.Context) (Phase, error) {
	if e.phase == Idle {
		return Idle, ErrNotStarted
	}
	if e.phase.Done() {
		return e.phase, e.err
	}

	st, ok, err := e.running(ctx)
	if err != nil || !ok {
		return e.phase, err
	}
	if st.Cursor >= len(e.urls) {
		return e.paginate(ctx, st)
	}

	url := e.urls[st.Cursor]
	e.logger.Info(fmt.Sprintf("visiting %d/%d", st.Cursor+1, len(e.urls)), slog.String("url", url))
	if err := e.visit(ctx, url); err != nil {
		if ctx.Err() != nil {
			return e.phase, e.abort(ctx, ctx.Err())
		}
		st.Running = false
		if serr := saveState(ctx, e.session, e.cfg.StateKey, st); serr != nil {
			e.logger.Warn(fmt.Sprintf("failed to persist stopped state: %v", serr))
		}
		return e.phase, e.abort(ctx, fmt.Errorf("%w: %w", ErrChannelUnavailable, err))
	}

	// The visit may have taken a while; a stop written meanwhile must
	// survive the visit count update.
	st, ok, err = LoadState(ctx, e.session, e.cfg.StateKey)
	if err != nil {
		return e.phase, err
	}
	if !ok {
		e.phase = Stopping
		return e.phase, nil
	}
	st.TotalVisited++
	e.visited = st.TotalVisited
	if err := saveState(ctx, e.session, e.cfg.StateKey, st); err != nil {
		return e.phase, err
	}
	if err := e.clock.Sleep(ctx, time.Duration(st.InterVisitDelayMS)*time.Millisecond); err != nil {
		return e.phase, e.abort(ctx, err)
	}

	st, ok, err = LoadState(ctx, e.session, e.cfg.StateKey)
	if err != nil {
		return e.phase, err
	}
	if !ok || !st.Running {
		e.phase = Stopping
		return e.phase, nil
	}
	st.Cursor++
	if err := saveState(ctx, e.session, e.cfg.StateKey, st); err != nil {
		return e.phase, err
	}
	return e.phase, nil
}

// running loads the state and ends the run if it was stopped.
func (e *Engine) running(ctx context.Context) (*State, bool, error) {
	st, ok, err := LoadState(ctx, e.session, e.cfg.StateKey)
	if err != nil {
		return nil, false, err
	}
	if !ok || !st.Running {
		if ok {
			e.visited = st.TotalVisited
		}
		e.notify(ctx, fmt.Sprintf("run stopped after %d visits", e.visited))
		e.phase = Aborted
		return nil, false, e.clear(ctx)
	}
	return st, true, nil
}

func (e *Engine) visit(ctx context.Context, url string) error {
	if e.channel.IsOpen() {
		return e.channel.Redirect(ctx, url)
	}
	return e.channel.EnsureOpen(ctx, url)
}

// paginate waits for the last visit to settle and then invokes the control
// of the page after the active one.
func (e *Engine) paginate(ctx context.Context, st *State) (Phase, error) {
	if err := e.clock.Sleep(ctx, time.Duration(st.SettleDelayMS)*time.Millisecond); err != nil {
		return e.phase, e.abort(ctx, err)
	}
	if _, ok, err := e.running(ctx); err != nil || !ok {
		return e.phase, err
	}

	controls, err := e.pager.Controls(ctx)
	if err != nil {
		return e.phase, e.abort(ctx, fmt.Errorf("%w: %w", ErrNoPagination, err))
	}
	active, last := 0, 0
	for _, c := range controls {
		if c.Active {
			active = c.Number
		}
		last = max(last, c.Number)
	}
	if active == 0 {
		return e.phase, e.abort(ctx, ErrNoPagination)
	}
	if active >= last {
		e.notify(ctx, fmt.Sprintf("last page %d reached, %d visits", active, e.visited))
		e.phase = Completed
		return e.phase, e.clear(ctx)
	}

	for _, c := range controls {
		if c.Number != active+1 {
			continue
		}
		if err := e.pager.Activate(ctx, c); err != nil {
			return e.phase, e.abort(ctx, fmt.Errorf("%w: page %d: %w", ErrNextPageNotFound, c.Number, err))
		}
		e.logger.Info(fmt.Sprintf("advanced to page %d", c.Number))
		e.phase = Advanced
		return e.phase, nil
	}
	return e.phase, e.abort(ctx, fmt.Errorf("%w: page %d", ErrNextPageNotFound, active+1))
}

// abort ends the run with cause, reports it once and removes the state.
func (e *Engine) abort(ctx context.Context, cause error) error {
	e.phase = Aborted
	e.err = cause
	e.notify(ctx, fmt.Sprintf("run aborted: %v", cause))
	if err := e.clear(context.WithoutCancel(ctx)); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (e *Engine) clear(ctx context.Context) error {
	if err := e.session.Remove(ctx, e.cfg.StateKey); err != nil {
		return fmt.Errorf("failed to clear run state: %w", err)
	}
	return nil
}
