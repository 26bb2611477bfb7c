/*
kvtcrawler collects the entries of the KV Thüringen Arztsuche into a local
collection, walks the paginated listing automatically and lets the operator
annotate, browse and export what was collected.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/kv-thuringen/kvt-crawler/internal/automate"
	"github.com/kv-thuringen/kvt-crawler/internal/clock"
	"github.com/kv-thuringen/kvt-crawler/internal/collect"
	"github.com/kv-thuringen/kvt-crawler/internal/config"
	"github.com/kv-thuringen/kvt-crawler/internal/date"
	"github.com/kv-thuringen/kvt-crawler/internal/fetch"
	"github.com/kv-thuringen/kvt-crawler/internal/log"
	"github.com/kv-thuringen/kvt-crawler/internal/operator"
	"github.com/kv-thuringen/kvt-crawler/internal/output"
	"github.com/kv-thuringen/kvt-crawler/internal/persist"
	"github.com/kv-thuringen/kvt-crawler/internal/record"
	"github.com/kv-thuringen/kvt-crawler/internal/view"
)

var version = "dev"

type VersionFlag string

func (v VersionFlag) Decode(_ *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                       { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

type Globals struct {
	Config string `short:"c" help:"The location of the configuration file. Defaults and environment variables are used when it does not exist." type:"path"`
}

type cli struct {
	Globals

	Version VersionFlag `short:"v" long:"version" help:"Print the version and exit."`
	Debug   bool        `short:"d" long:"debug" help:"Set log level to 'debug' and store fetched pages in the debug directory."`

	Run     RunCmd     `cmd:"" help:"Walk the listing page by page and collect every detail page."`
	Stop    StopCmd    `cmd:"" help:"Stop a running walk after its current visit. Works from another terminal."`
	Collect CollectCmd `cmd:"" help:"Collect a single detail page."`
	Status  StatusCmd  `cmd:"" help:"Set or clear the status of a collected entry."`
	Show    ShowCmd    `cmd:"" help:"Browse the collection interactively."`
	List    ListCmd    `cmd:"" help:"Print the collection as a table."`
	Export  ExportCmd  `cmd:"" help:"Export the collection as json or csv."`
	Query   QueryCmd   `cmd:"" help:"Evaluate an xpath expression against the json snapshot of the collection."`
	Reset   ResetCmd   `cmd:"" help:"Delete the whole collection."`
	Backups BackupsCmd `cmd:"" help:"List the preserved copies of unreadable collections."`
	Init    InitCmd    `cmd:"" name:"config-init" help:"Write the default configuration file."`
}

// env bundles what every command works on.
type env struct {
	cfg  *config.Config
	db   *persist.DB
	coll *record.Collection
}

func (g *Globals) open() (*env, error) {
	path := g.Config
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.NewConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	slog.Debug(fmt.Sprintf("using database %s", cfg.Store.Path))
	db, err := persist.Open(cfg.Store.Path, persist.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:  cfg,
		db:   db,
		coll: record.NewCollection(db.Durable(), cfg.Store.Key, clock.System{}),
	}, nil
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		slog.Warn(fmt.Sprintf("failed to close database: %v", err))
	}
}

func (e *env) collector(op operator.Interaction) (*collect.Collector, func(), error) {
	fetcher, err := fetch.NewFetcher(&e.cfg.Fetcher)
	if err != nil {
		return nil, nil, err
	}
	return collect.New(e.coll, fetcher, op), fetcher.Cancel, nil
}

type RunCmd struct {
	URL string `arg:"" optional:"" help:"The listing to walk. Defaults to listing_url of the configuration."`
}

func (rc *RunCmd) Run(g *Globals) error {
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.Close()
	cfg := e.cfg

	listingURL := rc.URL
	if listingURL == "" {
		listingURL = cfg.ListingURL
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A new process is a new session; whatever an earlier process left
	// behind cannot be resumed.
	session := e.db.Session()
	if err := session.Clear(ctx); err != nil {
		return err
	}
	defer func() {
		if err := session.Clear(context.Background()); err != nil {
			slog.Warn(fmt.Sprintf("failed to clear session: %v", err))
		}
	}()

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
		case <-ctx.Done():
			return
		}
		slog.Info("stopping after the current visit, interrupt again to abort immediately")
		if _, err := automate.Stop(context.WithoutCancel(ctx), session, cfg.Automation.StateKey); err != nil {
			slog.Warn(fmt.Sprintf("failed to stop the run, aborting: %v", err))
			cancel()
			return
		}
		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
		}
	}()

	term := operator.NewTerminal(os.Stdin, os.Stdout)
	collector, cancelFetcher, err := e.collector(term)
	if err != nil {
		return err
	}
	defer cancelFetcher()

	browser := fetch.NewBrowser(&cfg.Fetcher)
	defer browser.Close()
	channel := fetch.NewChannel(browser, collector.OnLoad)
	defer channel.Close()
	listing := fetch.NewListingTab(browser, cfg.Listing)
	defer listing.Close()

	engine := automate.NewEngine(cfg.Automation, session, channel, listing, clock.System{}, term)
	sum, err := automate.NewRunner(engine, listing).Run(ctx, listingURL)
	if sum != nil {
		if werr := writeRunSummary(sum, cfg.Locale); werr != nil {
			slog.Warn(fmt.Sprintf("failed to write summary: %v", werr))
		}
	}
	if automate.Stopped(err) {
		return nil
	}
	return err
}

func writeRunSummary(sum *automate.Summary, locale string) error {
	outcome := sum.Outcome.String()
	if sum.Err != nil {
		outcome = fmt.Sprintf("%s (%v)", outcome, sum.Err)
	}
	return output.WriteKeyValues(os.Stdout, [][]string{
		{"Outcome", outcome},
		{"Pages", strconv.Itoa(sum.Pages)},
		{"Visited", strconv.Itoa(sum.Visited)},
		{"Started", date.Format(sum.StartedAt, date.DisplayLayout, locale)},
		{"Finished", date.Format(sum.FinishedAt, date.DisplayLayout, locale)},
		{"Duration", sum.FinishedAt.Sub(sum.StartedAt).Round(time.Second).String()},
	})
}

type StopCmd struct{}

func (sc *StopCmd) Run(g *Globals) error {
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.Close()

	st, err := automate.Stop(context.Background(), e.db.Session(), e.cfg.Automation.StateKey)
	if errors.Is(err, automate.ErrNotStarted) {
		slog.Info("no run is active")
		return nil
	}
	if err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("stop requested, %d detail pages visited so far", st.TotalVisited))
	return nil
}

type CollectCmd struct {
	URLs []string `arg:"" name:"url" help:"The detail pages to collect."`
}

func (cc *CollectCmd) Run(g *Globals) error {
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := context.Background()
	collector, cancelFetcher, err := e.collector(operator.NewTerminal(os.Stdin, os.Stdout))
	if err != nil {
		return err
	}
	defer cancelFetcher()

	var errs []error
	for _, u := range cc.URLs {
		if _, err := collector.CollectURL(ctx, u); err != nil {
			slog.Error(fmt.Sprintf("%v", err), slog.String("url", u))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type StatusCmd struct {
	URL  string `arg:"" optional:"" help:"The detail page of the entry."`
	ID   string `long:"id" help:"The id of the entry, instead of its url."`
	Code string `long:"code" help:"Set this status code without asking. 'none' clears the status."`
	Note string `long:"note" help:"The note stored with --code."`
}

func (sc *StatusCmd) Run(g *Globals) error {
	if (sc.URL == "") == (sc.ID == "") {
		return errors.New("either a url or --id is required")
	}
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := context.Background()
	term := operator.NewTerminal(os.Stdin, os.Stdout)
	collector, cancelFetcher, err := e.collector(term)
	if err != nil {
		return err
	}
	defer cancelFetcher()

	id := sc.ID
	if id == "" {
		if id, err = collector.IDForURL(ctx, sc.URL); err != nil {
			return err
		}
	}

	if sc.Code != "" {
		code := sc.Code
		if code == "none" {
			code = ""
		}
		r, err := collector.SetStatus(ctx, id, code, sc.Note)
		if err != nil {
			return err
		}
		slog.Info(fmt.Sprintf("status of %s: %s", r.Name, record.StatusLabel(r)))
		return nil
	}
	if !operator.Interactive() {
		return errors.New("stdin is not a terminal, use --code")
	}
	_, err = collector.SetStatusInteractive(ctx, id)
	if errors.Is(err, operator.ErrCancelled) {
		return nil
	}
	return err
}

type ShowCmd struct{}

func (sc *ShowCmd) Run(g *Globals) error {
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.Close()
	return view.New(e.coll, clock.System{}, e.cfg.Locale).Run(context.Background())
}

type ListCmd struct {
	Search  string `short:"s" help:"Only list entries containing this text."`
	OpenNow bool   `short:"o" long:"open-now" help:"Only list entries open right now."`
	Status  string `long:"status" default:"ALL" help:"ALL, ANY, NONE or a status code."`
}

func (lc *ListCmd) Run(g *Globals) error {
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.Close()

	store, err := e.coll.Load(context.Background())
	if err != nil {
		return err
	}
	now := clock.System{}.Now()
	recs := view.Apply(store.Records(), view.Filter{Text: lc.Search, OpenNow: lc.OpenNow, Status: lc.Status}, now)
	view.SortByName(recs)
	if err := output.WriteSummary(os.Stdout, recs, now, e.cfg.Locale); err != nil {
		return err
	}
	fmt.Printf("%d of %d entries\n", len(recs), len(store.Items))
	return nil
}

type ExportCmd struct {
	Format string `short:"f" help:"json or csv. Defaults to export.type of the configuration."`
	Dir    string `short:"o" help:"Write the export into this directory instead of stdout." type:"path"`
}

func (ec *ExportCmd) Run(g *Globals) error {
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.Close()

	wc := e.cfg.Export
	if ec.Format != "" {
		wc.Type = output.WriterType(ec.Format)
	}
	if ec.Dir != "" {
		wc.FileDir = ec.Dir
	}
	writer, err := output.NewWriter(&wc, os.Stdout)
	if err != nil {
		return err
	}
	store, err := e.coll.Load(context.Background())
	if err != nil {
		return err
	}
	if err := writer.Write(store); err != nil {
		return err
	}
	if fw, ok := writer.(*output.FileWriter); ok {
		slog.Info(fmt.Sprintf("exported %d entries to %s", len(store.Items), fw.Path()))
	}
	return nil
}

type QueryCmd struct {
	Expr string `arg:"" help:"The xpath expression, eg. \"//items/*[status/code='urlaub']/name\"."`
}

func (qc *QueryCmd) Run(g *Globals) error {
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.Close()

	store, err := e.coll.Load(context.Background())
	if err != nil {
		return err
	}
	values, err := output.Query(store, qc.Expr)
	if err != nil {
		return err
	}
	for _, v := range values {
		fmt.Println(v)
	}
	return nil
}

type ResetCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation."`
}

func (rc *ResetCmd) Run(g *Globals) error {
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := context.Background()
	if !rc.Yes {
		ok, err := operator.NewTerminal(os.Stdin, os.Stdout).Confirm(ctx, "Really delete the whole collection?")
		if err != nil && !errors.Is(err, operator.ErrCancelled) {
			return err
		}
		if !ok {
			slog.Info("nothing deleted")
			return nil
		}
	}
	if err := e.coll.Reset(ctx); err != nil {
		return err
	}
	slog.Info("collection deleted")
	return nil
}

type BackupsCmd struct{}

func (bc *BackupsCmd) Run(g *Globals) error {
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.Close()

	keys, err := e.coll.CorruptBackups(context.Background())
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}

type InitCmd struct {
	Force bool `short:"f" help:"Overwrite an existing configuration file."`
}

func (ic *InitCmd) Run(g *Globals) error {
	path := g.Config
	if path == "" {
		path = config.DefaultPath
	}
	if err := config.WriteDefault(path, ic.Force); err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("successfully wrote default config to file %s", path))
	return nil
}

func getVersion() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if ok {
		if buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
			return buildInfo.Main.Version
		}
	}
	return version
}

func main() {
	cli := cli{
		Version: VersionFlag(getVersion()),
	}

	ctx := kong.Parse(&cli,
		kong.Name("kvtcrawler"),
		kong.Vars{
			"version": string(cli.Version),
		})

	log.Debug = cli.Debug
	log.InitializeDefaultLogger()

	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
