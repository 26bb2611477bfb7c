package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/kv-thuringen/kvt-crawler/internal/extract"
	"github.com/kv-thuringen/kvt-crawler/internal/log"
)

// ErrListingNotOpen is returned when the listing tab is used before Open.
var ErrListingNotOpen = errors.New("listing tab is not open")

// ListingTab holds the listing page. Activating a page control submits the
// pagination form, which reloads the tab.
type ListingTab struct {
	browser       *Browser
	cfg           extract.ListingConfig
	reloadTimeout time.Duration

	tab      context.Context
	closeTab context.CancelFunc
	loaded   chan struct{}
}

func NewListingTab(b *Browser, cfg extract.ListingConfig) *ListingTab {
	timeout := time.Duration(b.ReloadTimeoutS) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &ListingTab{
		browser:       b,
		cfg:           cfg,
		reloadTimeout: timeout,
		loaded:        make(chan struct{}, 1),
	}
}

func (l *ListingTab) Open(ctx context.Context, listingURL string) error {
	tab, closeTab, err := l.browser.newTab(ctx)
	if err != nil {
		return err
	}
	if l.closeTab != nil {
		l.closeTab()
	}
	l.tab, l.closeTab = tab, closeTab
	chromedp.ListenTarget(tab, func(ev interface{}) {
		if _, ok := ev.(*page.EventLoadEventFired); ok {
			select {
			case l.loaded <- struct{}{}:
			default:
			}
		}
	})
	if err := runIn(ctx, tab, chromedp.Navigate(listingURL)); err != nil {
		return fmt.Errorf("failed to open listing %s: %w", listingURL, err)
	}
	return nil
}

func (l *ListingTab) URL(ctx context.Context) (string, error) {
	if l.tab == nil {
		return "", ErrListingNotOpen
	}
	var u string
	if err := runIn(ctx, l.tab, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

func (l *ListingTab) document(ctx context.Context) (*goquery.Document, *url.URL, error) {
	if l.tab == nil {
		return nil, nil, ErrListingNotOpen
	}
	var body, loc string
	if err := runIn(ctx, l.tab, chromedp.Location(&loc), outerHTML(&body)); err != nil {
		return nil, nil, err
	}
	if log.Debug {
		writeHTMLToFile(ctx, loc, body, l.browser.DebugDir)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	base, err := url.Parse(loc)
	if err != nil {
		return nil, nil, err
	}
	return doc, base, nil
}

func (l *ListingTab) DetailLinks(ctx context.Context) ([]string, error) {
	doc, base, err := l.document(ctx)
	if err != nil {
		return nil, err
	}
	return extract.DetailLinks(doc, base, l.cfg.DetailLinkSelector), nil
}

func (l *ListingTab) Controls(ctx context.Context) ([]extract.PageControl, error) {
	doc, _, err := l.document(ctx)
	if err != nil {
		return nil, err
	}
	return extract.Pagination(doc, l.cfg), nil
}

// Activate clicks the control of page c.Number.
func (l *ListingTab) Activate(ctx context.Context, c extract.PageControl) error {
	if l.tab == nil {
		return ErrListingNotOpen
	}
	select {
	case <-l.loaded:
	default:
	}
	return runIn(ctx, l.tab, chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(c.Selector, &nodes, chromedp.AtLeast(0)).Do(ctx); err != nil {
			return err
		}
		if len(nodes) == 0 {
			return fmt.Errorf("no element matches %s", c.Selector)
		}
		return chromedp.MouseClickNode(nodes[0]).Do(ctx)
	}))
}

// WaitReload blocks until the tab finished loading after Activate.
func (l *ListingTab) WaitReload(ctx context.Context) error {
	timer := time.NewTimer(l.reloadTimeout)
	defer timer.Stop()
	select {
	case <-l.loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("listing did not reload within %v", l.reloadTimeout)
	}
}

func (l *ListingTab) Close() {
	if l.closeTab != nil {
		l.closeTab()
		l.tab, l.closeTab = nil, nil
	}
}
