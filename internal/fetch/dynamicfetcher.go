package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/kv-thuringen/kvt-crawler/internal/log"
)

// The DynamicFetcher renders js
type DynamicFetcher struct {
	*FetcherConfig
	browser *Browser
}

func NewDynamicFetcher(fc *FetcherConfig) *DynamicFetcher {
	if fc.PageLoadWaitMS == 0 {
		fc.PageLoadWaitMS = 1000
	}
	return &DynamicFetcher{
		FetcherConfig: fc,
		browser:       NewBrowser(fc),
	}
}

func (d *DynamicFetcher) Cancel() {
	d.browser.Close()
}

func (d *DynamicFetcher) Fetch(ctx context.Context, urlStr string) (string, error) {
	logger := log.LoggerFromContext(ctx).With(slog.String("fetcher", "dynamic"), slog.String("url", urlStr))
	logger.Debug("fetching page", slog.String("user-agent", d.UserAgent))

	tab, closeTab, err := d.browser.newTab(ctx)
	if err != nil {
		return "", err
	}
	defer closeTab()

	var body string
	sleepTime := time.Duration(d.PageLoadWaitMS) * time.Millisecond
	logger.Debug(fmt.Sprintf("running chrome actions: Navigate, Sleep(%v), OuterHTML", sleepTime))
	if err := runIn(ctx, tab,
		chromedp.Navigate(urlStr),
		chromedp.Sleep(sleepTime),
		outerHTML(&body),
	); err != nil {
		return "", err
	}

	if log.Debug {
		writeHTMLToFile(ctx, urlStr, body, d.DebugDir)
	}
	return body, nil
}
