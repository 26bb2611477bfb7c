package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/kv-thuringen/kvt-crawler/internal/log"
)

// Browser is one chrome process shared by all tabs of a run.
type Browser struct {
	*FetcherConfig
	allocContext  context.Context
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc

	startOnce sync.Once
	startErr  error
}

func NewBrowser(fc *FetcherConfig) *Browser {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(1920, 1080),
	)
	if !fc.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if fc.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(fc.UserAgent))
	}
	allocContext, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocContext)
	return &Browser{
		FetcherConfig: fc,
		allocContext:  allocContext,
		cancelAlloc:   cancelAlloc,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
	}
}

func (b *Browser) start(ctx context.Context) error {
	b.startOnce.Do(func() {
		logger := log.LoggerFromContext(ctx)
		actions := []chromedp.Action{}
		if log.Debug {
			actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
				protocolVersion, product, revision, userAgent, jsVersion, err := browser.GetVersion().Do(ctx)
				if err != nil {
					logger.Warn("failed to get chrome version", slog.String("err", err.Error()))
					return nil
				}
				logger.Debug(fmt.Sprintf("chrome version: protocolVersion=%s, product=%s, revision=%s, userAgent=%s, jsVersion=%s",
					protocolVersion, product, revision, userAgent, jsVersion))
				return nil
			}))
		}
		if err := chromedp.Run(b.browserCtx, actions...); err != nil {
			b.startErr = fmt.Errorf("failed to start browser: %w", err)
		}
	})
	return b.startErr
}

// newTab opens a new tab. It stays open until the returned cancel func is
// called or the browser is closed.
func (b *Browser) newTab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := b.start(ctx); err != nil {
		return nil, nil, err
	}
	tab, cancel := chromedp.NewContext(b.browserCtx)
	if err := chromedp.Run(tab); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return tab, cancel, nil
}

// Close shuts down chrome.
func (b *Browser) Close() {
	b.cancelBrowser()
	b.cancelAlloc()
}

// runIn runs actions in tab and aborts them when ctx is done. Aborting
// does not close the tab.
func runIn(ctx, tab context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func outerHTML(body *string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		*body, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	})
}
