package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/kv-thuringen/kvt-crawler/internal/log"
)

// ErrChannelClosed is returned by Redirect when the tab is gone.
var ErrChannelClosed = errors.New("navigation tab is closed")

// LoadHandler is called with the rendered html after the channel finished
// loading url.
type LoadHandler func(ctx context.Context, url, html string)

// Channel is the one tab detail pages are visited in. It is opened once and
// then redirected for every further page. If the tab gets closed, the next
// EnsureOpen opens a new one.
type Channel struct {
	browser *Browser
	settle  time.Duration
	onLoad  LoadHandler

	mu       sync.Mutex
	tab      context.Context
	closeTab context.CancelFunc
}

func NewChannel(b *Browser, onLoad LoadHandler) *Channel {
	return &Channel{
		browser: b,
		settle:  time.Duration(b.PageLoadWaitMS) * time.Millisecond,
		onLoad:  onLoad,
	}
}

func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tab != nil && c.tab.Err() == nil
}

// EnsureOpen opens the tab at url unless it is already open. An open tab
// is left where it is.
func (c *Channel) EnsureOpen(ctx context.Context, url string) error {
	if c.IsOpen() {
		return nil
	}
	tab, closeTab, err := c.browser.newTab(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.closeTab != nil {
		c.closeTab()
	}
	c.tab, c.closeTab = tab, closeTab
	c.mu.Unlock()
	return c.visit(ctx, tab, url)
}

// Redirect points the open tab at url.
func (c *Channel) Redirect(ctx context.Context, url string) error {
	c.mu.Lock()
	tab := c.tab
	c.mu.Unlock()
	if tab == nil || tab.Err() != nil {
		return ErrChannelClosed
	}
	return c.visit(ctx, tab, url)
}

func (c *Channel) visit(ctx, tab context.Context, url string) error {
	logger := log.LoggerFromContext(ctx).With(slog.String("component", "channel"), slog.String("url", url))
	logger.Debug("navigating")
	var body string
	if err := runIn(ctx, tab,
		chromedp.Navigate(url),
		chromedp.Sleep(c.settle),
		outerHTML(&body),
	); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	if log.Debug {
		writeHTMLToFile(ctx, url, body, c.browser.DebugDir)
	}
	if c.onLoad != nil {
		c.onLoad(ctx, url, body)
	}
	return nil
}

// Close closes the tab. The browser stays up.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeTab != nil {
		c.closeTab()
		c.tab, c.closeTab = nil, nil
	}
}
