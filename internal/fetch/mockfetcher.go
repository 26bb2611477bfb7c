package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/kv-thuringen/kvt-crawler/internal/log"
)

// ErrPageNotFound is returned for a url no canned page is registered for.
var ErrPageNotFound = errors.New("page not found")

// MockFetcher serves the pages of FetcherConfig.MockPages. Urls are
// matched without their fragment, the way detail links are deduplicated.
type MockFetcher struct {
	*FetcherConfig

	mu      sync.Mutex
	pages   map[string]string
	fetched []string
}

func NewMockFetcher(fc *FetcherConfig) *MockFetcher {
	m := &MockFetcher{
		FetcherConfig: fc,
		pages:         map[string]string{},
	}
	for _, p := range fc.MockPages {
		m.pages[pageKey(p.URL)] = p.Content
	}
	return m
}

func pageKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

func (m *MockFetcher) Fetch(ctx context.Context, urlStr string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	log.LoggerFromContext(ctx).Debug("serving canned page", slog.String("fetcher", "mock"), slog.String("url", urlStr))

	m.mu.Lock()
	m.fetched = append(m.fetched, urlStr)
	body, ok := m.pages[pageKey(urlStr)]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrPageNotFound, urlStr)
	}
	if log.Debug {
		writeHTMLToFile(ctx, urlStr, body, m.DebugDir)
	}
	return body, nil
}

// Fetched lists the requested urls in order.
func (m *MockFetcher) Fetched() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fetched...)
}

func (m *MockFetcher) Cancel() {}
