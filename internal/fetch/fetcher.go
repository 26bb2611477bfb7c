// Package fetch loads pages, either with a plain http client or through a
// headless chrome, and provides the browser tabs the automation drives.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/kv-thuringen/kvt-crawler/internal/log"
	"github.com/kv-thuringen/kvt-crawler/internal/utils"
)

// A Fetcher allows to fetch the content of a web page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Cancel()
}

type FetcherType string

const (
	STATIC  FetcherType = "static"
	DYNAMIC FetcherType = "dynamic"
	MOCK    FetcherType = "mock"
)

// MockPage is a canned page served by the mock fetcher.
type MockPage struct {
	URL     string
	Content string
}

type FetcherConfig struct {
	Type           FetcherType `yaml:"type" env:"KVT_FETCHER_TYPE" env-default:"dynamic"`
	UserAgent      string      `yaml:"user_agent" env:"KVT_USER_AGENT"`
	PageLoadWaitMS int         `yaml:"page_load_wait_ms" env:"KVT_PAGE_LOAD_WAIT_MS" env-default:"1000"`
	ReloadTimeoutS int         `yaml:"reload_timeout_s" env:"KVT_RELOAD_TIMEOUT_S" env-default:"60"`
	Headless       bool        `yaml:"headless" env:"KVT_HEADLESS" env-default:"true"`
	DebugDir       string      `yaml:"debug_dir" env:"KVT_DEBUG_DIR"`
	MockPages      []MockPage  `yaml:"-"`
}

// NewFetcher returns the fetcher configured by fc.Type.
func NewFetcher(fc *FetcherConfig) (Fetcher, error) {
	switch fc.Type {
	case STATIC:
		return NewStaticFetcher(fc), nil
	case DYNAMIC:
		return NewDynamicFetcher(fc), nil
	case MOCK:
		return NewMockFetcher(fc), nil
	default:
		return nil, fmt.Errorf("fetcher of type %s not implemented", fc.Type)
	}
}

// writeHTMLToFile stores a fetched page in dir for debugging. Failures are
// only logged.
func writeHTMLToFile(ctx context.Context, urlStr, content, dir string) {
	logger := log.LoggerFromContext(ctx)
	host := "page"
	if u, err := url.Parse(urlStr); err == nil && u.Host != "" {
		host = u.Host
	}
	name, err := utils.RandomString(host)
	if err != nil {
		logger.Warn(fmt.Sprintf("failed to name debug file: %v", err))
		return
	}
	if dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			logger.Warn(fmt.Sprintf("failed to create debug directory: %v", err))
			return
		}
	}
	filename := filepath.Join(dir, name+".html")
	logger.Debug(fmt.Sprintf("writing html to file %s", filename), slog.String("url", urlStr))
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		logger.Warn(fmt.Sprintf("failed to write html file: %v", err))
	}
}
