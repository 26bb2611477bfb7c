// Package config reads the crawler configuration from a yaml file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/kv-thuringen/kvt-crawler/internal/automate"
	"github.com/kv-thuringen/kvt-crawler/internal/date"
	"github.com/kv-thuringen/kvt-crawler/internal/extract"
	"github.com/kv-thuringen/kvt-crawler/internal/fetch"
	"github.com/kv-thuringen/kvt-crawler/internal/output"
	"gopkg.in/yaml.v3"
)

const appName = "kvt-crawler"

// DefaultPath is where the config file is looked up when none is given.
var DefaultPath = filepath.Join(xdg.ConfigHome, appName, "config.yaml")

// StoreConfig locates the SQLite file holding both scopes.
type StoreConfig struct {
	// Path defaults to the XDG data directory.
	Path string `yaml:"path" env:"KVT_DB_PATH"`
	Key  string `yaml:"key" env:"KVT_STORE_KEY" env-default:"psychologen_sammlung_v1"`
}

type Config struct {
	ListingURL string                `yaml:"listing_url" env:"KVT_LISTING_URL" env-default:"https://www.kv-thueringen.de/arztsuche"`
	Locale     string                `yaml:"locale" env:"KVT_LOCALE" env-default:"de_DE"`
	Store      StoreConfig           `yaml:"store"`
	Automation automate.Config       `yaml:"automation"`
	Fetcher    fetch.FetcherConfig   `yaml:"fetcher"`
	Listing    extract.ListingConfig `yaml:"listing"`
	Export     output.WriterConfig   `yaml:"export"`
}

// DefaultDBPath is the database location used when the config names none.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, appName, appName+".db")
}

// NewConfigFromFile reads path and overlays the environment. A missing file
// is not an error: the defaults and the environment are used instead.
func NewConfigFromFile(path string) (*Config, error) {
	var config Config

	err := cleanenv.ReadConfig(path, &config)
	if errors.Is(err, fs.ErrNotExist) {
		err = cleanenv.ReadEnv(&config)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config %s: %w", path, err)
	}

	if config.Store.Path == "" {
		config.Store.Path = DefaultDBPath()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns the configuration used without any file or environment.
func Default() (*Config, error) {
	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, err
	}
	if config.Store.Path == "" {
		config.Store.Path = DefaultDBPath()
	}
	return &config, nil
}

// Validate rejects values the crawler cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Store.Key) == "" {
		errs = append(errs, errors.New("store.key must not be empty"))
	}
	if strings.TrimSpace(c.Automation.StateKey) == "" {
		errs = append(errs, errors.New("automation.state_key must not be empty"))
	}
	if c.Store.Key == c.Automation.StateKey {
		errs = append(errs, fmt.Errorf("store.key and automation.state_key must differ, both are %q", c.Store.Key))
	}
	for name, v := range map[string]int{
		"automation.inter_visit_delay_ms": c.Automation.InterVisitDelayMS,
		"automation.settle_delay_ms":      c.Automation.SettleDelayMS,
		"automation.resume_delay_ms":      c.Automation.ResumeDelayMS,
		"fetcher.page_load_wait_ms":       c.Fetcher.PageLoadWaitMS,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", name, v))
		}
	}
	if c.Fetcher.ReloadTimeoutS <= 0 {
		errs = append(errs, fmt.Errorf("fetcher.reload_timeout_s must be positive, got %d", c.Fetcher.ReloadTimeoutS))
	}
	switch c.Fetcher.Type {
	case fetch.STATIC, fetch.DYNAMIC, fetch.MOCK:
	default:
		errs = append(errs, fmt.Errorf("fetcher.type %q is not supported", c.Fetcher.Type))
	}
	switch c.Export.Type {
	case output.JSON_WRITER_TYPE, output.CSV_WRITER_TYPE:
	default:
		errs = append(errs, fmt.Errorf("export.type %q is not supported", c.Export.Type))
	}
	if !date.SupportedLocale(c.Locale) {
		errs = append(errs, fmt.Errorf("locale %q is not supported", c.Locale))
	}
	return errors.Join(errs...)
}

// WriteDefault writes the default configuration to path. An existing file is
// only replaced when overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	config, err := Default()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error while marshalling. %w", err)
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0640)
}
