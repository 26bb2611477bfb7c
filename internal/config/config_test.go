package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kv-thuringen/kvt-crawler/internal/automate"
	"github.com/kv-thuringen/kvt-crawler/internal/fetch"
	"github.com/kv-thuringen/kvt-crawler/internal/output"
)

func TestNewConfigFromFileMissing(t *testing.T) {
	c, err := NewConfigFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Automation != automate.DefaultConfig() {
		t.Errorf("expected default automation config, got %+v", c.Automation)
	}
	if c.Fetcher.Type != fetch.DYNAMIC || c.Fetcher.ReloadTimeoutS != 60 || !c.Fetcher.Headless {
		t.Errorf("unexpected fetcher defaults %+v", c.Fetcher)
	}
	if c.Export.Type != output.JSON_WRITER_TYPE {
		t.Errorf("expected json export, got %s", c.Export.Type)
	}
	if c.Store.Path != DefaultDBPath() || c.Store.Key != "psychologen_sammlung_v1" {
		t.Errorf("unexpected store config %+v", c.Store)
	}
	if c.Locale != "de_DE" {
		t.Errorf("expected de_DE, got %s", c.Locale)
	}
}

func TestNewConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
store:
  path: /tmp/kvt.db
automation:
  inter_visit_delay_ms: 100
fetcher:
  type: static
export:
  type: csv
  filedir: /tmp/out
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	c, err := NewConfigFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Store.Path != "/tmp/kvt.db" {
		t.Errorf("expected store path from file, got %s", c.Store.Path)
	}
	if c.Automation.InterVisitDelayMS != 100 || c.Automation.SettleDelayMS != 2500 {
		t.Errorf("expected file value and default, got %+v", c.Automation)
	}
	if c.Fetcher.Type != fetch.STATIC || c.Export.Type != output.CSV_WRITER_TYPE || c.Export.FileDir != "/tmp/out" {
		t.Errorf("unexpected values %+v %+v", c.Fetcher, c.Export)
	}
}

func TestNewConfigFromFileEnv(t *testing.T) {
	t.Setenv("KVT_RESUME_DELAY_MS", "50")
	c, err := NewConfigFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Automation.ResumeDelayMS != 50 {
		t.Errorf("expected env override, got %d", c.Automation.ResumeDelayMS)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		errMsg string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"negative delay", func(c *Config) { c.Automation.InterVisitDelayMS = -1 }, "inter_visit_delay_ms"},
		{"same keys", func(c *Config) { c.Automation.StateKey = c.Store.Key }, "must differ"},
		{"fetcher type", func(c *Config) { c.Fetcher.Type = "curl" }, "fetcher.type"},
		{"export type", func(c *Config) { c.Export.Type = "xml" }, "export.type"},
		{"locale", func(c *Config) { c.Locale = "fr_FR" }, "locale"},
		{"reload timeout", func(c *Config) { c.Fetcher.ReloadTimeoutS = 0 }, "reload_timeout_s"},
	}
	for _, tt := range tests {
		c, err := Default()
		if err != nil {
			t.Fatal(err)
		}
		tt.modify(c)
		err = c.Validate()
		if tt.errMsg == "" {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tt.name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
			t.Errorf("%s: expected error containing %q, got %v", tt.name, tt.errMsg, err)
		}
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected an error when the file exists")
	}
	c, err := NewConfigFromFile(path)
	if err != nil {
		t.Fatalf("written config must read back: %v", err)
	}
	if c.Automation.StateKey != "psychologen_autorun_v1" {
		t.Errorf("unexpected state key %s", c.Automation.StateKey)
	}
	if err := WriteDefault(path, true); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
}
