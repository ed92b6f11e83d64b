package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/reportconv/internal/resolve"
)

// TestNewConfig verifies the default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default FileTimeout is 2 minutes", func(t *testing.T) {
		t.Parallel()
		if cfg.FileTimeout != 2*time.Minute {
			t.Errorf("expected FileTimeout to be 2m, got %v", cfg.FileTimeout)
		}
	})

	t.Run("default MaxFileSize is 64MB", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxFileSize != 64*1024*1024 {
			t.Errorf("expected MaxFileSize to be 64MB, got %d", cfg.MaxFileSize)
		}
	})

	t.Run("default output is json", func(t *testing.T) {
		t.Parallel()
		if cfg.OutputFormat != "json" {
			t.Errorf("expected json, got %q", cfg.OutputFormat)
		}
	})

	t.Run("default concurrency is positive", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency <= 0 {
			t.Errorf("expected positive concurrency, got %d", cfg.Concurrency)
		}
	})

	t.Run("store is off by default", func(t *testing.T) {
		t.Parallel()
		if cfg.SaveToDB {
			t.Error("expected SaveToDB to be false")
		}
	})
}

// TestConfigValidate tests each validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Inputs = []string{"build.log"}
		return cfg
	}

	testCases := []struct {
		name     string
		modify   func(*Config)
		expected error
	}{
		{name: "valid config returns nil", modify: func(*Config) {}},
		{name: "no input", modify: func(c *Config) { c.Inputs = nil }, expected: ErrNoInput},
		{name: "zero concurrency", modify: func(c *Config) { c.Concurrency = 0 }, expected: ErrInvalidConcurrency},
		{name: "negative timeout", modify: func(c *Config) { c.FileTimeout = -time.Second }, expected: ErrInvalidTimeout},
		{name: "zero max size", modify: func(c *Config) { c.MaxFileSize = 0 }, expected: ErrInvalidMaxFileSize},
		{name: "unknown output", modify: func(c *Config) { c.OutputFormat = "html" }, expected: ErrUnknownOutputFormat},
		{
			name:     "empty mapping prefix",
			modify:   func(c *Config) { c.Mappings = []resolve.Mapping{{To: "/src"}} },
			expected: resolve.ErrEmptyMapping,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.modify(cfg)
			err := cfg.Validate()
			if tc.expected == nil && err != nil {
				t.Errorf("expected nil, got %v", err)
			}
			if tc.expected != nil && !errors.Is(err, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, err)
			}
		})
	}
}

// TestLoadConfigFile tests YAML and TOML loading.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads yaml", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, DefaultConfigFile)
		content := `source_root: src
output: markdown
file_timeout: 90s
mappings:
  - from: /build
    to: /home/dev/project
authorities:
  - checker: "core.*"
    analyzer: clangsa
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile: %v", err)
		}
		if cf.SourceRoot != filepath.Join(dir, "src") {
			t.Errorf("expected source root relative to the file, got %q", cf.SourceRoot)
		}

		cfg := NewConfig()
		if err := cf.Apply(cfg); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if cfg.OutputFormat != "markdown" || cfg.FileTimeout != 90*time.Second {
			t.Errorf("unexpected config %+v", cfg)
		}
		if len(cfg.Mappings) != 1 || cfg.Mappings[0].To != "/home/dev/project" {
			t.Errorf("unexpected mappings %+v", cfg.Mappings)
		}
		if len(cfg.Authorities) != 1 || cfg.Authorities[0].Analyzer != "clangsa" {
			t.Errorf("unexpected authorities %+v", cfg.Authorities)
		}
	})

	t.Run("loads toml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".reportconv.toml")
		content := `source_root = "/abs/src"
concurrency = 3
db_dir = "/var/lib/reportconv"

[[mappings]]
from = "C:\\ci"
to = "/src"
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile: %v", err)
		}
		cfg := NewConfig()
		if err := cf.Apply(cfg); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if cfg.SourceRoot != "/abs/src" || cfg.Concurrency != 3 || !cfg.SaveToDB {
			t.Errorf("unexpected config %+v", cfg)
		}
		if len(cfg.Mappings) != 1 || cfg.Mappings[0].From != `C:\ci` {
			t.Errorf("unexpected mappings %+v", cfg.Mappings)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			content string
			field   string
		}{
			{content: "output: html\n", field: "Output"},
			{content: "file_timeout: soon\n", field: "FileTimeout"},
			{content: "concurrency: -1\n", field: "Concurrency"},
			{content: "mappings:\n  - from: /build\n", field: "To"},
		}
		for _, tc := range testCases {
			path := filepath.Join(t.TempDir(), DefaultConfigFile)
			if err := os.WriteFile(path, []byte(tc.content), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := LoadConfigFile(path)
			if !errors.Is(err, ErrInvalidConfigFile) {
				t.Errorf("%q: expected ErrInvalidConfigFile, got %v", tc.content, err)
				continue
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("%q: expected %s in %v", tc.content, tc.field, err)
			}
		}
	})

	t.Run("returns ErrConfigNotFound for missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "none.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("mappings: [\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); !errors.Is(err, ErrInvalidConfigFile) {
			t.Errorf("expected ErrInvalidConfigFile, got %v", err)
		}
	})
}

// TestFindConfigFile tests the explicit path lookup.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("returns empty for missing explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "none.yaml")); got != "" {
			t.Errorf("expected empty, got %q", got)
		}
	})

	t.Run("findIn honours name order", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		for _, name := range []string{".reportconv.toml", DefaultConfigFile} {
			if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
				t.Fatal(err)
			}
		}
		if got := findIn(dir, configNames); got != filepath.Join(dir, DefaultConfigFile) {
			t.Errorf("expected the yaml file first, got %q", got)
		}
	})
}

// TestXDGDirs tests the XDG directory helpers.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for _, dir := range []string{XDGDataDir(), XDGConfigDir()} {
		if filepath.Base(dir) != AppName {
			t.Errorf("expected %q to end with %s", dir, AppName)
		}
	}
}
