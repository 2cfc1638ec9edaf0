package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestFileApplyTo tests overlaying file values onto a Config.
func TestFileApplyTo(t *testing.T) {
	t.Parallel()

	t.Run("empty file leaves defaults intact", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		if err := (&File{}).ApplyTo(cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.MaxWorkers != DefaultMaxWorkers {
			t.Errorf("expected MaxWorkers %d, got %d", DefaultMaxWorkers, cfg.MaxWorkers)
		}
		if cfg.CellTimeout != DefaultCellTimeout {
			t.Errorf("expected CellTimeout %v, got %v", DefaultCellTimeout, cfg.CellTimeout)
		}
		if len(cfg.Engines) != 1 || cfg.Engines[0] != "chrome" {
			t.Errorf("expected default engines, got %v", cfg.Engines)
		}
	})

	t.Run("file values override defaults", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		file := &File{
			Engines:        []string{"firefox", "chrome"},
			Viewports:      []string{"desktop"},
			Probes:         []string{"markup", "viewport"},
			MaxWorkers:     8,
			CellTimeout:    "3m",
			RequestTimeout: "45s",
			FailOn:         "serious",
			UserAgent:      "custom-agent/2.0",
		}
		if err := file.ApplyTo(cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(cfg.Engines) != 2 || cfg.Engines[0] != "firefox" {
			t.Errorf("expected file engines, got %v", cfg.Engines)
		}
		if len(cfg.Viewports) != 1 || cfg.Viewports[0] != "desktop" {
			t.Errorf("expected file viewports, got %v", cfg.Viewports)
		}
		if len(cfg.Probes) != 2 {
			t.Errorf("expected 2 probes, got %v", cfg.Probes)
		}
		if cfg.MaxWorkers != 8 {
			t.Errorf("expected MaxWorkers 8, got %d", cfg.MaxWorkers)
		}
		if cfg.CellTimeout != 3*time.Minute {
			t.Errorf("expected CellTimeout 3m, got %v", cfg.CellTimeout)
		}
		if cfg.RequestTimeout != 45*time.Second {
			t.Errorf("expected RequestTimeout 45s, got %v", cfg.RequestTimeout)
		}
		if cfg.FailOn != "serious" {
			t.Errorf("expected FailOn serious, got %q", cfg.FailOn)
		}
		if cfg.UserAgent != "custom-agent/2.0" {
			t.Errorf("expected custom user agent, got %q", cfg.UserAgent)
		}
	})

	t.Run("file targets are appended", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Targets = []string{"https://cli.example.com/"}

		file := &File{Targets: []string{"https://file.example.com/"}}
		if err := file.ApplyTo(cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(cfg.Targets) != 2 {
			t.Fatalf("expected 2 targets, got %v", cfg.Targets)
		}
		if cfg.Targets[1] != "https://file.example.com/" {
			t.Errorf("expected file target appended, got %v", cfg.Targets)
		}
	})

	t.Run("crawl section overrides discovery settings", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		file := &File{
			Crawl: CrawlConfig{
				Enabled:  true,
				Depth:    3,
				MaxPages: 25,
				Delay:    "250ms",
			},
		}
		if err := file.ApplyTo(cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cfg.Crawl {
			t.Error("expected crawl enabled")
		}
		if cfg.CrawlDepth != 3 {
			t.Errorf("expected CrawlDepth 3, got %d", cfg.CrawlDepth)
		}
		if cfg.CrawlMaxPages != 25 {
			t.Errorf("expected CrawlMaxPages 25, got %d", cfg.CrawlMaxPages)
		}
		if cfg.CrawlDelay != 250*time.Millisecond {
			t.Errorf("expected CrawlDelay 250ms, got %v", cfg.CrawlDelay)
		}
	})

	t.Run("wave and validator sections override endpoints", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		file := &File{
			Wave:      WaveConfig{APIKey: "abc123", Endpoint: "http://localhost:8080/wave"},
			Validator: ValidatorConfig{Endpoint: "http://localhost:8080/nu/"},
		}
		if err := file.ApplyTo(cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.WaveAPIKey != "abc123" {
			t.Errorf("expected WAVE API key, got %q", cfg.WaveAPIKey)
		}
		if cfg.WaveEndpoint != "http://localhost:8080/wave" {
			t.Errorf("expected WAVE endpoint override, got %q", cfg.WaveEndpoint)
		}
		if cfg.ValidatorEndpoint != "http://localhost:8080/nu/" {
			t.Errorf("expected validator endpoint override, got %q", cfg.ValidatorEndpoint)
		}
	})

	t.Run("webdriver section merges per engine", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		file := &File{
			WebDriver: map[string]string{"chrome": "http://remote:9515"},
		}
		if err := file.ApplyTo(cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.WebDriverEndpoints["chrome"] != "http://remote:9515" {
			t.Errorf("expected chrome endpoint override, got %q", cfg.WebDriverEndpoints["chrome"])
		}
		if cfg.WebDriverEndpoints["firefox"] != DefaultFirefoxDriverURL {
			t.Errorf("expected firefox endpoint untouched, got %q", cfg.WebDriverEndpoints["firefox"])
		}
	})

	t.Run("invalid cellTimeout returns error", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		file := &File{CellTimeout: "two minutes"}

		if err := file.ApplyTo(cfg); err == nil {
			t.Error("expected error for invalid duration")
		}
	})

	t.Run("invalid crawl delay returns error", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		file := &File{Crawl: CrawlConfig{Delay: "fast"}}

		if err := file.ApplyTo(cfg); err == nil {
			t.Error("expected error for invalid crawl delay")
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.a11yscan")
		if err == nil {
			t.Fatal("expected error for non-existent file")
		}
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, ".a11yscan")

		content := `targets:
  - https://example.com/
engines:
  - chrome
  - firefox
viewports:
  - mobile
  - 1920x1080
probes:
  - markup
  - wave
maxWorkers: 2
cellTimeout: 90s
failOn: moderate
crawl:
  enabled: true
  depth: 2
wave:
  apiKey: "secret"
webdriver:
  firefox: http://127.0.0.1:4445
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cf, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(cf.Targets) != 1 || cf.Targets[0] != "https://example.com/" {
			t.Errorf("expected one target, got %v", cf.Targets)
		}
		if len(cf.Engines) != 2 {
			t.Errorf("expected 2 engines, got %v", cf.Engines)
		}
		if len(cf.Viewports) != 2 || cf.Viewports[1] != "1920x1080" {
			t.Errorf("expected viewport list, got %v", cf.Viewports)
		}
		if cf.MaxWorkers != 2 {
			t.Errorf("expected maxWorkers 2, got %d", cf.MaxWorkers)
		}
		if cf.CellTimeout != "90s" {
			t.Errorf("expected cellTimeout 90s, got %q", cf.CellTimeout)
		}
		if cf.FailOn != "moderate" {
			t.Errorf("expected failOn moderate, got %q", cf.FailOn)
		}
		if !cf.Crawl.Enabled || cf.Crawl.Depth != 2 {
			t.Errorf("expected crawl section, got %+v", cf.Crawl)
		}
		if cf.Wave.APIKey != "secret" {
			t.Errorf("expected wave apiKey, got %q", cf.Wave.APIKey)
		}
		if cf.WebDriver["firefox"] != "http://127.0.0.1:4445" {
			t.Errorf("expected firefox webdriver override, got %v", cf.WebDriver)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, ".a11yscan")

		content := `invalid: yaml: content: [}`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfigFile(configPath)
		if err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Run("returns explicit path if exists", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "custom.yaml")

		if err := os.WriteFile(configPath, []byte("engines: [chrome]"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		result := FindConfigFile(configPath)
		if result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		result := FindConfigFile("/nonexistent/path/config.yaml")
		if result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})

	t.Run("returns empty when no config found", func(_ *testing.T) {
		result := FindConfigFile("")
		// This may or may not find a config depending on the system
		// Just ensure it doesn't panic
		_ = result
	})
}
