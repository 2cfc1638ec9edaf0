package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".a11yscan"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// CrawlConfig holds target discovery settings in the configuration file.
type CrawlConfig struct {
	// Enabled turns on same-host link discovery from the seed targets.
	Enabled bool `yaml:"enabled,omitempty"`

	// Depth overrides the discovery link depth.
	Depth int `yaml:"depth,omitempty"`

	// MaxPages overrides the per-seed discovered page cap.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Delay is the politeness delay between discovery requests,
	// in Go duration syntax (e.g. "500ms").
	Delay string `yaml:"delay,omitempty"`
}

// WaveConfig holds WAVE WebAIM API settings in the configuration file.
type WaveConfig struct {
	// APIKey is the WAVE API key. The wave probe is skipped when empty.
	APIKey string `yaml:"apiKey,omitempty"`

	// Endpoint overrides the WAVE API endpoint.
	Endpoint string `yaml:"endpoint,omitempty"`
}

// ValidatorConfig holds Nu HTML Checker settings in the configuration file.
type ValidatorConfig struct {
	// Endpoint overrides the Nu HTML Checker endpoint.
	Endpoint string `yaml:"endpoint,omitempty"`
}

// File represents the structure of the .a11yscan configuration file.
// Durations are written as strings in Go duration syntax ("120s", "2m")
// so the file stays readable.
type File struct {
	// Targets are page URLs to evaluate, merged before CLI arguments.
	Targets []string `yaml:"targets,omitempty"`

	// Engines are rendering engine names (chrome, firefox, edge, safari).
	Engines []string `yaml:"engines,omitempty"`

	// Viewports are viewport presets or WxH pairs.
	Viewports []string `yaml:"viewports,omitempty"`

	// Probes are probe IDs to run in every cell.
	Probes []string `yaml:"probes,omitempty"`

	// MaxWorkers bounds how many cells run concurrently.
	MaxWorkers int `yaml:"maxWorkers,omitempty"`

	// CellTimeout is the per-cell deadline in Go duration syntax.
	CellTimeout string `yaml:"cellTimeout,omitempty"`

	// RunTimeout is the whole-run deadline in Go duration syntax.
	RunTimeout string `yaml:"runTimeout,omitempty"`

	// RequestTimeout is the per-request deadline in Go duration syntax.
	RequestTimeout string `yaml:"requestTimeout,omitempty"`

	// FailOn is the severity threshold for a non-zero exit code.
	FailOn string `yaml:"failOn,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Crawl holds target discovery settings.
	Crawl CrawlConfig `yaml:"crawl,omitempty"`

	// Wave holds WAVE WebAIM API settings.
	Wave WaveConfig `yaml:"wave,omitempty"`

	// Validator holds Nu HTML Checker settings.
	Validator ValidatorConfig `yaml:"validator,omitempty"`

	// WebDriver maps engine names to WebDriver remote URLs.
	WebDriver map[string]string `yaml:"webdriver,omitempty"`
}

// ApplyTo overlays the file values onto cfg. Only values present in the
// file override cfg; zero values leave the existing configuration intact,
// so the precedence order stays defaults, then file, then CLI flags.
func (cf *File) ApplyTo(cfg *Config) error {
	if len(cf.Targets) > 0 {
		cfg.Targets = append(cfg.Targets, cf.Targets...)
	}
	if len(cf.Engines) > 0 {
		cfg.Engines = cf.Engines
	}
	if len(cf.Viewports) > 0 {
		cfg.Viewports = cf.Viewports
	}
	if len(cf.Probes) > 0 {
		cfg.Probes = cf.Probes
	}
	if cf.MaxWorkers != 0 {
		cfg.MaxWorkers = cf.MaxWorkers
	}
	if cf.CellTimeout != "" {
		d, err := time.ParseDuration(cf.CellTimeout)
		if err != nil {
			return fmt.Errorf("invalid cellTimeout in config file: %w", err)
		}
		cfg.CellTimeout = d
	}
	if cf.RunTimeout != "" {
		d, err := time.ParseDuration(cf.RunTimeout)
		if err != nil {
			return fmt.Errorf("invalid runTimeout in config file: %w", err)
		}
		cfg.RunTimeout = d
	}
	if cf.RequestTimeout != "" {
		d, err := time.ParseDuration(cf.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid requestTimeout in config file: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if cf.FailOn != "" {
		cfg.FailOn = cf.FailOn
	}
	if cf.UserAgent != "" {
		cfg.UserAgent = cf.UserAgent
	}

	if cf.Crawl.Enabled {
		cfg.Crawl = true
	}
	if cf.Crawl.Depth != 0 {
		cfg.CrawlDepth = cf.Crawl.Depth
	}
	if cf.Crawl.MaxPages != 0 {
		cfg.CrawlMaxPages = cf.Crawl.MaxPages
	}
	if cf.Crawl.Delay != "" {
		d, err := time.ParseDuration(cf.Crawl.Delay)
		if err != nil {
			return fmt.Errorf("invalid crawl delay in config file: %w", err)
		}
		cfg.CrawlDelay = d
	}

	if cf.Wave.APIKey != "" {
		cfg.WaveAPIKey = cf.Wave.APIKey
	}
	if cf.Wave.Endpoint != "" {
		cfg.WaveEndpoint = cf.Wave.Endpoint
	}
	if cf.Validator.Endpoint != "" {
		cfg.ValidatorEndpoint = cf.Validator.Endpoint
	}

	for engine, endpoint := range cf.WebDriver {
		if cfg.WebDriverEndpoints == nil {
			cfg.WebDriverEndpoints = make(map[string]string)
		}
		cfg.WebDriverEndpoints[engine] = endpoint
	}

	return nil
}

// LoadConfigFile loads configuration from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .a11yscan in the current directory
// 3. Look for .a11yscan in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	// If explicit path is provided, use it
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	// Check current directory
	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	// Check home directory
	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
