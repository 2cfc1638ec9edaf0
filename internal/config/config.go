package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/a11yscan/internal/model"
)

// Default configuration values.
// These values match the behavior users expect from accessibility test
// matrices: small bounded concurrency, generous per-cell deadlines, and
// polite crawling.
const (
	// DefaultMaxWorkers bounds how many cells run concurrently. Each cell
	// holds a full rendering session (a browser process plus a WebDriver
	// connection), so four concurrent cells is already a substantial load
	// on a developer machine or CI runner.
	DefaultMaxWorkers = 4

	// DefaultCellTimeout is the deadline for one cell: session startup,
	// navigation, and every probe. Rendering sessions start slowly under
	// load and external checker APIs add seconds per call, so the default
	// is generous. A cell hitting this deadline is reported, not retried.
	DefaultCellTimeout = 120 * time.Second

	// DefaultRequestTimeout applies to individual HTTP requests: WebDriver
	// commands, WAVE API calls, Nu checker calls, and crawl fetches.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultCrawlDepth of 1 expands each seed target by one level of
	// same-host links. Accessibility runs usually evaluate a curated page
	// list, so discovery is shallow by default.
	DefaultCrawlDepth = 1

	// DefaultCrawlMaxPages caps discovery per seed target. The matrix
	// multiplies every discovered page by every variant, so a small cap
	// keeps run sizes predictable.
	DefaultCrawlMaxPages = 10

	// DefaultCrawlDelay is the politeness delay between discovery requests.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultUserAgent identifies a11yscan in HTTP requests.
	// A descriptive User-Agent lets site operators identify scanner traffic.
	DefaultUserAgent = "a11yscan/1.0 (+https://github.com/nao1215/a11yscan)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is sufficient for most HTML pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// AppName is the application name used for XDG directory paths.
	AppName = "a11yscan"

	// DefaultWaveEndpoint is the WAVE WebAIM REST API endpoint.
	DefaultWaveEndpoint = "https://wave.webaim.org/api/request"

	// DefaultValidatorEndpoint is the Nu HTML Checker endpoint.
	DefaultValidatorEndpoint = "https://validator.w3.org/nu/"
)

// Default WebDriver endpoints per engine. These are the conventional local
// ports of each driver binary; all of them can be overridden in the config
// file. Edge and Safari get offset ports to avoid colliding with Chrome and
// Firefox when several drivers run side by side.
const (
	DefaultChromeDriverURL  = "http://127.0.0.1:9515"
	DefaultFirefoxDriverURL = "http://127.0.0.1:4444"
	DefaultEdgeDriverURL    = "http://127.0.0.1:9516"
	DefaultSafariDriverURL  = "http://127.0.0.1:4447"
)

// Config holds all configuration options for a11yscan.
// This struct is designed to be populated from CLI flags and the optional
// config file, then passed through the application via dependency injection
// rather than global state.
type Config struct {
	// Targets is the list of page URLs to evaluate.
	// At least one target is required after file and flag merging.
	Targets []string

	// TargetFile is a path to a newline-separated list of target URLs.
	// Loaded by the scan command and appended to Targets.
	TargetFile string

	// Engines is the list of rendering engines forming one matrix axis.
	// Valid names: chrome, firefox, edge, safari.
	Engines []string

	// Viewports is the list of viewport specs forming the other matrix
	// axis. Each entry is a preset name (mobile, tablet, desktop) or a
	// WxH pair such as "1920x1080".
	Viewports []string

	// Probes is the list of probe IDs to run in every cell.
	// Unknown or unavailable IDs are dropped with a warning, not an error.
	Probes []string

	// MaxWorkers bounds how many cells run concurrently.
	MaxWorkers int

	// CellTimeout is the deadline for a single cell.
	CellTimeout time.Duration

	// RunTimeout is the optional deadline for the whole run.
	// Zero means no run-level deadline.
	RunTimeout time.Duration

	// RequestTimeout applies to individual HTTP requests.
	RequestTimeout time.Duration

	// Crawl enables same-host target discovery from the seed targets.
	Crawl bool

	// CrawlDepth is the link depth for target discovery.
	CrawlDepth int

	// CrawlMaxPages caps discovered pages per seed target.
	CrawlMaxPages int

	// CrawlDelay is the politeness delay between discovery requests.
	CrawlDelay time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of human-readable text.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of
	// human-readable text. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// ConfigFilePath is the path to the configuration file. If empty, the
	// tool searches for .a11yscan in the current directory and then in the
	// user's home directory.
	ConfigFilePath string

	// WaveAPIKey is the WAVE WebAIM API key. When empty the wave probe is
	// excluded from runs rather than failing them.
	WaveAPIKey string

	// WaveEndpoint is the WAVE API endpoint, overridable for testing.
	WaveEndpoint string

	// ValidatorEndpoint is the Nu HTML Checker endpoint, overridable for
	// testing.
	ValidatorEndpoint string

	// WebDriverEndpoints maps engine names to WebDriver remote URLs.
	WebDriverEndpoints map[string]string

	// DBDir is the directory path for storing the SQLite run history.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether to persist results for later comparison.
	// Disabled by the --no-db flag.
	SaveToDB bool

	// FailOn makes the scan command exit non-zero when findings at or
	// above this severity exist ("critical", "serious", ...). Empty means
	// the exit code reflects only orchestration-level failure, so CI can
	// opt in to gating without changing the default contract.
	FailOn string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero. This also serves as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Engines:           []string{string(model.EngineChrome)},
		Viewports:         []string{model.ViewportMobile, model.ViewportTablet, model.ViewportDesktop},
		MaxWorkers:        DefaultMaxWorkers,
		CellTimeout:       DefaultCellTimeout,
		RequestTimeout:    DefaultRequestTimeout,
		CrawlDepth:        DefaultCrawlDepth,
		CrawlMaxPages:     DefaultCrawlMaxPages,
		CrawlDelay:        DefaultCrawlDelay,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		WaveEndpoint:      DefaultWaveEndpoint,
		ValidatorEndpoint: DefaultValidatorEndpoint,
		WebDriverEndpoints: map[string]string{
			string(model.EngineChrome):  DefaultChromeDriverURL,
			string(model.EngineFirefox): DefaultFirefoxDriverURL,
			string(model.EngineEdge):    DefaultEdgeDriverURL,
			string(model.EngineSafari):  DefaultSafariDriverURL,
		},
		DBDir:    XDGDataDir(),
		SaveToDB: true,
	}
}

// XDGDataDir returns the XDG data directory for a11yscan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/a11yscan
// On macOS: ~/Library/Application Support/a11yscan
// On Windows: %LOCALAPPDATA%\a11yscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for a11yscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for a11yscan.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any scanning begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	if len(c.Engines) == 0 {
		return ErrNoEngine
	}
	for _, engine := range c.Engines {
		if _, err := model.ParseEngineKind(engine); err != nil {
			return err
		}
	}

	if len(c.Viewports) == 0 {
		return ErrNoViewport
	}
	for _, viewport := range c.Viewports {
		if _, _, err := model.ParseViewport(viewport); err != nil {
			return err
		}
	}

	if c.MaxWorkers <= 0 {
		return ErrInvalidMaxWorkers
	}

	if c.CellTimeout <= 0 {
		return ErrInvalidCellTimeout
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidRequestTimeout
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.FailOn != "" {
		if _, err := model.ParseSeverity(c.FailOn); err != nil {
			return fmt.Errorf("invalid --fail-on value: %w", err)
		}
	}

	return nil
}
