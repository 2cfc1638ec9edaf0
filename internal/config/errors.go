package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoTarget is returned when no target URL or target file is specified.
	ErrNoTarget = errors.New("no target specified: provide a URL or use --target-file")

	// ErrNoEngine is returned when the engine list is empty.
	// Without an engine there is no variant axis and no cells to run.
	ErrNoEngine = errors.New("no rendering engine specified")

	// ErrNoViewport is returned when the viewport list is empty.
	ErrNoViewport = errors.New("no viewport specified")

	// ErrInvalidMaxWorkers is returned when the worker count is not positive.
	// Zero workers would mean no cell ever runs.
	ErrInvalidMaxWorkers = errors.New("invalid max workers: must be positive")

	// ErrInvalidCellTimeout is returned when the per-cell deadline is not
	// positive. Cells without a deadline could hang the whole run on one
	// stuck rendering session.
	ErrInvalidCellTimeout = errors.New("invalid cell timeout: must be positive")

	// ErrInvalidRequestTimeout is returned when the HTTP request timeout is
	// not positive.
	ErrInvalidRequestTimeout = errors.New("invalid request timeout: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// A negative delay is invalid; use 0 for no delay between requests.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
