package probe

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/nao1215/a11yscan/internal/engine"
	"github.com/nao1215/a11yscan/internal/model"
)

// Probe evaluates one target page within one matrix cell.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows probes to carry configuration state (API keys, endpoints)
// 2. It provides ID and NeedsHandle for scheduling decisions
// 3. It enables testing the cell runner with mock probes
type Probe interface {
	// ID returns the probe's stable identifier, used in outcomes,
	// reports, and the database.
	ID() string

	// NeedsHandle reports whether the probe reads the rendered DOM.
	// The cell runner only acquires a rendering session when at least
	// one resolved probe needs one, and passes nil to probes that don't.
	NeedsHandle() bool

	// Run evaluates the target and returns findings.
	// Handle is nil when NeedsHandle is false. A returned error marks
	// the probe's outcome as failed without affecting sibling probes.
	Run(ctx context.Context, target model.Target, handle engine.Handle) ([]model.Finding, error)
}

// Config carries the shared dependencies probes are constructed with.
//
// Design decision: We pass all dependencies in a single struct rather
// than per-probe parameters because:
// 1. Not all probes need all dependencies
// 2. Adding a dependency doesn't change constructor signatures
// 3. Easier to build once in the scan command and hand to the registry
type Config struct {
	// HTTPClient executes external API requests (WAVE, Nu checker).
	// Probes must not use http.DefaultClient; the scan command injects
	// a client with the configured request timeout.
	HTTPClient *http.Client

	// UserAgent is sent with external API requests.
	UserAgent string

	// MaxBodySize caps how many response bytes API probes read.
	MaxBodySize int64

	// WaveAPIKey is the WAVE WebAIM API key. The wave probe is excluded
	// at resolve time when this is empty.
	WaveAPIKey string

	// WaveEndpoint is the WAVE API endpoint.
	WaveEndpoint string

	// ValidatorEndpoint is the Nu HTML Checker endpoint.
	ValidatorEndpoint string

	// Logger is used for warning-level resolution diagnostics.
	Logger *slog.Logger
}

// logger returns the configured logger or the default one.
func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
