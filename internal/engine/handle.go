package engine

import (
	"context"

	"github.com/nao1215/a11yscan/internal/model"
)

// Handle is an exclusively owned rendering-engine session.
// Each matrix cell gets a fresh handle; probes within the cell use it
// sequentially and the cell runner closes it when the cell finishes.
//
// Close must be idempotent. The cell runner releases the handle on every
// exit path including probe panics, and a second Close must return nil
// rather than failing the cell.
type Handle interface {
	// ID returns the session identifier assigned by the engine.
	ID() string

	// Engine returns the rendering engine kind this session runs on.
	Engine() model.EngineKind

	// Navigate loads the given URL in the session.
	Navigate(ctx context.Context, url string) error

	// Title returns the current page title.
	Title(ctx context.Context) (string, error)

	// Source returns the serialized DOM of the current page.
	// This is the rendered document, not the raw HTTP response body.
	Source(ctx context.Context) (string, error)

	// Resize sets the session viewport to the given dimensions in pixels.
	Resize(ctx context.Context, width, height int) error

	// Close tears the session down. It is safe to call more than once;
	// calls after the first return nil.
	Close(ctx context.Context) error
}

// Provider creates rendering sessions for a single engine kind.
// Implementations talk to one driver endpoint (chromedriver, geckodriver,
// and so on) and report whether that endpoint is reachable.
type Provider interface {
	// Engine returns the engine kind this provider creates sessions for.
	Engine() model.EngineKind

	// Available reports whether the provider can currently create
	// sessions. A non-nil error describes why it cannot (driver not
	// running, driver busy). Callers use this to skip an engine with a
	// warning instead of failing every cell on that axis.
	Available(ctx context.Context) error

	// Create starts a new session. The caller owns the returned handle
	// and must Close it.
	Create(ctx context.Context) (Handle, error)
}
