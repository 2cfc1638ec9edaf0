package webdriver

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/nao1215/a11yscan/internal/engine"
	"github.com/nao1215/a11yscan/internal/model"
)

// Session is a live browser session owned by exactly one matrix cell.
// It implements engine.Handle.
type Session struct {
	// client is the protocol client the session was created through.
	client *Client

	// id is the session identifier assigned by the driver.
	id string

	// closed flips to true on the first Close. Later Close calls return
	// nil without contacting the driver, which makes the scoped
	// acquire/release discipline in the cell runner safe even when a
	// probe path already tore the session down.
	closed atomic.Bool
}

// Compile-time check that Session satisfies the handle contract.
var _ engine.Handle = (*Session)(nil)

// ID returns the session identifier assigned by the driver.
func (s *Session) ID() string {
	return s.id
}

// Engine returns the rendering engine kind this session runs on.
func (s *Session) Engine() model.EngineKind {
	return s.client.Engine()
}

// Navigate loads the given URL and blocks until the document is ready,
// per the driver's page load strategy.
func (s *Session) Navigate(ctx context.Context, url string) error {
	body := map[string]any{"url": url}
	if err := s.client.do(ctx, http.MethodPost, s.path("/url"), body, nil); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Title returns the current page title.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.client.do(ctx, http.MethodGet, s.path("/title"), nil, &title); err != nil {
		return "", fmt.Errorf("failed to read page title: %w", err)
	}
	return title, nil
}

// Source returns the serialized DOM of the current page.
// This reflects what the engine rendered, including markup produced by
// scripts, which is what accessibility probes need to evaluate.
func (s *Session) Source(ctx context.Context) (string, error) {
	var source string
	if err := s.client.do(ctx, http.MethodGet, s.path("/source"), nil, &source); err != nil {
		return "", fmt.Errorf("failed to read page source: %w", err)
	}
	return source, nil
}

// Resize sets the session window to the given dimensions in pixels.
func (s *Session) Resize(ctx context.Context, width, height int) error {
	body := map[string]any{"width": width, "height": height}
	if err := s.client.do(ctx, http.MethodPost, s.path("/window/rect"), body, nil); err != nil {
		return fmt.Errorf("failed to resize window to %dx%d: %w", width, height, err)
	}
	return nil
}

// Close deletes the session on the driver. It is idempotent; only the
// first call issues the protocol command.
func (s *Session) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.client.do(ctx, http.MethodDelete, s.path(""), nil, nil); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", s.id, err)
	}
	return nil
}

// path builds a session-scoped command path.
func (s *Session) path(suffix string) string {
	return "/session/" + s.id + suffix
}
