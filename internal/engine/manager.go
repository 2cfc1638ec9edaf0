package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/nao1215/a11yscan/internal/model"
)

// Manager creates, configures, and releases rendering sessions.
// It routes acquisition requests to the Provider registered for each
// engine kind.
//
// Design decision: Handles are never pooled or reused across cells.
// Every Acquire call creates a fresh session because:
// 1. A rendering session is stateful (cookies, zoom, focus) and reuse
//    would leak state between unrelated evaluations
// 2. A crashed session poisons only its own cell instead of every cell
//    that would have drawn it from a pool
// 3. Session startup cost is small next to probe time at this scale
type Manager struct {
	// providers maps engine kinds to their session providers.
	providers map[model.EngineKind]Provider

	// mu guards providers. Registration happens at startup but the
	// matrix workers read the map concurrently.
	mu sync.RWMutex

	// logger is used for structured logging of configure and release
	// failures, which are reported but never fail a cell.
	logger *slog.Logger
}

// Option is a function that configures a Manager.
// This follows the functional options pattern for clean API design.
type Option func(*Manager)

// WithLogger sets a custom logger for the manager.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager with the given options.
// Providers are added with Register after creation.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		providers: make(map[model.EngineKind]Provider),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Register adds a provider for its engine kind.
// Registering a second provider for the same kind replaces the first.
func (m *Manager) Register(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.Engine()] = p
}

// Provider returns the provider registered for the given engine kind.
func (m *Manager) Provider(kind model.EngineKind) (Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[kind]
	return p, ok
}

// Engines returns the registered engine kinds in sorted order.
func (m *Manager) Engines() []model.EngineKind {
	m.mu.RLock()
	defer m.mu.RUnlock()

	kinds := make([]model.EngineKind, 0, len(m.providers))
	for kind := range m.providers {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// CheckProviders runs the availability check of every registered provider
// and returns the result per engine kind. A nil map value means the
// provider can create sessions. Callers use this before a run to drop
// unreachable engines with a warning instead of failing their cells.
func (m *Manager) CheckProviders(ctx context.Context) map[model.EngineKind]error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make(map[model.EngineKind]error, len(m.providers))
	for kind, p := range m.providers {
		results[kind] = p.Available(ctx)
	}
	return results
}

// Acquire creates a fresh session for the given engine kind.
// The caller owns the handle and must release it with Release.
// Failure is returned, never raised; the cell runner converts it into
// per-probe handle-unavailable outcomes.
func (m *Manager) Acquire(ctx context.Context, kind model.EngineKind) (Handle, error) {
	p, ok := m.Provider(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, kind)
	}

	handle, err := p.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAcquireFailed, kind, err)
	}

	return handle, nil
}

// Configure applies the viewport dimensions to the handle.
// Resize failure is logged and swallowed. Some probes can still produce
// useful findings at the session's default size, so a failed resize
// narrows the cell's evidence instead of aborting it.
func (m *Manager) Configure(ctx context.Context, h Handle, width, height int) {
	if err := h.Resize(ctx, width, height); err != nil {
		m.logger.WarnContext(ctx, "viewport resize failed, continuing at default size",
			slog.String("session_id", h.ID()),
			slog.String("engine", string(h.Engine())),
			slog.Int("width", width),
			slog.Int("height", height),
			slog.String("error", err.Error()))
	}
}

// Release tears the handle down. Close errors are logged, not returned,
// because the cell's result is already assembled by the time teardown
// runs and a failed teardown must not overwrite it. Handles make Close
// idempotent, so calling Release on an already-closed handle is safe.
func (m *Manager) Release(ctx context.Context, h Handle) {
	if h == nil {
		return
	}
	if err := h.Close(ctx); err != nil {
		m.logger.WarnContext(ctx, "session teardown failed",
			slog.String("session_id", h.ID()),
			slog.String("engine", string(h.Engine())),
			slog.String("error", err.Error()))
	}
}
