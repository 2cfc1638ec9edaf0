package probe

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Registry errors.
var (
	// ErrDuplicateProbe is returned when registering an ID twice.
	ErrDuplicateProbe = errors.New("probe ID already registered")

	// ErrInvalidDefinition is returned when a definition lacks an ID or
	// a constructor.
	ErrInvalidDefinition = errors.New("probe definition requires an ID and a constructor")
)

// Definition describes a registered probe.
type Definition struct {
	// ID is the probe's stable identifier.
	ID string

	// NeedsHandle reports whether instances read the rendered DOM.
	NeedsHandle bool

	// Reusable reports whether one instance may serve every cell.
	// Reusable probes are constructed once at resolve time; probes that
	// hold per-invocation mutable state are constructed per cell.
	Reusable bool

	// Enabled, when non-nil, gates the probe on runtime configuration.
	// A non-nil return excludes the probe from resolution with a
	// warning carrying the returned reason. Used for credential checks.
	Enabled func(cfg *Config) error

	// New constructs a probe instance.
	New func(cfg *Config) (Probe, error)
}

// Selection is a resolved probe ready to serve cells.
// For reusable probes it carries the shared instance; otherwise it
// constructs a fresh instance per Probe call.
type Selection struct {
	def    Definition
	cfg    *Config
	shared Probe
}

// ID returns the selected probe's identifier.
func (s Selection) ID() string {
	return s.def.ID
}

// NeedsHandle reports whether the selected probe reads the rendered DOM.
func (s Selection) NeedsHandle() bool {
	return s.def.NeedsHandle
}

// Probe returns the instance to run in a cell. Reusable probes return
// the shared instance; others construct a fresh one. A construction
// error here becomes a probe-construction failure in that cell only.
func (s Selection) Probe() (Probe, error) {
	if s.shared != nil {
		return s.shared, nil
	}
	p, err := s.def.New(s.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to construct probe %s: %w", s.def.ID, err)
	}
	return p, nil
}

// Registry maps probe IDs to definitions.
//
// Design decision: Resolution filters instead of failing because a run
// should proceed with whatever probes are actually available. A typo in
// one probe ID or a missing API key costs that probe's evidence, not
// the whole matrix.
type Registry struct {
	// mu guards defs and order. Registration happens at startup but
	// resolution may be called from tests concurrently.
	mu sync.RWMutex

	// defs maps probe IDs to their definitions.
	defs map[string]Definition

	// order preserves registration order so default probe lists and
	// reports stay stable.
	order []string
}

// NewRegistry creates an empty registry.
// Built-in probes are added with DefaultRegistry.
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[string]Definition),
	}
}

// Register adds a probe definition.
// Registering a duplicate ID or an incomplete definition is an error;
// this is programmer error at startup, not a runtime condition.
func (r *Registry) Register(def Definition) error {
	if def.ID == "" || def.New == nil {
		return ErrInvalidDefinition
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProbe, def.ID)
	}
	r.defs[def.ID] = def
	r.order = append(r.order, def.ID)
	return nil
}

// IDs returns all registered probe IDs in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Resolve filters the requested IDs to runnable probes.
// Unknown IDs, gated probes whose predicate rejects the configuration,
// and reusable probes whose construction fails are dropped with a
// warning. Duplicate IDs in the request are resolved once.
func (r *Registry) Resolve(ids []string, cfg *Config) []Selection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	logger := cfg.logger()
	selections := make([]Selection, 0, len(ids))
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		def, ok := r.defs[id]
		if !ok {
			logger.Warn("unknown probe ID, skipping",
				slog.String("probe", id))
			continue
		}

		if def.Enabled != nil {
			if err := def.Enabled(cfg); err != nil {
				logger.Warn("probe disabled, skipping",
					slog.String("probe", id),
					slog.String("reason", err.Error()))
				continue
			}
		}

		sel := Selection{def: def, cfg: cfg}
		if def.Reusable {
			p, err := def.New(cfg)
			if err != nil {
				logger.Warn("probe construction failed, skipping",
					slog.String("probe", id),
					slog.String("error", err.Error()))
				continue
			}
			sel.shared = p
		}

		selections = append(selections, sel)
	}

	return selections
}

// Built-in probe IDs.
const (
	// ProbeMarkup checks document structure: alternative text, link and
	// button names, labels, headings, titles.
	ProbeMarkup = "markup"

	// ProbeViewport checks the viewport meta configuration for zoom and
	// scaling restrictions.
	ProbeViewport = "viewport"

	// ProbeLanguage checks document and element language declarations.
	ProbeLanguage = "language"

	// ProbeWave submits the target to the WAVE WebAIM API.
	ProbeWave = "wave"

	// ProbeValidator submits the target to the Nu HTML Checker.
	ProbeValidator = "validator"
)

// DefaultRegistry creates a registry with all built-in probes registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Registration cannot fail for the built-in set; the IDs are unique
	// constants and every definition has a constructor.
	_ = r.Register(Definition{ //nolint:errcheck
		ID:          ProbeMarkup,
		NeedsHandle: true,
		Reusable:    true,
		New: func(_ *Config) (Probe, error) {
			return NewMarkupProbe(), nil
		},
	})
	_ = r.Register(Definition{ //nolint:errcheck
		ID:          ProbeViewport,
		NeedsHandle: true,
		Reusable:    true,
		New: func(_ *Config) (Probe, error) {
			return NewViewportProbe(), nil
		},
	})
	_ = r.Register(Definition{ //nolint:errcheck
		ID:          ProbeLanguage,
		NeedsHandle: true,
		Reusable:    true,
		New: func(_ *Config) (Probe, error) {
			return NewLanguageProbe(), nil
		},
	})
	_ = r.Register(Definition{ //nolint:errcheck
		ID:          ProbeWave,
		NeedsHandle: false,
		Reusable:    true,
		Enabled: func(cfg *Config) error {
			if cfg.WaveAPIKey == "" {
				return errors.New("WAVE API key not configured")
			}
			return nil
		},
		New: func(cfg *Config) (Probe, error) {
			return NewWaveProbe(cfg)
		},
	})
	_ = r.Register(Definition{ //nolint:errcheck
		ID:          ProbeValidator,
		NeedsHandle: false,
		Reusable:    true,
		New: func(cfg *Config) (Probe, error) {
			return NewValidatorProbe(cfg)
		},
	})

	return r
}
