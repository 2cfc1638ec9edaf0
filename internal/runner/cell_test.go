package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/a11yscan/internal/engine"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/probe"
)

// trackingProvider creates trackingHandles and keeps session accounting:
// how many sessions were created, how many closed, and the high-water mark
// of simultaneously open sessions.
type trackingProvider struct {
	engine      model.EngineKind
	createErr   error
	navigateErr error
	source      string
	sourceErr   error

	mu        sync.Mutex
	created   int
	closed    int
	open      int
	highWater int
}

// Engine implements engine.Provider.
func (p *trackingProvider) Engine() model.EngineKind { return p.engine }

// Available implements engine.Provider.
func (p *trackingProvider) Available(_ context.Context) error { return nil }

// Create implements engine.Provider.
func (p *trackingProvider) Create(_ context.Context) (engine.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.createErr != nil {
		return nil, p.createErr
	}

	p.created++
	p.open++
	if p.open > p.highWater {
		p.highWater = p.open
	}

	return &trackingHandle{
		provider:    p,
		id:          fmt.Sprintf("session-%d", p.created),
		navigateErr: p.navigateErr,
		source:      p.source,
		sourceErr:   p.sourceErr,
	}, nil
}

// handleClosed records a session teardown.
func (p *trackingProvider) handleClosed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	p.open--
}

// counts returns the provider's session accounting.
func (p *trackingProvider) counts() (created, closed, highWater int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created, p.closed, p.highWater
}

// trackingHandle reports its teardown back to the provider.
// Close is idempotent: only the first call counts.
type trackingHandle struct {
	provider    *trackingProvider
	id          string
	navigateErr error
	source      string
	sourceErr   error
	closed      atomic.Bool
}

// ID implements engine.Handle.
func (h *trackingHandle) ID() string { return h.id }

// Engine implements engine.Handle.
func (h *trackingHandle) Engine() model.EngineKind { return h.provider.engine }

// Navigate implements engine.Handle.
func (h *trackingHandle) Navigate(_ context.Context, _ string) error { return h.navigateErr }

// Title implements engine.Handle.
func (h *trackingHandle) Title(_ context.Context) (string, error) { return "", nil }

// Source implements engine.Handle.
func (h *trackingHandle) Source(_ context.Context) (string, error) {
	if h.sourceErr != nil {
		return "", h.sourceErr
	}
	return h.source, nil
}

// Resize implements engine.Handle.
func (h *trackingHandle) Resize(_ context.Context, _, _ int) error { return nil }

// Close implements engine.Handle.
func (h *trackingHandle) Close(_ context.Context) error {
	if h.closed.CompareAndSwap(false, true) {
		h.provider.handleClosed()
	}
	return nil
}

// scriptedProbe is a configurable probe for runner tests.
type scriptedProbe struct {
	id          string
	needsHandle bool
	findings    []model.Finding
	err         error
	panicMsg    string

	// hang, when set, sleeps without honoring the context, simulating a
	// stuck probe that the cell deadline must abandon.
	hang time.Duration

	mu   sync.Mutex
	runs int
}

// ID implements probe.Probe.
func (p *scriptedProbe) ID() string { return p.id }

// NeedsHandle implements probe.Probe.
func (p *scriptedProbe) NeedsHandle() bool { return p.needsHandle }

// Run implements probe.Probe.
func (p *scriptedProbe) Run(_ context.Context, _ model.Target, _ engine.Handle) ([]model.Finding, error) {
	p.mu.Lock()
	p.runs++
	p.mu.Unlock()

	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	if p.hang > 0 {
		time.Sleep(p.hang)
	}
	return p.findings, p.err
}

// runCount returns how many times the probe ran.
func (p *scriptedProbe) runCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

// discardLogger returns a logger that writes nowhere.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// selectionsFor registers the given probes as reusable definitions and
// resolves them in order.
func selectionsFor(t *testing.T, probes ...*scriptedProbe) []probe.Selection {
	t.Helper()

	r := probe.NewRegistry()
	ids := make([]string, 0, len(probes))
	for _, p := range probes {
		p := p
		err := r.Register(probe.Definition{
			ID:          p.id,
			NeedsHandle: p.needsHandle,
			Reusable:    true,
			New: func(_ *probe.Config) (probe.Probe, error) {
				return p, nil
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids = append(ids, p.id)
	}

	return r.Resolve(ids, &probe.Config{Logger: discardLogger()})
}

// testManager builds a session manager backed by the given provider.
func testManager(provider *trackingProvider) *engine.Manager {
	m := engine.NewManager(engine.WithLogger(discardLogger()))
	m.Register(provider)
	return m
}

// chromeVariant is the variant used by most cell tests.
var chromeVariant = model.EnvironmentVariant{Engine: model.EngineChrome, Width: 375, Height: 667}

// TestCellRunnerRun tests the normal path and the degraded paths.
func TestCellRunnerRun(t *testing.T) {
	t.Parallel()

	t.Run("all probes succeed", func(t *testing.T) {
		t.Parallel()

		provider := &trackingProvider{engine: model.EngineChrome, source: "<html></html>"}
		domProbe := &scriptedProbe{id: "dom", needsHandle: true, findings: []model.Finding{
			model.NewFinding("img_alt_missing", "image without alt", "", "img"),
		}}
		freeProbe := &scriptedProbe{id: "free", needsHandle: false}

		r := NewCellRunner(testManager(provider), WithCellLogger(discardLogger()))
		result := r.Run(context.Background(), model.MustNewTarget("https://example.com/"), chromeVariant,
			selectionsFor(t, domProbe, freeProbe))

		if result.State != model.CellCompleted {
			t.Errorf("state = %v, expected CellCompleted", result.State)
		}
		if len(result.Outcomes) != 2 {
			t.Fatalf("expected 2 outcomes, got %d", len(result.Outcomes))
		}
		for id, outcome := range result.Outcomes {
			if !outcome.Success {
				t.Errorf("expected outcome %s to succeed, got %s: %s", id, outcome.ErrorKindText, outcome.Message)
			}
		}
		if result.Counts().Critical != 1 {
			t.Errorf("expected 1 critical finding, got %d", result.Counts().Critical)
		}
		if result.SourceDigest == "" {
			t.Error("expected a source digest after successful navigation")
		}

		created, closed, _ := provider.counts()
		if created != 1 || closed != 1 {
			t.Errorf("expected 1 session created and closed, got created=%d closed=%d", created, closed)
		}
	})

	t.Run("handle-free run skips acquisition", func(t *testing.T) {
		t.Parallel()

		provider := &trackingProvider{engine: model.EngineChrome}
		freeProbe := &scriptedProbe{id: "free", needsHandle: false}

		r := NewCellRunner(testManager(provider), WithCellLogger(discardLogger()))
		result := r.Run(context.Background(), model.MustNewTarget("https://example.com/"), chromeVariant,
			selectionsFor(t, freeProbe))

		if result.State != model.CellCompleted {
			t.Errorf("state = %v, expected CellCompleted", result.State)
		}
		if result.SourceDigest != "" {
			t.Error("expected no source digest without a session")
		}

		created, _, _ := provider.counts()
		if created != 0 {
			t.Errorf("expected no session, got %d", created)
		}
	})

	t.Run("acquisition failure degrades the cell", func(t *testing.T) {
		t.Parallel()

		provider := &trackingProvider{
			engine:    model.EngineChrome,
			createErr: errors.New("driver not running"),
		}
		domProbe := &scriptedProbe{id: "dom", needsHandle: true}
		freeProbe := &scriptedProbe{id: "free", needsHandle: false}

		r := NewCellRunner(testManager(provider), WithCellLogger(discardLogger()))
		result := r.Run(context.Background(), model.MustNewTarget("https://example.com/"), chromeVariant,
			selectionsFor(t, domProbe, freeProbe))

		if result.State != model.CellPartiallyCompleted {
			t.Errorf("state = %v, expected CellPartiallyCompleted", result.State)
		}
		if result.HandleError == "" {
			t.Error("expected the acquisition error to be recorded")
		}

		dom := result.Outcomes["dom"]
		if dom.Success || dom.ErrorKind != model.ErrorKindHandleUnavailable {
			t.Errorf("expected handle-unavailable outcome for dom probe, got %+v", dom)
		}
		if domProbe.runCount() != 0 {
			t.Errorf("expected dom probe not to run, ran %d times", domProbe.runCount())
		}

		free := result.Outcomes["free"]
		if !free.Success {
			t.Errorf("expected handle-free probe to succeed, got %s: %s", free.ErrorKindText, free.Message)
		}
	})

	t.Run("navigation failure degrades the cell but releases the session", func(t *testing.T) {
		t.Parallel()

		provider := &trackingProvider{
			engine:      model.EngineChrome,
			navigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED"),
		}
		domProbe := &scriptedProbe{id: "dom", needsHandle: true}
		freeProbe := &scriptedProbe{id: "free", needsHandle: false}

		r := NewCellRunner(testManager(provider), WithCellLogger(discardLogger()))
		result := r.Run(context.Background(), model.MustNewTarget("https://example.com/"), chromeVariant,
			selectionsFor(t, domProbe, freeProbe))

		if result.State != model.CellPartiallyCompleted {
			t.Errorf("state = %v, expected CellPartiallyCompleted", result.State)
		}
		if !strings.Contains(result.HandleError, "navigation failed") {
			t.Errorf("expected a navigation failure message, got %q", result.HandleError)
		}
		if result.SourceDigest != "" {
			t.Error("expected no source digest after failed navigation")
		}

		dom := result.Outcomes["dom"]
		if dom.Success || dom.ErrorKind != model.ErrorKindHandleUnavailable {
			t.Errorf("expected handle-unavailable outcome for dom probe, got %+v", dom)
		}
		if !result.Outcomes["free"].Success {
			t.Error("expected handle-free probe to succeed")
		}

		created, closed, _ := provider.counts()
		if created != 1 || closed != 1 {
			t.Errorf("expected the session to be released, got created=%d closed=%d", created, closed)
		}
	})

	t.Run("digest read failure costs only the digest", func(t *testing.T) {
		t.Parallel()

		provider := &trackingProvider{
			engine:    model.EngineChrome,
			sourceErr: errors.New("source unavailable"),
		}
		domProbe := &scriptedProbe{id: "dom", needsHandle: true}

		r := NewCellRunner(testManager(provider), WithCellLogger(discardLogger()))
		result := r.Run(context.Background(), model.MustNewTarget("https://example.com/"), chromeVariant,
			selectionsFor(t, domProbe))

		if result.State != model.CellCompleted {
			t.Errorf("state = %v, expected CellCompleted", result.State)
		}
		if result.SourceDigest != "" {
			t.Error("expected no digest when the source read fails")
		}
		if !result.Outcomes["dom"].Success {
			t.Error("expected probe to run despite the digest failure")
		}
	})
}

// TestCellRunnerIsolation tests that one probe's failure never affects its
// siblings.
func TestCellRunnerIsolation(t *testing.T) {
	t.Parallel()

	t.Run("probe error is contained", func(t *testing.T) {
		t.Parallel()

		provider := &trackingProvider{engine: model.EngineChrome}
		failing := &scriptedProbe{id: "failing", needsHandle: true, err: errors.New("evaluation broke")}
		healthy := &scriptedProbe{id: "healthy", needsHandle: true}

		r := NewCellRunner(testManager(provider), WithCellLogger(discardLogger()))
		result := r.Run(context.Background(), model.MustNewTarget("https://example.com/"), chromeVariant,
			selectionsFor(t, failing, healthy))

		if result.State != model.CellCompleted {
			t.Errorf("state = %v, expected CellCompleted", result.State)
		}

		failed := result.Outcomes["failing"]
		if failed.Success || failed.ErrorKind != model.ErrorKindProbe {
			t.Errorf("expected probe-error outcome, got %+v", failed)
		}
		if failed.Message != "evaluation broke" {
			t.Errorf("expected the probe's error message, got %q", failed.Message)
		}
		if !result.Outcomes["healthy"].Success {
			t.Error("expected the sibling probe to succeed")
		}
	})

	t.Run("probe panic is contained", func(t *testing.T) {
		t.Parallel()

		provider := &trackingProvider{engine: model.EngineChrome}
		panicking := &scriptedProbe{id: "panicking", needsHandle: true, panicMsg: "nil dereference"}
		healthy := &scriptedProbe{id: "healthy", needsHandle: true}

		r := NewCellRunner(testManager(provider), WithCellLogger(discardLogger()))
		result := r.Run(context.Background(), model.MustNewTarget("https://example.com/"), chromeVariant,
			selectionsFor(t, panicking, healthy))

		if result.State != model.CellCompleted {
			t.Errorf("state = %v, expected CellCompleted", result.State)
		}

		panicked := result.Outcomes["panicking"]
		if panicked.Success || panicked.ErrorKind != model.ErrorKindProbe {
			t.Errorf("expected probe-error outcome, got %+v", panicked)
		}
		if !strings.Contains(panicked.Message, "probe panicked") {
			t.Errorf("expected a panic message, got %q", panicked.Message)
		}
		if !result.Outcomes["healthy"].Success {
			t.Error("expected the sibling probe to succeed")
		}

		created, closed, _ := provider.counts()
		if created != 1 || closed != 1 {
			t.Errorf("expected the session to be released after a panic, got created=%d closed=%d", created, closed)
		}
	})

	t.Run("construction failure is contained", func(t *testing.T) {
		t.Parallel()

		provider := &trackingProvider{engine: model.EngineChrome}
		healthy := &scriptedProbe{id: "healthy", needsHandle: true}

		// A non-reusable probe whose constructor fails is dropped at the
		// cell, not at resolution.
		registry := probe.NewRegistry()
		if err := registry.Register(probe.Definition{
			ID: "unbuildable",
			New: func(_ *probe.Config) (probe.Probe, error) {
				return nil, errors.New("missing credential")
			},
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := registry.Register(probe.Definition{
			ID:          "healthy",
			NeedsHandle: true,
			Reusable:    true,
			New: func(_ *probe.Config) (probe.Probe, error) {
				return healthy, nil
			},
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		selections := registry.Resolve([]string{"unbuildable", "healthy"}, &probe.Config{Logger: discardLogger()})

		r := NewCellRunner(testManager(provider), WithCellLogger(discardLogger()))
		result := r.Run(context.Background(), model.MustNewTarget("https://example.com/"), chromeVariant, selections)

		unbuildable := result.Outcomes["unbuildable"]
		if unbuildable.Success || unbuildable.ErrorKind != model.ErrorKindProbeConstruction {
			t.Errorf("expected probe-construction outcome, got %+v", unbuildable)
		}
		if !result.Outcomes["healthy"].Success {
			t.Error("expected the sibling probe to succeed")
		}
	})
}

// TestCellRunnerTimeout tests the cell deadline.
func TestCellRunnerTimeout(t *testing.T) {
	t.Parallel()

	provider := &trackingProvider{engine: model.EngineChrome}
	hanging := &scriptedProbe{id: "hanging", needsHandle: true, hang: 500 * time.Millisecond}
	after := &scriptedProbe{id: "after", needsHandle: true}

	r := NewCellRunner(testManager(provider),
		WithCellTimeout(50*time.Millisecond),
		WithCellLogger(discardLogger()))
	result := r.Run(context.Background(), model.MustNewTarget("https://example.com/"), chromeVariant,
		selectionsFor(t, hanging, after))

	// The session was usable, so the cell itself completes; the evidence
	// records which probes timed out.
	if result.State != model.CellCompleted {
		t.Errorf("state = %v, expected CellCompleted", result.State)
	}

	hung := result.Outcomes["hanging"]
	if hung.Success || hung.ErrorKind != model.ErrorKindTimeout {
		t.Errorf("expected timeout outcome for the hanging probe, got %+v", hung)
	}

	remaining := result.Outcomes["after"]
	if remaining.Success || remaining.ErrorKind != model.ErrorKindTimeout {
		t.Errorf("expected timeout outcome for the probe after the deadline, got %+v", remaining)
	}
	if after.runCount() != 0 {
		t.Errorf("expected the remaining probe not to be invoked, ran %d times", after.runCount())
	}

	created, closed, _ := provider.counts()
	if created != 1 || closed != 1 {
		t.Errorf("expected the session to be released after timeout, got created=%d closed=%d", created, closed)
	}
}
