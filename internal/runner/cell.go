package runner

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/engine"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/probe"
)

// releaseTimeout bounds session teardown on exit paths where the cell
// context has already expired. A timed-out cell must still free its session.
const releaseTimeout = 15 * time.Second

// CellRunner evaluates one (target, variant) cell: it acquires a rendering
// session when any selected probe needs one, navigates it to the target,
// runs the probes sequentially with individual isolation, and assembles
// the cell result.
//
// Design decision: Run returns a result and never an error because:
// 1. Every failure inside a cell is evidence, recorded per probe as data
// 2. The scheduler treats all cells uniformly; there is no error path to merge
// 3. Session teardown stays on a single defer no matter which path exits
type CellRunner struct {
	// manager acquires and releases rendering sessions.
	manager *engine.Manager

	// timeout is the per-cell deadline.
	timeout time.Duration

	// logger for cell-level diagnostics.
	logger *slog.Logger
}

// CellOption configures a CellRunner.
type CellOption func(*CellRunner)

// WithCellTimeout sets the per-cell deadline.
// Values below or at zero are ignored.
func WithCellTimeout(d time.Duration) CellOption {
	return func(r *CellRunner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithCellLogger sets a custom logger for the cell runner.
// If not set, slog.Default() is used.
func WithCellLogger(logger *slog.Logger) CellOption {
	return func(r *CellRunner) {
		r.logger = logger
	}
}

// NewCellRunner creates a new CellRunner backed by the given session manager.
func NewCellRunner(manager *engine.Manager, opts ...CellOption) *CellRunner {
	r := &CellRunner{
		manager: manager,
		timeout: config.DefaultCellTimeout,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run evaluates the cell and returns its terminal result: Completed when a
// usable session was available or none was needed, PartiallyCompleted when
// acquisition or navigation failed. Probes run sequentially in the supplied
// order, never concurrently within a cell.
func (r *CellRunner) Run(ctx context.Context, target model.Target, variant model.EnvironmentVariant, selections []probe.Selection) *model.CellResult {
	result := model.NewCellResult(target, variant)
	defer result.Finish()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var handle engine.Handle
	if needsHandle(selections) {
		h, release := r.prepareHandle(ctx, target, variant, result)
		if release != nil {
			defer release()
		}
		handle = h
	}

	for _, sel := range selections {
		result.SetOutcome(r.runProbe(ctx, sel, target, handle, result.HandleError))
	}

	return result
}

// prepareHandle acquires, sizes, and navigates a session. It returns the
// usable handle, or nil when the cell must run degraded. The release
// function is non-nil whenever a session was created, even if navigation
// failed, so the caller always tears down exactly once.
func (r *CellRunner) prepareHandle(ctx context.Context, target model.Target, variant model.EnvironmentVariant, result *model.CellResult) (engine.Handle, func()) {
	acquired, err := r.manager.Acquire(ctx, variant.Engine)
	if err != nil {
		result.MarkHandleFailed(err.Error())
		r.logger.WarnContext(ctx, "session acquisition failed, handle-dependent probes will not run",
			slog.String("target", target.String()),
			slog.String("variant", variant.Key()),
			slog.String("error", err.Error()))
		return nil, nil
	}

	release := func() {
		// The cell context may already be expired on this path. Teardown
		// gets its own deadline so a timed-out cell still frees its session.
		releaseCtx, releaseCancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer releaseCancel()
		r.manager.Release(releaseCtx, acquired)
	}

	// The cache lets every DOM probe in this cell share one source fetch.
	cached := engine.NewCachedHandle(acquired)
	r.manager.Configure(ctx, cached, variant.Width, variant.Height)

	if err := cached.Navigate(ctx, target.String()); err != nil {
		result.MarkHandleFailed(fmt.Sprintf("navigation failed: %v", err))
		r.logger.WarnContext(ctx, "navigation failed, handle-dependent probes will not run",
			slog.String("target", target.String()),
			slog.String("variant", variant.Key()),
			slog.String("error", err.Error()))
		return nil, release
	}

	result.SourceDigest = r.sourceDigest(ctx, cached)
	return cached, release
}

// sourceDigest hashes the rendered page source so run comparison can tell
// real regressions from page content drift. A failed read costs only the
// digest; the DOM probes retry the read themselves.
func (r *CellRunner) sourceDigest(ctx context.Context, handle engine.Handle) string {
	source, err := handle.Source(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to read page source for digest",
			slog.String("session_id", handle.ID()),
			slog.String("error", err.Error()))
		return ""
	}

	digest := sha3.Sum256([]byte(source))
	return hex.EncodeToString(digest[:])
}

// runProbe produces the outcome for one probe invocation. handleError
// carries the acquisition or navigation failure message when handle is nil.
func (r *CellRunner) runProbe(ctx context.Context, sel probe.Selection, target model.Target, handle engine.Handle, handleError string) model.ProbeOutcome {
	// Once the cell deadline expires, every remaining probe is a timeout.
	if err := ctx.Err(); err != nil {
		return model.NewFailureOutcome(sel.ID(), model.ErrorKindTimeout,
			fmt.Sprintf("cell deadline expired before probe ran: %v", err), 0)
	}

	if sel.NeedsHandle() && handle == nil {
		message := handleError
		if message == "" {
			message = "no rendering session available"
		}
		return model.NewFailureOutcome(sel.ID(), model.ErrorKindHandleUnavailable, message, 0)
	}

	p, err := sel.Probe()
	if err != nil {
		return model.NewFailureOutcome(sel.ID(), model.ErrorKindProbeConstruction, err.Error(), 0)
	}

	start := time.Now()
	findings, err := r.invoke(ctx, p, target, handle)
	duration := time.Since(start)

	switch {
	case err == nil:
		return model.NewSuccessOutcome(sel.ID(), findings, duration)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return model.NewFailureOutcome(sel.ID(), model.ErrorKindTimeout, err.Error(), duration)
	default:
		return model.NewFailureOutcome(sel.ID(), model.ErrorKindProbe, err.Error(), duration)
	}
}

// probeReturn carries an invocation's result across the goroutine boundary.
type probeReturn struct {
	findings []model.Finding
	err      error
}

// invoke runs the probe on its own goroutine so a panic or a hang is
// contained. On cell deadline the invocation is abandoned; the buffered
// channel lets the goroutine deliver its late result and exit without
// leaking.
func (r *CellRunner) invoke(ctx context.Context, p probe.Probe, target model.Target, handle engine.Handle) ([]model.Finding, error) {
	done := make(chan probeReturn, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- probeReturn{err: fmt.Errorf("probe panicked: %v", rec)}
			}
		}()
		findings, err := p.Run(ctx, target, handle)
		done <- probeReturn{findings: findings, err: err}
	}()

	select {
	case ret := <-done:
		return ret.findings, ret.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// needsHandle reports whether any selected probe reads the rendered DOM.
func needsHandle(selections []probe.Selection) bool {
	for _, sel := range selections {
		if sel.NeedsHandle() {
			return true
		}
	}
	return false
}
