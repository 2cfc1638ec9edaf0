package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/probe"
)

// Runner evaluates one cell. The scheduler depends on this narrow interface
// so tests can substitute scripted runners.
type Runner interface {
	Run(ctx context.Context, target model.Target, variant model.EnvironmentVariant, selections []probe.Selection) *model.CellResult
}

// CellCallback fires after a cell result is inserted into the matrix.
// Callbacks may run concurrently from worker goroutines and must be safe
// for concurrent use; the scan command uses one for incremental persistence.
type CellCallback func(result *model.CellResult)

// MatrixScheduler dispatches the targets × variants cross product to a
// bounded worker pool and assembles the result tree.
//
// Design decision: We use errgroup.SetLimit rather than a hand-rolled
// worker pool because:
// 1. It caps concurrency without channel plumbing
// 2. Context propagation to workers comes for free
// 3. Workers never return errors here, so Wait degenerates to a join
type MatrixScheduler struct {
	// runner evaluates individual cells.
	runner Runner

	// maxWorkers caps the number of concurrently running cells.
	maxWorkers int

	// callback, when set, fires after each recorded cell.
	callback CellCallback

	// logger for run-level progress.
	logger *slog.Logger
}

// SchedulerOption configures a MatrixScheduler.
type SchedulerOption func(*MatrixScheduler)

// WithMaxWorkers sets the worker pool size.
// Values below one are ignored.
func WithMaxWorkers(n int) SchedulerOption {
	return func(s *MatrixScheduler) {
		if n > 0 {
			s.maxWorkers = n
		}
	}
}

// WithCellCallback registers a callback fired after each recorded cell.
func WithCellCallback(cb CellCallback) SchedulerOption {
	return func(s *MatrixScheduler) {
		s.callback = cb
	}
}

// WithSchedulerLogger sets a custom logger for the scheduler.
// If not set, slog.Default() is used.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *MatrixScheduler) {
		s.logger = logger
	}
}

// NewMatrixScheduler creates a new MatrixScheduler driving the given runner.
func NewMatrixScheduler(r Runner, opts ...SchedulerOption) *MatrixScheduler {
	s := &MatrixScheduler{
		runner:     r,
		maxWorkers: config.DefaultMaxWorkers,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RunMatrix evaluates every (target, variant) cell and returns the result
// tree. Cell failures are data inside the tree; ErrRunAborted is the only
// error class returned, and only when the run produced no results at all.
//
// Enumeration is deterministic: targets outer, variants inner, both in
// input order. After cancellation no new cells are dispatched; cells
// already running finish (their sessions are released) and their results
// are kept, while undispatched cells are simply absent from the tree.
func (s *MatrixScheduler) RunMatrix(ctx context.Context, runID string, targets []model.Target, variants []model.EnvironmentVariant, selections []probe.Selection) (*model.MatrixResult, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no targets", ErrRunAborted)
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("%w: no environment variants", ErrRunAborted)
	}
	if len(selections) == 0 {
		return nil, fmt.Errorf("%w: no probes resolved", ErrRunAborted)
	}

	totalCells := len(targets) * len(variants)
	s.logger.InfoContext(ctx, "starting matrix run",
		slog.String("run_id", runID),
		slog.Int("targets", len(targets)),
		slog.Int("variants", len(variants)),
		slog.Int("cells", totalCells),
		slog.Int("workers", s.maxWorkers))

	startTime := time.Now()
	matrix := model.NewMatrixResult(runID)

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxWorkers)

dispatch:
	for _, target := range targets {
		for _, variant := range variants {
			target, variant := target, variant
			if groupCtx.Err() != nil {
				s.logger.WarnContext(ctx, "run canceled, remaining cells not dispatched",
					slog.Int("completed", matrix.Len()),
					slog.Int("total", totalCells))
				break dispatch
			}

			g.Go(func() error {
				result := s.runCell(groupCtx, target, variant, selections)
				if result == nil {
					// Canceled before the cell started. It stays absent
					// from the matrix like every undispatched cell.
					return nil
				}

				if err := matrix.Insert(result); err != nil {
					// Each key is dispatched exactly once, so a duplicate
					// is a programming error worth surfacing loudly.
					s.logger.ErrorContext(groupCtx, "dropped duplicate cell result",
						slog.String("target", result.Target.String()),
						slog.String("variant", result.Variant.Key()),
						slog.String("error", err.Error()))
					return nil
				}

				s.logger.InfoContext(groupCtx, "cell completed",
					slog.String("target", result.Target.String()),
					slog.String("variant", result.Variant.Key()),
					slog.String("state", result.State.String()),
					slog.Int("findings", result.Counts().Total()),
					slog.Int("completed", matrix.Len()),
					slog.Int("total", totalCells))

				if s.callback != nil {
					s.callback(result)
				}
				return nil
			})
		}
	}

	_ = g.Wait() //nolint:errcheck // Workers always return nil; failures travel as results.

	s.logger.InfoContext(ctx, "matrix run complete",
		slog.String("run_id", runID),
		slog.Int("cells", matrix.Len()),
		slog.Int("total", totalCells),
		slog.Duration("elapsed", time.Since(startTime)))

	if matrix.Len() == 0 {
		if cause := context.Cause(ctx); cause != nil {
			return nil, fmt.Errorf("%w: %v", ErrRunAborted, cause)
		}
		return nil, fmt.Errorf("%w: no cells completed", ErrRunAborted)
	}

	return matrix, nil
}

// runCell invokes the cell runner behind a defensive recover. The runner
// never panics by contract, but a violation must cost one cell, not the
// run: the panic is recorded as a synthetic result under the reserved
// scheduler outcome key and sibling cells never notice.
func (s *MatrixScheduler) runCell(ctx context.Context, target model.Target, variant model.EnvironmentVariant, selections []probe.Selection) (result *model.CellResult) {
	// Check for cancellation before starting, matching undispatched cells.
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "cell runner panicked",
				slog.String("target", target.String()),
				slog.String("variant", variant.Key()),
				slog.Any("panic", rec))
			result = model.NewSchedulerFailureResult(target, variant,
				fmt.Sprintf("cell runner panicked: %v", rec))
		}
	}()

	return s.runner.Run(ctx, target, variant, selections)
}
