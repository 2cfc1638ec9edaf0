package model

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrDuplicateCell is returned when a cell result is inserted under a
// (target, variant) key that already holds a result. The scheduler assigns
// each key to exactly one worker, so a duplicate insert is a programming
// error rather than a data race to resolve.
var ErrDuplicateCell = errors.New("cell result already recorded for this target and variant")

// MatrixResult is the incrementally built result tree of a run:
// target → variant key → cell result.
//
// It grows monotonically: cells are inserted as workers complete them and
// are never removed or replaced. At any moment the tree reflects all cells
// completed so far, which makes it safe to persist or display mid-run.
//
// Design decision: We guard the tree with a mutex rather than using channels
// or sync.Map because:
// 1. Workers never write the same key, so contention is only on the map itself
// 2. Snapshot-style reads (progress display, incremental persistence) need a
//    consistent view across the whole tree
// 3. A plain map under a mutex keeps insertion and lookup code obvious
type MatrixResult struct {
	mu sync.RWMutex

	// cells is the result tree keyed by target, then variant key.
	cells map[string]map[string]*CellResult

	// inserted counts stored cells without walking the tree.
	inserted int

	// RunID identifies the run this matrix belongs to.
	RunID string

	// StartedAt is when the scheduler began the run.
	StartedAt time.Time
}

// NewMatrixResult creates an empty matrix for the given run ID.
func NewMatrixResult(runID string) *MatrixResult {
	return &MatrixResult{
		cells:     make(map[string]map[string]*CellResult),
		RunID:     runID,
		StartedAt: time.Now(),
	}
}

// Insert stores a completed cell result under its (target, variant) key.
// Inserting a second result for the same key returns ErrDuplicateCell and
// leaves the first result in place.
func (m *MatrixResult) Insert(result *CellResult) error {
	target, variantKey := result.Key()

	m.mu.Lock()
	defer m.mu.Unlock()

	byVariant, ok := m.cells[target]
	if !ok {
		byVariant = make(map[string]*CellResult)
		m.cells[target] = byVariant
	}
	if _, exists := byVariant[variantKey]; exists {
		return fmt.Errorf("%w: %s / %s", ErrDuplicateCell, target, variantKey)
	}

	byVariant[variantKey] = result
	m.inserted++
	return nil
}

// Cell returns the result for one (target, variant key) pair.
func (m *MatrixResult) Cell(target, variantKey string) (*CellResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byVariant, ok := m.cells[target]
	if !ok {
		return nil, false
	}
	result, ok := byVariant[variantKey]
	return result, ok
}

// Len returns the number of cells recorded so far.
func (m *MatrixResult) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inserted
}

// Targets returns the recorded target keys in sorted order.
func (m *MatrixResult) Targets() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	targets := make([]string, 0, len(m.cells))
	for target := range m.cells {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	return targets
}

// VariantKeys returns the variant keys recorded for a target, sorted.
func (m *MatrixResult) VariantKeys(target string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byVariant, ok := m.cells[target]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(byVariant))
	for key := range byVariant {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Walk visits every recorded cell in deterministic order (targets sorted,
// then variant keys sorted) while holding the read lock. The callback must
// not mutate the result or call back into the matrix.
func (m *MatrixResult) Walk(fn func(result *CellResult)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	targets := make([]string, 0, len(m.cells))
	for target := range m.cells {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	for _, target := range targets {
		byVariant := m.cells[target]
		keys := make([]string, 0, len(byVariant))
		for key := range byVariant {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fn(byVariant[key])
		}
	}
}

// Tree returns a deep-enough copy of the result tree for serialization:
// target → variant key → probe ID → outcome. The returned maps are fresh;
// outcomes are shared values and must be treated as read-only.
func (m *MatrixResult) Tree() map[string]map[string]map[string]ProbeOutcome {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tree := make(map[string]map[string]map[string]ProbeOutcome, len(m.cells))
	for target, byVariant := range m.cells {
		variantTree := make(map[string]map[string]ProbeOutcome, len(byVariant))
		for variantKey, result := range byVariant {
			outcomes := make(map[string]ProbeOutcome, len(result.Outcomes))
			for probeID, outcome := range result.Outcomes {
				outcomes[probeID] = outcome
			}
			variantTree[variantKey] = outcomes
		}
		tree[target] = variantTree
	}
	return tree
}
