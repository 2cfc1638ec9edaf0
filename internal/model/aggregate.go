package model

import (
	"sort"
	"time"
)

// ProbeCellSummary condenses one probe outcome for rollup tables.
type ProbeCellSummary struct {
	// Probe is the probe ID.
	Probe string `json:"probe"`

	// Success reports whether the probe completed in this cell.
	Success bool `json:"success"`

	// ErrorKind is the failure classification ("" on success).
	ErrorKind string `json:"error_kind,omitempty"`

	// Findings is the number of issues the probe reported.
	Findings int `json:"findings"`

	// Counts breaks the findings down by severity.
	Counts SeverityCounts `json:"counts"`
}

// VariantRollup aggregates one cell for per-target tables.
type VariantRollup struct {
	// VariantKey is the cell's variant key ("chrome-375x667").
	VariantKey string `json:"variant_key"`

	// Label is the human-oriented variant description.
	Label string `json:"label"`

	// State is the terminal cell state.
	State string `json:"state"`

	// HandleError is the session failure message, if any.
	HandleError string `json:"handle_error,omitempty"`

	// Counts tallies the cell's findings by severity.
	Counts SeverityCounts `json:"counts"`

	// Probes summarizes each probe outcome, ordered by probe ID.
	Probes []ProbeCellSummary `json:"probes"`
}

// TargetRollup aggregates all of one target's cells.
type TargetRollup struct {
	// Target is the page URL.
	Target string `json:"target"`

	// Counts tallies findings across all the target's variants.
	Counts SeverityCounts `json:"counts"`

	// Variants holds one rollup per evaluated variant, ordered by key.
	Variants []VariantRollup `json:"variants"`
}

// ComparisonCell is one entry in a cross-variant comparison table:
// how one probe fared under one variant.
type ComparisonCell struct {
	// Findings is the issue count (0 for a clean pass).
	Findings int `json:"findings"`

	// Failed reports that the probe did not complete under this variant.
	Failed bool `json:"failed"`

	// ErrorKind classifies the failure ("" when Failed is false).
	ErrorKind string `json:"error_kind,omitempty"`

	// Absent reports that this probe has no outcome under this variant
	// (possible when a synthetic scheduler entry replaced the cell).
	Absent bool `json:"absent,omitempty"`
}

// ComparisonRow is one variant's row in a comparison table.
type ComparisonRow struct {
	// VariantKey identifies the row.
	VariantKey string `json:"variant_key"`

	// Cells align with the parent table's Probes column order.
	Cells []ComparisonCell `json:"cells"`
}

// VariantComparison is the cross-variant table for one target: does this
// page fail differently on engine A at mobile size than on engine B at
// desktop size? This view is what justifies running the full matrix rather
// than one cell per target.
type VariantComparison struct {
	// Target is the page URL.
	Target string `json:"target"`

	// Probes is the column order: the sorted union of probe IDs seen in
	// any of the target's cells.
	Probes []string `json:"probes"`

	// Rows holds one row per variant, ordered by variant key.
	Rows []ComparisonRow `json:"rows"`
}

// AggregateReport is the derived, read-only view over a MatrixResult:
// severity rollups at global, target, and cell granularity, failure tallies,
// cross-variant comparison tables, and the serializable result tree consumed
// by downstream renderers.
type AggregateReport struct {
	// RunID identifies the run.
	RunID string `json:"run_id"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// TotalCells is the number of cells recorded in the matrix.
	TotalCells int `json:"total_cells"`

	// CompletedCells counts cells that finished with a usable session.
	CompletedCells int `json:"completed_cells"`

	// PartialCells counts cells that finished degraded (no usable session).
	PartialCells int `json:"partial_cells"`

	// FailureKinds tallies failed probe outcomes by error kind across the run.
	FailureKinds map[string]int `json:"failure_kinds,omitempty"`

	// Global tallies every finding in the run by severity.
	Global SeverityCounts `json:"global"`

	// Targets holds per-target rollups, ordered by target.
	Targets []TargetRollup `json:"targets"`

	// Comparisons holds one cross-variant table per target, ordered by target.
	Comparisons []VariantComparison `json:"comparisons"`

	// Tree is the full result tree: target → variant key → probe ID → outcome.
	Tree map[string]map[string]map[string]ProbeOutcome `json:"tree"`
}

// TotalFindings returns the number of findings across the whole run.
func (r *AggregateReport) TotalFindings() int {
	return r.Global.Total()
}

// HasFindings reports whether the run discovered any issue.
func (r *AggregateReport) HasFindings() bool {
	return r.Global.Total() > 0
}

// Fold derives an AggregateReport from a matrix. It is a pure function of
// the matrix contents: folding the same matrix twice yields identical
// reports, and the matrix is never modified. Timestamps in the report come
// from the matrix and its cells, never from the clock.
func Fold(m *MatrixResult) *AggregateReport {
	report := &AggregateReport{
		RunID:        m.RunID,
		StartedAt:    m.StartedAt,
		FailureKinds: make(map[string]int),
		Tree:         m.Tree(),
	}

	// Group cells per target in deterministic order.
	byTarget := make(map[string][]*CellResult)
	m.Walk(func(result *CellResult) {
		target, _ := result.Key()
		byTarget[target] = append(byTarget[target], result)

		report.TotalCells++
		if result.State == CellPartiallyCompleted {
			report.PartialCells++
		} else {
			report.CompletedCells++
		}
		for kind, n := range result.FailureKinds() {
			report.FailureKinds[kind.String()] += n
		}
	})

	targets := make([]string, 0, len(byTarget))
	for target := range byTarget {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	for _, target := range targets {
		cells := byTarget[target]
		rollup := TargetRollup{Target: target}

		probeSet := make(map[string]bool)
		for _, cell := range cells {
			variant := VariantRollup{
				VariantKey:  cell.Variant.Key(),
				Label:       cell.Variant.Label(),
				State:       cell.State.String(),
				HandleError: cell.HandleError,
				Counts:      cell.Counts(),
			}
			for _, probeID := range cell.ProbeIDs() {
				probeSet[probeID] = true
				outcome := cell.Outcomes[probeID]
				summary := ProbeCellSummary{
					Probe:    probeID,
					Success:  outcome.Success,
					Findings: len(outcome.Findings),
					Counts:   outcome.Counts(),
				}
				if !outcome.Success {
					summary.ErrorKind = outcome.ErrorKind.String()
				}
				variant.Probes = append(variant.Probes, summary)
			}
			rollup.Counts.Merge(variant.Counts)
			rollup.Variants = append(rollup.Variants, variant)
		}
		// Walk already visits variants in key order per target.
		report.Global.Merge(rollup.Counts)
		report.Targets = append(report.Targets, rollup)

		report.Comparisons = append(report.Comparisons, buildComparison(target, cells, probeSet))
	}

	return report
}

// buildComparison assembles the cross-variant table for one target.
func buildComparison(target string, cells []*CellResult, probeSet map[string]bool) VariantComparison {
	probes := make([]string, 0, len(probeSet))
	for probeID := range probeSet {
		probes = append(probes, probeID)
	}
	sort.Strings(probes)

	comparison := VariantComparison{Target: target, Probes: probes}
	for _, cell := range cells {
		row := ComparisonRow{VariantKey: cell.Variant.Key()}
		for _, probeID := range probes {
			outcome, ok := cell.Outcomes[probeID]
			switch {
			case !ok:
				row.Cells = append(row.Cells, ComparisonCell{Absent: true})
			case outcome.Success:
				row.Cells = append(row.Cells, ComparisonCell{Findings: len(outcome.Findings)})
			default:
				row.Cells = append(row.Cells, ComparisonCell{
					Failed:    true,
					ErrorKind: outcome.ErrorKind.String(),
				})
			}
		}
		comparison.Rows = append(comparison.Rows, row)
	}
	return comparison
}
