package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/database"
	"github.com/nao1215/a11yscan/internal/model"
)

// Verdict directions for the comparison summary.
const (
	verdictWorsened  = "worsened"
	verdictImproved  = "improved"
	verdictUnchanged = "unchanged"
	noFindingsLabel  = "No findings"
)

// Listing and comparison limits against the run history database.
const (
	// historyLimit caps how many runs a listing shows.
	historyLimit = 50

	// compareLookback caps how far back the default comparison searches
	// for two finished runs.
	compareLookback = 20
)

// NewCompareCmd creates the compare command.
// This command compares run results with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [target-url]",
		Short: "Compare run results with historical data",
		Long: `Compare displays differences between two runs for a target.

This command retrieves historical run data from the database and shows:
- New findings that appeared since the previous run
- Resolved findings that are no longer present
- Changes in severity counts
- Cells where the page content changed between the runs

By default the latest two finished runs for the target are compared.
Use 'a11yscan scan' to perform runs and save results.

Examples:
  # Compare the latest two runs for a target
  a11yscan compare https://example.com/

  # List run history for a target
  a11yscan compare --list https://example.com/

  # Compare two specific runs by ID (prefixes are accepted)
  a11yscan compare --runs 1a2b3c,9f8e7d https://example.com/

  # Compare two whole runs, all targets included
  a11yscan compare --runs 1a2b3c,9f8e7d

  # Output comparison in JSON format
  a11yscan compare --json https://example.com/

  # List recent runs in the database
  a11yscan compare --list-runs`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List run history for the specified target")
	cmd.Flags().BoolP("list-runs", "L", false,
		"List recent runs in the database")

	// Comparison target flags
	cmd.Flags().StringSliceP("runs", "r", nil,
		"Compare two specific runs by ID (use --list-runs to see available IDs)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listRuns, err := cmd.Flags().GetBool("list-runs")
	if err != nil {
		return err
	}
	runIDs, err := cmd.Flags().GetStringSlice("runs")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database so a bad invocation
	// never takes the lock.
	var target string
	if len(args) > 0 {
		parsed, err := model.NewTarget(args[0])
		if err != nil {
			return fmt.Errorf("invalid target %q: %w", args[0], err)
		}
		target = parsed.String()
	}
	if target == "" && !listRuns && len(runIDs) == 0 {
		return errors.New("target URL is required (use --list-runs to see recent runs)")
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open run history database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Close error after read-only queries carries no information

	ctx := cmd.Context()

	if listRuns {
		return listRecentRuns(ctx, db)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listRunHistory(ctx, db, target)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	return runComparison(ctx, db, target, runIDs, jsonOutput, markdownOutput)
}

// listRecentRuns lists the most recent runs stored in the database.
func listRecentRuns(ctx context.Context, db *database.ResultDB) error {
	runs, err := db.RecentRuns(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found in the database.")
		fmt.Println("\nUse 'a11yscan scan <target-url>' to evaluate a page.")
		return nil
	}

	fmt.Printf("Recent runs (%d):\n\n", len(runs))
	fmt.Printf("  %-8s  %-20s  %-8s  %-8s  %s\n", "ID", "Date", "Targets", "Cells", "Findings")
	fmt.Println("  " + strings.Repeat("-", 68))

	for _, run := range runs {
		fmt.Printf("  %-8s  %-20s  %-8d  %-8s  %s\n",
			shortRunID(run.ID),
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Targets,
			fmt.Sprintf("%d/%d", run.CompletedCells, run.Cells),
			formatRunSummary(&run),
		)
	}

	fmt.Println("\nUse 'a11yscan compare <target-url>' to compare the latest two runs for a target.")
	fmt.Println("Use 'a11yscan compare --runs <id>,<id>' to compare two specific runs.")

	return nil
}

// listRunHistory lists the runs that recorded cells for a specific target.
func listRunHistory(ctx context.Context, db *database.ResultDB, target string) error {
	runs, err := db.RunsForTarget(ctx, target, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Printf("No run history found for %s\n", target)
		fmt.Println("\nUse 'a11yscan scan' to evaluate this target.")
		return nil
	}

	fmt.Printf("Run history for %s (%d runs):\n\n", target, len(runs))
	fmt.Printf("  %-8s  %-20s  %-8s  %s\n", "ID", "Date", "Cells", "Run Findings")
	fmt.Println("  " + strings.Repeat("-", 58))

	for _, run := range runs {
		fmt.Printf("  %-8s  %-20s  %-8s  %s\n",
			shortRunID(run.ID),
			run.StartedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d/%d", run.CompletedCells, run.Cells),
			formatRunSummary(&run),
		)
	}

	fmt.Println("\nUse 'a11yscan compare <target-url>' to compare the latest two runs.")
	fmt.Println("Use 'a11yscan compare --runs <id>,<id> <target-url>' to compare specific runs.")

	return nil
}

// shortRunID abbreviates a run ID for listings, like a short commit hash.
func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatRunSummary formats a run's severity rollup into a short string.
func formatRunSummary(run *database.RunRecord) string {
	if !run.Finished() {
		return "(unfinished)"
	}
	return formatCountsSummary(run.Counts)
}

// formatCountsSummary formats severity counts into a human-readable string.
func formatCountsSummary(counts model.SeverityCounts) string {
	var parts []string
	if counts.Critical > 0 {
		parts = append(parts, fmt.Sprintf("C:%d", counts.Critical))
	}
	if counts.Serious > 0 {
		parts = append(parts, fmt.Sprintf("S:%d", counts.Serious))
	}
	if counts.Moderate > 0 {
		parts = append(parts, fmt.Sprintf("Mo:%d", counts.Moderate))
	}
	if counts.Minor > 0 {
		parts = append(parts, fmt.Sprintf("Mi:%d", counts.Minor))
	}
	if counts.Info > 0 {
		parts = append(parts, fmt.Sprintf("I:%d", counts.Info))
	}

	if len(parts) == 0 {
		return noFindingsLabel
	}
	return strings.Join(parts, " ")
}

// runComparison resolves the two runs to compare, loads their cells, and
// outputs the diff.
func runComparison(ctx context.Context, db *database.ResultDB, target string, runIDs []string, jsonOutput, markdownOutput bool) error {
	var previousRun, currentRun *database.RunRecord

	if len(runIDs) > 0 {
		if len(runIDs) != 2 {
			return fmt.Errorf("exactly two run IDs are required for comparison (got %d)", len(runIDs))
		}
		first, err := resolveRun(ctx, db, runIDs[0])
		if err != nil {
			return err
		}
		second, err := resolveRun(ctx, db, runIDs[1])
		if err != nil {
			return err
		}
		// Compare chronologically regardless of argument order.
		previousRun, currentRun = first, second
		if second.StartedAt.Before(first.StartedAt) {
			previousRun, currentRun = second, first
		}
		for _, run := range []*database.RunRecord{previousRun, currentRun} {
			if !run.Finished() {
				fmt.Fprintf(os.Stderr, "Warning: run %s did not finish, its results may be incomplete\n", shortRunID(run.ID))
			}
		}
	} else {
		runs, err := db.RunsForTarget(ctx, target, compareLookback)
		if err != nil {
			return fmt.Errorf("failed to get run history: %w", err)
		}

		finished := make([]database.RunRecord, 0, len(runs))
		for _, run := range runs {
			if run.Finished() {
				finished = append(finished, run)
			}
		}
		if len(finished) < 2 {
			return fmt.Errorf("at least 2 finished runs are required for comparison (found %d for %s)", len(finished), target)
		}

		// Runs are ordered newest first.
		currentRun = &finished[0]
		previousRun = &finished[1]
	}

	previousCells, err := db.CellsForRun(ctx, previousRun.ID, target)
	if err != nil {
		return fmt.Errorf("failed to load cells for run %s: %w", shortRunID(previousRun.ID), err)
	}
	currentCells, err := db.CellsForRun(ctx, currentRun.ID, target)
	if err != nil {
		return fmt.Errorf("failed to load cells for run %s: %w", shortRunID(currentRun.ID), err)
	}

	if target != "" && len(previousCells) == 0 && len(currentCells) == 0 {
		return fmt.Errorf("neither run recorded cells for %s", target)
	}

	comparison := compareRuns(target,
		runSnapshot{record: previousRun, cells: previousCells},
		runSnapshot{record: currentRun, cells: currentCells},
	)

	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	if markdownOutput {
		return outputComparisonMarkdown(comparison)
	}
	return outputComparisonText(comparison)
}

// resolveRun looks up a run by ID or unique ID prefix.
func resolveRun(ctx context.Context, db *database.ResultDB, id string) (*database.RunRecord, error) {
	run, err := db.Run(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %s not found (use --list-runs to see recent runs)", id)
	}
	return run, nil
}

// runSnapshot pairs a run record with the cells considered for comparison.
type runSnapshot struct {
	record *database.RunRecord
	cells  []database.CellRecord
}

// ComparisonResult holds the result of comparing two runs.
type ComparisonResult struct {
	// Target is the compared target URL. Empty means the whole runs were
	// compared, all targets included.
	Target string `json:"target,omitempty"`

	// PreviousRun contains metadata about the older run.
	PreviousRun RunMetadata `json:"previous_run"`

	// CurrentRun contains metadata about the newer run.
	CurrentRun RunMetadata `json:"current_run"`

	// NewFindings contains findings present only in the current run.
	NewFindings []FindingDiff `json:"new_findings,omitempty"`

	// ResolvedFindings contains findings present only in the previous run.
	ResolvedFindings []FindingDiff `json:"resolved_findings,omitempty"`

	// UnchangedCount is the number of findings present in both runs.
	UnchangedCount int `json:"unchanged_count"`

	// Verdict describes the overall change between the runs.
	Verdict Verdict `json:"verdict"`

	// DriftedCells lists cells whose page source digest changed between
	// the runs. Findings in these cells may reflect content changes
	// rather than fixes or regressions.
	DriftedCells []DriftedCell `json:"drifted_cells,omitempty"`
}

// RunMetadata contains metadata about one side of a comparison.
type RunMetadata struct {
	// ID is the full run identifier.
	ID string `json:"id"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// PlannedCells is how many cells the whole run planned.
	PlannedCells int `json:"planned_cells"`

	// ComparedCells is how many of the run's cells entered this comparison.
	ComparedCells int `json:"compared_cells"`

	// TotalFindings is the number of findings in the compared cells.
	TotalFindings int `json:"total_findings"`

	// Counts tallies the compared cells' findings by severity.
	Counts model.SeverityCounts `json:"severity_counts"`
}

// Verdict describes the change in findings between two runs.
type Verdict struct {
	// Direction is "improved", "worsened", or "unchanged", based on the
	// severity-weighted finding scores of the two runs.
	Direction string `json:"direction"`

	// CriticalDelta is the change in critical findings count.
	CriticalDelta int `json:"critical_delta"`

	// SeriousDelta is the change in serious findings count.
	SeriousDelta int `json:"serious_delta"`

	// ModerateDelta is the change in moderate findings count.
	ModerateDelta int `json:"moderate_delta"`

	// MinorDelta is the change in minor findings count.
	MinorDelta int `json:"minor_delta"`

	// InfoDelta is the change in informational findings count.
	InfoDelta int `json:"info_delta"`
}

// FindingDiff is one finding that appeared or disappeared between runs,
// annotated with the cell it belongs to.
type FindingDiff struct {
	// Target is the page the finding belongs to.
	Target string `json:"target"`

	// VariantKey is the environment variant the finding was observed in.
	VariantKey string `json:"variant"`

	// Probe is the probe that produced the finding.
	Probe string `json:"probe"`

	// Code identifies the rule that fired.
	Code string `json:"code"`

	// Severity is the finding's severity.
	Severity model.Severity `json:"severity"`

	// SeverityText is the human-readable severity.
	SeverityText string `json:"severity_text"`

	// Summary is the one-line description.
	Summary string `json:"summary"`

	// Selector locates the offending element, when known.
	Selector string `json:"selector,omitempty"`
}

// DriftedCell identifies a cell whose page content changed between runs.
type DriftedCell struct {
	// Target is the page URL.
	Target string `json:"target"`

	// VariantKey is the environment variant key.
	VariantKey string `json:"variant"`
}

// compareRuns diffs the findings of two runs. A finding is identified by
// its cell (target and variant), probe, rule code, and selector, so the
// same rule firing on two elements counts as two findings.
func compareRuns(target string, previous, current runSnapshot) *ComparisonResult {
	result := &ComparisonResult{
		Target:      target,
		PreviousRun: buildRunMetadata(previous),
		CurrentRun:  buildRunMetadata(current),
	}

	previousKeys := findingKeys(previous.cells)
	currentKeys := findingKeys(current.cells)

	// Cells arrive ordered by target and variant, so both diff lists come
	// out deterministic.
	for _, cell := range current.cells {
		for _, diff := range cellFindingDiffs(cell) {
			if _, exists := previousKeys[findingKey(diff)]; !exists {
				result.NewFindings = append(result.NewFindings, diff)
			}
		}
	}
	for _, cell := range previous.cells {
		for _, diff := range cellFindingDiffs(cell) {
			if _, exists := currentKeys[findingKey(diff)]; exists {
				result.UnchangedCount++
			} else {
				result.ResolvedFindings = append(result.ResolvedFindings, diff)
			}
		}
	}

	result.Verdict = calculateVerdict(result.PreviousRun.Counts, result.CurrentRun.Counts)
	result.DriftedCells = detectDrift(previous.cells, current.cells)

	return result
}

// buildRunMetadata summarizes one side of the comparison from the cells
// that entered it. Counts come from the compared cells rather than the
// run's global rollup, so a target-filtered comparison stays exact.
func buildRunMetadata(snapshot runSnapshot) RunMetadata {
	meta := RunMetadata{
		ID:            snapshot.record.ID,
		StartedAt:     snapshot.record.StartedAt,
		PlannedCells:  snapshot.record.Cells,
		ComparedCells: len(snapshot.cells),
	}
	for _, cell := range snapshot.cells {
		meta.Counts.Merge(cell.Counts)
	}
	meta.TotalFindings = meta.Counts.Total()
	return meta
}

// cellFindingDiffs flattens a cell's probe outcomes into FindingDiff
// values, in probe ID order so diff output is deterministic.
func cellFindingDiffs(cell database.CellRecord) []FindingDiff {
	probeIDs := make([]string, 0, len(cell.Outcomes))
	for probeID := range cell.Outcomes {
		probeIDs = append(probeIDs, probeID)
	}
	sort.Strings(probeIDs)

	var diffs []FindingDiff
	for _, probeID := range probeIDs {
		outcome := cell.Outcomes[probeID]
		for _, f := range outcome.Findings {
			diffs = append(diffs, FindingDiff{
				Target:       cell.Target,
				VariantKey:   cell.VariantKey,
				Probe:        probeID,
				Code:         f.Code,
				Severity:     f.Severity,
				SeverityText: f.SeverityText,
				Summary:      f.Summary,
				Selector:     f.Selector,
			})
		}
	}
	return diffs
}

// findingKeys builds the identity set of every finding in the given cells.
func findingKeys(cells []database.CellRecord) map[string]bool {
	keys := make(map[string]bool)
	for _, cell := range cells {
		for _, diff := range cellFindingDiffs(cell) {
			keys[findingKey(diff)] = true
		}
	}
	return keys
}

// findingKey generates a unique key for a finding for comparison purposes.
func findingKey(d FindingDiff) string {
	return d.Target + "|" + d.VariantKey + "|" + d.Probe + "|" + d.Code + "|" + d.Selector
}

// calculateVerdict calculates the change in findings between two runs.
func calculateVerdict(previous, current model.SeverityCounts) Verdict {
	verdict := Verdict{
		CriticalDelta: current.Critical - previous.Critical,
		SeriousDelta:  current.Serious - previous.Serious,
		ModerateDelta: current.Moderate - previous.Moderate,
		MinorDelta:    current.Minor - previous.Minor,
		InfoDelta:     current.Info - previous.Info,
	}

	// The direction weighs severities rather than counting findings, so
	// one new critical outweighs several resolved minors.
	switch {
	case current.Score() < previous.Score():
		verdict.Direction = verdictImproved
	case current.Score() > previous.Score():
		verdict.Direction = verdictWorsened
	default:
		verdict.Direction = verdictUnchanged
	}

	return verdict
}

// detectDrift reports cells present in both runs whose page source digest
// changed. A missing digest (failed navigation) never counts as drift.
func detectDrift(previousCells, currentCells []database.CellRecord) []DriftedCell {
	previousDigests := make(map[string]string, len(previousCells))
	for _, cell := range previousCells {
		if cell.SourceDigest != "" {
			previousDigests[cell.Target+"|"+cell.VariantKey] = cell.SourceDigest
		}
	}

	var drifted []DriftedCell
	for _, cell := range currentCells {
		if cell.SourceDigest == "" {
			continue
		}
		if digest, ok := previousDigests[cell.Target+"|"+cell.VariantKey]; ok && digest != cell.SourceDigest {
			drifted = append(drifted, DriftedCell{Target: cell.Target, VariantKey: cell.VariantKey})
		}
	}
	return drifted
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(result *ComparisonResult) error {
	fmt.Printf("# Run Comparison: %s\n\n", comparisonScope(result))

	fmt.Println("## Summary")
	fmt.Printf("\n**Verdict:** %s\n\n", formatVerdictDirection(result.Verdict.Direction))

	fmt.Println("| Metric | Previous | Current | Change |")
	fmt.Println("|--------|----------|---------|--------|")
	fmt.Printf("| Run | %s | %s | - |\n",
		shortRunID(result.PreviousRun.ID),
		shortRunID(result.CurrentRun.ID))
	fmt.Printf("| Date | %s | %s | - |\n",
		result.PreviousRun.StartedAt.Format("2006-01-02 15:04"),
		result.CurrentRun.StartedAt.Format("2006-01-02 15:04"))
	fmt.Printf("| Critical | %d | %d | %s |\n",
		result.PreviousRun.Counts.Critical,
		result.CurrentRun.Counts.Critical,
		formatDelta(result.Verdict.CriticalDelta))
	fmt.Printf("| Serious | %d | %d | %s |\n",
		result.PreviousRun.Counts.Serious,
		result.CurrentRun.Counts.Serious,
		formatDelta(result.Verdict.SeriousDelta))
	fmt.Printf("| Moderate | %d | %d | %s |\n",
		result.PreviousRun.Counts.Moderate,
		result.CurrentRun.Counts.Moderate,
		formatDelta(result.Verdict.ModerateDelta))
	fmt.Printf("| Minor | %d | %d | %s |\n",
		result.PreviousRun.Counts.Minor,
		result.CurrentRun.Counts.Minor,
		formatDelta(result.Verdict.MinorDelta))
	fmt.Printf("| Info | %d | %d | %s |\n",
		result.PreviousRun.Counts.Info,
		result.CurrentRun.Counts.Info,
		formatDelta(result.Verdict.InfoDelta))
	fmt.Printf("| **Total** | **%d** | **%d** | **%s** |\n",
		result.PreviousRun.TotalFindings,
		result.CurrentRun.TotalFindings,
		formatDelta(result.CurrentRun.TotalFindings-result.PreviousRun.TotalFindings))

	if len(result.NewFindings) > 0 {
		fmt.Printf("\n## New Findings (%d)\n\n", len(result.NewFindings))
		for _, f := range result.NewFindings {
			fmt.Printf("- **[%s]** `%s` %s: %s\n", f.SeverityText, f.VariantKey, f.Code, f.Summary)
			if f.Selector != "" {
				fmt.Printf("  - Selector: `%s`\n", f.Selector)
			}
		}
	}

	if len(result.ResolvedFindings) > 0 {
		fmt.Printf("\n## Resolved Findings (%d)\n\n", len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			fmt.Printf("- ~~**[%s]** `%s` %s: %s~~\n", f.SeverityText, f.VariantKey, f.Code, f.Summary)
		}
	}

	if len(result.DriftedCells) > 0 {
		fmt.Printf("\n## Page Content Drift (%d cells)\n\n", len(result.DriftedCells))
		for _, cell := range result.DriftedCells {
			fmt.Printf("- %s `%s`\n", cell.Target, cell.VariantKey)
		}
		fmt.Println("\nFindings in these cells may reflect content changes rather than fixes or regressions.")
	}

	if result.UnchangedCount > 0 {
		fmt.Printf("\n---\n\n*%d findings unchanged*\n", result.UnchangedCount)
	}

	return nil
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(result *ComparisonResult) error {
	fmt.Printf("Run Comparison: %s\n", comparisonScope(result))
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nVerdict: %s\n", formatVerdictDirection(result.Verdict.Direction))

	fmt.Printf("\nPrevious run: %s (%s, %d cells compared)\n",
		shortRunID(result.PreviousRun.ID),
		result.PreviousRun.StartedAt.Format("2006-01-02 15:04:05"),
		result.PreviousRun.ComparedCells)
	fmt.Printf("Current run:  %s (%s, %d cells compared)\n",
		shortRunID(result.CurrentRun.ID),
		result.CurrentRun.StartedAt.Format("2006-01-02 15:04:05"),
		result.CurrentRun.ComparedCells)

	fmt.Println("\nFindings Summary:")
	fmt.Printf("  %-10s  %-10s  %-10s  %-10s\n", "Severity", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 45))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Critical",
		result.PreviousRun.Counts.Critical, result.CurrentRun.Counts.Critical,
		formatDelta(result.Verdict.CriticalDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Serious",
		result.PreviousRun.Counts.Serious, result.CurrentRun.Counts.Serious,
		formatDelta(result.Verdict.SeriousDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Moderate",
		result.PreviousRun.Counts.Moderate, result.CurrentRun.Counts.Moderate,
		formatDelta(result.Verdict.ModerateDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Minor",
		result.PreviousRun.Counts.Minor, result.CurrentRun.Counts.Minor,
		formatDelta(result.Verdict.MinorDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Info",
		result.PreviousRun.Counts.Info, result.CurrentRun.Counts.Info,
		formatDelta(result.Verdict.InfoDelta))
	fmt.Println("  " + strings.Repeat("-", 45))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Total",
		result.PreviousRun.TotalFindings, result.CurrentRun.TotalFindings,
		formatDelta(result.CurrentRun.TotalFindings-result.PreviousRun.TotalFindings))

	if len(result.NewFindings) > 0 {
		fmt.Printf("\nNew Findings (%d):\n", len(result.NewFindings))
		for _, f := range result.NewFindings {
			fmt.Printf("  [+] [%s] [%s] %s: %s\n", f.SeverityText, f.VariantKey, f.Code, f.Summary)
			if f.Selector != "" {
				fmt.Printf("      Selector: %s\n", f.Selector)
			}
		}
	}

	if len(result.ResolvedFindings) > 0 {
		fmt.Printf("\nResolved Findings (%d):\n", len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			fmt.Printf("  [-] [%s] [%s] %s: %s\n", f.SeverityText, f.VariantKey, f.Code, f.Summary)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Printf("\nUnchanged: %d findings\n", result.UnchangedCount)
	}

	if len(result.DriftedCells) > 0 {
		fmt.Printf("\nPage content drift detected in %d cells:\n", len(result.DriftedCells))
		for _, cell := range result.DriftedCells {
			fmt.Printf("  ~ %s [%s]\n", cell.Target, cell.VariantKey)
		}
		fmt.Println("  Findings in these cells may reflect content changes rather than fixes or regressions.")
	}

	return nil
}

// comparisonScope names what the comparison covered for display.
func comparisonScope(result *ComparisonResult) string {
	if result.Target == "" {
		return "all targets"
	}
	return result.Target
}

// formatVerdictDirection formats the verdict direction for display.
func formatVerdictDirection(direction string) string {
	switch direction {
	case verdictImproved:
		return "IMPROVED (weighted findings decreased)"
	case verdictWorsened:
		return "WORSENED (weighted findings increased)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
