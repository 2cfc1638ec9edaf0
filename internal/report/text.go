package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/nao1215/a11yscan/internal/model"
)

// TextWriter outputs human-readable text reports for terminal display:
// a severity summary, one section per target with its variant rollups and
// cross-variant comparison table, and failure diagnostics.
//
// Design decision: Severity labels go through fatih/color rather than raw
// ANSI escapes because:
// 1. Output automatically degrades to plain text when piped to a file
// 2. NO_COLOR and terminal detection are handled by the library
// 3. A single option can force plain output for tests and CI logs
type TextWriter struct {
	baseWriter

	// showEmpty controls whether sections with no findings are shown.
	showEmpty bool

	// verbose enables per-finding detail in the target sections.
	verbose bool

	// colored enables severity label coloring. The color library still
	// suppresses escapes when the destination is not a terminal.
	colored bool
}

// severityColors maps each severity to its terminal style.
var severityColors = map[model.Severity]*color.Color{
	model.SeverityCritical: color.New(color.FgRed, color.Bold),
	model.SeveritySerious:  color.New(color.FgRed),
	model.SeverityModerate: color.New(color.FgYellow),
	model.SeverityMinor:    color.New(color.FgCyan),
	model.SeverityInfo:     color.New(color.FgWhite),
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) TextWriterOption {
	return func(w *TextWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with per-finding details.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// WithColor enables or disables severity label coloring.
func WithColor(enabled bool) TextWriterOption {
	return func(w *TextWriter) {
		w.colored = enabled
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
		colored:    true,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the aggregate report in human-readable format.
func (w *TextWriter) Write(report *model.AggregateReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeTargets(&sb, report)
	w.writeFailures(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// severityLabel renders the severity name, colored when enabled.
func (w *TextWriter) severityLabel(s model.Severity) string {
	if !w.colored {
		return s.String()
	}
	if c, ok := severityColors[s]; ok {
		return c.Sprint(s.String())
	}
	return s.String()
}

// writeHeader writes the report header with run information.
func (w *TextWriter) writeHeader(sb *strings.Builder, report *model.AggregateReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                    ACCESSIBILITY MATRIX REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Run ID:      %s\n", report.RunID))
	if !report.StartedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Started:     %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	}
	sb.WriteString(fmt.Sprintf("Cells:       %d evaluated (%d complete, %d degraded)\n",
		report.TotalCells, report.CompletedCells, report.PartialCells))
	sb.WriteString(fmt.Sprintf("Targets:     %d\n", len(report.Targets)))
	sb.WriteString("\n")
}

// writeSummary writes the severity summary section.
func (w *TextWriter) writeSummary(sb *strings.Builder, report *model.AggregateReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SEVERITY SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	rows := []struct {
		severity model.Severity
		count    int
	}{
		{model.SeverityCritical, report.Global.Critical},
		{model.SeveritySerious, report.Global.Serious},
		{model.SeverityModerate, report.Global.Moderate},
		{model.SeverityMinor, report.Global.Minor},
		{model.SeverityInfo, report.Global.Info},
	}
	for _, row := range rows {
		// Pad the plain name, not the colored label: escape sequences
		// would distort %-10s alignment.
		padding := strings.Repeat(" ", 10-len(row.severity.String()))
		sb.WriteString(fmt.Sprintf("  %s:%s%d\n", w.severityLabel(row.severity), padding, row.count))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  TOTAL:     %d findings\n", report.TotalFindings()))
	sb.WriteString("\n")
}

// writeTargets writes one section per target: variant rollups, the
// cross-variant comparison table, and optionally individual findings.
func (w *TextWriter) writeTargets(sb *strings.Builder, report *model.AggregateReport) {
	if len(report.Targets) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("TARGETS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	comparisons := make(map[string]model.VariantComparison, len(report.Comparisons))
	for _, c := range report.Comparisons {
		comparisons[c.Target] = c
	}

	for _, target := range report.Targets {
		sb.WriteString(fmt.Sprintf("%s  (%d findings)\n", target.Target, target.Counts.Total()))

		for _, variant := range target.Variants {
			sb.WriteString(fmt.Sprintf("  %-22s %-20s %d findings\n",
				variant.VariantKey, "["+variant.State+"]", variant.Counts.Total()))
			if variant.HandleError != "" {
				sb.WriteString(fmt.Sprintf("    session: %s\n", variant.HandleError))
			}
			for _, probe := range variant.Probes {
				if !probe.Success {
					sb.WriteString(fmt.Sprintf("    %s: failed (%s)\n", probe.Probe, probe.ErrorKind))
				}
			}
		}

		if comparison, ok := comparisons[target.Target]; ok && len(comparison.Probes) > 1 {
			w.writeComparison(sb, comparison)
		}

		if w.verbose {
			w.writeFindings(sb, report, target.Target)
		}
		sb.WriteString("\n")
	}
}

// writeComparison writes the findings-per-probe-per-variant table for one
// target. Failed probes show "x", absent probes "-".
func (w *TextWriter) writeComparison(sb *strings.Builder, comparison model.VariantComparison) {
	sb.WriteString("\n  Findings per probe per variant (x = probe failed, - = no outcome):\n")

	sb.WriteString(fmt.Sprintf("  %-22s", ""))
	for _, probe := range comparison.Probes {
		sb.WriteString(fmt.Sprintf(" %10s", probe))
	}
	sb.WriteString("\n")

	for _, row := range comparison.Rows {
		sb.WriteString(fmt.Sprintf("  %-22s", row.VariantKey))
		for _, cell := range row.Cells {
			switch {
			case cell.Absent:
				sb.WriteString(fmt.Sprintf(" %10s", "-"))
			case cell.Failed:
				sb.WriteString(fmt.Sprintf(" %10s", "x"))
			default:
				sb.WriteString(fmt.Sprintf(" %10d", cell.Findings))
			}
		}
		sb.WriteString("\n")
	}
}

// writeFindings lists every finding for one target, grouped by variant.
func (w *TextWriter) writeFindings(sb *strings.Builder, report *model.AggregateReport, target string) {
	variants, ok := report.Tree[target]
	if !ok {
		return
	}

	variantKeys := make([]string, 0, len(variants))
	for key := range variants {
		variantKeys = append(variantKeys, key)
	}
	sort.Strings(variantKeys)

	for _, variantKey := range variantKeys {
		outcomes := variants[variantKey]

		probeIDs := make([]string, 0, len(outcomes))
		for id := range outcomes {
			probeIDs = append(probeIDs, id)
		}
		sort.Strings(probeIDs)

		for _, probeID := range probeIDs {
			for _, finding := range outcomes[probeID].Findings {
				sb.WriteString(fmt.Sprintf("  [%s] %s: %s\n",
					w.severityLabel(finding.Severity), variantKey, finding.Summary))
				if finding.Selector != "" {
					sb.WriteString(fmt.Sprintf("    Where: %s\n", finding.Selector))
				}
				if finding.Recommendation != "" {
					sb.WriteString(fmt.Sprintf("    Fix:   %s\n", finding.Recommendation))
				}
			}
		}
	}
}

// writeFailures writes the failure tally section.
func (w *TextWriter) writeFailures(sb *strings.Builder, report *model.AggregateReport) {
	if len(report.FailureKinds) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PROBE FAILURES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.FailureKinds) == 0 {
		sb.WriteString("  No probe failures\n\n")
		return
	}

	kinds := make([]string, 0, len(report.FailureKinds))
	for kind := range report.FailureKinds {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		sb.WriteString(fmt.Sprintf("  %s: %d\n", kind, report.FailureKinds[kind]))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *TextWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by a11yscan\n")
	sb.WriteString("https://github.com/nao1215/a11yscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
