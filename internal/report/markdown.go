package report

import (
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/a11yscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation, pull request comments, and
// sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the aggregate report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AggregateReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeTargets(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AggregateReport) {
	md.H1("Accessibility Scan Report")
	md.PlainText("")

	started := "-"
	if !report.StartedAt.IsZero() {
		started = report.StartedAt.Format("2006-01-02 15:04:05 MST")
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + report.RunID + "`"},
			{"Started", started},
			{"Targets", strconv.Itoa(len(report.Targets))},
			{"Cells", strconv.Itoa(report.TotalCells)},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on the cell rollup.
func (w *MarkdownWriter) getStatusText(report *model.AggregateReport) string {
	if report.PartialCells > 0 {
		return "⚠️ " + strconv.Itoa(report.PartialCells) + " degraded cell(s)"
	}
	return "✅ Complete"
}

// writeSummary writes the severity summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.AggregateReport) {
	md.H2("Severity Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🔴 Critical", strconv.Itoa(report.Global.Critical)},
			{"🟠 Serious", strconv.Itoa(report.Global.Serious)},
			{"🟡 Moderate", strconv.Itoa(report.Global.Moderate)},
			{"🔵 Minor", strconv.Itoa(report.Global.Minor)},
			{"⚪ Info", strconv.Itoa(report.Global.Info)},
			{"**Total**", "**" + strconv.Itoa(report.TotalFindings()) + "**"},
		},
	})
	md.PlainText("")

	if report.HasFindings() {
		w.writePieChart(md, report)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart for severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.AggregateReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Severity Distribution"),
		piechart.WithShowData(true),
	)

	if report.Global.Critical > 0 {
		chart.LabelAndIntValue("Critical", uint64(report.Global.Critical))
	}
	if report.Global.Serious > 0 {
		chart.LabelAndIntValue("Serious", uint64(report.Global.Serious))
	}
	if report.Global.Moderate > 0 {
		chart.LabelAndIntValue("Moderate", uint64(report.Global.Moderate))
	}
	if report.Global.Minor > 0 {
		chart.LabelAndIntValue("Minor", uint64(report.Global.Minor))
	}
	if report.Global.Info > 0 {
		chart.LabelAndIntValue("Info", uint64(report.Global.Info))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on severity counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.AggregateReport) {
	switch {
	case report.Global.Critical > 0:
		md.Cautionf(
			"Critical accessibility barriers detected! %d critical finding(s) block affected users entirely.",
			report.Global.Critical,
		)
	case report.Global.Serious > 0:
		md.Warningf(
			"Serious accessibility issues detected. %d finding(s) block common tasks for some users.",
			report.Global.Serious,
		)
	case report.Global.Moderate > 0:
		md.Importantf(
			"Moderate accessibility issues found. %d finding(s) make content harder to use.",
			report.Global.Moderate,
		)
	case report.TotalFindings() > 0:
		md.Note("Only minor and informational findings detected.")
	default:
		md.Tip("No accessibility issues detected.")
	}
	md.PlainText("")
}

// writeTargets writes one section per target with its variant rollup table,
// cross-variant comparison, and findings.
func (w *MarkdownWriter) writeTargets(md *markdown.Markdown, report *model.AggregateReport) {
	if len(report.Targets) == 0 {
		return
	}

	md.H2("Results by Target")
	md.PlainText("")

	comparisons := make(map[string]model.VariantComparison, len(report.Comparisons))
	for _, c := range report.Comparisons {
		comparisons[c.Target] = c
	}

	for _, target := range report.Targets {
		md.PlainText("### `" + target.Target + "`")
		md.PlainText("")

		w.writeVariantTable(md, target)

		if comparison, ok := comparisons[target.Target]; ok && len(comparison.Probes) > 1 {
			w.writeComparisonTable(md, comparison)
		}

		w.writeFindingsTable(md, report, target.Target)
	}
}

// writeVariantTable writes the per-variant rollup for one target.
func (w *MarkdownWriter) writeVariantTable(md *markdown.Markdown, target model.TargetRollup) {
	rows := make([][]string, 0, len(target.Variants))
	for _, variant := range target.Variants {
		state := variant.State
		if variant.HandleError != "" {
			state += " (" + truncateString(variant.HandleError, 40) + ")"
		}
		rows = append(rows, []string{
			variant.VariantKey,
			state,
			strconv.Itoa(variant.Counts.Critical),
			strconv.Itoa(variant.Counts.Serious),
			strconv.Itoa(variant.Counts.Moderate),
			strconv.Itoa(variant.Counts.Minor),
			strconv.Itoa(variant.Counts.Info),
			strconv.Itoa(variant.Counts.Total()),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Variant", "State", "Critical", "Serious", "Moderate", "Minor", "Info", "Total"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeComparisonTable writes findings-per-probe-per-variant for one target.
// Failed probes show "x", absent probes "-".
func (w *MarkdownWriter) writeComparisonTable(md *markdown.Markdown, comparison model.VariantComparison) {
	md.PlainText("How the same page fares across variants, findings per probe:")
	md.PlainText("")

	header := append([]string{"Variant"}, comparison.Probes...)

	rows := make([][]string, 0, len(comparison.Rows))
	for _, row := range comparison.Rows {
		cells := make([]string, 0, len(row.Cells)+1)
		cells = append(cells, row.VariantKey)
		for _, cell := range row.Cells {
			switch {
			case cell.Absent:
				cells = append(cells, "-")
			case cell.Failed:
				cells = append(cells, "x ("+cell.ErrorKind+")")
			default:
				cells = append(cells, strconv.Itoa(cell.Findings))
			}
		}
		rows = append(rows, cells)
	}

	md.Table(markdown.TableSet{
		Header: header,
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFindingsTable writes the individual findings for one target.
func (w *MarkdownWriter) writeFindingsTable(md *markdown.Markdown, report *model.AggregateReport, target string) {
	variants, ok := report.Tree[target]
	if !ok {
		return
	}

	variantKeys := make([]string, 0, len(variants))
	for key := range variants {
		variantKeys = append(variantKeys, key)
	}
	sort.Strings(variantKeys)

	var rows [][]string
	for _, variantKey := range variantKeys {
		outcomes := variants[variantKey]

		probeIDs := make([]string, 0, len(outcomes))
		for id := range outcomes {
			probeIDs = append(probeIDs, id)
		}
		sort.Strings(probeIDs)

		for _, probeID := range probeIDs {
			for _, finding := range outcomes[probeID].Findings {
				where := finding.Selector
				if where == "" {
					where = "-"
				}
				rows = append(rows, []string{
					finding.SeverityText,
					finding.Code,
					truncateString(finding.Summary, 60),
					truncateString(where, 40),
					variantKey,
				})
			}
		}
	}

	if len(rows) == 0 {
		md.PlainText("No findings for this target.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Code", "Summary", "Where", "Variant"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes the probe failure tally.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.AggregateReport) {
	if len(report.FailureKinds) == 0 {
		return
	}

	md.H2("Probe Failures")
	md.PlainText("")

	kinds := make([]string, 0, len(report.FailureKinds))
	for kind := range report.FailureKinds {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	rows := make([][]string, 0, len(kinds))
	for _, kind := range kinds {
		rows = append(rows, []string{kind, strconv.Itoa(report.FailureKinds[kind])})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Error Kind", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [a11yscan](https://github.com/nao1215/a11yscan)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
