package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/reportconv/internal/model"
)

// maxMarkdownReports caps the per-report table; the summary tables
// always cover every report.
const maxMarkdownReports = 200

// MarkdownWriter outputs a GitHub-flavored Markdown summary.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(result *model.ConversionResult) error {
	md := markdown.NewMarkdown(w.output)
	summary := result.Summarize()

	w.writeHeader(md, result)
	w.writeSummary(md, summary)
	w.writeCheckers(md, summary)
	w.writeReports(md, result.Reports)
	w.writeDiagnostics(md, result.Diagnostics)
	w.writeFooter(md)

	return md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.ConversionResult) {
	md.H1("Static Analysis Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source Root", "`" + result.SourceRoot + "`"},
			{"Converted", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Input Files", strconv.Itoa(len(result.Files))},
			{"Files Converted", strconv.Itoa(result.ConvertedFiles())},
			{"Reports", strconv.Itoa(len(result.Reports))},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, summary model.Summary) {
	md.H2("Severity Summary")
	md.PlainText("")

	rows := make([][]string, 0, 5)
	for _, sev := range model.Severities() {
		rows = append(rows, []string{severityLabel(sev), strconv.Itoa(summary.BySeverity[sev])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(summary.Total) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if summary.Total > 0 {
		w.writePieChart(md, summary)
	}

	switch {
	case summary.BySeverity[model.SeverityCritical] > 0:
		md.Cautionf("%d critical report(s): crashes or fatal errors.", summary.BySeverity[model.SeverityCritical])
	case summary.BySeverity[model.SeverityError] > 0:
		md.Warningf("%d error report(s).", summary.BySeverity[model.SeverityError])
	case summary.Total > 0:
		md.Note("Only warnings and style reports.")
	default:
		md.Tip("No reports.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Report Severity Distribution"),
		piechart.WithShowData(true),
	)

	for _, sev := range model.Severities() {
		if n := summary.BySeverity[sev]; n > 0 {
			chart.LabelAndIntValue(severityLabel(sev), uint64(n)) //nolint:gosec // counts are non-negative
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeCheckers(md *markdown.Markdown, summary model.Summary) {
	top := summary.TopCheckers()
	if len(top) == 0 {
		return
	}

	md.H2("Checkers")
	md.PlainText("")
	rows := make([][]string, len(top))
	for i, c := range top {
		rows[i] = []string{"`" + c.Checker + "`", strconv.Itoa(c.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Checker", "Reports"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeReports(md *markdown.Markdown, reports []*model.Report) {
	md.H2("Reports")
	md.PlainText("")

	if len(reports) == 0 {
		md.PlainText("No reports.")
		md.PlainText("")
		return
	}

	shown := reports
	if len(shown) > maxMarkdownReports {
		shown = shown[:maxMarkdownReports]
	}

	rows := make([][]string, len(shown))
	for i, r := range shown {
		rows[i] = []string{
			severityLabel(r.Severity),
			"`" + r.Location.String() + "`",
			"`" + r.CheckerName + "`",
			truncateString(r.Message, 80),
			r.AnalyzerName,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Location", "Checker", "Message", "Analyzer"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(reports) > len(shown) {
		md.PlainTextf("*%d more report(s) omitted; use the JSON output for the full list.*", len(reports)-len(shown))
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeDiagnostics(md *markdown.Markdown, diags []model.Diagnostic) {
	if len(diags) == 0 {
		return
	}

	md.H2("Diagnostics")
	md.PlainText("")
	items := make([]string, len(diags))
	for i, d := range diags {
		items[i] = d.String()
	}
	md.BulletList(items...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [reportconv](https://github.com/nao1215/reportconv)*")
}
