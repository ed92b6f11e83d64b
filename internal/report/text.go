package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/nao1215/reportconv/internal/model"
)

// TextWriter outputs compiler-style lines, one per report, followed by
// indented bug path events and a summary:
//
//	src/a.c:30:5: error: null dereference [cpp/null-deref]
//	  src/a.c:10:1: event: p set to null
//	  src/a.c:30:5: event: dereferenced here
type TextWriter struct {
	baseWriter

	colors   map[model.Severity]*color.Color
	dim      *color.Color
	showPath bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithColor enables or disables ANSI colors regardless of the terminal.
func WithColor(enabled bool) TextWriterOption {
	return func(w *TextWriter) {
		for _, c := range w.colors {
			setColor(c, enabled)
		}
		setColor(w.dim, enabled)
	}
}

// WithBugPath controls whether bug path events are printed.
func WithBugPath(show bool) TextWriterOption {
	return func(w *TextWriter) {
		w.showPath = show
	}
}

func setColor(c *color.Color, enabled bool) {
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
// Colors follow fatih/color's terminal detection unless WithColor is given.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
		colors: map[model.Severity]*color.Color{
			model.SeverityCritical: color.New(color.FgRed, color.Bold),
			model.SeverityError:    color.New(color.FgRed),
			model.SeverityWarning:  color.New(color.FgYellow),
			model.SeverityStyle:    color.New(color.FgCyan),
		},
		dim:      color.New(color.Faint),
		showPath: true,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the result in text format.
func (w *TextWriter) Write(result *model.ConversionResult) error {
	var sb strings.Builder

	for _, r := range result.Reports {
		w.writeReport(&sb, r)
	}
	for _, d := range result.Diagnostics {
		sb.WriteString(w.dim.Sprint(d.String()))
		sb.WriteString("\n")
	}
	w.writeSummary(&sb, result)

	_, err := io.WriteString(w.output, sb.String())
	return err
}

func (w *TextWriter) writeReport(sb *strings.Builder, r *model.Report) {
	sev := r.Severity.String()
	if c, ok := w.colors[r.Severity]; ok {
		sev = c.Sprint(sev)
	}
	fmt.Fprintf(sb, "%s: %s: %s [%s]", r.Location, sev, r.Message, r.CheckerName)
	if r.Duplicates > 0 {
		fmt.Fprintf(sb, " (+%d duplicate(s))", r.Duplicates)
	}
	sb.WriteString("\n")

	if !w.showPath {
		return
	}
	for _, ev := range r.BugPath {
		w.writeEvent(sb, ev, 1)
	}
}

func (w *TextWriter) writeEvent(sb *strings.Builder, ev model.BugPathEvent, indent int) {
	pad := strings.Repeat("  ", indent+ev.Depth)
	line := fmt.Sprintf("%s%s: %s: %s", pad, ev.Location, ev.Kind, ev.Message)
	if ev.Origin != nil {
		line += fmt.Sprintf(" (defined at %s)", ev.Origin)
	}
	sb.WriteString(w.dim.Sprint(line))
	sb.WriteString("\n")
	for _, n := range ev.Notes {
		w.writeEvent(sb, n, indent+1)
	}
}

func (w *TextWriter) writeSummary(sb *strings.Builder, result *model.ConversionResult) {
	summary := result.Summarize()
	parts := make([]string, 0, 4)
	for _, sev := range model.Severities() {
		if n := summary.BySeverity[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(severityLabel(sev))))
		}
	}
	detail := ""
	if len(parts) > 0 {
		detail = " (" + strings.Join(parts, ", ") + ")"
	}
	fmt.Fprintf(sb, "%d report(s)%s from %d of %d file(s)\n",
		summary.Total, detail, result.ConvertedFiles(), len(result.Files))
}
