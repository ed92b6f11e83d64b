package report

import (
	"io"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/reportconv/internal/model"
)

// Writer outputs a conversion result.
type Writer interface {
	Write(result *model.ConversionResult) error
}

// MultiWriter writes to multiple Writers in order and stops at the first
// error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to all configured Writers.
func (m *MultiWriter) Write(result *model.ConversionResult) error {
	for _, w := range m.writers {
		if err := w.Write(result); err != nil {
			return err
		}
	}
	return nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// severityLabel returns the display name of a severity, e.g. "Critical".
// A Caser keeps state, so one is created per call.
func severityLabel(s model.Severity) string {
	return cases.Title(language.English).String(s.String())
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
