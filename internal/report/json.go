package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/reportconv/internal/model"
)

// DocumentVersion is the version of the unified JSON document layout.
const DocumentVersion = "1"

// JSONWriter outputs the unified report document.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string

	// version is the reportconv version recorded in the document.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithToolVersion records the producing tool version in the document.
func WithToolVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Document is the top-level JSON layout. Reports and diagnostics are
// always arrays, never null.
type Document struct {
	Version     string             `json:"version"`
	Tool        string             `json:"tool,omitempty"`
	SourceRoot  string             `json:"source_root"`
	StartedAt   time.Time          `json:"started_at"`
	Elapsed     time.Duration      `json:"elapsed_ns"`
	Summary     model.Summary      `json:"summary"`
	Reports     []*model.Report    `json:"reports"`
	Diagnostics []model.Diagnostic `json:"diagnostics"`
	Files       []model.FileStat   `json:"files"`
}

// NewDocument wraps a conversion result.
func NewDocument(result *model.ConversionResult, tool string) *Document {
	doc := &Document{
		Version:     DocumentVersion,
		Tool:        tool,
		SourceRoot:  result.SourceRoot,
		StartedAt:   result.StartedAt,
		Elapsed:     result.Elapsed,
		Summary:     result.Summarize(),
		Reports:     result.Reports,
		Diagnostics: result.Diagnostics,
		Files:       result.Files,
	}
	if doc.Reports == nil {
		doc.Reports = []*model.Report{}
	}
	if doc.Diagnostics == nil {
		doc.Diagnostics = []model.Diagnostic{}
	}
	if doc.Files == nil {
		doc.Files = []model.FileStat{}
	}
	return doc
}

// Write outputs the result as a JSON document followed by a newline.
func (w *JSONWriter) Write(result *model.ConversionResult) error {
	var data []byte
	var err error

	doc := NewDocument(result, w.version)
	if w.indent {
		data, err = json.MarshalIndent(doc, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return err
	}

	data = append(data, '\n')
	_, err = w.output.Write(data)
	return err
}
