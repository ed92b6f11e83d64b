// Package format defines the contract every analyzer format parser
// implements and the registry that picks a parser for an input.
package format

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/nao1215/reportconv/internal/model"
)

// SampleSize is the number of leading bytes handed to detectors.
const SampleSize = 8 * 1024

// Parser decodes one analyzer output file into unified reports.
//
// Implementations must be stateless: the same value is shared by every
// worker of every conversion run. Records that are structurally valid but
// miss required data are skipped with a warning; only an unreadable
// container yields an error (a *model.ParseError).
type Parser interface {
	// Name is the format identifier used by --type and in diagnostics.
	Name() string

	// Analyzer is the analyzer name stamped on reports when the input does
	// not name one itself.
	Analyzer() string

	// Detect reports whether the leading bytes of an input look like this
	// format.
	Detect(sample []byte) bool

	// Parse decodes the input.
	Parse(ctx context.Context, in Input) (*Result, error)
}

// Input is one analyzer output, already read, decompressed and decoded
// to UTF-8 by the input reader.
type Input struct {
	// Path is the analyzer output file. Parsers use it for diagnostics and
	// to resolve paths relative to the output file.
	Path string

	// Data is the complete file content.
	Data []byte

	// Sources reads the source files an analyzer output refers to. Formats
	// that store byte offsets need it to compute lines and columns.
	// When nil, files are read from the local filesystem as written.
	Sources SourceReader
}

// SourceReader reads a source file referenced by an analyzer output.
// The pipeline supplies one that applies the configured path mappings, so
// build-machine paths can be read from the local checkout.
type SourceReader interface {
	ReadSource(path string) ([]byte, error)
}

// ReadSource reads a referenced source file through in.Sources.
func (in Input) ReadSource(path string) ([]byte, error) {
	if in.Sources == nil {
		return os.ReadFile(path) //nolint:gosec // paths come from the analyzer output being converted
	}
	return in.Sources.ReadSource(path)
}

// Sample returns the leading bytes of the input used for detection.
func (in Input) Sample() []byte {
	if len(in.Data) > SampleSize {
		return in.Data[:SampleSize]
	}
	return in.Data
}

// Result is the output of a single Parse call.
type Result struct {
	Reports  []*model.Report
	Warnings []string
}

// Add appends a report, stamping the source file.
func (r *Result) Add(in Input, rep *model.Report) {
	rep.SourceFile = in.Path
	r.Reports = append(r.Reports, rep)
}

// Skip records a record-level field error as a warning.
func (r *Result) Skip(index int, field, reason string) {
	r.Warnings = append(r.Warnings, (&model.FieldError{Index: index, Field: field, Reason: reason}).Error())
}

// Warnf records a free-form warning.
func (r *Result) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// TrimSpaceLeft returns the sample without leading whitespace and a UTF-8 BOM.
func TrimSpaceLeft(sample []byte) []byte {
	sample = bytes.TrimPrefix(sample, []byte("\xef\xbb\xbf"))
	return bytes.TrimLeft(sample, " \t\r\n")
}

// LooksLikeJSON reports whether the sample starts like a JSON document.
func LooksLikeJSON(sample []byte) bool {
	s := TrimSpaceLeft(sample)
	return len(s) > 0 && (s[0] == '{' || s[0] == '[')
}

// ValidPoint reports whether line and column satisfy the report invariants.
func ValidPoint(line, column int) bool {
	return line >= 1 && column >= 0
}

// contextCheckInterval is how many records a parser processes between
// cancellation checks.
const contextCheckInterval = 256

// CheckContext returns the context error every contextCheckInterval
// iterations. Parsers call it from their record loops so a per-file
// timeout stops a long parse.
func CheckContext(ctx context.Context, i int) error {
	if i%contextCheckInterval != 0 {
		return nil
	}
	return ctx.Err()
}
