package model

import (
	"errors"
	"fmt"
)

// ErrParse is wrapped by every ParseError.
var ErrParse = errors.New("unreadable analyzer output")

// ErrRegistryMiss is returned when no format parser claims an input.
var ErrRegistryMiss = errors.New("no format parser recognizes the input")

// ParseError reports an input that cannot be read as its claimed format:
// broken container syntax, wrong encoding, truncated payload.
// The whole file is skipped.
type ParseError struct {
	Format string
	Err    error
}

// NewParseError wraps err as a ParseError for the given format.
func NewParseError(format string, err error) *ParseError {
	return &ParseError{Format: format, Err: err}
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Format, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrParse) true for every ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// FieldError reports a single record missing required data inside an
// otherwise valid file. The record is skipped and the error is downgraded
// to a warning.
type FieldError struct {
	// Index is the position of the record in the input, or the input line
	// number for line-oriented formats.
	Index  int
	Field  string
	Reason string
}

// Error implements error.
func (e *FieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("record %d: %s: %s", e.Index, e.Field, e.Reason)
}

// DiagnosticKind classifies a pipeline diagnostic.
type DiagnosticKind int

const (
	// DiagParseError is a file-level skip caused by a ParseError.
	DiagParseError DiagnosticKind = iota
	// DiagFieldError is a record-level skip.
	DiagFieldError
	// DiagRegistryMiss is a file-level skip because no parser claimed it.
	DiagRegistryMiss
	// DiagSkipped is a file-level skip for I/O reasons: unreadable, too
	// large, timed out.
	DiagSkipped
	// DiagNoResults signals that the whole run produced nothing usable.
	DiagNoResults
)

// String returns the name of the kind.
func (k DiagnosticKind) String() string {
	switch k {
	case DiagParseError:
		return "parse-error"
	case DiagFieldError:
		return "field-error"
	case DiagRegistryMiss:
		return "registry-miss"
	case DiagSkipped:
		return "skipped"
	case DiagNoResults:
		return "no-results"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k DiagnosticKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Diagnostic is a human-readable explanation of something that could not
// be converted.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	File    string         `json:"file,omitempty"`
	Message string         `json:"message"`
}

// String renders the diagnostic as a single line.
func (d Diagnostic) String() string {
	if d.File == "" {
		return fmt.Sprintf("[%s] %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Kind, d.File, d.Message)
}
