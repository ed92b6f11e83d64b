package model

import (
	"fmt"
	"strings"
)

// Severity represents the unified severity of a report.
// Every format parser maps its own vocabulary onto this scale.
//
// Severities are ordered, so comparisons such as s >= SeverityError are
// meaningful. The zero value is SeverityStyle.
type Severity int

const (
	// SeverityStyle is used for readability, naming and modernization
	// findings that do not indicate a defect.
	SeverityStyle Severity = iota

	// SeverityWarning is the default severity. Unknown severity tokens
	// and formats that do not carry a severity map here.
	SeverityWarning

	// SeverityError indicates a likely defect.
	SeverityError

	// SeverityCritical indicates a confirmed or fatal defect, such as a
	// sanitizer crash or a compiler fatal error.
	SeverityCritical
)

// DefaultSeverity is the severity used when a record carries none.
const DefaultSeverity = SeverityWarning

// String returns the lower-case name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityStyle:
		return "style"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Severities returns all severities from the most to the least severe.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityError, SeverityWarning, SeverityStyle}
}

// ParseSeverity converts a unified severity name into a Severity.
// Matching is case-insensitive and "fatal" is accepted as an alias for
// critical. Unknown names return DefaultSeverity and false.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "style":
		return SeverityStyle, true
	case "warning":
		return SeverityWarning, true
	case "error":
		return SeverityError, true
	case "critical", "fatal":
		return SeverityCritical, true
	default:
		return DefaultSeverity, false
	}
}

// SeverityMap is a per-format translation table from native severity
// tokens to unified severities. Keys are compared case-insensitively.
type SeverityMap map[string]Severity

// Map returns the unified severity for token.
// Tokens missing from the table fall back to DefaultSeverity.
func (m SeverityMap) Map(token string) Severity {
	if sev, ok := m[strings.ToLower(strings.TrimSpace(token))]; ok {
		return sev
	}
	return DefaultSeverity
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	sev, ok := ParseSeverity(string(text))
	if !ok {
		return fmt.Errorf("unknown severity %q", string(text))
	}
	*s = sev
	return nil
}
