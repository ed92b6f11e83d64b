package model

import (
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"
)

// PathStatus records what the path resolver did with a location's file.
type PathStatus int

const (
	// PathRaw means the location has not been through the resolver yet.
	PathRaw PathStatus = iota

	// PathResolved means File is relative to the source root.
	PathResolved

	// PathExternal means the file lies outside the source root.
	// File keeps the original absolute path.
	PathExternal

	// PathUnresolved means the file could not be canonicalized (empty path
	// or missing file). File keeps the original string.
	PathUnresolved
)

// String returns the name of the path status.
func (p PathStatus) String() string {
	switch p {
	case PathRaw:
		return "raw"
	case PathResolved:
		return "resolved"
	case PathExternal:
		return "external"
	case PathUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p PathStatus) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PathStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "resolved":
		*p = PathResolved
	case "external":
		*p = PathExternal
	case "unresolved":
		*p = PathUnresolved
	default:
		*p = PathRaw
	}
	return nil
}

// Position is a 1-based line and column pair.
// Column 0 means the tool did not report a column.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is a highlighted span inside a single file.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location is a point in a source file.
type Location struct {
	// File is the canonical path once the location has been resolved,
	// and the parser-produced path before that.
	File string `json:"file"`

	// Line is 1-based.
	Line int `json:"line"`

	// Column is 1-based; 0 when unknown.
	Column int `json:"column"`

	// Status is set by the path resolver.
	Status PathStatus `json:"status,omitempty"`

	// OriginalFile is the path as written by the analyzer. It is only
	// populated when it differs from File.
	OriginalFile string `json:"original_file,omitempty"`
}

// Position returns the line and column of the location.
func (l Location) Position() Position {
	return Position{Line: l.Line, Column: l.Column}
}

// SamePoint reports whether two locations refer to the same file, line and column.
func (l Location) SamePoint(other Location) bool {
	return l.File == other.File && l.Line == other.Line && l.Column == other.Column
}

// String formats the location as file:line:column.
func (l Location) String() string {
	var sb strings.Builder
	sb.WriteString(l.File)
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(l.Line))
	if l.Column > 0 {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(l.Column))
	}
	return sb.String()
}

// EventKind distinguishes the entries of a bug path.
type EventKind int

const (
	// EventKindEvent is a substantive step of the trace.
	EventKindEvent EventKind = iota

	// EventKindNote is a secondary annotation without its own severity.
	EventKindNote

	// EventKindMacroExpansion marks a macro expansion. Location is the
	// expansion site, Origin the macro definition.
	EventKindMacroExpansion
)

// String returns the name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventKindEvent:
		return "event"
	case EventKindNote:
		return "note"
	case EventKindMacroExpansion:
		return "macro-expansion"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseEventKind converts a kind name into an EventKind. Unknown or empty
// names are events.
func ParseEventKind(s string) EventKind {
	switch s {
	case "note":
		return EventKindNote
	case "macro-expansion", "macro_expansion":
		return EventKindMacroExpansion
	default:
		return EventKindEvent
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EventKind) UnmarshalText(text []byte) error {
	*k = ParseEventKind(string(text))
	return nil
}

// BugPathEvent is one step of a multi-point diagnostic trace.
type BugPathEvent struct {
	Location Location  `json:"location"`
	Message  string    `json:"message,omitempty"`
	Kind     EventKind `json:"kind"`

	// Depth is the call depth of the step, 0 for the top frame.
	Depth int `json:"depth,omitempty"`

	Ranges []Range `json:"ranges,omitempty"`

	// Origin is the macro definition site of a macro-expansion event.
	Origin *Location `json:"origin,omitempty"`

	// Notes are attached to the nearest preceding substantive event.
	Notes []BugPathEvent `json:"notes,omitempty"`
}

// Report is one finding in the unified model.
type Report struct {
	CheckerName string   `json:"checker_name"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`

	// Location is the primary location of the finding.
	Location Location `json:"location"`

	// BugPath is ordered root-cause-first and ends at Location.
	// It is empty for single-point diagnostics.
	BugPath []BugPathEvent `json:"bug_path,omitempty"`

	Ranges       []Range `json:"ranges,omitempty"`
	Category     string  `json:"category,omitempty"`
	AnalyzerName string  `json:"analyzer_name"`

	// SourceFile is the analyzer output file the report was parsed from.
	SourceFile string `json:"source_file,omitempty"`

	// Duplicates counts the reports merged into this one.
	Duplicates int `json:"duplicates,omitempty"`

	// Sources lists every analyzer output file that produced this finding.
	Sources []string `json:"sources,omitempty"`
}

// DedupKey identifies the underlying defect a report describes.
type DedupKey struct {
	CheckerName string
	File        string
	Line        int
	Column      int
	Message     string
}

// Key returns the deduplication key of the report.
func (r *Report) Key() DedupKey {
	return DedupKey{
		CheckerName: r.CheckerName,
		File:        r.Location.File,
		Line:        r.Location.Line,
		Column:      r.Location.Column,
		Message:     r.Message,
	}
}

// Hash returns a stable hex fingerprint of the report's deduplication key.
func (r *Report) Hash() string {
	k := r.Key()
	h := sha3.New256()
	for _, part := range []string{
		k.CheckerName, k.File, strconv.Itoa(k.Line), strconv.Itoa(k.Column), k.Message,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Finalize enforces the bug path invariant: a non-empty bug path must end
// at the primary location. When it does not, a terminal event carrying the
// report message is appended.
func (r *Report) Finalize() {
	if len(r.BugPath) == 0 {
		return
	}
	last := r.BugPath[len(r.BugPath)-1]
	if last.Kind == EventKindEvent && last.Location.SamePoint(r.Location) {
		return
	}
	r.BugPath = append(r.BugPath, BugPathEvent{
		Location: r.Location,
		Message:  r.Message,
		Kind:     EventKindEvent,
	})
}

// Clone returns a deep copy of the report.
func (r *Report) Clone() *Report {
	c := *r
	c.BugPath = cloneEvents(r.BugPath)
	c.Ranges = cloneRanges(r.Ranges)
	if r.Sources != nil {
		c.Sources = append([]string(nil), r.Sources...)
	}
	return &c
}

func cloneEvents(events []BugPathEvent) []BugPathEvent {
	if events == nil {
		return nil
	}
	out := make([]BugPathEvent, len(events))
	for i, ev := range events {
		out[i] = ev
		out[i].Ranges = cloneRanges(ev.Ranges)
		out[i].Notes = cloneEvents(ev.Notes)
		if ev.Origin != nil {
			origin := *ev.Origin
			out[i].Origin = &origin
		}
	}
	return out
}

func cloneRanges(ranges []Range) []Range {
	if ranges == nil {
		return nil
	}
	return append([]Range(nil), ranges...)
}

// CheckerCategory returns the prefix of a dash-separated checker name,
// e.g. "bugprone" for "bugprone-use-after-move".
func CheckerCategory(checker string) string {
	if i := strings.IndexByte(checker, '-'); i > 0 {
		return checker[:i]
	}
	return ""
}
