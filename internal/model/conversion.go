package model

import (
	"sort"
	"time"
)

// FileStatus is the outcome of converting one analyzer output file.
type FileStatus int

const (
	// FileConverted means the file was parsed (possibly with record warnings).
	FileConverted FileStatus = iota
	// FileSkipped means the file was dropped with a diagnostic.
	FileSkipped
)

// String returns the name of the status.
func (s FileStatus) String() string {
	if s == FileConverted {
		return "converted"
	}
	return "skipped"
}

// MarshalText implements encoding.TextMarshaler.
func (s FileStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FileStat summarizes the conversion of one input file.
type FileStat struct {
	Path       string        `json:"path"`
	Format     string        `json:"format,omitempty"`
	Status     FileStatus    `json:"status"`
	Reports    int           `json:"reports"`
	Warnings   int           `json:"warnings"`
	External   int           `json:"external_paths,omitempty"`
	Unresolved int           `json:"unresolved_paths,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
}

// ConversionResult is the output of one conversion run: the finalized
// report collection plus the diagnostics explaining what was dropped.
type ConversionResult struct {
	SourceRoot  string        `json:"source_root"`
	Reports     []*Report     `json:"reports"`
	Diagnostics []Diagnostic  `json:"diagnostics"`
	Files       []FileStat    `json:"files"`
	StartedAt   time.Time     `json:"started_at"`
	Elapsed     time.Duration `json:"elapsed"`
}

// ConvertedFiles returns the number of files that were parsed.
func (c *ConversionResult) ConvertedFiles() int {
	n := 0
	for _, f := range c.Files {
		if f.Status == FileConverted {
			n++
		}
	}
	return n
}

// Failed reports whether the run produced nothing: zero reports from zero
// successfully parsed files.
func (c *ConversionResult) Failed() bool {
	return len(c.Reports) == 0 && c.ConvertedFiles() == 0
}

// Messages returns the diagnostics as human-readable lines.
func (c *ConversionResult) Messages() []string {
	out := make([]string, len(c.Diagnostics))
	for i, d := range c.Diagnostics {
		out[i] = d.String()
	}
	return out
}

// Summary aggregates report counts for writers.
type Summary struct {
	Total      int              `json:"total"`
	BySeverity map[Severity]int `json:"by_severity"`
	ByChecker  map[string]int   `json:"by_checker"`
	ByAnalyzer map[string]int   `json:"by_analyzer"`
}

// Summarize counts the reports of the result.
func (c *ConversionResult) Summarize() Summary {
	s := Summary{
		Total:      len(c.Reports),
		BySeverity: make(map[Severity]int),
		ByChecker:  make(map[string]int),
		ByAnalyzer: make(map[string]int),
	}
	for _, r := range c.Reports {
		s.BySeverity[r.Severity]++
		s.ByChecker[r.CheckerName]++
		s.ByAnalyzer[r.AnalyzerName]++
	}
	return s
}

// CheckerCount is a checker name with its number of reports.
type CheckerCount struct {
	Checker string
	Count   int
}

// TopCheckers returns checkers sorted by descending report count, then name.
func (s Summary) TopCheckers() []CheckerCount {
	out := make([]CheckerCount, 0, len(s.ByChecker))
	for name, n := range s.ByChecker {
		out = append(out, CheckerCount{Checker: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Checker < out[j].Checker
	})
	return out
}
