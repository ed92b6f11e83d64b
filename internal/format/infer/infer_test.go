package infer

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/reportconv/internal/format"
	"github.com/nao1215/reportconv/internal/model"
)

const report = `[
  {
    "bug_type": "NULL_DEREFERENCE",
    "qualifier": "pointer p last assigned on line 10 could be null and is dereferenced at line 20",
    "severity": "ERROR",
    "file": "src/a.c", "line": 20, "column": -1,
    "procedure": "main",
    "bug_trace": [
      {"level": 0, "filename": "src/a.c", "line_number": 9, "column_number": -1, "description": "start of procedure main()"},
      {"level": 1, "filename": "src/b.c", "line_number": 3, "column_number": 5, "description": "start of procedure get()"},
      {"level": 1, "filename": "src/b.c", "line_number": 4, "column_number": 5, "description": "return from a call to get"},
      {"level": 0, "filename": "src/a.c", "line_number": 20, "column_number": -1, "description": ""}
    ]
  },
  {
    "bug_type": "DEAD_STORE",
    "qualifier": "The value written to &x is never used",
    "severity": "ADVICE",
    "file": "src/a.c", "line": 30, "column": 2
  },
  {
    "bug_type": "RESOURCE_LEAK",
    "qualifier": "resource acquired but not released",
    "severity": "BLOCKER",
    "file": "src/c.c", "line": 7
  },
  {"qualifier": "no bug type", "file": "src/a.c", "line": 1},
  {"bug_type": "X", "qualifier": "bad line type", "file": "src/a.c", "line": "one"}
]`

// TestParse tests report.json conversion.
func TestParse(t *testing.T) {
	t.Parallel()

	res, err := New().Parse(context.Background(), format.Input{Path: "infer-out/report.json", Data: []byte(report)})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(res.Reports))
	}
	if len(res.Warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", res.Warnings)
	}

	npe := res.Reports[0]
	if npe.Severity != model.SeverityError || npe.Location.Column != 0 {
		t.Errorf("unexpected report: %+v", npe)
	}
	wantDepth := []int{0, 1, 1, 0}
	if len(npe.BugPath) != len(wantDepth) {
		t.Fatalf("expected %d events, got %+v", len(wantDepth), npe.BugPath)
	}
	for i, ev := range npe.BugPath {
		if ev.Depth != wantDepth[i] {
			t.Errorf("event %d: depth %d, expected %d", i, ev.Depth, wantDepth[i])
		}
	}
	if !npe.BugPath[3].Location.SamePoint(npe.Location) {
		t.Error("last event must be the primary location")
	}

	if res.Reports[1].Severity != model.SeverityStyle {
		t.Errorf("expected ADVICE to map to style, got %v", res.Reports[1].Severity)
	}
	if res.Reports[1].BugPath != nil {
		t.Errorf("expected no bug path without a trace, got %+v", res.Reports[1].BugPath)
	}
	if res.Reports[2].Severity != model.SeverityWarning {
		t.Errorf("expected unknown severity to fall back to warning, got %v", res.Reports[2].Severity)
	}
}

// TestParseNotAnArray tests that a non-array document is a parse error.
func TestParseNotAnArray(t *testing.T) {
	t.Parallel()

	_, err := New().Parse(context.Background(), format.Input{Path: "r.json", Data: []byte(`{"bug_type": "X"}`)})
	if !errors.Is(err, model.ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

// TestDetect tests format detection.
func TestDetect(t *testing.T) {
	t.Parallel()

	p := New()
	if !p.Detect([]byte(report)) {
		t.Error("expected Infer report to be detected")
	}
	if p.Detect([]byte(`{"runs": [], "bug_type": "x"}`)) {
		t.Error("objects must not be claimed")
	}
	if p.Detect([]byte(`[{"checker": "a"}]`)) {
		t.Error("unified lists must not be claimed")
	}
}
