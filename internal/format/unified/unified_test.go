package unified

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/reportconv/internal/format"
	"github.com/nao1215/reportconv/internal/model"
)

const yamlDoc = `analyzer: my-linter
reports:
  - checker: style-naming
    severity: style
    message: bad name
    file: src/a.c
    line: 3
    column: 7
  - checker_name: core-leak
    severity: catastrophic
    message: memory leak
    location: {file: src/b.c, line: 40, column: 2}
    analyzer: leakcheck
    path:
      - {file: src/b.c, line: 10, column: 5, message: allocated here}
      - {file: src/b.c, line: 11, column: 1, message: size computed here, kind: note}
      - {file: src/b.c, line: 40, column: 2, message: leaked}
  - checker: missing-message
    file: src/c.c
    line: 1
  - checker: bad-line
    message: m
    file: src/c.c
    line: zero
`

// TestParseYAML tests the flat YAML variant.
func TestParseYAML(t *testing.T) {
	t.Parallel()

	res, err := New().Parse(context.Background(), format.Input{Path: "findings.yaml", Data: []byte(yamlDoc)})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Reports) != 2 {
		t.Fatalf("expected 2 reports, got %d (warnings %v)", len(res.Reports), res.Warnings)
	}
	if len(res.Warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", res.Warnings)
	}

	naming := res.Reports[0]
	if naming.AnalyzerName != "my-linter" || naming.Severity != model.SeverityStyle {
		t.Errorf("unexpected first report: %+v", naming)
	}
	if naming.Location != (model.Location{File: "src/a.c", Line: 3, Column: 7}) {
		t.Errorf("unexpected location: %+v", naming.Location)
	}

	leak := res.Reports[1]
	if leak.AnalyzerName != "leakcheck" {
		t.Errorf("expected per-record analyzer, got %q", leak.AnalyzerName)
	}
	if leak.Severity != model.SeverityWarning {
		t.Errorf("expected unknown severity to fall back to warning, got %v", leak.Severity)
	}
	if len(leak.BugPath) != 2 {
		t.Fatalf("expected 2 events, got %+v", leak.BugPath)
	}
	if notes := leak.BugPath[0].Notes; len(notes) != 1 || notes[0].Message != "size computed here" {
		t.Errorf("expected the note on the first event, got %+v", notes)
	}
}

// TestParseJSONList tests a bare JSON list with nested locations and notes.
func TestParseJSONList(t *testing.T) {
	t.Parallel()

	doc := `[
	  {"checker_name": "c", "severity": "critical", "message": "m", "analyzer_name": "a",
	   "location": {"file": "x.c", "line": 2, "column": 1, "status": "resolved"},
	   "bug_path": [
	     {"location": {"file": "x.c", "line": 1, "column": 1}, "message": "start", "kind": "event",
	      "notes": [{"location": {"file": "x.c", "line": 1, "column": 4}, "message": "n", "kind": "note"}]},
	     {"location": {"file": "x.c", "line": 2, "column": 1}, "message": "m", "kind": "event"}
	   ]}
	]`

	res, err := New().Parse(context.Background(), format.Input{Path: "out.json", Data: []byte(doc)})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Reports) != 1 {
		t.Fatalf("expected 1 report, got %d (warnings %v)", len(res.Reports), res.Warnings)
	}
	r := res.Reports[0]
	if r.Severity != model.SeverityCritical || r.AnalyzerName != "a" {
		t.Errorf("unexpected report: %+v", r)
	}
	if len(r.BugPath) != 2 || len(r.BugPath[0].Notes) != 1 {
		t.Errorf("expected nested notes to survive, got %+v", r.BugPath)
	}
}

// TestParseMalformed tests container-level failures.
func TestParseMalformed(t *testing.T) {
	t.Parallel()

	testCases := map[string]string{
		"yaml": "reports:\n  - checker: a\n   message: [unclosed\n",
		"json": `{"reports": [{"checker": "a"`,
	}
	for name, data := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := New().Parse(context.Background(), format.Input{Path: "x", Data: []byte(data)})
			if !errors.Is(err, model.ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}
		})
	}
}

// TestDetect tests format detection.
func TestDetect(t *testing.T) {
	t.Parallel()

	p := New()
	if !p.Detect([]byte(yamlDoc)) {
		t.Error("expected YAML document to be detected")
	}
	if !p.Detect([]byte(`{"reports": [{"checker_name": "x"}]}`)) {
		t.Error("expected JSON document to be detected")
	}
	if p.Detect([]byte("a.c:1:2: warning: unused variable 'x' [-Wunused-variable]\n")) {
		t.Error("compiler output must not be claimed")
	}
	if p.Detect([]byte("src/b.c:7:1: error: unknown checker: foo\n    checker: foo\n")) {
		t.Error("compiler output mentioning a checker must not be claimed")
	}
	if !p.Detect([]byte("- {checker: a, message: m, file: a.c, line: 1}\n")) {
		t.Error("expected flow-style YAML list to be detected")
	}
}
