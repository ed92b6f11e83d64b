package formats

import (
	"errors"
	"testing"

	"github.com/nao1215/reportconv/internal/format"
	"github.com/nao1215/reportconv/internal/model"
)

// TestDefaultDetectionOrder tests that each sample is claimed by its own parser.
func TestDefaultDetectionOrder(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		data     string
		expected string
	}{
		{
			name:     "plist",
			data:     `<?xml version="1.0"?><plist version="1.0"><dict><key>diagnostics</key><array/></dict></plist>`,
			expected: "plist",
		},
		{
			name:     "sarif mentioning checker fields",
			data:     `{"version": "2.1.0", "runs": [{"tool": {"driver": {"name": "x"}}, "results": [{"message": {"text": "\"checker\": y"}}]}]}`,
			expected: "sarif",
		},
		{
			name:     "infer",
			data:     `[{"bug_type": "NULL_DEREFERENCE", "file": "a.c", "line": 1}]`,
			expected: "infer",
		},
		{
			name:     "clang-tidy",
			data:     "---\nMainSourceFile: /src/a.cpp\nDiagnostics:\n  - DiagnosticName: misc-x\n",
			expected: "clang-tidy-yaml",
		},
		{
			name:     "unified yaml",
			data:     "reports:\n  - checker: a\n    message: m\n    file: a.c\n    line: 1\n",
			expected: "unified",
		},
		{
			name:     "unified yaml list",
			data:     "- checker_name: a\n  message: m\n  file: a.c\n  line: 1\n",
			expected: "unified",
		},
		{
			name:     "unified json",
			data:     `[{"checker_name": "a", "message": "m", "location": {"file": "a.c", "line": 1}}]`,
			expected: "unified",
		},
		{
			name:     "ubsan",
			data:     "a.c:3:9: runtime error: division by zero\n",
			expected: "sanitizer",
		},
		{
			name:     "smatch",
			data:     "drivers/a.c:12 a_probe() warn: variable dereferenced before check 'p'\n",
			expected: "smatch",
		},
		{
			name:     "gcc",
			data:     "a.c:3:9: warning: unused variable 'x' [-Wunused-variable]\n",
			expected: "gcc",
		},
		{
			name:     "gcc mentioning checker in a message",
			data:     "src/a.c:3:5: warning: unused variable 'x' [-Wunused-variable]\nsrc/b.c:7:1: error: unknown checker: foo\n",
			expected: "gcc",
		},
	}

	reg := Default()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p, err := reg.Resolve(format.Input{Path: "in", Data: []byte(tc.data)}, "")
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if p.Name() != tc.expected {
				t.Errorf("claimed by %q, expected %q", p.Name(), tc.expected)
			}
		})
	}
}

// TestDefaultMiss tests that unknown content is a registry miss.
func TestDefaultMiss(t *testing.T) {
	t.Parallel()

	_, err := Default().Resolve(format.Input{Path: "notes.txt", Data: []byte("nothing to see\n")}, "")
	if !errors.Is(err, model.ErrRegistryMiss) {
		t.Errorf("expected ErrRegistryMiss, got %v", err)
	}
}

// TestDefaultIsShared tests that the default registry is built once.
func TestDefaultIsShared(t *testing.T) {
	t.Parallel()

	if Default() != Default() {
		t.Error("expected the same registry instance")
	}
	if New() == Default() {
		t.Error("New must build a fresh registry")
	}
	if got := len(Default().Names()); got != 8 {
		t.Errorf("expected 8 formats, got %d", got)
	}
}
