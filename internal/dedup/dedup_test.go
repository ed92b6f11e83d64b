package dedup

import (
	"reflect"
	"testing"

	"github.com/nao1215/reportconv/internal/model"
)

func report(checker, file string, line int, msg, analyzer, source string) *model.Report {
	return &model.Report{
		CheckerName:  checker,
		Message:      msg,
		Location:     model.Location{File: file, Line: line, Column: 1},
		AnalyzerName: analyzer,
		SourceFile:   source,
	}
}

// TestMerge tests grouping, ordering and source accumulation.
func TestMerge(t *testing.T) {
	t.Parallel()

	in := []*model.Report{
		report("deadcode", "a.c", 1, "dead store", "clangsa", "one.plist"),
		report("div", "a.c", 5, "division by zero", "clangsa", "one.plist"),
		report("deadcode", "a.c", 1, "dead store", "clangsa", "two.plist"),
		report("other", "a.c", 1, "dead store", "clangsa", "two.plist"),
		report("deadcode", "a.c", 1, "dead store", "clangsa", "one.plist"),
	}

	out := NewMerger().Merge(in)
	if len(out) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(out))
	}

	expected := []string{"deadcode", "div", "other"}
	for i, r := range out {
		if r.CheckerName != expected[i] {
			t.Errorf("report %d: got %q, expected %q", i, r.CheckerName, expected[i])
		}
	}
	if out[0].Duplicates != 2 {
		t.Errorf("expected 2 duplicates, got %d", out[0].Duplicates)
	}
	if !reflect.DeepEqual(out[0].Sources, []string{"one.plist", "two.plist"}) {
		t.Errorf("unexpected sources %v", out[0].Sources)
	}
	if in[0].Duplicates != 0 || in[0].Sources != nil {
		t.Error("input was mutated")
	}
}

// TestMergeIdempotent tests that merging a merged collection is a no-op.
func TestMergeIdempotent(t *testing.T) {
	t.Parallel()

	m := NewMerger(WithAuthority("core.*", "clangsa"))
	in := []*model.Report{
		report("core.NullDereference", "a.c", 3, "null", "cppcheck", "c.plist"),
		report("core.NullDereference", "a.c", 3, "null", "clangsa", "s.plist"),
		report("unused", "b.c", 1, "unused", "gcc", "build.log"),
		report("unused", "b.c", 1, "unused", "gcc", "build2.log"),
	}

	once := m.Merge(in)
	twice := m.Merge(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Merge is not idempotent:\n%+v\n%+v", once, twice)
	}
}

// TestMergeAuthority tests the authoritative representative.
func TestMergeAuthority(t *testing.T) {
	t.Parallel()

	first := report("core.DivideZero", "a.c", 3, "div", "cppcheck", "c.plist")
	auth := report("core.DivideZero", "a.c", 3, "div", "clangsa", "s.plist")
	auth.BugPath = []model.BugPathEvent{
		{Location: model.Location{File: "a.c", Line: 2}},
		{Location: auth.Location, Message: "div"},
	}

	testCases := []struct {
		name     string
		opts     []Option
		analyzer string
	}{
		{name: "first occurrence", analyzer: "cppcheck"},
		{name: "authority", opts: []Option{WithAuthority("core.*", "clangsa")}, analyzer: "clangsa"},
		{name: "pattern mismatch", opts: []Option{WithAuthority("alpha.*", "clangsa")}, analyzer: "cppcheck"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := NewMerger(tc.opts...).Merge([]*model.Report{first, auth})
			if len(out) != 1 {
				t.Fatalf("expected one report, got %d", len(out))
			}
			if out[0].AnalyzerName != tc.analyzer {
				t.Errorf("representative from %q, expected %q", out[0].AnalyzerName, tc.analyzer)
			}
			if out[0].Duplicates != 1 || len(out[0].Sources) != 2 {
				t.Errorf("unexpected accumulation %d %v", out[0].Duplicates, out[0].Sources)
			}
		})
	}
}

// TestMergeEmpty tests degenerate input.
func TestMergeEmpty(t *testing.T) {
	t.Parallel()

	if out := NewMerger().Merge(nil); len(out) != 0 {
		t.Errorf("expected no reports, got %v", out)
	}
	if out := NewMerger().Merge([]*model.Report{nil}); len(out) != 0 {
		t.Errorf("expected nil reports to be dropped, got %v", out)
	}
}
