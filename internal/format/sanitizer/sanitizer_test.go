package sanitizer

import (
	"context"
	"testing"

	"github.com/nao1215/reportconv/internal/format"
	"github.com/nao1215/reportconv/internal/model"
)

const asanLog = `=================================================================
==4242==ERROR: AddressSanitizer: heap-use-after-free on address 0x602000000010 at pc 0x0000004f5e2c bp 0x7ffd sp 0x7ffd
READ of size 4 at 0x602000000010 thread T0
    #0 0x4f5e2b in use /src/app/use.c:12:7
    #1 0x4f5f10 in run /src/app/main.c:30:3
    #2 0x4f6001 in main /src/app/main.c:41:10
    #3 0x7f1b2c in __libc_start_main (/lib/x86_64-linux-gnu/libc.so.6+0x21c86)

0x602000000010 is located 0 bytes inside of 4-byte region [0x602000000010,0x602000000014)
freed by thread T0 here:
    #0 0x4c3f2d in free /llvm/compiler-rt/lib/asan/asan_malloc_linux.cpp:52:3
    #1 0x4f5d00 in release /src/app/pool.c:8:5

previously allocated by thread T0 here:
    #0 0x4c41cd in malloc /llvm/compiler-rt/lib/asan/asan_malloc_linux.cpp:69:3

SUMMARY: AddressSanitizer: heap-use-after-free /src/app/use.c:12:7 in use
==4242==ABORTING
`

// TestParseASan tests stack reconstruction for AddressSanitizer.
func TestParseASan(t *testing.T) {
	t.Parallel()

	res, err := New().Parse(context.Background(), format.Input{Path: "asan.log", Data: []byte(asanLog)})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(res.Reports))
	}

	r := res.Reports[0]
	if r.CheckerName != "AddressSanitizer" || r.Message != "heap-use-after-free" {
		t.Errorf("unexpected checker/message: %q %q", r.CheckerName, r.Message)
	}
	if r.Severity != model.SeverityCritical {
		t.Errorf("expected critical, got %v", r.Severity)
	}
	if r.Location != (model.Location{File: "/src/app/use.c", Line: 12, Column: 7}) {
		t.Errorf("unexpected primary location %+v", r.Location)
	}

	wantLines := []int{41, 30, 12}
	if len(r.BugPath) != len(wantLines) {
		t.Fatalf("expected %d events, got %+v", len(wantLines), r.BugPath)
	}
	for i, ev := range r.BugPath {
		if ev.Location.Line != wantLines[i] || ev.Depth != i {
			t.Errorf("event %d: line %d depth %d", i, ev.Location.Line, ev.Depth)
		}
	}
	notes := r.BugPath[2].Notes
	if len(notes) != 2 {
		t.Fatalf("expected notes for the free and allocation stacks, got %+v", notes)
	}
	if notes[0].Message != "freed by thread T0 here (in free)" {
		t.Errorf("unexpected note %q", notes[0].Message)
	}
}

// TestParseUBSanAndTSan tests runtime errors and thread sanitizer sections.
func TestParseUBSanAndTSan(t *testing.T) {
	t.Parallel()

	log := `src/calc.c:7:14: runtime error: signed integer overflow: 2147483647 + 1 cannot be represented in type 'int'
    #0 0x4a1b in add src/calc.c:7:14
    #1 0x4a2c in main src/main.c:3:5
SUMMARY: UndefinedBehaviorSanitizer: undefined-behavior src/calc.c:7:14 in
==================
WARNING: ThreadSanitizer: data race (pid=9)
  Write of size 4 at 0x7b0400000000 by thread T1:
    #0 worker src/race.c:5:9 (race+0x4a1b)
    #1 start_thread <null> (libpthread.so.0+0x76db)

  Previous write of size 4 at 0x7b0400000000 by main thread:
    #0 main src/race.c:12:5 (race+0x4b2d)

SUMMARY: ThreadSanitizer: data race src/race.c:5:9 in worker
`

	res, err := New().Parse(context.Background(), format.Input{Path: "run.log", Data: []byte(log)})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(res.Reports))
	}

	ub := res.Reports[0]
	if ub.CheckerName != ubsanChecker || ub.Severity != model.SeverityError {
		t.Errorf("unexpected UBSan report %+v", ub)
	}
	if last := ub.BugPath[len(ub.BugPath)-1]; !last.Location.SamePoint(ub.Location) {
		t.Errorf("last event %v must be the primary location %v", last.Location, ub.Location)
	}

	race := res.Reports[1]
	if race.CheckerName != "ThreadSanitizer" || race.Message != "data race" {
		t.Errorf("unexpected TSan report %q %q", race.CheckerName, race.Message)
	}
	if race.Location.Line != 5 {
		t.Errorf("expected the writing frame as primary, got %+v", race.Location)
	}
}

// TestParseNoFrames tests a finding without source locations.
func TestParseNoFrames(t *testing.T) {
	t.Parallel()

	log := "==1==ERROR: AddressSanitizer: SEGV on unknown address 0x000000000000 (pc 0x1 bp 0x2 sp 0x3 T0)\n" +
		"    #0 0x7f in __strlen (/lib/libc.so.6+0x9f)\n"

	res, err := New().Parse(context.Background(), format.Input{Path: "x.log", Data: []byte(log)})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Reports) != 0 || len(res.Warnings) != 1 {
		t.Errorf("expected a skipped record, got %d reports and %v", len(res.Reports), res.Warnings)
	}
}

// TestDetect tests format detection.
func TestDetect(t *testing.T) {
	t.Parallel()

	p := New()
	if !p.Detect([]byte(asanLog)) {
		t.Error("expected ASan log to be detected")
	}
	if !p.Detect([]byte("a.c:1:2: runtime error: division by zero\n")) {
		t.Error("expected UBSan log to be detected")
	}
	if p.Detect([]byte("a.c:1:2: error: expected ';'\n")) {
		t.Error("compiler output must not be claimed")
	}
}
