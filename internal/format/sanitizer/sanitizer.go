// Package sanitizer parses the console output of the Clang sanitizers
// (AddressSanitizer, LeakSanitizer, MemorySanitizer, ThreadSanitizer and
// UndefinedBehaviorSanitizer).
//
// A finding starts with a header line:
//
//	==4242==ERROR: AddressSanitizer: heap-use-after-free on address 0x6020...
//	WARNING: ThreadSanitizer: data race (pid=4242)
//	src/a.c:12:7: runtime error: signed integer overflow: ...
//
// and is followed by stack traces of "#N 0xADDR in func file:line:col"
// frames (ThreadSanitizer writes "#N func file:line:col (module+0xOFF)").
// The first stack is the faulting one: its frames become the bug path,
// outermost caller first, ending at frame #0. Later stacks
// ("freed by thread T0 here:", "Previous write of size 4 ...") become
// notes at their innermost located frame. Addresses and pids are cut
// from the message so repeated runs deduplicate.
//
// The checker is the sanitizer name. Severity table:
//
//	UndefinedBehaviorSanitizer runtime error -> error
//	every other sanitizer finding            -> critical
package sanitizer

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/reportconv/internal/format"
	"github.com/nao1215/reportconv/internal/model"
)

// Name is the format identifier.
const Name = "sanitizer"

// AnalyzerName is stamped on every report.
const AnalyzerName = "sanitizer"

const ubsanChecker = "UndefinedBehaviorSanitizer"

// maxLineSize bounds a single log line; symbolized C++ frames can be long.
const maxLineSize = 1024 * 1024

var (
	headerPattern  = regexp.MustCompile(`^(?:==\d+==\s*)?(?:ERROR|WARNING): (\w*Sanitizer): (.+)$`)
	runtimePattern = regexp.MustCompile(`^(\S.*?):(\d+):(\d+): runtime error: (.+)$`)
	framePattern   = regexp.MustCompile(`^\s*#(\d+)\s+(?:0x[0-9a-fA-F]+\s+in\s+)?(.+?)\s+(\S+?):(\d+)(?::(\d+))?(?:\s+\(\S*\))?\s*$`)
	barePattern    = regexp.MustCompile(`^\s*#\d+\s`)
	addressPattern = regexp.MustCompile(`\s+(?:on (?:unknown )?address|at pc) 0x[0-9a-fA-F].*$|\s+\(pid=\d+\)$`)
)

// Parser implements format.Parser for sanitizer logs.
type Parser struct{}

// New returns a sanitizer log parser.
func New() Parser {
	return Parser{}
}

// Name implements format.Parser.
func (Parser) Name() string { return Name }

// Analyzer implements format.Parser.
func (Parser) Analyzer() string { return AnalyzerName }

// Detect implements format.Parser.
func (Parser) Detect(sample []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(sample))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := sc.Text()
		if headerPattern.MatchString(line) || runtimePattern.MatchString(line) {
			return true
		}
	}
	return false
}

type frame struct {
	index    int
	function string
	loc      model.Location
}

type stack struct {
	heading string
	frames  []frame
}

type finding struct {
	checker  string
	message  string
	severity model.Severity
	primary  *model.Location
	stacks   []*stack
	current  *stack
}

func (f *finding) addFrame(fr frame) {
	// A new #0 starts a new trace even without a heading.
	if f.current == nil || (fr.index == 0 && len(f.current.frames) > 0) {
		f.current = &stack{}
		f.stacks = append(f.stacks, f.current)
	}
	f.current.frames = append(f.current.frames, fr)
}

func (f *finding) startSection(heading string) {
	f.current = &stack{heading: heading}
	f.stacks = append(f.stacks, f.current)
}

// Parse implements format.Parser.
func (p Parser) Parse(ctx context.Context, in format.Input) (*format.Result, error) {
	res := &format.Result{}

	var cur *finding
	index := 0
	flush := func() {
		if cur == nil {
			return
		}
		if rep, ok := build(res, index, cur); ok {
			res.Add(in, rep)
		}
		index++
		cur = nil
	}

	sc := bufio.NewScanner(bytes.NewReader(in.Data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for lineNo := 0; sc.Scan(); lineNo++ {
		if err := format.CheckContext(ctx, lineNo); err != nil {
			return nil, err
		}
		line := strings.TrimRight(sc.Text(), "\r")

		if m := headerPattern.FindStringSubmatch(line); m != nil {
			flush()
			cur = &finding{checker: m[1], message: cleanMessage(m[2]), severity: model.SeverityCritical}
			continue
		}
		if m := runtimePattern.FindStringSubmatch(line); m != nil {
			flush()
			ln, _ := strconv.Atoi(m[2])
			col, _ := strconv.Atoi(m[3])
			cur = &finding{
				checker:  ubsanChecker,
				message:  cleanMessage(m[4]),
				severity: model.SeverityError,
				primary:  &model.Location{File: m[1], Line: ln, Column: col},
			}
			continue
		}
		if cur == nil {
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "SUMMARY:"):
			flush()
		case trimmed == "":
			cur.current = nil
		case framePattern.MatchString(line):
			m := framePattern.FindStringSubmatch(line)
			idx, _ := strconv.Atoi(m[1])
			ln, _ := strconv.Atoi(m[4])
			col := 0
			if m[5] != "" {
				col, _ = strconv.Atoi(m[5])
			}
			cur.addFrame(frame{index: idx, function: m[2], loc: model.Location{File: m[3], Line: ln, Column: col}})
		case barePattern.MatchString(line):
			// Frames inside unsymbolized modules keep the stack going but
			// carry no source location.
		case strings.HasSuffix(trimmed, ":"):
			cur.startSection(strings.TrimSuffix(trimmed, ":"))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, model.NewParseError(Name, err)
	}
	flush()

	return res, nil
}

func build(res *format.Result, index int, f *finding) (*model.Report, bool) {
	var faulting *stack
	for _, s := range f.stacks {
		if len(s.frames) > 0 {
			faulting = s
			break
		}
	}

	primary := f.primary
	if primary == nil {
		if faulting == nil {
			res.Skip(index, "stack", "no frame with a source location")
			return nil, false
		}
		primary = &faulting.frames[0].loc
	}
	if !format.ValidPoint(primary.Line, primary.Column) {
		res.Skip(index, "location", "invalid line")
		return nil, false
	}

	rep := &model.Report{
		CheckerName:  f.checker,
		Severity:     f.severity,
		Message:      f.message,
		Location:     *primary,
		Category:     "sanitizer",
		AnalyzerName: AnalyzerName,
	}

	var path model.PathBuilder
	if faulting != nil {
		for i := len(faulting.frames) - 1; i >= 0; i-- {
			fr := faulting.frames[i]
			path.Add(model.Step{
				Location: fr.loc,
				Message:  "in " + fr.function,
				Depth:    len(faulting.frames) - 1 - i,
			})
		}
	}
	for _, s := range f.stacks {
		if s == faulting || len(s.frames) == 0 {
			continue
		}
		fr := s.frames[0]
		msg := "in " + fr.function
		if s.heading != "" {
			msg = s.heading + " (" + msg + ")"
		}
		path.Add(model.Step{Location: fr.loc, Message: msg, Kind: model.EventKindNote})
	}
	path.Build(rep)

	return rep, true
}

// cleanMessage drops run-specific addresses and pids.
func cleanMessage(msg string) string {
	return strings.TrimSpace(addressPattern.ReplaceAllString(msg, ""))
}
