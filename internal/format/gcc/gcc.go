// Package gcc parses compiler-style console diagnostics as printed by GCC,
// Clang and clang-tidy:
//
//	In file included from src/main.c:3:
//	src/util.h:12:5: warning: unused variable 'x' [-Wunused-variable]
//	src/util.h:4:20: note: in definition of macro 'CHECK'
//	src/main.c:9:3: note: in expansion of macro 'CHECK'
//
// note lines attach to the preceding warning or error. For
// clang-analyzer-* checkers the notes are the analyzer's path and become
// bug path events. "in expansion of macro" (GCC) and "expanded from macro"
// (Clang) notes become macro-expansion events that keep both the
// expansion site and the definition site. "In file included from" chains
// become notes. Source snippets, carets and fix-it hints are ignored.
//
// The checker comes from the trailing bracket tag: "-Wfoo" becomes
// "clang-diagnostic-foo", a clang-tidy name is kept as written. Without a
// tag the checker is "clang-diagnostic-<level>". Severity table:
//
//	fatal error -> critical
//	error       -> error
//	warning     -> warning
//	remark      -> style
package gcc

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/reportconv/internal/format"
	"github.com/nao1215/reportconv/internal/model"
)

// Name is the format identifier.
const Name = "gcc"

// AnalyzerName is stamped on every report.
const AnalyzerName = "gcc"

const (
	diagnosticPrefix = "clang-diagnostic-"
	analyzerPrefix   = "clang-analyzer-"
	maxLineSize      = 1024 * 1024
)

var severities = model.SeverityMap{
	"fatal error": model.SeverityCritical,
	"error":       model.SeverityError,
	"warning":     model.SeverityWarning,
	"remark":      model.SeverityStyle,
}

var (
	diagPattern    = regexp.MustCompile(`^((?:[A-Za-z]:)?[^:]+):(\d+):(?:(\d+):)?\s+(fatal error|error|warning|note|remark):\s+(.*)$`)
	includePattern = regexp.MustCompile(`^(?:In file included from|\s+from) (.+?):(\d+)(?::(\d+))?[:,]$`)
	tagPattern     = regexp.MustCompile(`\s*\[([^\[\]]+)\]$`)
	gccMacro       = regexp.MustCompile(`^in expansion of macro '([^']+)'`)
	clangMacro     = regexp.MustCompile(`^expanded from macro '([^']+)'`)
)

// Parser implements format.Parser for compiler console output.
type Parser struct{}

// New returns a compiler output parser.
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
		if m := diagPattern.FindStringSubmatch(sc.Text()); m != nil && m[4] != "note" {
			return true
		}
	}
	return false
}

type diagnostic struct {
	checker  string
	severity model.Severity
	message  string
	loc      model.Location
	includes []model.Step
	macros   []model.Step
	notes    []model.Step
	// last is the location of the most recent line of this diagnostic.
	last model.Location
}

// Parse implements format.Parser.
func (p Parser) Parse(ctx context.Context, in format.Input) (*format.Result, error) {
	res := &format.Result{}

	var (
		cur      *diagnostic
		includes []model.Step
		// dropped is set while the notes of a skipped diagnostic follow.
		dropped  bool
	)
	flush := func() {
		if cur != nil {
			res.Add(in, cur.report())
			cur = nil
		}
	}

	sc := bufio.NewScanner(bytes.NewReader(in.Data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for lineNo := 0; sc.Scan(); lineNo++ {
		if err := format.CheckContext(ctx, lineNo); err != nil {
			return nil, err
		}
		line := strings.TrimRight(sc.Text(), "\r")

		if m := includePattern.FindStringSubmatch(line); m != nil {
			flush()
			dropped = false
			loc, err := location(m[1], m[2], m[3])
			if err != nil {
				res.Skip(lineNo+1, "location", err.Error())
				continue
			}
			includes = append(includes, model.Step{Location: loc, Message: "included from here", Kind: model.EventKindNote})
			continue
		}

		m := diagPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		level, text := m[4], m[5]
		loc, err := location(m[1], m[2], m[3])
		if err != nil {
			res.Skip(lineNo+1, "location", err.Error())
			if level != "note" {
				flush()
				includes = nil
				dropped = true
			}
			continue
		}

		if level != "note" {
			flush()
			dropped = false
			message, checker := splitTag(text, level)
			cur = &diagnostic{
				checker:  checker,
				severity: severities.Map(level),
				message:  message,
				loc:      loc,
				includes: includes,
				last:     loc,
			}
			includes = nil
			continue
		}

		if cur == nil {
			if dropped {
				continue
			}
			res.Warnf("line %d: note without a preceding diagnostic", lineNo+1)
			continue
		}
		cur.addNote(loc, text)
	}
	if err := sc.Err(); err != nil {
		return nil, model.NewParseError(Name, err)
	}
	flush()

	return res, nil
}

func (d *diagnostic) addNote(loc model.Location, text string) {
	text, _ = splitTag(text, "note")
	defer func() { d.last = loc }()

	if mm := gccMacro.FindStringSubmatch(text); mm != nil {
		prev := d.last
		d.macros = append(d.macros, model.Step{
			Location: loc,
			Message:  "expansion of macro '" + mm[1] + "'",
			Kind:     model.EventKindMacroExpansion,
			Origin:   &prev,
		})
		return
	}
	if mm := clangMacro.FindStringSubmatch(text); mm != nil {
		origin := loc
		d.macros = append(d.macros, model.Step{
			Location: d.last,
			Message:  "expansion of macro '" + mm[1] + "'",
			Kind:     model.EventKindMacroExpansion,
			Origin:   &origin,
		})
		return
	}

	kind := model.EventKindNote
	if strings.HasPrefix(d.checker, analyzerPrefix) {
		kind = model.EventKindEvent
	}
	d.notes = append(d.notes, model.Step{Location: loc, Message: text, Kind: kind})
}

func (d *diagnostic) report() *model.Report {
	rep := &model.Report{
		CheckerName:  d.checker,
		Severity:     d.severity,
		Message:      d.message,
		Location:     d.loc,
		Category:     category(d.checker),
		AnalyzerName: AnalyzerName,
	}

	var path model.PathBuilder
	for _, s := range d.includes {
		path.Add(s)
	}
	// Macro expansions are listed innermost first; the outermost one is
	// where the trace starts.
	for i := len(d.macros) - 1; i >= 0; i-- {
		path.Add(d.macros[i])
	}
	if !strings.HasPrefix(d.checker, analyzerPrefix) || len(d.notes) == 0 {
		path.Add(model.Step{Location: d.loc, Message: d.message})
	}
	for _, s := range d.notes {
		path.Add(s)
	}
	path.Build(rep)

	return rep
}

// splitTag separates trailing bracket tags from a message and derives the
// checker name from them.
func splitTag(text, level string) (message, checker string) {
	message = text
	var tags []string
	for {
		m := tagPattern.FindStringSubmatchIndex(message)
		if m == nil {
			break
		}
		tags = append(tags, message[m[2]:m[3]])
		message = message[:m[0]]
	}
	message = strings.TrimSpace(message)

	for _, tag := range tags {
		for _, part := range strings.Split(tag, ",") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, "-W") && part != "-Werror" {
				name := strings.TrimSuffix(strings.TrimPrefix(part, "-W"), "=")
				name = strings.TrimPrefix(name, "error=")
				return message, diagnosticPrefix + name
			}
		}
	}
	if len(tags) > 0 {
		// Tags were collected from the end; the first one written is the
		// checker, later ones are aliases.
		first := strings.Split(tags[len(tags)-1], ",")[0]
		return message, strings.TrimSpace(first)
	}
	return message, diagnosticPrefix + strings.ReplaceAll(level, " ", "-")
}

func category(checker string) string {
	if strings.HasPrefix(checker, diagnosticPrefix) {
		return "compiler"
	}
	return model.CheckerCategory(checker)
}

// location builds a diagnostic location. Line numbers below 1 and numbers
// that do not fit an int are rejected.
func location(file, line, col string) (model.Location, error) {
	ln, err := strconv.Atoi(line)
	if err != nil {
		return model.Location{}, fmt.Errorf("invalid line %q", line)
	}
	c := 0
	if col != "" {
		if c, err = strconv.Atoi(col); err != nil {
			return model.Location{}, fmt.Errorf("invalid column %q", col)
		}
	}
	if !format.ValidPoint(ln, c) {
		return model.Location{}, fmt.Errorf("line %d is out of range", ln)
	}
	return model.Location{File: file, Line: ln, Column: c}, nil
}
