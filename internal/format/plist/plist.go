// Package plist parses the property lists written by the Clang Static
// Analyzer (-analyzer-output=plist) and Cppcheck (--plist-output), in
// either XML or binary encoding.
//
// Locations refer to the top-level files array by index. Path pieces of
// kind "event" become bug path events (their depth is the call depth),
// "note" and "pop-up" pieces and the diagnostic-level notes become notes,
// "control" edges are dropped. Entries of macro_expansions become
// macro-expansion events; a "definition" location, when present, is kept
// as the expansion's origin.
//
// Neither analyzer writes a severity, so it is derived from the category:
//
//	error                            -> error
//	warning                          -> warning
//	style, performance, portability,
//	information                      -> style
//	(other, containing "error")      -> error
//	(other)                          -> warning
package plist

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	hplist "howett.net/plist"

	"github.com/nao1215/reportconv/internal/format"
	"github.com/nao1215/reportconv/internal/model"
)

// Name is the format identifier.
const Name = "plist"

// AnalyzerName is stamped on reports when the plist names no analyzer.
const AnalyzerName = "clangsa"

const unknownChecker = "unknown"

var categories = model.SeverityMap{
	"error":       model.SeverityError,
	"warning":     model.SeverityWarning,
	"style":       model.SeverityStyle,
	"performance": model.SeverityStyle,
	"portability": model.SeverityStyle,
	"information": model.SeverityStyle,
}

type document struct {
	ClangVersion string       `plist:"clang_version"`
	Files        []string     `plist:"files"`
	Diagnostics  []diagnostic `plist:"diagnostics"`
	Metadata     *metadata    `plist:"metadata"`
}

type metadata struct {
	Analyzer struct {
		Name string `plist:"name"`
	} `plist:"analyzer"`
}

type diagnostic struct {
	CheckName       string           `plist:"check_name"`
	Description     string           `plist:"description"`
	Category        string           `plist:"category"`
	Type            string           `plist:"type"`
	Location        *location        `plist:"location"`
	Path            []piece          `plist:"path"`
	Notes           []piece          `plist:"notes"`
	MacroExpansions []macroExpansion `plist:"macro_expansions"`
}

type location struct {
	Line int `plist:"line"`
	Col  int `plist:"col"`
	File int `plist:"file"`
}

type piece struct {
	Kind     string       `plist:"kind"`
	Location *location    `plist:"location"`
	Ranges   [][]location `plist:"ranges"`
	Depth    int          `plist:"depth"`
	Message  string       `plist:"message"`
}

type macroExpansion struct {
	Location   *location `plist:"location"`
	Name       string    `plist:"name"`
	Expansion  string    `plist:"expansion"`
	Definition *location `plist:"definition"`
}

// Parser implements format.Parser for analyzer plists.
type Parser struct{}

// New returns a plist parser.
func New() Parser {
	return Parser{}
}

// Name implements format.Parser.
func (Parser) Name() string { return Name }

// Analyzer implements format.Parser.
func (Parser) Analyzer() string { return AnalyzerName }

// Detect implements format.Parser.
func (Parser) Detect(sample []byte) bool {
	s := format.TrimSpaceLeft(sample)
	if bytes.HasPrefix(s, []byte("bplist00")) {
		return true
	}
	if bytes.HasPrefix(s, []byte("<plist")) {
		return true
	}
	return bytes.HasPrefix(s, []byte("<?xml")) && bytes.Contains(s, []byte("<plist"))
}

// Parse implements format.Parser.
func (p Parser) Parse(ctx context.Context, in format.Input) (*format.Result, error) {
	var doc document
	if _, err := hplist.Unmarshal(in.Data, &doc); err != nil {
		return nil, model.NewParseError(Name, err)
	}

	analyzer := analyzerName(&doc)
	res := &format.Result{}
	for i := range doc.Diagnostics {
		if err := format.CheckContext(ctx, i); err != nil {
			return nil, err
		}
		conv := converter{doc: &doc, res: res, index: i}
		if rep, ok := conv.report(&doc.Diagnostics[i], analyzer); ok {
			res.Add(in, rep)
		}
	}
	return res, nil
}

func analyzerName(doc *document) string {
	if doc.Metadata != nil && doc.Metadata.Analyzer.Name != "" {
		return doc.Metadata.Analyzer.Name
	}
	if strings.HasPrefix(strings.ToLower(doc.ClangVersion), "cppcheck") {
		return "cppcheck"
	}
	return AnalyzerName
}

// converter turns one diagnostic dictionary into a report.
type converter struct {
	doc   *document
	res   *format.Result
	index int
}

func (c converter) report(d *diagnostic, analyzer string) (*model.Report, bool) {
	if d.Description == "" {
		c.res.Skip(c.index, "description", "missing")
		return nil, false
	}
	if d.Location == nil {
		c.res.Skip(c.index, "location", "missing")
		return nil, false
	}
	primary, err := c.location(d.Location)
	if err != nil {
		c.res.Skip(c.index, "location", err.Error())
		return nil, false
	}

	checker := d.CheckName
	if checker == "" {
		// clang before 3.7 did not write check_name.
		c.res.Warnf("record %d: check_name missing, using %q", c.index, unknownChecker)
		checker = unknownChecker
	}

	rep := &model.Report{
		CheckerName:  checker,
		Severity:     severity(d),
		Message:      d.Description,
		Location:     primary,
		Category:     d.Category,
		AnalyzerName: analyzer,
	}

	var events []model.Step
	for i := range d.Path {
		step, ok := c.piece(&d.Path[i], i)
		if ok {
			events = append(events, step)
		}
	}

	// Macro expansions go right before the final event so the terminal
	// event still closes the path.
	macros := c.macros(d)
	var path model.PathBuilder
	last := len(events) - 1
	for i, ev := range events {
		if i == last {
			for _, m := range macros {
				m.Depth = ev.Depth
				path.Add(m)
			}
			macros = nil
		}
		path.Add(ev)
	}
	for _, m := range macros {
		path.Add(m)
	}
	for i := range d.Notes {
		n := &d.Notes[i]
		if n.Location == nil {
			continue
		}
		loc, err := c.location(n.Location)
		if err != nil {
			c.res.Warnf("record %d: note %d dropped: %v", c.index, i, err)
			continue
		}
		path.Add(model.Step{Location: loc, Message: n.Message, Kind: model.EventKindNote, Ranges: c.ranges(n.Ranges)})
	}
	path.Build(rep)

	return rep, true
}

func (c converter) piece(pc *piece, i int) (model.Step, bool) {
	var kind model.EventKind
	switch pc.Kind {
	case "event":
		kind = model.EventKindEvent
	case "note", "pop-up":
		kind = model.EventKindNote
	default:
		return model.Step{}, false
	}
	if pc.Location == nil {
		c.res.Warnf("record %d: path piece %d has no location", c.index, i)
		return model.Step{}, false
	}
	loc, err := c.location(pc.Location)
	if err != nil {
		c.res.Warnf("record %d: path piece %d dropped: %v", c.index, i, err)
		return model.Step{}, false
	}
	return model.Step{
		Location: loc,
		Message:  pc.Message,
		Kind:     kind,
		Depth:    pc.Depth,
		Ranges:   c.ranges(pc.Ranges),
	}, true
}

func (c converter) macros(d *diagnostic) []model.Step {
	var steps []model.Step
	for i := range d.MacroExpansions {
		m := &d.MacroExpansions[i]
		if m.Location == nil {
			c.res.Warnf("record %d: macro expansion %d has no location", c.index, i)
			continue
		}
		loc, err := c.location(m.Location)
		if err != nil {
			c.res.Warnf("record %d: macro expansion %d dropped: %v", c.index, i, err)
			continue
		}
		step := model.Step{
			Location: loc,
			Message:  fmt.Sprintf("Macro '%s' expanded to: %s", m.Name, m.Expansion),
			Kind:     model.EventKindMacroExpansion,
		}
		if m.Definition != nil {
			if def, err := c.location(m.Definition); err == nil {
				step.Origin = &def
			}
		}
		steps = append(steps, step)
	}
	return steps
}

func (c converter) location(l *location) (model.Location, error) {
	if l.File < 0 || l.File >= len(c.doc.Files) {
		return model.Location{}, fmt.Errorf("file index %d out of range", l.File)
	}
	if !format.ValidPoint(l.Line, l.Col) {
		return model.Location{}, fmt.Errorf("invalid position %d:%d", l.Line, l.Col)
	}
	return model.Location{File: c.doc.Files[l.File], Line: l.Line, Column: l.Col}, nil
}

func (c converter) ranges(in [][]location) []model.Range {
	var out []model.Range
	for _, r := range in {
		if len(r) != 2 {
			continue
		}
		out = append(out, model.Range{
			Start: model.Position{Line: r[0].Line, Column: r[0].Col},
			End:   model.Position{Line: r[1].Line, Column: r[1].Col},
		})
	}
	return out
}

func severity(d *diagnostic) model.Severity {
	cat := strings.ToLower(strings.TrimSpace(d.Category))
	if _, ok := categories[cat]; ok {
		return categories.Map(cat)
	}
	if strings.Contains(cat, "error") || strings.Contains(strings.ToLower(d.Type), "error") {
		return model.SeverityError
	}
	return model.DefaultSeverity
}
