// Package unified parses reports that are already in the unified model,
// written as YAML or JSON. It reads the document produced by the JSON
// report writer, so converted runs can be fed back in and merged, and a
// hand-friendly flat variant:
//
//	analyzer: my-linter        # default analyzer_name
//	reports:
//	  - checker: style-naming  # or checker_name
//	    severity: style        # style, warning, error, critical (fatal)
//	    message: bad name
//	    file: src/a.c          # or location: {file, line, column}
//	    line: 3
//	    column: 7
//	    path:                  # or bug_path
//	      - {file: src/a.c, line: 1, message: declared here, kind: note}
//
// A bare list of reports is accepted too. Severity names outside the
// unified vocabulary fall back to warning.
//
// This is the structural superset of the other YAML and JSON formats and
// must be detected after them.
package unified

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/reportconv/internal/format"
	"github.com/nao1215/reportconv/internal/model"
)

// Name is the format identifier.
const Name = "unified"

// AnalyzerName is used when neither the record nor the document names one.
const AnalyzerName = "unified"

type point struct {
	File   string `json:"file" yaml:"file"`
	Line   int    `json:"line" yaml:"line"`
	Column int    `json:"column" yaml:"column"`
}

type span struct {
	Start model.Position `json:"start" yaml:"start"`
	End   model.Position `json:"end" yaml:"end"`
}

type event struct {
	point `yaml:",inline"`

	Location *point  `json:"location" yaml:"location"`
	Message  string  `json:"message" yaml:"message"`
	Kind     string  `json:"kind" yaml:"kind"`
	Depth    int     `json:"depth" yaml:"depth"`
	Order    *int    `json:"order" yaml:"order"`
	Ranges   []span  `json:"ranges" yaml:"ranges"`
	Origin   *point  `json:"origin" yaml:"origin"`
	Notes    []event `json:"notes" yaml:"notes"`
}

type record struct {
	point `yaml:",inline"`

	CheckerName  string  `json:"checker_name" yaml:"checker_name"`
	Checker      string  `json:"checker" yaml:"checker"`
	Severity     string  `json:"severity" yaml:"severity"`
	Message      string  `json:"message" yaml:"message"`
	Location     *point  `json:"location" yaml:"location"`
	Category     string  `json:"category" yaml:"category"`
	AnalyzerName string  `json:"analyzer_name" yaml:"analyzer_name"`
	Analyzer     string  `json:"analyzer" yaml:"analyzer"`
	Ranges       []span  `json:"ranges" yaml:"ranges"`
	BugPath      []event `json:"bug_path" yaml:"bug_path"`
	Path         []event `json:"path" yaml:"path"`
}

var (
	// checkerKey matches a checker key at the start of a YAML mapping
	// entry, possibly as the first key of a list item.
	checkerKey = regexp.MustCompile(`(?m)^[ \t]*(?:-[ \t]+)?\{?[ \t]*checker(?:_name)?:`)
	// container matches a top-level reports key or list item.
	container = regexp.MustCompile(`(?m)^(?:reports:|-[ \t])`)
)

// Parser implements format.Parser for unified documents.
type Parser struct{}

// New returns a unified-format parser.
func New() Parser {
	return Parser{}
}

// Name implements format.Parser.
func (Parser) Name() string { return Name }

// Analyzer implements format.Parser.
func (Parser) Analyzer() string { return AnalyzerName }

// Detect implements format.Parser.
func (Parser) Detect(sample []byte) bool {
	if format.LooksLikeJSON(sample) {
		return bytes.Contains(sample, []byte(`"checker_name"`)) || bytes.Contains(sample, []byte(`"checker"`))
	}
	return checkerKey.Match(sample) && container.Match(sample)
}

// Parse implements format.Parser.
func (p Parser) Parse(ctx context.Context, in format.Input) (*format.Result, error) {
	var (
		decoders []func(*record) error
		analyzer string
		err      error
	)
	if format.LooksLikeJSON(in.Data) {
		decoders, analyzer, err = splitJSON(in.Data)
	} else {
		decoders, analyzer, err = splitYAML(in.Data)
	}
	if err != nil {
		return nil, model.NewParseError(Name, err)
	}
	if analyzer == "" {
		analyzer = AnalyzerName
	}

	res := &format.Result{}
	for i, decode := range decoders {
		if err := format.CheckContext(ctx, i); err != nil {
			return nil, err
		}
		var rec record
		if err := decode(&rec); err != nil {
			res.Skip(i, "", err.Error())
			continue
		}
		if rep, ok := convert(res, i, &rec, analyzer); ok {
			res.Add(in, rep)
		}
	}
	return res, nil
}

// splitJSON returns one decoder per report so a malformed record only
// loses itself.
func splitJSON(data []byte) ([]func(*record) error, string, error) {
	var raws []json.RawMessage
	var analyzer string
	if s := format.TrimSpaceLeft(data); s[0] == '[' {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, "", err
		}
	} else {
		var env struct {
			Analyzer string            `json:"analyzer"`
			Reports  []json.RawMessage `json:"reports"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, "", err
		}
		raws, analyzer = env.Reports, env.Analyzer
	}

	decoders := make([]func(*record) error, len(raws))
	for i, raw := range raws {
		decoders[i] = func(r *record) error { return json.Unmarshal(raw, r) }
	}
	return decoders, analyzer, nil
}

func splitYAML(data []byte) ([]func(*record) error, string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, "", err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, "", nil
	}

	doc := root.Content[0]
	var items []*yaml.Node
	var analyzer string
	switch doc.Kind {
	case yaml.SequenceNode:
		items = doc.Content
	case yaml.MappingNode:
		var env struct {
			Analyzer string      `yaml:"analyzer"`
			Reports  []yaml.Node `yaml:"reports"`
		}
		if err := doc.Decode(&env); err != nil {
			return nil, "", err
		}
		analyzer = env.Analyzer
		for i := range env.Reports {
			items = append(items, &env.Reports[i])
		}
	default:
		return nil, "", fmt.Errorf("expected a mapping or a list, got line %d", doc.Line)
	}

	decoders := make([]func(*record) error, len(items))
	for i, n := range items {
		decoders[i] = func(r *record) error { return n.Decode(r) }
	}
	return decoders, analyzer, nil
}

func convert(res *format.Result, index int, rec *record, analyzer string) (*model.Report, bool) {
	checker := firstNonEmpty(rec.CheckerName, rec.Checker)
	if checker == "" {
		res.Skip(index, "checker_name", "missing")
		return nil, false
	}
	if rec.Message == "" {
		res.Skip(index, "message", "missing")
		return nil, false
	}
	primary, ok := locate(rec.Location, rec.point)
	if !ok {
		res.Skip(index, "location", "missing file or line")
		return nil, false
	}

	sev, _ := model.ParseSeverity(rec.Severity)
	rep := &model.Report{
		CheckerName:  checker,
		Severity:     sev,
		Message:      rec.Message,
		Location:     primary,
		Ranges:       ranges(rec.Ranges),
		Category:     rec.Category,
		AnalyzerName: firstNonEmpty(rec.AnalyzerName, rec.Analyzer, analyzer),
	}

	events := rec.BugPath
	if len(events) == 0 {
		events = rec.Path
	}
	var path model.PathBuilder
	for i := range events {
		addEvent(&path, res, index, i, &events[i])
	}
	path.Build(rep)

	return rep, true
}

// addEvent flattens an event and its nested notes into path steps.
func addEvent(path *model.PathBuilder, res *format.Result, index, i int, ev *event) {
	loc, ok := locate(ev.Location, ev.point)
	if !ok {
		res.Warnf("record %d: path step %d dropped: missing file or line", index, i)
		return
	}

	step := model.Step{
		Location: loc,
		Message:  ev.Message,
		Kind:     model.ParseEventKind(ev.Kind),
		Depth:    ev.Depth,
		Ranges:   ranges(ev.Ranges),
	}
	if ev.Order != nil {
		step.Order = *ev.Order
		step.HasOrder = true
	}
	if ev.Origin != nil {
		if origin, ok := locate(ev.Origin, point{}); ok {
			step.Origin = &origin
		}
	}
	path.Add(step)

	for j := range ev.Notes {
		note := ev.Notes[j]
		note.Kind = model.EventKindNote.String()
		addEvent(path, res, index, i, &note)
	}
}

// locate prefers a nested location over the flat fields.
func locate(nested *point, flat point) (model.Location, bool) {
	p := flat
	if nested != nil {
		p = *nested
	}
	if p.File == "" || !format.ValidPoint(p.Line, p.Column) {
		return model.Location{}, false
	}
	return model.Location{File: p.File, Line: p.Line, Column: p.Column}, true
}

func ranges(in []span) []model.Range {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.Range, len(in))
	for i, s := range in {
		out[i] = model.Range{Start: s.Start, End: s.End}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
