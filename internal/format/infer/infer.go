// Package infer parses the report.json written by Facebook Infer.
//
// The file is a JSON array of issues:
//
//	[{
//	  "bug_type": "NULL_DEREFERENCE",
//	  "qualifier": "object `p` last assigned on line 10 could be null ...",
//	  "severity": "ERROR",
//	  "file": "src/a.c", "line": 12, "column": -1,
//	  "bug_trace": [
//	    {"level": 0, "filename": "src/a.c", "line_number": 10, "column_number": -1, "description": "start of procedure f()"}
//	  ]
//	}]
//
// bug_trace levels are call depths. A column of -1 means unknown and is
// stored as 0. Severity table:
//
//	ERROR               -> error
//	WARNING             -> warning
//	INFO, LIKE, ADVICE  -> style
//	(other)             -> warning
package infer

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/nao1215/reportconv/internal/format"
	"github.com/nao1215/reportconv/internal/model"
)

// Name is the format identifier.
const Name = "infer"

// AnalyzerName is stamped on every report.
const AnalyzerName = "infer"

var severities = model.SeverityMap{
	"error":   model.SeverityError,
	"warning": model.SeverityWarning,
	"info":    model.SeverityStyle,
	"like":    model.SeverityStyle,
	"advice":  model.SeverityStyle,
}

type issue struct {
	BugType   string      `json:"bug_type"`
	Qualifier string      `json:"qualifier"`
	Severity  string      `json:"severity"`
	Kind      string      `json:"kind"`
	File      string      `json:"file"`
	Line      int         `json:"line"`
	Column    int         `json:"column"`
	Procedure string      `json:"procedure"`
	BugTrace  []traceItem `json:"bug_trace"`
}

type traceItem struct {
	Level        int    `json:"level"`
	Filename     string `json:"filename"`
	LineNumber   int    `json:"line_number"`
	ColumnNumber int    `json:"column_number"`
	Description  string `json:"description"`
}

// Parser implements format.Parser for Infer report.json files.
type Parser struct{}

// New returns an Infer parser.
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
	if len(s) == 0 || s[0] != '[' {
		return false
	}
	return bytes.Contains(s, []byte(`"bug_type"`))
}

// Parse implements format.Parser.
func (p Parser) Parse(ctx context.Context, in format.Input) (*format.Result, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(in.Data, &records); err != nil {
		return nil, model.NewParseError(Name, err)
	}

	res := &format.Result{}
	for i, raw := range records {
		if err := format.CheckContext(ctx, i); err != nil {
			return nil, err
		}
		var is issue
		if err := json.Unmarshal(raw, &is); err != nil {
			res.Skip(i, "", err.Error())
			continue
		}
		if rep, ok := convert(res, i, &is); ok {
			res.Add(in, rep)
		}
	}
	return res, nil
}

func convert(res *format.Result, index int, is *issue) (*model.Report, bool) {
	if is.BugType == "" {
		res.Skip(index, "bug_type", "missing")
		return nil, false
	}
	if is.File == "" {
		res.Skip(index, "file", "missing")
		return nil, false
	}
	col := column(is.Column)
	if !format.ValidPoint(is.Line, col) {
		res.Skip(index, "line", "must be at least 1")
		return nil, false
	}

	sev := is.Severity
	if sev == "" {
		sev = is.Kind
	}
	rep := &model.Report{
		CheckerName:  is.BugType,
		Severity:     severities.Map(sev),
		Message:      is.Qualifier,
		Location:     model.Location{File: is.File, Line: is.Line, Column: col},
		AnalyzerName: AnalyzerName,
	}

	var path model.PathBuilder
	for i, item := range is.BugTrace {
		c := column(item.ColumnNumber)
		if item.Filename == "" || !format.ValidPoint(item.LineNumber, c) {
			res.Warnf("record %d: trace step %d dropped: no valid location", index, i)
			continue
		}
		path.Add(model.Step{
			Location: model.Location{File: item.Filename, Line: item.LineNumber, Column: c},
			Message:  item.Description,
			Depth:    item.Level,
		})
	}
	path.Build(rep)

	return rep, true
}

func column(c int) int {
	if c < 0 {
		return 0
	}
	return c
}
