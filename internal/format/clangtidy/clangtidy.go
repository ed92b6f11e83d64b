// Package clangtidy parses the YAML written by clang-tidy --export-fixes.
//
// Schema (both the current nested layout and the pre-9.0 flat layout are
// accepted):
//
//	MainSourceFile: /src/main.cpp
//	Diagnostics:
//	  - DiagnosticName: bugprone-use-after-move
//	    DiagnosticMessage:
//	      Message: "'v' used after it was moved"
//	      FilePath: /src/main.cpp
//	      FileOffset: 312
//	    Notes:
//	      - Message: move occurred here
//	        FilePath: /src/main.cpp
//	        FileOffset: 280
//	    Level: Warning
//	    BuildDirectory: /src/build
//
// FileOffset is a byte offset; it is converted to line and column by
// reading the referenced source file. Severity table:
//
//	Error   -> error
//	Warning -> warning
//	Remark  -> style
//	(other) -> warning
package clangtidy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/reportconv/internal/format"
	"github.com/nao1215/reportconv/internal/model"
)

// Name is the format identifier.
const Name = "clang-tidy-yaml"

// AnalyzerName is stamped on every report.
const AnalyzerName = "clang-tidy"

var severities = model.SeverityMap{
	"error":   model.SeverityError,
	"warning": model.SeverityWarning,
	"remark":  model.SeverityStyle,
}

type exportFile struct {
	MainSourceFile string       `yaml:"MainSourceFile"`
	Diagnostics    []diagnostic `yaml:"Diagnostics"`
}

type message struct {
	Message    string `yaml:"Message"`
	FilePath   string `yaml:"FilePath"`
	FileOffset *int   `yaml:"FileOffset"`
}

type diagnostic struct {
	DiagnosticName    string    `yaml:"DiagnosticName"`
	DiagnosticMessage *message  `yaml:"DiagnosticMessage"`
	Notes             []message `yaml:"Notes"`
	Level             string    `yaml:"Level"`
	BuildDirectory    string    `yaml:"BuildDirectory"`

	// Flat layout used before clang-tidy 9.
	message `yaml:",inline"`
}

// Parser implements format.Parser for clang-tidy YAML exports.
type Parser struct{}

// New returns a clang-tidy YAML parser.
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
		return false
	}
	return bytes.Contains(sample, []byte("DiagnosticName:")) ||
		(bytes.Contains(sample, []byte("MainSourceFile:")) && bytes.Contains(sample, []byte("Diagnostics:")))
}

// Parse implements format.Parser.
func (p Parser) Parse(ctx context.Context, in format.Input) (*format.Result, error) {
	res := &format.Result{}
	src := newSourceCache(in)

	dec := yaml.NewDecoder(bytes.NewReader(in.Data))
	index := 0
	for {
		var doc exportFile
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, model.NewParseError(Name, err)
		}

		for _, d := range doc.Diagnostics {
			if err := format.CheckContext(ctx, index); err != nil {
				return nil, err
			}
			p.convert(res, in, src, index, d)
			index++
		}
	}
	return res, nil
}

func (p Parser) convert(res *format.Result, in format.Input, src *sourceCache, index int, d diagnostic) {
	if d.DiagnosticName == "" {
		res.Skip(index, "DiagnosticName", "missing")
		return
	}

	msg := d.DiagnosticMessage
	if msg == nil {
		msg = &d.message
	}
	if msg.Message == "" {
		res.Skip(index, "Message", "missing")
		return
	}

	primary, err := src.locate(msg, d.BuildDirectory)
	if err != nil {
		res.Skip(index, "FilePath", err.Error())
		return
	}

	rep := &model.Report{
		CheckerName:  d.DiagnosticName,
		Severity:     severities.Map(d.Level),
		Message:      msg.Message,
		Location:     primary,
		Category:     model.CheckerCategory(d.DiagnosticName),
		AnalyzerName: AnalyzerName,
	}

	var path model.PathBuilder
	path.Add(model.Step{Location: primary, Message: msg.Message})
	for i := range d.Notes {
		note := &d.Notes[i]
		loc, err := src.locate(note, d.BuildDirectory)
		if err != nil {
			res.Warnf("record %d: note %d dropped: %v", index, i, err)
			continue
		}
		path.Add(model.Step{Location: loc, Message: note.Message, Kind: model.EventKindNote})
	}
	path.Build(rep)

	res.Add(in, rep)
}

// sourceCache reads each referenced source file at most once per parse.
type sourceCache struct {
	in    format.Input
	files map[string][]byte
	errs  map[string]error
}

func newSourceCache(in format.Input) *sourceCache {
	return &sourceCache{in: in, files: make(map[string][]byte), errs: make(map[string]error)}
}

func (c *sourceCache) read(path string) ([]byte, error) {
	if data, ok := c.files[path]; ok {
		return data, nil
	}
	if err, ok := c.errs[path]; ok {
		return nil, err
	}
	data, err := c.in.ReadSource(path)
	if err != nil {
		c.errs[path] = err
		return nil, err
	}
	c.files[path] = data
	return data, nil
}

// locate converts a FilePath/FileOffset pair into a location.
func (c *sourceCache) locate(m *message, buildDir string) (model.Location, error) {
	if m.FilePath == "" {
		return model.Location{}, errors.New("missing")
	}
	if m.FileOffset == nil {
		return model.Location{}, fmt.Errorf("%s: FileOffset missing", m.FilePath)
	}

	path := m.FilePath
	if !filepath.IsAbs(path) {
		base := buildDir
		if base == "" {
			base = filepath.Dir(c.in.Path)
		}
		path = filepath.Join(base, path)
	}

	data, err := c.read(path)
	if err != nil {
		return model.Location{}, fmt.Errorf("cannot read source: %w", err)
	}
	line, col, ok := LineColumn(data, *m.FileOffset)
	if !ok {
		return model.Location{}, fmt.Errorf("%s: offset %d out of range", m.FilePath, *m.FileOffset)
	}
	return model.Location{File: path, Line: line, Column: col}, nil
}

// LineColumn converts a byte offset into a 1-based line and column.
func LineColumn(data []byte, offset int) (line, column int, ok bool) {
	if offset < 0 || offset > len(data) {
		return 0, 0, false
	}
	prefix := data[:offset]
	line = bytes.Count(prefix, []byte{'\n'}) + 1
	column = offset - bytes.LastIndexByte(prefix, '\n')
	return line, column, true
}
