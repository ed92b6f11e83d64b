// Package smatch parses the console output of the Smatch kernel checker:
//
//	drivers/net/foo.c:123 foo_probe() warn: variable dereferenced before check 'dev' (see line 120)
//	drivers/net/foo.c:140 foo_remove() error: double free of 'priv'
//
// Smatch reports a line but no column. The checker is "smatch-<level>",
// or "smatch" when a line carries no level. The function name is dropped
// from the message. Severity table:
//
//	error -> error
//	warn  -> warning
//	info  -> style
package smatch

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
const Name = "smatch"

// AnalyzerName is stamped on every report.
const AnalyzerName = "smatch"

const maxLineSize = 1024 * 1024

var severities = model.SeverityMap{
	"error": model.SeverityError,
	"warn":  model.SeverityWarning,
	"info":  model.SeverityStyle,
}

var (
	detectPattern = regexp.MustCompile(`^\S[^:]*:\d+ \S+\(\) (?:error|warn|info): `)
	linePattern   = regexp.MustCompile(`^(\S[^:]*?):(\d+) (?:(\S+\(\)) )?(?:(error|warn|info): )?(.+)$`)
)

// Parser implements format.Parser for Smatch output.
type Parser struct{}

// New returns a Smatch output parser.
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
		if detectPattern.MatchString(sc.Text()) {
			return true
		}
	}
	return false
}

// Parse implements format.Parser.
func (p Parser) Parse(ctx context.Context, in format.Input) (*format.Result, error) {
	res := &format.Result{}

	sc := bufio.NewScanner(bytes.NewReader(in.Data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for lineNo := 0; sc.Scan(); lineNo++ {
		if err := format.CheckContext(ctx, lineNo); err != nil {
			return nil, err
		}
		m := linePattern.FindStringSubmatch(strings.TrimRight(sc.Text(), "\r"))
		if m == nil {
			continue
		}

		line, err := strconv.Atoi(m[2])
		if err != nil || !format.ValidPoint(line, 0) {
			res.Skip(lineNo+1, "line", fmt.Sprintf("invalid line %q", m[2]))
			continue
		}
		message := strings.TrimSpace(m[5])
		if message == "" {
			res.Skip(lineNo+1, "message", "missing")
			continue
		}

		checker := AnalyzerName
		if m[4] != "" {
			checker += "-" + m[4]
		}
		res.Add(in, &model.Report{
			CheckerName:  checker,
			Severity:     severities.Map(m[4]),
			Message:      message,
			Location:     model.Location{File: m[1], Line: line},
			Category:     AnalyzerName,
			AnalyzerName: AnalyzerName,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, model.NewParseError(Name, err)
	}
	return res, nil
}
