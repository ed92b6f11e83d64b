// Package sarif converts SARIF 2.1.0 logs into unified reports.
//
// Every result of every run becomes one report. The checker is the
// result's ruleId (or the rule referenced by ruleIndex), the analyzer is
// the run's tool.driver.name. The bug path comes from the first thread
// flow of the first code flow: steps are sorted by executionOrder when it
// is present and nestingLevel is used as the depth marker. Related
// locations become notes.
//
// Severity table (result level, falling back to the rule's default
// configuration):
//
//	none, note -> style
//	warning    -> warning
//	error      -> error
//	(missing)  -> warning
//
// A "severity" result or rule property overrides the level:
//
//	critical   -> critical
//	high       -> error
//	medium     -> warning
//	low, info  -> style
//
// Results of kind "pass" and suppressed results are skipped.
package sarif

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/nao1215/reportconv/internal/format"
	"github.com/nao1215/reportconv/internal/model"
)

// Name is the format identifier.
const Name = "sarif"

// AnalyzerName is used when a run does not name its tool.
const AnalyzerName = "sarif"

var levels = model.SeverityMap{
	string(LevelNone):    model.SeverityStyle,
	string(LevelNote):    model.SeverityStyle,
	string(LevelWarning): model.SeverityWarning,
	string(LevelError):   model.SeverityError,
}

var propertySeverities = model.SeverityMap{
	"critical": model.SeverityCritical,
	"high":     model.SeverityError,
	"medium":   model.SeverityWarning,
	"low":      model.SeverityStyle,
	"info":     model.SeverityStyle,
}

// Parser implements format.Parser for SARIF logs.
type Parser struct{}

// New returns a SARIF parser.
func New() Parser {
	return Parser{}
}

// Name implements format.Parser.
func (Parser) Name() string { return Name }

// Analyzer implements format.Parser.
func (Parser) Analyzer() string { return AnalyzerName }

// Detect implements format.Parser.
func (Parser) Detect(sample []byte) bool {
	if !format.LooksLikeJSON(sample) {
		return false
	}
	if !bytes.Contains(sample, []byte(`"runs"`)) {
		return false
	}
	return bytes.Contains(bytes.ToLower(sample), []byte("sarif")) || bytes.Contains(sample, []byte(`"tool"`))
}

// Parse implements format.Parser.
func (p Parser) Parse(ctx context.Context, in format.Input) (*format.Result, error) {
	var log sarifLog
	if err := json.Unmarshal(in.Data, &log); err != nil {
		return nil, model.NewParseError(Name, err)
	}

	res := &format.Result{}
	if log.Version != "" && log.Version != "2.1.0" {
		res.Warnf("SARIF version %q is not 2.1.0; converting anyway", log.Version)
	}

	index := 0
	for r := range log.Runs {
		rn := &log.Runs[r]
		analyzer := rn.Tool.Driver.Name
		if analyzer == "" {
			analyzer = AnalyzerName
		}
		for i := range rn.Results {
			if err := format.CheckContext(ctx, index); err != nil {
				return nil, err
			}
			p.convert(res, in, rn, analyzer, index, &rn.Results[i])
			index++
		}
	}
	return res, nil
}

func (p Parser) convert(res *format.Result, in format.Input, rn *sarifRun, analyzer string, index int, r *result) {
	if r.Kind == KindPass || len(r.Suppressions) > 0 {
		return
	}

	rule := rn.rule(r)
	checker := r.RuleID
	if checker == "" && rule != nil {
		checker = rule.ID
	}
	if checker == "" {
		res.Skip(index, "ruleId", "missing")
		return
	}
	if r.Message.Text == "" {
		res.Skip(index, "message", "missing")
		return
	}
	if len(r.Locations) == 0 {
		res.Skip(index, "locations", "missing")
		return
	}
	primary, ranges, ok := rn.locate(&r.Locations[0])
	if !ok {
		res.Skip(index, "locations[0]", "no physical location with a start line")
		return
	}

	rep := &model.Report{
		CheckerName:  checker,
		Severity:     severity(r, rule),
		Message:      r.Message.Text,
		Location:     primary,
		Ranges:       ranges,
		Category:     category(r, rule),
		AnalyzerName: analyzer,
	}

	var path model.PathBuilder
	if len(r.CodeFlows) > 0 && len(r.CodeFlows[0].ThreadFlows) > 0 {
		for i, tfl := range r.CodeFlows[0].ThreadFlows[0].Locations {
			if tfl.Location == nil {
				res.Warnf("record %d: thread flow step %d has no location", index, i)
				continue
			}
			loc, stepRanges, ok := rn.locate(tfl.Location)
			if !ok {
				res.Warnf("record %d: thread flow step %d has no physical location", index, i)
				continue
			}
			step := model.Step{
				Location: loc,
				Message:  messageText(tfl.Location.Message),
				Depth:    tfl.NestingLevel,
				Ranges:   stepRanges,
			}
			if tfl.ExecutionOrder != nil {
				step.Order = *tfl.ExecutionOrder
				step.HasOrder = true
			}
			if tfl.Importance == ImportanceUnimportant {
				step.Kind = model.EventKindNote
			}
			path.Add(step)
		}
	}
	for _, rel := range r.RelatedLocations {
		loc, _, ok := rn.locate(&rel)
		if !ok {
			continue
		}
		path.Add(model.Step{Location: loc, Message: messageText(rel.Message), Kind: model.EventKindNote})
	}
	path.Build(rep)

	res.Add(in, rep)
}

// rule returns the descriptor a result refers to, if the driver lists it.
func (r *sarifRun) rule(res *result) *reportingDescriptor {
	rules := r.Tool.Driver.Rules
	if res.RuleIndex != nil && *res.RuleIndex >= 0 && *res.RuleIndex < len(rules) {
		return &rules[*res.RuleIndex]
	}
	if res.RuleID == "" {
		return nil
	}
	for i := range rules {
		if rules[i].ID == res.RuleID {
			return &rules[i]
		}
	}
	return nil
}

// locate converts a SARIF location into a model location and its region.
func (r *sarifRun) locate(l *location) (model.Location, []model.Range, bool) {
	pl := l.PhysicalLocation
	if pl == nil || pl.ArtifactLocation == nil || pl.Region == nil {
		return model.Location{}, nil, false
	}
	reg := pl.Region
	if !format.ValidPoint(reg.StartLine, reg.StartColumn) {
		return model.Location{}, nil, false
	}
	file := r.artifactPath(pl.ArtifactLocation)
	if file == "" {
		return model.Location{}, nil, false
	}

	loc := model.Location{File: file, Line: reg.StartLine, Column: reg.StartColumn}
	var ranges []model.Range
	if reg.EndLine > 0 || reg.EndColumn > 0 {
		end := model.Position{Line: reg.EndLine, Column: reg.EndColumn}
		if end.Line == 0 {
			end.Line = reg.StartLine
		}
		ranges = []model.Range{{Start: loc.Position(), End: end}}
	}
	return loc, ranges, true
}

// artifactPath turns an artifact URI into a file path, expanding a
// uriBaseId declared in originalUriBaseIds.
func (r *sarifRun) artifactPath(a *artifactLocation) string {
	uri := a.URI
	if a.URIBaseID != "" {
		if base, ok := r.OriginalURIBaseIDs[a.URIBaseID]; ok && base.URI != "" && !isAbsoluteURI(uri) {
			uri = strings.TrimSuffix(base.URI, "/") + "/" + strings.TrimPrefix(uri, "/")
		}
	}
	return uriToPath(uri)
}

func isAbsoluteURI(uri string) bool {
	return strings.HasPrefix(uri, "file:") || strings.HasPrefix(uri, "/")
}

// uriToPath strips a file scheme and percent-decoding from a URI.
func uriToPath(uri string) string {
	if uri == "" {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	switch u.Scheme {
	case "file":
		p := u.Path
		// file:///C:/src/a.c
		if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
			p = p[1:]
		}
		return p
	case "":
		return u.Path
	default:
		// Other schemes, and Windows drive letters parsed as one.
		return uri
	}
}

func severity(r *result, rule *reportingDescriptor) model.Severity {
	if s, ok := propertySeverity(r.Properties); ok {
		return s
	}
	if rule != nil {
		if s, ok := propertySeverity(rule.Properties); ok {
			return s
		}
	}
	level := r.Level
	if level == "" && rule != nil && rule.DefaultConfiguration != nil {
		level = rule.DefaultConfiguration.Level
	}
	return levels.Map(string(level))
}

func propertySeverity(props properties) (model.Severity, bool) {
	v, ok := props["severity"].(string)
	if !ok {
		return model.DefaultSeverity, false
	}
	_, known := propertySeverities[strings.ToLower(strings.TrimSpace(v))]
	if !known {
		return model.DefaultSeverity, false
	}
	return propertySeverities.Map(v), true
}

func category(r *result, rule *reportingDescriptor) string {
	if c, ok := r.Properties["category"].(string); ok && c != "" {
		return c
	}
	if rule != nil {
		if c, ok := rule.Properties["category"].(string); ok && c != "" {
			return c
		}
	}
	return model.CheckerCategory(r.RuleID)
}

func messageText(m *message) string {
	if m == nil {
		return ""
	}
	return m.Text
}
