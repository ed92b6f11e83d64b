package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/reportconv/internal/format"
	"github.com/nao1215/reportconv/internal/input"
	"github.com/nao1215/reportconv/internal/resolve"
)

// ReadStep loads the file into memory through the bounded input reader.
type ReadStep struct {
	reader *input.Reader
}

// NewReadStep creates a read step.
func NewReadStep(reader *input.Reader) *ReadStep {
	return &ReadStep{reader: reader}
}

// Name returns the step name.
func (s *ReadStep) Name() string {
	return "read"
}

// Do executes the read step.
func (s *ReadStep) Do(_ context.Context, job *Job) error {
	data, err := s.reader.ReadFile(job.Path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	job.Data = data
	return nil
}

// DetectStep selects the format parser.
type DetectStep struct {
	registry *format.Registry
	hint     string
}

// NewDetectStep creates a detect step. A non-empty hint forces the format.
func NewDetectStep(registry *format.Registry, hint string) *DetectStep {
	return &DetectStep{registry: registry, hint: hint}
}

// Name returns the step name.
func (s *DetectStep) Name() string {
	return "detect"
}

// Do executes the detect step.
func (s *DetectStep) Do(_ context.Context, job *Job) error {
	p, err := s.registry.Resolve(format.Input{Path: job.Path, Data: job.Data}, s.hint)
	if err != nil {
		return err
	}
	job.Parser = p
	return nil
}

// ParseStep runs the selected parser.
type ParseStep struct {
	sources format.SourceReader
}

// NewParseStep creates a parse step. sources may be nil, in which case
// parsers that need file contents read them from disk as given.
func NewParseStep(sources format.SourceReader) *ParseStep {
	return &ParseStep{sources: sources}
}

// Name returns the step name.
func (s *ParseStep) Name() string {
	return "parse"
}

// Do executes the parse step.
func (s *ParseStep) Do(ctx context.Context, job *Job) error {
	res, err := job.Parser.Parse(ctx, format.Input{Path: job.Path, Data: job.Data, Sources: s.sources})
	if err != nil {
		return err
	}
	job.Reports = res.Reports
	job.Warnings = res.Warnings
	// The raw bytes are no longer needed once parsed.
	job.Data = nil
	return nil
}

// ResolveStep canonicalizes report paths against the source root.
type ResolveStep struct {
	resolver *resolve.Resolver
	logger   *slog.Logger
}

// NewResolveStep creates a resolve step.
func NewResolveStep(resolver *resolve.Resolver, logger *slog.Logger) *ResolveStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolveStep{resolver: resolver, logger: logger}
}

// Name returns the step name.
func (s *ResolveStep) Name() string {
	return "resolve"
}

// Do executes the resolve step.
func (s *ResolveStep) Do(_ context.Context, job *Job) error {
	job.Reports, job.Stats = s.resolver.ResolveAll(job.Reports)
	if job.Stats.External > 0 || job.Stats.Unresolved > 0 {
		s.logger.Debug("paths not under the source root",
			"file", job.Path,
			"external", job.Stats.External,
			"unresolved", job.Stats.Unresolved,
		)
	}
	return nil
}
