package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/reportconv/internal/config"
	"github.com/nao1215/reportconv/internal/dedup"
	"github.com/nao1215/reportconv/internal/format"
	"github.com/nao1215/reportconv/internal/formats"
	"github.com/nao1215/reportconv/internal/input"
	"github.com/nao1215/reportconv/internal/model"
	"github.com/nao1215/reportconv/internal/resolve"
)

// FileResult is what a worker hands to the collector for one input.
type FileResult struct {
	Index       int
	Stat        model.FileStat
	Reports     []*model.Report
	Diagnostics []model.Diagnostic
}

// Converter turns analyzer output files into one report collection.
// A Converter holds no per-run state and can be reused.
type Converter struct {
	registry    *format.Registry
	resolver    *resolve.Resolver
	merger      *dedup.Merger
	concurrency int
	fileTimeout time.Duration
	maxFileSize int64
	format      string
	logger      *slog.Logger
}

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithRegistry sets the parser registry. Defaults to formats.Default().
func WithRegistry(r *format.Registry) ConverterOption {
	return func(c *Converter) {
		c.registry = r
	}
}

// WithResolver sets the path resolver. Defaults to one rooted at the
// working directory.
func WithResolver(r *resolve.Resolver) ConverterOption {
	return func(c *Converter) {
		c.resolver = r
	}
}

// WithMerger sets the deduplicator.
func WithMerger(m *dedup.Merger) ConverterOption {
	return func(c *Converter) {
		c.merger = m
	}
}

// WithConcurrency sets the maximum number of files converted at once.
// Non-positive values are ignored.
func WithConcurrency(n int) ConverterOption {
	return func(c *Converter) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithFileTimeout bounds the conversion of a single file.
// Non-positive values are ignored.
func WithFileTimeout(d time.Duration) ConverterOption {
	return func(c *Converter) {
		if d > 0 {
			c.fileTimeout = d
		}
	}
}

// WithMaxFileSize caps the size of a single input.
// Non-positive values are ignored.
func WithMaxFileSize(n int64) ConverterOption {
	return func(c *Converter) {
		if n > 0 {
			c.maxFileSize = n
		}
	}
}

// WithFormat forces a parser by name instead of content detection.
func WithFormat(name string) ConverterOption {
	return func(c *Converter) {
		c.format = name
	}
}

// WithConverterLogger sets the logger.
func WithConverterLogger(logger *slog.Logger) ConverterOption {
	return func(c *Converter) {
		c.logger = logger
	}
}

// NewConverter creates a Converter.
func NewConverter(opts ...ConverterOption) (*Converter, error) {
	c := &Converter{
		concurrency: config.DefaultConcurrency(),
		fileTimeout: config.DefaultFileTimeout,
		maxFileSize: config.DefaultMaxFileSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.registry == nil {
		c.registry = formats.Default()
	}
	if c.merger == nil {
		c.merger = dedup.NewMerger()
	}
	if c.resolver == nil {
		r, err := resolve.New("")
		if err != nil {
			return nil, fmt.Errorf("create path resolver: %w", err)
		}
		c.resolver = r
	}
	if c.format != "" {
		if _, ok := c.registry.Lookup(c.format); !ok {
			return nil, fmt.Errorf("%w: %q", format.ErrUnknownFormat, c.format)
		}
	}

	return c, nil
}

// newPipeline builds the per-file step sequence.
func (c *Converter) newPipeline() *Pipeline {
	p := New(WithLogger(c.logger))
	p.AddSteps(
		NewReadStep(input.NewReader(c.maxFileSize)),
		NewDetectStep(c.registry, c.format),
		NewParseStep(c.resolver),
		NewResolveStep(c.resolver, c.logger),
	)
	return p
}

// Convert converts every input. Files are processed concurrently; a file
// that fails is skipped with a diagnostic and never affects the others.
// Reports appear in input order (then parser order) before deduplication.
// The result is never nil.
func (c *Converter) Convert(ctx context.Context, inputs []string) *model.ConversionResult {
	start := time.Now()
	c.logger.Debug("starting conversion",
		"inputs", len(inputs),
		"concurrency", c.concurrency,
	)

	results := make(chan FileResult)
	collected := make([]FileResult, len(inputs))
	done := make(chan struct{})

	// Single collector: workers never touch shared state.
	go func() {
		defer close(done)
		for r := range results {
			collected[r.Index] = r
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, path := range inputs {
		g.Go(func() error {
			results <- c.convertFile(gctx, i, path)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers report failures as diagnostics
	close(results)
	<-done

	res := &model.ConversionResult{
		SourceRoot: c.resolver.Root,
		StartedAt:  start,
	}
	var all []*model.Report
	for _, r := range collected {
		res.Files = append(res.Files, r.Stat)
		res.Diagnostics = append(res.Diagnostics, r.Diagnostics...)
		all = append(all, r.Reports...)
	}
	res.Reports = c.merger.Merge(all)

	if len(res.Reports) == 0 && res.ConvertedFiles() == 0 {
		msg := "no analyzer output could be converted"
		if len(inputs) == 0 {
			msg = "no input files"
		}
		res.Diagnostics = append(res.Diagnostics, model.Diagnostic{Kind: model.DiagNoResults, Message: msg})
	}

	res.Elapsed = time.Since(start)
	c.logger.Debug("conversion complete",
		"files", len(inputs),
		"reports", len(res.Reports),
		"merged", len(all)-len(res.Reports),
		"diagnostics", len(res.Diagnostics),
		"elapsed", res.Elapsed,
	)
	return res
}

func (c *Converter) convertFile(ctx context.Context, index int, path string) FileResult {
	start := time.Now()
	out := FileResult{
		Index: index,
		Stat:  model.FileStat{Path: path, Status: model.FileSkipped},
	}

	fctx, cancel := context.WithTimeout(ctx, c.fileTimeout)
	defer cancel()

	job := NewJob(path)
	err := c.newPipeline().Execute(fctx, job)
	out.Stat.Elapsed = time.Since(start)
	if job.Parser != nil {
		out.Stat.Format = job.Parser.Name()
	}

	if err != nil {
		d := c.diagnose(ctx, path, err)
		c.logger.Warn("skipping file", "file", path, "reason", d.Message)
		out.Diagnostics = append(out.Diagnostics, d)
		return out
	}

	out.Stat.Status = model.FileConverted
	out.Stat.Reports = len(job.Reports)
	out.Stat.Warnings = len(job.Warnings)
	out.Stat.External = job.Stats.External
	out.Stat.Unresolved = job.Stats.Unresolved
	out.Reports = job.Reports
	for _, w := range job.Warnings {
		out.Diagnostics = append(out.Diagnostics, model.Diagnostic{Kind: model.DiagFieldError, File: path, Message: w})
	}
	return out
}

// diagnose classifies a per-file failure. ctx is the run context, used to
// tell a per-file timeout from a cancelled run.
func (c *Converter) diagnose(ctx context.Context, path string, err error) model.Diagnostic {
	d := model.Diagnostic{File: path, Message: err.Error()}
	switch {
	case errors.Is(err, model.ErrParse), errors.Is(err, input.ErrEncoding):
		d.Kind = model.DiagParseError
	case errors.Is(err, model.ErrRegistryMiss), errors.Is(err, format.ErrUnknownFormat):
		d.Kind = model.DiagRegistryMiss
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		d.Kind = model.DiagSkipped
		d.Message = fmt.Sprintf("timed out after %s", c.fileTimeout)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		d.Kind = model.DiagSkipped
		d.Message = "conversion cancelled"
	default:
		d.Kind = model.DiagSkipped
	}
	return d
}
