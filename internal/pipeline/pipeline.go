package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/reportconv/internal/format"
	"github.com/nao1215/reportconv/internal/model"
	"github.com/nao1215/reportconv/internal/resolve"
)

// Job carries one input file through the per-file steps. Each step reads
// what earlier steps left and fills in its own part.
type Job struct {
	// Path is the analyzer output file.
	Path string

	// Data is the decoded content, set by the read step.
	Data []byte

	// Parser is the format chosen by the detect step.
	Parser format.Parser

	// Reports are raw after the parse step and resolved after the resolve step.
	Reports []*model.Report

	// Warnings are record-level problems reported by the parser.
	Warnings []string

	// Stats counts resolution outcomes of the primary locations.
	Stats resolve.Stats

	// Steps lists the steps that completed.
	Steps []string
}

// NewJob returns a job for path.
func NewJob(path string) *Job {
	return &Job{Path: path}
}

// Step is one stage of the per-file conversion.
// A step returning an error ends the job; the file is skipped.
type Step interface {
	// Do executes the step.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in sequence for a single file.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in order and stops at the first failure.
// Cancellation is checked before each step; steps that loop over records
// check it themselves.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Debug("pipeline cancelled",
				"step", step.Name(),
				"file", job.Path,
				"reason", err,
			)
			return err
		}

		start := time.Now()
		if err := step.Do(ctx, job); err != nil {
			p.logger.Debug("step failed",
				"step", step.Name(),
				"file", job.Path,
				"error", err,
			)
			return err
		}
		p.logger.Debug("step completed",
			"step", step.Name(),
			"file", job.Path,
			"elapsed", time.Since(start),
		)

		job.Steps = append(job.Steps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
