package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/shotdiff/internal/imaging"
	"github.com/nao1215/shotdiff/internal/model"
)

// Job is the state of one page as it moves through the pipeline.
// Each Job is owned by the iteration that created it.
type Job struct {
	Target model.PageTarget
	Layout model.Layout

	// Result accumulates what the steps record.
	Result *model.ComparisonResult

	// Reference and Candidate are set by the normalize step.
	Reference *model.CapturedImage
	Candidate *model.CapturedImage

	// Diff is set by the diff step.
	Diff *imaging.DiffResult
}

// NewJob creates a job for target with an empty result.
func NewJob(target model.PageTarget, layout model.Layout) *Job {
	return &Job{
		Target: target,
		Layout: layout,
		Result: &model.ComparisonResult{Target: target},
	}
}

// Step defines the interface that all pipeline steps must implement.
type Step interface {
	// Do executes the step. A returned error ends the page; failures that
	// should not end it are recorded on job.Result instead.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order for one page at a time.
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
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0)}
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

// Execute runs the steps in order and returns the first step error.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	for _, step := range p.steps {
		p.logger.Debug("executing step",
			"step", step.Name(),
			"page", job.Target.Path,
		)

		if err := step.Do(ctx, job); err != nil {
			p.logger.Warn("step failed",
				"step", step.Name(),
				"page", job.Target.Path,
				"error", err,
			)
			return err
		}
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
