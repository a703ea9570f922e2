package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/shotdiff/internal/imaging"
	"github.com/nao1215/shotdiff/internal/model"
)

// OutcomeFor maps a step error to the outcome recorded for the page.
func OutcomeFor(err error) model.Outcome {
	switch {
	case errors.Is(err, imaging.ErrSizeMismatch):
		return model.SizeMismatch(err.Error())
	case errors.Is(err, imaging.ErrMissingFile):
		return model.MissingFile(err.Error())
	case errors.Is(err, imaging.ErrDecode):
		return model.DecodeFailure(err.Error())
	default:
		return model.CaptureError(err.Error())
	}
}

// Runner compares the pages of one device session, one after another.
type Runner struct {
	pipeline *Pipeline
	logger   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger of the runner.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner executing p for every page.
func NewRunner(p *Pipeline, opts ...RunnerOption) *Runner {
	r := &Runner{pipeline: p, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run compares targets in order and appends exactly one result per target
// to run.Results. When ctx ends before every page is done, the results
// gathered so far are kept, the remaining pages are recorded as not run and
// run.TimedOut is set.
func (r *Runner) Run(ctx context.Context, run *model.Run, layout model.Layout, targets []model.PageTarget) {
	defer func() {
		run.FinishedAt = time.Now()
	}()

	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			abandon(r.logger, run, targets[i:], err)
			return
		}

		result := r.comparePage(ctx, layout, target)
		run.Results = append(run.Results, result)
		if result.Outcome.Kind() == model.OutcomeNotRun {
			run.TimedOut = true
		}

		r.logger.Info("page compared",
			"device", run.Device.Name,
			"page", target.Path,
			"result", result.Outcome.Label(),
			"index", i+1,
			"total", len(targets),
		)
	}
}

func (r *Runner) comparePage(ctx context.Context, layout model.Layout, target model.PageTarget) model.ComparisonResult {
	start := time.Now()
	job := NewJob(target, layout)

	if err := r.pipeline.Execute(ctx, job); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			job.Result.Outcome = model.NotRun("run ended during comparison: " + ctxErr.Error())
		} else {
			job.Result.Outcome = OutcomeFor(err)
		}
	}

	job.Result.Duration = time.Since(start)
	return *job.Result
}

// abandon records remaining as not run and marks run as timed out.
func abandon(logger *slog.Logger, run *model.Run, remaining []model.PageTarget, cause error) {
	run.TimedOut = true
	run.FinishedAt = time.Now()
	logger.Warn("run ended before all pages were compared",
		"remaining", len(remaining),
		"reason", cause,
	)
	for _, target := range remaining {
		run.Results = append(run.Results, model.ComparisonResult{
			Target:  target,
			Outcome: model.NotRun("not compared: " + cause.Error()),
		})
	}
}
