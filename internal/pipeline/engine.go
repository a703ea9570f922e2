package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/shotdiff/internal/capture"
	"github.com/nao1215/shotdiff/internal/imaging"
	"github.com/nao1215/shotdiff/internal/model"
)

// BrowserFactory opens a browser session for device. The returned function
// releases it.
type BrowserFactory func(ctx context.Context, device model.Device) (capture.Browser, func() error, error)

// EngineConfig holds the settings shared by every device session.
type EngineConfig struct {
	// Width and Height are the canonical frame.
	Width  int
	Height int

	// CaptureOptions configure the capture controller of each session.
	CaptureOptions []capture.Option

	// Differ compares normalized images. Nil uses imaging.NewDiffer().
	Differ *imaging.Differ

	// Composite enables side-by-side images scaled by CompositeFactor.
	Composite       bool
	CompositeFactor float64
}

// Engine builds the pipeline for each device session and runs it.
type Engine struct {
	cfg      EngineConfig
	browsers BrowserFactory
	logger   *slog.Logger
}

// NewEngine creates an Engine opening browsers with browsers.
func NewEngine(browsers BrowserFactory, cfg EngineConfig, logger *slog.Logger) *Engine {
	if cfg.Differ == nil {
		cfg.Differ = imaging.NewDiffer()
	}
	if cfg.CompositeFactor <= 0 {
		cfg.CompositeFactor = 0.5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, browsers: browsers, logger: logger}
}

// NewPipeline returns the page pipeline using capturer for both sides.
func (e *Engine) NewPipeline(capturer Capturer) *Pipeline {
	p := New(WithLogger(e.logger))
	p.AddSteps(
		NewCaptureStep(Reference, capturer),
		NewCaptureStep(Candidate, capturer),
		NewNormalizeStep(e.cfg.Width, e.cfg.Height),
		NewDiffStep(e.cfg.Differ),
		NewScoreStep(),
	)
	if e.cfg.Composite {
		p.AddStep(NewCompositeStep(e.cfg.Width, e.cfg.Height, e.cfg.CompositeFactor, e.logger))
	}
	return p
}

// RunSession compares every page of session and returns the run. When the
// browser cannot be opened every page is recorded as a capture error, unless
// ctx already ended, in which case the pages are recorded as not run.
func (e *Engine) RunSession(ctx context.Context, session Session) *model.Run {
	logger := e.logger.With("device", session.Device.Name)
	run := model.NewRun(session.Device, session.Layout.Reference, session.Layout.Candidate)

	if err := ctx.Err(); err != nil {
		abandon(logger, run, session.Targets, err)
		return run
	}

	browser, closeBrowser, err := e.browsers(ctx, session.Device)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			abandon(logger, run, session.Targets, ctxErr)
			return run
		}
		logger.Error("browser unavailable", "error", err)
		failAll(run, session.Targets, fmt.Errorf("browser unavailable: %w", err))
		return run
	}
	defer func() {
		if err := closeBrowser(); err != nil {
			logger.Debug("failed to close browser", "error", err)
		}
	}()

	opts := append([]capture.Option{capture.WithLogger(logger)}, e.cfg.CaptureOptions...)
	controller, err := capture.NewController(browser, opts...)
	if err != nil {
		failAll(run, session.Targets, err)
		return run
	}

	NewRunner(e.NewPipeline(controller), WithRunnerLogger(logger)).
		Run(ctx, run, session.Layout, session.Targets)
	return run
}

func failAll(run *model.Run, targets []model.PageTarget, err error) {
	for _, target := range targets {
		run.Results = append(run.Results, model.ComparisonResult{
			Target:  target,
			Outcome: model.CaptureError(err.Error()),
		})
	}
	run.FinishedAt = time.Now()
}
