package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/shotdiff/internal/model"
	"golang.org/x/sync/errgroup"
)

// Session is the work of one device: every target captured with one browser.
type Session struct {
	Device  model.Device
	Layout  model.Layout
	Targets []model.PageTarget
}

// SessionFunc runs one session and returns its run. It should always return
// a run, recording failures on its results.
type SessionFunc func(ctx context.Context, session Session) *model.Run

// BatchProcessor runs device sessions concurrently. Each session gets its own
// browser, so sessions share nothing but the output root.
type BatchProcessor struct {
	run         SessionFunc
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent device sessions.
// Default is 1.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor calling run for every session.
func NewBatchProcessor(run SessionFunc, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		run:         run,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch runs all sessions and returns their runs in session order.
// callback, when non-nil, is called from the session's goroutine as soon as
// the session finishes; it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatch(
	ctx context.Context,
	sessions []Session,
	callback func(run *model.Run, index int),
) []*model.Run {
	bp.logger.Info("starting device sessions",
		"devices", len(sessions),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	runs := make([]*model.Run, len(sessions))

	var g errgroup.Group
	g.SetLimit(bp.concurrency)
	for i, session := range sessions {
		g.Go(func() error {
			run := bp.run(ctx, session)
			runs[i] = run
			if callback != nil {
				callback(run, i)
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // sessions record failures on their runs

	bp.logger.Info("device sessions complete",
		"devices", len(sessions),
		"elapsed", time.Since(startTime),
	)
	return runs
}
