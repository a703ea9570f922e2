package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/shotdiff/internal/capture"
	"github.com/nao1215/shotdiff/internal/imaging"
	"github.com/nao1215/shotdiff/internal/model"
	"github.com/nao1215/shotdiff/internal/score"
	"golang.org/x/sync/errgroup"
)

// Side selects the environment a capture step works on.
type Side int

const (
	// Reference is the environment compared against, usually production.
	Reference Side = iota
	// Candidate is the environment under test, usually staging.
	Candidate
)

// String returns "reference" or "candidate".
func (s Side) String() string {
	if s == Reference {
		return "reference"
	}
	return "candidate"
}

// Capturer captures one URL to one file. *capture.Controller implements it.
type Capturer interface {
	Capture(ctx context.Context, url, dest string) capture.Artifact
}

// CaptureStep captures one side of a page. It never fails: navigation and
// capture problems become notes, and a missing file is detected by the
// normalize step.
type CaptureStep struct {
	side     Side
	capturer Capturer
}

// NewCaptureStep creates a capture step for side.
func NewCaptureStep(side Side, capturer Capturer) *CaptureStep {
	return &CaptureStep{side: side, capturer: capturer}
}

// Name returns the step name.
func (s *CaptureStep) Name() string {
	return "capture_" + s.side.String()
}

// Do captures the page.
func (s *CaptureStep) Do(ctx context.Context, job *Job) error {
	url, dest := job.Target.ReferenceURL, job.Layout.ReferencePath(job.Target)
	if s.side == Candidate {
		url, dest = job.Target.CandidateURL, job.Layout.CandidatePath(job.Target)
	}

	a := s.capturer.Capture(ctx, url, dest)
	for _, note := range a.Notes() {
		job.Result.AddNote(note)
	}
	if a.Exists {
		if s.side == Reference {
			job.Result.ReferencePath = dest
		} else {
			job.Result.CandidatePath = dest
		}
	}
	return nil
}

// NormalizeStep fits both captures into the canonical frame, in parallel.
type NormalizeStep struct {
	width  int
	height int
}

// NewNormalizeStep creates a normalize step for a width x height frame.
func NewNormalizeStep(width, height int) *NormalizeStep {
	return &NormalizeStep{width: width, height: height}
}

// Name returns the step name.
func (s *NormalizeStep) Name() string {
	return "normalize"
}

// Do normalizes the reference and candidate screenshots recorded by the
// capture steps. A side without a recorded capture is a missing file.
func (s *NormalizeStep) Do(ctx context.Context, job *Job) error {
	g, _ := errgroup.WithContext(ctx)

	var ref, cand *model.CapturedImage
	g.Go(func() error {
		img, err := s.normalize(job.Result.ReferencePath, job.Layout.ReferencePath(job.Target))
		if err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		ref = img
		return nil
	})
	g.Go(func() error {
		img, err := s.normalize(job.Result.CandidatePath, job.Layout.CandidatePath(job.Target))
		if err != nil {
			return fmt.Errorf("candidate: %w", err)
		}
		cand = img
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	job.Reference, job.Candidate = ref, cand
	job.Result.ReferencePath = ref.Path
	job.Result.CandidatePath = cand.Path
	job.Result.ReferenceDigest = imaging.Fingerprint(ref.Pixels)
	job.Result.CandidateDigest = imaging.Fingerprint(cand.Pixels)
	return nil
}

func (s *NormalizeStep) normalize(captured, expected string) (*model.CapturedImage, error) {
	if captured == "" {
		return nil, fmt.Errorf("%w: %s was not captured", imaging.ErrMissingFile, expected)
	}
	return imaging.Normalize(captured, s.width, s.height)
}

// DiffStep compares the normalized images and writes the diff image.
type DiffStep struct {
	differ *imaging.Differ
}

// NewDiffStep creates a diff step.
func NewDiffStep(differ *imaging.Differ) *DiffStep {
	return &DiffStep{differ: differ}
}

// Name returns the step name.
func (s *DiffStep) Name() string {
	return "diff"
}

// Do diffs the page and saves the diff image.
func (s *DiffStep) Do(_ context.Context, job *Job) error {
	if job.Reference == nil || job.Candidate == nil {
		return fmt.Errorf("diff: %w", imaging.ErrMissingFile)
	}
	result, err := s.differ.Diff(job.Reference.Pixels, job.Candidate.Pixels)
	if err != nil {
		return err
	}

	path := job.Layout.DiffPath(job.Target)
	if err := imaging.SavePNG(path, result.Image); err != nil {
		return err
	}

	job.Diff = result
	job.Result.DiffPath = path
	job.Result.MismatchedPixels = result.Mismatched
	job.Result.TotalPixels = result.Total
	return nil
}

// ScoreStep turns the diff counts into a scored outcome.
type ScoreStep struct{}

// NewScoreStep creates a score step.
func NewScoreStep() *ScoreStep {
	return &ScoreStep{}
}

// Name returns the step name.
func (s *ScoreStep) Name() string {
	return "score"
}

// Do records the similarity score.
func (s *ScoreStep) Do(_ context.Context, job *Job) error {
	if job.Diff == nil {
		return fmt.Errorf("score: no diff for %s", job.Target.Path)
	}
	job.Result.Outcome = model.Scored(score.Similarity(job.Diff.Total, job.Diff.Mismatched))
	return nil
}

// CompositeStep draws reference, candidate and diff side by side.
// Failing to draw the composite is recorded as a note only.
type CompositeStep struct {
	width  int
	height int
	factor float64
	logger *slog.Logger
}

// NewCompositeStep creates a composite step. factor scales each panel.
func NewCompositeStep(width, height int, factor float64, logger *slog.Logger) *CompositeStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompositeStep{width: width, height: height, factor: factor, logger: logger}
}

// Name returns the step name.
func (s *CompositeStep) Name() string {
	return "composite"
}

// Do writes the composite image.
func (s *CompositeStep) Do(_ context.Context, job *Job) error {
	if job.Reference == nil || job.Candidate == nil || job.Diff == nil {
		return nil
	}

	caption := func(name string) string {
		return name + "  " + job.Target.Path
	}
	path := job.Layout.CompositePath(job.Target)
	err := imaging.SaveComposite(path, s.width, s.height, s.factor,
		imaging.Panel{Caption: caption(job.Layout.Reference), Image: job.Reference.Pixels},
		imaging.Panel{Caption: caption(job.Layout.Candidate), Image: job.Candidate.Pixels},
		imaging.Panel{Caption: "diff " + job.Result.Outcome.Label(), Image: job.Diff.Image},
	)
	if err != nil {
		s.logger.Warn("composite failed", "page", job.Target.Path, "error", err)
		job.Result.AddNote("composite: " + err.Error())
		return nil
	}
	job.Result.CompositePath = path
	return nil
}
