// Package score turns pixel diff counts into similarity percentages and
// classifies page outcomes as pass, fail or error.
package score

import "github.com/nao1215/shotdiff/internal/model"

const (
	// PassThreshold is the minimum similarity percentage for a page to pass.
	// A score exactly equal to the threshold passes.
	PassThreshold = 95.0

	// DiffThreshold is the per-channel tolerance of the pixel diff, as a
	// fraction of the channel range. Two pixels match when every channel
	// differs by at most this fraction of 255.
	DiffThreshold = 0.1
)

// Similarity returns the percentage of matching pixels:
// (total - mismatched) * 100 / total. It returns 0 when total is not positive.
func Similarity(total, mismatched int) float64 {
	if total <= 0 {
		return 0
	}
	if mismatched < 0 {
		mismatched = 0
	}
	if mismatched > total {
		mismatched = total
	}
	return float64(total-mismatched) * 100 / float64(total)
}

// Passed reports whether a similarity score meets PassThreshold.
func Passed(similarity float64) bool {
	return similarity >= PassThreshold
}

// Classify maps an outcome to its status. A scored outcome passes or fails
// against PassThreshold; every other kind is an error.
func Classify(outcome model.Outcome) model.Status {
	switch outcome.Kind() {
	case model.OutcomeScored:
		s, _ := outcome.Score()
		if Passed(s) {
			return model.StatusPass
		}
		return model.StatusFail
	case model.OutcomeSizeMismatch,
		model.OutcomeCaptureError,
		model.OutcomeMissingFile,
		model.OutcomeDecodeFailure,
		model.OutcomeNotRun:
		return model.StatusError
	default:
		return model.StatusError
	}
}
