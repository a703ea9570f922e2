package score

import (
	"testing"

	"github.com/nao1215/shotdiff/internal/model"
)

func TestSimilarity(t *testing.T) {
	t.Parallel()

	const canonical = 1280 * 800

	testCases := []struct {
		name       string
		total      int
		mismatched int
		expected   float64
	}{
		{"identical", canonical, 0, 100},
		{"exactly at threshold", canonical, 51200, 95},
		{"all differ", canonical, canonical, 0},
		{"half", 10, 5, 50},
		{"empty image", 0, 0, 0},
		{"clamped above total", 10, 20, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Similarity(tc.total, tc.mismatched); got != tc.expected {
				t.Errorf("Similarity(%d, %d) = %v, expected %v", tc.total, tc.mismatched, got, tc.expected)
			}
		})
	}
}

func TestThresholdBoundary(t *testing.T) {
	t.Parallel()

	const canonical = 1280 * 800

	atThreshold := Similarity(canonical, 51200)
	if Classify(model.Scored(atThreshold)) != model.StatusPass {
		t.Errorf("score %v should pass", atThreshold)
	}

	justBelow := Similarity(canonical, 51201)
	if justBelow >= PassThreshold {
		t.Fatalf("score %v should be below threshold", justBelow)
	}
	if Classify(model.Scored(justBelow)) != model.StatusFail {
		t.Errorf("score %v should fail", justBelow)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		outcome  model.Outcome
		expected model.Status
	}{
		{"perfect", model.Scored(100), model.StatusPass},
		{"pass", model.Scored(98), model.StatusPass},
		{"fail", model.Scored(60), model.StatusFail},
		{"size mismatch", model.SizeMismatch(""), model.StatusError},
		{"capture error", model.CaptureError(""), model.StatusError},
		{"missing file", model.MissingFile(""), model.StatusError},
		{"decode failure", model.DecodeFailure(""), model.StatusError},
		{"not run", model.NotRun(""), model.StatusError},
		{"unset", model.Outcome{}, model.StatusError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tc.outcome); got != tc.expected {
				t.Errorf("Classify(%v) = %v, expected %v", tc.outcome, got, tc.expected)
			}
		})
	}
}
