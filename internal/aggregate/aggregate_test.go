package aggregate

import (
	"testing"

	"github.com/nao1215/shotdiff/internal/model"
)

func result(path string, outcome model.Outcome) model.ComparisonResult {
	return model.ComparisonResult{
		Target:  model.NewPageTarget(path, "https://prod", "https://staging"),
		Outcome: outcome,
	}
}

func TestOrder(t *testing.T) {
	t.Parallel()

	results := []model.ComparisonResult{
		result("/a", model.Scored(98)),
		result("/b", model.CaptureError("x")),
		result("/c", model.Scored(60)),
		result("/d", model.Scored(99)),
	}

	ordered := Order(results)

	want := []string{"Error", "60.00%", "98.00%", "99.00%"}
	if len(ordered) != len(want) {
		t.Fatalf("got %d results, expected %d", len(ordered), len(want))
	}
	for i, label := range want {
		if got := ordered[i].Outcome.Label(); got != label {
			t.Errorf("ordered[%d] = %q, expected %q", i, got, label)
		}
	}

	// input is left untouched
	if results[0].Target.Path != "/a" {
		t.Error("Order modified its input")
	}
}

func TestOrderKeepsConfigurationOrderWithinGroups(t *testing.T) {
	t.Parallel()

	results := []model.ComparisonResult{
		result("/p1", model.Scored(100)),
		result("/f1", model.Scored(10)),
		result("/p2", model.Scored(96)),
		result("/e1", model.SizeMismatch("")),
		result("/f2", model.Scored(50)),
	}

	ordered := Order(results)

	want := []string{"/f1", "/e1", "/f2", "/p1", "/p2"}
	for i, path := range want {
		if ordered[i].Target.Path != path {
			t.Errorf("ordered[%d] = %q, expected %q", i, ordered[i].Target.Path, path)
		}
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	results := []model.ComparisonResult{
		result("/a", model.Scored(98)),
		result("/b", model.CaptureError("x")),
		result("/c", model.Scored(60)),
		result("/d", model.Scored(95)),
		result("/e", model.NotRun("deadline")),
	}

	s := Summarize(results)
	if s.Total != 5 || s.Pass != 2 || s.Fail != 1 || s.Error != 2 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.Failures() != 3 {
		t.Errorf("Failures() = %d, expected 3", s.Failures())
	}
	if s.PassRate() != 40 {
		t.Errorf("PassRate() = %v, expected 40", s.PassRate())
	}
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	s := Summarize(nil)
	if s.Total != 0 || s.PassRate() != 0 {
		t.Errorf("unexpected summary: %+v", s)
	}
}
