// Package aggregate summarizes the results of a run and orders them for display.
package aggregate

import (
	"slices"

	"github.com/nao1215/shotdiff/internal/model"
	"github.com/nao1215/shotdiff/internal/score"
)

// Summary holds the per-status counts of a run.
type Summary struct {
	Total int `json:"total"`
	Pass  int `json:"pass"`
	Fail  int `json:"fail"`
	Error int `json:"error"`
}

// Failures returns the number of results that need attention.
func (s Summary) Failures() int {
	return s.Fail + s.Error
}

// PassRate returns the share of passing results as a percentage.
func (s Summary) PassRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Pass) * 100 / float64(s.Total)
}

// Summarize counts results by status.
func Summarize(results []model.ComparisonResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch score.Classify(r.Outcome) {
		case model.StatusPass:
			s.Pass++
		case model.StatusFail:
			s.Fail++
		case model.StatusError:
			s.Error++
		}
	}
	return s
}

// Order returns a copy of results with every failing or erroring result
// before every passing one. Relative order inside each group is preserved,
// so equal-status rows keep their configuration order.
func Order(results []model.ComparisonResult) []model.ComparisonResult {
	ordered := slices.Clone(results)
	slices.SortStableFunc(ordered, func(a, b model.ComparisonResult) int {
		return rank(a) - rank(b)
	})
	return ordered
}

func rank(r model.ComparisonResult) int {
	if score.Classify(r.Outcome).IsFailure() {
		return 0
	}
	return 1
}
