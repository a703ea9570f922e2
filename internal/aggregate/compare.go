package aggregate

import (
	"math"
	"time"

	"github.com/nao1215/shotdiff/internal/model"
	"github.com/nao1215/shotdiff/internal/score"
)

// Page change kinds between two runs.
const (
	ChangeRegressed = "regressed"
	ChangeRecovered = "recovered"
	ChangeScore     = "score"
)

// scoreEpsilon ignores deltas below the two decimals shown in reports.
const scoreEpsilon = 0.005

// RunInfo is the part of a run shown in a comparison.
type RunInfo struct {
	ID        int64     `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Summary   Summary   `json:"summary"`
}

// PageChange is one page whose verdict or score moved between two runs.
type PageChange struct {
	Path           string        `json:"path"`
	Change         string        `json:"change"`
	Previous       model.Outcome `json:"previous"`
	Current        model.Outcome `json:"current"`
	PreviousStatus string        `json:"previous_status"`
	CurrentStatus  string        `json:"current_status"`

	// Delta is current minus previous score; nil unless both runs scored the page.
	Delta *float64 `json:"delta"`
}

// RunComparison is the difference between two runs of the same device.
type RunComparison struct {
	Device    string       `json:"device"`
	Previous  RunInfo      `json:"previous"`
	Current   RunInfo      `json:"current"`
	Regressed []PageChange `json:"regressed,omitempty"`
	Recovered []PageChange `json:"recovered,omitempty"`
	Changed   []PageChange `json:"changed,omitempty"`
	Added     []string     `json:"added,omitempty"`
	Removed   []string     `json:"removed,omitempty"`
	Unchanged int          `json:"unchanged"`
}

// HasRegressions reports whether any page went from pass to fail or error.
func (c *RunComparison) HasRegressions() bool {
	return len(c.Regressed) > 0
}

// CompareRuns compares previous and current page by page. Pages are matched
// by path and reported in the configuration order of current.
func CompareRuns(previous, current *model.Run) *RunComparison {
	c := &RunComparison{
		Device:   current.Device.Name,
		Previous: runInfo(previous),
		Current:  runInfo(current),
	}

	before := make(map[string]model.ComparisonResult, len(previous.Results))
	for _, r := range previous.Results {
		before[r.Target.Path] = r
	}
	seen := make(map[string]bool, len(current.Results))

	for _, cur := range current.Results {
		seen[cur.Target.Path] = true
		prev, ok := before[cur.Target.Path]
		if !ok {
			c.Added = append(c.Added, cur.Target.Path)
			continue
		}

		change := PageChange{
			Path:           cur.Target.Path,
			Previous:       prev.Outcome,
			Current:        cur.Outcome,
			PreviousStatus: score.Classify(prev.Outcome).String(),
			CurrentStatus:  score.Classify(cur.Outcome).String(),
		}
		prevScore, prevOK := prev.Outcome.Score()
		curScore, curOK := cur.Outcome.Score()
		if prevOK && curOK {
			delta := curScore - prevScore
			change.Delta = &delta
		}

		prevFail := score.Classify(prev.Outcome).IsFailure()
		curFail := score.Classify(cur.Outcome).IsFailure()
		switch {
		case !prevFail && curFail:
			change.Change = ChangeRegressed
			c.Regressed = append(c.Regressed, change)
		case prevFail && !curFail:
			change.Change = ChangeRecovered
			c.Recovered = append(c.Recovered, change)
		case change.Delta != nil && math.Abs(*change.Delta) >= scoreEpsilon:
			change.Change = ChangeScore
			c.Changed = append(c.Changed, change)
		default:
			c.Unchanged++
		}
	}

	for _, prev := range previous.Results {
		if !seen[prev.Target.Path] {
			c.Removed = append(c.Removed, prev.Target.Path)
		}
	}
	return c
}

func runInfo(run *model.Run) RunInfo {
	return RunInfo{
		ID:        run.ID,
		StartedAt: run.StartedAt,
		Summary:   Summarize(run.Results),
	}
}
