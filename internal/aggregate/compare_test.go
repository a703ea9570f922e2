package aggregate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nao1215/shotdiff/internal/model"
)

func runWith(id int64, outcomes map[string]model.Outcome, order ...string) *model.Run {
	run := model.NewRun(model.Device{Name: "desktop", Width: 1280, Height: 800}, "prod", "staging")
	run.ID = id
	run.StartedAt = time.Date(2026, 3, int(id), 9, 0, 0, 0, time.UTC)
	for _, path := range order {
		run.Results = append(run.Results, model.ComparisonResult{
			Target:  model.PageTarget{Path: path},
			Outcome: outcomes[path],
		})
	}
	return run
}

func paths(changes []PageChange) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.Path)
	}
	return out
}

func TestCompareRuns(t *testing.T) {
	t.Parallel()

	previous := runWith(1, map[string]model.Outcome{
		"/":        model.Scored(99),
		"/about":   model.Scored(98),
		"/pricing": model.CaptureError("boom"),
		"/blog":    model.Scored(96),
		"/old":     model.Scored(100),
		"/same":    model.Scored(97.5),
	}, "/", "/about", "/pricing", "/blog", "/old", "/same")

	current := runWith(2, map[string]model.Outcome{
		"/":        model.Scored(99),
		"/about":   model.Scored(60),
		"/pricing": model.Scored(99.5),
		"/blog":    model.Scored(97.25),
		"/new":     model.SizeMismatch("1280x800 vs 1280x900"),
		"/same":    model.Scored(97.501),
	}, "/", "/about", "/pricing", "/blog", "/new", "/same")

	c := CompareRuns(previous, current)

	if c.Device != "desktop" {
		t.Errorf("Device = %q", c.Device)
	}
	if c.Previous.ID != 1 || c.Current.ID != 2 {
		t.Errorf("run IDs = %d, %d", c.Previous.ID, c.Current.ID)
	}
	if got := paths(c.Regressed); len(got) != 1 || got[0] != "/about" {
		t.Errorf("Regressed = %v", got)
	}
	if !c.HasRegressions() {
		t.Error("HasRegressions() = false")
	}
	if got := paths(c.Recovered); len(got) != 1 || got[0] != "/pricing" {
		t.Errorf("Recovered = %v", got)
	}
	if c.Recovered[0].Delta != nil {
		t.Error("recovered page had no previous score, delta must be nil")
	}
	if got := paths(c.Changed); len(got) != 1 || got[0] != "/blog" {
		t.Errorf("Changed = %v", got)
	}
	if d := *c.Changed[0].Delta; d != 1.25 {
		t.Errorf("/blog delta = %v, want 1.25", d)
	}
	if len(c.Added) != 1 || c.Added[0] != "/new" {
		t.Errorf("Added = %v", c.Added)
	}
	if len(c.Removed) != 1 || c.Removed[0] != "/old" {
		t.Errorf("Removed = %v", c.Removed)
	}
	if c.Unchanged != 2 {
		t.Errorf("Unchanged = %d, want 2", c.Unchanged)
	}

	about := c.Regressed[0]
	if about.PreviousStatus != "pass" || about.CurrentStatus != "fail" {
		t.Errorf("/about statuses = %s -> %s", about.PreviousStatus, about.CurrentStatus)
	}
}

func TestCompareRunsNoRegressions(t *testing.T) {
	t.Parallel()

	outcomes := map[string]model.Outcome{"/": model.Scored(100)}
	c := CompareRuns(runWith(1, outcomes, "/"), runWith(2, outcomes, "/"))

	if c.HasRegressions() {
		t.Error("identical runs must not regress")
	}
	if c.Unchanged != 1 {
		t.Errorf("Unchanged = %d", c.Unchanged)
	}
}

func TestRunComparisonJSON(t *testing.T) {
	t.Parallel()

	previous := runWith(1, map[string]model.Outcome{"/": model.Scored(99)}, "/")
	current := runWith(2, map[string]model.Outcome{"/": model.MissingFile("gone")}, "/")

	data, err := json.Marshal(CompareRuns(previous, current))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded struct {
		Regressed []struct {
			Path    string          `json:"path"`
			Current json.RawMessage `json:"current"`
			Delta   *float64        `json:"delta"`
		} `json:"regressed"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(decoded.Regressed) != 1 {
		t.Fatalf("regressed = %d entries", len(decoded.Regressed))
	}
	var outcome model.Outcome
	if err := json.Unmarshal(decoded.Regressed[0].Current, &outcome); err != nil {
		t.Fatalf("outcome decode error = %v", err)
	}
	if outcome.Kind() != model.OutcomeMissingFile {
		t.Errorf("current kind = %v", outcome.Kind())
	}
	if decoded.Regressed[0].Delta != nil {
		t.Error("delta must be null when the current run has no score")
	}
}
