package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/shotdiff/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *RunDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testRun(device string, started time.Time) *model.Run {
	run := model.NewRun(model.Device{Name: device, Width: 1280, Height: 800}, "prod", "staging")
	run.StartedAt = started
	run.FinishedAt = started.Add(90 * time.Second)

	home := model.NewPageTarget("/", "https://prod.example.com", "https://staging.example.com")
	about := model.NewPageTarget("/about", "https://prod.example.com", "https://staging.example.com")
	broken := model.NewPageTarget("/broken", "https://prod.example.com", "https://staging.example.com")

	run.Results = append(run.Results,
		model.ComparisonResult{
			Target:           home,
			Outcome:          model.Scored(99.25),
			ReferencePath:    "/out/screenshots/desktop/prod/_.png",
			CandidatePath:    "/out/screenshots/desktop/staging/_.png",
			DiffPath:         "/out/screenshots/desktop/diff/_.png",
			ReferenceDigest:  "aaa",
			CandidateDigest:  "bbb",
			MismatchedPixels: 7680,
			TotalPixels:      1024000,
			Duration:         1500 * time.Millisecond,
		},
		model.ComparisonResult{
			Target:  about,
			Outcome: model.Scored(60),
		},
		model.ComparisonResult{
			Target:  broken,
			Outcome: model.MissingFile("screenshot not found"),
			Notes:   []string{"navigation timed out", "capture failed"},
		},
	)
	return run
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		dbPath := filepath.Join(dbDir, FileName)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Location() != dbPath {
			t.Errorf("Location() = %q, want %q", db.Location(), dbPath)
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		db, err := Open(dbDir, Options{CreateIfNotExists: false})
		if err == nil {
			_ = db.Close()
			t.Fatal("expected error for missing database")
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if _, err := db.SaveRun(context.Background(), testRun("desktop", time.Now())); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		_ = db.Close()

		db, err = Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), "", 0)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 1 {
			t.Errorf("got %d runs, want 1", len(runs))
		}
	})
}

func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := testRun("desktop", started)
	run.TimedOut = true

	id, err := db.SaveRun(ctx, run)
	if err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if id == 0 || run.ID != id {
		t.Fatalf("run ID = %d, returned %d", run.ID, id)
	}

	got, err := db.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}

	if got.Device.Name != "desktop" || got.Device.Width != 1280 || got.Device.Height != 800 {
		t.Errorf("Device = %+v", got.Device)
	}
	if got.Reference != "prod" || got.Candidate != "staging" {
		t.Errorf("environments = %q/%q", got.Reference, got.Candidate)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v, want 90s", got.Duration())
	}
	if !got.TimedOut {
		t.Error("TimedOut should survive the round trip")
	}
	if len(got.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(got.Results))
	}

	wantPaths := []string{"/", "/about", "/broken"}
	for i, want := range wantPaths {
		if got.Results[i].Target.Path != want {
			t.Errorf("Results[%d].Path = %q, want %q", i, got.Results[i].Target.Path, want)
		}
	}

	home := got.Results[0]
	if score, ok := home.Outcome.Score(); !ok || score != 99.25 {
		t.Errorf("home score = %v, %v", score, ok)
	}
	if home.MismatchedPixels != 7680 || home.TotalPixels != 1024000 {
		t.Errorf("pixel counts = %d/%d", home.MismatchedPixels, home.TotalPixels)
	}
	if home.Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %v", home.Duration)
	}
	if home.Target.CandidateURL != "https://staging.example.com/" {
		t.Errorf("CandidateURL = %q", home.Target.CandidateURL)
	}

	broken := got.Results[2]
	if broken.Outcome.Kind() != model.OutcomeMissingFile {
		t.Errorf("broken kind = %v", broken.Outcome.Kind())
	}
	if _, ok := broken.Outcome.Score(); ok {
		t.Error("missing file outcome must not have a score")
	}
	if broken.Outcome.Detail() != "screenshot not found" {
		t.Errorf("Detail() = %q", broken.Outcome.Detail())
	}
	if len(broken.Notes) != 2 || broken.Notes[1] != "capture failed" {
		t.Errorf("Notes = %v", broken.Notes)
	}
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	_, err := db.GetRun(context.Background(), 42)
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, device := range []string{"desktop", "mobile", "desktop", "desktop"} {
		if _, err := db.SaveRun(ctx, testRun(device, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		device string
		limit  int
		want   int
	}{
		{name: "all devices", device: "", limit: 0, want: 4},
		{name: "single device", device: "desktop", limit: 0, want: 3},
		{name: "limited", device: "desktop", limit: 2, want: 2},
		{name: "unknown device", device: "tablet", limit: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runs, err := db.ListRuns(ctx, tt.device, tt.limit)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			if len(runs) != tt.want {
				t.Errorf("got %d runs, want %d", len(runs), tt.want)
			}
			for i := 1; i < len(runs); i++ {
				if runs[i].StartedAt.After(runs[i-1].StartedAt) {
					t.Errorf("runs not newest first: %v before %v", runs[i-1].StartedAt, runs[i].StartedAt)
				}
			}
		})
	}

	t.Run("summary counts", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, "mobile", 1)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("got %d runs, want 1", len(runs))
		}
		s := runs[0].Summary
		if s.Total != 3 || s.Pass != 1 || s.Fail != 1 || s.Error != 1 {
			t.Errorf("Summary = %+v", s)
		}
	})
}

func TestLatestRunsAndDevices(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	older := testRun("desktop", base)
	newer := testRun("desktop", base.Add(time.Hour))
	newer.Results[1].Outcome = model.Scored(97)
	for _, run := range []*model.Run{older, newer, testRun("mobile", base)} {
		if _, err := db.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	runs, err := db.LatestRuns(ctx, "desktop", 2)
	if err != nil {
		t.Fatalf("LatestRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != newer.ID || runs[1].ID != older.ID {
		t.Errorf("LatestRuns order = [%d %d], want [%d %d]", runs[0].ID, runs[1].ID, newer.ID, older.ID)
	}
	if score, _ := runs[0].Results[1].Outcome.Score(); score != 97 {
		t.Errorf("newest /about score = %v, want 97", score)
	}

	devices, err := db.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(devices) != 2 || devices[0] != "desktop" || devices[1] != "mobile" {
		t.Errorf("ListDevices() = %v", devices)
	}
}

func TestSaveRunNil(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	if _, err := db.SaveRun(context.Background(), nil); err == nil {
		t.Error("expected error for nil run")
	}
}

func TestRebind(t *testing.T) {
	t.Parallel()

	query := "SELECT * FROM runs WHERE device = ? AND id > ? LIMIT ?"

	sqlite := &RunDB{dialect: dialectSQLite}
	if got := sqlite.rebind(query); got != query {
		t.Errorf("sqlite rebind changed the query: %q", got)
	}

	pg := &RunDB{dialect: dialectPostgres}
	want := "SELECT * FROM runs WHERE device = $1 AND id > $2 LIMIT $3"
	if got := pg.rebind(query); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		zero  bool
	}{
		{name: "RFC3339Nano", input: "2026-03-01T10:00:00.123456789Z"},
		{name: "RFC3339", input: "2026-03-01T10:00:00Z"},
		{name: "sqlite datetime", input: "2026-03-01 10:00:00"},
		{name: "garbage", input: "yesterday", zero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := parseTimestamp(tt.input)
			if got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) = %v", tt.input, got)
			}
		})
	}
}
