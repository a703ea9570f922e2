package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/shotdiff/internal/aggregate"
	"github.com/nao1215/shotdiff/internal/model"
)

// RunSummary is a run row without its page results.
type RunSummary struct {
	ID         int64
	Device     string
	Width      int
	Height     int
	Reference  string
	Candidate  string
	StartedAt  time.Time
	FinishedAt time.Time
	TimedOut   bool
	Summary    aggregate.Summary
}

// SaveRun stores run and all of its results in one transaction and sets run.ID.
func (r *RunDB) SaveRun(ctx context.Context, run *model.Run) (int64, error) {
	if run == nil {
		return 0, errors.New("run is nil")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	summary := aggregate.Summarize(run.Results)

	var id int64
	err = tx.QueryRowContext(ctx, r.rebind(`
		INSERT INTO runs (device, width, height, reference_env, candidate_env,
			started_at, finished_at, timed_out, total, pass, fail, error_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`),
		run.Device.Name, run.Device.Width, run.Device.Height,
		run.Reference, run.Candidate,
		formatTimestamp(run.StartedAt), formatTimestamp(run.FinishedAt),
		boolToInt(run.TimedOut),
		summary.Total, summary.Pass, summary.Fail, summary.Error,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	insert := r.rebind(`
		INSERT INTO results (run_id, position, path, reference_url, candidate_url,
			kind, score, detail, notes, reference_path, candidate_path, diff_path,
			composite_path, reference_digest, candidate_digest, mismatched,
			total_pixels, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for i, res := range run.Results {
		var score sql.NullFloat64
		if s, ok := res.Outcome.Score(); ok {
			score = sql.NullFloat64{Float64: s, Valid: true}
		}
		_, err := tx.ExecContext(ctx, insert,
			id, i, res.Target.Path, res.Target.ReferenceURL, res.Target.CandidateURL,
			res.Outcome.Kind().String(), score, res.Outcome.Detail(),
			strings.Join(res.Notes, "\n"),
			res.ReferencePath, res.CandidatePath, res.DiffPath, res.CompositePath,
			res.ReferenceDigest, res.CandidateDigest,
			res.MismatchedPixels, res.TotalPixels, res.Duration.Milliseconds(),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert result %s: %w", res.Target.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	run.ID = id
	return id, nil
}

// ListRuns returns the newest runs first. An empty device lists every device;
// limit <= 0 returns all runs.
func (r *RunDB) ListRuns(ctx context.Context, device string, limit int) ([]RunSummary, error) {
	query := `
		SELECT id, device, width, height, reference_env, candidate_env,
			started_at, finished_at, timed_out, total, pass, fail, error_count
		FROM runs`
	var args []any
	if device != "" {
		query += " WHERE device = ?"
		args = append(args, device)
	}
	query += " ORDER BY started_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		s, err := scanRunSummary(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun loads a run with all of its results in their original order.
func (r *RunDB) GetRun(ctx context.Context, id int64) (*model.Run, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`
		SELECT id, device, width, height, reference_env, candidate_env,
			started_at, finished_at, timed_out, total, pass, fail, error_count
		FROM runs WHERE id = ?
	`), id)
	s, err := scanRunSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	results, err := r.getResults(ctx, id)
	if err != nil {
		return nil, err
	}

	return &model.Run{
		ID:         s.ID,
		Device:     model.Device{Name: s.Device, Width: s.Width, Height: s.Height},
		Reference:  s.Reference,
		Candidate:  s.Candidate,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		TimedOut:   s.TimedOut,
		Results:    results,
	}, nil
}

// LatestRuns loads up to n complete runs for device, newest first.
func (r *RunDB) LatestRuns(ctx context.Context, device string, n int) ([]*model.Run, error) {
	summaries, err := r.ListRuns(ctx, device, n)
	if err != nil {
		return nil, err
	}
	runs := make([]*model.Run, 0, len(summaries))
	for _, s := range summaries {
		run, err := r.GetRun(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// ListDevices returns the distinct device names with stored runs.
func (r *RunDB) ListDevices(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT device FROM runs ORDER BY device`)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (r *RunDB) getResults(ctx context.Context, runID int64) ([]model.ComparisonResult, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT path, reference_url, candidate_url, kind, score, detail, notes,
			reference_path, candidate_path, diff_path, composite_path,
			reference_digest, candidate_digest, mismatched, total_pixels, duration_ms
		FROM results WHERE run_id = ? ORDER BY position
	`), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := make([]model.ComparisonResult, 0)
	for rows.Next() {
		var (
			res        model.ComparisonResult
			kind       string
			score      sql.NullFloat64
			detail     string
			notes      string
			durationMS int64
		)
		if err := rows.Scan(
			&res.Target.Path, &res.Target.ReferenceURL, &res.Target.CandidateURL,
			&kind, &score, &detail, &notes,
			&res.ReferencePath, &res.CandidatePath, &res.DiffPath, &res.CompositePath,
			&res.ReferenceDigest, &res.CandidateDigest,
			&res.MismatchedPixels, &res.TotalPixels, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		k, err := model.ParseOutcomeKind(kind)
		if err != nil {
			return nil, fmt.Errorf("result %s: %w", res.Target.Path, err)
		}
		var sp *float64
		if score.Valid {
			sp = &score.Float64
		}
		if res.Outcome, err = model.RestoreOutcome(k, sp, detail); err != nil {
			return nil, fmt.Errorf("result %s: %w", res.Target.Path, err)
		}
		if notes != "" {
			res.Notes = strings.Split(notes, "\n")
		}
		res.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}
	return results, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRunSummary(row scanner) (RunSummary, error) {
	var (
		s                 RunSummary
		started, finished string
		timedOut          int
	)
	err := row.Scan(&s.ID, &s.Device, &s.Width, &s.Height, &s.Reference, &s.Candidate,
		&started, &finished, &timedOut,
		&s.Summary.Total, &s.Summary.Pass, &s.Summary.Fail, &s.Summary.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return s, err
	}
	if err != nil {
		return s, fmt.Errorf("failed to scan run: %w", err)
	}
	s.StartedAt = parseTimestamp(started)
	s.FinishedAt = parseTimestamp(finished)
	s.TimedOut = timedOut != 0
	return s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
