package report

import (
	"fmt"
	"io"
	"time"

	"github.com/nao1215/shotdiff/internal/aggregate"
	"github.com/nao1215/shotdiff/internal/model"
	"github.com/nao1215/shotdiff/internal/score"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Writer renders a run to its destination.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(run *model.Run) (int, error)
}

// MultiWriter writes the same run to several Writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to every writer and stops on the first error.
func (m *MultiWriter) Write(run *model.Run) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
	layout model.Layout
}

func newBaseWriter(output io.Writer, layout model.Layout) baseWriter {
	return baseWriter{output: output, layout: layout}
}

// pageRow is one page as shown in a report.
type pageRow struct {
	Path         string
	ReferenceURL string
	CandidateURL string
	Label        string
	Score        *float64
	Status       model.Status
	Kind         string
	Detail       string
	Notes        []string
	Identical    bool

	// Artifact links relative to the output root, empty when absent.
	ReferenceImg string
	CandidateImg string
	DiffImg      string
	CompositeImg string
}

// StatusText returns the upper case status shown in tables.
func (r pageRow) StatusText() string {
	switch r.Status {
	case model.StatusPass:
		return "PASS"
	case model.StatusFail:
		return "FAIL"
	default:
		return "ERROR"
	}
}

// runView is the format independent content of a report.
type runView struct {
	Title      string
	Device     model.Device
	DeviceName string
	Reference  string
	Candidate  string
	StartedAt  time.Time
	Duration   time.Duration
	TimedOut   bool
	Threshold  float64
	Summary    aggregate.Summary
	Rows       []pageRow
}

func buildView(run *model.Run, layout model.Layout) runView {
	deviceName := cases.Title(language.English).String(run.Device.Name)
	ordered := aggregate.Order(run.Results)

	rows := make([]pageRow, len(ordered))
	for i, r := range ordered {
		row := pageRow{
			Path:         r.Target.Path,
			ReferenceURL: r.Target.ReferenceURL,
			CandidateURL: r.Target.CandidateURL,
			Label:        r.Outcome.Label(),
			Status:       score.Classify(r.Outcome),
			Kind:         r.Outcome.Kind().String(),
			Detail:       r.Outcome.Detail(),
			Notes:        r.Notes,
			Identical:    r.PixelIdentical(),
			ReferenceImg: layout.Rel(r.ReferencePath),
			CandidateImg: layout.Rel(r.CandidatePath),
			DiffImg:      layout.Rel(r.DiffPath),
			CompositeImg: layout.Rel(r.CompositePath),
		}
		if s, ok := r.Outcome.Score(); ok {
			row.Score = &s
		}
		rows[i] = row
	}

	return runView{
		Title:      fmt.Sprintf("Visual comparison: %s (%s vs %s)", deviceName, run.Candidate, run.Reference),
		Device:     run.Device,
		DeviceName: deviceName,
		Reference:  run.Reference,
		Candidate:  run.Candidate,
		StartedAt:  run.StartedAt,
		Duration:   run.Duration().Round(time.Millisecond),
		TimedOut:   run.TimedOut,
		Threshold:  score.PassThreshold,
		Summary:    aggregate.Summarize(run.Results),
		Rows:       rows,
	}
}
