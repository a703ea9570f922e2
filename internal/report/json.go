package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/shotdiff/internal/aggregate"
	"github.com/nao1215/shotdiff/internal/model"
)

// JSONWriter outputs runs in JSON format for tool integration.
type JSONWriter struct {
	baseWriter
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, layout model.Layout, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output, layout)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the document written by JSONWriter.
type JSONReport struct {
	Device     model.Device      `json:"device"`
	Reference  string            `json:"reference"`
	Candidate  string            `json:"candidate"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	TimedOut   bool              `json:"timed_out"`
	Threshold  float64           `json:"pass_threshold"`
	Summary    aggregate.Summary `json:"summary"`
	Pages      []JSONPage        `json:"pages"`
}

// JSONPage is one page of a JSONReport. Score is null when the page has no score.
type JSONPage struct {
	Path         string   `json:"path"`
	ReferenceURL string   `json:"reference_url"`
	CandidateURL string   `json:"candidate_url"`
	Status       string   `json:"status"`
	Outcome      string   `json:"outcome"`
	Score        *float64 `json:"score"`
	Detail       string   `json:"detail,omitempty"`
	Notes        []string `json:"notes,omitempty"`
	Identical    bool     `json:"pixel_identical"`
	Reference    string   `json:"reference_image,omitempty"`
	Candidate    string   `json:"candidate_image,omitempty"`
	Diff         string   `json:"diff_image,omitempty"`
	Composite    string   `json:"composite_image,omitempty"`
}

// Write outputs the run as a JSONReport.
func (w *JSONWriter) Write(run *model.Run) (int, error) {
	view := buildView(run, w.layout)
	doc := JSONReport{
		Device:     run.Device,
		Reference:  run.Reference,
		Candidate:  run.Candidate,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		TimedOut:   run.TimedOut,
		Threshold:  view.Threshold,
		Summary:    view.Summary,
		Pages:      make([]JSONPage, len(view.Rows)),
	}
	for i, r := range view.Rows {
		doc.Pages[i] = JSONPage{
			Path:         r.Path,
			ReferenceURL: r.ReferenceURL,
			CandidateURL: r.CandidateURL,
			Status:       r.Status.String(),
			Outcome:      r.Kind,
			Score:        r.Score,
			Detail:       r.Detail,
			Notes:        r.Notes,
			Identical:    r.Identical,
			Reference:    r.ReferenceImg,
			Candidate:    r.CandidateImg,
			Diff:         r.DiffImg,
			Composite:    r.CompositeImg,
		}
	}
	return w.writeJSON(doc)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error
	if w.indent != "" {
		data, err = json.MarshalIndent(v, "", w.indent)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
