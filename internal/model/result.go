package model

import (
	"image"
	"time"
)

// CapturedImage is a decoded screenshot normalized to the canonical frame.
// It is owned by the page pipeline that produced it.
type CapturedImage struct {
	// Pixels holds the non-premultiplied pixel buffer.
	Pixels *image.NRGBA

	// Width and Height are the buffer dimensions in pixels.
	Width  int
	Height int

	// Path is the file the image was read from and written back to.
	Path string
}

// Device describes the browser viewport a run was captured with.
type Device struct {
	Name   string  `json:"name"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Scale  float64 `json:"scale,omitempty"`
	Mobile bool    `json:"mobile,omitempty"`
}

// ComparisonResult is everything recorded for a single page.
// A run holds exactly one ComparisonResult per PageTarget.
type ComparisonResult struct {
	// Target is the compared page.
	Target PageTarget `json:"target"`

	// Outcome is the score or the failure kind.
	Outcome Outcome `json:"outcome"`

	// ReferencePath, CandidatePath, DiffPath and CompositePath are the
	// artifact files on disk. A path is empty when the artifact does not exist.
	ReferencePath string `json:"reference_path,omitempty"`
	CandidatePath string `json:"candidate_path,omitempty"`
	DiffPath      string `json:"diff_path,omitempty"`
	CompositePath string `json:"composite_path,omitempty"`

	// Notes records absorbed capture problems such as a navigation that never settled.
	Notes []string `json:"notes,omitempty"`

	// ReferenceDigest and CandidateDigest fingerprint the normalized pixel buffers.
	ReferenceDigest string `json:"reference_digest,omitempty"`
	CandidateDigest string `json:"candidate_digest,omitempty"`

	// MismatchedPixels and TotalPixels are set when the pixel diff ran.
	MismatchedPixels int `json:"mismatched_pixels,omitempty"`
	TotalPixels      int `json:"total_pixels,omitempty"`

	// Duration is the wall time spent on this page.
	Duration time.Duration `json:"duration"`
}

// PixelIdentical reports whether both captures hashed to the same digest.
func (r ComparisonResult) PixelIdentical() bool {
	return r.ReferenceDigest != "" && r.ReferenceDigest == r.CandidateDigest
}

// AddNote appends a note to the result.
func (r *ComparisonResult) AddNote(note string) {
	r.Notes = append(r.Notes, note)
}

// Run is one device session: every configured page compared in order.
type Run struct {
	// ID is assigned by the history database; zero until saved.
	ID int64 `json:"id,omitempty"`

	// Device is the viewport the pages were captured with.
	Device Device `json:"device"`

	// Reference and Candidate are the environment names, e.g. "prod" and "staging".
	Reference string `json:"reference"`
	Candidate string `json:"candidate"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// TimedOut is set when the run deadline expired before every page was compared.
	TimedOut bool `json:"timed_out"`

	// Results holds one entry per page in configuration order.
	Results []ComparisonResult `json:"results"`
}

// NewRun creates an empty run for device.
func NewRun(device Device, reference, candidate string) *Run {
	return &Run{
		Device:    device,
		Reference: reference,
		Candidate: candidate,
		StartedAt: time.Now(),
		Results:   make([]ComparisonResult, 0),
	}
}

// Duration returns the elapsed time of a finished run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
