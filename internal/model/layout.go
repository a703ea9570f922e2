package model

import (
	"path/filepath"
)

const (
	// ScreenshotsDir is the directory under the output root holding all captures.
	ScreenshotsDir = "screenshots"

	// DiffDir holds the diff images of a device.
	DiffDir = "diff"

	// CompositeDir holds the side-by-side images of a device.
	CompositeDir = "composite"

	// ReportPrefix is the file name prefix of every report.
	ReportPrefix = "visual_comparison_report_"
)

// Layout maps pages of one device session to artifact paths:
//
//	<root>/screenshots/<device>/<reference>/<page>.png
//	<root>/screenshots/<device>/<candidate>/<page>.png
//	<root>/screenshots/<device>/diff/<page>.png
//	<root>/screenshots/<device>/composite/<page>.png
//	<root>/visual_comparison_report_<device>.<ext>
//
// Paths of different pages never collide as long as their sanitized paths differ.
type Layout struct {
	Root      string
	Device    string
	Reference string
	Candidate string
}

// NewLayout returns the layout for one device session.
func NewLayout(root, device, reference, candidate string) Layout {
	return Layout{Root: root, Device: device, Reference: reference, Candidate: candidate}
}

// ReferencePath returns the reference screenshot path of target.
func (l Layout) ReferencePath(target PageTarget) string {
	return l.page(l.Reference, target)
}

// CandidatePath returns the candidate screenshot path of target.
func (l Layout) CandidatePath(target PageTarget) string {
	return l.page(l.Candidate, target)
}

// DiffPath returns the diff image path of target.
func (l Layout) DiffPath(target PageTarget) string {
	return l.page(DiffDir, target)
}

// CompositePath returns the side-by-side image path of target.
func (l Layout) CompositePath(target PageTarget) string {
	return l.page(CompositeDir, target)
}

// ReportPath returns the report path for the given file extension ("html", "md", "json").
func (l Layout) ReportPath(ext string) string {
	return filepath.Join(l.Root, ReportPrefix+l.Device+"."+ext)
}

// Rel returns path relative to the output root using forward slashes,
// suitable for links inside a report. It returns "" for an empty path.
func (l Layout) Rel(path string) string {
	if path == "" {
		return ""
	}
	rel, err := filepath.Rel(l.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (l Layout) page(dir string, target PageTarget) string {
	return filepath.Join(l.Root, ScreenshotsDir, l.Device, dir, SanitizePath(target.Path)+".png")
}
