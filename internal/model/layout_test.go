package model

import (
	"path/filepath"
	"testing"
)

func TestLayoutPaths(t *testing.T) {
	t.Parallel()

	root := filepath.Join("out", "qa")
	layout := NewLayout(root, "desktop", "prod", "staging")
	target := NewPageTarget("/docs/intro", "https://a", "https://b")

	testCases := []struct {
		name     string
		got      string
		expected string
	}{
		{"reference", layout.ReferencePath(target), filepath.Join(root, "screenshots", "desktop", "prod", "_docs_intro.png")},
		{"candidate", layout.CandidatePath(target), filepath.Join(root, "screenshots", "desktop", "staging", "_docs_intro.png")},
		{"diff", layout.DiffPath(target), filepath.Join(root, "screenshots", "desktop", "diff", "_docs_intro.png")},
		{"composite", layout.CompositePath(target), filepath.Join(root, "screenshots", "desktop", "composite", "_docs_intro.png")},
		{"report", layout.ReportPath("html"), filepath.Join(root, "visual_comparison_report_desktop.html")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if tc.got != tc.expected {
				t.Errorf("got %q, expected %q", tc.got, tc.expected)
			}
		})
	}
}

func TestLayoutRel(t *testing.T) {
	t.Parallel()

	layout := NewLayout(filepath.Join("out"), "mobile", "prod", "staging")
	target := NewPageTarget("/", "https://a", "https://b")

	if got := layout.Rel(layout.DiffPath(target)); got != "screenshots/mobile/diff/_.png" {
		t.Errorf("Rel() = %q", got)
	}
	if got := layout.Rel(""); got != "" {
		t.Errorf("Rel(\"\") = %q, expected empty", got)
	}
}
