package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/shotdiff/internal/model"
)

// SimpleWriter outputs a plain text summary for terminals.
type SimpleWriter struct {
	baseWriter
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose prints notes and failure details under each page.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, layout model.Layout, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output, layout)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run in human-readable format.
func (w *SimpleWriter) Write(run *model.Run) (int, error) {
	view := buildView(run, w.layout)
	var sb strings.Builder

	sb.WriteString(view.Title + "\n")
	sb.WriteString(strings.Repeat("=", len(view.Title)) + "\n")
	fmt.Fprintf(&sb, "Device: %s %dx%d, took %s\n", view.DeviceName, view.Device.Width, view.Device.Height, view.Duration)
	fmt.Fprintf(&sb, "Pages: %d  Pass: %d  Fail: %d  Error: %d\n",
		view.Summary.Total, view.Summary.Pass, view.Summary.Fail, view.Summary.Error)
	if view.TimedOut {
		sb.WriteString("WARNING: run timed out, remaining pages were not compared\n")
	}
	sb.WriteString("\n")

	width := 4
	for _, r := range view.Rows {
		width = max(width, len(r.Path))
	}
	for _, r := range view.Rows {
		fmt.Fprintf(&sb, "[%-5s] %-*s  %s\n", r.StatusText(), width, r.Path, r.Label)
		if !w.verbose {
			continue
		}
		if r.Detail != "" {
			fmt.Fprintf(&sb, "        %s\n", r.Detail)
		}
		for _, n := range r.Notes {
			fmt.Fprintf(&sb, "        note: %s\n", n)
		}
	}

	return io.WriteString(w.output, sb.String())
}
