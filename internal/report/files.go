package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/shotdiff/internal/model"
)

// Formats selects which report files WriteFiles produces. HTML is always written.
type Formats struct {
	Markdown bool
	JSON     bool
}

// WriteFiles writes the report files of run next to its screenshots and
// returns their paths, HTML first.
func WriteFiles(run *model.Run, layout model.Layout, formats Formats) ([]string, error) {
	type target struct {
		ext string
		new func(io.Writer) Writer
	}
	targets := []target{
		{"html", func(out io.Writer) Writer { return NewHTMLWriter(out, layout) }},
	}
	if formats.Markdown {
		targets = append(targets, target{"md", func(out io.Writer) Writer { return NewMarkdownWriter(out, layout) }})
	}
	if formats.JSON {
		targets = append(targets, target{"json", func(out io.Writer) Writer {
			return NewJSONWriter(out, layout, WithPrettyPrint())
		}})
	}

	paths := make([]string, 0, len(targets))
	for _, t := range targets {
		path := layout.ReportPath(t.ext)
		if err := writeFile(path, func(out io.Writer) error {
			_, err := t.new(out).Write(run)
			return err
		}); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, render func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec // path comes from the artifact layout
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close report file: %w", cerr)
		}
	}()
	if err := render(f); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
