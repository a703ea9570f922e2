package report

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"github.com/nao1215/shotdiff/internal/model"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var htmlTemplate = template.Must(template.ParseFS(templateFS, "templates/report.html.tmpl"))

// HTMLWriter renders a single self-contained HTML page per run. Styles are
// inlined; screenshots are linked relative to the output root so the report
// works when the output directory is moved or archived as a whole.
type HTMLWriter struct {
	baseWriter
}

// NewHTMLWriter creates an HTMLWriter. layout resolves artifact links.
func NewHTMLWriter(output io.Writer, layout model.Layout) *HTMLWriter {
	return &HTMLWriter{baseWriter: newBaseWriter(output, layout)}
}

// Write renders the run as HTML.
func (w *HTMLWriter) Write(run *model.Run) (int, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, buildView(run, w.layout)); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}
