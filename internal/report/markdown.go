package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/shotdiff/internal/model"
)

// MarkdownWriter renders a run as GitHub flavored Markdown, suitable for
// pull request comments and CI job summaries.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, layout model.Layout) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output, layout)}
}

// Write outputs the run in Markdown format.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	view := buildView(run, w.layout)
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, view)
	w.writeSummary(md, view)
	w.writePages(md, view)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, view runView) {
	md.H1(view.Title)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Device", fmt.Sprintf("%s (%dx%d)", view.DeviceName, view.Device.Width, view.Device.Height)},
			{"Reference", "`" + view.Reference + "`"},
			{"Candidate", "`" + view.Candidate + "`"},
			{"Started", view.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", view.Duration.String()},
			{"Pass threshold", fmt.Sprintf("%.0f%%", view.Threshold)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, view runView) {
	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Verdict", "Pages"},
		Rows: [][]string{
			{"✅ Pass", strconv.Itoa(view.Summary.Pass)},
			{"❌ Fail", strconv.Itoa(view.Summary.Fail)},
			{"⚠️ Error", strconv.Itoa(view.Summary.Error)},
			{"**Total**", "**" + strconv.Itoa(view.Summary.Total) + "**"},
		},
	})
	md.PlainText("")

	if view.Summary.Total > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Page verdicts"),
			piechart.WithShowData(true),
		)
		if view.Summary.Pass > 0 {
			chart.LabelAndIntValue("Pass", uint64(view.Summary.Pass)) //nolint:gosec // counts are non-negative
		}
		if view.Summary.Fail > 0 {
			chart.LabelAndIntValue("Fail", uint64(view.Summary.Fail)) //nolint:gosec // counts are non-negative
		}
		if view.Summary.Error > 0 {
			chart.LabelAndIntValue("Error", uint64(view.Summary.Error)) //nolint:gosec // counts are non-negative
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case view.TimedOut:
		md.Cautionf("The run timed out. %d page(s) need attention, including pages that were not compared.", view.Summary.Failures())
	case view.Summary.Fail > 0:
		md.Warningf("%d page(s) scored below %.0f%%.", view.Summary.Fail, view.Threshold)
	case view.Summary.Error > 0:
		md.Importantf("%d page(s) could not be compared.", view.Summary.Error)
	case view.Summary.Total > 0:
		md.Tip("Every page matches the reference.")
	default:
		md.Note("No pages were configured.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, view runView) {
	md.H2("Pages")
	md.PlainText("")
	if len(view.Rows) == 0 {
		md.PlainText("No pages compared.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(view.Rows))
	for i, r := range view.Rows {
		rows[i] = []string{
			tableCell("`" + r.Path + "`"),
			r.StatusText(),
			r.Label,
			tableCell(mdLink(view.Reference, r.ReferenceURL) + " / " + mdLink(view.Candidate, r.CandidateURL)),
			tableCell(artifactLinks(r)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Page", "Status", "Score", "URLs", "Artifacts"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, r := range view.Rows {
		var details []string
		if r.Detail != "" {
			details = append(details, r.Detail)
		}
		details = append(details, r.Notes...)
		if len(details) > 0 {
			md.Details(r.Path, strings.Join(details, "\n"))
		}
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [shotdiff](https://github.com/nao1215/shotdiff)*")
}

// tableCell escapes pipes so cell text cannot split a table row.
func tableCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func mdLink(text, url string) string {
	return "[" + text + "](" + url + ")"
}

func artifactLinks(r pageRow) string {
	var links []string
	if r.DiffImg != "" {
		links = append(links, mdLink("diff", r.DiffImg))
	}
	if r.CompositeImg != "" {
		links = append(links, mdLink("side by side", r.CompositeImg))
	}
	if len(links) == 0 {
		return "-"
	}
	return strings.Join(links, " ")
}
