package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/shotdiff/internal/model"
	"golang.org/x/net/html"
)

// createTestRun creates a run with scores [98, Error, 60, 99] in configuration order.
func createTestRun(root string) (*model.Run, model.Layout) {
	layout := model.NewLayout(root, "desktop", "prod", "staging")
	run := model.NewRun(model.Device{Name: "desktop", Width: 1280, Height: 800}, "prod", "staging")
	run.StartedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	run.FinishedAt = run.StartedAt.Add(90 * time.Second)

	add := func(path string, outcome model.Outcome, withArtifacts bool) {
		target := model.NewPageTarget(path, "https://www.example.com", "https://staging.example.com")
		r := model.ComparisonResult{Target: target, Outcome: outcome}
		if withArtifacts {
			r.ReferencePath = layout.ReferencePath(target)
			r.CandidatePath = layout.CandidatePath(target)
			r.DiffPath = layout.DiffPath(target)
		}
		run.Results = append(run.Results, r)
	}
	add("/", model.Scored(98), true)
	add("/broken", model.CaptureError("missing candidate screenshot"), false)
	add("/pricing", model.Scored(60), true)
	add("/about", model.Scored(99), true)
	run.Results[1].AddNote("navigation https://staging.example.com/broken: page did not settle")
	return run, layout
}

// rows returns the data-path attribute of every table row in document order.
func rows(t *testing.T, doc string) []string {
	t.Helper()
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("report is not parseable HTML: %v", err)
	}
	var paths []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			for _, a := range n.Attr {
				if a.Key == "data-path" {
					paths = append(paths, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return paths
}

// images returns the src attribute of every img element.
func images(t *testing.T, doc string) []string {
	t.Helper()
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("report is not parseable HTML: %v", err)
	}
	var srcs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			for _, a := range n.Attr {
				if a.Key == "src" {
					srcs = append(srcs, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return srcs
}

func TestHTMLWriter(t *testing.T) {
	t.Parallel()

	t.Run("failures first in stable order", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		run, layout := createTestRun("out")
		if _, err := NewHTMLWriter(&buf, layout).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := rows(t, buf.String())
		want := []string{"/broken", "/pricing", "/", "/about"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("row order = %v, expected %v", got, want)
		}
	})

	t.Run("labels and summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		run, layout := createTestRun("out")
		if _, err := NewHTMLWriter(&buf, layout).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"Error", "60.00%", "98.00%", "99.00%", "Desktop", `id="fail">1<`, `id="error">1<`, `id="pass">2<`} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if !strings.Contains(output, `href="https://staging.example.com/pricing"`) {
			t.Error("expected link to the candidate URL")
		}
		if !strings.Contains(output, "page did not settle") {
			t.Error("expected navigation note")
		}
	})

	t.Run("thumbnails omitted for missing artifacts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		run, layout := createTestRun("out")
		if _, err := NewHTMLWriter(&buf, layout).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		srcs := images(t, buf.String())
		// three pages with three images each, the erroring page has none
		if len(srcs) != 9 {
			t.Errorf("got %d images, expected 9: %v", len(srcs), srcs)
		}
		for _, src := range srcs {
			if strings.Contains(src, "broken") {
				t.Errorf("unexpected thumbnail for missing artifact: %s", src)
			}
			if !strings.HasPrefix(src, "screenshots/desktop/") {
				t.Errorf("thumbnail %s should be relative to the output root", src)
			}
		}
	})

	t.Run("escapes page paths", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		run, layout := createTestRun("out")
		run.Results[0].Target.Path = "/<script>"
		if _, err := NewHTMLWriter(&buf, layout).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "<script>") {
			t.Error("page path must be escaped")
		}
	})

	t.Run("timed out run", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		run, layout := createTestRun("out")
		run.TimedOut = true
		if _, err := NewHTMLWriter(&buf, layout).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "timed out") {
			t.Error("expected timeout warning")
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	run, layout := createTestRun("out")
	if _, err := NewMarkdownWriter(&buf, layout).Write(run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"# Visual comparison: Desktop", "```mermaid", "pie", "FAIL", "ERROR", "[diff](screenshots/desktop/diff/_pricing.png)"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}

	broken := strings.Index(output, "`/broken`")
	pricing := strings.Index(output, "`/pricing`")
	about := strings.Index(output, "`/about`")
	if broken < 0 || pricing < 0 || about < 0 || broken > pricing || pricing > about {
		t.Errorf("unexpected page order: broken=%d pricing=%d about=%d", broken, pricing, about)
	}
}

func TestMarkdownWriterEscapesPipes(t *testing.T) {
	t.Parallel()

	layout := model.NewLayout("out", "desktop", "prod", "staging")
	run := model.NewRun(model.Device{Name: "desktop", Width: 1280, Height: 800}, "prod", "staging")
	target := model.NewPageTarget("/a|b", "https://www.example.com", "https://staging.example.com")
	run.Results = append(run.Results, model.ComparisonResult{Target: target, Outcome: model.Scored(99)})

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf, layout).Write(run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var row string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "/a") && strings.HasPrefix(strings.TrimSpace(line), "|") {
			row = line
			break
		}
	}
	if row == "" {
		t.Fatal("page row not found")
	}
	if !strings.Contains(row, "`/a\\|b`") {
		t.Errorf("pipe in path not escaped: %s", row)
	}
	unescaped := strings.Count(row, "|") - strings.Count(row, "\\|")
	if unescaped != 6 {
		t.Errorf("row has %d cell separators, expected 6: %s", unescaped, row)
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	run, layout := createTestRun("out")
	if _, err := NewJSONWriter(&buf, layout, WithPrettyPrint()).Write(run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc JSONReport
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(doc.Pages) != 4 {
		t.Fatalf("got %d pages, expected 4", len(doc.Pages))
	}
	first := doc.Pages[0]
	if first.Path != "/broken" || first.Score != nil || first.Status != "error" || first.Outcome != "capture_error" {
		t.Errorf("unexpected first page: %+v", first)
	}
	if doc.Pages[1].Score == nil || *doc.Pages[1].Score != 60 {
		t.Errorf("expected score 60 for second page, got %+v", doc.Pages[1])
	}
	if doc.Summary.Total != 4 || doc.Summary.Pass != 2 {
		t.Errorf("unexpected summary: %+v", doc.Summary)
	}
	if !strings.Contains(buf.String(), `"score": null`) {
		t.Error("expected explicit null score")
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	run, layout := createTestRun("out")
	if _, err := NewSimpleWriter(&buf, layout, WithVerbose(true)).Write(run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Pages: 4  Pass: 2  Fail: 1  Error: 1") {
		t.Errorf("expected summary line, got:\n%s", output)
	}
	if !strings.Contains(output, "note: navigation") {
		t.Error("expected verbose notes")
	}
	if strings.Index(output, "[ERROR]") > strings.Index(output, "[PASS ]") {
		t.Error("errors must be listed before passes")
	}
}

type failingWriter struct{}

func (failingWriter) Write(*model.Run) (int, error) { return 0, errors.New("disk full") }

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	run, layout := createTestRun("out")
	n, err := NewMultiWriter(NewSimpleWriter(&a, layout), NewSimpleWriter(&b, layout)).Write(run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != a.Len()+b.Len() || a.String() != b.String() {
		t.Error("both writers should receive the same report")
	}

	if _, err := NewMultiWriter(failingWriter{}, NewSimpleWriter(&a, layout)).Write(run); err == nil {
		t.Error("expected error from failing writer")
	}
}

func TestWriteFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	run, layout := createTestRun(root)

	paths, err := WriteFiles(run, layout, Formats{Markdown: true, JSON: true})
	if err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}

	want := []string{
		filepath.Join(root, "visual_comparison_report_desktop.html"),
		filepath.Join(root, "visual_comparison_report_desktop.md"),
		filepath.Join(root, "visual_comparison_report_desktop.json"),
	}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("paths = %v, expected %v", paths, want)
	}
	for _, p := range want {
		info, err := os.Stat(p)
		if err != nil || info.Size() == 0 {
			t.Errorf("report %s not written: %v", p, err)
		}
	}
}
